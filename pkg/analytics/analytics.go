// Package analytics derives monthly statistics from already loaded events.
// Every function is pure and deterministic; ties are broken by the mood
// registry's declaration order and by earliest day.
package analytics

import (
	"sort"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
)

// Denominator picks the month length used for per-day averages.
type Denominator int

const (
	// QueriedMonth divides by the length of the month being summarised.
	QueriedMonth Denominator = iota
	// CurrentMonth divides by the length of the month containing Now. It
	// reproduces the legacy mobile app and skews months of other lengths.
	CurrentMonth
)

// Aggregator computes statistics in a time zone against a mood registry.
// The zero value uses time.Local, mood.Default and QueriedMonth.
type Aggregator struct {
	Location    *time.Location
	Registry    *mood.Registry
	Denominator Denominator
	// Now is consulted only by CurrentMonth.
	Now func() time.Time
}

// Count is one row of a breakdown.
type Count struct {
	Key string `json:"key"`
	N   int    `json:"count"`
}

// MoodCount is one row of the mood breakdown.
type MoodCount struct {
	State mood.State `json:"state"`
	N     int        `json:"count"`
}

// TrendPoint is the mood shown for one day of the month. Recorded is false
// for days filled from a neighbouring day.
type TrendPoint struct {
	Day      int        `json:"day"`
	State    mood.State `json:"state"`
	Recorded bool       `json:"recorded"`
	Count    int        `json:"count"`
}

// Stats summarises one calendar month.
type Stats struct {
	Year        int        `json:"year"`
	Month       time.Month `json:"month"`
	DaysInMonth int        `json:"daysInMonth"`
	Total       int        `json:"total"`

	MoodBreakdown []MoodCount `json:"moodBreakdown"`
	TopMood       mood.State  `json:"topMood"`

	DayActivity     map[int]int `json:"dayActivity"`
	MostActiveDay   int         `json:"mostActiveDay"`
	ActiveDays      int         `json:"activeDays"`
	AvgEventsPerDay float64     `json:"avgEventsPerDay"`
	MoodConsistency float64     `json:"moodConsistency"`

	TriggerBreakdown []Count `json:"triggerBreakdown"`
	SocialBreakdown  []Count `json:"socialBreakdown"`

	Trend     []TrendPoint `json:"trend"`
	Stability float64      `json:"stability"`
}

// MoodCounts returns the mood breakdown as a map.
func (s Stats) MoodCounts() map[mood.State]int {
	out := make(map[mood.State]int, len(s.MoodBreakdown))
	for _, c := range s.MoodBreakdown {
		out[c.State] = c.N
	}
	return out
}

// TriggerCounts returns the trigger breakdown as a map.
func (s Stats) TriggerCounts() map[string]int {
	return countsToMap(s.TriggerBreakdown)
}

// SocialCounts returns the social situation breakdown as a map.
func (s Stats) SocialCounts() map[string]int {
	return countsToMap(s.SocialBreakdown)
}

func countsToMap(counts []Count) map[string]int {
	out := make(map[string]int, len(counts))
	for _, c := range counts {
		out[c.Key] = c.N
	}
	return out
}

func (a Aggregator) location() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

func (a Aggregator) registry() *mood.Registry {
	if a.Registry == nil {
		return mood.Default
	}
	return a.Registry
}

func (a Aggregator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (a Aggregator) denominator(year int, month time.Month) int {
	if a.Denominator == CurrentMonth {
		n := a.now().In(a.location())
		return DaysIn(n.Year(), n.Month())
	}
	return DaysIn(year, month)
}

// InMonth returns the events whose local date falls in year/month, oldest
// first.
func (a Aggregator) InMonth(events []event.Event, year int, month time.Month) []event.Event {
	loc := a.location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	out := make([]event.Event, 0)
	for _, e := range events {
		if !e.Timestamp.IsZero() && e.Timestamp.SameMonth(first, loc) {
			out = append(out, e.Clone())
		}
	}
	event.SortOldestFirst(out)
	return out
}

// MonthlyStats summarises year/month. ok is false when the month holds no
// events, which callers must treat differently from a month without a top
// mood.
func (a Aggregator) MonthlyStats(events []event.Event, year int, month time.Month) (Stats, bool) {
	monthly := a.InMonth(events, year, month)
	if len(monthly) == 0 {
		return Stats{}, false
	}
	loc := a.location()
	reg := a.registry()
	days := DaysIn(year, month)
	denom := a.denominator(year, month)

	moods := make(map[mood.State]int)
	byDay := make(map[int]int)
	triggers := make(map[string]int)
	social := make(map[string]int)
	for _, e := range monthly {
		moods[e.State]++
		byDay[e.Timestamp.In(loc).Day()]++
		if e.Trigger != "" {
			triggers[e.Trigger]++
		}
		if e.SocialSituation != "" {
			social[e.SocialSituation]++
		}
	}

	s := Stats{
		Year:             year,
		Month:            month,
		DaysInMonth:      days,
		Total:            len(monthly),
		MoodBreakdown:    moodBreakdown(moods, reg),
		DayActivity:      byDay,
		ActiveDays:       len(byDay),
		TriggerBreakdown: breakdown(triggers),
		SocialBreakdown:  breakdown(social),
		Trend:            a.trend(monthly, days),
		Stability:        stability(monthly),
	}
	if len(s.MoodBreakdown) > 0 {
		s.TopMood = s.MoodBreakdown[0].State
	}
	s.MostActiveDay = mostActiveDay(byDay)
	s.AvgEventsPerDay = float64(s.Total) / float64(denom)
	s.MoodConsistency = float64(s.ActiveDays) / float64(denom) * 100
	return s, true
}

// MonthlyTrend returns one point per day of year/month. Days without events
// repeat the latest earlier mood; days before the first event use the first
// mood of the month; a month without events is all mood.None.
func (a Aggregator) MonthlyTrend(events []event.Event, year int, month time.Month) []TrendPoint {
	return a.trend(a.InMonth(events, year, month), DaysIn(year, month))
}

// MoodStability scores how steady moods were across year/month's events in
// chronological order: 100 means no changes, 0 means a change at every
// step. ok is false when the month has no events.
func (a Aggregator) MoodStability(events []event.Event, year int, month time.Month) (float64, bool) {
	monthly := a.InMonth(events, year, month)
	return stability(monthly), len(monthly) > 0
}

// YearMonth names a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Months lists the months that hold events, most recent first.
func (a Aggregator) Months(events []event.Event) []YearMonth {
	loc := a.location()
	seen := make(map[YearMonth]bool)
	out := make([]YearMonth, 0)
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		t := e.Timestamp.In(loc)
		ym := YearMonth{Year: t.Year(), Month: t.Month()}
		if !seen[ym] {
			seen[ym] = true
			out = append(out, ym)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

func (a Aggregator) trend(monthly []event.Event, days int) []TrendPoint {
	loc := a.location()
	reg := a.registry()
	perDay := make(map[int]map[mood.State]int)
	for _, e := range monthly {
		d := e.Timestamp.In(loc).Day()
		if perDay[d] == nil {
			perDay[d] = make(map[mood.State]int)
		}
		perDay[d][e.State]++
	}

	points := make([]TrendPoint, days)
	first := mood.None
	for d := 1; d <= days; d++ {
		points[d-1].Day = d
		if counts, ok := perDay[d]; ok {
			points[d-1].State = dominant(counts, reg)
			points[d-1].Recorded = true
			for _, n := range counts {
				points[d-1].Count += n
			}
			if first == mood.None {
				first = points[d-1].State
			}
		}
	}

	carry := first
	for i := range points {
		if points[i].Recorded {
			carry = points[i].State
			continue
		}
		points[i].State = carry
	}
	return points
}

func stability(monthly []event.Event) float64 {
	if len(monthly) <= 1 {
		return 100
	}
	transitions := 0
	for i := 1; i < len(monthly); i++ {
		if monthly[i].State != monthly[i-1].State {
			transitions++
		}
	}
	return (1 - float64(transitions)/float64(len(monthly)-1)) * 100
}

func dominant(counts map[mood.State]int, reg *mood.Registry) mood.State {
	rows := moodBreakdown(counts, reg)
	if len(rows) == 0 {
		return mood.None
	}
	return rows[0].State
}

// moodBreakdown sorts by count descending, then registry order, then name
// for states the registry does not know.
func moodBreakdown(counts map[mood.State]int, reg *mood.Registry) []MoodCount {
	out := make([]MoodCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, MoodCount{State: s, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		ii, ij := reg.Index(out[i].State), reg.Index(out[j].State)
		if ii != ij {
			return ii < ij
		}
		return out[i].State < out[j].State
	})
	return out
}

func breakdown(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func mostActiveDay(byDay map[int]int) int {
	best, bestN := 0, 0
	for d, n := range byDay {
		if n > bestN || (n == bestN && d < best) {
			best, bestN = d, n
		}
	}
	return best
}
