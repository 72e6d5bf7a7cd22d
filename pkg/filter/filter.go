// Package filter narrows a sequence of events with conjunctive criteria. It is
// pure: nothing here touches the network or mutates its input.
package filter

import (
	"fmt"
	"strings"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
)

const day = 24 * time.Hour

// Window bounds how far back events may be.
type Window int

const (
	AllTime Window = iota
	LastWeek
	LastMonth
	LastYear
)

var windowNames = map[string]Window{
	"":           AllTime,
	"all":        AllTime,
	"all time":   AllTime,
	"alltime":    AllTime,
	"none":       AllTime,
	"week":       LastWeek,
	"last week":  LastWeek,
	"lastweek":   LastWeek,
	"1w":         LastWeek,
	"month":      LastMonth,
	"last month": LastMonth,
	"lastmonth":  LastMonth,
	"1m":         LastMonth,
	"year":       LastYear,
	"last year":  LastYear,
	"lastyear":   LastYear,
	"1y":         LastYear,
}

// ParseWindow accepts the labels shown by String as well as short forms such
// as "week" or "1y". Blank means AllTime.
func ParseWindow(raw string) (Window, error) {
	w, ok := windowNames[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return AllTime, fmt.Errorf("filter: unknown time window %q", raw)
	}
	return w, nil
}

func (w Window) String() string {
	switch w {
	case AllTime:
		return "All Time"
	case LastWeek:
		return "Last Week"
	case LastMonth:
		return "Last Month"
	case LastYear:
		return "Last Year"
	default:
		return fmt.Sprintf("Window(%d)", int(w))
	}
}

// MaxDays is the largest whole-day age the window admits; ok is false for
// AllTime.
func (w Window) MaxDays() (int, bool) {
	switch w {
	case LastWeek:
		return 7, true
	case LastMonth:
		return 30, true
	case LastYear:
		return 365, true
	default:
		return 0, false
	}
}

// Scope selects whose events a view shows.
type Scope int

const (
	ScopeAll Scope = iota
	// ScopeOwn routes the caller to the viewer's own history.
	ScopeOwn
	// ScopeFollowed drops the viewer's own events.
	ScopeFollowed
	// ScopeNearby routes the caller to the map view.
	ScopeNearby
)

var scopeNames = map[string]Scope{
	"":         ScopeAll,
	"all":      ScopeAll,
	"own":      ScopeOwn,
	"mine":     ScopeOwn,
	"history":  ScopeOwn,
	"followed": ScopeFollowed,
	"feed":     ScopeFollowed,
	"nearby":   ScopeNearby,
	"map":      ScopeNearby,
}

// ParseScope accepts all, own, followed and nearby.
func ParseScope(raw string) (Scope, error) {
	s, ok := scopeNames[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return ScopeAll, fmt.Errorf("filter: unknown scope %q", raw)
	}
	return s, nil
}

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeOwn:
		return "own"
	case ScopeFollowed:
		return "followed"
	case ScopeNearby:
		return "nearby"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// Criteria is a conjunction of tests. The zero value admits every event.
type Criteria struct {
	Window Window
	// State matches the event's state name case-insensitively.
	State mood.State
	// Trigger is a case-insensitive substring of the event trigger.
	Trigger string
	Scope   Scope
	// Viewer is the subject looking at the events.
	Viewer string
}

// Route reports whether the scope asks the caller to switch views rather
// than filter rows.
func (c Criteria) Route() (Scope, bool) {
	switch c.Scope {
	case ScopeOwn, ScopeNearby:
		return c.Scope, true
	default:
		return c.Scope, false
	}
}

// IsZero is true when the criteria admit every event.
func (c Criteria) IsZero() bool {
	return c.Window == AllTime && c.State == mood.None && strings.TrimSpace(c.Trigger) == "" && c.Scope != ScopeFollowed
}

// Apply returns the events that pass every test in c, in input order.
func Apply(c Criteria, events []event.Event, now time.Time) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if Match(c, e, now) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Match applies the tests in order: time window, state, trigger, authorship.
func Match(c Criteria, e event.Event, now time.Time) bool {
	if limit, ok := c.Window.MaxDays(); ok && DaysSince(e, now) > limit {
		return false
	}
	if c.State != mood.None && !strings.EqualFold(string(e.State), string(c.State)) {
		return false
	}
	if trigger := strings.TrimSpace(c.Trigger); trigger != "" {
		if e.Trigger == "" || !strings.Contains(strings.ToLower(e.Trigger), strings.ToLower(trigger)) {
			return false
		}
	}
	if c.Scope == ScopeFollowed && e.AuthorID == c.Viewer {
		return false
	}
	return true
}

// DaysSince is the event's age in whole days, truncated toward zero.
func DaysSince(e event.Event, now time.Time) int {
	return int(now.Sub(e.Timestamp.Time) / day)
}

// Evaluator applies criteria against an injected clock.
type Evaluator struct {
	Now func() time.Time
}

func (ev Evaluator) now() time.Time {
	if ev.Now == nil {
		return time.Now()
	}
	return ev.Now()
}

// Apply runs Apply with the evaluator's clock.
func (ev Evaluator) Apply(c Criteria, events []event.Event) []event.Event {
	return Apply(c, events, ev.now())
}

// LatestPerAuthor keeps at most n events per author, preserving order. With
// events sorted newest first this is each author's n most recent events.
func LatestPerAuthor(events []event.Event, n int) []event.Event {
	if n <= 0 {
		return event.CloneAll(events)
	}
	seen := make(map[string]int)
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if seen[e.AuthorID] >= n {
			continue
		}
		seen[e.AuthorID]++
		out = append(out, e.Clone())
	}
	return out
}
