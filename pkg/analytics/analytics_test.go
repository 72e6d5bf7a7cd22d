package analytics

import (
	"math"
	"testing"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
)

var utc = Aggregator{Location: time.UTC, Registry: mood.NewRegistry()}

func at(day, hour int, state mood.State) event.Event {
	return event.Event{
		State:     state,
		AuthorID:  "alice",
		Timestamp: event.At(time.Date(2025, time.February, day, hour, 0, 0, 0, time.UTC)),
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMonthlyStatsEmptyMonth(t *testing.T) {
	events := []event.Event{at(3, 9, mood.Happiness)}
	if _, ok := utc.MonthlyStats(events, 2025, time.March); ok {
		t.Fatal("expected no stats for an empty month")
	}
	if _, ok := utc.MonthlyStats(nil, 2025, time.February); ok {
		t.Fatal("expected no stats for no events")
	}
}

func TestConsistencyForSevenDaysOfFebruary(t *testing.T) {
	var events []event.Event
	for _, d := range []int{1, 4, 8, 12, 16, 20, 28} {
		events = append(events, at(d, 10, mood.Happiness))
	}
	s, ok := utc.MonthlyStats(events, 2025, time.February)
	if !ok {
		t.Fatal("expected stats")
	}
	if s.DaysInMonth != 28 {
		t.Fatalf("expected 28 days, got %d", s.DaysInMonth)
	}
	if !near(s.MoodConsistency, 25.0) {
		t.Fatalf("expected consistency 25.0, got %f", s.MoodConsistency)
	}
	if !near(s.AvgEventsPerDay, 0.25) {
		t.Fatalf("expected 0.25 events per day, got %f", s.AvgEventsPerDay)
	}
}

func TestCurrentMonthDenominatorReproducesLegacySkew(t *testing.T) {
	var events []event.Event
	for _, d := range []int{1, 4, 8, 12, 16, 20, 28} {
		events = append(events, at(d, 10, mood.Happiness))
	}
	legacy := utc
	legacy.Denominator = CurrentMonth
	legacy.Now = func() time.Time { return time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC) }
	s, _ := legacy.MonthlyStats(events, 2025, time.February)
	// February against March's 31 days.
	if !near(s.MoodConsistency, 7.0/31.0*100) {
		t.Fatalf("expected legacy consistency, got %f", s.MoodConsistency)
	}
	if s.DaysInMonth != 28 {
		t.Fatalf("DaysInMonth should stay the queried month's, got %d", s.DaysInMonth)
	}
}

func TestMonthlyStatsBreakdowns(t *testing.T) {
	events := []event.Event{
		at(2, 9, mood.Sadness),
		at(2, 12, mood.Happiness),
		at(2, 18, mood.Happiness),
		at(5, 9, mood.Sadness),
		at(9, 9, mood.Anger),
	}
	events[0].Trigger = "rain"
	events[1].Trigger = "coffee"
	events[2].Trigger = "coffee"
	events[1].SocialSituation = "With friends"
	events[3].SocialSituation = "Alone"
	events[4].SocialSituation = "Alone"

	s, ok := utc.MonthlyStats(events, 2025, time.February)
	if !ok {
		t.Fatal("expected stats")
	}
	if s.Total != 5 || s.ActiveDays != 3 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	counts := s.MoodCounts()
	if counts[mood.Happiness] != 2 || counts[mood.Sadness] != 2 || counts[mood.Anger] != 1 {
		t.Fatalf("unexpected mood counts: %v", counts)
	}
	// Happiness and Sadness tie; Happiness is declared first.
	if s.TopMood != mood.Happiness {
		t.Fatalf("expected Happiness, got %v", s.TopMood)
	}
	if s.MostActiveDay != 2 || s.DayActivity[2] != 3 {
		t.Fatalf("unexpected most active day %d (%v)", s.MostActiveDay, s.DayActivity)
	}
	if tc := s.TriggerCounts(); tc["coffee"] != 2 || tc["rain"] != 1 || len(tc) != 2 {
		t.Fatalf("unexpected triggers: %v", tc)
	}
	if s.TriggerBreakdown[0].Key != "coffee" {
		t.Fatalf("expected coffee first, got %+v", s.TriggerBreakdown)
	}
	if sc := s.SocialCounts(); sc["Alone"] != 2 || sc["With friends"] != 1 {
		t.Fatalf("unexpected social: %v", sc)
	}
	if len(s.Trend) != 28 {
		t.Fatalf("expected 28 trend points, got %d", len(s.Trend))
	}
}

func TestMostActiveDayTieBreaksEarliest(t *testing.T) {
	events := []event.Event{at(20, 9, mood.Fear), at(6, 9, mood.Fear), at(13, 9, mood.Fear)}
	s, _ := utc.MonthlyStats(events, 2025, time.February)
	if s.MostActiveDay != 6 {
		t.Fatalf("expected day 6, got %d", s.MostActiveDay)
	}
}

func TestStabilityBoundaries(t *testing.T) {
	one := []event.Event{at(1, 9, mood.Happiness)}
	if got, ok := utc.MoodStability(one, 2025, time.February); !ok || got != 100 {
		t.Fatalf("single event: expected 100, got %f (%v)", got, ok)
	}

	allDifferent := []event.Event{
		at(1, 9, mood.Happiness), at(2, 9, mood.Sadness), at(3, 9, mood.Anger), at(4, 9, mood.Fear),
	}
	if got, _ := utc.MoodStability(allDifferent, 2025, time.February); got != 0 {
		t.Fatalf("all different: expected 0, got %f", got)
	}

	alternating := []event.Event{
		at(4, 9, mood.Sadness), at(1, 9, mood.Happiness), at(3, 9, mood.Happiness), at(2, 9, mood.Sadness),
	}
	if got, _ := utc.MoodStability(alternating, 2025, time.February); got != 0 {
		t.Fatalf("alternating: expected 0, got %f", got)
	}

	steady := []event.Event{
		at(1, 9, mood.Happiness), at(2, 9, mood.Happiness), at(3, 9, mood.Happiness), at(4, 9, mood.Sadness),
	}
	got, _ := utc.MoodStability(steady, 2025, time.February)
	if !near(got, (1-1.0/3.0)*100) {
		t.Fatalf("steady: expected 66.67, got %f", got)
	}

	if got, ok := utc.MoodStability(nil, 2025, time.February); ok || got != 100 {
		t.Fatalf("empty: expected 100 and !ok, got %f (%v)", got, ok)
	}
}

func TestMonthlyTrendFill(t *testing.T) {
	events := []event.Event{
		at(5, 9, mood.Sadness),
		at(5, 10, mood.Happiness),
		at(5, 11, mood.Happiness),
		at(10, 9, mood.Anger),
	}
	trend := utc.MonthlyTrend(events, 2025, time.February)
	if len(trend) != 28 {
		t.Fatalf("expected 28 points, got %d", len(trend))
	}
	for d := 1; d <= 4; d++ {
		if p := trend[d-1]; p.State != mood.Happiness || p.Recorded {
			t.Fatalf("day %d should be back-filled with the first mood: %+v", d, p)
		}
	}
	if p := trend[4]; p.State != mood.Happiness || !p.Recorded || p.Count != 3 {
		t.Fatalf("day 5 should be recorded Happiness: %+v", p)
	}
	if p := trend[7]; p.State != mood.Happiness || p.Recorded {
		t.Fatalf("day 8 should carry Happiness forward: %+v", p)
	}
	if p := trend[27]; p.State != mood.Anger {
		t.Fatalf("day 28 should carry Anger forward: %+v", p)
	}

	empty := utc.MonthlyTrend(nil, 2025, time.February)
	for _, p := range empty {
		if p.State != mood.None || p.Recorded {
			t.Fatalf("empty month should be neutral: %+v", p)
		}
	}
}

func TestDominantTieUsesRegistryOrder(t *testing.T) {
	events := []event.Event{at(3, 9, mood.Surprise), at(3, 10, mood.Anger)}
	trend := utc.MonthlyTrend(events, 2025, time.February)
	if trend[2].State != mood.Anger {
		t.Fatalf("expected Anger, got %v", trend[2].State)
	}
}

func TestLocalCalendarAssignsMonth(t *testing.T) {
	edmonton := time.FixedZone("MST", -7*60*60)
	agg := Aggregator{Location: edmonton, Registry: mood.NewRegistry()}
	// 03:00 UTC on March 1st is still February 28th in MST.
	e := event.Event{State: mood.Fear, Timestamp: event.At(time.Date(2025, time.March, 1, 3, 0, 0, 0, time.UTC))}
	s, ok := agg.MonthlyStats([]event.Event{e}, 2025, time.February)
	if !ok || s.MostActiveDay != 28 {
		t.Fatalf("expected the event on Feb 28 local time, got %+v (%v)", s, ok)
	}
}

func TestMonths(t *testing.T) {
	events := []event.Event{
		at(3, 9, mood.Fear),
		{State: mood.Fear, Timestamp: event.At(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC))},
		{State: mood.Fear, Timestamp: event.At(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))},
		at(9, 9, mood.Fear),
	}
	got := utc.Months(events)
	if len(got) != 3 || got[0] != (YearMonth{2025, time.February}) || got[2] != (YearMonth{2024, time.December}) {
		t.Fatalf("unexpected months: %v", got)
	}
}

func TestDaysIn(t *testing.T) {
	if DaysIn(2024, time.February) != 29 || DaysIn(2025, time.February) != 28 || DaysIn(2025, time.December) != 31 {
		t.Fatal("unexpected month lengths")
	}
}

func TestInMonthUsesLocalCalendar(t *testing.T) {
	mst := time.FixedZone("MST", -7*60*60)
	agg := Aggregator{Location: mst, Registry: mood.NewRegistry()}
	events := []event.Event{
		{ID: "late", State: mood.Fear, Timestamp: event.At(time.Date(2025, time.March, 1, 3, 0, 0, 0, time.UTC))},
		{ID: "march", State: mood.Fear, Timestamp: event.At(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC))},
		{ID: "zero", State: mood.Fear},
	}
	got := agg.InMonth(events, 2025, time.February)
	if len(got) != 1 || got[0].ID != "late" {
		t.Fatalf("expected only the late event in February, got %+v", got)
	}
	if got := utc.InMonth(events, 2025, time.February); len(got) != 0 {
		t.Fatalf("expected nothing in February UTC, got %+v", got)
	}
}
