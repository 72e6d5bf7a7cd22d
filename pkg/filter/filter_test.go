package filter

import (
	"math"
	"testing"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
)

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func aged(id string, state mood.State, age time.Duration) event.Event {
	return event.Event{ID: id, State: state, AuthorID: "alice", Timestamp: event.At(now.Add(-age))}
}

func ids(events []event.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func equalIDs(t *testing.T, got []event.Event, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func TestApplyLastWeekAndHappiness(t *testing.T) {
	events := []event.Event{
		aged("e1", mood.Happiness, time.Hour),
		aged("e2", mood.Sadness, 2*day),
		aged("e3", mood.Happiness, 3*day),
		aged("e4", mood.Happiness, 7*day+23*time.Hour), // truncates to 7 days
		aged("e5", mood.Happiness, 8*day),
		aged("e6", mood.Anger, 5*day),
		aged("e7", mood.Happiness, 20*day),
		aged("e8", mood.Fear, 40*day),
		aged("e9", mood.Happiness, 400*day),
		aged("e10", mood.Surprise, 6*day),
	}
	got := Apply(Criteria{Window: LastWeek, State: mood.Happiness}, events, now)
	equalIDs(t, got, "e1", "e3", "e4")

	for _, e := range events {
		inWindow := DaysSince(e, now) <= 7
		happy := e.State == mood.Happiness
		kept := false
		for _, g := range got {
			if g.ID == e.ID {
				kept = true
			}
		}
		if kept != (inWindow && happy) {
			t.Fatalf("%s: kept=%v, window=%v, happy=%v", e.ID, kept, inWindow, happy)
		}
	}
}

func TestApplyWindows(t *testing.T) {
	events := []event.Event{
		aged("week", mood.Fear, 6*day),
		aged("month", mood.Fear, 30*day),
		aged("year", mood.Fear, 365*day),
		aged("old", mood.Fear, 366*day),
	}
	equalIDs(t, Apply(Criteria{}, events, now), "week", "month", "year", "old")
	equalIDs(t, Apply(Criteria{Window: LastMonth}, events, now), "week", "month")
	equalIDs(t, Apply(Criteria{Window: LastYear}, events, now), "week", "month", "year")
}

func TestApplyStateIsCaseInsensitive(t *testing.T) {
	events := []event.Event{aged("a", mood.Happiness, 0)}
	equalIDs(t, Apply(Criteria{State: mood.State("happiness")}, events, now), "a")
}

func TestApplyTrigger(t *testing.T) {
	withTrigger := aged("a", mood.Fear, 0)
	withTrigger.Trigger = "Final Exam"
	noTrigger := aged("b", mood.Fear, 0)
	events := []event.Event{withTrigger, noTrigger}
	equalIDs(t, Apply(Criteria{Trigger: "EXAM"}, events, now), "a")
	equalIDs(t, Apply(Criteria{Trigger: "  "}, events, now), "a", "b")
}

func TestApplyFollowedDropsViewer(t *testing.T) {
	mine := aged("mine", mood.Fear, 0)
	theirs := aged("theirs", mood.Fear, 0)
	theirs.AuthorID = "bob"
	events := []event.Event{mine, theirs}

	equalIDs(t, Apply(Criteria{Scope: ScopeFollowed, Viewer: "alice"}, events, now), "theirs")
	// Own and nearby are routing signals, not row filters.
	equalIDs(t, Apply(Criteria{Scope: ScopeOwn, Viewer: "alice"}, events, now), "mine", "theirs")
	if s, ok := (Criteria{Scope: ScopeNearby}).Route(); !ok || s != ScopeNearby {
		t.Fatal("nearby should route")
	}
	if _, ok := (Criteria{Scope: ScopeFollowed}).Route(); ok {
		t.Fatal("followed should not route")
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	e := aged("a", mood.Fear, 0)
	e.SetLocation(1, 2, "x")
	events := []event.Event{e}
	got := Apply(Criteria{}, events, now)
	got[0].Location.PlaceName = "changed"
	if events[0].Location.PlaceName != "x" {
		t.Fatal("Apply shares memory with its input")
	}
}

func TestEvaluatorUsesClock(t *testing.T) {
	ev := Evaluator{Now: func() time.Time { return now }}
	events := []event.Event{aged("a", mood.Fear, 2*day), aged("b", mood.Fear, 9*day)}
	equalIDs(t, ev.Apply(Criteria{Window: LastWeek}, events), "a")
}

func TestParseWindowAndScope(t *testing.T) {
	cases := map[string]Window{"All Time": AllTime, "last week": LastWeek, "month": LastMonth, "1y": LastYear, "": AllTime}
	for in, want := range cases {
		got, err := ParseWindow(in)
		if err != nil || got != want {
			t.Fatalf("ParseWindow(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseWindow("fortnight"); err == nil {
		t.Fatal("expected error")
	}
	if s, err := ParseScope("Followed"); err != nil || s != ScopeFollowed {
		t.Fatalf("unexpected scope %v, %v", s, err)
	}
	if _, err := ParseScope("friends"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLatestPerAuthor(t *testing.T) {
	mk := func(id, author string) event.Event {
		return event.Event{ID: id, AuthorID: author, State: mood.Fear}
	}
	events := []event.Event{mk("1", "a"), mk("2", "b"), mk("3", "a"), mk("4", "a"), mk("5", "b"), mk("6", "c")}
	equalIDs(t, LatestPerAuthor(events, 2), "1", "2", "3", "5", "6")
	equalIDs(t, LatestPerAuthor(events, 0), "1", "2", "3", "4", "5", "6")
}

func TestDistanceKm(t *testing.T) {
	if d := DistanceKm(Point{53.5461, -113.4938}, Point{53.5461, -113.4938}); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
	// One degree of latitude is about 111.19 km on a 6371 km sphere.
	d := DistanceKm(Point{0, 0}, Point{1, 0})
	if math.Abs(d-111.195) > 0.01 {
		t.Fatalf("expected ~111.195 km, got %f", d)
	}
}

func TestNearby(t *testing.T) {
	origin := Point{Latitude: 53.5461, Longitude: -113.4938}
	near := aged("close", mood.Fear, 0)
	near.SetLocation(53.5561, -113.4938, "") // ~1.1 km north
	closer := aged("closer", mood.Fear, 0)
	closer.SetLocation(53.5471, -113.4938, "")
	far := aged("far", mood.Fear, 0)
	far.SetLocation(53.6461, -113.4938, "") // ~11 km
	nowhere := aged("nowhere", mood.Fear, 0)

	got := Nearby([]event.Event{near, far, nowhere, closer}, origin, 0)
	if len(got) != 2 || got[0].Event.ID != "closer" || got[1].Event.ID != "close" {
		t.Fatalf("unexpected nearby result: %+v", got)
	}
	if got[1].DistanceKm < 1 || got[1].DistanceKm > 1.2 {
		t.Fatalf("unexpected distance %f", got[1].DistanceKm)
	}
	if got := Nearby([]event.Event{far}, origin, 20); len(got) != 1 {
		t.Fatal("far event should be inside a 20 km radius")
	}
}
