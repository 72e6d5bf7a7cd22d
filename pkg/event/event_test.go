package event

import (
	"encoding/json"
	"testing"
	"time"

	"tableflip.dev/moodlog/pkg/mood"
)

func TestIsValidRequiresState(t *testing.T) {
	e := Event{AuthorID: "alice"}
	if e.IsValid() {
		t.Fatal("event without state should be invalid")
	}
	if err := e.Validate(); err != ErrMissingState {
		t.Fatalf("expected ErrMissingState, got %v", err)
	}
	e.State = mood.Fear
	if !e.IsValid() {
		t.Fatal("event with state should be valid")
	}
}

func TestEqualByIDWhenBothSet(t *testing.T) {
	a := Event{ID: "1", State: mood.Anger}
	b := Event{ID: "1", State: mood.Happiness}
	if !Equal(a, b) {
		t.Fatal("events with the same id should be equal")
	}
	b.ID = "2"
	if Equal(a, b) {
		t.Fatal("events with different ids should differ")
	}
}

func TestEqualByFieldsWithoutID(t *testing.T) {
	when := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	a := Event{ID: "1", Timestamp: At(when), State: mood.Sadness, AuthorID: "bob", Trigger: "rain"}
	b := Event{Timestamp: At(when), State: mood.Sadness, AuthorID: "bob", Trigger: "rain"}
	if !Equal(a, b) {
		t.Fatal("expected equality by fields when one id is empty")
	}
	b.SetLocation(1, 2, "park")
	if Equal(a, b) {
		t.Fatal("location difference should break equality")
	}
}

func TestCloneDetachesLocation(t *testing.T) {
	e := Event{State: mood.Shame}
	e.SetLocation(53.5, -113.5, "Edmonton")
	c := e.Clone()
	c.Location.PlaceName = "elsewhere"
	if e.Location.PlaceName != "Edmonton" {
		t.Fatal("clone shares location with original")
	}
}

func TestEnsureTimestampDefaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	e := Event{State: mood.Fear}
	e.EnsureTimestamp(now)
	if !e.Timestamp.Equal(now) {
		t.Fatalf("expected %v, got %v", now, e.Timestamp)
	}
	if e.Visibility != Public {
		t.Fatalf("expected default visibility Public, got %q", e.Visibility)
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "a", Timestamp: At(base)},
		{ID: "c", Timestamp: At(base.Add(2 * time.Hour))},
		{ID: "b", Timestamp: At(base.Add(time.Hour))},
	}
	SortNewestFirst(events)
	if events[0].ID != "c" || events[1].ID != "b" || events[2].ID != "a" {
		t.Fatalf("unexpected order: %s %s %s", events[0].ID, events[1].ID, events[2].ID)
	}
}

func TestLocalIDs(t *testing.T) {
	id := NewLocalID()
	if !IsLocalID(id) {
		t.Fatalf("expected %q to be local", id)
	}
	if IsLocalID("abc") {
		t.Fatal("store ids should not be local")
	}
}

func TestJSONRoundTripKeepsTimestamp(t *testing.T) {
	when := time.Date(2025, 2, 14, 9, 30, 0, 0, time.UTC)
	e := Event{ID: "x", Timestamp: At(when), State: mood.Happiness, AuthorID: "a", Visibility: Private}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Event
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Timestamp.Equal(when) || out.State != mood.Happiness || out.Visibility != Private {
		t.Fatalf("unexpected decoded event: %+v", out)
	}
}

func TestParseVisibility(t *testing.T) {
	if v, err := ParseVisibility("PRIVATE"); err != nil || v != Private {
		t.Fatalf("expected Private, got %q (%v)", v, err)
	}
	if v, err := ParseVisibility(""); err != nil || v != Public {
		t.Fatalf("expected Public, got %q (%v)", v, err)
	}
	if _, err := ParseVisibility("friends"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSameDayAndMonthUseLocation(t *testing.T) {
	mst := time.FixedZone("MST", -7*60*60)
	// 03:00 UTC on March 1st is 20:00 on February 28th in MST.
	ts := At(time.Date(2025, time.March, 1, 3, 0, 0, 0, time.UTC))
	feb28 := time.Date(2025, time.February, 28, 12, 0, 0, 0, mst)

	if ts.SameDay(feb28, time.UTC) {
		t.Fatal("expected different days in UTC")
	}
	if !ts.SameDay(feb28, mst) {
		t.Fatal("expected the same day in MST")
	}
	if ts.SameMonth(feb28, time.UTC) {
		t.Fatal("expected different months in UTC")
	}
	if !ts.SameMonth(feb28, mst) {
		t.Fatal("expected the same month in MST")
	}
	if ts.SameMonth(feb28.AddDate(1, 0, 0), mst) {
		t.Fatal("a year apart is not the same month")
	}
}
