package remote

import (
	"testing"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
)

func TestMatches(t *testing.T) {
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	e := event.Event{ID: "1", Timestamp: event.At(now), State: mood.Happiness, Trigger: "Great Workout"}

	cases := []struct {
		name string
		q    Query
		want bool
	}{
		{"zero", Query{}, true},
		{"since before", Query{Since: now.Add(-time.Hour)}, true},
		{"since equal", Query{Since: now}, false},
		{"state match", Query{State: mood.Happiness}, true},
		{"state mismatch", Query{State: mood.Anger}, false},
		{"text case-insensitive", Query{Text: "workout"}, true},
		{"text missing", Query{Text: "exam"}, false},
	}
	for _, tc := range cases {
		if got := Matches(tc.q, e); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestMatchesTextRequiresTrigger(t *testing.T) {
	e := event.Event{State: mood.Fear}
	if Matches(Query{Text: "x"}, e) {
		t.Fatal("event without trigger should not match a text query")
	}
}
