// Package event holds the mood event value type shared by the cache, the
// remote adapters and the derived views.
package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"tableflip.dev/moodlog/pkg/mood"
)

// Visibility controls who may see an event.
type Visibility string

const (
	Public  Visibility = "Public"
	Private Visibility = "Private"
)

// ParseVisibility accepts public/private in any case. Blank means Public.
func ParseVisibility(raw string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "public":
		return Public, nil
	case "private":
		return Private, nil
	default:
		return Public, fmt.Errorf("event: unknown visibility %q", raw)
	}
}

// Location is where the mood happened.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceName string  `json:"placeName,omitempty"`
}

var ErrMissingState = errors.New("event: emotional state required")

// Event is one recorded mood entry.
type Event struct {
	ID              string     `json:"id,omitempty"`
	Timestamp       Timestamp  `json:"timestamp"`
	State           mood.State `json:"emotionalState"`
	Trigger         string     `json:"trigger,omitempty"`
	SocialSituation string     `json:"socialSituation,omitempty"`
	AuthorID        string     `json:"authorId"`
	Location        *Location  `json:"location,omitempty"`
	Visibility      Visibility `json:"postType,omitempty"`
}

// New creates a public event for author stamped with the current time.
func New(author string, state mood.State) Event {
	return Event{
		Timestamp:  At(time.Now()),
		State:      state,
		AuthorID:   author,
		Visibility: Public,
	}
}

// IsValid reports whether e carries an emotional state.
func (e Event) IsValid() bool {
	return e.State != mood.None
}

// Validate is IsValid with a reason.
func (e Event) Validate() error {
	if !e.IsValid() {
		return ErrMissingState
	}
	return nil
}

// HasLocation is true when both coordinates are set.
func (e Event) HasLocation() bool {
	return e.Location != nil
}

// SetLocation attaches a location.
func (e *Event) SetLocation(lat, lng float64, place string) {
	e.Location = &Location{Latitude: lat, Longitude: lng, PlaceName: place}
}

// IsPublic treats an unset visibility as public.
func (e Event) IsPublic() bool {
	return e.Visibility == "" || strings.EqualFold(string(e.Visibility), string(Public))
}

// EnsureTimestamp sets the timestamp to now when unset.
func (e *Event) EnsureTimestamp(now time.Time) {
	if e.Timestamp.IsZero() {
		e.Timestamp = At(now)
	}
	if e.Visibility == "" {
		e.Visibility = Public
	}
}

// Clone returns a deep copy.
func (e Event) Clone() Event {
	if e.Location != nil {
		loc := *e.Location
		e.Location = &loc
	}
	return e
}

// Equal compares by id when both ids are set and by every other field otherwise.
func Equal(a, b Event) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	if !a.Timestamp.Equal(b.Timestamp.Time) {
		return false
	}
	if a.State != b.State || a.AuthorID != b.AuthorID ||
		a.Trigger != b.Trigger || a.SocialSituation != b.SocialSituation ||
		a.Visibility != b.Visibility {
		return false
	}
	switch {
	case a.Location == nil && b.Location == nil:
		return true
	case a.Location == nil || b.Location == nil:
		return false
	default:
		return *a.Location == *b.Location
	}
}

// CloneAll deep copies a slice; nil in, nil out.
func CloneAll(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i := range events {
		out[i] = events[i].Clone()
	}
	return out
}

// SortNewestFirst orders events by timestamp descending, ties broken by id.
func SortNewestFirst(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		lt := events[i].Timestamp.Time
		rt := events[j].Timestamp.Time
		if lt.Equal(rt) {
			return events[i].ID < events[j].ID
		}
		return lt.After(rt)
	})
}

// SortOldestFirst orders events chronologically, ties broken by id.
func SortOldestFirst(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		lt := events[i].Timestamp.Time
		rt := events[j].Timestamp.Time
		if lt.Equal(rt) {
			return events[i].ID < events[j].ID
		}
		return lt.Before(rt)
	})
}

const localPrefix = "local-"

// NewLocalID returns a provisional id for an event the remote store has not
// assigned one to yet.
func NewLocalID() string {
	return localPrefix + uuid.NewString()
}

// IsLocalID reports whether id was produced by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localPrefix)
}

func (e Event) String() string {
	date := "No date"
	if !e.Timestamp.IsZero() {
		date = e.Timestamp.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("Event{id=%q, date=%s, state=%s, visibility=%s}", e.ID, date, e.State, e.Visibility)
}
