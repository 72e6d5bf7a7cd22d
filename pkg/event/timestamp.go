package event

import (
	"encoding/json"
	"fmt"
	"time"
)

func ParseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

type Timestamp struct {
	time.Time
}

// At wraps t.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// SameDay reports whether t and then share a calendar date in loc. A nil loc
// means time.Local.
func (t Timestamp) SameDay(then time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ty, tm, td := t.In(loc).Date()
	y, m, d := then.In(loc).Date()
	return ty == y && tm == m && td == d
}

// SameMonth reports whether t and then share a calendar month in loc.
func (t Timestamp) SameMonth(then time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ty, tm, _ := t.In(loc).Date()
	y, m, _ := then.In(loc).Date()
	return ty == y && tm == m
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(fmt.Sprintf("%q", t.UTC().Format(time.RFC3339Nano))), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var timestamp string
	if err := json.Unmarshal(b, &timestamp); err != nil {
		return err
	}
	if timestamp == "" {
		t.Time = time.Time{}
		return nil
	}
	var err error
	t.Time, err = time.Parse(time.RFC3339Nano, timestamp)
	return err
}

func (t Timestamp) String() string {
	return t.UTC().Format(time.RFC3339)
}

func FormatTime(v time.Time) string {
	return v.UTC().Format(time.RFC3339Nano)
}
