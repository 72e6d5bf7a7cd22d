package timeutil

import (
	"testing"
	"time"
)

func TestParseAgeDefault(t *testing.T) {
	dur, label, err := ParseAge("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dur != 7*24*time.Hour || label != "1w" {
		t.Fatalf("expected one week, got %v (%s)", dur, label)
	}
}

func TestParseAgeComposite(t *testing.T) {
	dur, label, err := ParseAge("1w2d6h30m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (7*24+2*24+6)*time.Hour + 30*time.Minute
	if dur != want {
		t.Fatalf("expected %v, got %v", want, dur)
	}
	if label != "1w2d6h30m" {
		t.Fatalf("unexpected label: %s", label)
	}
}

func TestParseAgeNormalises(t *testing.T) {
	_, label, err := ParseAge("10 days")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "1w3d" {
		t.Fatalf("unexpected label: %s", label)
	}
}

func TestParseAgeInvalid(t *testing.T) {
	for _, in := range []string{"noop", "3 fortnights", "0d"} {
		if _, _, err := ParseAge(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestCutoff(t *testing.T) {
	now := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	got, label, err := Cutoff(now, "3d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(now.AddDate(0, 0, -3)) || label != "3d" {
		t.Fatalf("unexpected cutoff %v (%s)", got, label)
	}
}

func TestParseAgeSpacedPairs(t *testing.T) {
	dur, label, err := ParseAge(" 2 Weeks 36 hrs ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dur != 14*24*time.Hour+36*time.Hour || label != "2w1d12h" {
		t.Fatalf("unexpected age %v (%s)", dur, label)
	}
}

func TestParseAgeMissingPieces(t *testing.T) {
	for _, in := range []string{"12", "d", "3d-", "5 days later"} {
		if _, _, err := ParseAge(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFormatAge(t *testing.T) {
	cases := map[time.Duration]string{
		0:                            "0s",
		-time.Hour:                   "0s",
		500 * time.Millisecond:       "0s",
		90 * time.Second:             "1m30s",
		8*24*time.Hour + time.Minute: "1w1d1m",
	}
	for in, want := range cases {
		if got := FormatAge(in); got != want {
			t.Fatalf("FormatAge(%v) = %q, want %q", in, got, want)
		}
	}
}
