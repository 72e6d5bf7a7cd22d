package options

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestGetOn(t *testing.T) {
	now := time.Date(2025, 1, 3, 9, 0, 0, 0, time.Local)
	tests := map[string]struct {
		in   string
		want time.Time
		none bool
	}{
		"blank":      {in: "", none: true},
		"date":       {in: "2025-2-28", want: time.Date(2025, 2, 28, 12, 0, 0, 0, time.Local)},
		"date time":  {in: "2025-2-28 14:30", want: time.Date(2025, 2, 28, 14, 30, 0, 0, time.Local)},
		"short":      {in: "1/2", want: time.Date(2025, 1, 2, 12, 0, 0, 0, time.Local)},
		"short past": {in: "12/5", want: time.Date(2024, 12, 5, 12, 0, 0, 0, time.Local)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			o := &OnOptions{OnString: tc.in}
			got, err := o.GetOn(now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.none {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if got == nil || !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
	if _, err := (&OnOptions{OnString: "yesterday"}).GetOn(now); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetMonth(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	y, m, err := (&MonthOptions{}).GetMonth(now)
	if err != nil || y != 2025 || m != time.March {
		t.Fatalf("unexpected default %d %v (%v)", y, m, err)
	}
	y, m, err = (&MonthOptions{Month: "2024-2"}).GetMonth(now)
	if err != nil || y != 2024 || m != time.February {
		t.Fatalf("unexpected month %d %v (%v)", y, m, err)
	}
	if _, _, err := (&MonthOptions{Month: "Feb"}).GetMonth(now); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMoodOptions(t *testing.T) {
	cmd := &cobra.Command{}
	o := &MoodOptions{}
	AddMoodArgs(cmd, o)
	if err := cmd.Flags().Parse([]string{"--lat", "53.5", "--private"}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Location(cmd); err == nil {
		t.Fatal("expected half location error")
	}
	if v, err := o.Visibility(); err != nil || v != "Private" {
		t.Fatalf("unexpected visibility %q (%v)", v, err)
	}
	if err := cmd.Flags().Parse([]string{"--lng", "-113.5", "--place", "home"}); err != nil {
		t.Fatal(err)
	}
	loc, err := o.Location(cmd)
	if err != nil || loc == nil || loc.PlaceName != "home" || loc.Longitude != -113.5 {
		t.Fatalf("unexpected location %+v (%v)", loc, err)
	}
	o.Public = true
	if _, err := o.Visibility(); err == nil {
		t.Fatal("expected exclusive error")
	}
}
