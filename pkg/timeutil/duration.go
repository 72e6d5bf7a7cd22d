// Package timeutil handles the relative ages taken by list --since: "3d",
// "1w2d", "36 hours". An age is a run of count/unit pairs that are summed.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultAge is the window list uses without --since.
const DefaultAge = "1w"

const day = 24 * time.Hour

// ageUnits is ordered largest first; FormatAge relies on that.
var ageUnits = []struct {
	token   string
	size    time.Duration
	aliases []string
}{
	{"w", 7 * day, []string{"wk", "wks", "week", "weeks"}},
	{"d", day, []string{"day", "days"}},
	{"h", time.Hour, []string{"hr", "hrs", "hour", "hours"}},
	{"m", time.Minute, []string{"min", "mins", "minute", "minutes"}},
	{"s", time.Second, []string{"sec", "secs", "second", "seconds"}},
}

func unitSize(name string) (time.Duration, bool) {
	for _, u := range ageUnits {
		if name == u.token {
			return u.size, true
		}
		for _, a := range u.aliases {
			if name == a {
				return u.size, true
			}
		}
	}
	return 0, false
}

// ParseAge sums the pairs in input and also returns the age in its shortest
// spelling, so "10 days" comes back as "1w3d". Blank input is DefaultAge.
func ParseAge(input string) (time.Duration, string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		s = DefaultAge
	}

	var total time.Duration
	for s != "" {
		digits := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
		if digits == 0 {
			return 0, "", fmt.Errorf("timeutil: expected a count at %q", s)
		}
		if digits < 0 {
			return 0, "", fmt.Errorf("timeutil: %q has no unit", s)
		}
		n, err := strconv.ParseInt(s[:digits], 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("timeutil: bad count %q: %w", s[:digits], err)
		}
		s = strings.TrimLeft(s[digits:], " ")

		letters := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
		if letters < 0 {
			letters = len(s)
		}
		size, ok := unitSize(s[:letters])
		if !ok {
			return 0, "", fmt.Errorf("timeutil: unknown unit %q", s[:letters])
		}
		total += time.Duration(n) * size
		s = strings.TrimLeft(s[letters:], " ")
	}

	if total <= 0 {
		return 0, "", fmt.Errorf("timeutil: age must be positive")
	}
	return total, FormatAge(total), nil
}

// Cutoff returns now minus the age. Events at or before it are out of range.
func Cutoff(now time.Time, input string) (time.Time, string, error) {
	d, label, err := ParseAge(input)
	if err != nil {
		return time.Time{}, "", err
	}
	return now.Add(-d), label, nil
}

// FormatAge spells d with the single-letter units, dropping any below a
// second.
func FormatAge(d time.Duration) string {
	var b strings.Builder
	for _, u := range ageUnits {
		if d < u.size {
			continue
		}
		fmt.Fprintf(&b, "%d%s", d/u.size, u.token)
		d %= u.size
	}
	if b.Len() == 0 {
		return "0s"
	}
	return b.String()
}
