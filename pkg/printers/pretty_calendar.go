package printers

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/moodlog/pkg/analytics"
	"tableflip.dev/moodlog/pkg/mood"
)

const width = len("11 12 13 14 15 16 17") // an example week

// Trend prints a month calendar with every day coloured by its mood. Days
// with events are bold; filled days are faint.
func (pp *PrettyPrint) Trend(year int, month time.Month, points []analytics.TrendPoint) {
	out := pp.out()
	tf := color.New(color.FgWhite, color.Italic)

	m := fmt.Sprintf("%s %d", month, year)
	mid := (width - len(m)) / 2
	if mid < 0 {
		mid = 0
	}
	_, _ = tf.Fprintf(out, "%s%s\n", strings.Repeat(" ", mid), m)
	_, _ = fmt.Fprintln(out, "Su Mo Tu We Th Fr Sa")

	d := StartDay(year, month)
	// Pad out the start of the month.
	_, _ = fmt.Fprint(out, strings.Repeat("   ", int(d)))

	for _, p := range points {
		attrs := []color.Attribute{p.State.Glyph().Term}
		switch {
		case p.State == mood.None:
			attrs = []color.Attribute{color.Faint, color.FgWhite}
		case p.Recorded:
			attrs = append(attrs, color.Bold)
		default:
			attrs = append(attrs, color.Faint)
		}
		_, _ = color.New(attrs...).Fprintf(out, "%2d ", p.Day)

		d++
		if d > time.Saturday {
			d = time.Sunday
			_, _ = fmt.Fprint(out, "\n")
		}
	}
	_, _ = fmt.Fprint(out, "\n\n")
	pp.legend(points)
}

func (pp *PrettyPrint) legend(points []analytics.TrendPoint) {
	seen := map[mood.State]bool{}
	var parts []string
	for _, p := range points {
		if !p.Recorded || seen[p.State] {
			continue
		}
		seen[p.State] = true
		parts = append(parts, color.New(p.State.Glyph().Term).Sprint(p.State.Label()))
	}
	if len(parts) == 0 {
		return
	}
	_, _ = fmt.Fprintln(pp.out(), strings.Join(parts, "  "))
	pp.NewLine()
}

func NextMonth(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

func StartDay(year int, month time.Month) time.Weekday {
	return time.Date(year, month, 1, 1, 0, 0, 0, time.UTC).Weekday()
}
