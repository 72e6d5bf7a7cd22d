package printers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/moodlog/pkg/analytics"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/filter"
	"tableflip.dev/moodlog/pkg/history"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/remote"
)

type PrettyPrint struct {
	ShowID bool
	// Out defaults to color.Output.
	Out io.Writer
}

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(pp.out(), " event")
	default:
		_, _ = c.Fprintln(pp.out(), " events")
	}
}

func (pp *PrettyPrint) none() {
	f := color.New(color.Faint, color.Italic)
	_, _ = f.Fprint(pp.out(), " none\n\n")
}

// Events prints one row per event, newest first as given.
func (pp *PrettyPrint) Events(events ...event.Event) {
	if len(events) == 0 {
		pp.none()
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	for i, e := range events {
		row := []interface{}{}
		if pp.ShowID {
			row = append(row, color.New(color.FgHiYellow, color.Faint).Sprint(e.ID))
		}
		// Later events of the same day only show the time.
		when := e.Timestamp.Local().Format("2006-01-02 15:04")
		if i > 0 && e.Timestamp.SameDay(events[i-1].Timestamp.Time, time.Local) {
			when = "           " + e.Timestamp.Local().Format("15:04")
		}
		row = append(row,
			when,
			color.New(e.State.Glyph().Term).Sprint(e.State.Label()),
			e.AuthorID,
			e.Trigger,
			e.SocialSituation,
			place(e),
		)
		if !e.IsPublic() {
			row = append(row, color.New(color.Faint).Sprint("private"))
		}
		tbl.AddRow(row...)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	_, _ = fmt.Fprintln(pp.out(), "")
}

func place(e event.Event) string {
	if !e.HasLocation() {
		return ""
	}
	if e.Location.PlaceName != "" {
		return "@ " + e.Location.PlaceName
	}
	return fmt.Sprintf("@ %.4f,%.4f", e.Location.Latitude, e.Location.Longitude)
}

// Nearby prints located events with their distance.
func (pp *PrettyPrint) Nearby(placed ...filter.Placed) {
	if len(placed) == 0 {
		pp.none()
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	for _, p := range placed {
		tbl.AddRow(
			fmt.Sprintf("%.2f km", p.DistanceKm),
			p.Event.Timestamp.Local().Format("2006-01-02 15:04"),
			p.Event.State.Label(),
			p.Event.AuthorID,
			place(p.Event),
		)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

// Stats prints a monthly summary.
func (pp *PrettyPrint) Stats(s analytics.Stats) {
	pp.TitleWithCount(fmt.Sprintf("%s %d", s.Month, s.Year), s.Total)
	if s.Total == 0 {
		pp.none()
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(mood.Bold("Top mood"), s.TopMood.Label())
	tbl.AddRow(mood.Bold("Most active day"), s.MostActiveDay)
	tbl.AddRow(mood.Bold("Active days"), fmt.Sprintf("%d of %d", s.ActiveDays, s.DaysInMonth))
	tbl.AddRow(mood.Bold("Events per day"), fmt.Sprintf("%.2f", s.AvgEventsPerDay))
	tbl.AddRow(mood.Bold("Consistency"), fmt.Sprintf("%.1f%%", s.MoodConsistency))
	tbl.AddRow(mood.Bold("Stability"), fmt.Sprintf("%.1f%%", s.Stability))
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()

	pp.Title("Moods")
	moods := uitable.New()
	moods.Separator = "  "
	for _, m := range s.MoodBreakdown {
		moods.AddRow(m.State.Label(), m.N, bar(m.N, s.Total))
	}
	_, _ = fmt.Fprintln(pp.out(), moods)
	pp.NewLine()

	pp.breakdown("Triggers", s.TriggerBreakdown)
	pp.breakdown("Social situations", s.SocialBreakdown)
}

func (pp *PrettyPrint) breakdown(title string, counts []analytics.Count) {
	if len(counts) == 0 {
		return
	}
	pp.Title(title)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	for _, c := range counts {
		tbl.AddRow(c.Key, c.N)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

func bar(n, total int) string {
	if total == 0 {
		return ""
	}
	return strings.Repeat("█", n*20/total)
}

// Pending prints the queued operations of a personal history.
func (pp *PrettyPrint) Pending(ops ...history.Operation) {
	pp.TitleWithCount("Pending", len(ops))
	if len(ops) == 0 {
		pp.none()
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(mood.Bold("#"), mood.Bold("Op"), mood.Bold("Event"), mood.Bold("State"), mood.Bold("Attempts"), mood.Bold("Last error"))
	for _, op := range ops {
		last := ""
		if op.LastErr != nil {
			last = op.LastErr.Error()
		}
		tbl.AddRow(op.Seq, op.Kind, op.EventID, op.State, op.Attempts, last)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

// Requests prints follow requests under title. The other party is the sender
// for incoming requests and the addressee for outgoing ones.
func (pp *PrettyPrint) Requests(title string, incoming bool, reqs ...remote.FollowRequest) {
	pp.Title(fmt.Sprintf("%s (%d)", title, len(reqs)))
	if len(reqs) == 0 {
		pp.none()
		return
	}
	who := "To"
	if incoming {
		who = "From"
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(mood.Bold("Request"), mood.Bold(who), mood.Bold("Sent"))
	for _, r := range reqs {
		other := r.To
		if incoming {
			other = r.From
		}
		tbl.AddRow(color.New(color.FgHiYellow, color.Faint).Sprint(r.ID), other, r.SentAt.Local().Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}
