package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/commands/options"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/history"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/printers"
)

func moodNames() []string {
	all := mood.Default.All()
	names := make([]string, 0, len(all))
	for _, s := range all {
		names = append(names, strings.ToLower(string(s)))
	}
	return names
}

// reportMutation prints the saved event, warning when it is only queued.
func reportMutation(saved event.Event, err error) error {
	queued := errors.Is(err, history.ErrPending)
	if err != nil && !queued {
		return oo.HandleError(err)
	}
	if oo.JSON {
		return oo.PrintJSON(map[string]any{"event": saved, "queued": queued})
	}
	pp := &printers.PrettyPrint{ShowID: true}
	pp.Events(saved)
	if queued {
		_, _ = color.New(color.FgYellow).Fprintf(os.Stderr,
			"not confirmed by the store: %v\nqueued changes are dropped on exit; keep `moodlog serve` or `moodlog watch` running to replay them\n", err)
	}
	return nil
}

func addAdd(topLevel *cobra.Command) {
	mo := &options.MoodOptions{}
	on := &options.OnOptions{}

	cmd := &cobra.Command{
		Use:       "add <mood>",
		Short:     "Record a mood.",
		ValidArgs: moodNames(),
		Args:      cobra.ExactArgs(1),
		Example: `
moodlog add happiness --trigger "Great workout at the gym" --social Alone
moodlog add fear --on "2025-2-28 14:30" --private
moodlog add surprise --lat 53.5232 --lng -113.5263 --place "Cameron Library"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := mood.Parse(args[0])
			if err != nil {
				return oo.HandleError(err)
			}
			at, err := on.GetOn(time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			raw, err := mo.Visibility()
			if err != nil {
				return oo.HandleError(err)
			}
			vis, err := event.ParseVisibility(raw)
			if err != nil {
				return oo.HandleError(err)
			}
			loc, err := mo.Location(cmd)
			if err != nil {
				return oo.HandleError(err)
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			e := event.Event{
				State:           state,
				Trigger:         strings.TrimSpace(mo.Trigger),
				SocialSituation: strings.TrimSpace(mo.Social),
				Visibility:      vis,
				Location:        loc,
			}
			if at != nil {
				e.Timestamp = event.At(*at)
			}
			return reportMutation(s.profile.History.AddEvent(cmd.Context(), e))
		},
	}
	options.AddMoodArgs(cmd, mo)
	options.AddOnArgs(cmd, on)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addEdit(topLevel *cobra.Command) {
	mo := &options.MoodOptions{}
	on := &options.OnOptions{}
	var state string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change one of your moods. Flags that are not given keep their value.",
		Args:  cobra.ExactArgs(1),

		ValidArgsFunction: eventIDCompletions,
		Example: `
moodlog edit 3f2c... --mood sadness
moodlog edit 3f2c... --trigger "Missed the bus" --public
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			current, ok := s.profile.History.EventByID(args[0])
			if !ok {
				return oo.HandleError(fmt.Errorf("%w: %s", history.ErrNotFound, args[0]))
			}
			updated := current.Clone()
			if state != "" {
				if updated.State, err = mood.Parse(state); err != nil {
					return oo.HandleError(err)
				}
			}
			if cmd.Flags().Changed("trigger") {
				updated.Trigger = strings.TrimSpace(mo.Trigger)
			}
			if cmd.Flags().Changed("social") {
				updated.SocialSituation = strings.TrimSpace(mo.Social)
			}
			vis, err := mo.Visibility()
			if err != nil {
				return oo.HandleError(err)
			}
			if vis != "" {
				updated.Visibility = event.Visibility(vis)
			}
			loc, err := mo.Location(cmd)
			if err != nil {
				return oo.HandleError(err)
			}
			if loc != nil {
				updated.Location = loc
			}
			at, err := on.GetOn(time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			if at != nil {
				updated.Timestamp = event.At(*at)
			}
			return reportMutation(s.profile.History.EditEvent(cmd.Context(), args[0], updated))
		},
	}
	cmd.Flags().StringVar(&state, "mood", "", "New emotional state.")
	options.AddMoodArgs(cmd, mo)
	options.AddOnArgs(cmd, on)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addDelete(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one of your moods.",
		Args:    cobra.ExactArgs(1),

		ValidArgsFunction: eventIDCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			err = s.profile.History.DeleteEvent(cmd.Context(), args[0])
			queued := errors.Is(err, history.ErrPending)
			if err != nil && !queued {
				return oo.HandleError(err)
			}
			if oo.JSON {
				return oo.PrintJSON(map[string]any{"id": args[0], "deleted": true, "queued": queued})
			}
			if queued {
				_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "delete of %s is queued and dropped on exit: %v\n", args[0], err)
				return nil
			}
			_, _ = fmt.Fprintf(color.Output, "deleted %s\n", args[0])
			return nil
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
