package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/commands/options"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/filter"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/printers"
	"tableflip.dev/moodlog/pkg/profile"
	"tableflip.dev/moodlog/pkg/timeutil"
)

func criteria(fo *options.FilterOptions) (filter.Criteria, error) {
	var c filter.Criteria
	var err error
	if c.Scope, err = filter.ParseScope(fo.Scope); err != nil {
		return c, err
	}
	if c.Window, err = filter.ParseWindow(fo.Window); err != nil {
		return c, err
	}
	if strings.TrimSpace(fo.Mood) != "" {
		if c.State, err = mood.Parse(fo.Mood); err != nil {
			return c, err
		}
	}
	c.Trigger = strings.TrimSpace(fo.Trigger)
	return c, nil
}

// since keeps the events newer than the --since age.
func since(events []event.Event, age string, now time.Time) ([]event.Event, string, error) {
	if strings.TrimSpace(age) == "" {
		return events, "", nil
	}
	cutoff, label, err := timeutil.Cutoff(now, age)
	if err != nil {
		return nil, "", err
	}
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out, label, nil
}

func addList(topLevel *cobra.Command) {
	fo := &options.FilterOptions{}
	var perAuthor int
	var showID bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List moods, newest first.",
		Example: `
moodlog list
moodlog list --window week --mood happiness
moodlog list --scope followed --per-author 3
moodlog list --trigger exam --since 2w
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := criteria(fo)
			if err != nil {
				return oo.HandleError(err)
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			var view profile.View
			if perAuthor > 0 {
				view = s.profile.FeedView(c, perAuthor)
			} else {
				view = s.profile.Events(c)
			}
			if view.Err != nil {
				s.log.Warn("moodlog: listing may be stale", "err", view.Err)
			}
			events, label, err := since(view.Events, fo.Since, time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			if fo.Limit > 0 && len(events) > fo.Limit {
				events = events[:fo.Limit]
			}
			if oo.JSON {
				return oo.PrintJSON(events)
			}

			title := fmt.Sprintf("%s moods", view.Scope)
			if label != "" {
				title += " in the last " + label
			}
			pp := &printers.PrettyPrint{ShowID: showID}
			pp.TitleWithCount(title, len(events))
			pp.Events(events...)
			return nil
		},
	}
	options.AddFilterArgs(cmd, fo)
	options.AddOutputArg(cmd, oo)
	cmd.Flags().IntVar(&perAuthor, "per-author", 0, "Only the latest N moods of each person you follow.")
	cmd.Flags().BoolVar(&showID, "ids", false, "Show event ids.")

	topLevel.AddCommand(cmd)
}

func addNearby(topLevel *cobra.Command) {
	no := &options.NearOptions{}

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List moods recorded near a place.",
		Example: `
moodlog nearby --lat 53.5232 --lng -113.5263 --radius 2
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return oo.HandleError(fmt.Errorf("--lat and --lng are required"))
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			placed := s.profile.Nearby(filter.Criteria{}, filter.Point{Latitude: no.Latitude, Longitude: no.Longitude}, no.RadiusKm)
			if oo.JSON {
				return oo.PrintJSON(placed)
			}
			pp := &printers.PrettyPrint{}
			pp.TitleWithCount(fmt.Sprintf("within %.1f km", no.RadiusKm), len(placed))
			pp.Nearby(placed...)
			return nil
		},
	}
	options.AddNearArgs(cmd, no)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
