package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/commands/options"
	"tableflip.dev/moodlog/pkg/printers"
)

func addStats(topLevel *cobra.Command) {
	mo := &options.MonthOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise your moods for a month.",
		Example: `
moodlog stats
moodlog stats --month 2025-2
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := mo.GetMonth(time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			stats, _ := s.profile.Stats(year, month)
			if oo.JSON {
				return oo.PrintJSON(stats)
			}
			pp := &printers.PrettyPrint{}
			pp.Stats(stats)
			return nil
		},
	}
	options.AddMonthArgs(cmd, mo)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addTrend(topLevel *cobra.Command) {
	mo := &options.MonthOptions{}
	var months int

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show the dominant mood of each day as a calendar.",
		Example: `
moodlog trend
moodlog trend --month 2025-1 --months 3
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := mo.GetMonth(time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			if months < 1 {
				return oo.HandleError(fmt.Errorf("--months must be at least 1"))
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			pp := &printers.PrettyPrint{}
			var all []any
			for i := 0; i < months; i++ {
				points := s.profile.Trend(year, month)
				if oo.JSON {
					all = append(all, map[string]any{"year": year, "month": int(month), "days": points})
				} else {
					pp.Trend(year, month, points)
					pp.NewLine()
				}
				year, month = printers.NextMonth(year, month)
			}
			if oo.JSON {
				return oo.PrintJSON(all)
			}
			return nil
		},
	}
	options.AddMonthArgs(cmd, mo)
	options.AddOutputArg(cmd, oo)
	cmd.Flags().IntVar(&months, "months", 1, "Number of months to show, starting at --month.")

	topLevel.AddCommand(cmd)
}
