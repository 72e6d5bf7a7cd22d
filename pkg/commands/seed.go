package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/commands/options"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/printers"
	"tableflip.dev/moodlog/pkg/seed"
)

func addSeed(topLevel *cobra.Command) {
	mo := &options.MonthOptions{}
	var (
		seedValue int64
		months    int
		author    string
		fixture   string
		dir       string
		demo      bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the store with generated or fixture moods.",
		Example: `
moodlog seed --month 2025-1 --months 3
moodlog seed --demo
moodlog seed --fixture ./alice.yaml
moodlog seed --dir ./fixtures
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := 0
			for _, set := range []bool{fixture != "", dir != "", demo} {
				if set {
					sources++
				}
			}
			if sources > 1 {
				return oo.HandleError(errors.New("--fixture, --dir and --demo are exclusive"))
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())
			store := s.handle.Store

			var fixtures []*seed.Fixture
			switch {
			case fixture != "":
				f, err := seed.LoadFixture(fixture)
				if err != nil {
					return oo.HandleError(err)
				}
				fixtures = append(fixtures, f)
			case dir != "":
				if fixtures, err = seed.LoadFixtureDir(dir); err != nil {
					return oo.HandleError(err)
				}
			case demo:
				f, err := seed.Demo()
				if err != nil {
					return oo.HandleError(err)
				}
				fixtures = append(fixtures, f)
			}

			total := 0
			if sources == 0 {
				if months < 1 {
					return oo.HandleError(fmt.Errorf("--months must be at least 1"))
				}
				if author == "" {
					author = s.cfg.Subject()
				}
				year, month, err := mo.GetMonth(time.Now())
				if err != nil {
					return oo.HandleError(err)
				}
				gen := seed.NewGenerator(seedValue, time.Local)
				var events []event.Event
				for i := 0; i < months; i++ {
					events = append(events, gen.Month(author, year, month)...)
					year, month = printers.NextMonth(year, month)
				}
				if total, err = seed.Apply(cmd.Context(), store, author, nil, events); err != nil {
					return oo.HandleError(err)
				}
			}
			for _, f := range fixtures {
				events, err := f.ToEvents(mood.Default)
				if err != nil {
					return oo.HandleError(err)
				}
				n, err := seed.Apply(cmd.Context(), store, f.Author, f.Follows, events)
				total += n
				if err != nil {
					return oo.HandleError(err)
				}
			}

			if oo.JSON {
				return oo.PrintJSON(map[string]int{"written": total})
			}
			_, _ = fmt.Fprintf(color.Output, "wrote %d moods\n", total)
			return nil
		},
	}
	options.AddMonthArgs(cmd, mo)
	options.AddOutputArg(cmd, oo)
	cmd.Flags().Int64Var(&seedValue, "seed", time.Now().UnixNano(), "Random seed; the same seed generates the same moods.")
	cmd.Flags().IntVar(&months, "months", 1, "Number of months to generate, starting at --month.")
	cmd.Flags().StringVar(&author, "author", "", "Author of generated moods. Defaults to the configured subject.")
	cmd.Flags().StringVarP(&fixture, "fixture", "f", "", "Load a YAML fixture file.")
	cmd.Flags().StringVar(&dir, "dir", "", "Load every YAML fixture in a directory.")
	cmd.Flags().BoolVar(&demo, "demo", false, "Load the built-in demo fixture.")

	topLevel.AddCommand(cmd)
}
