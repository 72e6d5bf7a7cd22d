package commands

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/history"
	"tableflip.dev/moodlog/pkg/remote"
	"tableflip.dev/moodlog/pkg/syncer"
)

func addWatch(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow changes to your history and feed as they happen.",
		Long: `Keep the profile open, reload it whenever the store changes and print
each change. Queued changes are replayed on the sync schedule and when the
store comes back online.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			sy, err := s.startSyncer(ctx)
			if err != nil {
				return err
			}
			defer sy.Stop()

			var remoteChanges <-chan remote.Change
			if w, ok := s.handle.Store.(remote.Watcher); ok {
				if remoteChanges, err = w.Watch(ctx); err != nil {
					return err
				}
			} else {
				s.log.Warn("moodlog: store cannot push changes; only local edits are shown", "backend", s.cfg.Backend())
			}

			_, _ = fmt.Fprintf(color.Output, "watching moods for %s, ctrl-c to stop\n", s.profile.Subject)
			for {
				select {
				case <-ctx.Done():
					return nil
				case c, ok := <-remoteChanges:
					if !ok {
						remoteChanges = nil
						continue
					}
					if err := reloadFor(cmd, s, c); err != nil && !errors.Is(err, history.ErrStaleLoad) {
						s.log.Warn("moodlog: reload failed", "err", err)
					}
				case c := <-s.profile.History.Changes():
					printChange("history", c)
				case c := <-s.profile.Feed.Changes():
					printChange("feed", c)
				case res := <-sy.Results():
					printSync(res)
				}
			}
		},
	}

	topLevel.AddCommand(cmd)
}

func reloadFor(cmd *cobra.Command, s *session, c remote.Change) error {
	switch {
	case c.Type == remote.ChangeInvalidated:
		return s.profile.RefreshAll(cmd.Context())
	case c.Author == s.profile.Subject:
		return s.profile.History.Refresh(cmd.Context())
	default:
		return s.profile.Feed.Refresh(cmd.Context())
	}
}

func printChange(source string, c history.Change) {
	faint := color.New(color.Faint)
	e := c.Event
	switch c.Type {
	case history.ChangeReset:
		_, _ = color.New(color.FgRed).Fprintf(color.Output, "%s: reload failed, cache cleared\n", source)
	case history.ChangeDelete:
		_, _ = faint.Fprintf(color.Output, "%s: deleted %s %s\n", source, e.State.Label(), e.ID)
	default:
		_, _ = fmt.Fprintf(color.Output, "%s: %s %s %s %s\n", source, c.Type,
			e.Timestamp.Local().Format("2006-01-02 15:04"), e.State.Label(), e.AuthorID)
	}
}

func printSync(res syncer.Result) {
	if res.Err != nil {
		_, _ = color.New(color.FgYellow).Fprintf(color.Output, "sync (%s): %d applied, %d still queued: %v\n",
			res.Trigger, res.Report.Applied, res.Report.Remaining, res.Err)
		return
	}
	_, _ = color.New(color.FgGreen).Fprintf(color.Output, "sync (%s): %d applied\n", res.Trigger, res.Report.Applied)
}
