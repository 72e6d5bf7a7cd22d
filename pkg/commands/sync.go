package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/commands/options"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/history"
	"tableflip.dev/moodlog/pkg/printers"
	"tableflip.dev/moodlog/pkg/remote/diskv"
)

func addSync(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reload your history and feed from the store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			if err := s.profile.RefreshAll(cmd.Context()); err != nil {
				return oo.HandleError(err)
			}
			res := map[string]any{
				"online":  s.profile.Online(),
				"history": s.profile.History.Len(),
				"feed":    s.profile.Feed.Len(),
			}
			if oo.JSON {
				return oo.PrintJSON(res)
			}
			_, _ = fmt.Fprintf(color.Output, "loaded %d of your moods and %d from people you follow\n",
				s.profile.History.Len(), s.profile.Feed.Len())
			return nil
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addPending(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List changes waiting for the store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			ops := s.profile.History.Pending()
			if oo.JSON {
				return oo.PrintJSON(pendingJSON(ops))
			}
			pp := &printers.PrettyPrint{}
			pp.TitleWithCount("pending", len(ops))
			pp.Pending(ops...)
			return nil
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addConnectivity(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:       "connectivity <online|offline>",
		Short:     "Switch the local store online or offline.",
		ValidArgs: []string{"online", "offline"},
		Args:      cobra.ExactValidArgs(1),
		Long: `Switch the local diskv store online or offline. While offline every
change is queued by running sessions and replayed once the store is back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			store, ok := s.handle.Store.(*diskv.Store)
			if !ok {
				return oo.HandleError(fmt.Errorf("connectivity can only be switched for the diskv backend, not %q", s.cfg.Backend()))
			}
			online := args[0] == "online"
			if err := store.SetOnline(online); err != nil {
				return oo.HandleError(err)
			}
			if oo.JSON {
				return oo.PrintJSON(map[string]bool{"online": online})
			}
			_, _ = fmt.Fprintf(color.Output, "store is %s\n", args[0])
			return nil
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func pendingJSON(ops []history.Operation) []map[string]any {
	out := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		m := map[string]any{
			"seq":      op.Seq,
			"kind":     op.Kind.String(),
			"eventId":  op.EventID,
			"state":    op.State.String(),
			"attempts": op.Attempts,
			"created":  event.FormatTime(op.CreatedAt),
		}
		if op.LastErr != nil {
			m["lastError"] = op.LastErr.Error()
		}
		out = append(out, m)
	}
	return out
}
