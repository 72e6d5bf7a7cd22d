package commands

import (
	"fmt"

	"github.com/fatih/color"
	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/commands/options"
	"tableflip.dev/moodlog/pkg/printers"
)

func printFollowing(following []string) error {
	if oo.JSON {
		return oo.PrintJSON(map[string]any{"following": following})
	}
	pp := &printers.PrettyPrint{}
	pp.Title("following")
	for _, f := range following {
		_, _ = fmt.Fprintf(color.Output, "  %s\n", f)
	}
	return nil
}

func addFollow(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "follow <user>",
		Short: "Ask to follow someone's public moods.",
		Long: base.Wrap80("Sends a follow request. The feed only shows their moods after they run " +
			"`moodlog accept` with the request id."),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			req, err := s.profile.RequestFollow(cmd.Context(), args[0])
			if err != nil {
				return oo.HandleError(err)
			}
			if oo.JSON {
				return oo.PrintJSON(map[string]any{"request": req})
			}
			(&printers.PrettyPrint{}).Requests("Sent", false, req)
			return nil
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addUnfollow(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "unfollow <user>",
		Short: "Stop following someone.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			if err := s.profile.Unfollow(cmd.Context(), args[0]); err != nil {
				return oo.HandleError(err)
			}
			following, err := s.profile.Following(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			return printFollowing(following)
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addFollowing(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "following",
		Short: "List the people you follow.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			following, err := s.profile.Following(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			return printFollowing(following)
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addFollowers(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "followers",
		Short: "List the people who follow you.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			followers, err := s.profile.Followers(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			if oo.JSON {
				return oo.PrintJSON(map[string]any{"followers": followers})
			}
			(&printers.PrettyPrint{}).Title("followers")
			for _, f := range followers {
				_, _ = fmt.Fprintf(color.Output, "  %s\n", f)
			}
			return nil
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addRequests(topLevel *cobra.Command) {
	var sent bool
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List follow requests waiting for your answer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			list, title := s.profile.PendingRequests, "Follow requests"
			if sent {
				list, title = s.profile.SentRequests, "Sent"
			}
			reqs, err := list(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			if oo.JSON {
				return oo.PrintJSON(map[string]any{"requests": reqs})
			}
			(&printers.PrettyPrint{}).Requests(title, !sent, reqs...)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sent, "sent", false, "List the requests you sent instead.")
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

// addAnswer registers accept or decline.
func addAnswer(topLevel *cobra.Command, accept bool) {
	use, short := "decline <request-id>", "Decline a follow request."
	if accept {
		use, short = "accept <request-id>", "Let the sender of a follow request follow you."
	}
	cmd := &cobra.Command{
		Use:               use,
		Short:             short,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: requestIDCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.close(cmd.Context())

			answer := s.profile.Decline
			if accept {
				answer = s.profile.Accept
			}
			req, err := answer(cmd.Context(), args[0])
			if err != nil {
				return oo.HandleError(err)
			}
			if oo.JSON {
				return oo.PrintJSON(map[string]any{"request": req})
			}
			_, _ = fmt.Fprintf(color.Output, "%s %s\n", req.From, req.Status)
			return nil
		},
	}
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
