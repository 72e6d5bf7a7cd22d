package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/moodlog/pkg/commands/options"
)

var (
	oo = &options.OutputOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "moodlog",
		Short: base.Wrap80("Track moods, share them with the people who follow you, and see how your month went."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr.")

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addAdd(topLevel)
	addEdit(topLevel)
	addDelete(topLevel)
	addList(topLevel)
	addNearby(topLevel)
	addStats(topLevel)
	addTrend(topLevel)
	addSync(topLevel)
	addPending(topLevel)
	addFollow(topLevel)
	addUnfollow(topLevel)
	addFollowing(topLevel)
	addFollowers(topLevel)
	addRequests(topLevel)
	addAnswer(topLevel, true)
	addAnswer(topLevel, false)
	addConnectivity(topLevel)
	addSeed(topLevel)
	addWatch(topLevel)
	addMCP(topLevel)
	addServe(topLevel)
	addVersion(topLevel)
	addUpgrade(topLevel)
	addCompletions(topLevel)
}
