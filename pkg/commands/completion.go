package commands

import (
	"os"

	"github.com/spf13/cobra"
)

func addCompletions(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generates bash completion scripts",
		Long: `To load completion run

. <(moodlog completion)

To configure your bash shell to load completions for each session add to your bashrc

# ~/.bashrc or ~/.profile
. <(moodlog completion)
`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = topLevel.GenBashCompletion(os.Stdout)
		},
	}

	topLevel.AddCommand(cmd)
}

// eventIDCompletions offers the ids of the subject's own events.
func eventIDCompletions(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	s, err := openSession(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer s.close(cmd.Context())

	events := s.profile.History.Events()
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID+"\t"+e.State.String()+" "+e.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// requestIDCompletions offers the ids of follow requests awaiting an answer.
func requestIDCompletions(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	s, err := openSession(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer s.close(cmd.Context())

	reqs, err := s.profile.PendingRequests(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID+"\tfrom "+r.From)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
