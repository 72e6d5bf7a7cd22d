package commands

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/runner/api"
	moodmcp "tableflip.dev/moodlog/pkg/runner/mcp"
)

func addServe(topLevel *cobra.Command) {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve your moods over a JSON HTTP API.",
		Example: `
moodlog serve
moodlog serve --addr 0.0.0.0:9000
`,
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

			if addr == "" {
				addr = s.cfg.HTTPAddr()
			}
			if !verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &api.Server{
				Service: moodmcp.NewService(s.profile, mood.Default),
				Logger:  s.log,
				OnListening: func(a net.Addr) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API listening on %s/api/v1\n", listenURL("http", "", a))
				},
			}
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address. Defaults to http.addr from the config.")

	topLevel.AddCommand(cmd)
}
