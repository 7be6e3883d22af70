package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphwriter/pkg/api"
	"github.com/matzehuels/graphwriter/pkg/config"
	graphio "github.com/matzehuels/graphwriter/pkg/io"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [graph.json]",
		Short: "Serve a graph document over HTTP",
		Long: `Serve a graph document over HTTP.

Endpoints:
  GET /v1/{type}              list nodes of a type
  GET /v1/{type}/{id}         one node
  GET /v1/{type}/{id}/{key}   one property of a node
  GET /health                 liveness
  GET /metrics                Prometheus metrics

Server, writer and cache settings come from --config. The environment
variables PORT and GRAPHWRITER_REDIS_ADDR override the listen port and the
Redis cache address. The server stops gracefully on SIGINT or SIGTERM.`,
		Args: graphFileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			prog := newProgress(c.Logger)
			store, err := graphio.ImportJSON(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}
			prog.done(fmt.Sprintf("Imported %d nodes", store.Len()))

			srv, err := api.New(store, cfg, c.Logger)
			if err != nil {
				return err
			}
			printInfo(cmd.ErrOrStderr(), "Listening on %s (cache: %s)", cfg.Server.Addr, cfg.Cache.Backend)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: :8080)")
	return cmd
}
