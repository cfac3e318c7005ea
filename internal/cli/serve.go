package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plantprofit/internal/logging"
	"plantprofit/internal/metrics"
	"plantprofit/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `The 'serve' command starts the HTTP API. With an in-memory store the catalog
is ingested at startup; with an external store it is ingested when
server.ingest_on_start is set and adopted as-is otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New("plantprofit")
			rt, err := build(ctx, a.cfg, m)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.prepare(ctx, a.cfg.Server.IngestOnStart, a.cfg.Server.IngestTimeoutSecs); err != nil {
				logging.Warnf("serve", "startup ingest failed, AI routes degraded until POST /ingest succeeds: %v", err)
			}
			logging.Infof("serve", "listening on %s", a.cfg.Server.Addr)
			return server.New(a.cfg.Server, rt.svc, m).Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address, e.g. :3001")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
