package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"plantprofit/internal/config"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Embed the crop catalog into the configured vector store",
		Long: `The 'ingest' command embeds every catalog record and replaces the contents
of the configured vector store. Run it once to populate an external store
that 'serve' later adopts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(cmd.Context(), a.cfg, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), config.Seconds(a.cfg.Server.IngestTimeoutSecs))
			defer cancel()
			stats, err := rt.svc.Ingest(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color.New(color.FgGreen, color.Bold).Fprintf(out, "Ingested %d documents", stats.Count)
			color.New(color.FgHiBlack).Fprintf(out, " (backend: %s)\n", stats.Backend)
			return nil
		},
	}
}
