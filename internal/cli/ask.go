package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"plantprofit/internal/config"
)

func newAskCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the crop advisor a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(cmd.Context(), a.cfg, nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.prepare(cmd.Context(), a.cfg.Server.IngestOnStart, a.cfg.Server.IngestTimeoutSecs); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.Seconds(a.cfg.Server.QueryTimeoutSecs))
			defer cancel()
			res, err := rt.svc.Query(ctx, strings.Join(args, " "), topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Answer)
			fmt.Fprintln(out)
			dim := color.New(color.FgHiBlack)
			for _, c := range res.Context {
				dim.Fprintf(out, "  %-24s %.3f\n", c.ID, c.Score)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "number of catalog records to retrieve")
	return cmd
}
