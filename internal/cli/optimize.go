package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"plantprofit/internal/config"
	"plantprofit/internal/farmmodel"
	"plantprofit/internal/service"
)

func newOptimizeCmd(a *app) *cobra.Command {
	var p farmmodel.Params
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Build the farm model and print the most profitable allocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("irrigated") {
				p.Irrigated = p.Acres
			}
			rt, err := build(cmd.Context(), a.cfg, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), config.Seconds(a.cfg.Server.QueryTimeoutSecs))
			defer cancel()
			entries, res, err := rt.svc.OptimizeFarm(ctx, p)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), entries, res)
			return nil
		},
	}
	cmd.Flags().Float64Var(&p.Acres, "acres", 100, "total plantable acres")
	cmd.Flags().Float64Var(&p.Irrigated, "irrigated", 0, "irrigated acres (default: all acres)")
	cmd.Flags().Float64Var(&p.Budget, "budget", 0, "operating budget in dollars (0 = unconstrained)")
	return cmd
}

func printPlan(w io.Writer, entries []farmmodel.Entry, res service.OptimizeResult) {
	acres := make(map[string]float64, len(res.Allocation))
	for _, al := range res.Allocation {
		acres[al.Key] = al.Acres
	}

	header := color.New(color.Bold)
	planted := color.New(color.FgGreen)
	loss := color.New(color.FgRed)

	header.Fprintf(w, "%-14s %-10s %10s %14s %6s %8s\n", "CROP", "TYPE", "YIELD/AC", "PROFIT/AC", "RISK", "ACRES")
	for _, e := range entries {
		line := fmt.Sprintf("%-14s %-10s %10.1f %14s %6.0f %8.0f\n",
			e.Label, e.Type, e.EstimatedYield, e.ProfitPerAcreFormatted, e.RiskScore, acres[e.Key])
		switch {
		case acres[e.Key] > 0:
			planted.Fprint(w, line)
		case !e.Profitable:
			loss.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}

	fmt.Fprintln(w)
	header.Fprintf(w, "Expected profit: %s", farmmodel.Dollars(res.TotalProfit))
	if !res.Optimal {
		color.New(color.FgYellow).Fprint(w, " (search limit reached, best plan found)")
	}
	fmt.Fprintln(w)
	if res.Explanation != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, res.Explanation)
	}
}
