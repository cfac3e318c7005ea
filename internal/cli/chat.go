package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"plantprofit/internal/tui"
)

func newChatCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive advisor session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(cmd.Context(), a.cfg, nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.prepare(cmd.Context(), a.cfg.Server.IngestOnStart, a.cfg.Server.IngestTimeoutSecs); err != nil {
				return err
			}
			overview, err := rt.svc.Overview(a.cfg.Generator.MaxSentences)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(tui.New(rt.svc, overview, topK), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "number of catalog records to retrieve per question")
	return cmd
}
