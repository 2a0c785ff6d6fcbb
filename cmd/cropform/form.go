package main

import (
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/cropform/internal/tui"
)

func (a *app) formCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "form <form>",
		Short: "Fill a form interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the terminal belongs to the UI; only log when a file is configured
			if a.cfg.Log.File == "" {
				a.logger = zap.NewNop()
			}
			form, c, err := a.buildChain(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p := tea.NewProgram(tui.New(ctx, c, form.DisplayTitle(), a.logger), tea.WithAltScreen(), tea.WithContext(ctx))
			final, err := p.Run()
			if err != nil {
				return fmt.Errorf("run form: %w", err)
			}
			m, ok := final.(tui.Model)
			if !ok {
				return nil
			}
			state, submitted := m.Submitted()
			if !submitted {
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
}
