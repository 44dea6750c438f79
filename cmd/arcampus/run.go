package main

import (
	"context"
	"errors"

	"github.com/arcampus/arcampus/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var altScreen bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive AR session in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := tui.NewSink()
			a, err := newApp(appOptions{
				ConfigDir: configDir,
				UI:        s,
				Renderer:  s,
				Monitor:   true,
			})
			if err != nil {
				return err
			}

			opts := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			}
			if altScreen {
				opts = append(opts, tea.WithAltScreen())
			}
			p := tea.NewProgram(tui.New(a.controller, a.runtime, a.history, nil), opts...)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go s.Run(ctx, p.Send)

			if err := a.begin(); err != nil {
				return errors.Join(err, a.shutdown())
			}

			_, runErr := p.Run()
			cancel()
			return errors.Join(runErr, a.shutdown())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&altScreen, "alt-screen", true, "use the terminal's alternate screen")

	return cmd
}
