package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jarvis/config"
	"jarvis/internal/tui"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: "Talk to Jarvis through its webhook",
	Long: `Jarvis sends a free-text query to a remote webhook, shows the reply
as a transcript and plays it back when the webhook answers with audio.

Without a subcommand an interactive screen opens with the default query.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, configPath, modeInteractive)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(
		tui.New(ctx, a.orch, a.cfg.UI.DefaultQuery),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
