package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"jarvis/internal/domain"
)

var (
	askJSON   bool
	askNoWait bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query...]",
	Short: "Send one query and print the reply",
	Long: `Sends the query exactly as given, or the configured default query when
no argument is given at all, prints the transcript and waits for playback
to finish.

Example:
  jarvis ask "Quelle heure est-il ?"`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the final state as JSON")
	askCmd.Flags().BoolVar(&askNoWait, "no-wait", false, "return as soon as playback starts")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, configPath, modeCommand)
	if err != nil {
		return err
	}
	defer a.Close()

	query := askQuery(args, a.cfg.UI.DefaultQuery)

	states, unsubscribe := a.orch.Subscribe()
	defer unsubscribe()

	state, err := a.orch.Ask(ctx, query)
	if err != nil {
		return err
	}

	if !askNoWait {
		state = waitIdle(ctx, states, state)
	}
	return printState(cmd.OutOrStdout(), cmd.ErrOrStderr(), state, askJSON)
}

// askQuery falls back to def only when no argument was given; an explicit
// empty argument is sent as is.
func askQuery(args []string, def string) string {
	if len(args) == 0 {
		return def
	}
	return strings.Join(args, " ")
}

// waitIdle blocks until the request that produced last is back to idle.
func waitIdle(ctx context.Context, states <-chan domain.State, last domain.State) domain.State {
	for last.Playback != domain.PlaybackIdle {
		select {
		case <-ctx.Done():
			return last
		case s, ok := <-states:
			if !ok {
				return last
			}
			if s.RequestID == last.RequestID {
				last = s
			}
		}
	}
	return last
}

func printState(stdout, stderr io.Writer, state domain.State, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	if state.Error != "" {
		fmt.Fprintln(stderr, state.Error)
	}
	_, err := fmt.Fprintln(stdout, state.Transcript)
	return err
}
