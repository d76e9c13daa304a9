package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jarvis/config"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent exchanges, newest first",
	Long: `Reads recent exchanges from the configured history store. The in-memory
store lives only as long as the process, so this is mostly useful with
history.redis_addr set.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of exchanges to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	logger, logFile, err := setupLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	store := newHistory(ctx, cfg.History, logger)
	defer store.Close()

	exchanges, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSOURCE\tQUERY\tTRANSCRIPT")
	for _, e := range exchanges {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.Source,
			oneLine(e.Query, 40),
			oneLine(e.Transcript, 60),
		)
	}
	return w.Flush()
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
