package main

import (
	"github.com/spf13/cobra"

	"jarvis/internal/infra/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose Jarvis over HTTP and WebSocket",
	Long: `Starts an HTTP server that triggers queries and streams state:

  POST /query    {"query": "..."} or a raw text body
  GET  /state    current state
  GET  /history  recent exchanges (?n=20)
  GET  /ws       WebSocket stream of state snapshots
  GET  /health   liveness`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, configPath, modeServer)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(a.orch, server.Options{
		Addr:           addr,
		AuthToken:      a.cfg.Server.AuthToken,
		RateLimit:      a.cfg.Server.RateLimit,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	}, a.logger)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down")
	return srv.Stop()
}
