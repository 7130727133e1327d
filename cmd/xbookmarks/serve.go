package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xbookmarks/internal/api"
	"xbookmarks/pkg/export"
	"xbookmarks/pkg/logger"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control API server",
	Long: `Attach to the browser and expose a local HTTP control surface.

Endpoints:
  POST /export   trigger an export (responds immediately, work runs in background)
  GET  /status   session and export state
  GET  /events   progress stream (server-sent events)

The server keeps watching browser traffic the whole time, so credentials
captured after startup are picked up without a restart.`,
	Example: `  # Serve on the default address
  xbookmarks serve

  # Serve on a custom port
  xbookmarks serve --listen 127.0.0.1:8766`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "address for the control API")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"listen": listenAddr,
	})
	if err != nil {
		return err
	}

	log := logger.GetLogger()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.browser.Connect(ctx); err != nil {
		return err
	}
	defer p.browser.Close()

	// A trigger may arrive before capture completes; the gate gives the
	// interceptor its full attempt budget before the export runs.
	controlAPI := api.NewServer(p.store, p.broker, export.NewGated(p.gate, p.exporter), log)
	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: controlAPI.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoWithFields("control API listening", map[string]interface{}{
			"addr": cfg.Server.ListenAddr,
		})
		fmt.Printf("Control API listening on %s\n", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
