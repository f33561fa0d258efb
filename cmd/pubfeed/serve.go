// ABOUTME: Serve command publishing the output directory over HTTP
// ABOUTME: Optionally regenerates feeds on an interval while serving

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

	"github.com/harper/pubfeed/internal/aggregate"
	"github.com/harper/pubfeed/internal/config"
	"github.com/harper/pubfeed/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated feeds over HTTP",
	Long: `Serve the generated feeds and the OPML index from the output directory.

With --refresh the feeds are regenerated in the background on that interval.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		refresh, _ := cmd.Flags().GetDuration("refresh")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if refresh > 0 {
			if err := os.MkdirAll(cfg.Output.Dir, config.DefaultDirPerms); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			go regenerate(ctx, refresh)
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.NewServer(server.NewHandler(cfg, Version, logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("serving feeds", "addr", addr, "dir", cfg.Output.Dir)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func regenerate(ctx context.Context, every time.Duration) {
	agg := aggregate.New(cfg.NewClient(logger), aggregate.NewDirSink(cfg.Output.Dir), logger)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		report, err := agg.Run(ctx, cfg, false)
		switch {
		case err != nil:
			logger.Error("regeneration failed", "err", err)
		case report.TotalFailure():
			logger.Error("regeneration produced no feeds", "failed", report.Failures())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Duration("refresh", 0, "regenerate feeds on this interval (0 disables)")
}
