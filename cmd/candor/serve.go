package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/candorhq/candor/internal/config"
	"github.com/candorhq/candor/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  "Start the HTTP server, rebuild pending send timers, and run the daily score recompute.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	addr := c.cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(addr, server.Deps{
		Store:          c.db,
		Engine:         c.engine,
		Gate:           c.gate,
		Aggregator:     c.aggregator,
		Matcher:        c.matcher,
		Voice:          c.voice,
		JWT:            server.NewJWTService(jwtConfig),
		Logger:         c.logger,
		NudgeAfterDays: c.cfg.NudgeAfterDays,
	})

	// queued sends survive restarts through the database, not the timers
	if err := c.gate.Rescan(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		return runDailyRecompute(ctx, c)
	})

	return g.Wait()
}

// runDailyRecompute refreshes every company's score snapshot once a day.
func runDailyRecompute(ctx context.Context, c *components) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := time.Now().UTC()
			ids, err := c.db.ListCompanyIDs(ctx)
			if err != nil {
				c.logger.Error("daily recompute: failed to list companies", zap.Error(err))
				continue
			}
			for _, id := range ids {
				if _, err := c.aggregator.Recompute(ctx, id, now); err != nil {
					c.logger.Error("daily recompute failed",
						zap.String("company_id", id.String()),
						zap.Error(err))
				}
			}
		}
	}
}
