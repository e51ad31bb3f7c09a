package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ivanoskov/formbot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot with long polling",
	Long: `Runs the bot with long polling. The HTTP server on HTTP_ADDR only serves
/health and /metrics in this mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), false)
	},
}

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Run the bot behind a Telegram webhook",
	Long: `Serves Telegram updates on WEBHOOK_PATH, plus /health and /metrics, on
HTTP_ADDR. Register the public URL with Telegram's setWebhook beforehand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), true)
	},
}

func run(parent context.Context, webhook bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	b, store, err := newBot(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := server.NewServer(store, logger)
	g, ctx := errgroup.WithContext(ctx)

	if webhook {
		srv.SetWebhook(cfg.WebhookPath, cfg.WebhookSecret, b)
	} else {
		g.Go(func() error { return b.Start(ctx) })
	}
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.HTTPAddr) })

	err = g.Wait()
	logger.Info("bot stopped")
	return err
}
