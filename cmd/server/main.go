package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/auditfeed/internal/auth"
	"github.com/fr0stylo/auditfeed/internal/config"
	"github.com/fr0stylo/auditfeed/internal/ingest"
	"github.com/fr0stylo/auditfeed/internal/journal"
	"github.com/fr0stylo/auditfeed/internal/observability"
	"github.com/fr0stylo/auditfeed/internal/provider"
	"github.com/fr0stylo/auditfeed/internal/reconcile"
	"github.com/fr0stylo/auditfeed/internal/scheduler"
	"github.com/fr0stylo/auditfeed/internal/server"
	"github.com/fr0stylo/auditfeed/internal/server/routes"
)

func main() {
	log := slog.New(observability.WrapSlogHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.SetupOpenTelemetry(ctx, log, observability.OpenTelemetryConfig(cfg.Observability))
	if err != nil {
		slog.Error("Failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	deliveries, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		slog.Error("Failed to open delivery journal", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := deliveries.Close(); err != nil {
			slog.Error("Failed to close delivery journal", "error", err)
		}
	}()

	tokens := auth.NewCache(auth.ClientCredentialsIssuer{
		TokenURL:     cfg.OAuth.TokenURL,
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
	})

	feedClient := provider.NewClient(tokens, provider.Config{
		BaseURL:        cfg.Provider.BaseURL,
		Resource:       cfg.Provider.Resource,
		PublisherID:    cfg.Provider.PublisherID,
		WebhookAddress: cfg.WebhookAddress(),
	})

	shipper := ingest.NewShipper(signerFor(cfg, tokens), tokens, ingest.Config{
		Endpoint: cfg.Ingestion.Endpoint,
		Resource: cfg.Ingestion.Resource,
	})

	reconciler := reconcile.New(feedClient, cfg.Reconcile.Prune)

	go scheduler.New(reconciler, cfg.Reconcile.ContentTypes, cfg.Reconcile.Interval).Run(ctx)

	srv := server.New(log)
	srv.RegisterRouter(routes.NewSubscriptionRoutes(feedClient, reconciler, cfg.Reconcile.ContentTypes))
	srv.RegisterRouter(routes.NewWebhookRoutes(feedClient, shipper, deliveries))
	srv.RegisterRouter(routes.NewDeliveryRoutes(deliveries))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting server", "port", cfg.Server.Port, "webhook", cfg.WebhookAddress())
	slog.Error("Closing server", "error", srv.Start(addr))
}

func signerFor(cfg config.Config, tokens *auth.Cache) ingest.Signer {
	if cfg.Ingestion.Mode == config.IngestModeBearer {
		return ingest.BearerSigner{Tokens: tokens, Resource: cfg.Ingestion.Resource}
	}
	return ingest.SharedKeySigner{
		WorkspaceID:  cfg.Ingestion.WorkspaceID,
		WorkspaceKey: cfg.Ingestion.WorkspaceKey,
	}
}
