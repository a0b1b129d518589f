package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/auditfeed/internal/auth"
	"github.com/fr0stylo/auditfeed/internal/config"
	"github.com/fr0stylo/auditfeed/internal/provider"
	"github.com/fr0stylo/auditfeed/internal/reconcile"
)

// One-shot reconciliation for operators: diff the desired content types
// against live subscriptions and print what happened.
func main() {
	var (
		prune   bool
		timeout time.Duration
	)

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	flag.BoolVar(&prune, "prune", cfg.Reconcile.Prune, "stop enabled subscriptions that are no longer desired")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

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

	started, err := reconcile.New(feedClient, prune).Reconcile(ctx, cfg.Reconcile.ContentTypes)
	for _, subscription := range started {
		fmt.Printf("started: %s (%s)\n", subscription.ContentType, subscription.Status)
	}
	if err != nil {
		log.Fatalf("reconcile finished with failures: %v", err)
	}
	fmt.Printf("reconcile complete, %d subscription(s) started\n", len(started))
}
