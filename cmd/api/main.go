package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"prompt-storefront/internal/activity"
	"prompt-storefront/internal/auth"
	"prompt-storefront/internal/client"
	"prompt-storefront/internal/config"
	"prompt-storefront/internal/cryptox"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/repository"
	"prompt-storefront/internal/server"
	"prompt-storefront/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prompt-storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format).With("env", cfg.Environment.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.CloseDBClient(db); err != nil {
			log.Error(ctx, "close database", "error", err)
		}
	}()

	cipher, err := cryptox.NewFieldCipher(cfg.Encryption.SecretKey)
	if err != nil {
		return fmt.Errorf("init field cipher: %w", err)
	}
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)

	stripeClient := client.NewStripeClient(&cfg.Stripe)
	if cfg.Stripe.SecretKey == "" {
		log.Warn(ctx, "STRIPE_SECRET_KEY is not set, checkout calls will fail")
	}

	var storageClient client.StorageClient
	if cfg.Storage.Bucket != "" {
		storageClient, err = client.NewStorageClient(ctx, &cfg.Storage)
		if err != nil {
			return fmt.Errorf("init storage client: %w", err)
		}
	} else {
		log.Warn(ctx, "S3_BUCKET is not set, pack downloads are disabled")
	}

	var assistantClient client.AssistantClient
	if cfg.OpenAI.APIKey != "" {
		assistantClient = client.NewAssistantClient(&cfg.OpenAI)
	} else {
		log.Warn(ctx, "OPENAI_API_KEY is not set, prompt assistant is disabled")
	}

	hub := activity.NewHub(log.With("component", "activity"), 20, cfg.CORS.AllowOrigins)
	go hub.Run(ctx)

	catalogRepo := repository.NewCatalogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	newsletterRepo := repository.NewNewsletterRepository(db)
	contactRepo := repository.NewContactRepository(db)

	if cfg.SeedCatalog {
		if err := catalogRepo.Seed(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		log.Info(ctx, "demo catalog seeded")
	}

	userService := service.NewUserService(entitlementRepo, subscriberRepo)
	services := server.Services{
		Checkout: service.NewCheckoutService(
			db, log, stripeClient, cipher, hub,
			cfg.Pricing, cfg.Stripe.Currency, cfg.BaseURL,
			catalogRepo,
			orderRepo,
			entitlementRepo,
			subscriberRepo,
			webhookEventRepo,
		),
		Catalog:    service.NewCatalogService(cfg.BaseURL, catalogRepo, userService),
		User:       userService,
		Download:   service.NewDownloadService(log, storageClient, cfg.Storage.PresignTTL, catalogRepo, userService),
		Assistant:  service.NewAssistantService(log, assistantClient),
		Newsletter: service.NewNewsletterService(log, cipher, newsletterRepo),
		Contact:    service.NewContactService(log, cipher, contactRepo),
	}

	srv := server.NewServer(cfg, log, verifier, services, hub)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", "addr", serverAddr)
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info(context.Background(), "signal received, starting graceful shutdown")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}
