package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/oportunia/internal/api"
	"github.com/edvin/oportunia/internal/billing"
	"github.com/edvin/oportunia/internal/config"
	"github.com/edvin/oportunia/internal/core"
	"github.com/edvin/oportunia/internal/crypto"
	"github.com/edvin/oportunia/internal/db"
	"github.com/edvin/oportunia/internal/llm"
	"github.com/edvin/oportunia/internal/logging"
	"github.com/edvin/oportunia/internal/marketplace"
	"github.com/edvin/oportunia/internal/metrics"
	"github.com/edvin/oportunia/internal/model"
	"github.com/edvin/oportunia/internal/oauth"
	"github.com/edvin/oportunia/internal/settings"
)

func main() {
	if len(os.Args) >= 2 {
		if handled, code := runCommand(os.Args[1], os.Args[2:], os.Stdout, os.Stderr); handled {
			os.Exit(code)
		}
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	cipher, err := crypto.NewCipherFromHex(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid encryption key")
	}

	limits := billing.DefaultLimits()
	if cfg.PlansFile != "" {
		limits, err = billing.LoadLimitsFile(cfg.PlansFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.PlansFile).Msg("failed to load plan limits")
		}
	}

	if *migrateFlag || cfg.AutoMigrate {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	var generator core.ContentGenerator
	if cfg.GeminiAPIKey != "" {
		gc, err := llm.NewClient(ctx, cfg.GeminiAPIKey, llm.WithModel(cfg.GeminiModel), llm.WithLogger(logger))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create gemini client")
		}
		generator = gc
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, campaign generation disabled")
	}

	oauthClient := oauth.NewClient(
		oauth.WithAPIBaseURL(cfg.MarketplaceAPIURL),
		oauth.WithTimeout(cfg.OAuthTimeout),
	)

	services := core.NewServices(core.Deps{
		DB:          pool,
		Store:       settings.NewPostgresStore(pool),
		Cipher:      cipher,
		OAuth:       oauthClient,
		Limits:      limits,
		Auth:        core.NewAuthService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminEmail, cfg.AdminPasswordHash),
		LLM:         generator,
		RedirectURI: cfg.RedirectURI(),
		Logger:      logger,
		NewMarketplace: func(tokens *core.TokenService) core.Marketplace {
			return marketplace.NewClient(tokens.ForSlot(model.SlotMarketplace),
				marketplace.WithBaseURL(cfg.MarketplaceAPIURL),
				marketplace.WithRateLimit(cfg.MarketplaceRateLimit),
				marketplace.WithLogger(logger),
			)
		},
	})

	srv := api.NewServer(logger, pool, services, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
