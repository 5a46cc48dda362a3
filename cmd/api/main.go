package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lumina/internal/adapter/repo"
	"lumina/internal/catalog"
	"lumina/internal/editor"
	"lumina/internal/http/handlers"
	httpapi "lumina/internal/http/httpapi"
	"lumina/internal/infra"
	"lumina/internal/infra/geoip"
	"lumina/internal/metrics"
	"lumina/internal/middleware"
	"lumina/internal/poller"
	"lumina/internal/providers/imagekit"
	"lumina/internal/providers/payments"
	"lumina/internal/quota"
	"lumina/internal/storage"
	"lumina/internal/upload"
)

func main() {
	// Optional .env
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger.With().Str("component", "sql").Logger())

	reg := metrics.New()
	quotas := quota.NewService(repo.NewUsageRepository(runner), &logger, reg)

	effects, err := catalog.NewStore(cfg.CatalogPath, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load effect catalog")
	}
	if cfg.CatalogPath != "" {
		go func() {
			if err := effects.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("catalog watcher stopped")
			}
		}()
	}

	outbound := &http.Client{Timeout: 60 * time.Second}
	issuer, store, staticDir, err := assetBackend(ctx, cfg, outbound, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.AssetBackend).Msg("failed to configure asset backend")
	}

	uploads, err := upload.NewClient(upload.Options{
		Issuer:   issuer,
		Store:    store,
		Quota:    quotas,
		Folder:   cfg.UploadFolder,
		MaxBytes: cfg.MaxUploadBytes,
		Logger:   &logger,
		Metrics:  reg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure uploads")
	}

	jobs, err := poller.New(poller.Options{
		Checker:     poller.NewHTTPChecker(&http.Client{Timeout: 30 * time.Second}),
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
		Logger:      &logger,
		Metrics:     reg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure poller")
	}

	sessions, err := editor.NewManager(editor.Config{
		Catalog:      effects,
		Uploader:     uploads,
		Poller:       jobs,
		Debounce:     cfg.RecomputeDebounce,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       &logger,
		Metrics:      reg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure editor")
	}
	defer sessions.Close()
	go sessions.RunPruner(ctx, time.Minute, cfg.SessionIdleTTL)

	var checkout handlers.CheckoutCreator
	if c, err := payments.NewCheckout(payments.Options{
		SecretKey:  cfg.StripeSecretKey,
		PriceID:    cfg.StripePriceID,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		Logger:     &logger,
	}); err != nil {
		logger.Warn().Err(err).Msg("checkout disabled")
	} else {
		checkout = c
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
		defer resolver.Close()
	}

	app := &handlers.App{
		Config:     cfg,
		Logger:     &logger,
		Editor:     sessions,
		Uploader:   uploads,
		Issuer:     issuer,
		Quota:      quotas,
		Checkout:   checkout,
		Catalog:    effects,
		Metrics:    reg,
		HTTPClient: outbound,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   lookup,
		StaticDir:       staticDir,
		Metrics:         reg.Handler(),
	})

	server := infra.NewHTTPServer(cfg, router, logger)
	go func() {
		logger.Info().Str("backend", cfg.AssetBackend).Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// assetBackend builds the credential issuer and store for ASSET_BACKEND. The
// returned directory is non-empty when uploads are served from local disk.
func assetBackend(ctx context.Context, cfg *infra.Config, client *http.Client, logger *infra.Logger) (upload.Issuer, upload.Store, string, error) {
	switch cfg.AssetBackend {
	case infra.BackendS3:
		s3store, err := storage.NewS3Store(ctx, storage.S3Options{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			Folder:          cfg.UploadFolder,
			HTTPClient:      client,
		})
		if err != nil {
			return nil, nil, "", err
		}
		return s3store, s3store, "", nil
	case infra.BackendFilesystem:
		signer, err := upload.NewHMACSigner(cfg.ImageKitPublicKey, cfg.ImageKitPrivateKey, 0)
		if err != nil {
			return nil, nil, "", err
		}
		fs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL, signer)
		if err != nil {
			return nil, nil, "", err
		}
		return signer, fs, cfg.StoragePath, nil
	default:
		ik, err := imagekit.NewClient(imagekit.Options{
			PublicKey:  cfg.ImageKitPublicKey,
			PrivateKey: cfg.ImageKitPrivateKey,
			UploadURL:  cfg.ImageKitUploadURL,
			HTTPClient: client,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, "", err
		}
		return ik, ik, "", nil
	}
}
