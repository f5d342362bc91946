package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/seetuai/seetu/internal/adapter/repo"
	"github.com/seetuai/seetu/internal/batch"
	"github.com/seetuai/seetu/internal/dispatch"
	"github.com/seetuai/seetu/internal/http/handlers"
	"github.com/seetuai/seetu/internal/http/httpapi"
	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/infra/geoip"
	"github.com/seetuai/seetu/internal/middleware"
	"github.com/seetuai/seetu/internal/preset"
	"github.com/seetuai/seetu/internal/providers/caption"
	"github.com/seetuai/seetu/internal/providers/genai"
	imageprovider "github.com/seetuai/seetu/internal/providers/image"
	"github.com/seetuai/seetu/internal/storage"
	"github.com/seetuai/seetu/internal/style"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	batches := repo.NewBatchRepository(pool)
	products := repo.NewProductRepository(pool)
	credits := repo.NewCreditLedger(pool)
	users := repo.NewUserRepository(pool)

	catalog := preset.NewCatalog()
	styles := style.NewResolver(catalog)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: storage setup failed")
	}

	// With Redis configured the worker binary consumes the queue; without it
	// jobs run on goroutines inside this process.
	var dispatcher dispatch.Dispatcher
	if cfg.RedisURL != "" {
		redisDispatcher, err := dispatch.NewRedisDispatcher(ctx, cfg.RedisURL, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: redis connection failed")
		}
		dispatcher = redisDispatcher
	} else {
		logger.Warn().Msg("api: no REDIS_URL, running batches in-process")
		runner := newRunner(cfg, &logger, batches, products, credits, users, fileStore)
		dispatcher = dispatch.NewInProcDispatcher(runner.Run, batches, dispatch.RetryPolicy{
			MaxAttempts: cfg.DispatchMaxAttempts,
			BaseDelay:   cfg.DispatchBackoffBase,
			MaxDelay:    cfg.DispatchBackoffCap,
		}, &logger)
	}
	defer dispatcher.Close()

	service := batch.NewService(batches, products, credits, styles, dispatcher, &logger, cfg.MaxBatchSize, cfg.CreditCostPerImage)
	app := handlers.NewApp(service, catalog, fileStore, &logger)

	var countryLookup middleware.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("api: geoip unavailable")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       fileStore.BasePath(),
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newRunner(
	cfg *infra.Config,
	logger *infra.Logger,
	batches *repo.BatchRepositoryPG,
	products *repo.ProductRepositoryPG,
	credits *repo.CreditLedgerPG,
	users *repo.UserRepositoryPG,
	fileStore *storage.FileStore,
) *batch.Runner {
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: gemini client setup failed")
	}
	return batch.NewRunner(
		batches,
		products,
		credits,
		users,
		imageprovider.NewGeminiGenerator(geminiClient),
		caption.NewGeminiWriter(geminiClient),
		fileStore,
		logger,
		cfg.StorageBaseURL,
		cfg.BatchItemDelay,
		cfg.GenerationTimeout,
	)
}
