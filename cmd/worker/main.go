package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/seetuai/seetu/internal/adapter/repo"
	"github.com/seetuai/seetu/internal/batch"
	"github.com/seetuai/seetu/internal/dispatch"
	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/providers/caption"
	"github.com/seetuai/seetu/internal/providers/genai"
	imageprovider "github.com/seetuai/seetu/internal/providers/image"
	"github.com/seetuai/seetu/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("worker: REDIS_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: storage setup failed")
	}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: gemini client setup failed")
	}
	if !geminiClient.Configured() {
		logger.Warn().Str("model", geminiClient.Model()).Msg("worker: gemini api key missing, using synthetic asset generation")
	}

	var generator imageprovider.Generator = imageprovider.NewGeminiGenerator(geminiClient)
	if strings.EqualFold(os.Getenv("IMAGE_PROVIDER"), "nanobanana") {
		generator = imageprovider.NewNanoBanana()
	}

	batches := repo.NewBatchRepository(pool)
	runner := batch.NewRunner(
		batches,
		repo.NewProductRepository(pool),
		repo.NewCreditLedger(pool),
		repo.NewUserRepository(pool),
		generator,
		caption.NewGeminiWriter(geminiClient),
		fileStore,
		&logger,
		cfg.StorageBaseURL,
		cfg.BatchItemDelay,
		cfg.GenerationTimeout,
	)

	dispatcher, err := dispatch.NewRedisDispatcher(ctx, cfg.RedisURL, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer dispatcher.Close()

	consumer := dispatch.NewConsumer(dispatcher, runner.Run, batches, dispatch.RetryPolicy{
		MaxAttempts: cfg.DispatchMaxAttempts,
		BaseDelay:   cfg.DispatchBackoffBase,
		MaxDelay:    cfg.DispatchBackoffCap,
	}, &logger)

	logger.Info().Msg("worker: started")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
