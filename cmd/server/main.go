package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/nutri-vision/internal/classify"
	"github.com/Brownie44l1/nutri-vision/internal/config"
	"github.com/Brownie44l1/nutri-vision/internal/handlers"
	"github.com/Brownie44l1/nutri-vision/internal/metrics"
	"github.com/Brownie44l1/nutri-vision/internal/model"
	"github.com/Brownie44l1/nutri-vision/internal/nutrition"
	"github.com/Brownie44l1/nutri-vision/internal/storage"
	"github.com/Brownie44l1/nutri-vision/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg)
	gin.SetMode(cfg.GinMode)

	meta, err := model.LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return fmt.Errorf("load model metadata: %w", err)
	}

	log.Info().Str("model", cfg.ModelPath).Msg("loading model")
	handle, err := model.NewHandle(model.Options{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.LibraryPath,
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("initialize model: %w", err)
	}
	defer handle.Close()

	fetcher, closeFetcher, err := newFetcher(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize nutrition lookup: %w", err)
	}
	defer closeFetcher()

	m := metrics.New()
	service := classify.NewService(handle, fetcher, m, log)
	handler := handlers.NewHandler(service, storage.NewUploads(cfg.UploadDir))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler, m, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, service, log)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		go func() {
			if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Err(err).Msg("telegram bot stopped")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Int64("classes", meta.OutputShape[len(meta.OutputShape)-1]).
		Str("upload_dir", cfg.UploadDir).
		Msg("server starting")
	log.Info().Msgf("upload test: curl -X POST -F \"image=@apple.jpg\" http://localhost:%s/predict/image", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.LogFormat == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// newFetcher builds the scraper, fronted by Redis when REDIS_ADDR is set.
func newFetcher(cfg *config.Config, log zerolog.Logger) (nutrition.Fetcher, func(), error) {
	scraper, err := nutrition.NewScraper(nutrition.ScraperOptions{
		SearchURL: cfg.NutritionURL,
		Selector:  cfg.NutritionSelector,
		UserAgent: cfg.NutritionUserAgent,
		Timeout:   cfg.NutritionTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.RedisAddr == "" {
		return scraper, func() {}, nil
	}

	cache := nutrition.NewRedisCache(nutrition.RedisOptions{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, lookups will not be cached until it is")
	}

	closeCache := func() {
		if err := cache.Close(); err != nil {
			log.Err(err).Msg("close redis")
		}
	}
	return nutrition.NewCachedFetcher(scraper, cache, cfg.CacheTTL, log), closeCache, nil
}
