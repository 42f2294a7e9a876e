package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	ModelPath    string
	MetadataPath string
	// ORT shared library; empty uses the runtime's default lookup.
	LibraryPath string
	UploadDir   string

	NutritionURL       string
	NutritionSelector  string
	NutritionUserAgent string
	NutritionTimeout   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	TelegramToken string

	LogLevel  string
	LogFormat string
	GinMode   string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getenv("PORT", "8080"),
		ModelPath:          getenv("MODEL_PATH", "models/fv.onnx"),
		MetadataPath:       os.Getenv("METADATA_PATH"),
		LibraryPath:        os.Getenv("ORT_LIBRARY_PATH"),
		UploadDir:          getenv("UPLOAD_DIR", "upload_images"),
		NutritionURL:       getenv("NUTRITION_URL", "https://www.google.com/search"),
		NutritionSelector:  os.Getenv("NUTRITION_SELECTOR"),
		NutritionUserAgent: os.Getenv("NUTRITION_USER_AGENT"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "json"),
		GinMode:            getenv("GIN_MODE", "release"),
	}

	var err error
	if cfg.NutritionTimeout, err = durationEnv("NUTRITION_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationEnv("NUTRITION_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
