package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	ModelPath     string
	ONNXLibrary   string
	UploadDir     string
	HistoryDB     string
	MaxUploadMB   int64
	LogLevel      string
	ResizeFilter  string
	TelegramToken string
}

// Load reads settings from the environment, after applying an optional .env file.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		ModelPath:     getenv("MODEL_PATH", "models/crack_detection_model.onnx"),
		ONNXLibrary:   os.Getenv("ONNXRUNTIME_LIB"),
		UploadDir:     getenv("UPLOAD_DIR", "uploads"),
		HistoryDB:     getenv("HISTORY_DB", "data/history.db"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		ResizeFilter:  getenv("RESIZE_FILTER", "nearest"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
	}

	maxMB, err := strconv.ParseInt(getenv("MAX_UPLOAD_MB", "10"), 10, 64)
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadMB = maxMB

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
