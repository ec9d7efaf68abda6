package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath       string
	ServerPort   string
	LogLevel     string
	UploadDir    string
	GeminiAPIKey string
}

// Load reads configuration from a .env file if present, falling back to
// process environment variables and defaults. The Gemini key is optional:
// without it the screenshot OCR endpoint reports itself unavailable and
// everything else keeps working.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:       getEnv("DB_PATH", "scoreboard.db"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("upload_dir", cfg.UploadDir).
		Bool("ocr_configured", cfg.GeminiAPIKey != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
