package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config is loaded once at process start and passed into every component.
// Nothing else reads the environment.
type Config struct {
	Port            string
	DBDSN           string
	LogFile         string
	GeminiAPIKey    string
	GeminiModel     string
	MediatorTimeout time.Duration
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "dealmate.db"
	} // sqlite file in project root
	logFile := os.Getenv("LOG_FILE")

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash-001"
	}

	timeout := 8 * time.Second
	if raw := os.Getenv("MEDIATOR_TIMEOUT_SECONDS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	cfg := Config{
		Port:            port,
		DBDSN:           dsn,
		LogFile:         logFile,
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     model,
		MediatorTimeout: timeout,
	}
	log.Printf("[config] PORT=%s DB_DSN=%s GEMINI_MODEL=%s MEDIATOR_TIMEOUT=%s gemini_key_set=%v",
		cfg.Port, cfg.DBDSN, cfg.GeminiModel, cfg.MediatorTimeout, cfg.GeminiAPIKey != "")
	return cfg
}
