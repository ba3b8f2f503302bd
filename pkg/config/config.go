package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	BaseURL                   string
	DataDir                   string
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	ExtractorCommand          string
	Hostname                  string
	ServerHost                string
	ServerPort                int
	SignedURLTTL              time.Duration
	StorageSecret             string
	ViewerTokenSecret         string
	WorkerProcesses           int

	// Term mining (OpenAI-compatible endpoint). The char limits are
	// deliberately character counts, not tokens.
	AIBaseURL       string
	AIAPIKey        string
	AIModel         string
	AIMinTextChars  int
	AIMaxInputChars int
	AITimeout       time.Duration
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		ExtractorCommand:          envOr("EXTRACTOR_COMMAND", "inkleaf-extract"),
		Hostname:                  hostname,
		ServerPort:                3690,
		SignedURLTTL:              15 * time.Minute,
		WorkerProcesses:           2,

		AIBaseURL:       os.Getenv("AI_BASE_URL"),
		AIAPIKey:        os.Getenv("AI_API_KEY"),
		AIModel:         os.Getenv("AI_MODEL"),
		AIMinTextChars:  50,
		AIMaxInputChars: 50000,
		AITimeout:       120 * time.Second,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	return cfg, nil
}

// AIEnabled reports whether term mining is configured at all.
func (cfg *Config) AIEnabled() bool {
	return cfg.AIBaseURL != "" && cfg.AIModel != ""
}
