package config

import (
	"os"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}
	if procs, err := strconv.Atoi(os.Getenv("WORKER_PROCESSES")); err == nil && procs > 0 {
		cfg.WorkerProcesses = procs
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	cfg.DataDir = envOr("DATA_DIRECTORY", "/data")
	cfg.DatabaseFilePath = envOr("DATABASE_FILE", "/data/inkleaf.sqlite")
	cfg.StorageSecret = os.Getenv("STORAGE_SECRET")
	cfg.ViewerTokenSecret = os.Getenv("VIEWER_TOKEN_SECRET")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
