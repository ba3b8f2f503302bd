package config

import (
	"os"
	"strconv"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.BaseURL = "http://127.0.0.1:3690"
	cfg.DataDir = "./tmp/data"
	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.ServerHost = "127.0.0.1"
	cfg.StorageSecret = "development-storage-secret"
	cfg.ViewerTokenSecret = "development-viewer-secret"
}
