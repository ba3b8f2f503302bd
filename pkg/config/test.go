package config

func loadTestConfig(cfg *Config) {
	cfg.BaseURL = "http://127.0.0.1:0"
	cfg.DataDir = "./tmp/test-data"
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.StorageSecret = "test-storage-secret"
	cfg.ViewerTokenSecret = "test-viewer-secret"
}
