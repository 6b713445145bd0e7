package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tadoru/data/db/artifacts.db"
	}
	if cfg.Resolve.GroupTimeoutMs == 0 {
		cfg.Resolve.GroupTimeoutMs = 2000
	}
	if cfg.Resolve.TotalTimeoutMs == 0 {
		cfg.Resolve.TotalTimeoutMs = 8000
	}
	if cfg.Resolve.SlackWindowSeconds == 0 {
		cfg.Resolve.SlackWindowSeconds = 300
	}
	if cfg.Resolve.MaxMarkers == 0 {
		cfg.Resolve.MaxMarkers = 256
	}
}
