package config

import (
	"time"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultAPIKeyEnvVar is where the API key is read from.
	DefaultAPIKeyEnvVar = "GEMINI_API_KEY"

	// DefaultHistoryPath is the transcript file, relative to the working directory.
	DefaultHistoryPath = "chat_history.json"

	// DefaultAddr is the web UI listen address.
	DefaultAddr = "127.0.0.1:8501"
)

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			APIKeyEnvVar: DefaultAPIKeyEnvVar,
			Model:        DefaultModel,
			Timeout:      2 * time.Minute,
		},
		History: HistoryConfig{
			Path: DefaultHistoryPath,
		},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			MaxBodyBytes:    1 << 20, // 1MB
			ShutdownTimeout: 10 * time.Second,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    GetDefaultStoragePaths().DatabasePath,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
