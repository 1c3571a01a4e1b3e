package config

import (
	"time"
)

// Config represents the complete configuration for gemchat
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// API configuration
	API APIConfig `json:"api"`

	// History file configuration
	History HistoryConfig `json:"history"`

	// Server configuration for the web UI
	Server ServerConfig `json:"server"`

	// Archive configuration
	Archive ArchiveConfig `json:"archive,omitempty"`

	// Logging configuration
	Logging LoggingConfig `json:"logging,omitempty"`
}

// APIConfig holds Gemini API configuration
type APIConfig struct {
	// APIKey for authentication (can be omitted if using env vars)
	APIKey string `json:"api_key,omitempty"`

	// APIKeyEnvVar specifies the environment variable to read the API key from
	APIKeyEnvVar string `json:"api_key_env_var,omitempty"`

	// Model is the generative model requests are sent to
	Model string `json:"model" validate:"omitempty,model_name"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// Timeout for a single generate request
	Timeout time.Duration `json:"timeout,omitempty" validate:"min=0"`
}

// HistoryConfig defines where the transcript is persisted
type HistoryConfig struct {
	// Path to the JSON transcript file
	Path string `json:"path" validate:"required"`
}

// ServerConfig defines the web UI listener
type ServerConfig struct {
	// Addr is the host:port the server listens on
	Addr string `json:"addr" validate:"required,listen_addr"`

	// MaxBodyBytes limits the size of request bodies
	MaxBodyBytes int64 `json:"max_body_bytes,omitempty" validate:"min=0"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty" validate:"min=0"`
}

// ArchiveConfig defines the optional sqlite conversation archive
type ArchiveConfig struct {
	// Enabled turns on archiving of every turn
	Enabled bool `json:"enabled"`

	// Path to the sqlite database
	Path string `json:"path,omitempty"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"log_level"`

	// Format is the output format (text, json)
	Format string `json:"format,omitempty" validate:"log_format"`

	// File, when set, receives log output instead of stderr
	File string `json:"file,omitempty"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// DotEnv file loaded into the environment before overrides
	DotEnv string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)
