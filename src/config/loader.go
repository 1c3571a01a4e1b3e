package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
	"github.com/subosito/gotenv"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
	fs         afero.Fs
	lookupEnv  func(string) (string, bool)

	dotenv gotenv.Env
	loaded []string
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithFs reads configuration files from fs instead of the OS filesystem
func WithFs(fs afero.Fs) LoaderOption {
	return func(l *Loader) {
		l.fs = fs
	}
}

// WithLookupEnv replaces os.LookupEnv for environment overrides
func WithLookupEnv(lookup func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = lookup
	}
}

// NewLoader creates a new configuration loader
func NewLoader(precedence ConfigPrecedence, opts ...LoaderOption) *Loader {
	l := &Loader{
		precedence: precedence,
		validator:  NewValidator(),
		fs:         afero.NewOsFs(),
		lookupEnv:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()
	l.loaded = nil

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		if cfg, err := l.loadFile(src.path); err == nil {
			config = l.mergeConfigs(config, cfg)
			l.loaded = append(l.loaded, src.path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	// .env values never override variables already set in the environment
	if l.precedence.DotEnv != "" {
		if err := l.loadDotEnv(l.precedence.DotEnv); err != nil {
			return nil, err
		}
	}

	if l.precedence.EnvironmentPrefix != "" {
		l.applyEnvironmentOverrides(config)
	}
	l.resolveAPIKey(config)

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadedFiles returns the config files merged by the last Load, lowest precedence first
func (l *Loader) LoadedFiles() []string {
	return append([]string(nil), l.loaded...)
}

// loadFile loads a single configuration file
func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// loadDotEnv parses a .env file; a missing file is not an error
func (l *Loader) loadDotEnv(path string) error {
	f, err := l.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.dotenv = env
	l.loaded = append(l.loaded, path)
	return nil
}

// getenv looks a variable up in the environment, then in the parsed .env file
func (l *Loader) getenv(key string) string {
	if v, ok := l.lookupEnv(key); ok {
		return v
	}
	return l.dotenv[key]
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	// Validate before saving
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := l.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := afero.WriteFile(l.fs, path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs merges two configurations with the second taking precedence
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	// Merge API config
	if override.API.APIKey != "" {
		result.API.APIKey = override.API.APIKey
	}
	if override.API.APIKeyEnvVar != "" {
		result.API.APIKeyEnvVar = override.API.APIKeyEnvVar
	}
	if override.API.Model != "" {
		result.API.Model = override.API.Model
	}
	if override.API.BaseURL != "" {
		result.API.BaseURL = override.API.BaseURL
	}
	if override.API.Timeout != 0 {
		result.API.Timeout = override.API.Timeout
	}

	// Merge History
	if override.History.Path != "" {
		result.History.Path = override.History.Path
	}

	// Merge Server
	if override.Server.Addr != "" {
		result.Server.Addr = override.Server.Addr
	}
	if override.Server.MaxBodyBytes != 0 {
		result.Server.MaxBodyBytes = override.Server.MaxBodyBytes
	}
	if override.Server.ShutdownTimeout != 0 {
		result.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	// Merge Archive
	if override.Archive.Enabled {
		result.Archive.Enabled = true
	}
	if override.Archive.Path != "" {
		result.Archive.Path = override.Archive.Path
	}

	// Merge Logging
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}
	if override.Logging.File != "" {
		result.Logging.File = override.Logging.File
	}

	return &result
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) {
	prefix := l.precedence.EnvironmentPrefix

	if apiKey := l.getenv(prefix + "_API_KEY"); apiKey != "" {
		config.API.APIKey = apiKey
	}

	if model := l.getenv(prefix + "_MODEL"); model != "" {
		config.API.Model = model
	}

	if baseURL := l.getenv(prefix + "_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}

	if path := l.getenv(prefix + "_HISTORY"); path != "" {
		config.History.Path = path
	}

	if addr := l.getenv(prefix + "_ADDR"); addr != "" {
		config.Server.Addr = addr
	}

	if archive := l.getenv(prefix + "_ARCHIVE"); archive != "" {
		if enabled, err := strconv.ParseBool(archive); err == nil {
			config.Archive.Enabled = enabled
		}
	}

	if level := l.getenv(prefix + "_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
}

// resolveAPIKey falls back to the configured key variable, GEMINI_API_KEY by default
func (l *Loader) resolveAPIKey(config *Config) {
	if config.API.APIKey != "" {
		return
	}
	envVar := config.API.APIKeyEnvVar
	if envVar == "" {
		envVar = DefaultAPIKeyEnvVar
	}
	config.API.APIKey = strings.TrimSpace(l.getenv(envVar))
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	userConfigPath := filepath.Join(xdg.ConfigHome, "gemchat", "config.json")

	// System config path varies by OS
	systemConfigPath := "/etc/gemchat/config.json"
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), "gemchat", "config.json")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        userConfigPath,
		ProjectConfig:     filepath.Join(".gemchat", "config.json"),
		LocalConfig:       filepath.Join(".gemchat", "config.local.json"),
		DotEnv:            ".env",
		EnvironmentPrefix: "GEMCHAT",
	}
}

// Load loads the configuration from the default locations. A non-empty
// path replaces the user config file.
func Load(path string) (*Config, []string, error) {
	precedence := GetConfigPaths()
	if path != "" {
		precedence.UserConfig = path
	}

	loader := NewLoader(precedence)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader.LoadedFiles(), nil
}
