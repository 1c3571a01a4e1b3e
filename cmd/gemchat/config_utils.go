package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/elee1766/gemchat/src/config"
)

// cmdEnv is what every command starts from: the effective configuration
// and a logger built from it.
type cmdEnv struct {
	cfg    *config.Config
	files  []string
	logger *slog.Logger
	closer io.Closer
}

func (e *cmdEnv) Close() error {
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// setup loads the configuration, applies CLI flags and creates the logger.
func (cli *CLI) setup() (*cmdEnv, error) {
	cfg, files, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}

	logger, closer, err := newLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, withExitCode(ExitConfig, err)
	}
	logger.Debug("configuration loaded", "files", files, "model", cfg.API.Model, "history", cfg.History.Path)

	return &cmdEnv{cfg: cfg, files: files, logger: logger, closer: closer}, nil
}

// loadConfig loads the configuration from the default locations and
// overrides it with CLI flags
func loadConfig(cli *CLI) (*config.Config, []string, error) {
	cfg, files, err := config.Load(cli.Config)
	if err != nil {
		return nil, nil, withExitCode(ExitConfig, err)
	}

	overrideConfigFromCLI(cfg, cli)
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, nil, withExitCode(ExitUsage, fmt.Errorf("invalid flag: %w", err))
	}
	return cfg, files, nil
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) {
	if cli.APIKey != "" {
		cfg.API.APIKey = strings.TrimSpace(cli.APIKey)
	}
	if cli.Model != "" {
		cfg.API.Model = cli.Model
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.HistoryFile != "" {
		cfg.History.Path = cli.HistoryFile
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(cli.LogLevel)
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	if cli.LogFile {
		cfg.Logging.File = defaultLogFile()
	}
}

// maskAPIKey masks an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
