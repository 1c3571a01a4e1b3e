package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/elee1766/gemchat/src/config"
)

// ConfigCmd shows configuration
type ConfigCmd struct {
	Show  ConfigShowCmd  `cmd:"" default:"1" help:"Print the effective configuration"`
	Paths ConfigPathsCmd `cmd:"" help:"Print the files configuration is read from"`
}

// ConfigShowCmd prints the merged configuration with the API key masked
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli)
	if err != nil {
		return err
	}

	masked := *cfg
	masked.API.APIKey = maskAPIKey(cfg.API.APIKey)
	return writeJSON(kctx.Stdout, &masked)
}

// ConfigPathsCmd lists config locations in precedence order and marks
// the ones that were loaded
type ConfigPathsCmd struct{}

// Run executes the config paths command
func (c *ConfigPathsCmd) Run(kctx *kong.Context, cli *CLI) error {
	_, loaded, err := loadConfig(cli)
	if err != nil {
		return err
	}

	p := config.GetConfigPaths()
	if cli.Config != "" {
		p.UserConfig = cli.Config
	}
	storage := config.GetDefaultStoragePaths()

	isLoaded := make(map[string]bool, len(loaded))
	for _, f := range loaded {
		isLoaded[f] = true
	}
	mark := func(path string) string {
		if isLoaded[path] {
			return "loaded"
		}
		return ""
	}

	w := tabwriter.NewWriter(kctx.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "system\t%s\t%s\n", p.SystemConfig, mark(p.SystemConfig))
	fmt.Fprintf(w, "user\t%s\t%s\n", p.UserConfig, mark(p.UserConfig))
	fmt.Fprintf(w, "project\t%s\t%s\n", p.ProjectConfig, mark(p.ProjectConfig))
	fmt.Fprintf(w, "local\t%s\t%s\n", p.LocalConfig, mark(p.LocalConfig))
	fmt.Fprintf(w, "dotenv\t%s\t\n", p.DotEnv)
	fmt.Fprintf(w, "env prefix\t%s_*\t\n", p.EnvironmentPrefix)
	fmt.Fprintf(w, "archive\t%s\t\n", storage.DatabasePath)
	fmt.Fprintf(w, "logs\t%s\t\n", storage.LogDir)
	return nil
}
