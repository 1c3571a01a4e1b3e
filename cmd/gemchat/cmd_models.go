package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/elee1766/gemchat/src/gemini"
)

// generateAction is the supported action of models that can chat
const generateAction = "generateContent"

// ModelsCmd lists the models available to the key
type ModelsCmd struct {
	Query string `arg:"" optional:"" help:"Only show models whose name contains this"`
	All   bool   `help:"Include models that cannot generate content"`
	JSON  bool   `help:"Print as JSON"`
}

// Run executes the models command
func (c *ModelsCmd) Run(kctx *kong.Context, cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	gen, err := gemini.New(ctx, gemini.Config{
		APIKey:  env.cfg.API.APIKey,
		Model:   env.cfg.API.Model,
		BaseURL: env.cfg.API.BaseURL,
		Logger:  env.logger,
	})
	if err != nil {
		return err
	}

	models, err := gen.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	models = filterModels(models, c.Query, c.All)

	if c.JSON {
		if models == nil {
			models = []gemini.ModelInfo{}
		}
		return writeJSON(kctx.Stdout, models)
	}

	if len(models) == 0 {
		fmt.Fprintln(kctx.Stdout, "No models found")
		return nil
	}
	printModelsTable(kctx.Stdout, models, gen.Model())
	return nil
}

// filterModels keeps models matching query, and unless all is set, only those
// that support content generation.
func filterModels(models []gemini.ModelInfo, query string, all bool) []gemini.ModelInfo {
	query = strings.ToLower(query)
	var out []gemini.ModelInfo
	for _, m := range models {
		if !all && len(m.SupportedActions) > 0 && !slices.Contains(m.SupportedActions, generateAction) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(m.Name), query) &&
			!strings.Contains(strings.ToLower(m.DisplayName), query) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// printModelsTable marks the configured model with an asterisk.
func printModelsTable(out io.Writer, models []gemini.ModelInfo, current string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "\tNAME\tDISPLAY NAME\tINPUT\tOUTPUT")
	for _, m := range models {
		mark := ""
		if m.Name == strings.TrimPrefix(current, "models/") {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", mark, m.Name, m.DisplayName, m.InputTokenLimit, m.OutputTokenLimit)
	}
}
