package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/elee1766/gemchat/src/app"
	"github.com/elee1766/gemchat/src/history"
	"github.com/elee1766/gemchat/src/schema"
)

// HistoryCmd manages the transcript file
type HistoryCmd struct {
	Show   HistoryShowCmd   `cmd:"" default:"1" help:"Print the transcript"`
	Clear  HistoryClearCmd  `cmd:"" help:"Delete the transcript"`
	Path   HistoryPathCmd   `cmd:"" help:"Print the transcript path"`
	Schema HistorySchemaCmd `cmd:"" help:"Print the JSON Schema of the transcript file"`
}

// HistoryShowCmd prints the transcript
type HistoryShowCmd struct {
	JSON  bool `help:"Print the raw turns as JSON"`
	Width int  `help:"Truncate lines to this many cells (0 for no limit)" default:"0"`
}

// Run executes the history show command
func (c *HistoryShowCmd) Run(kctx *kong.Context, cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	store := history.NewStore(nil, env.cfg.History.Path)
	turns, err := store.Load()
	if err != nil {
		return err
	}

	if c.JSON {
		return writeJSON(kctx.Stdout, turns)
	}

	p := newTranscriptPrinter(kctx.Stdout, c.Width)
	if len(turns) == 0 {
		fmt.Fprintln(kctx.Stdout, p.muted("No messages in "+store.Path()))
		return nil
	}
	p.Print(kctx.Stdout, turns)
	return nil
}

// HistoryClearCmd deletes the transcript
type HistoryClearCmd struct{}

// Run executes the history clear command
func (c *HistoryClearCmd) Run(kctx *kong.Context, cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	store := history.NewStore(nil, env.cfg.History.Path)
	if err := store.Clear(); err != nil {
		return err
	}

	if env.cfg.Archive.Enabled {
		ctx := context.Background()
		db, archive, err := app.OpenArchive(ctx, env.cfg.Archive.Path, store.Path(), env.logger)
		if err != nil {
			env.logger.Warn("archive not rotated", "error", err)
		} else {
			defer db.Close()
			if err := archive.Rotate(ctx); err != nil {
				env.logger.Warn("archive not rotated", "error", err)
			}
		}
	}

	fmt.Fprintf(kctx.Stdout, "Cleared %s\n", store.Path())
	return nil
}

// HistoryPathCmd prints the absolute transcript path
type HistoryPathCmd struct{}

// Run executes the history path command
func (c *HistoryPathCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(cfg.History.Path)
	if err != nil {
		path = cfg.History.Path
	}
	fmt.Fprintln(kctx.Stdout, path)
	return nil
}

// HistorySchemaCmd prints the transcript JSON Schema
type HistorySchemaCmd struct{}

// Run executes the history schema command
func (c *HistorySchemaCmd) Run(kctx *kong.Context) error {
	return writeJSON(kctx.Stdout, schema.Transcript())
}
