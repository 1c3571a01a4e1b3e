package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/elee1766/gemchat/src/app"
	"github.com/elee1766/gemchat/src/web"
)

// ServeCmd starts the web chat
type ServeCmd struct {
	Addr    string `short:"a" help:"Listen address (default: 127.0.0.1:8501)"`
	Archive *bool  `negatable:"" help:"Record exchanges in the sqlite archive"`
}

// Run executes the serve command
func (c *ServeCmd) Run(kctx *kong.Context, cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if c.Addr != "" {
		env.cfg.Server.Addr = c.Addr
	}
	if c.Archive != nil {
		env.cfg.Archive.Enabled = *c.Archive
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, env.cfg, app.Options{Logger: env.logger})
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := web.NewServer(a.Session, web.Config{
		Addr:         env.cfg.Server.Addr,
		MaxBodyBytes: env.cfg.Server.MaxBodyBytes,
		Model:        a.Generator.Model(),
		Models:       a.Models,
		Logger:       env.logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(kctx.Stdout, "gemchat listening on http://%s (model %s, history %s)\n",
		env.cfg.Server.Addr, a.Generator.Model(), env.cfg.History.Path)

	if err := srv.Run(ctx, env.cfg.Server.ShutdownTimeout); err != nil {
		return withExitCode(ExitError, err)
	}
	return nil
}
