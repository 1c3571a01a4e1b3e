package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/elee1766/gemchat/src/app"
)

// AskCmd performs one exchange against the transcript
type AskCmd struct {
	Message []string `arg:"" optional:"" help:"Message to send; read from stdin when omitted"`
	Archive *bool    `negatable:"" help:"Record the exchange in the sqlite archive"`
}

// Run executes the ask command
func (c *AskCmd) Run(kctx *kong.Context, cli *CLI) error {
	text := strings.Join(c.Message, " ")
	if strings.TrimSpace(text) == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if c.Archive != nil {
		env.cfg.Archive.Enabled = *c.Archive
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, env.cfg, app.Options{Logger: env.logger})
	if err != nil {
		return err
	}
	defer a.Close()

	reply, err := a.Session.Send(ctx, text)
	if errors.Is(err, app.ErrEmptyMessage) {
		return withExitCode(ExitUsage, err)
	}
	// a save failure still produced a reply worth showing
	if reply.Content != "" {
		fmt.Fprintln(kctx.Stdout, reply.Content)
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return withExitCode(ExitInterrupted, ctx.Err())
	}
	return nil
}
