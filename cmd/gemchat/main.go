package main

import (
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config      string `short:"c" type:"path" help:"Config file, replaces the user config"`
	APIKey      string `help:"Gemini API key (default: GEMINI_API_KEY from the environment or .env)"`
	Model       string `short:"m" help:"Gemini model name"`
	BaseURL     string `help:"Custom API base URL"`
	HistoryFile string `name:"history-file" short:"f" type:"path" help:"Transcript file (default: chat_history.json)"`
	LogLevel    string `help:"Log level: debug, info, warn, error (default: warn)"`
	LogFormat   string `help:"Log format: text or json"`
	LogFile     bool   `help:"Write logs to the state directory instead of stderr"`

	// Serve is the default command
	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Start the web chat (default)"`
	Ask     AskCmd     `cmd:"" help:"Send one message and print the reply"`
	History HistoryCmd `cmd:"" help:"Inspect or clear the transcript"`
	Archive ArchiveCmd `cmd:"" help:"Browse archived conversations"`
	Models  ModelsCmd  `cmd:"" help:"List models available to the API key"`
	Conf    ConfigCmd  `cmd:"" name:"config" help:"Show the effective configuration"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("gemchat"),
		kong.Description("Chat with Gemini in the browser or the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	if err := ctx.Run(&cli); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}
