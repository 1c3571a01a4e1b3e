package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/elee1766/gemchat/src/history"
)

// Generator turns a conversation into the next bot reply. It holds no
// conversation state; every call receives the full turn log.
type Generator struct {
	backend Backend
	model   string
	logger  *slog.Logger
	errors  *ErrorHandler
}

// New creates a Generator backed by the Gemini API.
func New(ctx context.Context, config Config) (*Generator, error) {
	client, err := NewClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewGenerator(client, config), nil
}

// NewGenerator creates a Generator on top of an arbitrary backend.
func NewGenerator(backend Backend, config Config) *Generator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		backend: backend,
		model:   model,
		logger:  logger.With("component", "generator"),
		errors:  NewErrorHandler(logger),
	}
}

// Model returns the model name requests are sent to.
func (g *Generator) Model() string {
	return g.model
}

// BuildPrompt renders the turn log as one prompt, a "<role>: <content>" line per turn.
func BuildPrompt(turns []history.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}
	return strings.Join(lines, "\n")
}

// Generate sends the conversation to the model and returns its reply.
// Errors are always of type *Error. There are no retries.
func (g *Generator) Generate(ctx context.Context, turns []history.Turn) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = g.errors.Handle(&Error{Kind: KindResponse, Err: fmt.Errorf("model backend panicked: %v", r)}, "generate")
		}
	}()

	if g.backend == nil {
		return "", g.errors.Handle(&Error{Kind: KindConfig, Err: ErrNoAPIKey}, "generate")
	}

	prompt := BuildPrompt(turns)
	g.logger.Debug("generating reply", "turns", len(turns), "model", g.model)

	text, err = g.backend.GenerateText(ctx, g.model, prompt)
	if err != nil {
		return "", g.errors.Handle(err, "generate")
	}
	if strings.TrimSpace(text) == "" {
		return "", g.errors.Handle(ErrEmptyResponse, "generate")
	}
	return text, nil
}

// Reply is Generate with the chat display policy applied: it never fails,
// and a failure becomes a message starting with "Error: ".
func (g *Generator) Reply(ctx context.Context, turns []history.Turn) string {
	text, err := g.Generate(ctx, turns)
	if err != nil {
		return DisplayMessage(err)
	}
	return text
}

// ListModels lists the models available to the configured key.
func (g *Generator) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if g.backend == nil {
		return nil, &Error{Kind: KindConfig, Err: ErrNoAPIKey}
	}
	models, err := g.backend.ListModels(ctx)
	if err != nil {
		return nil, g.errors.Handle(err, "list_models")
	}
	return models, nil
}
