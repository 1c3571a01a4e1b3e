package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Backend is the remote model boundary: one prompt in, generated text out.
type Backend interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo describes a model available to the configured key.
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"display_name,omitempty"`
	Description      string   `json:"description,omitempty"`
	InputTokenLimit  int32    `json:"input_token_limit,omitempty"`
	OutputTokenLimit int32    `json:"output_token_limit,omitempty"`
	SupportedActions []string `json:"supported_actions,omitempty"`
}

var _ Backend = (*Client)(nil)

// Client is the Backend implementation talking to the Gemini API.
type Client struct {
	genai  *genai.Client
	logger *slog.Logger
}

// NewClient creates a new Gemini API client.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, &Error{Kind: KindConfig, Err: ErrNoAPIKey}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gemini_client")

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Err: fmt.Errorf("failed to create gemini client: %w", err)}
	}

	return &Client{genai: client, logger: logger}, nil
}

// GenerateText sends prompt as a single user message and returns the text of the reply.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	logger := c.logger.With("method", "GenerateText", "model", model)
	logger.Debug("sending generate content request", "prompt_len", len(prompt))

	resp, err := c.genai.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return "", err
	}

	text, err := textFromResponse(resp)
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		logger.Info("generate content successful",
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"candidate_tokens", resp.UsageMetadata.CandidatesTokenCount)
	}
	return text, nil
}

// ListModels returns every model visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for m, err := range c.genai.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		models = append(models, ModelInfo{
			Name:             strings.TrimPrefix(m.Name, "models/"),
			DisplayName:      m.DisplayName,
			Description:      m.Description,
			InputTokenLimit:  m.InputTokenLimit,
			OutputTokenLimit: m.OutputTokenLimit,
			SupportedActions: m.SupportedActions,
		})
	}
	return models, nil
}

// textFromResponse extracts the generated text, turning blocked and empty
// responses into errors.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, fb.BlockReason)
	}

	text := resp.Text()
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		if fr := resp.Candidates[0].FinishReason; fr != "" && fr != genai.FinishReasonStop {
			return "", fmt.Errorf("%w (finish reason %s)", ErrEmptyResponse, fr)
		}
	}
	return "", ErrEmptyResponse
}
