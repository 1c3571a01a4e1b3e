package gemini

import (
	"log/slog"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Config holds configuration for the Gemini client
type Config struct {
	APIKey  string       // Gemini API key
	Model   string       // Model name, e.g. gemini-2.5-flash
	BaseURL string       // Override for the Gemini API endpoint
	Logger  *slog.Logger // Logger for debugging
}
