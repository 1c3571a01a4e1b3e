package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

// Common error variables
var (
	// ErrNoAPIKey indicates the API key is missing
	ErrNoAPIKey = errors.New("GEMINI_API_KEY not found in .env file or environment variables")

	// ErrEmptyResponse indicates the API returned no text
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrBlocked indicates the prompt was blocked by the model's safety filters
	ErrBlocked = errors.New("prompt blocked by model")
)

// Kind classifies a generation failure so callers can decide what to do with it.
type Kind string

const (
	KindConfig   Kind = "config"   // missing or invalid local configuration
	KindAuth     Kind = "auth"     // rejected API key
	KindQuota    Kind = "quota"    // rate limited or out of quota
	KindNetwork  Kind = "network"  // transport failure or timeout
	KindResponse Kind = "response" // empty, blocked or malformed response
	KindAPI      Kind = "api"      // any other error status from the API
	KindUnknown  Kind = "unknown"
)

// Error is the error type returned by Generator.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string // overrides Err's text when set
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if repeating the same request may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindNetwork, KindQuota:
		return true
	case KindAPI:
		return e.StatusCode >= 500
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.IsRetryable()
	}
	return false
}

// KindOf returns the Kind of err, or KindUnknown if err was not produced by this package.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindUnknown
}

// classify wraps err in an *Error with the best matching Kind.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}

	switch {
	case errors.Is(err, ErrNoAPIKey):
		return &Error{Kind: KindConfig, Err: err}
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrBlocked):
		return &Error{Kind: KindResponse, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: KindNetwork, Err: err}
	}

	if apiErr, ok := asAPIError(err); ok {
		return classifyAPIError(apiErr, err)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindResponse, Err: err}
	}

	return &Error{Kind: KindUnknown, Err: err}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func classifyAPIError(apiErr genai.APIError, err error) *Error {
	out := &Error{Kind: KindAPI, StatusCode: apiErr.Code, Err: err}
	if apiErr.Message != "" {
		if apiErr.Status != "" {
			out.Message = fmt.Sprintf("API error %d (%s): %s", apiErr.Code, apiErr.Status, apiErr.Message)
		} else {
			out.Message = fmt.Sprintf("API error %d: %s", apiErr.Code, apiErr.Message)
		}
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		out.Kind = KindAuth
	case apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "api key"):
		// the Gemini API reports bad keys as INVALID_ARGUMENT
		out.Kind = KindAuth
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		out.Kind = KindQuota
	}
	return out
}

// ErrorHandler provides centralized error handling with logging.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With("component", "error_handler"),
	}
}

// Handle logs err according to its kind and returns it classified.
func (eh *ErrorHandler) Handle(err error, operation string) *Error {
	if err == nil {
		return nil
	}

	gerr := classify(err)
	attrs := []any{"operation", operation, "kind", string(gerr.Kind), "error", gerr.Error()}
	if gerr.StatusCode != 0 {
		attrs = append(attrs, "status_code", gerr.StatusCode)
	}

	switch gerr.Kind {
	case KindQuota:
		eh.logger.Warn("rate limited", attrs...)
	case KindAuth:
		eh.logger.Error("authentication failed", attrs...)
	case KindConfig:
		eh.logger.Error("configuration error", attrs...)
	case KindNetwork:
		eh.logger.Warn("network error", attrs...)
	case KindResponse:
		eh.logger.Warn("unusable response", attrs...)
	default:
		eh.logger.Error("API error", attrs...)
	}

	return gerr
}

// DisplayMessage renders err the way it is shown in the chat.
func DisplayMessage(err error) string {
	return fmt.Sprintf("Error: %s", err.Error())
}
