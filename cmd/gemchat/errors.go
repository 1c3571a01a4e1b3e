package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/elee1766/gemchat/src/gemini"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNetwork     = 6 // Network error
	ExitInterrupted = 8 // Interrupted by user
)

// exitError attaches an exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode determines the exit code for err. An explicit code wins over
// the kind of a wrapped *gemini.Error.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	switch gemini.KindOf(err) {
	case gemini.KindConfig:
		return ExitConfig
	case gemini.KindAuth:
		return ExitAuth
	case gemini.KindNetwork:
		return ExitNetwork
	default:
		return ExitError
	}
}

// reportError prints err for the user and returns the exit code.
func reportError(w io.Writer, err error) int {
	msg := err.Error()
	if errors.Is(err, gemini.ErrNoAPIKey) {
		msg = gemini.ErrNoAPIKey.Error() + "."
	}
	fmt.Fprintf(w, "Error: %s\n", msg)
	return exitCode(err)
}
