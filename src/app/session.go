package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/elee1766/gemchat/src/history"
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Replier produces the next bot reply for a conversation. It never fails;
// failures come back as displayable "Error: ..." text.
type Replier interface {
	Reply(ctx context.Context, turns []history.Turn) string
	Model() string
}

// Archiver keeps a long-term record of exchanged turns.
type Archiver interface {
	Record(ctx context.Context, model string, turns ...history.Turn) error
	Rotate(ctx context.Context) error
}

// SessionConfig holds the dependencies of a Session.
type SessionConfig struct {
	Store   *history.Store
	Replier Replier
	// Archive is optional
	Archive Archiver
	// Timeout bounds a single reply; zero means no limit
	Timeout time.Duration
	Logger  *slog.Logger
}

// Session is the conversation shown to the user. It owns the history store
// and serialises exchanges so the store sees one operation at a time.
type Session struct {
	mu      sync.Mutex
	store   *history.Store
	replier Replier
	archive Archiver
	timeout time.Duration
	logger  *slog.Logger
}

// NewSession creates a Session and loads the persisted history. A history
// file that cannot be read or parsed is treated as empty.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("session requires a history store")
	}
	if cfg.Replier == nil {
		return nil, errors.New("session requires a replier")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		store:   cfg.Store,
		replier: cfg.Replier,
		archive: cfg.Archive,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "session"),
	}

	turns, err := s.store.Load()
	if err != nil {
		s.logger.Warn("ignoring unreadable history", "path", s.store.Path(), "error", err)
	} else {
		s.logger.Debug("loaded history", "path", s.store.Path(), "turns", len(turns))
	}
	return s, nil
}

// Turns returns a snapshot of the conversation.
func (s *Session) Turns() []history.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Turns()
}

// Send performs one exchange: it appends the user turn, generates a reply
// from the whole conversation, appends it as a bot turn and persists the
// result. The bot turn is returned even when persisting fails.
func (s *Session) Send(ctx context.Context, text string) (history.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return history.Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := history.UserTurn(text)
	s.store.Append(user)

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	bot := history.BotTurn(s.replier.Reply(genCtx, s.store.Turns()))
	s.store.Append(bot)
	s.logger.Info("exchange complete",
		"turns", s.store.Len(),
		"reply_len", len(bot.Content),
		"duration", time.Since(start))

	if err := s.store.Flush(); err != nil {
		return bot, fmt.Errorf("failed to save history: %w", err)
	}

	if s.archive != nil {
		// the request may already be done; archiving should still happen
		if err := s.archive.Record(context.WithoutCancel(ctx), s.replier.Model(), user, bot); err != nil {
			s.logger.Warn("failed to archive exchange", "error", err)
		}
	}
	return bot, nil
}

// Clear removes every turn and deletes the history file.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Info("history cleared", "path", s.store.Path())

	if s.archive != nil {
		if err := s.archive.Rotate(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to rotate archive", "error", err)
		}
	}
	return nil
}
