package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/elee1766/gemchat/src/history"
)

const maxTitleLen = 60

// Archive records every turn of one history file into the database,
// grouped into one conversation per span between clears.
type Archive struct {
	db     *DB
	logger *slog.Logger

	mu      sync.Mutex
	session *Session
}

// NewArchive attaches to (or creates) the archive session keyed by key,
// normally the absolute path of the history file.
func NewArchive(ctx context.Context, db *DB, key string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Archive{
		db:     db,
		logger: logger.With("component", "archive"),
	}

	session, err := GetSessionByID(ctx, db.DB(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive session: %w", err)
	}
	if session == nil {
		session = &Session{ID: key}
		if err := CreateSession(ctx, db.DB(), session); err != nil {
			return nil, fmt.Errorf("failed to create archive session: %w", err)
		}
		a.logger.Debug("created archive session", "session_id", key)
	}
	a.session = session
	return a, nil
}

// CurrentConversationID returns the conversation new turns are recorded in,
// or "" if nothing has been recorded since the last rotation.
func (a *Archive) CurrentConversationID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session.CurrentConversationID == nil {
		return ""
	}
	return *a.session.CurrentConversationID
}

// Record appends turns to the current conversation, starting one if needed.
func (a *Archive) Record(ctx context.Context, model string, turns ...history.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	convID, started, err := a.ensureConversation(ctx, tx)
	if err != nil {
		return err
	}

	title := ""
	for _, t := range turns {
		if title == "" && t.Role == history.RoleUser {
			title = makeTitle(t.Content)
		}
		msg := &Message{
			ConversationID: convID,
			Role:           t.Role.String(),
			Content:        t.Content,
		}
		if t.Role == history.RoleBot {
			msg.Model = model
		}
		if err := CreateMessage(ctx, tx, msg); err != nil {
			return fmt.Errorf("failed to record message: %w", err)
		}
	}

	if err := TouchConversation(ctx, tx, convID, title); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	if started != nil {
		a.session = started
		a.logger.Info("started conversation", "conversation_id", convID)
	}
	a.logger.Debug("recorded turns", "conversation_id", convID, "count", len(turns))
	return nil
}

// Rotate ends the current conversation. The next Record starts a new one.
func (a *Archive) Rotate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session.CurrentConversationID == nil {
		return nil
	}
	prev := *a.session.CurrentConversationID
	a.session.CurrentConversationID = nil
	if err := UpdateSession(ctx, a.db.DB(), a.session); err != nil {
		a.session.CurrentConversationID = &prev
		return fmt.Errorf("failed to rotate conversation: %w", err)
	}
	a.logger.Info("rotated conversation", "previous_conversation_id", prev)
	return nil
}

// ensureConversation returns the current conversation ID. When a new
// conversation had to be created it also returns the session to adopt
// once tx commits.
func (a *Archive) ensureConversation(ctx context.Context, tx *sql.Tx) (string, *Session, error) {
	if a.session.CurrentConversationID != nil {
		return *a.session.CurrentConversationID, nil, nil
	}

	conv := &Conversation{}
	if err := CreateConversation(ctx, tx, conv); err != nil {
		return "", nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	updated := *a.session
	updated.CurrentConversationID = &conv.ID
	updated.ConversationIDs = append(append(JSONStringArray{}, a.session.ConversationIDs...), conv.ID)
	if err := UpdateSession(ctx, tx, &updated); err != nil {
		return "", nil, fmt.Errorf("failed to update session: %w", err)
	}
	return conv.ID, &updated, nil
}

// makeTitle derives a one-line title from the first user message.
func makeTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(title) <= maxTitleLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleLen-1]) + "…"
}
