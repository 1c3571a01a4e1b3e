package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// Execer is implemented by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExecQuerier is an Execer that can also be queried through sqlscan.
type ExecQuerier interface {
	Execer
	sqlscan.Querier
}

// ErrAmbiguousID is returned when an ID prefix matches more than one conversation.
var ErrAmbiguousID = errors.New("conversation id prefix is ambiguous")

// GetSessionByID retrieves a session by its ID. It returns nil, nil when not found.
func GetSessionByID(ctx context.Context, db sqlscan.Querier, sessionID string) (*Session, error) {
	query := `SELECT id, current_conversation_id, conversation_ids, created_at, updated_at FROM sessions WHERE id = ?`
	var s Session
	err := sqlscan.Get(ctx, db, &s, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a new session
func CreateSession(ctx context.Context, db Execer, session *Session) error {
	now := time.Now().UTC()
	if session.ConversationIDs == nil {
		session.ConversationIDs = JSONStringArray{}
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}

	query := `INSERT INTO sessions (id, current_conversation_id, conversation_ids, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, session.ID, session.CurrentConversationID, session.ConversationIDs, session.CreatedAt, session.UpdatedAt)
	return err
}

// UpdateSession updates an existing session
func UpdateSession(ctx context.Context, db Execer, session *Session) error {
	session.UpdatedAt = time.Now().UTC()

	query := `UPDATE sessions SET current_conversation_id = ?, conversation_ids = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, session.CurrentConversationID, session.ConversationIDs, session.UpdatedAt, session.ID)
	return err
}

// GetConversationByID retrieves a conversation by its ID. It returns nil, nil when not found.
func GetConversationByID(ctx context.Context, db sqlscan.Querier, conversationID string) (*Conversation, error) {
	query := `SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`
	var conv Conversation
	err := sqlscan.Get(ctx, db, &conv, query, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// FindConversation resolves a full ID or a unique ID prefix.
func FindConversation(ctx context.Context, db sqlscan.Querier, idPrefix string) (*Conversation, error) {
	query := `SELECT id, title, created_at, updated_at FROM conversations WHERE id LIKE ? || '%' ORDER BY created_at LIMIT 2`
	var convs []Conversation
	if err := sqlscan.Select(ctx, db, &convs, query, idPrefix); err != nil {
		return nil, err
	}
	switch len(convs) {
	case 0:
		return nil, nil
	case 1:
		return &convs[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, idPrefix)
	}
}

// CreateConversation creates a new conversation in the database
func CreateConversation(ctx context.Context, db Execer, conversation *Conversation) error {
	now := time.Now().UTC()
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	if conversation.UpdatedAt.IsZero() {
		conversation.UpdatedAt = now
	}

	query := `INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, conversation.ID, conversation.Title, conversation.CreatedAt, conversation.UpdatedAt)
	return err
}

// TouchConversation bumps updated_at and sets the title if it is still empty.
func TouchConversation(ctx context.Context, db Execer, conversationID, title string) error {
	query := `UPDATE conversations SET title = CASE WHEN title = '' THEN ? ELSE title END, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, title, time.Now().UTC(), conversationID)
	return err
}

// ListConversations returns conversations with their message counts, most recent first.
// A limit of zero or less returns all of them.
func ListConversations(ctx context.Context, db sqlscan.Querier, limit int) ([]ConversationSummary, error) {
	query := `SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(m.id) AS message_count
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id, c.title, c.created_at, c.updated_at
		ORDER BY c.updated_at DESC, c.rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var out []ConversationSummary
	if err := sqlscan.Select(ctx, db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMessagesByConversationID retrieves all messages for a conversation in insertion order
func GetMessagesByConversationID(ctx context.Context, db sqlscan.Querier, conversationID string) ([]Message, error) {
	query := `SELECT id, conversation_id, role, model, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at, rowid`
	var messages []Message
	err := sqlscan.Select(ctx, db, &messages, query, conversationID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CreateMessage creates a new message in the database
func CreateMessage(ctx context.Context, db Execer, message *Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO messages (id, conversation_id, role, model, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, message.ID, message.ConversationID, message.Role, message.Model, message.Content, message.CreatedAt)
	return err
}
