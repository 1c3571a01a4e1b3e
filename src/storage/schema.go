package storage

import "time"

// Conversation is the span of turns between two clears of a history file.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ConversationSummary is a Conversation with its message count.
type ConversationSummary struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	MessageCount int       `json:"message_count" db:"message_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Role           string    `json:"role" db:"role"`
	Model          string    `json:"model" db:"model"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Session tracks the conversations recorded for one history file.
// The ID is the absolute path of that file.
type Session struct {
	ID                    string          `json:"id" db:"id"`
	CurrentConversationID *string         `json:"current_conversation_id,omitempty" db:"current_conversation_id"`
	ConversationIDs       JSONStringArray `json:"conversation_ids" db:"conversation_ids"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}
