package history

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies who authored a turn.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleBot marks a generated response. It is written to disk as "bot".
	RoleBot Role = "bot"
)

// ParseRole converts a persisted role string into a Role.
// "assistant" and "model" are accepted as aliases of RoleBot.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "bot", "assistant", "model":
		return RoleBot, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// UnmarshalJSON normalises role aliases and rejects unknown roles.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Turn is one message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn returns a turn authored by the user.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// BotTurn returns a generated turn.
func BotTurn(content string) Turn {
	return Turn{Role: RoleBot, Content: content}
}
