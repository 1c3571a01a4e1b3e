package schema

import (
	"github.com/elee1766/gemchat/src/history"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Transcript returns the schema of the history file: a JSON array of
// turns in chronological order. Role aliases accepted on load are not
// part of the schema since they are never written.
func Transcript() *jsonschema.Schema {
	turn := CreateObjectSchema(map[string]*jsonschema.Schema{
		"role": CreateStringSchemaEnum("Who produced the turn",
			[]string{history.RoleUser.String(), history.RoleBot.String()}),
		"content": CreateStringSchema("Text of the turn"),
	}, []string{"role", "content"})

	s := CreateArraySchema("Conversation turns, oldest first", turn)
	title := "gemchat transcript"
	draft := Draft
	s.Title = &title
	s.Schema = &draft
	return s
}
