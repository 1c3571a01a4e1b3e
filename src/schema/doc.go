// Package schema builds JSON Schema documents with swaggest/jsonschema-go.
//
// Besides a few constructors for common schema shapes it describes the
// transcript file written by the history package:
//
//	s := schema.Transcript()
//	data, _ := json.MarshalIndent(s, "", "  ")
package schema
