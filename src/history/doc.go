// Package history holds the conversation transcript.
//
// A transcript is an ordered list of turns persisted as a JSON array of
// {"role", "content"} objects. The in-memory log and the file are kept
// equivalent: every save rewrites the whole array.
package history
