package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DefaultPath is the transcript file used when no path is configured.
const DefaultPath = "chat_history.json"

// Store is the ordered, append-only turn log of a conversation together with
// the JSON file it is persisted to. Store is not safe for concurrent use;
// callers serialise access (see app.Session).
type Store struct {
	fs    afero.Fs
	path  string
	turns []Turn
}

// NewStore creates an empty store backed by path on fs.
// Nothing is read until Load is called.
func NewStore(fs afero.Fs, path string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if path == "" {
		path = DefaultPath
	}
	return &Store{fs: fs, path: path, turns: []Turn{}}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory turns with the contents of the backing file.
// A missing file is not an error and yields an empty sequence. On any other
// failure the store is left empty and the error is returned.
func (s *Store) Load() ([]Turn, error) {
	s.turns = []Turn{}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.Turns(), nil
		}
		return s.Turns(), fmt.Errorf("failed to read history file: %w", err)
	}

	turns, err := Decode(data)
	if err != nil {
		return s.Turns(), fmt.Errorf("failed to parse history file %s: %w", s.path, err)
	}
	s.turns = turns
	return s.Turns(), nil
}

// Append adds a turn to the end of the log. It does not persist.
func (s *Store) Append(turn Turn) {
	s.turns = append(s.turns, turn)
}

// Turns returns a copy of the log in chronological order.
func (s *Store) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	return len(s.turns)
}

// Clear removes every turn and deletes the backing file if it exists.
func (s *Store) Clear() error {
	s.turns = []Turn{}
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete history file: %w", err)
	}
	return nil
}

// Save makes turns the current log and overwrites the backing file with it.
func (s *Store) Save(turns []Turn) error {
	data, err := Encode(turns)
	if err != nil {
		return err
	}
	next := make([]Turn, len(turns))
	copy(next, turns)
	s.turns = next
	return writeFileAtomic(s.fs, s.path, data, 0o644)
}

// Flush writes the current log to the backing file.
func (s *Store) Flush() error {
	data, err := Encode(s.turns)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.fs, s.path, data, 0o644)
}

// Encode serialises turns the way they are stored on disk: a compact JSON
// array without HTML escaping and without a trailing newline.
func Encode(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	for i, t := range turns {
		if !t.Role.Valid() {
			return nil, fmt.Errorf("turn %d has invalid role %q", i, t.Role)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(turns); err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a persisted transcript.
func Decode(data []byte) ([]Turn, error) {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path, so readers see either the old or the new transcript.
func writeFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	f, err := afero.TempFile(fs, dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			fs.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fs.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("failed to set history permissions: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	success = true
	return nil
}
