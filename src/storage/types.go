package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONStringArray is a []string stored as a JSON array in a TEXT column.
type JSONStringArray []string

// Scan implements sql.Scanner.
func (j *JSONStringArray) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = JSONStringArray{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}

	if len(raw) == 0 {
		*j = JSONStringArray{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("invalid JSONStringArray: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*j = out
	return nil
}

// Value implements driver.Valuer. A nil array is stored as "[]".
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(j))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
