package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap stores an arbitrary JSON object in a jsonb column, mirroring the way
// the teacher persists opaque payloads (StripeEventPayload) but generalized
// from a raw string to a structured map so callers can read it back typed.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("models: JSONMap.Scan: unsupported type")
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// StringSet stores a set of strings as a JSON array column — see SPEC_FULL.md
// §13 for why this backs WebhookSubscription.Events instead of a native array
// type.
type StringSet []string

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal([]string(s))
}

func (s *StringSet) Scan(value any) error {
	if value == nil {
		*s = StringSet{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("models: StringSet.Scan: unsupported type")
	}
	if len(raw) == 0 {
		*s = StringSet{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

// Contains reports whether eventType is a member of the set.
func (s StringSet) Contains(eventType string) bool {
	for _, v := range s {
		if v == eventType {
			return true
		}
	}
	return false
}
