package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Events is a list of event names stored as a JSONB array.
type Events []string

func (e Events) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(e))
}

func (e *Events) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = Events{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("events: unsupported source type %T", src)
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	*e = decoded
	return nil
}
