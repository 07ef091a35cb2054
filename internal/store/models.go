package store

import (
	"encoding/json"
	"time"
)

// Entry is one stored reading. Payload is the reading encoded as JSON; the
// store never looks inside it.
type Entry struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}
