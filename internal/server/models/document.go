package models

import (
	"encoding/json"
	"time"
)

// Document is one stored record of a collection. Body is kept as JSONB and
// is opaque to the server apart from its createdAt key.
type Document struct {
	OwnerID    string
	Collection string
	ID         string
	Body       json.RawMessage
	UpdatedAt  time.Time
}
