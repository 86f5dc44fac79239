package post

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

// ErrInvalidCursor is returned for any cursor the service did not produce.
// Corrupted cursors are rejected outright, never coerced to a fallback page.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks a position in the (scheduled_at DESC, id DESC) ordering.
// The id is the tie-break for posts sharing a timestamp, which keeps the
// ordering total and the cursor stable under concurrent inserts.
type Cursor struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	ID          uuid.UUID `json:"id"`
}

// Encode serializes the cursor into an opaque token for clients.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token previously produced by Encode.
func DecodeCursor(encoded string) (*Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.ID == uuid.Nil {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}
