package paging

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/splax/teamboard/internal/domain"
)

// Cursor marks the last item a page delivered, under one filter.
type Cursor struct {
	After       domain.SortKey
	Fingerprint string
	Direction   string
}

type cursorPayload struct {
	CreatedAt   time.Time `json:"t"`
	ID          string    `json:"i"`
	Fingerprint string    `json:"f"`
	Direction   string    `json:"d"`
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	data, _ := json.Marshal(cursorPayload{
		CreatedAt:   c.After.CreatedAt.UTC(),
		ID:          c.After.ID,
		Fingerprint: c.Fingerprint,
		Direction:   c.Direction,
	})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed token", domain.ErrInvalidCursor)
	}
	var payload cursorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Cursor{}, fmt.Errorf("%w: malformed token", domain.ErrInvalidCursor)
	}
	if payload.ID == "" || payload.Fingerprint == "" || payload.CreatedAt.IsZero() {
		return Cursor{}, fmt.Errorf("%w: incomplete token", domain.ErrInvalidCursor)
	}
	if payload.Direction != directionAsc && payload.Direction != directionDesc {
		return Cursor{}, fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidCursor, payload.Direction)
	}
	return Cursor{
		After:       domain.SortKey{CreatedAt: payload.CreatedAt, ID: payload.ID},
		Fingerprint: payload.Fingerprint,
		Direction:   payload.Direction,
	}, nil
}

// Check fails unless the cursor was issued under filter.
func (c Cursor) Check(filter Filter) error {
	if c.Fingerprint != filter.Fingerprint() {
		return fmt.Errorf("%w: filter changed since the cursor was issued", domain.ErrInvalidCursor)
	}
	if c.Direction != filter.Direction() {
		return fmt.Errorf("%w: sort direction changed since the cursor was issued", domain.ErrInvalidCursor)
	}
	return nil
}
