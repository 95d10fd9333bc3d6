package bgsync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the type of a watchlist change.
type Kind string

const (
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
	KindUpdate Kind = "update"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAdd, KindRemove, KindUpdate:
		return true
	}
	return false
}

// Mutation is a local watchlist change waiting to be forwarded.
type Mutation struct {
	// ID doubles as the idempotency key sent to the remote endpoint.
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"kind"`
	MediaType string          `json:"media_type"` // "movie" or "tv"
	ItemID    int64           `json:"item_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	// Delivery bookkeeping, not forwarded.
	Attempts  int    `json:"-"`
	LastError string `json:"-"`
}

// NewMutation creates a mutation with a fresh ID.
func NewMutation(kind Kind, mediaType string, itemID int64, payload json.RawMessage) Mutation {
	return Mutation{
		ID:        uuid.New(),
		Kind:      kind,
		MediaType: mediaType,
		ItemID:    itemID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the fields required to forward a mutation.
func (m Mutation) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("invalid mutation kind %q", m.Kind)
	}
	if m.MediaType == "" {
		return fmt.Errorf("media type is required")
	}
	if m.ItemID <= 0 {
		return fmt.Errorf("item id must be positive (got %d)", m.ItemID)
	}
	if len(m.Payload) > 0 && !json.Valid(m.Payload) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}
