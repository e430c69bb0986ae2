// Package lists maintains administrator-curated block and allow lists of
// customer identifiers. A block-list hit overrides automated scoring
// entirely; the allow list is checked and recorded but does not currently
// alter the score.
package lists

import (
	"context"
	"time"
)

// Kind selects the block or allow list.
type Kind string

const (
	KindBlock Kind = "block"
	KindAllow Kind = "allow"
)

// IDType is the identifier type an entry matches against.
type IDType string

const (
	TypePhone IDType = "phone"
	TypeEmail IDType = "email"
)

// Entry is one list row. (List, Type, Value) is the natural key; inserting a
// duplicate is a no-op, never an error.
type Entry struct {
	List      Kind      `json:"list"`
	Type      IDType    `json:"type"`
	Value     string    `json:"value"`
	Reason    string    `json:"reason,omitempty"`
	AddedBy   string    `json:"addedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidKind reports whether k names a known list.
func ValidKind(k Kind) bool {
	return k == KindBlock || k == KindAllow
}

// ValidIDType reports whether t is a known identifier type.
func ValidIDType(t IDType) bool {
	return t == TypePhone || t == TypeEmail
}

// Store persists list entries.
type Store interface {
	// Add inserts an entry; inserting an existing (list, type, value) is a no-op.
	Add(ctx context.Context, e *Entry) error
	// Remove deletes an entry; removing a missing entry is a no-op.
	Remove(ctx context.Context, list Kind, typ IDType, value string) error
	// Find returns the entry for (list, type, value), or nil if absent.
	Find(ctx context.Context, list Kind, typ IDType, value string) (*Entry, error)
	// List returns all entries of one list, newest first.
	List(ctx context.Context, list Kind) ([]*Entry, error)
}
