// Package store implements the persistent repositories over PostgreSQL.
//
// All hot invariants live here as database constraints: one lead per phone,
// one conversation per phone, unique message external ids, and at most one
// pending follow-up per lead. Writers use native upserts — never
// read-then-insert — so concurrent first contacts for the same phone converge
// on a single row.
package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store bundles the repositories over one connection pool.
type Store struct {
	Leads         *LeadStore
	Conversations *ConversationStore
	Messages      *MessageStore
	FollowUps     *FollowUpStore
}

// New creates the repository bundle.
func New(db *sql.DB) *Store {
	return &Store{
		Leads:         NewLeadStore(db),
		Conversations: NewConversationStore(db),
		Messages:      NewMessageStore(db),
		FollowUps:     NewFollowUpStore(db),
	}
}
