package auditchain

import "time"

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionView   Action = "view"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionView, ActionDelete:
		return true
	default:
		return false
	}
}

// Entry is one immutable record in the hash-chained audit log.
//
// Invariants:
// - Entries are never updated or deleted.
// - ContentHash is deterministically derived from the entry's own stored
//   fields (resource identifiers, action, timestamp, actor, metadata).
// - PreviousHash links to the immediately preceding entry of the same
//   resource chain; empty for the chain genesis.
// - BlockNumber is 1-based and monotonic within a chain.
//
// Chains are scoped per resource (resource_type + resource_id).
//
// Storage: table audit_chain with an INSERT-only policy.
type Entry struct {
	ID           string            `json:"id" db:"id"`
	ResourceType string            `json:"resource_type" db:"resource_type"`
	ResourceID   string            `json:"resource_id" db:"resource_id"`
	Action       Action            `json:"action" db:"action"`
	ContentHash  string            `json:"content_hash" db:"content_hash"`
	PreviousHash string            `json:"previous_hash,omitempty" db:"previous_hash"`
	BlockNumber  int64             `json:"block_number" db:"block_number"`
	// Actor is empty for anonymous/public access.
	Actor    string            `json:"actor,omitempty" db:"actor"`
	Metadata map[string]string `json:"metadata,omitempty" db:"metadata"`
	Verified bool              `json:"verified" db:"verified"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
