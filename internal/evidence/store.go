package evidence

import (
	"context"
	"time"

	"railledger/pkg/domain"
)

// Store persists nodes and ledger entries. The interface deliberately has no
// update or delete for either table; ArchiveNodesBefore is the single
// sanctioned mutation and touches only the archived flag. Postgres
// implementations additionally run behind the append-only guard and the
// schema triggers, so even a future method added in error cannot rewrite
// history (see guard.go).
type Store interface {
	// CreateNode inserts a node. Pure insert, no validation beyond required
	// fields.
	CreateNode(ctx context.Context, node *Node) error
	// GetNode returns a node or sentinel.ErrNotFound.
	GetNode(ctx context.Context, id domain.EvidenceNodeID) (*Node, error)
	// AppendEntry inserts an entry referencing an existing node. Returns
	// sentinel.ErrNotFound when the node does not exist.
	AppendEntry(ctx context.Context, entry *LedgerEntry) error
	// ListEntries returns a node's entries, creation-time ascending. That
	// order is the canonical history of the entity.
	ListEntries(ctx context.Context, nodeID domain.EvidenceNodeID) ([]LedgerEntry, error)
	// LatestEntry returns the newest entry of a node, or sentinel.ErrNotFound
	// when the node has none.
	LatestEntry(ctx context.Context, nodeID domain.EvidenceNodeID) (*LedgerEntry, error)
	// ListNodesByEntity returns all nodes recorded against an entity,
	// creation-time ascending.
	ListNodesByEntity(ctx context.Context, entityType, entityID string) ([]Node, error)
	// LatestEntryForEntityBefore returns the newest entry across an entity's
	// nodes with CreatedAt <= at, or sentinel.ErrNotFound. Point-in-time
	// reconstruction uses it so later facts never leak into past snapshots.
	LatestEntryForEntityBefore(ctx context.Context, entityType, entityID string, at time.Time) (*LedgerEntry, error)
	// ArchiveNodesBefore sets archived/archived_at on unarchived nodes created
	// before cutoff and reports how many it touched. Retention sweep only.
	ArchiveNodesBefore(ctx context.Context, cutoff, archivedAt time.Time) (int64, error)
}

// TxRunner executes fn inside one atomic unit. The Postgres implementation
// opens a transaction and carries it through context so domain stores and the
// evidence store share a single commit; the in-memory implementation
// serializes with a lock.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
