package evidence

import (
	"context"
	"time"

	"railledger/pkg/domain"
)

// OutboxEntry is one committed ledger entry awaiting publication to the
// stream. The store writes it in the same transaction as the entry, so a
// published event always corresponds to committed evidence (transactional
// outbox). The outbox table is delivery state, not evidence; marking rows
// published is not subject to the append-only guard.
type OutboxEntry struct {
	EntryID     domain.LedgerEntryID
	NodeID      domain.EvidenceNodeID
	EventType   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// OutboxStore is the publisher worker's view of the store.
type OutboxStore interface {
	PendingOutbox(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, entryIDs []domain.LedgerEntryID, at time.Time) error
	GetNode(ctx context.Context, id domain.EvidenceNodeID) (*Node, error)
	ListEntries(ctx context.Context, nodeID domain.EvidenceNodeID) ([]LedgerEntry, error)
}
