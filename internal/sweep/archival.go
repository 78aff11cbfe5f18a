package sweep

import (
	"context"
	"log/slog"
	"time"

	"railledger/internal/evidence"
	"railledger/pkg/requestcontext"
)

// ArchivalSweep moves evidence nodes past the retention window into the
// archived state. Archival flags the node; the node and its ledger entries
// stay readable, and this is the only update the append-only guard admits.
type ArchivalSweep struct {
	store     evidence.Store
	retention time.Duration
	logger    *slog.Logger
}

// NewArchivalSweep wires the archival sweep.
func NewArchivalSweep(store evidence.Store, retention time.Duration, logger *slog.Logger) *ArchivalSweep {
	return &ArchivalSweep{store: store, retention: retention, logger: logger}
}

// Run performs one archival pass. Idempotent: already archived nodes are
// skipped by the statement's own predicate.
func (s *ArchivalSweep) Run(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	cutoff := now.Add(-s.retention)

	n, err := s.store.ArchiveNodesBefore(ctx, cutoff, now)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "evidence archival pass",
			"archived", n,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
	}
	return nil
}
