package evidence

import (
	"context"
	"sync"
	"time"

	dErrors "railledger/pkg/domain-errors"
)

// defaultTxTimeout bounds one atomic unit so a stuck action cannot hold the
// write lock indefinitely.
const defaultTxTimeout = 5 * time.Second

// Snapshotter is implemented by in-memory stores participating in a memory
// transaction: capture state before the action, restore it on failure.
type Snapshotter interface {
	Snapshot() any
	Restore(snap any)
}

// MemoryRunner gives the in-memory stores the same all-or-nothing semantics a
// SQL transaction gives the Postgres stores. One coarse lock serializes
// writers; on any error every registered store rewinds to its snapshot, so no
// domain row, node, or entry from the failed unit survives.
type MemoryRunner struct {
	mu      sync.Mutex
	stores  []Snapshotter
	timeout time.Duration
}

// NewMemoryRunner creates a runner over the given stores.
func NewMemoryRunner(stores ...Snapshotter) *MemoryRunner {
	return &MemoryRunner{stores: stores}
}

// Register adds a store after construction; wiring code uses it when stores
// are built in dependency order.
func (r *MemoryRunner) Register(s Snapshotter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = append(r.stores, s)
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	snaps := make([]any, len(r.stores))
	for i, s := range r.stores {
		snaps[i] = s.Snapshot()
	}

	if err := fn(ctx); err != nil {
		for i, s := range r.stores {
			s.Restore(snaps[i])
		}
		return err
	}
	return nil
}
