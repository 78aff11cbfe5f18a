package evidence

import (
	"context"
	"sort"
	"sync"
	"time"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
)

// Memory is the in-memory store used by unit tests and local development.
// Append-only holds structurally: the type exposes no way to modify or remove
// a stored node or entry, and reads return copies. Rollback is provided by
// the snapshot-based MemoryRunner, which serializes all writers.
type Memory struct {
	mu      sync.RWMutex
	nodes   map[domain.EvidenceNodeID]*Node
	entries []LedgerEntry
	outbox  []OutboxEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nodes: make(map[domain.EvidenceNodeID]*Node)}
}

func (m *Memory) CreateNode(ctx context.Context, node *Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *node
	m.nodes[node.ID] = &cp
	return nil
}

func (m *Memory) GetNode(ctx context.Context, id domain.EvidenceNodeID) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *Memory) AppendEntry(ctx context.Context, entry *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[entry.NodeID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *entry
	cp.Payload = clonePayload(entry.Payload)
	m.entries = append(m.entries, cp)
	m.outbox = append(m.outbox, OutboxEntry{
		EntryID:   cp.ID,
		NodeID:    cp.NodeID,
		EventType: cp.EventType,
		CreatedAt: cp.CreatedAt,
	})
	return nil
}

func (m *Memory) ListEntries(ctx context.Context, nodeID domain.EvidenceNodeID) ([]LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []LedgerEntry
	for _, e := range m.entries {
		if e.NodeID == nodeID {
			e.Payload = clonePayload(e.Payload)
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) LatestEntry(ctx context.Context, nodeID domain.EvidenceNodeID) (*LedgerEntry, error) {
	entries, err := m.ListEntries(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	last := entries[len(entries)-1]
	return &last, nil
}

func (m *Memory) ListNodesByEntity(ctx context.Context, entityType, entityID string) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Node
	for _, n := range m.nodes {
		if n.EntityType == entityType && n.EntityID == entityID {
			out = append(out, *n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) LatestEntryForEntityBefore(ctx context.Context, entityType, entityID string, at time.Time) (*LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodeSet := make(map[domain.EvidenceNodeID]bool)
	for _, n := range m.nodes {
		if n.EntityType == entityType && n.EntityID == entityID {
			nodeSet[n.ID] = true
		}
	}
	var latest *LedgerEntry
	for _, e := range m.entries {
		if !nodeSet[e.NodeID] || e.CreatedAt.After(at) {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			cp := e
			cp.Payload = clonePayload(e.Payload)
			latest = &cp
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest, nil
}

func (m *Memory) ArchiveNodesBefore(ctx context.Context, cutoff, archivedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	at := archivedAt.UTC()
	for _, n := range m.nodes {
		if !n.Archived && n.CreatedAt.Before(cutoff) {
			n.Archived = true
			n.ArchivedAt = &at
			count++
		}
	}
	return count, nil
}

// PendingOutbox returns unpublished outbox entries, oldest first.
func (m *Memory) PendingOutbox(ctx context.Context, limit int) ([]OutboxEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []OutboxEntry
	for _, o := range m.outbox {
		if o.PublishedAt == nil {
			out = append(out, o)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// MarkPublished stamps outbox entries as delivered.
func (m *Memory) MarkPublished(ctx context.Context, entryIDs []domain.LedgerEntryID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := at.UTC()
	for i := range m.outbox {
		for _, id := range entryIDs {
			if m.outbox[i].EntryID == id {
				m.outbox[i].PublishedAt = &ts
			}
		}
	}
	return nil
}

// CountRows reports stored node and entry counts; the atomicity tests use it
// to assert that a failed action leaves zero trace.
func (m *Memory) CountRows() (nodes, entries int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), len(m.entries)
}

// Snapshot captures the store state for the memory transaction runner.
func (m *Memory) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make(map[domain.EvidenceNodeID]*Node, len(m.nodes))
	for id, n := range m.nodes {
		cp := *n
		nodes[id] = &cp
	}
	return &memorySnapshot{
		nodes:   nodes,
		entries: append([]LedgerEntry(nil), m.entries...),
		outbox:  append([]OutboxEntry(nil), m.outbox...),
	}
}

// Restore rewinds the store to a snapshot taken before a failed transaction.
func (m *Memory) Restore(snap any) {
	s := snap.(*memorySnapshot)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = s.nodes
	m.entries = s.entries
	m.outbox = s.outbox
}

type memorySnapshot struct {
	nodes   map[domain.EvidenceNodeID]*Node
	entries []LedgerEntry
	outbox  []OutboxEntry
}

func clonePayload(p Payload) Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		if nested, ok := v.(map[string]any); ok {
			out[k] = map[string]any(clonePayload(nested))
			continue
		}
		out[k] = v
	}
	return out
}
