package auditcase

import (
	"context"
	"sort"
	"sync"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
)

// Memory is the in-memory audit case store for unit tests and local
// development.
type Memory struct {
	mu    sync.RWMutex
	cases map[domain.AuditCaseID]*AuditCase
	links []EvidenceLink
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{cases: make(map[domain.AuditCaseID]*AuditCase)}
}

func (m *Memory) CreateCase(ctx context.Context, c *AuditCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *Memory) GetCase(ctx context.Context, id domain.AuditCaseID) (*AuditCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) ListCases(ctx context.Context) ([]AuditCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditCase, 0, len(m.cases))
	for _, c := range m.cases {
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateLink(ctx context.Context, link *EvidenceLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.CaseID == link.CaseID && l.NodeID == link.NodeID {
			return sentinel.ErrConflict
		}
	}
	m.links = append(m.links, *link)
	return nil
}

func (m *Memory) ListLinks(ctx context.Context, caseID domain.AuditCaseID) ([]EvidenceLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []EvidenceLink
	for _, l := range m.links {
		if l.CaseID == caseID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memorySnapshot struct {
	cases map[domain.AuditCaseID]*AuditCase
	links []EvidenceLink
}

// Snapshot implements evidence.Snapshotter.
func (m *Memory) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := memorySnapshot{
		cases: make(map[domain.AuditCaseID]*AuditCase, len(m.cases)),
		links: append([]EvidenceLink(nil), m.links...),
	}
	for id, c := range m.cases {
		cp := *c
		snap.cases[id] = &cp
	}
	return snap
}

// Restore implements evidence.Snapshotter.
func (m *Memory) Restore(snap any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snap.(memorySnapshot)
	m.cases = s.cases
	m.links = s.links
}
