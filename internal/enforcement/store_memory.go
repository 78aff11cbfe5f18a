package enforcement

import (
	"context"
	"sync"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
)

// Memory is the in-memory enforcement store for unit tests and local
// development.
type Memory struct {
	mu           sync.RWMutex
	enforcements map[domain.CertificationID]*CertificationEnforcement
	actions      []EnforcementAction
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{enforcements: make(map[domain.CertificationID]*CertificationEnforcement)}
}

func (m *Memory) UpsertEnforcement(ctx context.Context, e *CertificationEnforcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.enforcements[e.CertificationID] = &cp
	return nil
}

func (m *Memory) GetEnforcement(ctx context.Context, certID domain.CertificationID) (*CertificationEnforcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enforcements[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) AppendAction(ctx context.Context, a *EnforcementAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, *a)
	return nil
}

func (m *Memory) ListActionsByTarget(ctx context.Context, targetType, targetID string) ([]EnforcementAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []EnforcementAction
	for _, a := range m.actions {
		if a.TargetType == targetType && a.TargetID == targetID {
			out = append(out, a)
		}
	}
	return out, nil
}

// CountActions reports the total action rows, for accumulation assertions in
// tests.
func (m *Memory) CountActions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actions)
}

type memorySnapshot struct {
	enforcements map[domain.CertificationID]*CertificationEnforcement
	actions      []EnforcementAction
}

// Snapshot implements evidence.Snapshotter.
func (m *Memory) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := memorySnapshot{
		enforcements: make(map[domain.CertificationID]*CertificationEnforcement, len(m.enforcements)),
		actions:      append([]EnforcementAction(nil), m.actions...),
	}
	for id, e := range m.enforcements {
		cp := *e
		snap.enforcements[id] = &cp
	}
	return snap
}

// Restore implements evidence.Snapshotter.
func (m *Memory) Restore(snap any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snap.(memorySnapshot)
	m.enforcements = s.enforcements
	m.actions = s.actions
}
