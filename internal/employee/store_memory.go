package employee

import (
	"context"
	"sort"
	"sync"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
)

// Memory is the in-memory employee store for unit tests and local
// development.
type Memory struct {
	mu        sync.RWMutex
	employees map[domain.EmployeeID]*Employee
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{employees: make(map[domain.EmployeeID]*Employee)}
}

func (m *Memory) Create(ctx context.Context, emp *Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *emp
	m.employees[emp.ID] = &cp
	return nil
}

func (m *Memory) Get(ctx context.Context, id domain.EmployeeID) (*Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) List(ctx context.Context) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Snapshot implements evidence.Snapshotter.
func (m *Memory) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[domain.EmployeeID]*Employee, len(m.employees))
	for id, e := range m.employees {
		cp := *e
		snap[id] = &cp
	}
	return snap
}

// Restore implements evidence.Snapshotter.
func (m *Memory) Restore(snap any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees = snap.(map[domain.EmployeeID]*Employee)
}
