package certification

import (
	"context"
	"sort"
	"sync"
	"time"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
)

// Memory is the in-memory certification store for unit tests and local
// development. Reads return copies so callers can never mutate stored rows.
type Memory struct {
	mu    sync.RWMutex
	certs map[domain.CertificationID]*Certification
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{certs: make(map[domain.CertificationID]*Certification)}
}

func (m *Memory) Create(ctx context.Context, cert *Certification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cert.CorrectionOf != nil {
		for _, c := range m.certs {
			if c.CorrectionOf != nil && *c.CorrectionOf == *cert.CorrectionOf {
				return sentinel.ErrConflict
			}
		}
	}
	cp := cloneCert(cert)
	m.certs[cert.ID] = cp
	return nil
}

func (m *Memory) Get(ctx context.Context, id domain.CertificationID) (*Certification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.certs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCert(c), nil
}

func (m *Memory) ListByEmployee(ctx context.Context, employeeID domain.EmployeeID) ([]Certification, error) {
	return m.listByEmployee(employeeID, func(*Certification) bool { return true })
}

func (m *Memory) ListByEmployeeCreatedBefore(ctx context.Context, employeeID domain.EmployeeID, at time.Time) ([]Certification, error) {
	return m.listByEmployee(employeeID, func(c *Certification) bool { return !c.CreatedAt.After(at) })
}

func (m *Memory) listByEmployee(employeeID domain.EmployeeID, keep func(*Certification) bool) ([]Certification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Certification
	for _, c := range m.certs {
		if c.EmployeeID == employeeID && keep(c) {
			out = append(out, *cloneCert(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) HeadOf(ctx context.Context, id domain.CertificationID) (*Certification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.certs {
		if c.CorrectionOf != nil && *c.CorrectionOf == id {
			return cloneCert(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (m *Memory) SetProof(ctx context.Context, id domain.CertificationID, issueDate time.Time, expirationDate *time.Time, proofRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.HasProof() {
		return sentinel.ErrInvalidState
	}
	issue := issueDate.UTC()
	c.IssueDate = &issue
	if expirationDate != nil {
		exp := expirationDate.UTC()
		c.ExpirationDate = &exp
	}
	c.ProofRef = proofRef
	return nil
}

func (m *Memory) SetRevoked(ctx context.Context, id domain.CertificationID, at time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	ts := at.UTC()
	c.Revoked = true
	c.RevokedAt = &ts
	c.RevokedReason = reason
	return nil
}

func (m *Memory) SetStatusCache(ctx context.Context, id domain.CertificationID, status domain.CertStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *Memory) ListExpiringBefore(ctx context.Context, at time.Time) ([]Certification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Certification
	for _, c := range m.certs {
		if !c.Revoked && !c.NonExpiring && c.ExpirationDate != nil && c.ExpirationDate.Before(at) {
			out = append(out, *cloneCert(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Snapshot captures store state for the memory transaction runner.
func (m *Memory) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	certs := make(map[domain.CertificationID]*Certification, len(m.certs))
	for id, c := range m.certs {
		certs[id] = cloneCert(c)
	}
	return certs
}

// Restore rewinds the store to a snapshot taken before a failed transaction.
func (m *Memory) Restore(snap any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certs = snap.(map[domain.CertificationID]*Certification)
}

func cloneCert(c *Certification) *Certification {
	cp := *c
	if c.IssueDate != nil {
		v := *c.IssueDate
		cp.IssueDate = &v
	}
	if c.ExpirationDate != nil {
		v := *c.ExpirationDate
		cp.ExpirationDate = &v
	}
	if c.RevokedAt != nil {
		v := *c.RevokedAt
		cp.RevokedAt = &v
	}
	if c.CorrectionOf != nil {
		v := *c.CorrectionOf
		cp.CorrectionOf = &v
	}
	return &cp
}
