package certification

import (
	"context"
	"time"

	"railledger/pkg/domain"
)

// Store persists certifications. Rows are never deleted; the only update is
// the derived-status cache. Fact changes happen by inserting a correction row.
type Store interface {
	// Create inserts a certification. Returns sentinel.ErrConflict when the
	// row would become a second correction of the same original (the
	// single-head guarantee).
	Create(ctx context.Context, cert *Certification) error
	// Get returns a certification or sentinel.ErrNotFound.
	Get(ctx context.Context, id domain.CertificationID) (*Certification, error)
	// ListByEmployee returns an employee's certifications, creation-time
	// ascending.
	ListByEmployee(ctx context.Context, employeeID domain.EmployeeID) ([]Certification, error)
	// ListByEmployeeCreatedBefore returns only rows that existed at the given
	// instant. Point-in-time reconstruction excludes later corrections by
	// creation time, not by logical id.
	ListByEmployeeCreatedBefore(ctx context.Context, employeeID domain.EmployeeID, at time.Time) ([]Certification, error)
	// HeadOf returns the correction row superseding the given id, or
	// sentinel.ErrNotFound when the id is the head of its chain.
	HeadOf(ctx context.Context, id domain.CertificationID) (*Certification, error)
	// SetProof fills proof fields on a row whose proof was empty.
	SetProof(ctx context.Context, id domain.CertificationID, issueDate time.Time, expirationDate *time.Time, proofRef string) error
	// SetRevoked marks a certification revoked. Revocation is a recorded
	// fact, never a deletion.
	SetRevoked(ctx context.Context, id domain.CertificationID, at time.Time, reason string) error
	// SetStatusCache updates the persisted derived-status cache.
	SetStatusCache(ctx context.Context, id domain.CertificationID, status domain.CertStatus) error
	// ListExpiringBefore returns non-revoked, expiring certifications whose
	// expiration date is before the instant. The expiration sweep feeds these
	// to the enforcement evaluator.
	ListExpiringBefore(ctx context.Context, at time.Time) ([]Certification, error)
}
