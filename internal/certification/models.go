// Package certification owns the credential records gating contractor work:
// creation at onboarding, proof recording, status derivation, revocation, and
// the correction chain that versions records without ever mutating them.
package certification

import (
	"time"

	"railledger/pkg/domain"
)

// EntityType tags certification evidence nodes.
const EntityType = "Certification"

// Certification is one required credential instance for one employee.
// Logically immutable: a correction supersedes a row via CorrectionOf rather
// than changing it. RecordProof may only fill fields that are still empty;
// changing a recorded fact requires a correction.
type Certification struct {
	ID               domain.CertificationID
	EmployeeID       domain.EmployeeID
	Type             string
	IssuingAuthority string
	IssueDate        *time.Time
	ExpirationDate   *time.Time
	NonExpiring      bool
	ProofRef         string
	Revoked          bool
	RevokedAt        *time.Time
	RevokedReason    string
	// Status is a persisted cache of the derived status; DeriveStatus against
	// the stored facts is always authoritative.
	Status       domain.CertStatus
	CorrectionOf *domain.CertificationID
	CreatedAt    time.Time
}

// HasProof reports whether the required proof has been recorded.
func (c *Certification) HasProof() bool {
	return c.IssueDate != nil && c.ProofRef != ""
}

// CorrectionData carries the field overrides a correction applies. Nil
// pointers mean "copy from the original".
type CorrectionData struct {
	Type             *string
	IssuingAuthority *string
	IssueDate        *time.Time
	ExpirationDate   *time.Time
	NonExpiring      *bool
	ProofRef         *string
}

// Snapshot is one certification's state as of a reconstruction date.
// LastEventType and LastEventAt name the newest ledger fact recorded against
// the certification at that date; both are empty for rows with no ledger
// activity inside the window.
type Snapshot struct {
	CertificationID domain.CertificationID
	Type            string
	Status          domain.CertStatus
	Compliant       bool
	IssueDate       *time.Time
	ExpirationDate  *time.Time
	CreatedAt       time.Time
	LastEventType   string
	LastEventAt     *time.Time
}
