// Package domain holds the typed identifiers and enums shared across the
// compliance core. IDs are distinct uuid-backed types so an employee ID can
// never be passed where a certification ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "railledger/pkg/domain-errors"
)

type (
	// EmployeeID identifies a contractor employee.
	EmployeeID uuid.UUID
	// CertificationID identifies one certification version. Corrections get a
	// fresh CertificationID; the chain is linked via CorrectionOf.
	CertificationID uuid.UUID
	// EvidenceNodeID identifies one evidence node.
	EvidenceNodeID uuid.UUID
	// LedgerEntryID identifies one immutable ledger entry.
	LedgerEntryID uuid.UUID
	// AuditCaseID identifies a named investigation.
	AuditCaseID uuid.UUID
	// ActionID identifies one enforcement action row.
	ActionID uuid.UUID
)

func parse(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id cannot be nil")
	}
	return u, nil
}

// ParseEmployeeID constructs an EmployeeID from external input.
func ParseEmployeeID(s string) (EmployeeID, error) {
	u, err := parse(s, "employee")
	return EmployeeID(u), err
}

// ParseCertificationID constructs a CertificationID from external input.
func ParseCertificationID(s string) (CertificationID, error) {
	u, err := parse(s, "certification")
	return CertificationID(u), err
}

// ParseEvidenceNodeID constructs an EvidenceNodeID from external input.
func ParseEvidenceNodeID(s string) (EvidenceNodeID, error) {
	u, err := parse(s, "evidence node")
	return EvidenceNodeID(u), err
}

// ParseAuditCaseID constructs an AuditCaseID from external input.
func ParseAuditCaseID(s string) (AuditCaseID, error) {
	u, err := parse(s, "audit case")
	return AuditCaseID(u), err
}

func (id EmployeeID) String() string      { return uuid.UUID(id).String() }
func (id CertificationID) String() string { return uuid.UUID(id).String() }
func (id EvidenceNodeID) String() string  { return uuid.UUID(id).String() }
func (id LedgerEntryID) String() string   { return uuid.UUID(id).String() }
func (id AuditCaseID) String() string     { return uuid.UUID(id).String() }
func (id ActionID) String() string        { return uuid.UUID(id).String() }

func (id EmployeeID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CertificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceNodeID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AuditCaseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewEmployeeID returns a fresh random EmployeeID.
func NewEmployeeID() EmployeeID { return EmployeeID(uuid.New()) }

// NewCertificationID returns a fresh random CertificationID.
func NewCertificationID() CertificationID { return CertificationID(uuid.New()) }

// NewEvidenceNodeID returns a fresh random EvidenceNodeID.
func NewEvidenceNodeID() EvidenceNodeID { return EvidenceNodeID(uuid.New()) }

// NewLedgerEntryID returns a fresh random LedgerEntryID.
func NewLedgerEntryID() LedgerEntryID { return LedgerEntryID(uuid.New()) }

// NewAuditCaseID returns a fresh random AuditCaseID.
func NewAuditCaseID() AuditCaseID { return AuditCaseID(uuid.New()) }

// NewActionID returns a fresh random ActionID.
func NewActionID() ActionID { return ActionID(uuid.New()) }
