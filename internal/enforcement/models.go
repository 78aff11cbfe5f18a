// Package enforcement derives block/allow decisions from certification state
// and gates dependent operations on them. Decisions are recomputed from
// stored facts and the evaluation instant, never from the cached status.
package enforcement

import (
	"time"

	"railledger/pkg/domain"
)

// ActionType classifies an enforcement action row.
type ActionType string

const (
	// ActionCertificationBlock records a certification evaluating to blocked.
	ActionCertificationBlock ActionType = "certification_block"
	// ActionWorkWindowBlock records a work-window assignment denied by the gate.
	ActionWorkWindowBlock ActionType = "work_window_block"
	// ActionJHABlock records a job hazard analysis acknowledgment denied by
	// the gate.
	ActionJHABlock ActionType = "jha_block"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	return t == ActionCertificationBlock || t == ActionWorkWindowBlock || t == ActionJHABlock
}

// CertificationEnforcement is the 1:1 derived block state per certification.
// Upserted on every evaluation; never authored independently.
type CertificationEnforcement struct {
	CertificationID domain.CertificationID
	IsBlocked       bool
	BlockedReason   string
	EvaluatedAt     time.Time
}

// EnforcementAction is one row in the append-style log of block decisions.
// A new evaluation always appends a fresh row when blocked; rows accumulate
// and are never deduplicated.
type EnforcementAction struct {
	ID          domain.ActionID
	ActionType  ActionType
	TargetType  string
	TargetID    string
	Reason      string
	TriggeredBy string
	CreatedAt   time.Time
}

// Decision is the outcome of one evaluation.
type Decision struct {
	CertificationID domain.CertificationID
	IsBlocked       bool
	BlockedReason   string
	EvaluatedAt     time.Time
}
