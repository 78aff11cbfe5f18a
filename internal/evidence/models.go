// Package evidence implements the append-only evidence trail: one evidence
// node per audited action, one or more immutable ledger entries per node, and
// the transactional wrapper that makes a domain mutation and its evidence
// observable only together.
package evidence

import (
	"time"

	"railledger/pkg/domain"
)

// PendingEntityID is the placeholder an action uses when the target entity's
// id is not known until the mutation runs (entity creation). WithEvidence
// replaces it with the id the action resolves before the node is written.
const PendingEntityID = "pending"

// Event types appended to the ledger. The string is the durable wire value;
// renaming a constant must not change it.
const (
	EventEmployeeOnboarded      = "employee_onboarded"
	EventCertificationCreated   = "certification_created"
	EventCertificationUpdated   = "certification_updated"
	EventCertificationCorrected = "certification_corrected"
	EventCertificationExpired   = "certification_expired"
	EventCertificationRevoked   = "certification_revoked"
	EventEnforcementBlocked     = "enforcement_blocked"
	EventGateDenied             = "enforcement_gate_denied"
	EventAuditCaseOpened        = "audit_case_opened"
	EventEvidenceLinked         = "evidence_linked"
	EventHistoryAccessed        = "point_in_time_accessed"
)

// Payload carries the business facts of a ledger entry. Arbitrary nesting is
// allowed; it is stored as JSONB and hashed in canonical form.
type Payload map[string]any

// Node ties one audited action to an actor and a target entity. Immutable
// after creation except for the archived flag, which only the retention sweep
// sets through the one sanctioned store method.
type Node struct {
	ID         domain.EvidenceNodeID
	EntityType string
	EntityID   string
	ActorType  domain.ActorType
	ActorID    string
	CreatedAt  time.Time
	Archived   bool
	ArchivedAt *time.Time
}

// LedgerEntry is one immutable fact appended under a node. Entries within a
// node are hash-chained: PrevHash of the first entry is empty, every later
// entry carries the Hash of its predecessor. Creation-time ascending order is
// the canonical history of the entity.
type LedgerEntry struct {
	ID        domain.LedgerEntryID
	NodeID    domain.EvidenceNodeID
	EventType string
	Payload   Payload
	PrevHash  string
	Hash      string
	CreatedAt time.Time
}

// Record is the evidence half of a WithEvidence call: who did what to which
// entity, and the fact to append.
type Record struct {
	EntityType string
	EntityID   string // may be PendingEntityID when the action creates the entity
	ActorType  domain.ActorType
	ActorID    string
	EventType  string
	Payload    Payload
}
