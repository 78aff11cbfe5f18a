// Package auditcase scopes evidence for named investigations. A case binds a
// subset of evidence nodes through a link table; links can be added but never
// removed, so the scope of what an audit saw is itself durable.
package auditcase

import (
	"time"

	"railledger/pkg/domain"
)

// EntityType tags audit case evidence nodes.
const EntityType = "AuditCase"

// AuditCase is one named investigation.
type AuditCase struct {
	ID          domain.AuditCaseID
	Name        string
	Description string
	OpenedBy    string
	CreatedAt   time.Time
}

// EvidenceLink binds one evidence node into a case.
type EvidenceLink struct {
	CaseID    domain.AuditCaseID
	NodeID    domain.EvidenceNodeID
	CreatedAt time.Time
}
