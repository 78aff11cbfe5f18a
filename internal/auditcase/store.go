package auditcase

import (
	"context"

	"railledger/pkg/domain"
)

// Store persists audit cases and their evidence links. Links have no delete
// path.
type Store interface {
	// CreateCase inserts a case.
	CreateCase(ctx context.Context, c *AuditCase) error
	// GetCase returns a case or sentinel.ErrNotFound.
	GetCase(ctx context.Context, id domain.AuditCaseID) (*AuditCase, error)
	// ListCases returns all cases, creation-time ascending.
	ListCases(ctx context.Context) ([]AuditCase, error)
	// CreateLink binds a node to a case. Returns sentinel.ErrConflict when the
	// link already exists.
	CreateLink(ctx context.Context, link *EvidenceLink) error
	// ListLinks returns a case's links, creation-time ascending.
	ListLinks(ctx context.Context, caseID domain.AuditCaseID) ([]EvidenceLink, error)
}
