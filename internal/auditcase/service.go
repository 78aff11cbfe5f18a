package auditcase

import (
	"context"
	"errors"

	"railledger/internal/evidence"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/sentinel"
	"railledger/pkg/requestcontext"
)

// Service manages audit cases and their evidence scope.
type Service struct {
	store    Store
	evidence *evidence.Service
}

// NewService wires the audit case service.
func NewService(store Store, ev *evidence.Service) *Service {
	return &Service{store: store, evidence: ev}
}

// Open creates a new audit case.
func (s *Service) Open(ctx context.Context, name, description string) (*AuditCase, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "case name is required")
	}

	var c *AuditCase
	_, err := s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: EntityType,
		EntityID:   evidence.PendingEntityID,
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventAuditCaseOpened,
		Payload:    evidence.Payload{"name": name},
	}, func(ctx context.Context) (string, error) {
		c = &AuditCase{
			ID:          domain.NewAuditCaseID(),
			Name:        name,
			Description: description,
			OpenedBy:    requestcontext.ActorID(ctx),
			CreatedAt:   requestcontext.Now(ctx),
		}
		if err := s.store.CreateCase(ctx, c); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "create audit case")
		}
		return c.ID.String(), nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LinkEvidence binds an evidence node into a case. Linking is additive only;
// once evidence is in scope it stays in scope.
func (s *Service) LinkEvidence(ctx context.Context, caseID domain.AuditCaseID, nodeID domain.EvidenceNodeID) error {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "audit case not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "get audit case")
	}

	_, err := s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: EntityType,
		EntityID:   caseID.String(),
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventEvidenceLinked,
		Payload:    evidence.Payload{"node_id": nodeID.String()},
	}, func(ctx context.Context) (string, error) {
		if _, err := s.evidence.Node(ctx, nodeID); err != nil {
			return "", err
		}
		err := s.store.CreateLink(ctx, &EvidenceLink{
			CaseID:    caseID,
			NodeID:    nodeID,
			CreatedAt: requestcontext.Now(ctx),
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return "", dErrors.New(dErrors.CodeConflict, "evidence already linked to this case")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return "", dErrors.New(dErrors.CodeNotFound, "evidence node not found")
			}
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "link evidence")
		}
		return caseID.String(), nil
	})
	return err
}

// Get returns a case by id.
func (s *Service) Get(ctx context.Context, id domain.AuditCaseID) (*AuditCase, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "audit case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get audit case")
	}
	return c, nil
}

// List returns all cases.
func (s *Service) List(ctx context.Context) ([]AuditCase, error) {
	cases, err := s.store.ListCases(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit cases")
	}
	return cases, nil
}

// Evidence returns the nodes linked into a case, with their ledger entries.
func (s *Service) Evidence(ctx context.Context, caseID domain.AuditCaseID) ([]evidence.Node, map[string][]evidence.LedgerEntry, error) {
	if _, err := s.Get(ctx, caseID); err != nil {
		return nil, nil, err
	}
	links, err := s.store.ListLinks(ctx, caseID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "list evidence links")
	}

	nodes := make([]evidence.Node, 0, len(links))
	entries := make(map[string][]evidence.LedgerEntry, len(links))
	for _, link := range links {
		node, err := s.evidence.Node(ctx, link.NodeID)
		if err != nil {
			return nil, nil, err
		}
		nodeEntries, err := s.evidence.Entries(ctx, link.NodeID)
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, *node)
		entries[node.ID.String()] = nodeEntries
	}
	return nodes, entries, nil
}
