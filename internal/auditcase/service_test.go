package auditcase

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"railledger/internal/evidence"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *Memory
	ledger  *evidence.Memory
	evs     *evidence.Service
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemory()
	s.ledger = evidence.NewMemory()
	runner := evidence.NewMemoryRunner(s.ledger, s.store)
	s.evs = evidence.NewService(s.ledger, runner, slog.New(slog.DiscardHandler))
	s.service = NewService(s.store, s.evs)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	s.ctx = requestcontext.WithActor(ctx, domain.ActorUser, "auditor-3")
}

func (s *ServiceSuite) someNode() domain.EvidenceNodeID {
	node, err := s.evs.WriteEvidenceNode(s.ctx, "Certification", "cert-9", domain.ActorSystem, "sweep")
	s.Require().NoError(err)
	return node.ID
}

func (s *ServiceSuite) TestOpen() {
	c, err := s.service.Open(s.ctx, "FRA Inquiry 2025-117", "post-incident certification review")
	s.Require().NoError(err)
	s.Equal("auditor-3", c.OpenedBy)

	nodes, err := s.ledger.ListNodesByEntity(s.ctx, EntityType, c.ID.String())
	s.Require().NoError(err)
	s.Require().Len(nodes, 1)
	entries, err := s.ledger.ListEntries(s.ctx, nodes[0].ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(evidence.EventAuditCaseOpened, entries[0].EventType)

	_, err = s.service.Open(s.ctx, "", "")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestLinkEvidence() {
	c, err := s.service.Open(s.ctx, "FRA Inquiry 2025-117", "")
	s.Require().NoError(err)
	nodeID := s.someNode()

	s.Run("links and lists", func() {
		s.Require().NoError(s.service.LinkEvidence(s.ctx, c.ID, nodeID))

		nodes, _, err := s.service.Evidence(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Require().Len(nodes, 1)
		s.Equal(nodeID, nodes[0].ID)
	})

	s.Run("duplicate link conflicts", func() {
		err := s.service.LinkEvidence(s.ctx, c.ID, nodeID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("unknown node", func() {
		err := s.service.LinkEvidence(s.ctx, c.ID, domain.NewEvidenceNodeID())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("unknown case", func() {
		err := s.service.LinkEvidence(s.ctx, domain.NewAuditCaseID(), nodeID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}
