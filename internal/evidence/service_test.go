package evidence

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *Memory
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemory()
	runner := NewMemoryRunner(s.store)
	s.service = NewService(s.store, runner, slog.New(slog.DiscardHandler))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) record() Record {
	return Record{
		EntityType: "Certification",
		EntityID:   "cert-1",
		ActorType:  domain.ActorUser,
		ActorID:    "user-1",
		EventType:  EventCertificationUpdated,
		Payload:    Payload{"field": "expiration_date"},
	}
}

func (s *ServiceSuite) TestWithEvidence() {
	s.Run("commits mutation, node, and entry together", func() {
		var actionRan bool
		node, err := s.service.WithEvidence(s.ctx, s.record(), func(ctx context.Context) (string, error) {
			actionRan = true
			return "cert-1", nil
		})
		s.Require().NoError(err)
		s.True(actionRan)
		s.Equal("Certification", node.EntityType)
		s.Equal("cert-1", node.EntityID)

		entries, err := s.store.ListEntries(s.ctx, node.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(EventCertificationUpdated, entries[0].EventType)
		s.Empty(entries[0].PrevHash)
		s.NotEmpty(entries[0].Hash)
	})

	s.Run("failing action leaves zero trace", func() {
		fresh := NewMemory()
		svc := NewService(fresh, NewMemoryRunner(fresh), slog.New(slog.DiscardHandler))

		_, err := svc.WithEvidence(s.ctx, s.record(), func(ctx context.Context) (string, error) {
			return "", errors.New("domain mutation failed")
		})
		s.Require().Error(err)

		nodes, entries := fresh.CountRows()
		s.Zero(nodes)
		s.Zero(entries)
	})

	s.Run("evidence write failure rolls back with the action", func() {
		fresh := NewMemory()
		svc := NewService(fresh, NewMemoryRunner(fresh), slog.New(slog.DiscardHandler))

		rec := s.record()
		rec.EntityID = PendingEntityID
		_, err := svc.WithEvidence(s.ctx, rec, func(ctx context.Context) (string, error) {
			// Action succeeds but never resolves the placeholder.
			return "", nil
		})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))

		nodes, entries := fresh.CountRows()
		s.Zero(nodes)
		s.Zero(entries)
	})

	s.Run("resolves pending entity id from the action result", func() {
		rec := s.record()
		rec.EntityID = PendingEntityID
		node, err := s.service.WithEvidence(s.ctx, rec, func(ctx context.Context) (string, error) {
			return "cert-created-7", nil
		})
		s.Require().NoError(err)
		s.Equal("cert-created-7", node.EntityID)
	})

	s.Run("rejects malformed records before running the action", func() {
		rec := s.record()
		rec.ActorID = ""
		ran := false
		_, err := s.service.WithEvidence(s.ctx, rec, func(ctx context.Context) (string, error) {
			ran = true
			return "cert-1", nil
		})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.False(ran)
	})
}

func (s *ServiceSuite) TestAppendLedgerEntry() {
	s.Run("extends the hash chain", func() {
		node, err := s.service.WithEvidence(s.ctx, s.record(), func(ctx context.Context) (string, error) {
			return "cert-1", nil
		})
		s.Require().NoError(err)

		later := requestcontext.WithTime(s.ctx, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
		entry, err := s.service.AppendLedgerEntry(later, node.ID, EventCertificationExpired, Payload{"expired_on": "2025-06-01"})
		s.Require().NoError(err)

		entries, err := s.store.ListEntries(s.ctx, node.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(entries[0].Hash, entry.PrevHash)
		s.NoError(VerifyChain(entries))
	})

	s.Run("fails with not-found for a missing node", func() {
		_, err := s.service.AppendLedgerEntry(s.ctx, domain.NewEvidenceNodeID(), EventCertificationExpired, nil)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestVerifyTrail() {
	node, err := s.service.WithEvidence(s.ctx, s.record(), func(ctx context.Context) (string, error) {
		return "cert-1", nil
	})
	s.Require().NoError(err)
	s.Require().NotNil(node)

	s.Run("passes on intact history", func() {
		s.NoError(s.service.VerifyTrail(s.ctx, "Certification", "cert-1"))
	})
}

func (s *ServiceSuite) TestWriteEvidenceNode() {
	s.Run("records access without a ledger entry", func() {
		node, err := s.service.WriteEvidenceNode(s.ctx, "Employee", "emp-1", domain.ActorRegulator, "inspector-3")
		s.Require().NoError(err)

		entries, err := s.store.ListEntries(s.ctx, node.ID)
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("requires an entity id", func() {
		_, err := s.service.WriteEvidenceNode(s.ctx, "Employee", "", domain.ActorRegulator, "inspector-3")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestArchivalIsTheOnlyMutation() {
	node, err := s.service.WithEvidence(s.ctx, s.record(), func(ctx context.Context) (string, error) {
		return "cert-1", nil
	})
	s.Require().NoError(err)

	cutoff := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	n, err := s.store.ArchiveNodesBefore(s.ctx, cutoff, cutoff)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	archived, err := s.store.GetNode(s.ctx, node.ID)
	s.Require().NoError(err)
	s.True(archived.Archived)
	s.Require().NotNil(archived.ArchivedAt)

	// Everything but the archived flag is untouched.
	s.Equal(node.EntityID, archived.EntityID)
	s.Equal(node.CreatedAt, archived.CreatedAt)
}
