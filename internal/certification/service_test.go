package certification

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
	certs    *Memory
	ledger   *evidence.Memory
	service  *Service
	ctx      context.Context
	employee domain.EmployeeID
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.certs = NewMemory()
	s.ledger = evidence.NewMemory()
	runner := evidence.NewMemoryRunner(s.ledger, s.certs)
	ev := evidence.NewService(s.ledger, runner, slog.New(slog.DiscardHandler))
	s.service = NewService(s.certs, ev)

	s.employee = domain.NewEmployeeID()
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithActor(ctx, domain.ActorUser, "compliance-officer-1")
}

func (s *ServiceSuite) create(in CreateInput) *Certification {
	if in.EmployeeID.IsNil() {
		in.EmployeeID = s.employee
	}
	if in.Type == "" {
		in.Type = "Roadway Worker Protection"
	}
	cert, err := s.service.Create(s.ctx, in)
	s.Require().NoError(err)
	return cert
}

func (s *ServiceSuite) TestCreate() {
	s.Run("new certification starts incomplete and leaves evidence", func() {
		cert := s.create(CreateInput{IssuingAuthority: "FRA"})
		s.Equal(domain.StatusIncomplete, cert.Status)

		nodes, err := s.ledger.ListNodesByEntity(s.ctx, EntityType, cert.ID.String())
		s.Require().NoError(err)
		s.Require().Len(nodes, 1)
		entries, err := s.ledger.ListEntries(s.ctx, nodes[0].ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(evidence.EventCertificationCreated, entries[0].EventType)
	})

	s.Run("created with proof derives from the dates", func() {
		issued := s.now.AddDate(-1, 0, 0)
		expires := s.now.AddDate(1, 0, 0)
		cert := s.create(CreateInput{
			Type:           "Track Safety",
			IssueDate:      &issued,
			ExpirationDate: &expires,
			ProofRef:       "s3://proofs/ts.pdf",
		})
		s.Equal(domain.StatusPass, cert.Status)
	})

	s.Run("rejects missing employee", func() {
		_, err := s.service.Create(s.ctx, CreateInput{Type: "Track Safety"})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects missing type", func() {
		_, err := s.service.Create(s.ctx, CreateInput{EmployeeID: s.employee})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestRecordProof() {
	s.Run("fills empty proof and recomputes status", func() {
		cert := s.create(CreateInput{})
		issued := s.now.AddDate(0, -1, 0)
		expires := s.now.AddDate(2, 0, 0)

		updated, err := s.service.RecordProof(s.ctx, cert.ID, issued, &expires, "s3://proofs/rwp.pdf")
		s.Require().NoError(err)
		s.Equal(domain.StatusPass, updated.Status)
		s.Equal("s3://proofs/rwp.pdf", updated.ProofRef)
	})

	s.Run("refuses to overwrite recorded proof", func() {
		issued := s.now.AddDate(0, -1, 0)
		cert := s.create(CreateInput{IssueDate: &issued, NonExpiring: true, ProofRef: "s3://proofs/a.pdf"})

		_, err := s.service.RecordProof(s.ctx, cert.ID, s.now, nil, "s3://proofs/b.pdf")
		s.True(dErrors.Is(err, dErrors.CodeConflict))

		stored, err := s.certs.Get(s.ctx, cert.ID)
		s.Require().NoError(err)
		s.Equal("s3://proofs/a.pdf", stored.ProofRef)
	})

	s.Run("unknown certification", func() {
		_, err := s.service.RecordProof(s.ctx, domain.NewCertificationID(), s.now, nil, "ref")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestRevoke() {
	issued := s.now.AddDate(-1, 0, 0)
	cert := s.create(CreateInput{IssueDate: &issued, NonExpiring: true, ProofRef: "s3://proofs/x.pdf"})
	s.Equal(domain.StatusPass, cert.Status)

	revoked, err := s.service.Revoke(s.ctx, cert.ID, "issued by a decertified trainer")
	s.Require().NoError(err)
	s.True(revoked.Revoked)
	s.Equal(domain.StatusFail, revoked.Status)

	// The row is still there, marked, not deleted.
	stored, err := s.certs.Get(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.True(stored.Revoked)
	s.Equal("issued by a decertified trainer", stored.RevokedReason)

	nodes, err := s.ledger.ListNodesByEntity(s.ctx, EntityType, cert.ID.String())
	s.Require().NoError(err)
	s.Require().Len(nodes, 2)

	_, err = s.service.Revoke(s.ctx, cert.ID, "")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestCorrect() {
	s.Run("original row is untouched by a correction", func() {
		issued := s.now.AddDate(-1, 0, 0)
		wrongExpiry := s.now.AddDate(-1, 6, 0)
		cert := s.create(CreateInput{IssueDate: &issued, ExpirationDate: &wrongExpiry, ProofRef: "s3://proofs/c.pdf"})
		before, err := s.certs.Get(s.ctx, cert.ID)
		s.Require().NoError(err)

		rightExpiry := s.now.AddDate(1, 6, 0)
		head, err := s.service.Correct(s.ctx, cert.ID, "clerical date error", CorrectionData{ExpirationDate: &rightExpiry})
		s.Require().NoError(err)
		s.NotEqual(cert.ID, head.ID)
		s.Require().NotNil(head.CorrectionOf)
		s.Equal(cert.ID, *head.CorrectionOf)
		s.Equal(domain.StatusPass, head.Status)
		s.Equal("s3://proofs/c.pdf", head.ProofRef)

		after, err := s.certs.Get(s.ctx, cert.ID)
		s.Require().NoError(err)
		s.Equal(before, after)
	})

	s.Run("second correction of the same record conflicts", func() {
		cert := s.create(CreateInput{})
		newType := "Bridge Worker Safety"
		_, err := s.service.Correct(s.ctx, cert.ID, "wrong type entered", CorrectionData{Type: &newType})
		s.Require().NoError(err)

		otherType := "Flagging"
		_, err = s.service.Correct(s.ctx, cert.ID, "second attempt", CorrectionData{Type: &otherType})
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("unknown target", func() {
		_, err := s.service.Correct(s.ctx, domain.NewCertificationID(), "typo", CorrectionData{})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestCorrectionChain() {
	a := s.create(CreateInput{})
	authB := "AAR"
	b, err := s.service.Correct(s.ctx, a.ID, "authority misspelled", CorrectionData{IssuingAuthority: &authB})
	s.Require().NoError(err)
	authC := "FRA"
	c, err := s.service.Correct(s.ctx, b.ID, "authority changed again", CorrectionData{IssuingAuthority: &authC})
	s.Require().NoError(err)

	// Oldest first, from any link in the chain.
	for _, start := range []domain.CertificationID{a.ID, b.ID, c.ID} {
		chain, err := s.service.CorrectionChain(s.ctx, start)
		s.Require().NoError(err)
		s.Require().Len(chain, 3)
		s.Equal(a.ID, chain[0].ID)
		s.Equal(b.ID, chain[1].ID)
		s.Equal(c.ID, chain[2].ID)
	}

	head, err := s.service.Head(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, head.ID)
}

func (s *ServiceSuite) TestCorrectionChainCycle() {
	// Forge a cycle directly in the store. The service must refuse to loop.
	aID := domain.NewCertificationID()
	bID := domain.NewCertificationID()
	s.Require().NoError(s.certs.Create(s.ctx, &Certification{
		ID: aID, EmployeeID: s.employee, Type: "Flagging", CorrectionOf: &bID, CreatedAt: s.now,
	}))
	s.Require().NoError(s.certs.Create(s.ctx, &Certification{
		ID: bID, EmployeeID: s.employee, Type: "Flagging", CorrectionOf: &aID, CreatedAt: s.now,
	}))

	_, err := s.service.CorrectionChain(s.ctx, aID)
	s.True(dErrors.Is(err, dErrors.CodeIntegrity))
}

func (s *ServiceSuite) TestFailedActionLeavesNoEvidence() {
	nodesBefore, entriesBefore := s.ledger.CountRows()

	_, err := s.service.Create(s.ctx, CreateInput{EmployeeID: s.employee, Type: ""})
	s.Require().Error(err)

	nodesAfter, entriesAfter := s.ledger.CountRows()
	s.Equal(nodesBefore, nodesAfter)
	s.Equal(entriesBefore, entriesAfter)
	certs, err := s.certs.ListByEmployee(s.ctx, s.employee)
	s.Require().NoError(err)
	s.Empty(certs)
}
