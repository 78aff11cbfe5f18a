package sweep

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"railledger/internal/certification"
	"railledger/internal/enforcement"
	"railledger/internal/evidence"
	"railledger/pkg/domain"
	"railledger/pkg/requestcontext"
)

type SweepSuite struct {
	suite.Suite
	certs  *certification.Memory
	enf    *enforcement.Memory
	ledger *evidence.Memory
	sweep  *ExpirationSweep
	ctx    context.Context
	now    time.Time
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) SetupTest() {
	s.certs = certification.NewMemory()
	s.enf = enforcement.NewMemory()
	s.ledger = evidence.NewMemory()
	runner := evidence.NewMemoryRunner(s.ledger, s.certs, s.enf)
	ev := evidence.NewService(s.ledger, runner, slog.New(slog.DiscardHandler))
	enfService := enforcement.NewService(s.enf, s.certs, ev, nil, slog.New(slog.DiscardHandler))
	s.sweep = NewExpirationSweep(s.certs, enfService, ev, slog.New(slog.DiscardHandler))

	s.now = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *SweepSuite) seedCert(expiration time.Time, status domain.CertStatus) domain.CertificationID {
	issued := expiration.AddDate(-2, 0, 0)
	cert := &certification.Certification{
		ID:             domain.NewCertificationID(),
		EmployeeID:     domain.NewEmployeeID(),
		Type:           "Roadway Worker Protection",
		IssueDate:      &issued,
		ExpirationDate: &expiration,
		ProofRef:       "s3://proofs/rwp.pdf",
		Status:         status,
		CreatedAt:      issued,
	}
	s.Require().NoError(s.certs.Create(s.ctx, cert))
	return cert.ID
}

func (s *SweepSuite) expirationEvents(certID domain.CertificationID) int {
	nodes, err := s.ledger.ListNodesByEntity(s.ctx, certification.EntityType, certID.String())
	s.Require().NoError(err)
	count := 0
	for _, n := range nodes {
		entries, err := s.ledger.ListEntries(s.ctx, n.ID)
		s.Require().NoError(err)
		for _, e := range entries {
			if e.EventType == evidence.EventCertificationExpired {
				count++
			}
		}
	}
	return count
}

func (s *SweepSuite) TestExpirationSweep() {
	staleID := s.seedCert(s.now.AddDate(0, -1, 0), domain.StatusPass)
	currentID := s.seedCert(s.now.AddDate(1, 0, 0), domain.StatusPass)

	s.Require().NoError(s.sweep.Run(s.ctx))

	// The stale row transitioned and gained an expiration event.
	stale, err := s.certs.Get(s.ctx, staleID)
	s.Require().NoError(err)
	s.Equal(domain.StatusFail, stale.Status)
	s.Equal(1, s.expirationEvents(staleID))

	row, err := s.enf.GetEnforcement(s.ctx, staleID)
	s.Require().NoError(err)
	s.True(row.IsBlocked)

	// The unexpired row was untouched.
	current, err := s.certs.Get(s.ctx, currentID)
	s.Require().NoError(err)
	s.Equal(domain.StatusPass, current.Status)
	s.Equal(0, s.expirationEvents(currentID))
	_, err = s.enf.GetEnforcement(s.ctx, currentID)
	s.Error(err)
}

func (s *SweepSuite) TestExpiredWithoutProofStaysIncomplete() {
	expiration := s.now.AddDate(0, -1, 0)
	cert := &certification.Certification{
		ID:             domain.NewCertificationID(),
		EmployeeID:     domain.NewEmployeeID(),
		Type:           "Roadway Worker Protection",
		ExpirationDate: &expiration,
		Status:         domain.StatusIncomplete,
		CreatedAt:      expiration.AddDate(-2, 0, 0),
	}
	s.Require().NoError(s.certs.Create(s.ctx, cert))

	s.Require().NoError(s.sweep.Run(s.ctx))

	// Without proof the record derives INCOMPLETE, expired date or not; the
	// sweep must not rewrite it to FAIL or record an expiration.
	stored, err := s.certs.Get(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusIncomplete, stored.Status)
	s.Equal(0, s.expirationEvents(cert.ID))

	// Enforcement still evaluates it as blocked, for missing proof.
	row, err := s.enf.GetEnforcement(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.True(row.IsBlocked)
	s.Contains(row.BlockedReason, "proof")
}

func (s *SweepSuite) TestRerunAppendsNoNewExpirationEvents() {
	staleID := s.seedCert(s.now.AddDate(0, -1, 0), domain.StatusPass)

	s.Require().NoError(s.sweep.Run(s.ctx))
	actionsAfterFirst := s.enf.CountActions()

	s.Require().NoError(s.sweep.Run(s.ctx))

	// State transition happened once; the expiration event is not repeated.
	s.Equal(1, s.expirationEvents(staleID))
	// Enforcement actions accumulate, one per blocked evaluation.
	s.Equal(actionsAfterFirst+1, s.enf.CountActions())
}

func (s *SweepSuite) TestArchivalSweep() {
	old := s.now.AddDate(-8, 0, 0)
	node := &evidence.Node{
		ID:         domain.NewEvidenceNodeID(),
		EntityType: "Certification",
		EntityID:   "cert-old",
		ActorType:  domain.ActorSystem,
		ActorID:    "importer",
		CreatedAt:  old,
	}
	s.Require().NoError(s.ledger.CreateNode(s.ctx, node))

	archival := NewArchivalSweep(s.ledger, 7*365*24*time.Hour, slog.New(slog.DiscardHandler))
	s.Require().NoError(archival.Run(s.ctx))

	stored, err := s.ledger.GetNode(s.ctx, node.ID)
	s.Require().NoError(err)
	s.True(stored.Archived)
	s.Require().NotNil(stored.ArchivedAt)

	// Second pass archives nothing new.
	s.Require().NoError(archival.Run(s.ctx))
	again, err := s.ledger.GetNode(s.ctx, node.ID)
	s.Require().NoError(err)
	s.Equal(stored.ArchivedAt, again.ArchivedAt)
}

func (s *SweepSuite) TestSchedulerStopsOnCancel() {
	runs := make(chan struct{}, 8)
	sched := NewScheduler(slog.New(slog.DiscardHandler), Job{
		Name:     "test",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs <- struct{}{}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Start(ctx) }()

	<-runs
	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("scheduler did not stop after cancel")
	}
}
