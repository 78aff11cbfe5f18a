//go:build integration

package enforcement_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"railledger/internal/certification"
	"railledger/internal/enforcement"
	"railledger/internal/evidence"
	platformredis "railledger/internal/platform/redis"
	"railledger/pkg/domain"
	"railledger/pkg/requestcontext"
	"railledger/pkg/testutil/containers"
)

type EligibilityCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	certs   *certification.Memory
	service *enforcement.Service
	ctx     context.Context
	now     time.Time
}

func TestEligibilityCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(EligibilityCacheSuite))
}

func (s *EligibilityCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *EligibilityCacheSuite) TearDownSuite() {
	if s.redis != nil {
		_ = s.redis.Client.Close()
		_ = s.redis.Container.Terminate(context.Background())
	}
}

func (s *EligibilityCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))

	s.certs = certification.NewMemory()
	enfStore := enforcement.NewMemory()
	ledger := evidence.NewMemory()
	runner := evidence.NewMemoryRunner(ledger, s.certs, enfStore)
	ev := evidence.NewService(ledger, runner, slog.New(slog.DiscardHandler))
	cache := &platformredis.Client{Client: s.redis.Client}
	s.service = enforcement.NewService(enfStore, s.certs, ev, cache, slog.New(slog.DiscardHandler))

	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithActor(ctx, domain.ActorUser, "dispatcher-1")
}

func (s *EligibilityCacheSuite) passingCert(employeeID domain.EmployeeID) *certification.Certification {
	issued := s.now.AddDate(-1, 0, 0)
	expires := s.now.AddDate(1, 0, 0)
	cert := &certification.Certification{
		ID:             domain.NewCertificationID(),
		EmployeeID:     employeeID,
		Type:           "Roadway Worker Protection",
		IssueDate:      &issued,
		ExpirationDate: &expires,
		ProofRef:       "s3://proofs/rwp.pdf",
		Status:         domain.StatusPass,
		CreatedAt:      s.now,
	}
	s.Require().NoError(s.certs.Create(s.ctx, cert))
	return cert
}

func (s *EligibilityCacheSuite) TestEligibilityIsCached() {
	employeeID := domain.NewEmployeeID()
	s.passingCert(employeeID)

	eligible, err := s.service.IsEmployeeEligible(s.ctx, employeeID)
	s.Require().NoError(err)
	s.True(eligible)

	key := "railledger:eligibility:" + employeeID.String()
	val, err := s.redis.Client.Get(s.ctx, key).Result()
	s.Require().NoError(err)
	s.Equal("1", val)

	ttl, err := s.redis.Client.TTL(s.ctx, key).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, 5*time.Minute)
}

func (s *EligibilityCacheSuite) TestCachedAnswerServedUntilInvalidated() {
	employeeID := domain.NewEmployeeID()
	cert := s.passingCert(employeeID)

	eligible, err := s.service.IsEmployeeEligible(s.ctx, employeeID)
	s.Require().NoError(err)
	s.True(eligible)

	// The stored facts change but the cached answer survives until the next
	// evaluation invalidates it.
	s.Require().NoError(s.certs.SetRevoked(s.ctx, cert.ID, s.now, "issued in error"))

	eligible, err = s.service.IsEmployeeEligible(s.ctx, employeeID)
	s.Require().NoError(err)
	s.True(eligible, "stale cached answer expected before invalidation")

	decision, err := s.service.Evaluate(s.ctx, cert.ID, "safety-audit")
	s.Require().NoError(err)
	s.True(decision.IsBlocked)

	eligible, err = s.service.IsEmployeeEligible(s.ctx, employeeID)
	s.Require().NoError(err)
	s.False(eligible)
}
