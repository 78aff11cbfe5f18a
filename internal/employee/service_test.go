package employee

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"railledger/internal/certification"
	"railledger/internal/evidence"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	employees *Memory
	certs     *certification.Memory
	ledger    *evidence.Memory
	service   *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.employees = NewMemory()
	s.certs = certification.NewMemory()
	s.ledger = evidence.NewMemory()
	runner := evidence.NewMemoryRunner(s.ledger, s.certs, s.employees)
	ev := evidence.NewService(s.ledger, runner, slog.New(slog.DiscardHandler))
	s.service = NewService(s.employees, s.certs, ev, nil)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	s.ctx = requestcontext.WithActor(ctx, domain.ActorUser, "hr-admin-1")
}

func (s *ServiceSuite) TestOnboard() {
	s.Run("creates employee with one incomplete cert per preset", func() {
		emp, certs, err := s.service.Onboard(s.ctx, OnboardInput{
			Name:       "J. Alvarez",
			Role:       "flagger",
			Contractor: "Summit Rail Services",
		})
		s.Require().NoError(err)
		s.Require().Len(certs, len(DefaultPresets["flagger"]))
		for _, c := range certs {
			s.Equal(domain.StatusIncomplete, c.Status)
			s.Equal(emp.ID, c.EmployeeID)
			s.False(c.HasProof())
		}

		stored, err := s.certs.ListByEmployee(s.ctx, emp.ID)
		s.Require().NoError(err)
		s.Len(stored, len(certs))

		// One evidence node for the onboarding operation.
		nodes, err := s.ledger.ListNodesByEntity(s.ctx, EntityType, emp.ID.String())
		s.Require().NoError(err)
		s.Require().Len(nodes, 1)
		entries, err := s.ledger.ListEntries(s.ctx, nodes[0].ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(evidence.EventEmployeeOnboarded, entries[0].EventType)
	})

	s.Run("unknown role rejected before any write", func() {
		nodesBefore, _ := s.ledger.CountRows()
		_, _, err := s.service.Onboard(s.ctx, OnboardInput{Name: "A. Okafor", Role: "astronaut"})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		nodesAfter, _ := s.ledger.CountRows()
		s.Equal(nodesBefore, nodesAfter)
	})

	s.Run("missing name rejected", func() {
		_, _, err := s.service.Onboard(s.ctx, OnboardInput{Role: "flagger"})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestRequiredTypes() {
	emp, _, err := s.service.Onboard(s.ctx, OnboardInput{Name: "M. Chen", Role: "track_worker"})
	s.Require().NoError(err)

	types, err := s.service.RequiredTypes(s.ctx, emp.ID)
	s.Require().NoError(err)
	s.Equal([]string{"Roadway Worker Protection", "Track Safety Standards"}, types)

	_, err = s.service.RequiredTypes(s.ctx, domain.NewEmployeeID())
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
