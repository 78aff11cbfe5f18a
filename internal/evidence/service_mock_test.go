package evidence_test

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store,TxRunner

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"railledger/internal/employee"
	"railledger/internal/evidence"
	"railledger/internal/evidence/mocks"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/requestcontext"
)

// WithEvidence's atomicity has two halves. The plain suite covers a failing
// domain action; this suite covers the other half, where the action commits
// its rows and the ledger write itself fails mid-transaction. The mock store
// injects the failure, and a real in-memory domain store under the runner
// shows the action's mutation rolled back with it.

type ServiceMockSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	employees *employee.Memory
	service   *evidence.Service
	ctx       context.Context
}

func TestServiceMockSuite(t *testing.T) {
	suite.Run(t, new(ServiceMockSuite))
}

func (s *ServiceMockSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.employees = employee.NewMemory()
	runner := evidence.NewMemoryRunner(s.employees)
	s.service = evidence.NewService(s.mockStore, runner, slog.New(slog.DiscardHandler))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
}

func (s *ServiceMockSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceMockSuite) TestLedgerWriteFailureRollsBackDomainMutation() {
	s.mockStore.EXPECT().CreateNode(gomock.Any(), gomock.Any()).Return(nil)
	s.mockStore.EXPECT().AppendEntry(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	empID := domain.NewEmployeeID()
	rec := evidence.Record{
		EntityType: employee.EntityType,
		EntityID:   evidence.PendingEntityID,
		ActorType:  domain.ActorUser,
		ActorID:    "hr-1",
		EventType:  evidence.EventEmployeeOnboarded,
		Payload:    evidence.Payload{"role": "flagger"},
	}

	_, err := s.service.WithEvidence(s.ctx, rec, func(ctx context.Context) (string, error) {
		createErr := s.employees.Create(ctx, &employee.Employee{
			ID:         empID,
			Name:       "Dana Reyes",
			Role:       "flagger",
			Contractor: "Acme Rail Services",
			CreatedAt:  requestcontext.Now(ctx),
		})
		return empID.String(), createErr
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInternal))

	// The employee row committed inside the action must not survive the
	// failed ledger append.
	_, err = s.employees.Get(context.Background(), empID)
	s.Require().Error(err)

	all, err := s.employees.List(context.Background())
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *ServiceMockSuite) TestNodeWriteFailureSkipsLedgerAppend() {
	s.mockStore.EXPECT().CreateNode(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	empID := domain.NewEmployeeID()
	rec := evidence.Record{
		EntityType: employee.EntityType,
		EntityID:   empID.String(),
		ActorType:  domain.ActorUser,
		ActorID:    "hr-1",
		EventType:  evidence.EventEmployeeOnboarded,
	}

	_, err := s.service.WithEvidence(s.ctx, rec, func(ctx context.Context) (string, error) {
		createErr := s.employees.Create(ctx, &employee.Employee{ID: empID, Name: "Dana Reyes", Role: "flagger", CreatedAt: requestcontext.Now(ctx)})
		return empID.String(), createErr
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInternal))

	_, err = s.employees.Get(context.Background(), empID)
	s.Require().Error(err)
}
