package employee

import (
	"context"
	"errors"

	"railledger/internal/certification"
	"railledger/internal/evidence"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/sentinel"
	"railledger/pkg/requestcontext"
)

// Service handles onboarding and employee reads. Onboarding is one atomic
// unit: the employee row, one INCOMPLETE certification per required preset,
// and the evidence record commit or abort together.
type Service struct {
	store    Store
	certs    certification.Store
	evidence *evidence.Service
	presets  PresetCatalog
}

// NewService wires the employee service.
func NewService(store Store, certs certification.Store, ev *evidence.Service, presets PresetCatalog) *Service {
	if presets == nil {
		presets = DefaultPresets
	}
	return &Service{store: store, certs: certs, evidence: ev, presets: presets}
}

// OnboardInput carries the fields for a new employee.
type OnboardInput struct {
	Name       string
	Role       string
	Contractor string
}

// Onboard creates the employee and instantiates the role's required
// certifications, all INCOMPLETE until proof is recorded.
func (s *Service) Onboard(ctx context.Context, in OnboardInput) (*Employee, []certification.Certification, error) {
	if in.Name == "" {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "employee name is required")
	}
	presets, ok := s.presets[in.Role]
	if !ok {
		return nil, nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown role %q", in.Role)
	}

	types := make([]string, len(presets))
	for i, p := range presets {
		types[i] = p.CertificationType
	}

	var (
		emp   *Employee
		certs []certification.Certification
	)
	_, err := s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: EntityType,
		EntityID:   evidence.PendingEntityID,
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventEmployeeOnboarded,
		Payload: evidence.Payload{
			"name":           in.Name,
			"role":           in.Role,
			"contractor":     in.Contractor,
			"required_types": types,
		},
	}, func(ctx context.Context) (string, error) {
		now := requestcontext.Now(ctx)
		emp = &Employee{
			ID:         domain.NewEmployeeID(),
			Name:       in.Name,
			Role:       in.Role,
			Contractor: in.Contractor,
			CreatedAt:  now,
		}
		if err := s.store.Create(ctx, emp); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "create employee")
		}

		certs = make([]certification.Certification, 0, len(presets))
		for _, p := range presets {
			cert := certification.Certification{
				ID:               domain.NewCertificationID(),
				EmployeeID:       emp.ID,
				Type:             p.CertificationType,
				IssuingAuthority: p.IssuingAuthority,
				NonExpiring:      p.NonExpiring,
				Status:           domain.StatusIncomplete,
				CreatedAt:        now,
			}
			if err := s.certs.Create(ctx, &cert); err != nil {
				return "", dErrors.Wrap(err, dErrors.CodeInternal, "create preset certification")
			}
			certs = append(certs, cert)
		}
		return emp.ID.String(), nil
	})
	if err != nil {
		return nil, nil, err
	}
	return emp, certs, nil
}

// Get returns an employee by id.
func (s *Service) Get(ctx context.Context, id domain.EmployeeID) (*Employee, error) {
	emp, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get employee")
	}
	return emp, nil
}

// List returns all employees.
func (s *Service) List(ctx context.Context) ([]Employee, error) {
	emps, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list employees")
	}
	return emps, nil
}

// RequiredTypes returns the certification types an employee's role requires.
func (s *Service) RequiredTypes(ctx context.Context, id domain.EmployeeID) ([]string, error) {
	emp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.presets.RequiredTypes(emp.Role), nil
}
