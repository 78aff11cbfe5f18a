package certification

import (
	"context"
	"errors"
	"time"

	"railledger/internal/evidence"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/sentinel"
	"railledger/pkg/requestcontext"
)

// maxChainLength bounds correction-chain walks. A chain anywhere near this
// long means the data is corrupt, not that a record was corrected often.
const maxChainLength = 1000

// Service orchestrates certification writes through the evidence wrapper and
// serves derived-status reads.
type Service struct {
	store    Store
	evidence *evidence.Service
}

// NewService wires the certification service.
func NewService(store Store, ev *evidence.Service) *Service {
	return &Service{store: store, evidence: ev}
}

// CreateInput carries the fields for a new certification row.
type CreateInput struct {
	EmployeeID       domain.EmployeeID
	Type             string
	IssuingAuthority string
	IssueDate        *time.Time
	ExpirationDate   *time.Time
	NonExpiring      bool
	ProofRef         string
}

// Create inserts a certification and its evidence atomically. Presets at
// onboarding call this with empty proof, producing an INCOMPLETE row.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Certification, error) {
	if in.EmployeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "employee id is required")
	}
	if in.Type == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "certification type is required")
	}

	var cert *Certification
	_, err := s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: EntityType,
		EntityID:   evidence.PendingEntityID,
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventCertificationCreated,
		Payload: evidence.Payload{
			"employee_id":        in.EmployeeID.String(),
			"certification_type": in.Type,
			"issuing_authority":  in.IssuingAuthority,
			"non_expiring":       in.NonExpiring,
			"has_proof":          in.IssueDate != nil && in.ProofRef != "",
		},
	}, func(ctx context.Context) (string, error) {
		now := requestcontext.Now(ctx)
		cert = &Certification{
			ID:               domain.NewCertificationID(),
			EmployeeID:       in.EmployeeID,
			Type:             in.Type,
			IssuingAuthority: in.IssuingAuthority,
			IssueDate:        in.IssueDate,
			ExpirationDate:   in.ExpirationDate,
			NonExpiring:      in.NonExpiring,
			ProofRef:         in.ProofRef,
			CreatedAt:        now,
		}
		cert.Status = DeriveStatus(cert, now)
		if err := s.store.Create(ctx, cert); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "create certification")
		}
		return cert.ID.String(), nil
	})
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// RecordProof fills the proof fields of an INCOMPLETE certification. Already
// recorded facts cannot be changed this way; that requires a correction.
func (s *Service) RecordProof(ctx context.Context, id domain.CertificationID, issueDate time.Time, expirationDate *time.Time, proofRef string) (*Certification, error) {
	if proofRef == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "proof reference is required")
	}

	payload := evidence.Payload{
		"issue_date": issueDate.UTC().Format(time.RFC3339),
		"proof_ref":  proofRef,
	}
	if expirationDate != nil {
		payload["expiration_date"] = expirationDate.UTC().Format(time.RFC3339)
	}

	var cert *Certification
	_, err := s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: EntityType,
		EntityID:   id.String(),
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventCertificationUpdated,
		Payload:    payload,
	}, func(ctx context.Context) (string, error) {
		if err := s.store.SetProof(ctx, id, issueDate, expirationDate, proofRef); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return "", dErrors.New(dErrors.CodeNotFound, "certification not found")
			case errors.Is(err, sentinel.ErrInvalidState):
				return "", dErrors.New(dErrors.CodeConflict, "proof already recorded; submit a correction instead")
			}
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "record proof")
		}
		var err error
		cert, err = s.refreshStatus(ctx, id)
		return id.String(), err
	})
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// Revoke marks a certification revoked. The row survives; status derivation
// turns FAIL from here on.
func (s *Service) Revoke(ctx context.Context, id domain.CertificationID, reason string) (*Certification, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "revocation reason is required")
	}

	var cert *Certification
	_, err := s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: EntityType,
		EntityID:   id.String(),
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventCertificationRevoked,
		Payload:    evidence.Payload{"reason": reason},
	}, func(ctx context.Context) (string, error) {
		if err := s.store.SetRevoked(ctx, id, requestcontext.Now(ctx), reason); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return "", dErrors.New(dErrors.CodeNotFound, "certification not found")
			}
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "revoke certification")
		}
		var err error
		cert, err = s.refreshStatus(ctx, id)
		return id.String(), err
	})
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// Get returns a certification by id.
func (s *Service) Get(ctx context.Context, id domain.CertificationID) (*Certification, error) {
	cert, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get certification")
	}
	return cert, nil
}

// ListByEmployee returns an employee's certifications.
func (s *Service) ListByEmployee(ctx context.Context, employeeID domain.EmployeeID) ([]Certification, error) {
	certs, err := s.store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list certifications")
	}
	return certs, nil
}

func (s *Service) refreshStatus(ctx context.Context, id domain.CertificationID) (*Certification, error) {
	cert, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reload certification")
	}
	cert.Status = DeriveStatus(cert, requestcontext.Now(ctx))
	if err := s.store.SetStatusCache(ctx, id, cert.Status); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cache certification status")
	}
	return cert, nil
}
