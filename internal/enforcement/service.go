package enforcement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"railledger/internal/certification"
	"railledger/internal/evidence"
	platformredis "railledger/internal/platform/redis"
	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
	"railledger/pkg/platform/sentinel"
	"railledger/pkg/requestcontext"
)

const eligibilityCacheTTL = 5 * time.Minute

// Service evaluates certification enforcement and gates dependent operations.
type Service struct {
	store    Store
	certs    certification.Store
	evidence *evidence.Service
	cache    *platformredis.Client
	logger   *slog.Logger
}

// NewService wires the enforcement service. cache may be nil; eligibility
// reads then always recompute.
func NewService(store Store, certs certification.Store, ev *evidence.Service, cache *platformredis.Client, logger *slog.Logger) *Service {
	return &Service{store: store, certs: certs, evidence: ev, cache: cache, logger: logger}
}

// Evaluate recomputes the block state of one certification from its stored
// facts and the evaluation instant. The cached status column is never
// consulted, so a certification that expired since its last status write
// still blocks. Re-evaluation with unchanged inputs refreshes evaluatedAt and,
// when blocked, appends a fresh EnforcementAction row. Accumulation is
// intentional: the action log records every decision, not every distinct
// state.
func (s *Service) Evaluate(ctx context.Context, certID domain.CertificationID, triggeredBy string) (*Decision, error) {
	cert, err := s.certs.Get(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load certification")
	}

	now := requestcontext.Now(ctx)
	status := certification.DeriveStatus(cert, now)
	decision := &Decision{
		CertificationID: certID,
		IsBlocked:       status != domain.StatusPass,
		BlockedReason:   certification.FailureReason(cert, now),
		EvaluatedAt:     now,
	}

	prior, err := s.store.GetEnforcement(ctx, certID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load enforcement state")
	}

	row := &CertificationEnforcement{
		CertificationID: certID,
		IsBlocked:       decision.IsBlocked,
		BlockedReason:   decision.BlockedReason,
		EvaluatedAt:     now,
	}

	if decision.IsBlocked {
		_, err = s.evidence.WithEvidence(ctx, evidence.Record{
			EntityType: certification.EntityType,
			EntityID:   certID.String(),
			ActorType:  requestcontext.ActorType(ctx),
			ActorID:    requestcontext.ActorID(ctx),
			EventType:  evidence.EventEnforcementBlocked,
			Payload: evidence.Payload{
				"reason":       decision.BlockedReason,
				"triggered_by": triggeredBy,
			},
		}, func(ctx context.Context) (string, error) {
			if err := s.store.UpsertEnforcement(ctx, row); err != nil {
				return "", dErrors.Wrap(err, dErrors.CodeInternal, "upsert enforcement")
			}
			action := &EnforcementAction{
				ID:          domain.NewActionID(),
				ActionType:  ActionCertificationBlock,
				TargetType:  certification.EntityType,
				TargetID:    certID.String(),
				Reason:      decision.BlockedReason,
				TriggeredBy: triggeredBy,
				CreatedAt:   now,
			}
			if err := s.store.AppendAction(ctx, action); err != nil {
				return "", dErrors.Wrap(err, dErrors.CodeInternal, "append enforcement action")
			}
			return certID.String(), nil
		})
		if err != nil {
			return nil, err
		}
		evaluations.WithLabelValues("blocked").Inc()
	} else {
		// Clearing a block is a derived-cache refresh, not an audited domain
		// mutation. The single upsert is atomic on its own.
		if err := s.store.UpsertEnforcement(ctx, row); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "upsert enforcement")
		}
		evaluations.WithLabelValues("clear").Inc()
	}

	switch {
	case decision.IsBlocked && (prior == nil || !prior.IsBlocked):
		blockedCertifications.Inc()
	case !decision.IsBlocked && prior != nil && prior.IsBlocked:
		blockedCertifications.Dec()
	}

	s.invalidateEligibility(ctx, cert.EmployeeID)
	return decision, nil
}

// Enforcement returns the last evaluation for a certification.
func (s *Service) Enforcement(ctx context.Context, certID domain.CertificationID) (*CertificationEnforcement, error) {
	e, err := s.store.GetEnforcement(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification has not been evaluated")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load enforcement state")
	}
	return e, nil
}

// Actions returns the accumulated action rows for a target.
func (s *Service) Actions(ctx context.Context, targetType, targetID string) ([]EnforcementAction, error) {
	actions, err := s.store.ListActionsByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list enforcement actions")
	}
	return actions, nil
}

// IsEmployeeEligible reports whether the employee has zero blocked
// certifications. The answer is cached briefly in Redis; evaluations and gate
// checks invalidate it.
func (s *Service) IsEmployeeEligible(ctx context.Context, employeeID domain.EmployeeID) (bool, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, eligibilityKey(employeeID)).Result(); err == nil {
			return cached == "1", nil
		}
	}

	heads, err := s.headCertifications(ctx, employeeID)
	if err != nil {
		return false, err
	}
	now := requestcontext.Now(ctx)
	eligible := true
	for i := range heads {
		if certification.DeriveStatus(&heads[i], now) != domain.StatusPass {
			eligible = false
			break
		}
	}

	if s.cache != nil {
		val := "0"
		if eligible {
			val = "1"
		}
		if err := s.cache.Set(ctx, eligibilityKey(employeeID), val, eligibilityCacheTTL).Err(); err != nil {
			s.logger.WarnContext(ctx, "failed to cache eligibility", "error", err.Error())
		}
	}
	return eligible, nil
}

// headCertifications returns the employee's certifications with superseded
// correction links removed, so a corrected record counts once.
func (s *Service) headCertifications(ctx context.Context, employeeID domain.EmployeeID) ([]certification.Certification, error) {
	certs, err := s.certs.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list certifications")
	}
	superseded := make(map[domain.CertificationID]bool)
	for i := range certs {
		if certs[i].CorrectionOf != nil {
			superseded[*certs[i].CorrectionOf] = true
		}
	}
	heads := certs[:0]
	for i := range certs {
		if !superseded[certs[i].ID] {
			heads = append(heads, certs[i])
		}
	}
	return heads, nil
}

func (s *Service) invalidateEligibility(ctx context.Context, employeeID domain.EmployeeID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, eligibilityKey(employeeID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate eligibility cache", "error", err.Error())
	}
}

func eligibilityKey(employeeID domain.EmployeeID) string {
	return "railledger:eligibility:" + employeeID.String()
}
