package sweep

import (
	"context"
	"log/slog"
	"time"

	"railledger/internal/certification"
	"railledger/internal/enforcement"
	"railledger/internal/evidence"
	"railledger/pkg/domain"
	"railledger/pkg/requestcontext"
)

// expirationJobName is recorded as triggeredBy on enforcement actions the
// sweep causes.
const expirationJobName = "expiration-sweep"

// ExpirationSweep finds certifications past their expiration date whose
// cached status has not caught up, records the expiration as evidence, and
// re-evaluates enforcement. Re-running with unchanged state appends no new
// expiration events; enforcement actions accumulate per pass.
type ExpirationSweep struct {
	certs       certification.Store
	enforcement *enforcement.Service
	evidence    *evidence.Service
	logger      *slog.Logger
}

// NewExpirationSweep wires the expiration sweep.
func NewExpirationSweep(certs certification.Store, enf *enforcement.Service, ev *evidence.Service, logger *slog.Logger) *ExpirationSweep {
	return &ExpirationSweep{certs: certs, enforcement: enf, evidence: ev, logger: logger}
}

// Run performs one sweep pass.
func (s *ExpirationSweep) Run(ctx context.Context) error {
	ctx = requestcontext.WithActor(ctx, domain.ActorSystem, expirationJobName)
	now := requestcontext.Now(ctx)

	expired, err := s.certs.ListExpiringBefore(ctx, now)
	if err != nil {
		return err
	}

	var transitioned int
	for i := range expired {
		cert := &expired[i]
		// A record without proof derives INCOMPLETE even past its expiration
		// date; only records that actually derive FAIL get the expired event.
		if certification.DeriveStatus(cert, now) == domain.StatusFail && cert.Status != domain.StatusFail {
			if err := s.markExpired(ctx, cert, now); err != nil {
				return err
			}
			transitioned++
		}
		if _, err := s.enforcement.Evaluate(ctx, cert.ID, expirationJobName); err != nil {
			return err
		}
	}

	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "expiration sweep pass",
			"expired", len(expired),
			"transitioned", transitioned,
		)
	}
	return nil
}

func (s *ExpirationSweep) markExpired(ctx context.Context, cert *certification.Certification, now time.Time) error {
	_, err := s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: certification.EntityType,
		EntityID:   cert.ID.String(),
		ActorType:  domain.ActorSystem,
		ActorID:    expirationJobName,
		EventType:  evidence.EventCertificationExpired,
		Payload: evidence.Payload{
			"employee_id":     cert.EmployeeID.String(),
			"expiration_date": cert.ExpirationDate.UTC().Format(time.RFC3339),
		},
	}, func(ctx context.Context) (string, error) {
		if err := s.certs.SetStatusCache(ctx, cert.ID, domain.StatusFail); err != nil {
			return "", err
		}
		return cert.ID.String(), nil
	})
	return err
}
