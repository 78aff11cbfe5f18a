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

// Correct supersedes a certification with a new row carrying the corrected
// fields. The original row is untouched; readers follow correction_of links
// to the current head. A record can be corrected at most once, so racing
// corrections surface as a conflict.
func (s *Service) Correct(ctx context.Context, target domain.CertificationID, reason string, data CorrectionData) (*Certification, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "correction reason is required")
	}
	prior, err := s.store.Get(ctx, target)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load certification")
	}

	var cert *Certification
	_, err = s.evidence.WithEvidence(ctx, evidence.Record{
		EntityType: EntityType,
		EntityID:   evidence.PendingEntityID,
		ActorType:  requestcontext.ActorType(ctx),
		ActorID:    requestcontext.ActorID(ctx),
		EventType:  evidence.EventCertificationCorrected,
		Payload: evidence.Payload{
			"corrects":    target.String(),
			"employee_id": prior.EmployeeID.String(),
			"reason":      reason,
			"diff":        correctionDiff(data),
		},
	}, func(ctx context.Context) (string, error) {
		now := requestcontext.Now(ctx)
		cert = applyCorrection(prior, data)
		cert.ID = domain.NewCertificationID()
		cert.CorrectionOf = &target
		cert.CreatedAt = now
		cert.Status = DeriveStatus(cert, now)
		if err := s.store.Create(ctx, cert); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return "", dErrors.New(dErrors.CodeConflict, "certification was already corrected")
			}
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "create correction")
		}
		return cert.ID.String(), nil
	})
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// correctionDiff records which fields the correction changes and their new
// values, for the evidence payload.
func correctionDiff(data CorrectionData) map[string]any {
	diff := make(map[string]any)
	if data.Type != nil {
		diff["certification_type"] = *data.Type
	}
	if data.IssuingAuthority != nil {
		diff["issuing_authority"] = *data.IssuingAuthority
	}
	if data.IssueDate != nil {
		diff["issue_date"] = data.IssueDate.UTC().Format(time.RFC3339)
	}
	if data.ExpirationDate != nil {
		diff["expiration_date"] = data.ExpirationDate.UTC().Format(time.RFC3339)
	}
	if data.NonExpiring != nil {
		diff["non_expiring"] = *data.NonExpiring
	}
	if data.ProofRef != nil {
		diff["proof_ref"] = *data.ProofRef
	}
	return diff
}

// applyCorrection copies the prior row and overlays the fields the correction
// sets. Revocation state never carries forward; a revoked record stays
// revoked on its own row.
func applyCorrection(prior *Certification, data CorrectionData) *Certification {
	next := *prior
	next.Revoked = prior.Revoked
	next.RevokedAt = prior.RevokedAt
	next.RevokedReason = prior.RevokedReason
	if data.Type != nil {
		next.Type = *data.Type
	}
	if data.IssuingAuthority != nil {
		next.IssuingAuthority = *data.IssuingAuthority
	}
	if data.IssueDate != nil {
		next.IssueDate = data.IssueDate
	}
	if data.ExpirationDate != nil {
		next.ExpirationDate = data.ExpirationDate
	}
	if data.NonExpiring != nil {
		next.NonExpiring = *data.NonExpiring
	}
	if data.ProofRef != nil {
		next.ProofRef = *data.ProofRef
	}
	return &next
}

// Head resolves the current head of a record's correction chain.
func (s *Service) Head(ctx context.Context, id domain.CertificationID) (*Certification, error) {
	chain, err := s.CorrectionChain(ctx, id)
	if err != nil {
		return nil, err
	}
	return &chain[len(chain)-1], nil
}

// CorrectionChain returns the full lineage of a record, oldest first. The id
// may name any link in the chain.
func (s *Service) CorrectionChain(ctx context.Context, id domain.CertificationID) ([]Certification, error) {
	cert, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load certification")
	}

	seen := map[domain.CertificationID]bool{cert.ID: true}

	// Walk back to the root.
	chain := []Certification{*cert}
	for cur := cert; cur.CorrectionOf != nil; {
		if seen[*cur.CorrectionOf] || len(chain) > maxChainLength {
			return nil, dErrors.New(dErrors.CodeIntegrity, "correction chain contains a cycle")
		}
		prev, err := s.store.Get(ctx, *cur.CorrectionOf)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeIntegrity, "correction chain references a missing record")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "walk correction chain")
		}
		seen[prev.ID] = true
		chain = append([]Certification{*prev}, chain...)
		cur = prev
	}

	// Walk forward to the head.
	for cur := &chain[len(chain)-1]; ; {
		next, err := s.store.HeadOf(ctx, cur.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				break
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "walk correction chain")
		}
		if seen[next.ID] || len(chain) > maxChainLength {
			return nil, dErrors.New(dErrors.CodeIntegrity, "correction chain contains a cycle")
		}
		seen[next.ID] = true
		chain = append(chain, *next)
		cur = &chain[len(chain)-1]
	}
	return chain, nil
}
