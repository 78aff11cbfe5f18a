package enforcement

import (
	"context"

	"railledger/pkg/domain"
)

// Store persists enforcement state and the action log.
type Store interface {
	// UpsertEnforcement writes the 1:1 derived row for a certification,
	// replacing any previous evaluation.
	UpsertEnforcement(ctx context.Context, e *CertificationEnforcement) error
	// GetEnforcement returns the derived row or sentinel.ErrNotFound when the
	// certification has never been evaluated.
	GetEnforcement(ctx context.Context, certID domain.CertificationID) (*CertificationEnforcement, error)
	// AppendAction inserts one action row. Rows accumulate; there is no
	// update or delete path.
	AppendAction(ctx context.Context, a *EnforcementAction) error
	// ListActionsByTarget returns the action rows for a target, creation-time
	// ascending.
	ListActionsByTarget(ctx context.Context, targetType, targetID string) ([]EnforcementAction, error)
}
