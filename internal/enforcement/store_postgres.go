package enforcement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
	txcontext "railledger/pkg/platform/tx"
)

// Postgres persists enforcement rows and the action log.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed enforcement store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

func (s *Postgres) UpsertEnforcement(ctx context.Context, e *CertificationEnforcement) error {
	query := `
		INSERT INTO certification_enforcements (certification_id, is_blocked, blocked_reason, evaluated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (certification_id)
		DO UPDATE SET is_blocked = EXCLUDED.is_blocked,
		              blocked_reason = EXCLUDED.blocked_reason,
		              evaluated_at = EXCLUDED.evaluated_at
	`
	var reason any
	if e.BlockedReason != "" {
		reason = e.BlockedReason
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.CertificationID), e.IsBlocked, reason, e.EvaluatedAt)
	if err != nil {
		return fmt.Errorf("upsert enforcement: %w", err)
	}
	return nil
}

func (s *Postgres) GetEnforcement(ctx context.Context, certID domain.CertificationID) (*CertificationEnforcement, error) {
	query := `
		SELECT certification_id, is_blocked, blocked_reason, evaluated_at
		FROM certification_enforcements
		WHERE certification_id = $1
	`
	var (
		e      CertificationEnforcement
		id     uuid.UUID
		reason sql.NullString
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(certID)).
		Scan(&id, &e.IsBlocked, &reason, &e.EvaluatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get enforcement: %w", err)
	}
	e.CertificationID = domain.CertificationID(id)
	e.BlockedReason = reason.String
	return &e, nil
}

func (s *Postgres) AppendAction(ctx context.Context, a *EnforcementAction) error {
	query := `
		INSERT INTO enforcement_actions (id, action_type, target_type, target_id, reason, triggered_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), string(a.ActionType), a.TargetType, a.TargetID,
		a.Reason, a.TriggeredBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert enforcement action: %w", err)
	}
	return nil
}

func (s *Postgres) ListActionsByTarget(ctx context.Context, targetType, targetID string) ([]EnforcementAction, error) {
	query := `
		SELECT id, action_type, target_type, target_id, reason, triggered_by, created_at
		FROM enforcement_actions
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("query enforcement actions: %w", err)
	}
	defer rows.Close()

	var out []EnforcementAction
	for rows.Next() {
		var (
			a          EnforcementAction
			id         uuid.UUID
			actionType string
		)
		if err := rows.Scan(&id, &actionType, &a.TargetType, &a.TargetID, &a.Reason, &a.TriggeredBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enforcement action: %w", err)
		}
		a.ID = domain.ActionID(id)
		a.ActionType = ActionType(actionType)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enforcement actions: %w", err)
	}
	return out, nil
}
