package auditcase

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
	txcontext "railledger/pkg/platform/tx"
)

// Postgres persists audit cases and evidence links.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit case store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

func (s *Postgres) CreateCase(ctx context.Context, c *AuditCase) error {
	query := `
		INSERT INTO audit_cases (id, name, description, opened_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID), c.Name, c.Description, c.OpenedBy, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit case: %w", err)
	}
	return nil
}

func (s *Postgres) GetCase(ctx context.Context, id domain.AuditCaseID) (*AuditCase, error) {
	query := `SELECT id, name, description, opened_by, created_at FROM audit_cases WHERE id = $1`
	var (
		c      AuditCase
		caseID uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).
		Scan(&caseID, &c.Name, &c.Description, &c.OpenedBy, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get audit case: %w", err)
	}
	c.ID = domain.AuditCaseID(caseID)
	return &c, nil
}

func (s *Postgres) ListCases(ctx context.Context) ([]AuditCase, error) {
	query := `SELECT id, name, description, opened_by, created_at FROM audit_cases ORDER BY created_at ASC, id ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query audit cases: %w", err)
	}
	defer rows.Close()

	var out []AuditCase
	for rows.Next() {
		var (
			c      AuditCase
			caseID uuid.UUID
		)
		if err := rows.Scan(&caseID, &c.Name, &c.Description, &c.OpenedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit case: %w", err)
		}
		c.ID = domain.AuditCaseID(caseID)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit cases: %w", err)
	}
	return out, nil
}

func (s *Postgres) CreateLink(ctx context.Context, link *EvidenceLink) error {
	query := `
		INSERT INTO audit_evidence_links (case_id, node_id, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(link.CaseID), uuid.UUID(link.NodeID), link.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return sentinel.ErrConflict
			case "foreign_key_violation":
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("insert evidence link: %w", err)
	}
	return nil
}

func (s *Postgres) ListLinks(ctx context.Context, caseID domain.AuditCaseID) ([]EvidenceLink, error) {
	query := `
		SELECT case_id, node_id, created_at
		FROM audit_evidence_links
		WHERE case_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("query evidence links: %w", err)
	}
	defer rows.Close()

	var out []EvidenceLink
	for rows.Next() {
		var (
			l      EvidenceLink
			cID    uuid.UUID
			nodeID uuid.UUID
		)
		if err := rows.Scan(&cID, &nodeID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence link: %w", err)
		}
		l.CaseID = domain.AuditCaseID(cID)
		l.NodeID = domain.EvidenceNodeID(nodeID)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence links: %w", err)
	}
	return out, nil
}
