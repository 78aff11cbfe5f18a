package certification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
	txcontext "railledger/pkg/platform/tx"
)

const certColumns = `id, employee_id, cert_type, issuing_authority, issue_date, expiration_date,
		non_expiring, proof_ref, revoked, revoked_at, revoked_reason, status, correction_of, created_at`

// Postgres persists certifications. A partial unique index on correction_of
// enforces the single-head guarantee at the engine level; Create maps that
// violation to sentinel.ErrConflict.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certification store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

func (s *Postgres) Create(ctx context.Context, cert *Certification) error {
	query := `
		INSERT INTO certifications (` + certColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	var correctionOf any
	if cert.CorrectionOf != nil {
		correctionOf = uuid.UUID(*cert.CorrectionOf)
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(cert.ID),
		uuid.UUID(cert.EmployeeID),
		cert.Type,
		cert.IssuingAuthority,
		cert.IssueDate,
		cert.ExpirationDate,
		cert.NonExpiring,
		cert.ProofRef,
		cert.Revoked,
		cert.RevokedAt,
		nullableString(cert.RevokedReason),
		string(cert.Status),
		correctionOf,
		cert.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certification: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id domain.CertificationID) (*Certification, error) {
	query := `SELECT ` + certColumns + ` FROM certifications WHERE id = $1`
	cert, err := scanCert(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get certification: %w", err)
	}
	return cert, nil
}

func (s *Postgres) ListByEmployee(ctx context.Context, employeeID domain.EmployeeID) ([]Certification, error) {
	query := `
		SELECT ` + certColumns + `
		FROM certifications
		WHERE employee_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(employeeID))
	if err != nil {
		return nil, fmt.Errorf("query certifications: %w", err)
	}
	defer rows.Close()
	return scanCerts(rows)
}

func (s *Postgres) ListByEmployeeCreatedBefore(ctx context.Context, employeeID domain.EmployeeID, at time.Time) ([]Certification, error) {
	query := `
		SELECT ` + certColumns + `
		FROM certifications
		WHERE employee_id = $1 AND created_at <= $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(employeeID), at)
	if err != nil {
		return nil, fmt.Errorf("query certifications before: %w", err)
	}
	defer rows.Close()
	return scanCerts(rows)
}

func (s *Postgres) HeadOf(ctx context.Context, id domain.CertificationID) (*Certification, error) {
	query := `SELECT ` + certColumns + ` FROM certifications WHERE correction_of = $1`
	cert, err := scanCert(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get correction head: %w", err)
	}
	return cert, nil
}

func (s *Postgres) SetProof(ctx context.Context, id domain.CertificationID, issueDate time.Time, expirationDate *time.Time, proofRef string) error {
	// Guarded in SQL: the update applies only while the proof fields are
	// still empty.
	query := `
		UPDATE certifications
		SET issue_date = $2, expiration_date = $3, proof_ref = $4
		WHERE id = $1 AND issue_date IS NULL AND proof_ref = ''
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), issueDate, expirationDate, proofRef)
	if err != nil {
		return fmt.Errorf("set certification proof: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set certification proof: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) SetRevoked(ctx context.Context, id domain.CertificationID, at time.Time, reason string) error {
	query := `
		UPDATE certifications
		SET revoked = TRUE, revoked_at = $2, revoked_reason = $3
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), at, reason)
	if err != nil {
		return fmt.Errorf("revoke certification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke certification: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) SetStatusCache(ctx context.Context, id domain.CertificationID, status domain.CertStatus) error {
	query := `UPDATE certifications SET status = $2 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), string(status))
	if err != nil {
		return fmt.Errorf("cache certification status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cache certification status: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListExpiringBefore(ctx context.Context, at time.Time) ([]Certification, error) {
	query := `
		SELECT ` + certColumns + `
		FROM certifications
		WHERE revoked = FALSE AND non_expiring = FALSE
		  AND expiration_date IS NOT NULL AND expiration_date < $1
		ORDER BY expiration_date ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("query expiring certifications: %w", err)
	}
	defer rows.Close()
	return scanCerts(rows)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCert(row rowScanner) (*Certification, error) {
	var (
		cert          Certification
		id            uuid.UUID
		employeeID    uuid.UUID
		revokedReason sql.NullString
		status        string
		correctionOf  uuid.NullUUID
	)
	err := row.Scan(&id, &employeeID, &cert.Type, &cert.IssuingAuthority,
		&cert.IssueDate, &cert.ExpirationDate, &cert.NonExpiring, &cert.ProofRef,
		&cert.Revoked, &cert.RevokedAt, &revokedReason, &status, &correctionOf, &cert.CreatedAt)
	if err != nil {
		return nil, err
	}
	cert.ID = domain.CertificationID(id)
	cert.EmployeeID = domain.EmployeeID(employeeID)
	cert.RevokedReason = revokedReason.String
	cert.Status = domain.CertStatus(status)
	if correctionOf.Valid {
		cid := domain.CertificationID(correctionOf.UUID)
		cert.CorrectionOf = &cid
	}
	return &cert, nil
}

func scanCerts(rows *sql.Rows) ([]Certification, error) {
	var certs []Certification
	for rows.Next() {
		cert, err := scanCert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certification: %w", err)
		}
		certs = append(certs, *cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certifications: %w", err)
	}
	return certs, nil
}
