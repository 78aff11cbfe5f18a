package employee

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"railledger/pkg/domain"
	"railledger/pkg/platform/sentinel"
	txcontext "railledger/pkg/platform/tx"
)

// Postgres persists employee records.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed employee store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

func (s *Postgres) Create(ctx context.Context, emp *Employee) error {
	query := `
		INSERT INTO employees (id, name, role, contractor, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(emp.ID), emp.Name, emp.Role, emp.Contractor, emp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id domain.EmployeeID) (*Employee, error) {
	query := `SELECT id, name, role, contractor, created_at FROM employees WHERE id = $1`
	var (
		emp   Employee
		empID uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).
		Scan(&empID, &emp.Name, &emp.Role, &emp.Contractor, &emp.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	emp.ID = domain.EmployeeID(empID)
	return &emp, nil
}

func (s *Postgres) List(ctx context.Context) ([]Employee, error) {
	query := `SELECT id, name, role, contractor, created_at FROM employees ORDER BY created_at ASC, id ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var (
			emp   Employee
			empID uuid.UUID
		)
		if err := rows.Scan(&empID, &emp.Name, &emp.Role, &emp.Contractor, &emp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		emp.ID = domain.EmployeeID(empID)
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}
