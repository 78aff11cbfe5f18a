package employee

import (
	"context"

	"railledger/pkg/domain"
)

// Store persists employee records.
type Store interface {
	// Create inserts an employee.
	Create(ctx context.Context, emp *Employee) error
	// Get returns an employee or sentinel.ErrNotFound.
	Get(ctx context.Context, id domain.EmployeeID) (*Employee, error)
	// List returns all employees, creation-time ascending.
	List(ctx context.Context) ([]Employee, error)
}
