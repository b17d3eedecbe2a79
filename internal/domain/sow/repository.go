package sow

import (
	"context"

	"granja/internal/core/id"
	"granja/internal/domain"
)

// Repository persists sow aggregates as a unit.
//
// Update implements optimistic locking: it succeeds only when the stored
// version equals s.Version, writes s.Version+1 and reflects the new version
// back into s. Otherwise it returns a CONCURRENT_MODIFICATION AppError.
type Repository interface {
	// Create inserts a new aggregate; a duplicate pigId yields DUPLICATE_ENTRY.
	Create(ctx context.Context, s *Sow) error

	// GetByID returns the aggregate or NOT_FOUND.
	GetByID(ctx context.Context, sowID id.ID) (*Sow, error)

	// Update writes the aggregate with optimistic locking.
	Update(ctx context.Context, s *Sow) error

	// Delete removes the aggregate and everything it owns.
	Delete(ctx context.Context, sowID id.ID) error

	// List returns a page of aggregates ordered by pigId.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sow], error)

	// All returns every aggregate with the given status (any when empty).
	All(ctx context.Context, status Status) ([]*Sow, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
