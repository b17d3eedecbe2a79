// Package memory provides an in-memory sow store used for tests and
// ephemeral environments. Aggregates are kept encoded, so every read returns
// an independent copy.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/domain"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/storage"
)

// Compile-time check that Store implements sow.Repository.
var _ sow.Repository = (*Store)(nil)

// Store is a mutex-guarded map of encoded aggregates.
type Store struct {
	mu   sync.RWMutex
	rows map[id.ID]storage.Row
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{rows: make(map[id.ID]storage.Row)}
}

// Create implements sow.Repository.
func (s *Store) Create(_ context.Context, agg *sow.Sow) error {
	row, err := storage.Encode(agg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[row.ID]; ok {
		return apperror.NewDuplicate(storage.TableSows, storage.ColID, row.ID.String())
	}
	if s.pigIDTaken(row.PigID, row.ID) {
		return apperror.NewDuplicate(storage.TableSows, "pigId", row.PigID)
	}
	s.rows[row.ID] = row
	return nil
}

// GetByID implements sow.Repository.
func (s *Store) GetByID(_ context.Context, sowID id.ID) (*sow.Sow, error) {
	s.mu.RLock()
	row, ok := s.rows[sowID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.NewNotFound(storage.TableSows, sowID.String())
	}
	return storage.Decode(row)
}

// Update implements sow.Repository with optimistic locking.
func (s *Store) Update(_ context.Context, agg *sow.Sow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rows[agg.ID]
	if !ok {
		return apperror.NewNotFound(storage.TableSows, agg.ID.String())
	}
	if current.Version != agg.Version {
		return apperror.NewConcurrentModification(storage.TableSows, agg.ID)
	}
	if s.pigIDTaken(agg.PigID, agg.ID) {
		return apperror.NewDuplicate(storage.TableSows, "pigId", agg.PigID)
	}

	agg.Version++
	row, err := storage.Encode(agg)
	if err != nil {
		agg.Version--
		return err
	}
	row.CreatedAt = current.CreatedAt
	s.rows[agg.ID] = row
	return nil
}

// Delete implements sow.Repository.
func (s *Store) Delete(_ context.Context, sowID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[sowID]; !ok {
		return apperror.NewNotFound(storage.TableSows, sowID.String())
	}
	delete(s.rows, sowID)
	return nil
}

// List implements sow.Repository.
func (s *Store) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[*sow.Sow], error) {
	result := domain.ListResult[*sow.Sow]{Limit: filter.Limit, Offset: filter.Offset, Items: []*sow.Sow{}}

	s.mu.RLock()
	matched := make([]storage.Row, 0, len(s.rows))
	search := strings.ToLower(filter.Search)
	for _, row := range s.rows {
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(row.PigID), search) &&
			!strings.Contains(strings.ToLower(row.Name), search) {
			continue
		}
		matched = append(matched, row)
	}
	s.mu.RUnlock()

	sortRows(matched)
	result.TotalCount = int64(len(matched))

	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	for _, row := range matched[start:end] {
		agg, err := storage.Decode(row)
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, agg)
	}
	return result, nil
}

// All implements sow.Repository.
func (s *Store) All(_ context.Context, status sow.Status) ([]*sow.Sow, error) {
	s.mu.RLock()
	rows := make([]storage.Row, 0, len(s.rows))
	for _, row := range s.rows {
		if status == "" || row.Status == string(status) {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()

	sortRows(rows)
	out := make([]*sow.Sow, 0, len(rows))
	for _, row := range rows {
		agg, err := storage.Decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, nil
}

// Ping implements sow.Repository.
func (s *Store) Ping(context.Context) error {
	return nil
}

// pigIDTaken must be called with the lock held.
func (s *Store) pigIDTaken(pigID string, self id.ID) bool {
	for rowID, row := range s.rows {
		if rowID != self && row.PigID == pigID {
			return true
		}
	}
	return false
}

func sortRows(rows []storage.Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PigID != rows[j].PigID {
			return rows[i].PigID < rows[j].PigID
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
}
