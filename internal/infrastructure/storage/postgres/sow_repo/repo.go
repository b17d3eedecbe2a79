// Package sow_repo provides the PostgreSQL implementation of sow.Repository.
// The aggregate is stored as one JSONB document per row, with the fields the
// list endpoint filters on copied into indexed columns.
package sow_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/domain"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/storage"
	"granja/internal/infrastructure/storage/postgres"
)

const uniqueViolation = "23505"

// Compile-time check that Repo implements sow.Repository.
var _ sow.Repository = (*Repo)(nil)

// Repo stores sows in PostgreSQL.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates the repository. Queries run inside the transaction carried
// by the context when there is one.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create implements sow.Repository.
func (r *Repo) Create(ctx context.Context, agg *sow.Sow) error {
	row, err := storage.Encode(agg)
	if err != nil {
		return err
	}

	sql, args, err := r.Builder().
		Insert(storage.TableSows).
		Columns(storage.SelectColumns...).
		Values(row.Values()...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate(storage.TableSows, "pigId", agg.PigID)
		}
		return fmt.Errorf("insert %s: %w", storage.TableSows, err)
	}
	return nil
}

// GetByID implements sow.Repository.
func (r *Repo) GetByID(ctx context.Context, sowID id.ID) (*sow.Sow, error) {
	sql, args, err := r.Builder().
		Select(storage.SelectColumns...).
		From(storage.TableSows).
		Where(squirrel.Eq{storage.ColID: sowID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row storage.Row
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(storage.TableSows, sowID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return storage.Decode(row)
}

// Update implements sow.Repository with optimistic locking on the version
// column. On success agg.Version holds the new version.
func (r *Repo) Update(ctx context.Context, agg *sow.Sow) error {
	row, err := storage.Encode(agg)
	if err != nil {
		return err
	}

	sql, args, err := r.Builder().
		Update(storage.TableSows).
		SetMap(map[string]any{
			storage.ColPigID:     row.PigID,
			storage.ColName:      row.Name,
			storage.ColStatus:    row.Status,
			storage.ColUpdatedAt: row.UpdatedAt,
			storage.ColData:      row.Data,
		}).
		Set(storage.ColVersion, squirrel.Expr("version + 1")).
		Where(squirrel.Eq{storage.ColID: agg.ID}).
		Where(squirrel.Eq{storage.ColVersion: agg.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate(storage.TableSows, "pigId", agg.PigID)
		}
		return fmt.Errorf("update %s: %w", storage.TableSows, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(storage.TableSows, agg.ID)
	}

	agg.Version++
	return nil
}

// Delete implements sow.Repository. Children live in the payload and go with
// the row.
func (r *Repo) Delete(ctx context.Context, sowID id.ID) error {
	sql, args, err := r.Builder().
		Delete(storage.TableSows).
		Where(squirrel.Eq{storage.ColID: sowID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", storage.TableSows, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(storage.TableSows, sowID.String())
	}
	return nil
}

// List implements sow.Repository.
func (r *Repo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sow.Sow], error) {
	result := domain.ListResult[*sow.Sow]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Items:  []*sow.Sow{},
	}

	where := listWhere(filter)
	querier := r.txm.GetQuerier(ctx)

	countQ := r.Builder().Select("COUNT(*)").From(storage.TableSows)
	q := r.Builder().
		Select(storage.SelectColumns...).
		From(storage.TableSows).
		OrderBy(storage.ColPigID, storage.ColID)
	if len(where) > 0 {
		countQ = countQ.Where(where)
		q = q.Where(where)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var rows []storage.Row
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	for _, row := range rows {
		agg, err := storage.Decode(row)
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, agg)
	}
	return result, nil
}

// All implements sow.Repository.
func (r *Repo) All(ctx context.Context, status sow.Status) ([]*sow.Sow, error) {
	q := r.Builder().
		Select(storage.SelectColumns...).
		From(storage.TableSows).
		OrderBy(storage.ColPigID, storage.ColID)
	if status != "" {
		q = q.Where(squirrel.Eq{storage.ColStatus: string(status)})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []storage.Row
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select all: %w", err)
	}
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
func (r *Repo) Ping(ctx context.Context) error {
	return r.txm.Ping(ctx)
}

func listWhere(filter domain.ListFilter) squirrel.And {
	where := squirrel.And{}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{storage.ColStatus: filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{storage.ColPigID: pattern},
			squirrel.ILike{storage.ColName: pattern},
		})
	}
	return where
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
