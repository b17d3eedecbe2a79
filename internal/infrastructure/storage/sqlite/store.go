// Package sqlite provides an embedded SQLite sow store for single-machine
// deployments and the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/tx"
	"granja/internal/domain"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/storage"
	"granja/internal/infrastructure/storage/schema"
	"granja/pkg/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var (
	_ sow.Repository = (*Store)(nil)
	_ tx.Manager     = (*Store)(nil)
)

// Store is a sows table in one SQLite file. It is also the transaction
// manager for its own queries.
type Store struct {
	db *sql.DB
}

// Open opens (creating when needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "granja.db"
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema.SQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Debug(ctx, "sqlite store opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) querier(ctx context.Context) querier {
	if t, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return t
	}
	return s.db
}

// RunInTransaction implements tx.Manager. A transaction already present in
// ctx is reused.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// Create implements sow.Repository.
func (s *Store) Create(ctx context.Context, agg *sow.Sow) error {
	row, err := storage.Encode(agg)
	if err != nil {
		return err
	}
	query, args, err := builder().
		Insert(storage.TableSows).
		Columns(storage.SelectColumns...).
		Values(row.ID.String(), row.PigID, row.Name, row.Status, row.Version,
			formatTime(row.CreatedAt), formatTime(row.UpdatedAt), row.Data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate(storage.TableSows, "pigId", agg.PigID)
		}
		return fmt.Errorf("insert %s: %w", storage.TableSows, err)
	}
	return nil
}

// GetByID implements sow.Repository.
func (s *Store) GetByID(ctx context.Context, sowID id.ID) (*sow.Sow, error) {
	query, args, err := builder().
		Select(storage.SelectColumns...).
		From(storage.TableSows).
		Where(squirrel.Eq{storage.ColID: sowID.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	row, err := scanRow(s.querier(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(storage.TableSows, sowID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return storage.Decode(row)
}

// Update implements sow.Repository with optimistic locking.
func (s *Store) Update(ctx context.Context, agg *sow.Sow) error {
	row, err := storage.Encode(agg)
	if err != nil {
		return err
	}
	query, args, err := builder().
		Update(storage.TableSows).
		Set(storage.ColPigID, row.PigID).
		Set(storage.ColName, row.Name).
		Set(storage.ColStatus, row.Status).
		Set(storage.ColUpdatedAt, formatTime(row.UpdatedAt)).
		Set(storage.ColData, row.Data).
		Set(storage.ColVersion, squirrel.Expr("version + 1")).
		Where(squirrel.Eq{storage.ColID: agg.ID.String(), storage.ColVersion: agg.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := s.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate(storage.TableSows, "pigId", agg.PigID)
		}
		return fmt.Errorf("update %s: %w", storage.TableSows, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NewConcurrentModification(storage.TableSows, agg.ID)
	}
	agg.Version++
	return nil
}

// Delete implements sow.Repository.
func (s *Store) Delete(ctx context.Context, sowID id.ID) error {
	query, args, err := builder().
		Delete(storage.TableSows).
		Where(squirrel.Eq{storage.ColID: sowID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	result, err := s.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", storage.TableSows, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound(storage.TableSows, sowID.String())
	}
	return nil
}

// List implements sow.Repository.
func (s *Store) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sow.Sow], error) {
	result := domain.ListResult[*sow.Sow]{Limit: filter.Limit, Offset: filter.Offset, Items: []*sow.Sow{}}

	where := squirrel.And{}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{storage.ColStatus: filter.Status})
	}
	if filter.Search != "" {
		// LIKE is case-insensitive for ASCII in SQLite.
		pattern := "%" + filter.Search + "%"
		where = append(where, squirrel.Or{
			squirrel.Like{storage.ColPigID: pattern},
			squirrel.Like{storage.ColName: pattern},
		})
	}

	countQ := builder().Select("COUNT(*)").From(storage.TableSows)
	q := builder().Select(storage.SelectColumns...).From(storage.TableSows).OrderBy(storage.ColPigID, storage.ColID)
	if len(where) > 0 {
		countQ = countQ.Where(where)
		q = q.Where(where)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := s.querier(ctx).QueryRowContext(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			q = q.Limit(uint64(1<<63 - 1))
		}
		q = q.Offset(uint64(filter.Offset))
	}
	items, err := s.selectRows(ctx, q)
	if err != nil {
		return result, err
	}
	result.Items = append(result.Items, items...)
	return result, nil
}

// All implements sow.Repository.
func (s *Store) All(ctx context.Context, status sow.Status) ([]*sow.Sow, error) {
	q := builder().Select(storage.SelectColumns...).From(storage.TableSows).OrderBy(storage.ColPigID, storage.ColID)
	if status != "" {
		q = q.Where(squirrel.Eq{storage.ColStatus: string(status)})
	}
	return s.selectRows(ctx, q)
}

// Ping implements sow.Repository.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) selectRows(ctx context.Context, q squirrel.SelectBuilder) ([]*sow.Sow, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select sows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*sow.Sow{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		agg, err := storage.Decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (storage.Row, error) {
	var (
		row                  storage.Row
		rawID                string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&rawID, &row.PigID, &row.Name, &row.Status, &row.Version, &createdAt, &updatedAt, &row.Data); err != nil {
		return row, err
	}
	var err error
	if row.ID, err = id.Parse(rawID); err != nil {
		return row, fmt.Errorf("parse id %q: %w", rawID, err)
	}
	if row.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return row, fmt.Errorf("parse created_at: %w", err)
	}
	if row.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return row, fmt.Errorf("parse updated_at: %w", err)
	}
	return row, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// modernc reports constraint failures only through the message text.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
