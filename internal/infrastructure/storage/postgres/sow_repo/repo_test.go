package sow_repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granja/internal/domain"
)

func TestListWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   domain.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "status",
			filter:   domain.ListFilter{Status: "activa"},
			wantSQL:  "(status = ?)",
			wantArgs: []any{"activa"},
		},
		{
			name:     "search",
			filter:   domain.ListFilter{Search: "C-1"},
			wantSQL:  "((pig_id ILIKE ? OR name ILIKE ?))",
			wantArgs: []any{"%C-1%", "%C-1%"},
		},
		{
			name:     "status and search",
			filter:   domain.ListFilter{Status: "vendida", Search: "rosa"},
			wantSQL:  "(status = ? AND (pig_id ILIKE ? OR name ILIKE ?))",
			wantArgs: []any{"vendida", "%rosa%", "%rosa%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := listWhere(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	assert.Empty(t, listWhere(domain.ListFilter{}))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert sows: %w", &pgconn.PgError{Code: "23505", ConstraintName: "sows_pig_id_key"})
	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
