package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granja/internal/config"
	"granja/internal/core/types"
	"granja/internal/domain/params"
	"granja/internal/domain/sow"
)

func parse(t *testing.T, vars map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(nil, func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
	require.NoError(t, err)
	return cfg
}

func TestNew_MemoryWithLocalCache(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, parse(t, nil))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Contains(t, a.Checks, "store")
	assert.NotContains(t, a.Checks, "cache")

	_, err = a.Sows.Register(ctx, sow.New("A-1"))
	require.NoError(t, err)

	report, err := a.Params.Report(ctx, params.Query{AsOf: types.MustDate("2024-09-01")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Farm.Counts.ActiveSows)
}

func TestNew_SQLiteWithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	a, err := New(ctx, parse(t, map[string]string{
		"STORE_DRIVER": "sqlite",
		"SQLITE_PATH":  filepath.Join(t.TempDir(), "granja.db"),
		"REDIS_ADDR":   mr.Addr(),
	}))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.Contains(t, a.Checks, "cache")
	require.NoError(t, a.Checks["cache"].Ping(ctx))
	require.NoError(t, a.Checks["store"].Ping(ctx))

	_, err = a.Sows.Register(ctx, sow.New("A-2"))
	require.NoError(t, err)
	gen, err := mr.Get("granja:params:generation")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StoreConfig{Driver: "mongo"}, nil)
	assert.Error(t, err)
}
