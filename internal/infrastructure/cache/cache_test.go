package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/domain/kpi"
	"granja/internal/domain/params"
	"granja/internal/domain/sow"
)

func sampleReport() *params.Report {
	asOf := types.MustDate("2024-09-01")
	return &params.Report{
		Period:     params.Period{From: types.DatePtr("2024-01-01")},
		AsOf:       &asOf,
		Individual: []params.IndividualParams{},
		Farm: params.FarmParams{
			Counts:        params.FarmCounts{ActiveSows: 3, Services: 10, Confirmed: 8},
			FertilityRate: kpi.Evaluate(kpi.Percent(8, 10), params.FertilityTarget),
			AbortionRate:  kpi.Evaluate(kpi.NoData(), params.AbortionTarget),
		},
	}
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client, RedisConfig{TTL: time.Minute})
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, c := setupRedis(t)

	_, gen, ok, err := c.Get(ctx, "report:-:-:-")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)

	want := sampleReport()
	require.NoError(t, c.Set(ctx, "report:-:-:-", gen, want))

	got, _, ok, err := c.Get(ctx, "report:-:-:-")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Farm.Counts, got.Farm.Counts)
	assert.InDelta(t, 80.0, got.Farm.FertilityRate.Value.Or(0), 1e-9)
	assert.Equal(t, kpi.StatusOffTarget, got.Farm.FertilityRate.Status)
	assert.False(t, got.Farm.AbortionRate.Value.OK())
	assert.Equal(t, "2024-09-01", got.AsOf.String())
}

func TestRedisCache_InvalidateBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	require.NoError(t, c.Set(ctx, "k", 0, sampleReport()))
	require.NoError(t, c.Invalidate(ctx))

	_, gen, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)

	rawGen, err := mr.Get("granja:params:generation")
	require.NoError(t, err)
	assert.Equal(t, "1", rawGen)
	assert.True(t, mr.Exists("granja:params:0:k"))
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	require.NoError(t, c.Set(ctx, "k", 0, sampleReport()))
	mr.FastForward(2 * time.Minute)

	_, _, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Unavailable(t *testing.T) {
	mr, c := setupRedis(t)
	mr.Close()

	_, _, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	c := NewLocalCache(time.Minute)
	c.now = func() time.Time { return now }

	report := sampleReport()
	require.NoError(t, c.Set(ctx, "k", 0, report))

	got, _, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, report, got)

	now = now.Add(2 * time.Minute)
	_, _, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", 0, report))
	require.NoError(t, c.Invalidate(ctx))
	_, gen, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)

	require.NoError(t, c.Set(ctx, "k", 0, report))
	_, _, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "report from an older generation must be dropped")
}

// invalidatingSource returns the sows loaded before a concurrent mutation
// on its first call and invalidates the cache while doing so, the way an
// after-save hook firing mid-report would.
type invalidatingSource struct {
	cache  params.Cache
	before []*sow.Sow
	after  []*sow.Sow
	calls  int
}

func (s *invalidatingSource) All(ctx context.Context, _ sow.Status) ([]*sow.Sow, error) {
	s.calls++
	if s.calls == 1 {
		if err := s.cache.Invalidate(ctx); err != nil {
			return nil, err
		}
		return s.before, nil
	}
	return s.after, nil
}

func (s *invalidatingSource) Get(context.Context, id.ID) (*sow.Sow, error) {
	return nil, apperror.NewNotFound("sows", "")
}

func TestCache_ReportComputedBeforeInvalidationIsNotServed(t *testing.T) {
	tests := []struct {
		name  string
		cache func(t *testing.T) params.Cache
	}{
		{"redis", func(t *testing.T) params.Cache {
			_, c := setupRedis(t)
			return c
		}},
		{"local", func(*testing.T) params.Cache { return NewLocalCache(time.Minute) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := tt.cache(t)
			src := &invalidatingSource{
				cache:  c,
				before: []*sow.Sow{sow.New("C-1")},
				after:  []*sow.Sow{sow.New("C-1"), sow.New("C-2")},
			}
			svc := params.NewService(params.ServiceConfig{Source: src, Cache: c})
			q := params.Query{AsOf: types.MustDate("2024-09-01")}

			stale, err := svc.Report(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, 1, stale.Farm.Counts.ActiveSows)

			fresh, err := svc.Report(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, 2, fresh.Farm.Counts.ActiveSows)
			assert.Equal(t, 2, src.calls)

			cached, err := svc.Report(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, 2, cached.Farm.Counts.ActiveSows)
			assert.Equal(t, 2, src.calls)
		})
	}
}
