package params_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granja/internal/core/apperror"
	"granja/internal/core/types"
	"granja/internal/domain/cycle"
	"granja/internal/domain/params"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/storage/memory"
)

type mapCache struct {
	mu          sync.Mutex
	reports     map[string]*params.Report
	hits        int
	invalidated int
	sets        []int64
}

func newMapCache() *mapCache {
	return &mapCache{reports: make(map[string]*params.Report)}
}

func (c *mapCache) Get(_ context.Context, key string) (*params.Report, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[key]
	if ok {
		c.hits++
	}
	return r, int64(c.invalidated), ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, gen int64, r *params.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, gen)
	if gen == int64(c.invalidated) {
		c.reports[key] = r
	}
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = make(map[string]*params.Report)
	c.invalidated++
	return nil
}

type countingRecorder struct {
	scopes []string
}

func (r *countingRecorder) ObserveCompute(scope string, _ time.Duration, _ int) {
	r.scopes = append(r.scopes, scope)
}

func setup(t *testing.T) (*sow.Service, *params.Service, *mapCache, *countingRecorder) {
	t.Helper()
	sows := sow.NewService(sow.ServiceConfig{
		Repo:  memory.NewStore(),
		Clock: func() time.Time { return time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC) },
	})
	cache := newMapCache()
	rec := &countingRecorder{}
	svc := params.NewService(params.ServiceConfig{Source: sows, Cache: cache, Recorder: rec})
	svc.InvalidateOn(sows.Hooks())
	return sows, svc, cache, rec
}

func TestService_ReportIsCachedUntilMutation(t *testing.T) {
	ctx := context.Background()
	sows, svc, cache, rec := setup(t)

	registered, err := sows.Register(ctx, sow.New("SVC-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	q := params.Query{AsOf: types.MustDate("2024-09-01")}
	first, err := svc.Report(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Farm.Counts.ActiveSows)
	assert.Equal(t, 0, first.Farm.Counts.Services)

	assert.Equal(t, []int64{1}, cache.sets, "report is stored under the generation read before loading")

	second, err := svc.Report(ctx, q)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, []string{"farm"}, rec.scopes)

	_, _, err = sows.AddCycle(ctx, registered.ID, cycle.Cycle{
		Service: cycle.Service{Date: types.MustDate("2024-08-01")},
	}, registered.Version)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidated)

	third, err := svc.Report(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Farm.Counts.Services)
	require.NotNil(t, third.AsOf)
	assert.Equal(t, "2024-09-01", third.AsOf.String())
}

func TestService_QueryKeyDistinguishesPeriods(t *testing.T) {
	all := params.Query{}
	year := params.Query{From: types.DatePtr("2024-01-01"), To: types.DatePtr("2024-12-31")}
	asOf := params.Query{AsOf: types.MustDate("2024-06-01")}

	assert.NotEqual(t, all.Key(), year.Key())
	assert.NotEqual(t, all.Key(), asOf.Key())
	assert.Equal(t, "report:2024-01-01:2024-12-31:-", year.Key())
}

func TestService_RejectsInvertedPeriod(t *testing.T) {
	_, svc, _, _ := setup(t)

	_, err := svc.Report(context.Background(), params.Query{
		From: types.DatePtr("2024-12-31"),
		To:   types.DatePtr("2024-01-01"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestService_Individual(t *testing.T) {
	ctx := context.Background()
	sows, svc, _, rec := setup(t)

	registered, err := sows.Register(ctx, sow.New("SVC-2"))
	require.NoError(t, err)

	ind, err := svc.Individual(ctx, registered.ID, types.Date{})
	require.NoError(t, err)
	assert.Equal(t, "SVC-2", ind.PigID)
	assert.Equal(t, 0, ind.Parity)
	assert.Equal(t, []string{"individual"}, rec.scopes)

	_, err = svc.Individual(ctx, sow.New("ghost").ID, types.Date{})
	assert.True(t, apperror.IsNotFound(err))
}
