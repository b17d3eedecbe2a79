package params

import (
	"context"
	"fmt"
	"time"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/domain"
	"granja/internal/domain/sow"
	"granja/pkg/logger"
)

// Source provides the aggregates the parameters are computed from.
type Source interface {
	All(ctx context.Context, status sow.Status) ([]*sow.Sow, error)
	Get(ctx context.Context, sowID id.ID) (*sow.Sow, error)
}

// Cache stores computed reports under a generation that Invalidate advances.
// Get reports the current generation even on a miss; Set must discard a
// report whose generation is no longer current, so a report computed from
// data read before an invalidation is never served after it.
type Cache interface {
	Get(ctx context.Context, key string) (report *Report, gen int64, ok bool, err error)
	Set(ctx context.Context, key string, gen int64, report *Report) error
	Invalidate(ctx context.Context) error
}

// Recorder observes computations.
type Recorder interface {
	ObserveCompute(scope string, d time.Duration, sows int)
}

// Query selects the period and the as-of date of a report.
type Query struct {
	From *types.Date
	To   *types.Date
	AsOf types.Date
}

// Key identifies the report of a query in the cache.
func (q Query) Key() string {
	bound := func(d *types.Date) string {
		if d == nil {
			return "-"
		}
		return d.String()
	}
	asOf := "-"
	if !q.AsOf.IsZero() {
		asOf = q.AsOf.String()
	}
	return fmt.Sprintf("report:%s:%s:%s", bound(q.From), bound(q.To), asOf)
}

func (q Query) validate() error {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return apperror.NewFieldValidation(apperror.FieldErrors{{
			Field:   "from",
			Rule:    apperror.RuleChronology,
			Message: "from must not be after to",
		}})
	}
	return nil
}

// ServiceConfig configures the parameter service.
type ServiceConfig struct {
	Source   Source
	Cache    Cache    // Optional
	Recorder Recorder // Optional
	// Calculation carries the worker and anestrus settings; AsOf and Period
	// are taken from each query.
	Calculation Config
}

// Service answers parameter queries, caching farm reports between
// mutations.
type Service struct {
	source   Source
	cache    Cache
	recorder Recorder
	base     Config
}

// NewService creates the parameter service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		source:   cfg.Source,
		cache:    cfg.Cache,
		recorder: cfg.Recorder,
		base:     cfg.Calculation.withDefaults(),
	}
}

func (s *Service) calculator(q Query) *Calculator {
	cfg := s.base
	cfg.AsOf = q.AsOf
	cfg.Period = Period{From: q.From, To: q.To}
	return NewCalculator(cfg)
}

// Report returns the individual parameters of every sow and the farm
// parameters over the active ones.
func (s *Service) Report(ctx context.Context, q Query) (*Report, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	key := q.Key()
	var (
		gen      int64
		cachable bool
	)
	if s.cache != nil {
		cached, g, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn(ctx, "params cache read failed", "key", key, "error", err)
		case ok:
			logger.Debug(ctx, "params cache hit", "key", key)
			return cached, nil
		default:
			gen, cachable = g, true
		}
	}

	sows, err := s.source.All(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load sows: %w", err)
	}

	start := time.Now()
	report, err := s.calculator(q).Compute(ctx, sows)
	if err != nil {
		return nil, fmt.Errorf("compute parameters: %w", err)
	}
	s.observe("farm", start, len(sows))

	if cachable {
		if err := s.cache.Set(ctx, key, gen, report); err != nil {
			logger.Warn(ctx, "params cache write failed", "key", key, "error", err)
		}
	}
	return report, nil
}

// Individual returns the parameters of one sow.
func (s *Service) Individual(ctx context.Context, sowID id.ID, asOf types.Date) (IndividualParams, error) {
	agg, err := s.source.Get(ctx, sowID)
	if err != nil {
		return IndividualParams{}, err
	}
	start := time.Now()
	out := s.calculator(Query{AsOf: asOf}).ComputeIndividual(agg)
	s.observe("individual", start, 1)
	return out, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn(ctx, "params cache invalidation failed", "error", err)
	}
}

// InvalidateOn drops the cache after every saved or deleted aggregate.
func (s *Service) InvalidateOn(hooks *domain.HookRegistry[*sow.Sow]) {
	invalidate := func(ctx context.Context, _ *sow.Sow) error {
		s.Invalidate(ctx)
		return nil
	}
	hooks.OnAfterSave(invalidate)
	hooks.OnAfterDelete(invalidate)
}

func (s *Service) observe(scope string, start time.Time, sows int) {
	if s.recorder != nil {
		s.recorder.ObserveCompute(scope, time.Since(start), sows)
	}
}
