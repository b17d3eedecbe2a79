package params

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"granja/internal/core/types"
	"granja/internal/domain/sow"
)

// DefaultAnestrusWindowDays is the number of days after weaning within which
// a heat is expected.
const DefaultAnestrusWindowDays = 7

// Config controls a calculation.
type Config struct {
	// AnestrusWindowDays defaults to DefaultAnestrusWindowDays.
	AnestrusWindowDays int
	// Workers bounds the per-sow fan-out. Defaults to the number of CPUs.
	Workers int
	// AsOf closes open intervals (DNP, anestrus windows). Zero leaves them open.
	AsOf types.Date
	// Period restricts the farm rates.
	Period Period
}

func (c Config) withDefaults() Config {
	if c.AnestrusWindowDays <= 0 {
		c.AnestrusWindowDays = DefaultAnestrusWindowDays
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// Calculator computes parameters. It holds no mutable state and is safe for
// concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (calc *Calculator) Config() Config {
	return calc.cfg
}

// Compute derives the individual parameters of every sow and the farm
// parameters over the active ones. Sows are processed in parallel; each
// worker writes only its own slot and the partials are reduced in input
// order, so the result does not depend on scheduling.
func (calc *Calculator) Compute(ctx context.Context, sows []*sow.Sow) (*Report, error) {
	individual := make([]IndividualParams, len(sows))
	partials := make([]partial, len(sows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(calc.cfg.Workers)
	for i, s := range sows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			individual[i] = calc.ComputeIndividual(s)
			partials[i] = calc.farmPartial(s, individual[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total partial
	for i := range partials {
		total.merge(partials[i])
	}

	report := &Report{
		Period:     calc.cfg.Period,
		Individual: individual,
		Farm:       total.farm(),
	}
	if !calc.cfg.AsOf.IsZero() {
		asOf := calc.cfg.AsOf
		report.AsOf = &asOf
	}
	return report, nil
}

// ComputeFarm returns only the farm parameters.
func (calc *Calculator) ComputeFarm(ctx context.Context, sows []*sow.Sow) (FarmParams, error) {
	report, err := calc.Compute(ctx, sows)
	if err != nil {
		return FarmParams{}, err
	}
	return report.Farm, nil
}
