package params

import (
	"sort"

	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/domain/cycle"
	"granja/internal/domain/kpi"
	"granja/internal/domain/sow"
)

// history is the per-sow view both computations start from.
type history struct {
	cycles []cycle.Cycle
	states map[id.ID]cycle.State
	// abortionDates holds the attributed abortion date of each aborted cycle.
	abortionDates map[id.ID]types.Date
}

func newHistory(s *sow.Sow) history {
	cycles := s.Cycles()
	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].Service.Date.Before(cycles[j].Service.Date)
	})
	attributed := cycle.AttributeAbortions(cycles, s.CriticalPeriods.AbortionEvents())

	h := history{
		cycles:        cycles,
		states:        make(map[id.ID]cycle.State, len(cycles)),
		abortionDates: make(map[id.ID]types.Date),
	}
	for i := range cycles {
		c := &cycles[i]
		h.states[c.ID] = cycle.DeriveState(c, attributed)
		for _, a := range attributed {
			if *a.CycleID == c.ID {
				h.abortionDates[c.ID] = a.Date
				break
			}
		}
	}
	return h
}

func (h history) state(c *cycle.Cycle) cycle.State {
	return h.states[c.ID]
}

// ComputeIndividual derives the indicators of one sow. It is a pure function
// of the aggregate and the calculator configuration.
func (calc *Calculator) ComputeIndividual(s *sow.Sow) IndividualParams {
	h := newHistory(s)

	out := IndividualParams{
		SowID:              s.ID,
		PigID:              s.PigID,
		Name:               s.Name,
		Status:             string(s.Status),
		ReproductiveStatus: string(s.ReproductiveStatus),
	}
	out.Totals.Cycles = len(h.cycles)
	for i := range s.Piglets {
		if s.Piglets[i].LowBirthWeight() {
			out.Totals.LowBirthWgt++
		}
	}

	var (
		farrowingDates []types.Date
		totalBorn      kpi.Mean
		bornAlive      kpi.Mean
		weaned         kpi.Mean
		weaningWeight  kpi.Mean
		idc            kpi.Mean
		sumBornAlive   int
		sumWeaned      int
		closedLitters  int
	)

	for i := range h.cycles {
		c := &h.cycles[i]
		st := h.state(c)
		out.Totals.Services++
		switch {
		case st == cycle.StatePregnancyNegative:
			out.Totals.Repeats++
		case st == cycle.StateAborted:
			out.Totals.Abortions++
			out.Totals.Confirmed++
		case st == cycle.StatePregnancyOK || st.HasFarrowed():
			out.Totals.Confirmed++
		}

		if !c.HasFarrowing() {
			continue
		}
		out.Totals.Farrowings++
		farrowingDates = append(farrowingDates, *c.Farrowing.Date)
		if c.Litter.TotalBorn != nil {
			totalBorn.AddFloat(float64(*c.Litter.TotalBorn))
		}
		if c.Litter.BornAlive != nil {
			bornAlive.AddFloat(float64(*c.Litter.BornAlive))
			out.Totals.BornAlive += *c.Litter.BornAlive
		}
		if c.Lactation.PigletsWeaned != nil {
			weaned.AddFloat(float64(*c.Lactation.PigletsWeaned))
			out.Totals.Weaned += *c.Lactation.PigletsWeaned
		}
		if v := cycle.IDC(c); v != nil {
			idc.AddFloat(float64(*v))
		}
		if c.HasWeaning() {
			out.Totals.Weanings++
			weaningWeight.Add(cycle.WeaningWeightPerPiglet(c))
			if c.Lactation.PigletsWeaned != nil && c.Litter.BornAlive != nil {
				sumWeaned += *c.Lactation.PigletsWeaned
				sumBornAlive += *c.Litter.BornAlive
				closedLitters++
			}
		}
	}
	out.Parity = out.Totals.Farrowings
	if n := len(h.cycles); n > 0 {
		latest := &h.cycles[n-1]
		out.CurrentState = h.state(latest)
	}

	iep, lastIEP := interFarrowing(farrowingDates)
	births := kpi.NoData()
	if v, ok := iep.Get(); ok {
		births = kpi.Ratio(DaysPerYear, v)
	}

	out.IEP = kpi.Untargeted(iep)
	out.LastIEP = kpi.Untargeted(lastIEP)
	out.BirthsPerYear = kpi.Untargeted(births)
	out.TotalBornAvg = kpi.Untargeted(totalBorn.Value())
	out.BornAliveAvg = kpi.Untargeted(bornAlive.Value())
	out.WeanedAvg = kpi.Untargeted(weaned.Value())
	out.WeanedPerYear = kpi.Untargeted(weaned.Value().Times(births))
	out.DNP = kpi.Evaluate(calc.nonProductiveDays(h), DNPTarget)
	out.MortalityRate = kpi.Untargeted(mortality(out.Totals.Farrowings, closedLitters, sumBornAlive, sumWeaned))
	out.AvgWeaningWeight = kpi.Untargeted(weaningWeight.Value())
	out.AvgIDC = kpi.Evaluate(idc.Value(), IDCTarget)
	return out
}

// interFarrowing returns the mean and the latest interval between
// chronologically consecutive farrowings. Fewer than two is no data.
func interFarrowing(dates []types.Date) (mean, last kpi.Value) {
	if len(dates) < 2 {
		return kpi.NoData(), kpi.NoData()
	}
	sorted := append([]types.Date(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var m kpi.Mean
	for i := 1; i < len(sorted); i++ {
		m.AddFloat(float64(sorted[i].DaysSince(sorted[i-1])))
	}
	return m.Value(), kpi.Of(float64(sorted[len(sorted)-1].DaysSince(sorted[len(sorted)-2])))
}

// mortality is (1 - Σweaned/ΣbornAlive)×100 over weaned litters. No farrowing
// means nothing could die (0); farrowed litters not yet weaned are no data.
func mortality(farrowings, closedLitters, sumBornAlive, sumWeaned int) kpi.Value {
	if farrowings == 0 {
		return kpi.Of(0)
	}
	if closedLitters == 0 {
		return kpi.NoData()
	}
	return kpi.Ratio(float64(sumWeaned), float64(sumBornAlive)).Map(func(r float64) float64 {
		return (1 - r) * 100
	})
}

// nonProductiveDays sums the days the sow was neither gestating nor
// lactating: from a weaning, a repeat service, an abortion or a farrowing
// without live piglets until the next service. The interval still open at the
// end of the history counts only up to AsOf.
func (calc *Calculator) nonProductiveDays(h history) kpi.Value {
	if len(h.cycles) == 0 {
		return kpi.NoData()
	}

	total := 0
	var openFrom *types.Date
	for i := range h.cycles {
		c := &h.cycles[i]
		if openFrom != nil && c.Service.Date.After(*openFrom) {
			total += c.Service.Date.DaysSince(*openFrom)
		}
		openFrom = h.openedBy(c)
	}
	if openFrom != nil && !calc.cfg.AsOf.IsZero() && calc.cfg.AsOf.After(*openFrom) {
		total += calc.cfg.AsOf.DaysSince(*openFrom)
	}
	return kpi.Of(float64(total))
}

// openedBy returns the date from which the cycle leaves the sow
// non-productive, or nil while she is still gestating or lactating.
func (h history) openedBy(c *cycle.Cycle) *types.Date {
	switch h.state(c) {
	case cycle.StatePregnancyNegative:
		d := c.Service.Date
		return &d
	case cycle.StateAborted:
		d, ok := h.abortionDates[c.ID]
		if !ok {
			d = c.Service.Date
		}
		return &d
	case cycle.StateWeaned, cycle.StateEstrusDetected:
		d := *c.Lactation.WeaningDate
		return &d
	case cycle.StateFarrowed:
		d := *c.Farrowing.Date
		return &d
	}
	return nil
}
