package params

import (
	"granja/internal/core/types"
	"granja/internal/domain/cycle"
	"granja/internal/domain/kpi"
	"granja/internal/domain/sow"
)

// partial is one active sow's contribution to the farm parameters. Partials
// are computed independently and summed.
type partial struct {
	counts FarmCounts

	iep, births, bornAlive, weaned, weanedPerYear, dnp, mortality, idc kpi.Mean
}

func (p *partial) merge(o partial) {
	p.counts.ActiveSows += o.counts.ActiveSows
	p.counts.Services += o.counts.Services
	p.counts.Confirmed += o.counts.Confirmed
	p.counts.Aborted += o.counts.Aborted
	p.counts.Repeats += o.counts.Repeats
	p.counts.Farrowings += o.counts.Farrowings
	p.counts.WeanedSows += o.counts.WeanedSows
	p.counts.AnestrousSows += o.counts.AnestrousSows

	p.iep.Merge(o.iep)
	p.births.Merge(o.births)
	p.bornAlive.Merge(o.bornAlive)
	p.weaned.Merge(o.weaned)
	p.weanedPerYear.Merge(o.weanedPerYear)
	p.dnp.Merge(o.dnp)
	p.mortality.Merge(o.mortality)
	p.idc.Merge(o.idc)
}

// farmPartial computes the contribution of one sow. Terminal sows contribute
// nothing.
func (calc *Calculator) farmPartial(s *sow.Sow, ind IndividualParams) partial {
	var p partial
	if s.Status != sow.StatusActive {
		return p
	}
	p.counts.ActiveSows = 1

	h := newHistory(s)
	period := calc.cfg.Period
	for i := range h.cycles {
		c := &h.cycles[i]
		st := h.state(c)
		if period.Contains(c.Service.Date) {
			p.counts.Services++
			switch {
			case st == cycle.StatePregnancyNegative:
				p.counts.Repeats++
			case st == cycle.StateAborted:
				p.counts.Confirmed++
				p.counts.Aborted++
			case confirmedPregnant(st):
				p.counts.Confirmed++
			}
		}
		if c.HasFarrowing() && period.Contains(*c.Farrowing.Date) {
			p.counts.Farrowings++
		}
	}

	switch calc.anestrus(s, h) {
	case anestrusHeat:
		p.counts.WeanedSows = 1
	case anestrusNoHeat:
		p.counts.WeanedSows = 1
		p.counts.AnestrousSows = 1
	}

	p.iep.Add(ind.IEP.Value)
	p.births.Add(ind.BirthsPerYear.Value)
	p.bornAlive.Add(ind.BornAliveAvg.Value)
	p.weaned.Add(ind.WeanedAvg.Value)
	p.weanedPerYear.Add(ind.WeanedPerYear.Value)
	p.dnp.Add(ind.DNP.Value)
	p.mortality.Add(ind.MortalityRate.Value)
	p.idc.Add(ind.AvgIDC.Value)
	return p
}

// confirmedPregnant counts a positive check, or a farrowing recorded without
// one, as a confirmed pregnancy.
func confirmedPregnant(st cycle.State) bool {
	return st == cycle.StatePregnancyOK || st.HasFarrowed()
}

type anestrusOutcome int

const (
	anestrusNotWeaned anestrusOutcome = iota
	anestrusOpenWindow
	anestrusHeat
	anestrusNoHeat
)

// anestrus classifies the sow by her latest weaning inside the period: heat
// seen within AnestrusWindowDays after weaning, no heat within a closed
// window, or a window still open at AsOf.
func (calc *Calculator) anestrus(s *sow.Sow, h history) anestrusOutcome {
	var weaning *types.Date
	for i := range h.cycles {
		c := &h.cycles[i]
		if c.HasWeaning() && calc.cfg.Period.Contains(*c.Lactation.WeaningDate) {
			if weaning == nil || c.Lactation.WeaningDate.After(*weaning) {
				weaning = c.Lactation.WeaningDate
			}
		}
	}
	if weaning == nil {
		return anestrusNotWeaned
	}
	windowEnd := weaning.AddDays(calc.cfg.AnestrusWindowDays)

	inWindow := func(d types.Date) bool {
		return d.After(*weaning) && !d.After(windowEnd)
	}
	for i := range h.cycles {
		c := &h.cycles[i]
		if c.HasPostWeaningEstrus() && inWindow(*c.Lactation.PostWeaningEstrusDate) {
			return anestrusHeat
		}
		// A new service inside the window implies a detected heat.
		if inWindow(c.Service.Date) {
			return anestrusHeat
		}
	}
	for _, d := range s.CriticalPeriods.HeatDates() {
		if inWindow(d) {
			return anestrusHeat
		}
	}

	if !calc.cfg.AsOf.IsZero() && !calc.cfg.AsOf.After(windowEnd) {
		return anestrusOpenWindow
	}
	return anestrusNoHeat
}

// farm turns the reduced partial into the farm parameters.
func (p partial) farm() FarmParams {
	c := p.counts
	return FarmParams{
		Counts:        c,
		FertilityRate: kpi.Evaluate(kpi.Percent(float64(c.Confirmed), float64(c.Services)), FertilityTarget),
		AbortionRate:  kpi.Evaluate(kpi.Percent(float64(c.Aborted), float64(c.Confirmed)), AbortionTarget),
		RepeatRate:    kpi.Evaluate(kpi.Percent(float64(c.Repeats), float64(c.Services)), RepeatTarget),
		AnestrusRate:  kpi.Evaluate(kpi.Percent(float64(c.AnestrousSows), float64(c.WeanedSows)), AnestrusTarget),
		BirthIndex:    kpi.Untargeted(kpi.Ratio(float64(c.Farrowings), float64(c.ActiveSows))),
		IEP:           kpi.Untargeted(p.iep.Value()),
		BirthsPerYear: kpi.Untargeted(p.births.Value()),
		BornAliveAvg:  kpi.Untargeted(p.bornAlive.Value()),
		WeanedAvg:     kpi.Untargeted(p.weaned.Value()),
		WeanedPerYear: kpi.Untargeted(p.weanedPerYear.Value()),
		DNP:           kpi.Evaluate(p.dnp.Value(), DNPTarget),
		MortalityRate: kpi.Untargeted(p.mortality.Value()),
		AvgIDC:        kpi.Evaluate(p.idc.Value(), IDCTarget),
	}
}
