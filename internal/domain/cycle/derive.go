package cycle

import (
	"granja/internal/core/types"
	"granja/internal/domain/kpi"
)

// IDC target window, in days from weaning to post-weaning heat.
const (
	IDCTargetMin = 5
	IDCTargetMax = 7
)

// ExpectedFarrowingDate returns serviceDate + GestationDays.
func ExpectedFarrowingDate(serviceDate types.Date) types.Date {
	return serviceDate.AddDays(GestationDays)
}

// IDC returns the weaning-to-estrus interval in days, nil if either date is missing.
func IDC(c *Cycle) *int {
	if !c.HasWeaning() || !c.HasPostWeaningEstrus() {
		return nil
	}
	days := c.Lactation.PostWeaningEstrusDate.DaysSince(*c.Lactation.WeaningDate)
	return &days
}

// SurvivalRate returns bornAlive/totalBorn. A missing or zero totalBorn yields 0.
func SurvivalRate(l Litter) float64 {
	total := IntVal(l.TotalBorn)
	if total == 0 {
		return 0
	}
	return float64(IntVal(l.BornAlive)) / float64(total)
}

// WeaningEfficiency returns pigletsWeaned/bornAlive, no data when either
// count is missing or bornAlive is zero.
func WeaningEfficiency(c *Cycle) kpi.Value {
	if c.Lactation.PigletsWeaned == nil || c.Litter.BornAlive == nil {
		return kpi.NoData()
	}
	return kpi.Ratio(float64(*c.Lactation.PigletsWeaned), float64(*c.Litter.BornAlive))
}

// Derived is the computed view of one cycle.
type Derived struct {
	State                 State       `json:"state"`
	ExpectedFarrowingDate *types.Date `json:"expectedFarrowingDate"`
	DaysToFarrowing       *int        `json:"daysToFarrowing"`
	GestationLength       *int        `json:"gestationLength"`
	LactationLength       *int        `json:"lactationLength"`
	ServiceToCheckDays    *int        `json:"serviceToCheckDays"`
	CheckToFarrowingDays  *int        `json:"checkToFarrowingDays"`
	IDC                   *int        `json:"idc"`
	IDCOutOfTarget        bool        `json:"idcOutOfTarget"`
	SurvivalRate          float64     `json:"survivalRate"`
	WeaningEfficiency     kpi.Value   `json:"weaningEfficiency"`
	AvgWeaningWeight      kpi.Value   `json:"avgWeaningWeight"`
}

// Derive computes the state and the derived fields of c. asOf is used for
// daysToFarrowing on gestating cycles; a zero asOf leaves it unset.
func Derive(c *Cycle, abortions []AbortionEvent, asOf types.Date) Derived {
	d := Derived{
		State:             DeriveState(c, abortions),
		IDC:               IDC(c),
		SurvivalRate:      SurvivalRate(c.Litter),
		WeaningEfficiency: WeaningEfficiency(c),
		AvgWeaningWeight:  WeaningWeightPerPiglet(c),
	}

	if !c.Service.Date.IsZero() {
		efd := ExpectedFarrowingDate(c.Service.Date)
		d.ExpectedFarrowingDate = &efd
		if d.State.IsGestating() && !asOf.IsZero() {
			d.DaysToFarrowing = IntPtr(efd.DaysSince(asOf))
		}
		if c.HasFarrowing() {
			d.GestationLength = IntPtr(c.Farrowing.Date.DaysSince(c.Service.Date))
		}
		if types.Present(c.PregnancyCheck.Date) {
			d.ServiceToCheckDays = IntPtr(c.PregnancyCheck.Date.DaysSince(c.Service.Date))
		}
	}

	if c.HasFarrowing() {
		if c.HasWeaning() {
			d.LactationLength = IntPtr(c.Lactation.WeaningDate.DaysSince(*c.Farrowing.Date))
		}
		if types.Present(c.PregnancyCheck.Date) {
			d.CheckToFarrowingDays = IntPtr(c.Farrowing.Date.DaysSince(*c.PregnancyCheck.Date))
		}
	}

	if d.IDC != nil && *d.IDC > IDCTargetMax {
		d.IDCOutOfTarget = true
	}
	return d
}

// WeaningWeightPerPiglet returns totalWeaningWeight/pigletsWeaned, falling back
// to the recorded weightPerPiglet.
func WeaningWeightPerPiglet(c *Cycle) kpi.Value {
	l := c.Lactation
	if l.TotalWeaningWeight != nil && l.PigletsWeaned != nil && *l.PigletsWeaned > 0 {
		return kpi.Ratio(l.TotalWeaningWeight.Float64(), float64(*l.PigletsWeaned))
	}
	if l.WeightPerPiglet != nil {
		return kpi.Of(l.WeightPerPiglet.Float64())
	}
	return kpi.NoData()
}
