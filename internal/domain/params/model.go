// Package params computes the zootechnical parameters of a herd: per-sow
// indicators (IEP, DNP, litter averages, mortality) and farm-wide rates
// (fertility, abortion, repeat, anestrus, birth index).
package params

import (
	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/domain/cycle"
	"granja/internal/domain/kpi"
)

// DaysPerYear converts an inter-farrowing interval into births per year.
const DaysPerYear = 365.25

// Targets of the indicators that have one.
var (
	FertilityTarget = kpi.Between(87, 95)
	AbortionTarget  = kpi.AtMost(4)
	RepeatTarget    = kpi.AtMost(15)
	AnestrusTarget  = kpi.AtMost(7)
	DNPTarget       = kpi.AtMost(40)
	IDCTarget       = kpi.Between(cycle.IDCTargetMin, cycle.IDCTargetMax)
)

// Totals are the event counts behind a sow's indicators.
type Totals struct {
	Cycles      int `json:"cycles"`
	Services    int `json:"services"`
	Confirmed   int `json:"confirmed"`
	Repeats     int `json:"repeats"`
	Abortions   int `json:"abortions"`
	Farrowings  int `json:"farrowings"`
	Weanings    int `json:"weanings"`
	BornAlive   int `json:"bornAlive"`
	Weaned      int `json:"weaned"`
	LowBirthWgt int `json:"lowBirthWeightPiglets"`
}

// IndividualParams are the indicators of one sow over her whole history.
type IndividualParams struct {
	SowID              id.ID       `json:"sowId"`
	PigID              string      `json:"pigId"`
	Name               string      `json:"name,omitempty"`
	Status             string      `json:"status"`
	ReproductiveStatus string      `json:"reproductiveStatus"`
	CurrentState       cycle.State `json:"currentState,omitempty"`
	Parity             int         `json:"parity"`
	Totals             Totals      `json:"totals"`

	IEP              kpi.Indicator `json:"iep"`
	LastIEP          kpi.Indicator `json:"lastIep"`
	BirthsPerYear    kpi.Indicator `json:"birthsPerYear"`
	TotalBornAvg     kpi.Indicator `json:"totalBornAvg"`
	BornAliveAvg     kpi.Indicator `json:"bornAliveAvg"`
	WeanedAvg        kpi.Indicator `json:"weanedAvg"`
	WeanedPerYear    kpi.Indicator `json:"weanedPerYear"`
	DNP              kpi.Indicator `json:"dnp"`
	MortalityRate    kpi.Indicator `json:"mortalityRate"`
	AvgWeaningWeight kpi.Indicator `json:"avgWeaningWeight"`
	AvgIDC           kpi.Indicator `json:"avgIdc"`
}

// FarmCounts are the numerators and denominators of the farm rates.
type FarmCounts struct {
	ActiveSows    int `json:"activeSows"`
	Services      int `json:"services"`
	Confirmed     int `json:"confirmed"`
	Aborted       int `json:"aborted"`
	Repeats       int `json:"repeats"`
	Farrowings    int `json:"farrowings"`
	WeanedSows    int `json:"weanedSows"`
	AnestrousSows int `json:"anestrousSows"`
}

// FarmParams are the herd-level indicators over active sows.
type FarmParams struct {
	Counts FarmCounts `json:"counts"`

	// FertilityRate is confirmed pregnancies over services in the period. A
	// positive check confirms a pregnancy; so does a farrowing or an
	// abortion recorded on a cycle without one.
	FertilityRate kpi.Indicator `json:"fertilityRate"`
	// AbortionRate is abortions over confirmed pregnancies. Only abortions
	// attributed to a cycle serviced in the period are counted.
	AbortionRate kpi.Indicator `json:"abortionRate"`
	RepeatRate   kpi.Indicator `json:"repeatRate"`
	AnestrusRate kpi.Indicator `json:"anestrusRate"`
	BirthIndex   kpi.Indicator `json:"birthIndex"`

	IEP           kpi.Indicator `json:"iep"`
	BirthsPerYear kpi.Indicator `json:"birthsPerYear"`
	BornAliveAvg  kpi.Indicator `json:"bornAliveAvg"`
	WeanedAvg     kpi.Indicator `json:"weanedAvg"`
	WeanedPerYear kpi.Indicator `json:"weanedPerYear"`
	DNP           kpi.Indicator `json:"dnp"`
	MortalityRate kpi.Indicator `json:"mortalityRate"`
	AvgIDC        kpi.Indicator `json:"avgIdc"`
}

// Period restricts the farm rates to events inside [From, To]. Nil bounds are open.
type Period struct {
	From *types.Date `json:"from,omitempty"`
	To   *types.Date `json:"to,omitempty"`
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d types.Date) bool {
	if d.IsZero() {
		return false
	}
	if p.From != nil && d.Before(*p.From) {
		return false
	}
	if p.To != nil && d.After(*p.To) {
		return false
	}
	return true
}

// Report is the full parameter set returned to clients.
type Report struct {
	Period     Period             `json:"period"`
	AsOf       *types.Date        `json:"asOf,omitempty"`
	Individual []IndividualParams `json:"individual"`
	Farm       FarmParams         `json:"farm"`
}
