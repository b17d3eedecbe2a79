// Package sow implements the sow aggregate: registration, lifecycle closure,
// and the read-modify-write of its cycles, piglets and critical periods.
package sow

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"granja/internal/core/apperror"
	"granja/internal/core/entity"
	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/domain/critical"
	"granja/internal/domain/cycle"
)

// Status is the lifecycle status of a sow.
type Status string

const (
	StatusActive    Status = "activa"
	StatusDiscarded Status = "descartada"
	StatusDead      Status = "muerta"
	StatusSold      Status = "vendida"
)

// IsTerminal reports whether the sow has left the herd.
func (s Status) IsTerminal() bool {
	return s == StatusDiscarded || s == StatusDead || s == StatusSold
}

// Valid reports whether s is a known token.
func (s Status) Valid() bool {
	return s == StatusActive || s.IsTerminal()
}

// ReproductiveStatus is the current reproductive condition, derived from the
// latest cycle.
type ReproductiveStatus string

const (
	ReproEmpty     ReproductiveStatus = "vacia"
	ReproServiced  ReproductiveStatus = "servida"
	ReproPregnant  ReproductiveStatus = "gestante"
	ReproLactating ReproductiveStatus = "lactante"
	ReproWeaned    ReproductiveStatus = "destetada"
)

// Sow is the aggregate root. Cycles, piglets and critical periods are only
// modified through it.
type Sow struct {
	entity.BaseEntity

	PigID         string        `json:"pigId"`
	Name          string        `json:"name,omitempty"`
	Breed         string        `json:"breed,omitempty"`
	BirthDate     *types.Date   `json:"birthDate,omitempty"`
	EntryDate     *types.Date   `json:"entryDate,omitempty"`
	Origin        string        `json:"origin,omitempty"`
	Status        Status        `json:"status"`
	ExitDate      *types.Date   `json:"exitDate,omitempty"`
	ExitReason    string        `json:"exitReason,omitempty"`
	Weight        *types.Weight `json:"weight,omitempty"`
	BodyCondition *float64      `json:"bodyCondition,omitempty"`

	ReproductiveStatus  ReproductiveStatus `json:"reproductiveStatus"`
	ReproductiveRecords []cycle.Cycle      `json:"reproductiveRecords"`
	Piglets             []Piglet           `json:"piglets"`
	CriticalPeriods     critical.Periods   `json:"criticalPeriods"`
	Photos              []string           `json:"photos,omitempty"`
}

// New creates an active, empty sow with a fresh identity.
func New(pigID string) *Sow {
	return &Sow{
		BaseEntity:         entity.NewBaseEntity(),
		PigID:              pigID,
		Status:             StatusActive,
		ReproductiveStatus: ReproEmpty,
	}
}

// Normalize trims identity fields and lower-cases status tokens.
func (s *Sow) Normalize() {
	s.PigID = strings.TrimSpace(s.PigID)
	s.Name = strings.TrimSpace(s.Name)
	s.Breed = strings.TrimSpace(s.Breed)
	s.Origin = strings.TrimSpace(s.Origin)
	s.ExitReason = strings.TrimSpace(s.ExitReason)
	s.Status = Status(strings.ToLower(strings.TrimSpace(string(s.Status))))
	if s.Status == "" {
		s.Status = StatusActive
	}
	s.Photos = cycle.Compact(s.Photos)
}

// Validate implements entity.Validatable for the sow's own fields.
func (s *Sow) Validate(_ context.Context) error {
	var errs apperror.FieldErrors
	if s.PigID == "" {
		errs.Add("pigId", apperror.RuleRequired, "pigId is required")
	}
	if !s.Status.Valid() {
		errs.Add("status", apperror.RuleEnum, fmt.Sprintf("unknown status %q", s.Status))
	}
	if s.Weight != nil && !s.Weight.IsPositive() {
		errs.Add("weight", apperror.RuleRange, "weight must be greater than zero")
	}
	cycle.BodyCondition("bodyCondition", s.BodyCondition, &errs)
	if types.Present(s.BirthDate) && types.Present(s.EntryDate) && s.EntryDate.Before(*s.BirthDate) {
		errs.Add("entryDate", apperror.RuleChronology, "entry date cannot be before birth date")
	}
	if types.Present(s.ExitDate) && types.Present(s.EntryDate) && s.ExitDate.Before(*s.EntryDate) {
		errs.Add("exitDate", apperror.RuleChronology, "exit date cannot be before entry date")
	}
	return errs.Err()
}

// Cycles returns the reproductive records ordered by cycle number.
func (s *Sow) Cycles() []cycle.Cycle {
	out := slices.Clone(s.ReproductiveRecords)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	return out
}

// FindCycle returns the index of the cycle with the given id, or -1.
func (s *Sow) FindCycle(cycleID id.ID) int {
	return slices.IndexFunc(s.ReproductiveRecords, func(c cycle.Cycle) bool { return c.ID == cycleID })
}

// FindPiglet returns the index of the piglet with the given id, or -1.
func (s *Sow) FindPiglet(pigletID id.ID) int {
	return slices.IndexFunc(s.Piglets, func(p Piglet) bool { return p.ID == pigletID })
}

// NextCycleNumber returns max(cycleNumber)+1.
func (s *Sow) NextCycleNumber() int {
	next := 1
	for _, c := range s.ReproductiveRecords {
		if c.CycleNumber >= next {
			next = c.CycleNumber + 1
		}
	}
	return next
}

// CycleStates derives the state of every cycle, attributing abortions.
func (s *Sow) CycleStates() map[id.ID]cycle.State {
	return cycle.DeriveStates(s.ReproductiveRecords, s.CriticalPeriods.AbortionEvents())
}

// SyncReproductiveStatus recomputes ReproductiveStatus from the latest cycle.
func (s *Sow) SyncReproductiveStatus() {
	s.ReproductiveStatus = ReproEmpty
	if len(s.ReproductiveRecords) == 0 {
		return
	}
	cycles := s.Cycles()
	latest := cycles[len(cycles)-1]
	s.ReproductiveStatus = reproductiveStatusFor(s.CycleStates()[latest.ID])
}

func reproductiveStatusFor(state cycle.State) ReproductiveStatus {
	switch state {
	case cycle.StateServiced, cycle.StatePregnancyPending:
		return ReproServiced
	case cycle.StatePregnancyOK:
		return ReproPregnant
	case cycle.StateLactating:
		return ReproLactating
	case cycle.StateWeaned:
		return ReproWeaned
	default:
		return ReproEmpty
	}
}

// CycleView pairs a stored cycle with its derived metrics.
type CycleView struct {
	cycle.Cycle
	Derived cycle.Derived `json:"derived"`
}

// CycleViews returns the ordered cycles with derived fields evaluated at asOf.
func (s *Sow) CycleViews(asOf types.Date) []CycleView {
	cycles := s.Cycles()
	abortions := cycle.AttributeAbortions(cycles, s.CriticalPeriods.AbortionEvents())
	out := make([]CycleView, 0, len(cycles))
	for i := range cycles {
		out = append(out, CycleView{Cycle: cycles[i], Derived: cycle.Derive(&cycles[i], abortions, asOf)})
	}
	return out
}
