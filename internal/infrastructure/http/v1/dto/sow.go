package dto

import (
	"time"

	"granja/internal/core/types"
	"granja/internal/domain/critical"
	"granja/internal/domain/sow"
)

// CreateSowRequest registers a sow. Cycles, piglets and critical periods are
// added afterwards through their own endpoints.
type CreateSowRequest struct {
	PigID         string        `json:"pigId"`
	Name          string        `json:"name"`
	Breed         string        `json:"breed"`
	BirthDate     *types.Date   `json:"birthDate"`
	EntryDate     *types.Date   `json:"entryDate"`
	Origin        string        `json:"origin"`
	Status        sow.Status    `json:"status"`
	Weight        *types.Weight `json:"weight"`
	BodyCondition *float64      `json:"bodyCondition"`
	Photos        []string      `json:"photos"`
}

// ToDomain converts the request to an unsaved aggregate.
func (r CreateSowRequest) ToDomain() *sow.Sow {
	agg := sow.New(r.PigID)
	agg.Name = r.Name
	agg.Breed = r.Breed
	agg.BirthDate = r.BirthDate
	agg.EntryDate = r.EntryDate
	agg.Origin = r.Origin
	if r.Status != "" {
		agg.Status = r.Status
	}
	agg.Weight = r.Weight
	agg.BodyCondition = r.BodyCondition
	agg.Photos = r.Photos
	return agg
}

// UpdateSowRequest edits sow fields. Absent fields are left unchanged.
type UpdateSowRequest struct {
	PigID         *string       `json:"pigId"`
	Name          *string       `json:"name"`
	Breed         *string       `json:"breed"`
	BirthDate     *types.Date   `json:"birthDate"`
	EntryDate     *types.Date   `json:"entryDate"`
	Origin        *string       `json:"origin"`
	Status        *sow.Status   `json:"status"`
	Weight        *types.Weight `json:"weight"`
	BodyCondition *float64      `json:"bodyCondition"`
	Photos        []string      `json:"photos"`
	Version       int           `json:"version" binding:"required,min=1"`
}

// ToPatch converts the request to a domain patch.
func (r UpdateSowRequest) ToPatch() sow.Patch {
	return sow.Patch{
		PigID:         r.PigID,
		Name:          r.Name,
		Breed:         r.Breed,
		BirthDate:     r.BirthDate,
		EntryDate:     r.EntryDate,
		Origin:        r.Origin,
		Status:        r.Status,
		Weight:        r.Weight,
		BodyCondition: r.BodyCondition,
		Photos:        r.Photos,
	}
}

// CloseSowRequest ends the productive life of a sow.
type CloseSowRequest struct {
	Status     sow.Status  `json:"status" binding:"required"`
	ExitDate   *types.Date `json:"exitDate"`
	ExitReason string      `json:"exitReason"`
	Version    int         `json:"version" binding:"required,min=1"`
}

// ToClosure converts the request to a domain closure.
func (r CloseSowRequest) ToClosure() sow.Closure {
	return sow.Closure{Status: r.Status, ExitDate: r.ExitDate, ExitReason: r.ExitReason}
}

// PigletResponse adds the low birth weight flag to a stored piglet.
type PigletResponse struct {
	sow.Piglet
	LowBirthWeight bool `json:"lowBirthWeight"`
}

// FromPiglets converts stored piglets.
func FromPiglets(in []sow.Piglet) []PigletResponse {
	out := make([]PigletResponse, 0, len(in))
	for i := range in {
		out = append(out, PigletResponse{Piglet: in[i], LowBirthWeight: in[i].LowBirthWeight()})
	}
	return out
}

// SowResponse is the aggregate with each cycle's derived view.
type SowResponse struct {
	ID                  string                 `json:"id"`
	PigID               string                 `json:"pigId"`
	Name                string                 `json:"name,omitempty"`
	Breed               string                 `json:"breed,omitempty"`
	BirthDate           *types.Date            `json:"birthDate,omitempty"`
	EntryDate           *types.Date            `json:"entryDate,omitempty"`
	Origin              string                 `json:"origin,omitempty"`
	Status              sow.Status             `json:"status"`
	ExitDate            *types.Date            `json:"exitDate,omitempty"`
	ExitReason          string                 `json:"exitReason,omitempty"`
	Weight              *types.Weight          `json:"weight,omitempty"`
	BodyCondition       *float64               `json:"bodyCondition,omitempty"`
	ReproductiveStatus  sow.ReproductiveStatus `json:"reproductiveStatus"`
	ReproductiveRecords []sow.CycleView        `json:"reproductiveRecords"`
	Piglets             []PigletResponse       `json:"piglets"`
	CriticalPeriods     critical.Periods       `json:"criticalPeriods"`
	Photos              []string               `json:"photos,omitempty"`
	AsOf                types.Date             `json:"asOf"`
	Version             int                    `json:"version"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

// FromSow builds the response with derived cycle fields evaluated at asOf.
func FromSow(s *sow.Sow, asOf types.Date) SowResponse {
	return SowResponse{
		ID:                  s.ID.String(),
		PigID:               s.PigID,
		Name:                s.Name,
		Breed:               s.Breed,
		BirthDate:           s.BirthDate,
		EntryDate:           s.EntryDate,
		Origin:              s.Origin,
		Status:              s.Status,
		ExitDate:            s.ExitDate,
		ExitReason:          s.ExitReason,
		Weight:              s.Weight,
		BodyCondition:       s.BodyCondition,
		ReproductiveStatus:  s.ReproductiveStatus,
		ReproductiveRecords: s.CycleViews(asOf),
		Piglets:             FromPiglets(s.Piglets),
		CriticalPeriods:     s.CriticalPeriods,
		Photos:              s.Photos,
		AsOf:                asOf,
		Version:             s.Version,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

// FromSows converts a page of aggregates.
func FromSows(in []*sow.Sow, asOf types.Date) []SowResponse {
	out := make([]SowResponse, 0, len(in))
	for _, s := range in {
		out = append(out, FromSow(s, asOf))
	}
	return out
}
