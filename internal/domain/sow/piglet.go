package sow

import (
	"fmt"
	"slices"
	"strings"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/types"
)

// LowBirthWeightKg is the threshold below which a piglet is flagged.
const LowBirthWeightKg = 0.7

// Sex tokens.
type Sex string

const (
	SexFemale  Sex = "hembra"
	SexMale    Sex = "macho"
	SexUnknown Sex = "desconocido"
)

// PigletStatus tokens.
type PigletStatus string

const (
	PigletAlive       PigletStatus = "vivo"
	PigletDead        PigletStatus = "muerto"
	PigletSold        PigletStatus = "vendido"
	PigletTransferred PigletStatus = "transferido"
)

var (
	sexes          = []Sex{SexFemale, SexMale, SexUnknown}
	pigletStatuses = []PigletStatus{PigletAlive, PigletDead, PigletSold, PigletTransferred}
)

// Piglet belongs to one sow and optionally to one of its cycles.
type Piglet struct {
	ID               id.ID         `json:"id"`
	TagID            string        `json:"tagId,omitempty"`
	Sex              Sex           `json:"sex"`
	BirthWeight      *types.Weight `json:"birthWeight,omitempty"`
	WeaningWeight    *types.Weight `json:"weaningWeight,omitempty"`
	Status           PigletStatus  `json:"status"`
	StatusDate       *types.Date   `json:"statusDate,omitempty"`
	StatusDetail     string        `json:"statusDetail,omitempty"`
	ReferenceCycleID *id.ID        `json:"referenceCycleId"`
}

// LowBirthWeight reports birthWeight < 0.7 kg. Unknown weight is not flagged.
func (p *Piglet) LowBirthWeight() bool {
	return p.BirthWeight != nil && p.BirthWeight.Float64() < LowBirthWeightKg
}

// Normalize trims text, lower-cases tokens and applies defaults.
func (p *Piglet) Normalize() {
	p.TagID = strings.TrimSpace(p.TagID)
	p.StatusDetail = strings.TrimSpace(p.StatusDetail)
	p.Sex = Sex(strings.ToLower(strings.TrimSpace(string(p.Sex))))
	if p.Sex == "" {
		p.Sex = SexUnknown
	}
	p.Status = PigletStatus(strings.ToLower(strings.TrimSpace(string(p.Status))))
	if p.Status == "" {
		p.Status = PigletAlive
	}
	if p.ReferenceCycleID != nil && id.IsNil(*p.ReferenceCycleID) {
		p.ReferenceCycleID = nil
	}
	if p.StatusDate != nil && p.StatusDate.IsZero() {
		p.StatusDate = nil
	}
}

// validatePiglet checks the piglet against its owning sow.
func validatePiglet(p *Piglet, s *Sow) error {
	var errs apperror.FieldErrors
	if !slices.Contains(sexes, p.Sex) {
		errs.Add("sex", apperror.RuleEnum, fmt.Sprintf("unknown sex %q", p.Sex))
	}
	if !slices.Contains(pigletStatuses, p.Status) {
		errs.Add("status", apperror.RuleEnum, fmt.Sprintf("unknown status %q", p.Status))
	}
	if p.BirthWeight != nil && !p.BirthWeight.IsPositive() {
		errs.Add("birthWeight", apperror.RuleRange, "must be greater than zero")
	}
	if p.WeaningWeight != nil && !p.WeaningWeight.IsPositive() {
		errs.Add("weaningWeight", apperror.RuleRange, "must be greater than zero")
	}
	if p.ReferenceCycleID != nil && s.FindCycle(*p.ReferenceCycleID) < 0 {
		errs.Add("referenceCycleId", apperror.RuleReference, "cycle does not belong to this sow")
	}
	if p.TagID != "" {
		for i := range s.Piglets {
			other := &s.Piglets[i]
			if other.ID != p.ID && other.TagID == p.TagID {
				errs.Add("tagId", apperror.RuleDuplicate, fmt.Sprintf("tag %q already used by another piglet", p.TagID))
				break
			}
		}
	}
	return errs.Err()
}
