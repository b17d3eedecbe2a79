// Package cycle models one breeding attempt of a sow (service through weaning),
// validates it and derives its lifecycle state and per-cycle metrics.
package cycle

import (
	"strings"

	"granja/internal/core/id"
	"granja/internal/core/types"
)

// GestationDays is the fixed gestation length used for expected farrowing dates.
const GestationDays = 114

// ServiceType is the service (mating) method token.
type ServiceType string

const (
	ServiceNaturalMount ServiceType = "monta_natural"   // Monta natural
	ServiceConventional ServiceType = "ia_convencional" // Inseminación artificial convencional
	ServicePostCervical ServiceType = "ia_postcervical" // Inseminación artificial post-cervical
)

// CheckResult is the pregnancy check outcome token.
type CheckResult string

const (
	ResultPositive CheckResult = "positivo"
	ResultNegative CheckResult = "negativo"
	ResultPending  CheckResult = "pendiente"
)

// DeliveryType is the farrowing delivery token.
type DeliveryType string

const (
	DeliveryNormal   DeliveryType = "normal"
	DeliveryAssisted DeliveryType = "asistido"
	DeliveryDystocic DeliveryType = "distocico"
)

// Service records the mating/insemination event that opens a cycle.
type Service struct {
	Date           types.Date  `json:"date"`
	Type           ServiceType `json:"type,omitempty"`
	SireReference  string      `json:"sireReference,omitempty"`
	DoseReference  string      `json:"doseReference,omitempty"`
	Inseminator    string      `json:"inseminator,omitempty"`
	ServicesInHeat int         `json:"servicesInHeat,omitempty"`
}

// PregnancyCheck records the diagnosis (ultrasound, return to heat...).
type PregnancyCheck struct {
	Date   *types.Date `json:"date,omitempty"`
	Method string      `json:"method,omitempty"`
	Result CheckResult `json:"result,omitempty"`
}

// Farrowing records the birth event and its clinical details.
type Farrowing struct {
	Date                  *types.Date  `json:"date,omitempty"`
	DeliveryType          DeliveryType `json:"deliveryType,omitempty"`
	LabourDurationMinutes *int         `json:"labourDurationMinutes,omitempty"`
	StartTime             string       `json:"startTime,omitempty"`
	EndTime               string       `json:"endTime,omitempty"`
	Assisted              bool         `json:"assisted,omitempty"`
	AssistanceType        string       `json:"assistanceType,omitempty"`
	PostPartumTemperature *float64     `json:"postPartumTemperature,omitempty"`
	Medications           []string     `json:"medications,omitempty"`
}

// Litter holds the counts at birth.
type Litter struct {
	TotalBorn        *int          `json:"totalBorn,omitempty"`
	BornAlive        *int          `json:"bornAlive,omitempty"`
	Stillborn        *int          `json:"stillborn,omitempty"`
	Mummified        *int          `json:"mummified,omitempty"`
	Malformations    string        `json:"malformations,omitempty"`
	Males            *int          `json:"males,omitempty"`
	Females          *int          `json:"females,omitempty"`
	TotalBirthWeight *types.Weight `json:"totalBirthWeight,omitempty"`
}

// Lactation holds weaning data and the post-weaning heat.
type Lactation struct {
	WeaningDate           *types.Date   `json:"weaningDate,omitempty"`
	PigletsWeaned         *int          `json:"pigletsWeaned,omitempty"`
	WeightPerPiglet       *types.Weight `json:"weightPerPiglet,omitempty"`
	TotalWeaningWeight    *types.Weight `json:"totalWeaningWeight,omitempty"`
	DurationDays          *int          `json:"durationDays,omitempty"`
	MortalityNotes        string        `json:"mortalityNotes,omitempty"`
	AdoptionNotes         string        `json:"adoptionNotes,omitempty"`
	SowBodyCondition      *float64      `json:"sowBodyCondition,omitempty"`
	PostWeaningEstrusDate *types.Date   `json:"postWeaningEstrusDate,omitempty"`
	IDC                   *int          `json:"idc,omitempty"`
}

// ProductivityIssues keeps free-text notes about problems in this cycle.
type ProductivityIssues struct {
	Abortions string `json:"abortions,omitempty"`
	Repeats   string `json:"repeats,omitempty"`
	Anestrus  string `json:"anestrus,omitempty"`
}

// Cycle is one reproductive record of a sow. The same record accumulates
// fields as the cycle progresses; it is never replaced per stage.
type Cycle struct {
	ID                 id.ID              `json:"id"`
	CycleNumber        int                `json:"cycleNumber"`
	Service            Service            `json:"service"`
	PregnancyCheck     PregnancyCheck     `json:"pregnancyCheck"`
	Farrowing          Farrowing          `json:"farrowing"`
	Litter             Litter             `json:"litter"`
	Lactation          Lactation          `json:"lactation"`
	ProductivityIssues ProductivityIssues `json:"productivityIssues"`
}

// HasPregnancyCheck reports whether a diagnosis was recorded.
func (c *Cycle) HasPregnancyCheck() bool {
	return types.Present(c.PregnancyCheck.Date) || c.PregnancyCheck.Result != ""
}

// HasFarrowing reports whether the farrowing date is set.
func (c *Cycle) HasFarrowing() bool {
	return types.Present(c.Farrowing.Date)
}

// HasWeaning reports whether the weaning date is set.
func (c *Cycle) HasWeaning() bool {
	return types.Present(c.Lactation.WeaningDate)
}

// HasPostWeaningEstrus reports whether the post-weaning heat date is set.
func (c *Cycle) HasPostWeaningEstrus() bool {
	return types.Present(c.Lactation.PostWeaningEstrusDate)
}

// Normalize trims text, lower-cases tokens, drops empty dates and recomputes
// the fields that are pure functions of other fields.
func (c *Cycle) Normalize() {
	c.Service.Type = ServiceType(token(string(c.Service.Type)))
	c.Service.SireReference = strings.TrimSpace(c.Service.SireReference)
	c.Service.DoseReference = strings.TrimSpace(c.Service.DoseReference)
	c.Service.Inseminator = strings.TrimSpace(c.Service.Inseminator)
	if c.Service.ServicesInHeat == 0 {
		c.Service.ServicesInHeat = 1
	}

	c.PregnancyCheck.Date = dropZero(c.PregnancyCheck.Date)
	c.PregnancyCheck.Method = strings.TrimSpace(c.PregnancyCheck.Method)
	c.PregnancyCheck.Result = CheckResult(token(string(c.PregnancyCheck.Result)))

	c.Farrowing.Date = dropZero(c.Farrowing.Date)
	c.Farrowing.DeliveryType = DeliveryType(token(string(c.Farrowing.DeliveryType)))
	c.Farrowing.AssistanceType = strings.TrimSpace(c.Farrowing.AssistanceType)
	c.Farrowing.Medications = compact(c.Farrowing.Medications)
	if c.Farrowing.DeliveryType == DeliveryAssisted || c.Farrowing.AssistanceType != "" {
		c.Farrowing.Assisted = true
	}

	c.Litter.Malformations = strings.TrimSpace(c.Litter.Malformations)

	l := &c.Lactation
	l.WeaningDate = dropZero(l.WeaningDate)
	l.PostWeaningEstrusDate = dropZero(l.PostWeaningEstrusDate)
	l.MortalityNotes = strings.TrimSpace(l.MortalityNotes)
	l.AdoptionNotes = strings.TrimSpace(l.AdoptionNotes)

	if c.HasFarrowing() && l.WeaningDate != nil {
		days := l.WeaningDate.DaysSince(*c.Farrowing.Date)
		l.DurationDays = &days
	}
	l.IDC = IDC(c)

	if l.PigletsWeaned != nil && *l.PigletsWeaned > 0 {
		switch {
		case l.TotalWeaningWeight == nil && l.WeightPerPiglet != nil:
			total := l.WeightPerPiglet.MulInt(*l.PigletsWeaned)
			l.TotalWeaningWeight = &total
		case l.WeightPerPiglet == nil && l.TotalWeaningWeight != nil:
			per := l.TotalWeaningWeight.DivInt(*l.PigletsWeaned)
			l.WeightPerPiglet = &per
		}
	}

	c.ProductivityIssues.Abortions = strings.TrimSpace(c.ProductivityIssues.Abortions)
	c.ProductivityIssues.Repeats = strings.TrimSpace(c.ProductivityIssues.Repeats)
	c.ProductivityIssues.Anestrus = strings.TrimSpace(c.ProductivityIssues.Anestrus)
}

func token(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func dropZero(d *types.Date) *types.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Compact trims and deduplicates a list of free-text entries.
func Compact(in []string) []string {
	return compact(in)
}

// IntVal returns the value of an optional count, or 0.
func IntVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// IntPtr is a convenience for optional counts in literals and tests.
func IntPtr(v int) *int {
	return &v
}
