// Package critical defines the critical-period observations recorded against a
// sow: heat detections, gestation monitoring, abortions and farrowing details.
package critical

import (
	"strings"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/domain/cycle"
)

// Kind identifies the observation list an entry belongs to.
type Kind string

const (
	KindHeatDetection       Kind = "heatDetection"
	KindGestationMonitoring Kind = "gestationMonitoring"
	KindAbortion            Kind = "abortion"
	KindFarrowingDetail     Kind = "farrowingDetail"
)

// ParseKind accepts the kind token or its URL segment form.
func ParseKind(s string) (Kind, error) {
	switch strings.TrimSpace(s) {
	case string(KindHeatDetection), "heat-detections":
		return KindHeatDetection, nil
	case string(KindGestationMonitoring), "gestation-monitoring":
		return KindGestationMonitoring, nil
	case string(KindAbortion), "abortions":
		return KindAbortion, nil
	case string(KindFarrowingDetail), "farrowing-details":
		return KindFarrowingDetail, nil
	}
	return "", apperror.NewValidation("unknown critical period kind").WithDetail("kind", s)
}

// HeatIntensity tokens.
type HeatIntensity string

const (
	IntensityWeak   HeatIntensity = "debil"
	IntensityMedium HeatIntensity = "media"
	IntensityStrong HeatIntensity = "fuerte"
)

// FetusState tokens.
type FetusState string

const (
	FetusFresh     FetusState = "fresco"
	FetusAutolyzed FetusState = "autolizado"
	FetusMummified FetusState = "momificado"
)

// AbortionCause tokens.
type AbortionCause string

const (
	CauseInfectious  AbortionCause = "infecciosa"
	CauseNutritional AbortionCause = "nutricional"
	CauseStress      AbortionCause = "estres"
	CauseManagement  AbortionCause = "manejo"
	CauseToxic       AbortionCause = "toxica"
	CauseUnknown     AbortionCause = "desconocida"
)

// Entry is one observation submitted to the recorder.
type Entry interface {
	Kind() Kind
	Normalize()
	Validate() error
}

// HeatDetection records an observed heat.
type HeatDetection struct {
	ID              id.ID         `json:"id"`
	Date            types.Date    `json:"date"`
	DurationHours   *float64      `json:"durationHours,omitempty"`
	Intensity       HeatIntensity `json:"intensity,omitempty"`
	DetectionMethod string        `json:"detectionMethod,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// GestationMonitoring records a check-up during gestation.
type GestationMonitoring struct {
	ID            id.ID      `json:"id"`
	Date          types.Date `json:"date"`
	BodyCondition *float64   `json:"bodyCondition,omitempty"`
	Vaccines      []string   `json:"vaccines,omitempty"`
	Treatments    []string   `json:"treatments,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Abortion records a pregnancy loss. CycleID is optional; without it the
// tracker attributes the abortion by date.
type Abortion struct {
	ID                id.ID         `json:"id"`
	Date              types.Date    `json:"date"`
	CycleID           *id.ID        `json:"cycleId,omitempty"`
	GestationDays     *int          `json:"gestationDays,omitempty"`
	FetusesExpelled   *int          `json:"fetusesExpelled,omitempty"`
	FetusState        FetusState    `json:"fetusState,omitempty"`
	ProbableCause     AbortionCause `json:"probableCause,omitempty"`
	CorrectiveActions string        `json:"correctiveActions,omitempty"`
	FollowUp          string        `json:"followUp,omitempty"`
}

// FarrowingDetail enriches the farrowing sub-record of an existing cycle.
// Only the fields that are set are merged.
type FarrowingDetail struct {
	CycleID               id.ID              `json:"cycleId"`
	Date                  *types.Date        `json:"date,omitempty"`
	DeliveryType          cycle.DeliveryType `json:"deliveryType,omitempty"`
	LabourDurationMinutes *int               `json:"labourDurationMinutes,omitempty"`
	StartTime             string             `json:"startTime,omitempty"`
	EndTime               string             `json:"endTime,omitempty"`
	Assisted              *bool              `json:"assisted,omitempty"`
	AssistanceType        string             `json:"assistanceType,omitempty"`
	PostPartumTemperature *float64           `json:"postPartumTemperature,omitempty"`
	Medications           []string           `json:"medications,omitempty"`
}

// Periods holds the append-only observation lists of one sow.
type Periods struct {
	HeatDetections      []HeatDetection       `json:"heatDetections"`
	GestationMonitoring []GestationMonitoring `json:"gestationMonitoring"`
	Abortions           []Abortion            `json:"abortions"`
}

// AbortionEvents projects the abortion log for the cycle tracker.
func (p *Periods) AbortionEvents() []cycle.AbortionEvent {
	if len(p.Abortions) == 0 {
		return nil
	}
	out := make([]cycle.AbortionEvent, 0, len(p.Abortions))
	for _, a := range p.Abortions {
		out = append(out, cycle.AbortionEvent{CycleID: a.CycleID, Date: a.Date})
	}
	return out
}

// HeatDates returns the dates of all heat detections.
func (p *Periods) HeatDates() []types.Date {
	out := make([]types.Date, 0, len(p.HeatDetections))
	for _, h := range p.HeatDetections {
		out = append(out, h.Date)
	}
	return out
}

// Append adds an entry to its list, assigning a new id. Farrowing details are
// not stored here and return false.
func (p *Periods) Append(e Entry) (id.ID, bool) {
	entryID := id.New()
	switch v := e.(type) {
	case *HeatDetection:
		v.ID = entryID
		p.HeatDetections = append(p.HeatDetections, *v)
	case *GestationMonitoring:
		v.ID = entryID
		p.GestationMonitoring = append(p.GestationMonitoring, *v)
	case *Abortion:
		v.ID = entryID
		p.Abortions = append(p.Abortions, *v)
	default:
		return id.Nil(), false
	}
	return entryID, true
}

// Remove deletes the entry with the given id from the list of kind.
func (p *Periods) Remove(kind Kind, entryID id.ID) bool {
	switch kind {
	case KindHeatDetection:
		return removeByID(&p.HeatDetections, entryID, func(e HeatDetection) id.ID { return e.ID })
	case KindGestationMonitoring:
		return removeByID(&p.GestationMonitoring, entryID, func(e GestationMonitoring) id.ID { return e.ID })
	case KindAbortion:
		return removeByID(&p.Abortions, entryID, func(e Abortion) id.ID { return e.ID })
	}
	return false
}

// DetachCycle clears abortion references to a deleted cycle.
func (p *Periods) DetachCycle(cycleID id.ID) {
	for i := range p.Abortions {
		if ref := p.Abortions[i].CycleID; ref != nil && *ref == cycleID {
			p.Abortions[i].CycleID = nil
		}
	}
}

func removeByID[T any](list *[]T, target id.ID, key func(T) id.ID) bool {
	for i, e := range *list {
		if key(e) == target {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
