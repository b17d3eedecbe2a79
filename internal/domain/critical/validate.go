package critical

import (
	"fmt"
	"slices"
	"strings"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/domain/cycle"
)

var (
	intensities = []HeatIntensity{IntensityWeak, IntensityMedium, IntensityStrong}
	fetusStates = []FetusState{FetusFresh, FetusAutolyzed, FetusMummified}
	causes      = []AbortionCause{
		CauseInfectious, CauseNutritional, CauseStress, CauseManagement, CauseToxic, CauseUnknown,
	}
)

func token(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Kind implements Entry.
func (*HeatDetection) Kind() Kind { return KindHeatDetection }

// Normalize implements Entry.
func (h *HeatDetection) Normalize() {
	h.Intensity = HeatIntensity(token(string(h.Intensity)))
	h.DetectionMethod = strings.TrimSpace(h.DetectionMethod)
	h.Notes = strings.TrimSpace(h.Notes)
}

// Validate implements Entry.
func (h *HeatDetection) Validate() error {
	var errs apperror.FieldErrors
	if h.Date.IsZero() {
		errs.Add("date", apperror.RuleRequired, "date is required")
	}
	if h.DurationHours != nil && *h.DurationHours < 0 {
		errs.Add("durationHours", apperror.RuleRange, "must be zero or greater")
	}
	if h.Intensity != "" && !slices.Contains(intensities, h.Intensity) {
		errs.Add("intensity", apperror.RuleEnum, fmt.Sprintf("unknown intensity %q", h.Intensity))
	}
	return errs.Err()
}

// Kind implements Entry.
func (*GestationMonitoring) Kind() Kind { return KindGestationMonitoring }

// Normalize implements Entry.
func (g *GestationMonitoring) Normalize() {
	g.Vaccines = cycle.Compact(g.Vaccines)
	g.Treatments = cycle.Compact(g.Treatments)
	g.Notes = strings.TrimSpace(g.Notes)
}

// Validate implements Entry.
func (g *GestationMonitoring) Validate() error {
	var errs apperror.FieldErrors
	if g.Date.IsZero() {
		errs.Add("date", apperror.RuleRequired, "date is required")
	}
	cycle.BodyCondition("bodyCondition", g.BodyCondition, &errs)
	return errs.Err()
}

// Kind implements Entry.
func (*Abortion) Kind() Kind { return KindAbortion }

// Normalize implements Entry.
func (a *Abortion) Normalize() {
	a.FetusState = FetusState(token(string(a.FetusState)))
	a.ProbableCause = AbortionCause(token(string(a.ProbableCause)))
	a.CorrectiveActions = strings.TrimSpace(a.CorrectiveActions)
	a.FollowUp = strings.TrimSpace(a.FollowUp)
	if a.CycleID != nil && id.IsNil(*a.CycleID) {
		a.CycleID = nil
	}
}

// Validate implements Entry.
func (a *Abortion) Validate() error {
	var errs apperror.FieldErrors
	if a.Date.IsZero() {
		errs.Add("date", apperror.RuleRequired, "date is required")
	}
	switch {
	case a.GestationDays == nil:
		errs.Add("gestationDays", apperror.RuleRequired, "gestation day count is required")
	case *a.GestationDays < 1 || *a.GestationDays > cycle.GestationDays:
		errs.Add("gestationDays", apperror.RuleRange,
			fmt.Sprintf("must be between 1 and %d", cycle.GestationDays))
	}
	switch {
	case a.FetusState == "":
		errs.Add("fetusState", apperror.RuleRequired, "fetus state is required")
	case !slices.Contains(fetusStates, a.FetusState):
		errs.Add("fetusState", apperror.RuleEnum, fmt.Sprintf("unknown fetus state %q", a.FetusState))
	}
	if a.FetusesExpelled != nil && *a.FetusesExpelled < 0 {
		errs.Add("fetusesExpelled", apperror.RuleRange, "must be zero or greater")
	}
	if a.ProbableCause != "" && !slices.Contains(causes, a.ProbableCause) {
		errs.Add("probableCause", apperror.RuleEnum, fmt.Sprintf("unknown cause %q", a.ProbableCause))
	}
	return errs.Err()
}

// Kind implements Entry.
func (*FarrowingDetail) Kind() Kind { return KindFarrowingDetail }

// Normalize implements Entry.
func (f *FarrowingDetail) Normalize() {
	f.DeliveryType = cycle.DeliveryType(token(string(f.DeliveryType)))
	f.StartTime = strings.TrimSpace(f.StartTime)
	f.EndTime = strings.TrimSpace(f.EndTime)
	f.AssistanceType = strings.TrimSpace(f.AssistanceType)
	f.Medications = cycle.Compact(f.Medications)
	if f.Date != nil && f.Date.IsZero() {
		f.Date = nil
	}
}

// Validate implements Entry. Field ranges are checked again on the merged
// cycle; here only the reference is required.
func (f *FarrowingDetail) Validate() error {
	var errs apperror.FieldErrors
	if id.IsNil(f.CycleID) {
		errs.Add("cycleId", apperror.RuleRequired, "farrowing details must reference a cycle")
	}
	return errs.Err()
}

// MergeInto applies the detail onto a cycle that already has a farrowing
// date. A detail date, when given, must equal that date.
func (f *FarrowingDetail) MergeInto(c *cycle.Cycle) error {
	var errs apperror.FieldErrors
	if !c.HasFarrowing() {
		errs.Add("cycleId", apperror.RuleReference, "referenced cycle has no farrowing recorded")
		return errs.Err()
	}
	if f.Date != nil && !f.Date.Equal(*c.Farrowing.Date) {
		errs.Add("date", apperror.RuleMismatch,
			fmt.Sprintf("detail date %s differs from recorded farrowing date %s", f.Date, c.Farrowing.Date))
		return errs.Err()
	}

	dst := &c.Farrowing
	if f.DeliveryType != "" {
		dst.DeliveryType = f.DeliveryType
	}
	if f.LabourDurationMinutes != nil {
		dst.LabourDurationMinutes = f.LabourDurationMinutes
	}
	if f.StartTime != "" {
		dst.StartTime = f.StartTime
	}
	if f.EndTime != "" {
		dst.EndTime = f.EndTime
	}
	if f.Assisted != nil {
		dst.Assisted = *f.Assisted
	}
	if f.AssistanceType != "" {
		dst.AssistanceType = f.AssistanceType
	}
	if f.PostPartumTemperature != nil {
		dst.PostPartumTemperature = f.PostPartumTemperature
	}
	if len(f.Medications) > 0 {
		dst.Medications = cycle.Compact(append(dst.Medications, f.Medications...))
	}
	return nil
}
