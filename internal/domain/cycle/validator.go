package cycle

import (
	"fmt"
	"slices"
	"time"

	"granja/internal/core/apperror"
	"granja/internal/core/types"
)

// Domain ranges.
const (
	MinBodyCondition   = 1.0
	MaxBodyCondition   = 5.0
	MinServicesInHeat  = 1
	MaxServicesInHeat  = 3
	MinPostPartumTempC = 35.0
	MaxPostPartumTempC = 43.0
)

const (
	timeOfDayLayout      = "15:04"
	litterSumViolation   = "bornAlive+stillborn+mummified exceeds totalBorn"
	sexSumViolation      = "males+females exceeds totalBorn"
	nonNegativeViolation = "must be zero or greater"
)

var (
	serviceTypes  = []ServiceType{ServiceNaturalMount, ServiceConventional, ServicePostCervical}
	checkResults  = []CheckResult{ResultPositive, ResultNegative, ResultPending}
	deliveryTypes = []DeliveryType{DeliveryNormal, DeliveryAssisted, DeliveryDystocic}
)

type namedDate struct {
	field string
	date  *types.Date
}

// timeline returns the five chronological milestones in their required order.
func timeline(c *Cycle) []namedDate {
	var service *types.Date
	if !c.Service.Date.IsZero() {
		d := c.Service.Date
		service = &d
	}
	return []namedDate{
		{"service.date", service},
		{"pregnancyCheck.date", c.PregnancyCheck.Date},
		{"farrowing.date", c.Farrowing.Date},
		{"lactation.weaningDate", c.Lactation.WeaningDate},
		{"lactation.postWeaningEstrusDate", c.Lactation.PostWeaningEstrusDate},
	}
}

// Validate checks one cycle against the domain invariants and against the
// other cycles of the same sow. existing may contain c itself (matched by id),
// which is ignored. The returned error is a field-tagged VALIDATION_ERROR
// listing every violation found.
func Validate(c *Cycle, existing []Cycle) error {
	var errs apperror.FieldErrors

	validateNumbering(c, existing, &errs)
	validateChronology(c, &errs)
	validateService(c.Service, &errs)
	validatePregnancyCheck(c.PregnancyCheck, &errs)
	validateFarrowing(c.Farrowing, &errs)
	validateLitter(c.Litter, &errs)
	validateLactation(c.Lactation, &errs)

	return errs.Err()
}

func validateNumbering(c *Cycle, existing []Cycle, errs *apperror.FieldErrors) {
	if c.CycleNumber <= 0 {
		errs.Add("cycleNumber", apperror.RuleRange, "must be a positive integer")
		return
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == c.ID {
			continue
		}
		if other.CycleNumber == c.CycleNumber {
			errs.Add("cycleNumber", apperror.RuleDuplicate,
				fmt.Sprintf("cycle number %d already exists for this sow", c.CycleNumber))
			return
		}
	}
	if c.Service.Date.IsZero() {
		return
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == c.ID || other.Service.Date.IsZero() {
			continue
		}
		earlier := other.CycleNumber < c.CycleNumber
		if earlier && !other.Service.Date.Before(c.Service.Date) ||
			!earlier && !other.Service.Date.After(c.Service.Date) {
			errs.Add("cycleNumber", apperror.RuleOrder,
				fmt.Sprintf("cycle %d serviced on %s is out of order with cycle %d serviced on %s",
					c.CycleNumber, c.Service.Date, other.CycleNumber, other.Service.Date))
			return
		}
	}
}

// validateChronology requires strict ordering between every present pair of
// milestones, not only adjacent ones. Each field is reported at most once.
func validateChronology(c *Cycle, errs *apperror.FieldErrors) {
	steps := timeline(c)
	for j := 1; j < len(steps); j++ {
		later := steps[j]
		if later.date == nil {
			continue
		}
		for i := j - 1; i >= 0; i-- {
			earlier := steps[i]
			if earlier.date == nil {
				continue
			}
			if !earlier.date.Before(*later.date) {
				errs.Add(later.field, apperror.RuleChronology,
					fmt.Sprintf("must be after %s (%s)", earlier.field, earlier.date))
				break
			}
		}
	}
}

func validateService(s Service, errs *apperror.FieldErrors) {
	if s.Date.IsZero() {
		errs.Add("service.date", apperror.RuleRequired, "service date is required")
	}
	if s.Type != "" && !slices.Contains(serviceTypes, s.Type) {
		errs.Add("service.type", apperror.RuleEnum, fmt.Sprintf("unknown service type %q", s.Type))
	}
	if s.ServicesInHeat < MinServicesInHeat || s.ServicesInHeat > MaxServicesInHeat {
		errs.Add("service.servicesInHeat", apperror.RuleRange,
			fmt.Sprintf("must be between %d and %d", MinServicesInHeat, MaxServicesInHeat))
	}
}

func validatePregnancyCheck(p PregnancyCheck, errs *apperror.FieldErrors) {
	if p.Result != "" && !slices.Contains(checkResults, p.Result) {
		errs.Add("pregnancyCheck.result", apperror.RuleEnum, fmt.Sprintf("unknown result %q", p.Result))
	}
}

func validateFarrowing(f Farrowing, errs *apperror.FieldErrors) {
	if f.DeliveryType != "" && !slices.Contains(deliveryTypes, f.DeliveryType) {
		errs.Add("farrowing.deliveryType", apperror.RuleEnum,
			fmt.Sprintf("unknown delivery type %q", f.DeliveryType))
	}
	nonNegative("farrowing.labourDurationMinutes", f.LabourDurationMinutes, errs)
	timeOfDay("farrowing.startTime", f.StartTime, errs)
	timeOfDay("farrowing.endTime", f.EndTime, errs)
	if t := f.PostPartumTemperature; t != nil && (*t < MinPostPartumTempC || *t > MaxPostPartumTempC) {
		errs.Add("farrowing.postPartumTemperature", apperror.RuleRange,
			fmt.Sprintf("must be between %.0f and %.0f", MinPostPartumTempC, MaxPostPartumTempC))
	}
}

func validateLitter(l Litter, errs *apperror.FieldErrors) {
	nonNegative("litter.totalBorn", l.TotalBorn, errs)
	nonNegative("litter.bornAlive", l.BornAlive, errs)
	nonNegative("litter.stillborn", l.Stillborn, errs)
	nonNegative("litter.mummified", l.Mummified, errs)
	nonNegative("litter.males", l.Males, errs)
	nonNegative("litter.females", l.Females, errs)
	nonNegativeWeight("litter.totalBirthWeight", l.TotalBirthWeight, errs)

	if l.TotalBorn == nil {
		return
	}
	if IntVal(l.BornAlive)+IntVal(l.Stillborn)+IntVal(l.Mummified) > *l.TotalBorn {
		errs.Add("litter.totalBorn", apperror.RuleLitterSum, litterSumViolation)
	}
	if IntVal(l.Males)+IntVal(l.Females) > *l.TotalBorn {
		errs.Add("litter.totalBorn", apperror.RuleSexSum, sexSumViolation)
	}
}

func validateLactation(l Lactation, errs *apperror.FieldErrors) {
	nonNegative("lactation.pigletsWeaned", l.PigletsWeaned, errs)
	nonNegativeWeight("lactation.weightPerPiglet", l.WeightPerPiglet, errs)
	nonNegativeWeight("lactation.totalWeaningWeight", l.TotalWeaningWeight, errs)
	BodyCondition("lactation.sowBodyCondition", l.SowBodyCondition, errs)
}

// ValidateTransition rejects an update whose derived state is not reachable
// from the previously stored state.
func ValidateTransition(prev, next State) error {
	if prev == "" || prev.CanReach(next) {
		return nil
	}
	var errs apperror.FieldErrors
	errs.Add("state", apperror.RuleTransition, fmt.Sprintf("cycle cannot move from %s to %s", prev, next))
	return errs.Err()
}

// BodyCondition adds a range violation when score is outside [1,5].
func BodyCondition(field string, score *float64, errs *apperror.FieldErrors) {
	if score != nil && (*score < MinBodyCondition || *score > MaxBodyCondition) {
		errs.Add(field, apperror.RuleRange, "body condition must be between 1 and 5")
	}
}

func nonNegative(field string, v *int, errs *apperror.FieldErrors) {
	if v != nil && *v < 0 {
		errs.Add(field, apperror.RuleRange, nonNegativeViolation)
	}
}

func nonNegativeWeight(field string, w *types.Weight, errs *apperror.FieldErrors) {
	if w != nil && w.IsNegative() {
		errs.Add(field, apperror.RuleRange, nonNegativeViolation)
	}
}

func timeOfDay(field, v string, errs *apperror.FieldErrors) {
	if v == "" {
		return
	}
	if _, err := time.Parse(timeOfDayLayout, v); err != nil {
		errs.Add(field, apperror.RuleInvalidFormat, "must be a time of day as HH:MM")
	}
}
