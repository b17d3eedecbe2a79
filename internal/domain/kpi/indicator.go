package kpi

// Status classifies an indicator against its zootechnical target.
type Status string

const (
	StatusOnTarget  Status = "on_target"
	StatusOffTarget Status = "off_target"
	StatusNoData    Status = "no_data"
)

// Target is an acceptable closed range; a nil bound is open.
type Target struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Between builds a closed [min,max] target.
func Between(min, max float64) Target {
	return Target{Min: &min, Max: &max}
}

// AtMost builds a (-∞,max] target.
func AtMost(max float64) Target {
	return Target{Max: &max}
}

// AtLeast builds a [min,+∞) target.
func AtLeast(min float64) Target {
	return Target{Min: &min}
}

// Contains reports whether f satisfies the target.
func (t Target) Contains(f float64) bool {
	if t.Min != nil && f < *t.Min {
		return false
	}
	if t.Max != nil && f > *t.Max {
		return false
	}
	return true
}

// Indicator is a value with its target and the resulting status.
type Indicator struct {
	Value  Value   `json:"value"`
	Target *Target `json:"target,omitempty"`
	Status Status  `json:"status"`
}

// Evaluate builds an Indicator for v against t.
func Evaluate(v Value, t Target) Indicator {
	ind := Indicator{Value: v, Target: &t, Status: StatusNoData}
	if f, ok := v.Get(); ok {
		if t.Contains(f) {
			ind.Status = StatusOnTarget
		} else {
			ind.Status = StatusOffTarget
		}
	}
	return ind
}

// Untargeted builds an Indicator with no target; status only tells whether
// the value is defined.
func Untargeted(v Value) Indicator {
	ind := Indicator{Value: v, Status: StatusNoData}
	if v.OK() {
		ind.Status = StatusOnTarget
	}
	return ind
}
