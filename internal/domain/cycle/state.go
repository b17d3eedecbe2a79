package cycle

import (
	"granja/internal/core/id"
	"granja/internal/core/types"
)

// State is the explicit lifecycle stage of a cycle. It is derived once from
// the recorded events; KPI code branches on it instead of re-checking fields.
type State string

const (
	StateServiced          State = "SERVICED"
	StatePregnancyPending  State = "PREGNANCY_PENDING"
	StatePregnancyOK       State = "PREGNANCY_CONFIRMED"
	StatePregnancyNegative State = "PREGNANCY_NEGATIVE"
	StateAborted           State = "ABORTED"
	StateFarrowed          State = "FARROWED"
	StateLactating         State = "LACTATING"
	StateWeaned            State = "WEANED"
	StateEstrusDetected    State = "POST_WEANING_ESTRUS_DETECTED"
)

// AbortionEvent is the part of an abortion record the tracker needs.
type AbortionEvent struct {
	CycleID *id.ID
	Date    types.Date
}

// transitions lists the direct successors of each state. Skipping the
// pregnancy check (service straight to farrowing) is a valid recording path.
var transitions = map[State][]State{
	StateServiced:         {StatePregnancyPending, StatePregnancyOK, StatePregnancyNegative, StateFarrowed, StateLactating},
	StatePregnancyPending: {StatePregnancyOK, StatePregnancyNegative, StateFarrowed, StateLactating},
	StatePregnancyOK:      {StateFarrowed, StateLactating, StateAborted},
	StateFarrowed:         {StateLactating, StateWeaned},
	StateLactating:        {StateFarrowed, StateWeaned},
	StateWeaned:           {StateEstrusDetected},
	StateEstrusDetected:   {},
	// Terminal.
	StatePregnancyNegative: {},
	StateAborted:           {},
}

// IsTerminal reports whether no further state can be entered.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsFailed reports whether the service did not lead to a farrowing (a repeat
// or an abortion).
func (s State) IsFailed() bool {
	return s == StatePregnancyNegative || s == StateAborted
}

// HasFarrowed reports whether the cycle reached farrowing.
func (s State) HasFarrowed() bool {
	switch s {
	case StateFarrowed, StateLactating, StateWeaned, StateEstrusDetected:
		return true
	}
	return false
}

// IsGestating reports whether the sow is (possibly) pregnant in this cycle.
func (s State) IsGestating() bool {
	switch s {
	case StateServiced, StatePregnancyPending, StatePregnancyOK:
		return true
	}
	return false
}

// CanReach reports whether to is reachable from s by following transitions.
// A state always reaches itself.
func (s State) CanReach(to State) bool {
	if s == to {
		return true
	}
	seen := map[State]bool{s: true}
	queue := []State{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range transitions[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// DeriveState computes the lifecycle stage from the recorded fields.
func DeriveState(c *Cycle, abortions []AbortionEvent) State {
	switch {
	case c.HasPostWeaningEstrus():
		return StateEstrusDetected
	case c.HasWeaning():
		return StateWeaned
	case c.HasFarrowing():
		if c.Litter.BornAlive != nil && *c.Litter.BornAlive == 0 {
			return StateFarrowed
		}
		return StateLactating
	}

	if !c.HasPregnancyCheck() {
		return StateServiced
	}
	switch c.PregnancyCheck.Result {
	case ResultNegative:
		return StatePregnancyNegative
	case ResultPositive:
		if AbortedIn(c, abortions) {
			return StateAborted
		}
		return StatePregnancyOK
	default:
		return StatePregnancyPending
	}
}

// AbortedIn reports whether one of the abortions belongs to this cycle,
// either by explicit reference or by falling inside its gestation window.
func AbortedIn(c *Cycle, abortions []AbortionEvent) bool {
	if c.Service.Date.IsZero() {
		return false
	}
	windowEnd := ExpectedFarrowingDate(c.Service.Date)
	for _, a := range abortions {
		if a.CycleID != nil {
			if *a.CycleID == c.ID {
				return true
			}
			continue
		}
		if a.Date.IsZero() {
			continue
		}
		if !a.Date.Before(c.Service.Date) && !a.Date.After(windowEnd) {
			return true
		}
	}
	return false
}

// AttributeAbortions resolves abortions recorded without a cycle reference to
// the most recent cycle serviced on or before the abortion date, provided the
// date falls inside that cycle's gestation window. Unattributable events are
// dropped; the returned events all carry a CycleID.
func AttributeAbortions(cycles []Cycle, abortions []AbortionEvent) []AbortionEvent {
	out := make([]AbortionEvent, 0, len(abortions))
	for _, a := range abortions {
		if a.CycleID != nil {
			out = append(out, a)
			continue
		}
		if a.Date.IsZero() {
			continue
		}
		var owner *Cycle
		for i := range cycles {
			c := &cycles[i]
			if c.Service.Date.IsZero() || c.Service.Date.After(a.Date) {
				continue
			}
			if owner == nil || c.Service.Date.After(owner.Service.Date) {
				owner = c
			}
		}
		if owner == nil || a.Date.After(ExpectedFarrowingDate(owner.Service.Date)) {
			continue
		}
		cycleID := owner.ID
		out = append(out, AbortionEvent{CycleID: &cycleID, Date: a.Date})
	}
	return out
}

// DeriveStates derives the state of every cycle of one sow.
func DeriveStates(cycles []Cycle, abortions []AbortionEvent) map[id.ID]State {
	attributed := AttributeAbortions(cycles, abortions)
	states := make(map[id.ID]State, len(cycles))
	for i := range cycles {
		states[cycles[i].ID] = DeriveState(&cycles[i], attributed)
	}
	return states
}
