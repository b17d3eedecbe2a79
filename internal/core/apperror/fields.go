package apperror

// Validation rule identifiers used in FieldError.Rule.
const (
	RuleRequired      = "required"
	RuleRange         = "range"
	RuleEnum          = "enum"
	RuleChronology    = "chronology"
	RuleDuplicate     = "duplicate"
	RuleOrder         = "order"
	RuleLitterSum     = "litter_sum"
	RuleSexSum        = "sex_sum"
	RuleReference     = "reference"
	RuleTransition    = "transition"
	RuleMismatch      = "mismatch"
	RuleInvalidFormat = "format"
)

// FieldError describes one violated rule on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// FieldErrors collects violations so callers can report all of them at once.
type FieldErrors []FieldError

// Add appends a violation.
func (f *FieldErrors) Add(field, rule, message string) {
	*f = append(*f, FieldError{Field: field, Rule: rule, Message: message})
}

// Merge appends violations of another collector, prefixing their field path.
func (f *FieldErrors) Merge(prefix string, other FieldErrors) {
	for _, fe := range other {
		if prefix != "" {
			fe.Field = prefix + "." + fe.Field
		}
		*f = append(*f, fe)
	}
}

// Empty reports whether no violation was collected.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Err returns nil when empty, otherwise a VALIDATION_ERROR AppError.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	out := make([]FieldError, len(f))
	copy(out, f)
	return NewFieldValidation(out)
}
