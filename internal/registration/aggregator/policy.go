package aggregator

import (
	"checkpoint/internal/recognition"
	pstrings "checkpoint/pkg/platform/strings"
)

// Rule decides whether one side of an aggregation produced usable data: the
// backend said so, or any of the listed fields came back non-empty. Some
// recognizers omit their success flag even when they return data.
type Rule struct {
	AnyOf []string
}

// Satisfied evaluates the rule against a recognition result.
func (r Rule) Satisfied(res *recognition.Result) bool {
	if res == nil {
		return false
	}
	if res.Success {
		return true
	}
	values := make([]string, 0, len(r.AnyOf))
	for _, field := range r.AnyOf {
		values = append(values, res.Field(field))
	}
	return pstrings.AnyNonEmpty(values...)
}

// Policy combines the per-side rules. An aggregation succeeds only when both
// sides are satisfied.
type Policy struct {
	Identity Rule
	Plate    Rule
}

// DefaultPolicy is the lenient per-side disjunction used at the checkpoint.
func DefaultPolicy() Policy {
	return Policy{
		Identity: Rule{AnyOf: []string{
			recognition.FieldIDNumber,
			recognition.FieldFirstName,
			recognition.FieldLastName,
		}},
		Plate: Rule{AnyOf: []string{recognition.FieldPlateNumber}},
	}
}

// Verdict is the per-side evaluation of a Policy.
type Verdict struct {
	IdentityOK bool
	PlateOK    bool
}

// Success reports whether both sides passed.
func (v Verdict) Success() bool {
	return v.IdentityOK && v.PlateOK
}

// Evaluate applies the policy to both results.
func (p Policy) Evaluate(identity, plate *recognition.Result) Verdict {
	return Verdict{
		IdentityOK: p.Identity.Satisfied(identity),
		PlateOK:    p.Plate.Satisfied(plate),
	}
}
