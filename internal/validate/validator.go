// Package validate sanitizes physical constants before they reach the
// derivative laws. Hard failures (non-finite, wrong sign) substitute a
// documented default and are counted; soft range excursions only warn.
package validate

import (
	"log/slog"
	"math"
)

// Rule describes the constraints on one parameter kind.
type Rule struct {
	RequirePositive bool
	Default         float64
	// Soft bounds. Values outside [SoftMin, SoftMax] are flagged but
	// accepted unchanged. Zero values disable the range check.
	SoftMin, SoftMax float64
}

// Well-known rules for the constants every system shares.
var (
	RuleG    = Rule{RequirePositive: true, Default: 1.0, SoftMin: 0.001, SoftMax: 1000}
	RuleDt   = Rule{RequirePositive: true, Default: 0.001, SoftMin: 1e-6, SoftMax: 0.1}
	RuleMass = Rule{RequirePositive: true, Default: 1.0, SoftMin: 0.001, SoftMax: 10000}
)

// Validator applies rules and keeps per-parameter correction counts.
type Validator struct {
	log         *slog.Logger
	corrections map[string]int
	onCorrected func(name string)
}

func New(log *slog.Logger) *Validator {
	return &Validator{
		log:         log,
		corrections: make(map[string]int),
	}
}

// OnCorrected registers a hook invoked once per substitution, used to
// feed the metrics collector.
func (v *Validator) OnCorrected(fn func(name string)) {
	v.onCorrected = fn
}

// Validate returns the sanitized value and whether a substitution was
// applied. A hard-rule failure substitutes the rule default, increments
// the parameter's correction counter and logs a warning. Soft range
// excursions log only.
func (v *Validator) Validate(name string, value float64, rule Rule) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return v.correct(name, value, rule.Default, "non-finite"), true
	}
	if rule.RequirePositive && value <= 0 {
		return v.correct(name, value, rule.Default, "non-positive"), true
	}
	if rule.SoftMin != 0 || rule.SoftMax != 0 {
		if value < rule.SoftMin || value > rule.SoftMax {
			v.log.Warn("parameter outside reasonable range",
				"param", name, "value", value,
				"min", rule.SoftMin, "max", rule.SoftMax)
		}
	}
	return value, false
}

func (v *Validator) correct(name string, got, def float64, reason string) float64 {
	v.corrections[name]++
	if v.onCorrected != nil {
		v.onCorrected(name)
	}
	v.log.Warn("parameter corrected",
		"param", name, "got", got, "default", def, "reason", reason)
	return def
}

// Corrections reports how many substitutions were applied for name.
func (v *Validator) Corrections(name string) int {
	return v.corrections[name]
}

// TotalCorrections reports substitutions across all parameter kinds.
func (v *Validator) TotalCorrections() int {
	total := 0
	for _, n := range v.corrections {
		total += n
	}
	return total
}
