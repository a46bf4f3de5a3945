package domain

import (
	"fmt"
	"strings"
)

// Allowed values of the inline-correctable qualification fields.
var (
	LeadStrengthValues  = []string{"Hot", "Warm", "Cold"}
	LikelyToApplyValues = []string{"High", "Medium", "Low"}
)

// Verdict is the outcome of validating a stage transition. A verdict that is
// not approved is a deficiency: the rule's message plus the concrete missing
// fields.
type Verdict struct {
	Target   StageKey
	Approved bool
	Rule     *StageRule
	Missing  []Field
	// Waived lists required fields removed by the rule's bypass predicate.
	Waived []Field
	// BypassEligible is true when the lead's own data satisfies the rule's
	// bypass predicate.
	BypassEligible bool
}

// Message returns the rule's human message, or "" for an approval.
func (v Verdict) Message() string {
	if v.Approved || v.Rule == nil {
		return ""
	}
	return v.Rule.Message
}

// Bypassed reports whether approval depended on waived fields.
func (v Verdict) Bypassed() bool {
	return v.Approved && len(v.Waived) > 0
}

// Validate checks the lead against the rule guarding target. Targets without
// a rule are always approved.
func Validate(lead Lead, target StageKey, rules *RuleSet) Verdict {
	verdict := Verdict{Target: target}

	rule, ok := rules.For(target)
	if !ok {
		verdict.Approved = true
		return verdict
	}
	verdict.Rule = &rule

	bypass := rule.Bypass != nil && rule.Bypass.Applies(lead)
	verdict.BypassEligible = bypass

	for _, field := range rule.Required {
		if lead.HasValue(field) {
			continue
		}
		if bypass && rule.Bypass.waives(field) {
			verdict.Waived = append(verdict.Waived, field)
			continue
		}
		verdict.Missing = append(verdict.Missing, field)
	}

	verdict.Approved = len(verdict.Missing) == 0
	return verdict
}

// Corrections are qualification values supplied while resolving a
// deficiency. Only leadStrength and likelyToApply are accepted.
type Corrections map[Field]string

// Mutation validates the corrections and converts them to writes. Unknown
// fields or values outside the allowed enumerations are rejected.
func (c Corrections) Mutation() (Mutation, error) {
	var m Mutation
	for _, field := range []Field{FieldLeadStrength, FieldLikelyToApply} {
		raw, ok := c[field]
		if !ok {
			continue
		}
		value, err := normalizeCorrection(field, raw)
		if err != nil {
			return Mutation{}, err
		}
		m.Set(field, value)
	}
	for field := range c {
		if field != FieldLeadStrength && field != FieldLikelyToApply {
			return Mutation{}, fmt.Errorf("field %q cannot be corrected inline", field)
		}
	}
	return m, nil
}

func normalizeCorrection(field Field, raw string) (string, error) {
	allowed := LeadStrengthValues
	if field == FieldLikelyToApply {
		allowed = LikelyToApplyValues
	}
	value := strings.TrimSpace(raw)
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s", field, strings.Join(allowed, ", "))
}
