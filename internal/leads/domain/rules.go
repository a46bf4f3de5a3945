package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stage_rules.yaml
var defaultRulesYAML []byte

// checkableFields are the lead fields a stage rule may require.
var checkableFields = map[Field]struct{}{
	FieldLoanAmount:         {},
	FieldSalesPrice:         {},
	FieldInterestRate:       {},
	FieldTermMonths:         {},
	FieldPropertyType:       {},
	FieldOccupancy:          {},
	FieldLoanType:           {},
	FieldLeadStrength:       {},
	FieldLikelyToApply:      {},
	FieldContractFile:       {},
	FieldMonthlyLiabilities: {},
	FieldTotalMonthlyIncome: {},
}

// predicateFields are the text fields a bypass predicate may test.
var predicateFields = map[Field]struct{}{
	FieldPropertyType:  {},
	FieldOccupancy:     {},
	FieldLoanType:      {},
	FieldLeadStrength:  {},
	FieldLikelyToApply: {},
}

// StageRule lists the fields a lead must carry before entering Target.
type StageRule struct {
	Target   StageKey    `yaml:"target"`
	Message  string      `yaml:"message"`
	Required []Field     `yaml:"required"`
	Bypass   *BypassRule `yaml:"bypass,omitempty"`
}

// BypassRule waives required fields when the lead's own data makes them
// inapplicable, e.g. a refinance has no purchase contract.
type BypassRule struct {
	Field  Field    `yaml:"field"`
	In     []string `yaml:"in"`
	Waives []Field  `yaml:"waives"`
}

// Applies evaluates the predicate against the lead. Values compare
// case-insensitively.
func (b BypassRule) Applies(lead Lead) bool {
	value := strings.TrimSpace(lead.TextValue(b.Field))
	if value == "" {
		return false
	}
	for _, candidate := range b.In {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

func (b BypassRule) waives(field Field) bool {
	for _, waived := range b.Waives {
		if waived == field {
			return true
		}
	}
	return false
}

// RuleSet holds at most one rule per target stage.
type RuleSet struct {
	rules map[StageKey]StageRule
}

type ruleFile struct {
	Rules []StageRule `yaml:"rules"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *RuleSet {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("stage rules: built-in rules are invalid: %v", err))
	}
	return rules
}

// LoadRules reads a rule file from path, or returns the built-in rules when
// path is empty.
func LoadRules(path string) (*RuleSet, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stage rules: read %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("stage rules: %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes and validates a YAML rule set.
func ParseRules(data []byte) (*RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("stage rules: payload is empty")
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("stage rules: decode: %w", err)
	}

	set := &RuleSet{rules: make(map[StageKey]StageRule, len(file.Rules))}
	for _, rule := range file.Rules {
		if err := rule.validate(); err != nil {
			return nil, err
		}
		if _, dup := set.rules[rule.Target]; dup {
			return nil, fmt.Errorf("stage rules: duplicate rule for %q", rule.Target)
		}
		set.rules[rule.Target] = rule
	}
	return set, nil
}

func (r StageRule) validate() error {
	if !IsKnownStage(string(r.Target)) {
		return fmt.Errorf("stage rules: unknown target stage %q", r.Target)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("stage rules: %s: message is required", r.Target)
	}
	for _, field := range r.Required {
		if _, ok := checkableFields[field]; !ok {
			return fmt.Errorf("stage rules: %s: unsupported field %q", r.Target, field)
		}
	}
	if r.Bypass == nil {
		return nil
	}
	if _, ok := predicateFields[r.Bypass.Field]; !ok {
		return fmt.Errorf("stage rules: %s: unsupported bypass field %q", r.Target, r.Bypass.Field)
	}
	if len(r.Bypass.In) == 0 || len(r.Bypass.Waives) == 0 {
		return fmt.Errorf("stage rules: %s: bypass needs values and waived fields", r.Target)
	}
	for _, waived := range r.Bypass.Waives {
		if !r.requires(waived) {
			return fmt.Errorf("stage rules: %s: bypass waives %q which is not required", r.Target, waived)
		}
	}
	return nil
}

func (r StageRule) requires(field Field) bool {
	for _, required := range r.Required {
		if required == field {
			return true
		}
	}
	return false
}

// For returns the rule guarding entry into target.
func (s *RuleSet) For(target StageKey) (StageRule, bool) {
	if s == nil {
		return StageRule{}, false
	}
	rule, ok := s.rules[target]
	return rule, ok
}
