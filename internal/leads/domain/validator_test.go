package domain

import (
	"reflect"
	"testing"
)

func loanReadyLead() Lead {
	amount, rate, price := 380000.0, 6.25, 400000.0
	term := 360
	return Lead{
		Stage:         string(StagePreApproved),
		LoanAmount:    &amount,
		SalesPrice:    &price,
		InterestRate:  &rate,
		TermMonths:    &term,
		PropertyType:  "Condo",
		Occupancy:     "Primary",
		LoanType:      "Purchase",
		LeadStrength:  strPtr("Hot"),
		LikelyToApply: strPtr("High"),
	}
}

func TestValidateReportsMissingFields(t *testing.T) {
	verdict := Validate(Lead{Stage: string(StageLeads), LeadStrength: strPtr("  ")}, StagePendingApp, DefaultRules())

	if verdict.Approved {
		t.Fatalf("expected deficiency")
	}
	want := []Field{FieldLeadStrength, FieldLikelyToApply}
	if !reflect.DeepEqual(verdict.Missing, want) {
		t.Fatalf("expected missing %v, got %v", want, verdict.Missing)
	}
	if verdict.Message() == "" {
		t.Fatalf("expected the rule message on a deficiency")
	}
	if verdict.BypassEligible {
		t.Fatalf("expected no bypass for pending-app")
	}
}

func TestValidateApprovesStagesWithoutRules(t *testing.T) {
	for _, target := range []StageKey{StageLeads, StagePastClients} {
		verdict := Validate(Lead{}, target, DefaultRules())
		if !verdict.Approved {
			t.Fatalf("expected %s to be approved without a rule", target)
		}
	}
}

func TestValidateActiveRequiresContractForPurchase(t *testing.T) {
	lead := loanReadyLead()

	verdict := Validate(lead, StageActive, DefaultRules())
	if verdict.Approved {
		t.Fatalf("expected purchase without contract to be deficient")
	}
	if !reflect.DeepEqual(verdict.Missing, []Field{FieldContractFile}) {
		t.Fatalf("expected contractFile missing, got %v", verdict.Missing)
	}
	if verdict.BypassEligible {
		t.Fatalf("expected purchase not to be bypass eligible")
	}

	lead.ContractFileKey = strPtr("leads/1/contract.pdf")
	if verdict := Validate(lead, StageActive, DefaultRules()); !verdict.Approved || verdict.Bypassed() {
		t.Fatalf("expected approval without bypass once the contract is attached, got %+v", verdict)
	}
}

func TestValidateRefinanceBypassesContract(t *testing.T) {
	for _, loanType := range []string{"Refinance", "heloc", " REFINANCE "} {
		lead := loanReadyLead()
		lead.LoanType = loanType

		verdict := Validate(lead, StageActive, DefaultRules())
		if !verdict.Approved {
			t.Fatalf("expected %q to bypass the contract, got missing %v", loanType, verdict.Missing)
		}
		if !verdict.BypassEligible || !verdict.Bypassed() {
			t.Fatalf("expected %q to be recorded as a bypass", loanType)
		}
		if !reflect.DeepEqual(verdict.Waived, []Field{FieldContractFile}) {
			t.Fatalf("expected contractFile waived, got %v", verdict.Waived)
		}
	}
}

func TestValidateTreatsZeroNumbersAsMissing(t *testing.T) {
	lead := loanReadyLead()
	zero := 0.0
	lead.InterestRate = &zero
	lead.TermMonths = nil

	verdict := Validate(lead, StagePreQualified, DefaultRules())
	want := []Field{FieldInterestRate, FieldTermMonths}
	if !reflect.DeepEqual(verdict.Missing, want) {
		t.Fatalf("expected missing %v, got %v", want, verdict.Missing)
	}
}

func TestCorrectionsResolveDeficiency(t *testing.T) {
	lead := Lead{Stage: string(StageLeads)}
	corrections := Corrections{FieldLeadStrength: "warm", FieldLikelyToApply: "HIGH"}

	m, err := corrections.Mutation()
	if err != nil {
		t.Fatalf("expected corrections to be accepted, got %v", err)
	}
	corrected := lead.Apply(m)
	if *corrected.LeadStrength != "Warm" || *corrected.LikelyToApply != "High" {
		t.Fatalf("expected canonical values, got %s/%s", *corrected.LeadStrength, *corrected.LikelyToApply)
	}
	if verdict := Validate(corrected, StagePendingApp, DefaultRules()); !verdict.Approved {
		t.Fatalf("expected corrected lead to be approved, got missing %v", verdict.Missing)
	}
}

func TestCorrectionsRejectOtherFieldsAndValues(t *testing.T) {
	if _, err := (Corrections{FieldLoanAmount: "100000"}).Mutation(); err == nil {
		t.Fatalf("expected loanAmount correction to be rejected")
	}
	if _, err := (Corrections{FieldLeadStrength: "Lukewarm"}).Mutation(); err == nil {
		t.Fatalf("expected unknown lead strength to be rejected")
	}
}

func TestParseRulesRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"unknown stage":  "rules:\n  - target: closing\n    message: x\n    required: [loanAmount]\n",
		"unknown field":  "rules:\n  - target: active\n    message: x\n    required: [creditScore]\n",
		"missing msg":    "rules:\n  - target: active\n    required: [contractFile]\n",
		"duplicate":      "rules:\n  - target: active\n    message: x\n    required: [contractFile]\n  - target: active\n    message: y\n    required: [loanType]\n",
		"waives unknown": "rules:\n  - target: active\n    message: x\n    required: [contractFile]\n    bypass:\n      field: loanType\n      in: [Refinance]\n      waives: [salesPrice]\n",
	}
	for name, payload := range cases {
		if _, err := ParseRules([]byte(payload)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestLoadRulesDefaultsToBuiltIn(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("expected built-in rules, got %v", err)
	}
	rule, ok := rules.For(StageActive)
	if !ok || rule.Bypass == nil {
		t.Fatalf("expected active rule with a bypass, got %+v", rule)
	}
}
