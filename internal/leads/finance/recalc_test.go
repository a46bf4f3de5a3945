package finance

import "testing"

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestSeedFillsDefaultsOnce(t *testing.T) {
	policy := DefaultPolicy()
	snapshot := Snapshot{
		LoanAmount:   floatPtr(300000),
		SalesPrice:   floatPtr(375000),
		PropertyType: "Single Family",
	}

	first, ok := policy.Seed(snapshot)
	if !ok {
		t.Fatalf("expected first seed to apply")
	}
	if first.SeededInterestRate == nil || *first.SeededInterestRate != 7.0 {
		t.Fatalf("expected seeded rate 7.0, got %v", first.SeededInterestRate)
	}
	if first.SeededTermMonths == nil || *first.SeededTermMonths != 360 {
		t.Fatalf("expected seeded term 360, got %v", first.SeededTermMonths)
	}
	if first.Breakdown.PrincipalInterest != 1995.91 {
		t.Fatalf("expected principal and interest 1995.91, got %.2f", first.Breakdown.PrincipalInterest)
	}

	snapshot.InterestRate = first.SeededInterestRate
	snapshot.TermMonths = first.SeededTermMonths
	snapshot.PITIComputed = true

	if _, ok := policy.Seed(snapshot); ok {
		t.Fatalf("expected second seed to be a no-op")
	}
}

func TestSeedKeepsEnteredRateAndTerm(t *testing.T) {
	result, ok := DefaultPolicy().Seed(Snapshot{
		LoanAmount:   floatPtr(380000),
		SalesPrice:   floatPtr(400000),
		InterestRate: floatPtr(6.25),
		TermMonths:   intPtr(360),
		PropertyType: "condo",
	})
	if !ok {
		t.Fatalf("expected seed to apply")
	}
	if result.SeededInterestRate != nil || result.SeededTermMonths != nil {
		t.Fatalf("expected entered rate and term to be kept")
	}
	if result.Breakdown.PITI != 3673.06 {
		t.Fatalf("expected PITI 3673.06, got %.2f", result.Breakdown.PITI)
	}
}

func TestSeedSkipsWithoutLoanAmount(t *testing.T) {
	if _, ok := DefaultPolicy().Seed(Snapshot{}); ok {
		t.Fatalf("expected no seed without a loan amount")
	}
	if _, ok := DefaultPolicy().Seed(Snapshot{LoanAmount: floatPtr(0)}); ok {
		t.Fatalf("expected no seed for a zero loan amount")
	}
}

func TestSeedIsIdempotentAcrossCalls(t *testing.T) {
	snapshot := Snapshot{
		LoanAmount:   floatPtr(250000),
		SalesPrice:   floatPtr(300000),
		InterestRate: floatPtr(6.5),
		TermMonths:   intPtr(360),
	}
	first, _ := DefaultPolicy().Seed(snapshot)
	second, _ := DefaultPolicy().Seed(snapshot)
	if first.Breakdown != second.Breakdown {
		t.Fatalf("expected identical breakdowns, got %+v and %+v", first.Breakdown, second.Breakdown)
	}
}

func TestRecalculateKeepsStoredComponents(t *testing.T) {
	result := Recalculate(Snapshot{
		LoanAmount:          floatPtr(380000),
		SalesPrice:          floatPtr(400000),
		InterestRate:        floatPtr(6.25),
		TermMonths:          intPtr(360),
		PropertyType:        "Condo",
		PropertyTaxes:       410,
		HomeownersInsurance: 90,
		HOADues:             250,
		MortgageInsurance:   0,
		TotalMonthlyIncome:  12000,
		MonthlyLiabilities:  800,
		PITIComputed:        true,
	})

	if result.Kind != ResultPartial {
		t.Fatalf("expected partial result, got %s", result.Kind)
	}
	if result.Breakdown.PropertyTaxes != 410 || result.Breakdown.HOADues != 250 || result.Breakdown.MortgageInsurance != 0 {
		t.Fatalf("expected stored components to be reused, got %+v", result.Breakdown)
	}
	if result.Breakdown.PITI != 3089.73 {
		t.Fatalf("expected PITI 3089.73, got %.2f", result.Breakdown.PITI)
	}
	if result.DTI == nil || result.DTI.Front != 25.75 {
		t.Fatalf("expected front DTI 25.75, got %+v", result.DTI)
	}
}
