package finance

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrincipalAndInterestMonotonicInTermAndRate(t *testing.T) {
	amounts := []float64{50000, 380000, 1250000}
	rates := []float64{0, 2.5, 6.25, 11}
	terms := []int{60, 180, 240, 360}

	for _, amount := range amounts {
		for _, rate := range rates {
			for i := 1; i < len(terms); i++ {
				shorter := PrincipalAndInterest(amount, rate, terms[i-1])
				longer := PrincipalAndInterest(amount, rate, terms[i])
				if longer >= shorter {
					t.Fatalf("expected payment to fall with term (amount %.0f, rate %.2f): %d=%.4f, %d=%.4f", amount, rate, terms[i-1], shorter, terms[i], longer)
				}
			}
		}
		for _, term := range terms {
			for i := 1; i < len(rates); i++ {
				lower := PrincipalAndInterest(amount, rates[i-1], term)
				higher := PrincipalAndInterest(amount, rates[i], term)
				if higher <= lower {
					t.Fatalf("expected payment to rise with rate (amount %.0f, term %d): %.2f=%.4f, %.2f=%.4f", amount, term, rates[i-1], lower, rates[i], higher)
				}
			}
		}
	}
}

func TestPrincipalAndInterestZeroRate(t *testing.T) {
	cases := []struct {
		amount float64
		term   int
	}{
		{120000, 360},
		{99999, 7},
		{1, 1},
	}
	for _, tc := range cases {
		got := PrincipalAndInterest(tc.amount, 0, tc.term)
		want := tc.amount / float64(tc.term)
		if !almostEqual(got, want) {
			t.Fatalf("expected %.6f, got %.6f", want, got)
		}
	}
}

func TestPrincipalAndInterestNotQuotable(t *testing.T) {
	if got := PrincipalAndInterest(0, 6, 360); got != 0 {
		t.Fatalf("expected 0 for zero amount, got %f", got)
	}
	if got := PrincipalAndInterest(-5, 6, 360); got != 0 {
		t.Fatalf("expected 0 for negative amount, got %f", got)
	}
	if got := PrincipalAndInterest(100000, 6, 0); got != 0 {
		t.Fatalf("expected 0 for zero term, got %f", got)
	}
}

func TestComputePITICondoScenario(t *testing.T) {
	got := ComputePITI(Inputs{
		LoanAmount:   380000,
		SalesPrice:   400000,
		InterestRate: 6.25,
		TermMonths:   360,
		PropertyType: "Condo",
	})

	if got.PrincipalInterest != 2339.73 {
		t.Fatalf("expected principal and interest 2339.73, got %.2f", got.PrincipalInterest)
	}
	if got.PropertyTaxes != 500 {
		t.Fatalf("expected property taxes 500, got %.2f", got.PropertyTaxes)
	}
	if got.HomeownersInsurance != 75 {
		t.Fatalf("expected insurance 75, got %.2f", got.HomeownersInsurance)
	}
	if got.HOADues != 600 {
		t.Fatalf("expected HOA 600, got %.2f", got.HOADues)
	}
	if got.MortgageInsurance != 158.33 {
		t.Fatalf("expected mortgage insurance 158.33, got %.2f", got.MortgageInsurance)
	}
	if got.PITI != 3673.06 {
		t.Fatalf("expected PITI 3673.06, got %.2f", got.PITI)
	}
	if ltv := LTV(380000, 400000); ltv != 95 {
		t.Fatalf("expected LTV 95, got %.2f", ltv)
	}
}

func TestComputePITISingleFamilyScenario(t *testing.T) {
	got := ComputePITI(Inputs{
		LoanAmount:   320000,
		SalesPrice:   400000,
		InterestRate: 6.25,
		TermMonths:   360,
		PropertyType: "Single Family",
	})

	if got.HomeownersInsurance != 300 {
		t.Fatalf("expected insurance 300, got %.2f", got.HomeownersInsurance)
	}
	if got.HOADues != 0 {
		t.Fatalf("expected no HOA, got %.2f", got.HOADues)
	}
	if got.MortgageInsurance != 0 {
		t.Fatalf("expected no mortgage insurance at 80%% LTV, got %.2f", got.MortgageInsurance)
	}
}

func TestComputePITIWithoutSalesPrice(t *testing.T) {
	got := ComputePITI(Inputs{LoanAmount: 200000, InterestRate: 5, TermMonths: 360})

	if got.PropertyTaxes != 0 {
		t.Fatalf("expected no taxes, got %.2f", got.PropertyTaxes)
	}
	if got.HomeownersInsurance != 75 {
		t.Fatalf("expected insurance floor 75, got %.2f", got.HomeownersInsurance)
	}
	if got.MortgageInsurance != 0 {
		t.Fatalf("expected no mortgage insurance without LTV, got %.2f", got.MortgageInsurance)
	}
}

func TestComputeDTI(t *testing.T) {
	if got := ComputeDTI(3000, 500, 0); got != nil {
		t.Fatalf("expected nil DTI for zero income, got %+v", got)
	}
	if got := ComputeDTI(3000, 500, -1); got != nil {
		t.Fatalf("expected nil DTI for negative income, got %+v", got)
	}

	got := ComputeDTI(3000, 500, 9000)
	if got == nil {
		t.Fatalf("expected DTI, got nil")
	}
	if got.Front != 33.33 {
		t.Fatalf("expected front 33.33, got %.2f", got.Front)
	}
	if got.Back != 38.89 {
		t.Fatalf("expected back 38.89, got %.2f", got.Back)
	}
}
