// Package finance computes the monthly payment figures of a mortgage lead.
// Every function is pure; callers persist the results.
package finance

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	annualTaxRate         = 0.015
	insuranceFloor        = 75.0
	insurancePer100k      = 75.0
	condoHOAPer100k       = 150.0
	mortgageInsuranceRate = 0.005
	mortgageInsuranceLTV  = 80.0
)

// Inputs are the loan figures PITI is derived from.
type Inputs struct {
	LoanAmount   float64
	SalesPrice   float64
	InterestRate float64 // annual, percent
	TermMonths   int
	PropertyType string
}

// Breakdown holds the monthly PITI components, each rounded to cents.
type Breakdown struct {
	PrincipalInterest   float64
	PropertyTaxes       float64
	HomeownersInsurance float64
	HOADues             float64
	MortgageInsurance   float64
	PITI                float64
}

// DTI holds front-end (housing only) and back-end (housing plus debts) ratios
// in percent.
type DTI struct {
	Front float64
	Back  float64
}

// PrincipalAndInterest returns the monthly payment of a fully amortizing loan.
// A non-positive amount or term is a valid "not yet quotable" state and
// yields 0.
func PrincipalAndInterest(loanAmount, annualRatePercent float64, termMonths int) float64 {
	if loanAmount <= 0 || termMonths <= 0 {
		return 0
	}

	n := float64(termMonths)
	r := annualRatePercent / 100 / 12
	if r <= 0 {
		return loanAmount / n
	}

	growth := math.Pow(1+r, n)
	return loanAmount * r * growth / (growth - 1)
}

// LTV returns the loan-to-value ratio in percent, or 0 without a sales price.
func LTV(loanAmount, salesPrice float64) float64 {
	if salesPrice <= 0 {
		return 0
	}
	return loanAmount / salesPrice * 100
}

// IsCondo reports whether the property type describes a condominium.
func IsCondo(propertyType string) bool {
	return strings.Contains(strings.ToLower(propertyType), "condo")
}

// ComputePITI derives every monthly housing cost component from the loan
// inputs. Components are rounded to cents before they are summed.
func ComputePITI(in Inputs) Breakdown {
	principalInterest := PrincipalAndInterest(in.LoanAmount, in.InterestRate, in.TermMonths)

	var taxes float64
	if in.SalesPrice > 0 {
		taxes = in.SalesPrice * annualTaxRate / 12
	}

	priceIn100k := in.SalesPrice / 100000
	condo := IsCondo(in.PropertyType)

	insurance := insuranceFloor
	var hoa float64
	if condo {
		hoa = priceIn100k * condoHOAPer100k
	} else {
		insurance = math.Max(insuranceFloor, priceIn100k*insurancePer100k)
	}

	var mortgageInsurance float64
	if LTV(in.LoanAmount, in.SalesPrice) > mortgageInsuranceLTV {
		mortgageInsurance = in.LoanAmount * mortgageInsuranceRate / 12
	}

	return Combine(
		principalInterest,
		taxes,
		insurance,
		hoa,
		mortgageInsurance,
	)
}

// Combine rounds each component to cents and totals them into a Breakdown.
// It is also used by the partial recompute, which reuses stored components.
func Combine(principalInterest, taxes, insurance, hoa, mortgageInsurance float64) Breakdown {
	pi := cents(principalInterest)
	tx := cents(taxes)
	hi := cents(insurance)
	hd := cents(hoa)
	mi := cents(mortgageInsurance)

	return Breakdown{
		PrincipalInterest:   pi.InexactFloat64(),
		PropertyTaxes:       tx.InexactFloat64(),
		HomeownersInsurance: hi.InexactFloat64(),
		HOADues:             hd.InexactFloat64(),
		MortgageInsurance:   mi.InexactFloat64(),
		PITI:                pi.Add(tx).Add(hi).Add(hd).Add(mi).InexactFloat64(),
	}
}

// ComputeDTI returns nil when income is not positive: the ratio is undefined,
// not zero.
func ComputeDTI(piti, monthlyLiabilities, totalMonthlyIncome float64) *DTI {
	if totalMonthlyIncome <= 0 {
		return nil
	}

	income := decimal.NewFromFloat(totalMonthlyIncome)
	housing := decimal.NewFromFloat(piti)
	hundred := decimal.NewFromInt(100)

	front := housing.Div(income).Mul(hundred).Round(2)
	back := housing.Add(decimal.NewFromFloat(monthlyLiabilities)).Div(income).Mul(hundred).Round(2)

	return &DTI{Front: front.InexactFloat64(), Back: back.InexactFloat64()}
}

// Round2 rounds a monetary value to cents.
func Round2(v float64) float64 {
	return cents(v).InexactFloat64()
}

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
