package finance

// Policy carries the defaults used when PITI is seeded for a lead.
type Policy struct {
	DefaultInterestRate float64
	DefaultTermMonths   int
}

// DefaultPolicy seeds 7% over 30 years.
func DefaultPolicy() Policy {
	return Policy{DefaultInterestRate: 7.0, DefaultTermMonths: 360}
}

// Snapshot is the financial view of a lead. Nil loan inputs are unset.
type Snapshot struct {
	LoanAmount   *float64
	SalesPrice   *float64
	InterestRate *float64
	TermMonths   *int
	PropertyType string

	// Stored components, reused by the partial recompute.
	PropertyTaxes       float64
	HomeownersInsurance float64
	HOADues             float64
	MortgageInsurance   float64

	MonthlyLiabilities float64
	TotalMonthlyIncome float64

	PITIComputed bool
}

// ResultKind tells a full seed apart from a partial refresh.
type ResultKind string

const (
	ResultSeed    ResultKind = "seed"
	ResultPartial ResultKind = "partial"
)

// Result is the set of figures to persist. Seeded inputs are non-nil only
// when the seed filled a missing rate or term.
type Result struct {
	Kind               ResultKind
	SeededInterestRate *float64
	SeededTermMonths   *int
	Breakdown          Breakdown
	DTI                *DTI
}

// NeedsSeed reports whether the lead has a positive loan amount and has
// never had PITI computed.
func (p Policy) NeedsSeed(s Snapshot) bool {
	return !s.PITIComputed && floatValue(s.LoanAmount) > 0
}

// Seed computes full PITI once. It returns false when the lead does not need
// seeding, which makes repeated calls no-ops.
func (p Policy) Seed(s Snapshot) (Result, bool) {
	if !p.NeedsSeed(s) {
		return Result{}, false
	}

	result := Result{Kind: ResultSeed}

	rate := floatValue(s.InterestRate)
	if rate <= 0 {
		rate = p.DefaultInterestRate
		result.SeededInterestRate = &rate
	}

	term := intValue(s.TermMonths)
	if term <= 0 {
		term = p.DefaultTermMonths
		result.SeededTermMonths = &term
	}

	result.Breakdown = ComputePITI(Inputs{
		LoanAmount:   floatValue(s.LoanAmount),
		SalesPrice:   floatValue(s.SalesPrice),
		InterestRate: rate,
		TermMonths:   term,
		PropertyType: s.PropertyType,
	})
	result.DTI = ComputeDTI(result.Breakdown.PITI, s.MonthlyLiabilities, s.TotalMonthlyIncome)
	return result, true
}

// Recalculate refreshes principal and interest, the PITI total and DTI.
// Taxes, insurance, HOA and mortgage insurance keep their stored values.
func Recalculate(s Snapshot) Result {
	principalInterest := PrincipalAndInterest(floatValue(s.LoanAmount), floatValue(s.InterestRate), intValue(s.TermMonths))
	breakdown := Combine(
		principalInterest,
		s.PropertyTaxes,
		s.HomeownersInsurance,
		s.HOADues,
		s.MortgageInsurance,
	)

	return Result{
		Kind:      ResultPartial,
		Breakdown: breakdown,
		DTI:       ComputeDTI(breakdown.PITI, s.MonthlyLiabilities, s.TotalMonthlyIncome),
	}
}

func floatValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
