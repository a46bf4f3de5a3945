package domain

import "loan_pipeline_backend/internal/leads/finance"

// RecalculateFinancials returns the derived-figure writes implied by pending.
// A lead with a positive loan amount and no PITI yet is seeded once with the
// full breakdown; components already on the lead are kept. Otherwise a change to amount, rate or term refreshes only
// principal and interest, the PITI total and DTI, and an income or
// liabilities change refreshes DTI alone.
func RecalculateFinancials(lead Lead, pending Mutation, policy finance.Policy) Mutation {
	projected := lead.Apply(pending)
	snapshot := projected.FinanceSnapshot()

	if result, ok := policy.Seed(snapshot); ok {
		return seedMutation(projected, result)
	}

	var m Mutation
	if !projected.PITIComputed {
		return m
	}

	switch {
	case pending.Touches(LoanTriggerFields...):
		result := finance.Recalculate(snapshot)
		m.Set(FieldPrincipalInterest, result.Breakdown.PrincipalInterest)
		m.Set(FieldPITI, result.Breakdown.PITI)
		setDTI(&m, result.DTI)
	case pending.Touches(FieldMonthlyLiabilities, FieldTotalMonthlyIncome):
		setDTI(&m, finance.ComputeDTI(floatOrZero(projected.PITI), projected.MonthlyLiabilities, projected.TotalMonthlyIncome))
	}
	return m
}

// SeedFinancials returns the one-time PITI seed for lead, or an empty
// mutation when the lead was already seeded or has no loan amount. Taxes,
// insurance, HOA and mortgage insurance entered by hand are kept and only
// the missing components are filled.
func SeedFinancials(lead Lead, policy finance.Policy) Mutation {
	result, ok := policy.Seed(lead.FinanceSnapshot())
	if !ok {
		return Mutation{}
	}
	return seedMutation(lead, result)
}

func seedMutation(lead Lead, result finance.Result) Mutation {
	var m Mutation
	if result.SeededInterestRate != nil {
		m.Set(FieldInterestRate, *result.SeededInterestRate)
	}
	if result.SeededTermMonths != nil {
		m.Set(FieldTermMonths, *result.SeededTermMonths)
	}

	seeded := result.Breakdown
	b := finance.Combine(
		seeded.PrincipalInterest,
		enteredOr(lead.PropertyTaxes, seeded.PropertyTaxes),
		enteredOr(lead.HomeownersInsurance, seeded.HomeownersInsurance),
		enteredOr(lead.HOADues, seeded.HOADues),
		enteredOr(lead.MortgageInsurance, seeded.MortgageInsurance),
	)
	m.Set(FieldPrincipalInterest, b.PrincipalInterest)
	m.Set(FieldPropertyTaxes, b.PropertyTaxes)
	m.Set(FieldHomeownersInsurance, b.HomeownersInsurance)
	m.Set(FieldHOADues, b.HOADues)
	m.Set(FieldMortgageInsurance, b.MortgageInsurance)
	m.Set(FieldPITI, b.PITI)
	setDTI(&m, finance.ComputeDTI(b.PITI, lead.MonthlyLiabilities, lead.TotalMonthlyIncome))
	m.Set(FieldPITIComputed, true)
	return m
}

func enteredOr(entered *float64, seeded float64) float64 {
	if entered != nil {
		return *entered
	}
	return seeded
}

func setDTI(m *Mutation, dti *finance.DTI) {
	if dti == nil {
		m.Clear(FieldDTIFront)
		m.Clear(FieldDTIBack)
		return
	}
	m.Set(FieldDTIFront, dti.Front)
	m.Set(FieldDTIBack, dti.Back)
}
