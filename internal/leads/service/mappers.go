package service

import (
	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/pipeline"
	"loan_pipeline_backend/internal/leads/transport"
)

func toLeadResponse(l domain.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                  l.ID,
		Version:             l.Version,
		FirstName:           l.FirstName,
		LastName:            l.LastName,
		Email:               l.Email,
		Phone:               l.Phone,
		ReferralSource:      l.ReferralSource,
		Stage:               l.Stage,
		ActiveSubStatus:     l.ActiveSubStatus,
		Section:             l.Section,
		PastClientStatus:    l.PastClientStatus,
		StatusLabel:         l.StatusLabel,
		TaskDueAt:           l.TaskDueAt,
		QualificationStatus: l.QualificationStatus,
		PendingAppAt:        l.PendingAppAt,
		AppCompleteAt:       l.AppCompleteAt,
		PreQualifiedAt:      l.PreQualifiedAt,
		PreApprovedAt:       l.PreApprovedAt,
		ActiveAt:            l.ActiveAt,
		LoanAmount:          l.LoanAmount,
		SalesPrice:          l.SalesPrice,
		InterestRate:        l.InterestRate,
		TermMonths:          l.TermMonths,
		PropertyType:        l.PropertyType,
		Occupancy:           l.Occupancy,
		LoanType:            l.LoanType,
		LeadStrength:        l.LeadStrength,
		LikelyToApply:       l.LikelyToApply,
		ContractFile:        l.ContractFileKey,
		MonthlyLiabilities:  l.MonthlyLiabilities,
		TotalMonthlyIncome:  l.TotalMonthlyIncome,
		Financials: transport.FinancialsResponse{
			PrincipalInterest:   l.PrincipalInterest,
			PropertyTaxes:       l.PropertyTaxes,
			HomeownersInsurance: l.HomeownersInsurance,
			HOADues:             l.HOADues,
			MortgageInsurance:   l.MortgageInsurance,
			PITI:                l.PITI,
			DTIFront:            l.DTIFront,
			DTIBack:             l.DTIBack,
			Computed:            l.PITIComputed,
		},
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func toValidationResponse(v domain.Verdict) transport.StageValidationResponse {
	return transport.StageValidationResponse{
		Target:         string(v.Target),
		Approved:       v.Approved,
		Message:        v.Message(),
		MissingFields:  fieldNames(v.Missing),
		WaivedFields:   fieldNames(v.Waived),
		BypassEligible: v.BypassEligible,
	}
}

func toTransitionResponse(o pipeline.StageOutcome) transport.StageTransitionResponse {
	resp := transport.StageTransitionResponse{
		Lead:     toLeadResponse(o.Lead),
		Changed:  o.Changed,
		Bypassed: o.Transition.Bypassed,
	}
	if len(o.Transition.Backfilled) > 0 {
		resp.Backfilled = fieldNames(o.Transition.Backfilled)
	}
	for _, w := range o.Transition.Warnings {
		resp.Warnings = append(resp.Warnings, transport.WarningResponse{Code: w.Code, Message: w.Message})
	}
	return resp
}

func fieldNames(fields []domain.Field) []string {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		out = append(out, string(field))
	}
	return out
}
