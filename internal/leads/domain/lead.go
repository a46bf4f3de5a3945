package domain

import (
	"strings"
	"time"

	"loan_pipeline_backend/internal/leads/finance"

	"github.com/google/uuid"
)

// Lead is a loan application tracked through the pipeline.
type Lead struct {
	ID      uuid.UUID
	Version int

	FirstName      string
	LastName       string
	Email          *string
	Phone          string
	ReferralSource *string

	Stage               string
	ActiveSubStatus     *string
	Section             *string
	PastClientStatus    *string
	StatusLabel         *string
	TaskDueAt           *time.Time
	QualificationStatus *string

	PendingAppAt   *time.Time
	AppCompleteAt  *time.Time
	PreQualifiedAt *time.Time
	PreApprovedAt  *time.Time
	ActiveAt       *time.Time

	LoanAmount   *float64
	SalesPrice   *float64
	InterestRate *float64
	TermMonths   *int
	PropertyType string
	Occupancy    string
	LoanType     string

	LeadStrength    *string
	LikelyToApply   *string
	ContractFileKey *string

	MonthlyLiabilities float64
	TotalMonthlyIncome float64

	PrincipalInterest   *float64
	PropertyTaxes       *float64
	HomeownersInsurance *float64
	HOADues             *float64
	MortgageInsurance   *float64
	PITI                *float64
	DTIFront            *float64
	DTIBack             *float64
	PITIComputed        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StageTimestamp returns the entry timestamp stored for field.
func (l Lead) StageTimestamp(field Field) *time.Time {
	switch field {
	case FieldPendingAppAt:
		return l.PendingAppAt
	case FieldAppCompleteAt:
		return l.AppCompleteAt
	case FieldPreQualifiedAt:
		return l.PreQualifiedAt
	case FieldPreApprovedAt:
		return l.PreApprovedAt
	case FieldActiveAt:
		return l.ActiveAt
	}
	return nil
}

// HasValue reports whether a rule-checked field is filled in. Strings count
// when non-blank, numbers when positive and the contract file when a key is
// attached.
func (l Lead) HasValue(field Field) bool {
	switch field {
	case FieldLoanAmount:
		return positive(l.LoanAmount)
	case FieldSalesPrice:
		return positive(l.SalesPrice)
	case FieldInterestRate:
		return positive(l.InterestRate)
	case FieldTermMonths:
		return l.TermMonths != nil && *l.TermMonths > 0
	case FieldPropertyType:
		return strings.TrimSpace(l.PropertyType) != ""
	case FieldOccupancy:
		return strings.TrimSpace(l.Occupancy) != ""
	case FieldLoanType:
		return strings.TrimSpace(l.LoanType) != ""
	case FieldLeadStrength:
		return filled(l.LeadStrength)
	case FieldLikelyToApply:
		return filled(l.LikelyToApply)
	case FieldContractFile:
		return filled(l.ContractFileKey)
	case FieldMonthlyLiabilities:
		return l.MonthlyLiabilities > 0
	case FieldTotalMonthlyIncome:
		return l.TotalMonthlyIncome > 0
	}
	return false
}

// TextValue returns the string form of a text field, used by bypass
// predicates.
func (l Lead) TextValue(field Field) string {
	switch field {
	case FieldPropertyType:
		return l.PropertyType
	case FieldOccupancy:
		return l.Occupancy
	case FieldLoanType:
		return l.LoanType
	case FieldLeadStrength:
		return deref(l.LeadStrength)
	case FieldLikelyToApply:
		return deref(l.LikelyToApply)
	}
	return ""
}

// FinanceSnapshot returns the financial view of the lead.
func (l Lead) FinanceSnapshot() finance.Snapshot {
	return finance.Snapshot{
		LoanAmount:          l.LoanAmount,
		SalesPrice:          l.SalesPrice,
		InterestRate:        l.InterestRate,
		TermMonths:          l.TermMonths,
		PropertyType:        l.PropertyType,
		PropertyTaxes:       floatOrZero(l.PropertyTaxes),
		HomeownersInsurance: floatOrZero(l.HomeownersInsurance),
		HOADues:             floatOrZero(l.HOADues),
		MortgageInsurance:   floatOrZero(l.MortgageInsurance),
		MonthlyLiabilities:  l.MonthlyLiabilities,
		TotalMonthlyIncome:  l.TotalMonthlyIncome,
		PITIComputed:        l.PITIComputed,
	}
}

// Apply returns a copy of the lead with every write of m applied. It is the
// in-memory projection of the persisted update.
func (l Lead) Apply(m Mutation) Lead {
	next := l
	for _, field := range m.order {
		value := m.values[field]
		switch field {
		case FieldStage:
			next.Stage = stringValue(value)
		case FieldActiveSubStatus:
			next.ActiveSubStatus = stringPtr(value)
		case FieldSection:
			next.Section = stringPtr(value)
		case FieldPastClientStatus:
			next.PastClientStatus = stringPtr(value)
		case FieldStatusLabel:
			next.StatusLabel = stringPtr(value)
		case FieldTaskDueAt:
			next.TaskDueAt = timePtr(value)
		case FieldQualificationStatus:
			next.QualificationStatus = stringPtr(value)
		case FieldPendingAppAt:
			next.PendingAppAt = timePtr(value)
		case FieldAppCompleteAt:
			next.AppCompleteAt = timePtr(value)
		case FieldPreQualifiedAt:
			next.PreQualifiedAt = timePtr(value)
		case FieldPreApprovedAt:
			next.PreApprovedAt = timePtr(value)
		case FieldActiveAt:
			next.ActiveAt = timePtr(value)
		case FieldLoanAmount:
			next.LoanAmount = floatPtr(value)
		case FieldSalesPrice:
			next.SalesPrice = floatPtr(value)
		case FieldInterestRate:
			next.InterestRate = floatPtr(value)
		case FieldTermMonths:
			next.TermMonths = intPtr(value)
		case FieldPropertyType:
			next.PropertyType = stringValue(value)
		case FieldOccupancy:
			next.Occupancy = stringValue(value)
		case FieldLoanType:
			next.LoanType = stringValue(value)
		case FieldLeadStrength:
			next.LeadStrength = stringPtr(value)
		case FieldLikelyToApply:
			next.LikelyToApply = stringPtr(value)
		case FieldContractFile:
			next.ContractFileKey = stringPtr(value)
		case FieldMonthlyLiabilities:
			next.MonthlyLiabilities = floatOrZero(floatPtr(value))
		case FieldTotalMonthlyIncome:
			next.TotalMonthlyIncome = floatOrZero(floatPtr(value))
		case FieldPrincipalInterest:
			next.PrincipalInterest = floatPtr(value)
		case FieldPropertyTaxes:
			next.PropertyTaxes = floatPtr(value)
		case FieldHomeownersInsurance:
			next.HomeownersInsurance = floatPtr(value)
		case FieldHOADues:
			next.HOADues = floatPtr(value)
		case FieldMortgageInsurance:
			next.MortgageInsurance = floatPtr(value)
		case FieldPITI:
			next.PITI = floatPtr(value)
		case FieldDTIFront:
			next.DTIFront = floatPtr(value)
		case FieldDTIBack:
			next.DTIBack = floatPtr(value)
		case FieldPITIComputed:
			flag, _ := value.(bool)
			next.PITIComputed = flag
		}
	}
	return next
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

func filled(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func timePtr(v any) *time.Time {
	t, ok := v.(time.Time)
	if !ok {
		return nil
	}
	return &t
}

func floatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

func intPtr(v any) *int {
	n, ok := v.(int)
	if !ok {
		return nil
	}
	return &n
}
