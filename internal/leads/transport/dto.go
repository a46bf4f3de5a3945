package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName      string   `json:"firstName" validate:"required,min=1,max=100"`
	LastName       string   `json:"lastName" validate:"required,min=1,max=100"`
	Phone          string   `json:"phone" validate:"required,min=5,max=20"`
	Email          string   `json:"email,omitempty" validate:"omitempty,email"`
	ReferralSource string   `json:"referralSource,omitempty" validate:"max=100"`
	LoanAmount     *float64 `json:"loanAmount,omitempty" validate:"omitempty,gt=0"`
	SalesPrice     *float64 `json:"salesPrice,omitempty" validate:"omitempty,gt=0"`
	InterestRate   *float64 `json:"interestRate,omitempty" validate:"omitempty,gt=0,lte=30"`
	TermMonths     *int     `json:"termMonths,omitempty" validate:"omitempty,gt=0,lte=480"`
	PropertyType   string   `json:"propertyType,omitempty" validate:"max=100"`
	Occupancy      string   `json:"occupancy,omitempty" validate:"max=100"`
	LoanType       string   `json:"loanType,omitempty" validate:"max=100"`

	PropertyTaxes       *float64 `json:"propertyTaxes,omitempty" validate:"omitempty,gte=0"`
	HomeownersInsurance *float64 `json:"homeownersInsurance,omitempty" validate:"omitempty,gte=0"`
	HOADues             *float64 `json:"hoaDues,omitempty" validate:"omitempty,gte=0"`
	MortgageInsurance   *float64 `json:"mortgageInsurance,omitempty" validate:"omitempty,gte=0"`
	MonthlyLiabilities  float64  `json:"monthlyLiabilities" validate:"gte=0"`
	TotalMonthlyIncome  float64  `json:"totalMonthlyIncome" validate:"gte=0"`
}

// UpdateLoanRequest edits loan inputs. Omitted fields are left alone and an
// explicit null clears the field.
type UpdateLoanRequest struct {
	LoanAmount         OptionalFloat `json:"loanAmount" validate:"-"`
	SalesPrice         OptionalFloat `json:"salesPrice" validate:"-"`
	InterestRate       OptionalFloat `json:"interestRate" validate:"-"`
	TermMonths         OptionalInt   `json:"termMonths" validate:"-"`
	PropertyType       *string       `json:"propertyType,omitempty" validate:"omitempty,max=100"`
	Occupancy          *string       `json:"occupancy,omitempty" validate:"omitempty,max=100"`
	LoanType           *string       `json:"loanType,omitempty" validate:"omitempty,max=100"`
	MonthlyLiabilities *float64      `json:"monthlyLiabilities,omitempty" validate:"omitempty,gte=0"`
	TotalMonthlyIncome *float64      `json:"totalMonthlyIncome,omitempty" validate:"omitempty,gte=0"`
}

type StageRequest struct {
	Stage               string            `json:"stage" validate:"required,stagekey"`
	Bypass              bool              `json:"bypass"`
	Corrections         map[string]string `json:"corrections,omitempty" validate:"omitempty,max=2"`
	SuppressAutoRestart bool              `json:"suppressAutoRestart"`
}

type ValidateStageRequest struct {
	Stage       string            `json:"stage" validate:"required,stagekey"`
	Corrections map[string]string `json:"corrections,omitempty" validate:"omitempty,max=2"`
}

type ActiveStatusRequest struct {
	Status string `json:"status" validate:"required,min=1,max=50"`
}

type PastClientStatusRequest struct {
	Status string `json:"status" validate:"required,min=1,max=50"`
}

type ListLeadsRequest struct {
	Stage    string `form:"stage" validate:"omitempty,stagekey"`
	Section  string `form:"section" validate:"max=50"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type LeadResponse struct {
	ID             uuid.UUID `json:"id"`
	Version        int       `json:"version"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          *string   `json:"email,omitempty"`
	Phone          string    `json:"phone"`
	ReferralSource *string   `json:"referralSource,omitempty"`

	Stage               string     `json:"stage"`
	ActiveSubStatus     *string    `json:"activeSubStatus,omitempty"`
	Section             *string    `json:"section,omitempty"`
	PastClientStatus    *string    `json:"pastClientStatus,omitempty"`
	StatusLabel         *string    `json:"statusLabel,omitempty"`
	TaskDueAt           *time.Time `json:"taskDueAt,omitempty"`
	QualificationStatus *string    `json:"qualificationStatus,omitempty"`

	PendingAppAt   *time.Time `json:"pendingAppAt,omitempty"`
	AppCompleteAt  *time.Time `json:"appCompleteAt,omitempty"`
	PreQualifiedAt *time.Time `json:"preQualifiedAt,omitempty"`
	PreApprovedAt  *time.Time `json:"preApprovedAt,omitempty"`
	ActiveAt       *time.Time `json:"activeAt,omitempty"`

	LoanAmount   *float64 `json:"loanAmount,omitempty"`
	SalesPrice   *float64 `json:"salesPrice,omitempty"`
	InterestRate *float64 `json:"interestRate,omitempty"`
	TermMonths   *int     `json:"termMonths,omitempty"`
	PropertyType string   `json:"propertyType"`
	Occupancy    string   `json:"occupancy"`
	LoanType     string   `json:"loanType"`

	LeadStrength  *string `json:"leadStrength,omitempty"`
	LikelyToApply *string `json:"likelyToApply,omitempty"`
	ContractFile  *string `json:"contractFile,omitempty"`

	MonthlyLiabilities float64 `json:"monthlyLiabilities"`
	TotalMonthlyIncome float64 `json:"totalMonthlyIncome"`

	Financials FinancialsResponse `json:"financials"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type FinancialsResponse struct {
	PrincipalInterest   *float64 `json:"principalInterest,omitempty"`
	PropertyTaxes       *float64 `json:"propertyTaxes,omitempty"`
	HomeownersInsurance *float64 `json:"homeownersInsurance,omitempty"`
	HOADues             *float64 `json:"hoaDues,omitempty"`
	MortgageInsurance   *float64 `json:"mortgageInsurance,omitempty"`
	PITI                *float64 `json:"piti,omitempty"`
	DTIFront            *float64 `json:"dtiFront,omitempty"`
	DTIBack             *float64 `json:"dtiBack,omitempty"`
	Computed            bool     `json:"computed"`
}

// ConditionSummary is the lead detail's view of an underwriting condition.
type ConditionSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	DocumentID *string   `json:"documentId,omitempty"`
	DueDate    *string   `json:"dueDate,omitempty"`
	Priority   string    `json:"priority"`
}

type LeadDetailResponse struct {
	Lead       LeadResponse       `json:"lead"`
	Conditions []ConditionSummary `json:"conditions"`
}

type StageValidationResponse struct {
	Target         string   `json:"target"`
	Approved       bool     `json:"approved"`
	Message        string   `json:"message,omitempty"`
	MissingFields  []string `json:"missingFields"`
	WaivedFields   []string `json:"waivedFields,omitempty"`
	BypassEligible bool     `json:"bypassEligible"`
}

type WarningResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StageTransitionResponse struct {
	Lead       LeadResponse      `json:"lead"`
	Changed    bool              `json:"changed"`
	Bypassed   bool              `json:"bypassed"`
	Backfilled []string          `json:"backfilled,omitempty"`
	Warnings   []WarningResponse `json:"warnings,omitempty"`
}

type PastClientStatusResponse struct {
	Lead     LeadResponse  `json:"lead"`
	Referral *LeadResponse `json:"referral,omitempty"`
}
