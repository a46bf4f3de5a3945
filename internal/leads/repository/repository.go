package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loan_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("lead not found")
	ErrVersionConflict = errors.New("lead was modified concurrently")
	ErrUnknownField    = errors.New("field is not writable")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, version, first_name, last_name, email, phone, referral_source,
	stage, active_sub_status, section, past_client_status, status_label, task_due_at, qualification_status,
	pending_app_at, app_complete_at, pre_qualified_at, pre_approved_at, active_at,
	loan_amount, sales_price, interest_rate, term_months, property_type, occupancy, loan_type,
	lead_strength, likely_to_apply, contract_file_key,
	monthly_liabilities, total_monthly_income,
	principal_interest, property_taxes, homeowners_insurance, hoa_dues, mortgage_insurance, piti,
	dti_front, dti_back, piti_computed, created_at, updated_at`

// fieldColumns whitelists the columns a mutation may write.
var fieldColumns = map[domain.Field]string{
	domain.FieldStage:               "stage",
	domain.FieldActiveSubStatus:     "active_sub_status",
	domain.FieldSection:             "section",
	domain.FieldPastClientStatus:    "past_client_status",
	domain.FieldStatusLabel:         "status_label",
	domain.FieldTaskDueAt:           "task_due_at",
	domain.FieldQualificationStatus: "qualification_status",

	domain.FieldPendingAppAt:   "pending_app_at",
	domain.FieldAppCompleteAt:  "app_complete_at",
	domain.FieldPreQualifiedAt: "pre_qualified_at",
	domain.FieldPreApprovedAt:  "pre_approved_at",
	domain.FieldActiveAt:       "active_at",

	domain.FieldLoanAmount:   "loan_amount",
	domain.FieldSalesPrice:   "sales_price",
	domain.FieldInterestRate: "interest_rate",
	domain.FieldTermMonths:   "term_months",
	domain.FieldPropertyType: "property_type",
	domain.FieldOccupancy:    "occupancy",
	domain.FieldLoanType:     "loan_type",

	domain.FieldLeadStrength:  "lead_strength",
	domain.FieldLikelyToApply: "likely_to_apply",
	domain.FieldContractFile:  "contract_file_key",

	domain.FieldMonthlyLiabilities: "monthly_liabilities",
	domain.FieldTotalMonthlyIncome: "total_monthly_income",

	domain.FieldPrincipalInterest:   "principal_interest",
	domain.FieldPropertyTaxes:       "property_taxes",
	domain.FieldHomeownersInsurance: "homeowners_insurance",
	domain.FieldHOADues:             "hoa_dues",
	domain.FieldMortgageInsurance:   "mortgage_insurance",
	domain.FieldPITI:                "piti",
	domain.FieldDTIFront:            "dti_front",
	domain.FieldDTIBack:             "dti_back",
	domain.FieldPITIComputed:        "piti_computed",
}

const insertLeadQuery = `
	INSERT INTO leads (
		id, version, first_name, last_name, email, phone, referral_source,
		stage, status_label, task_due_at, qualification_status,
		loan_amount, sales_price, interest_rate, term_months, property_type, occupancy, loan_type,
		lead_strength, likely_to_apply,
		monthly_liabilities, total_monthly_income,
		principal_interest, property_taxes, homeowners_insurance, hoa_dues, mortgage_insurance, piti,
		dti_front, dti_back, piti_computed, created_at, updated_at
	) VALUES (
		$1, 1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17,
		$18, $19,
		$20, $21,
		$22, $23, $24, $25, $26, $27,
		$28, $29, $30, $31, $31
	)
	RETURNING ` + leadColumns

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID, &l.Version, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.ReferralSource,
		&l.Stage, &l.ActiveSubStatus, &l.Section, &l.PastClientStatus, &l.StatusLabel, &l.TaskDueAt, &l.QualificationStatus,
		&l.PendingAppAt, &l.AppCompleteAt, &l.PreQualifiedAt, &l.PreApprovedAt, &l.ActiveAt,
		&l.LoanAmount, &l.SalesPrice, &l.InterestRate, &l.TermMonths, &l.PropertyType, &l.Occupancy, &l.LoanType,
		&l.LeadStrength, &l.LikelyToApply, &l.ContractFileKey,
		&l.MonthlyLiabilities, &l.TotalMonthlyIncome,
		&l.PrincipalInterest, &l.PropertyTaxes, &l.HomeownersInsurance, &l.HOADues, &l.MortgageInsurance, &l.PITI,
		&l.DTIFront, &l.DTIBack, &l.PITIComputed, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func insertArgs(l domain.Lead) []any {
	return []any{
		l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.ReferralSource,
		l.Stage, l.StatusLabel, l.TaskDueAt, l.QualificationStatus,
		l.LoanAmount, l.SalesPrice, l.InterestRate, l.TermMonths, l.PropertyType, l.Occupancy, l.LoanType,
		l.LeadStrength, l.LikelyToApply,
		l.MonthlyLiabilities, l.TotalMonthlyIncome,
		l.PrincipalInterest, l.PropertyTaxes, l.HomeownersInsurance, l.HOADues, l.MortgageInsurance, l.PITI,
		l.DTIFront, l.DTIBack, l.PITIComputed, l.CreatedAt,
	}
}

// GetByID loads a lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// Create inserts a new lead at version 1.
func (r *Repository) Create(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, insertLeadQuery, insertArgs(lead)...))
}

// ListParams filters the lead list. Nil filters match every lead.
type ListParams struct {
	Stage   *string
	Section *string
	Search  string
	Offset  int
	Limit   int
}

// List returns one page of leads, most recently updated first, and the total
// number of matches.
func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY updated_at DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []any, int) {
	whereClauses := []string{"TRUE"}
	args := make([]any, 0, 3)
	argIdx := 1

	if params.Stage != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("stage = $%d", argIdx))
		args = append(args, *params.Stage)
		argIdx++
	}
	if params.Section != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("section = $%d", argIdx))
		args = append(args, *params.Section)
		argIdx++
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

// ApplyLeadMutation writes every field of m in one statement, guarded by the
// expected version. The stored version is incremented.
func (r *Repository) ApplyLeadMutation(ctx context.Context, id uuid.UUID, version int, m domain.Mutation) (domain.Lead, error) {
	query, args, err := buildMutationQuery(id, version, m)
	if err != nil {
		return domain.Lead{}, err
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, r.missingRowError(ctx, r.pool, id)
	}
	return lead, err
}

// ApplyReferral writes the past-client status change and inserts the
// referral lead in one transaction.
func (r *Repository) ApplyReferral(ctx context.Context, id uuid.UUID, version int, m domain.Mutation, referral domain.Lead) (domain.Lead, domain.Lead, error) {
	query, args, err := buildMutationQuery(id, version, m)
	if err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, domain.Lead{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanLead(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.Lead{}, r.missingRowError(ctx, tx, id)
	}
	if err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}

	created, err := scanLead(tx.QueryRow(ctx, insertLeadQuery, insertArgs(referral)...))
	if err != nil {
		return domain.Lead{}, domain.Lead{}, fmt.Errorf("failed to insert referral lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, domain.Lead{}, fmt.Errorf("failed to commit referral: %w", err)
	}
	return updated, created, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// missingRowError tells a stale version apart from a missing lead.
func (r *Repository) missingRowError(ctx context.Context, q queryRower, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func buildMutationQuery(id uuid.UUID, version int, m domain.Mutation) (string, []any, error) {
	fields := m.Fields()
	setClauses := make([]string, 0, len(fields)+2)
	args := make([]any, 0, len(fields)+2)
	argIdx := 1

	for _, field := range fields {
		column, ok := fieldColumns[field]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		value, _ := m.Get(field)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	setClauses = append(setClauses, "version = version + 1", "updated_at = now()")
	args = append(args, id, version)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d AND version = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIdx, argIdx+1, leadColumns)

	return query, args, nil
}
