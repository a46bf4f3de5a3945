package domain

import "time"

// Field names a writable lead field. Values double as the JSON names used in
// stage rules and deficiency responses.
type Field string

const (
	FieldStage               Field = "stage"
	FieldActiveSubStatus     Field = "activeSubStatus"
	FieldSection             Field = "section"
	FieldPastClientStatus    Field = "pastClientStatus"
	FieldStatusLabel         Field = "statusLabel"
	FieldTaskDueAt           Field = "taskDueAt"
	FieldQualificationStatus Field = "qualificationStatus"

	FieldPendingAppAt   Field = "pendingAppAt"
	FieldAppCompleteAt  Field = "appCompleteAt"
	FieldPreQualifiedAt Field = "preQualifiedAt"
	FieldPreApprovedAt  Field = "preApprovedAt"
	FieldActiveAt       Field = "activeAt"

	FieldLoanAmount   Field = "loanAmount"
	FieldSalesPrice   Field = "salesPrice"
	FieldInterestRate Field = "interestRate"
	FieldTermMonths   Field = "termMonths"
	FieldPropertyType Field = "propertyType"
	FieldOccupancy    Field = "occupancy"
	FieldLoanType     Field = "loanType"

	FieldLeadStrength  Field = "leadStrength"
	FieldLikelyToApply Field = "likelyToApply"
	FieldContractFile  Field = "contractFile"

	FieldMonthlyLiabilities Field = "monthlyLiabilities"
	FieldTotalMonthlyIncome Field = "totalMonthlyIncome"

	FieldPrincipalInterest   Field = "principalInterest"
	FieldPropertyTaxes       Field = "propertyTaxes"
	FieldHomeownersInsurance Field = "homeownersInsurance"
	FieldHOADues             Field = "hoaDues"
	FieldMortgageInsurance   Field = "mortgageInsurance"
	FieldPITI                Field = "piti"
	FieldDTIFront            Field = "dtiFront"
	FieldDTIBack             Field = "dtiBack"
	FieldPITIComputed        Field = "pitiComputed"
)

// LoanTriggerFields are the inputs whose change refreshes principal and
// interest, PITI and DTI.
var LoanTriggerFields = []Field{FieldLoanAmount, FieldInterestRate, FieldTermMonths}

// Mutation is an ordered set of field writes applied to a lead in a single
// atomic update. Setting a field twice keeps its first position and the last
// value. A nil value clears the field. The zero value is ready to use.
type Mutation struct {
	order  []Field
	values map[Field]any
}

// Set records a write of value to field.
func (m *Mutation) Set(field Field, value any) {
	if m.values == nil {
		m.values = make(map[Field]any)
	}
	if _, exists := m.values[field]; !exists {
		m.order = append(m.order, field)
	}
	m.values[field] = value
}

// SetTime records a timestamp write in UTC.
func (m *Mutation) SetTime(field Field, value time.Time) {
	m.Set(field, value.UTC())
}

// Clear records a write of NULL to field.
func (m *Mutation) Clear(field Field) {
	m.Set(field, nil)
}

// Get returns the pending value of field.
func (m Mutation) Get(field Field) (any, bool) {
	value, ok := m.values[field]
	return value, ok
}

// Touches reports whether any of fields is written.
func (m Mutation) Touches(fields ...Field) bool {
	for _, field := range fields {
		if _, ok := m.values[field]; ok {
			return true
		}
	}
	return false
}

// Merge copies every write of other into m, in other's order.
func (m *Mutation) Merge(other Mutation) {
	for _, field := range other.order {
		m.Set(field, other.values[field])
	}
}

// Fields returns the written fields in write order.
func (m Mutation) Fields() []Field {
	out := make([]Field, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of written fields.
func (m Mutation) Len() int {
	return len(m.order)
}

// IsEmpty reports whether the mutation writes nothing.
func (m Mutation) IsEmpty() bool {
	return len(m.order) == 0
}

// Values returns the writes keyed by field name, for responses and logs.
func (m Mutation) Values() map[string]any {
	out := make(map[string]any, len(m.order))
	for _, field := range m.order {
		out[string(field)] = m.values[field]
	}
	return out
}
