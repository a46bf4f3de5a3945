package domain

import "strings"

// StageKey is the stable identifier of a pipeline stage.
type StageKey string

const (
	StageLeads        StageKey = "leads"
	StagePendingApp   StageKey = "pending-app"
	StageScreening    StageKey = "screening"
	StagePreQualified StageKey = "pre-qualified"
	StagePreApproved  StageKey = "pre-approved"
	StageActive       StageKey = "active"
	StagePastClients  StageKey = "past-clients"
)

// UnorderedIndex is the index of stages outside the ordered pipeline:
// past-clients and any unknown or legacy value.
const UnorderedIndex = -1

// Stage is the single source of truth for a pipeline stage: its key, its
// display label, its position and the lead field stamped when it is entered.
type Stage struct {
	Key            StageKey
	Label          string
	Index          int
	TimestampField Field
}

var orderedStages = []Stage{
	{Key: StageLeads, Label: "Leads", Index: 0},
	{Key: StagePendingApp, Label: "Pending App", Index: 1, TimestampField: FieldPendingAppAt},
	{Key: StageScreening, Label: "Screening", Index: 2, TimestampField: FieldAppCompleteAt},
	{Key: StagePreQualified, Label: "Pre-Qualified", Index: 3, TimestampField: FieldPreQualifiedAt},
	{Key: StagePreApproved, Label: "Pre-Approved", Index: 4, TimestampField: FieldPreApprovedAt},
	{Key: StageActive, Label: "Active", Index: 5, TimestampField: FieldActiveAt},
}

var pastClientsStage = Stage{Key: StagePastClients, Label: "Past Clients", Index: UnorderedIndex}

// Stages returns the ordered pipeline followed by the terminal past-clients stage.
func Stages() []Stage {
	out := make([]Stage, 0, len(orderedStages)+1)
	out = append(out, orderedStages...)
	return append(out, pastClientsStage)
}

// LookupStage resolves a stage by key.
func LookupStage(key string) (Stage, bool) {
	for _, stage := range orderedStages {
		if string(stage.Key) == key {
			return stage, true
		}
	}
	if key == string(StagePastClients) {
		return pastClientsStage, true
	}
	return Stage{}, false
}

// LookupStageByLabel resolves a stage by its display label, case-insensitively.
func LookupStageByLabel(label string) (Stage, bool) {
	label = strings.TrimSpace(label)
	for _, stage := range Stages() {
		if strings.EqualFold(stage.Label, label) {
			return stage, true
		}
	}
	return Stage{}, false
}

// StageIndex returns the position of key in the pipeline, or UnorderedIndex.
func StageIndex(key string) int {
	stage, ok := LookupStage(key)
	if !ok {
		return UnorderedIndex
	}
	return stage.Index
}

// IsKnownStage reports whether key names a pipeline or terminal stage.
func IsKnownStage(key string) bool {
	_, ok := LookupStage(key)
	return ok
}
