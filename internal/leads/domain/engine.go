package domain

import (
	"fmt"
	"time"
)

// Stage side-effect defaults.
const (
	DefaultPendingAppLabel     = "App Sent"
	DefaultQualificationStatus = "New"
)

// WarningUnknownStageKey flags a transition from a legacy or free-form stage
// value. Backfill is skipped but the transition proceeds.
const WarningUnknownStageKey = "unknown_stage_key"

// Warning is a non-fatal condition raised while computing a transition.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TransitionOptions carry request-scoped flags for one transition.
type TransitionOptions struct {
	// IsBypass records that approval relied on a bypass predicate.
	IsBypass bool
	// SuppressAutoRestart keeps an existing active sub-status when the lead
	// enters active.
	SuppressAutoRestart bool
}

// Transition is the full set of writes for an approved stage change.
type Transition struct {
	From       string
	To         StageKey
	Bypassed   bool
	Mutation   Mutation
	Backfilled []Field
	Warnings   []Warning
}

// Engine computes stage transitions. Location decides the calendar day used
// for task due dates.
type Engine struct {
	Location *time.Location
}

// NewEngine returns an engine for loc, defaulting to UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{Location: loc}
}

// ComputeTransition derives every write for moving lead to target at now.
// The caller validates the move first; target must be a known stage.
func (e *Engine) ComputeTransition(lead Lead, target Stage, now time.Time, opts TransitionOptions) Transition {
	t := Transition{From: lead.Stage, To: target.Key, Bypassed: opts.IsBypass}

	fromIndex := StageIndex(lead.Stage)
	if !IsKnownStage(lead.Stage) {
		t.Warnings = append(t.Warnings, Warning{
			Code:    WarningUnknownStageKey,
			Message: fmt.Sprintf("current stage %q is not a pipeline stage; timestamps were not backfilled", lead.Stage),
		})
	}

	t.Mutation.Set(FieldStage, string(target.Key))

	// Forward moves stamp every skipped stage that has no entry time yet.
	if fromIndex != UnorderedIndex && target.Index != UnorderedIndex && target.Index > fromIndex {
		for _, stage := range orderedStages[fromIndex+1 : target.Index+1] {
			if lead.StageTimestamp(stage.TimestampField) != nil {
				continue
			}
			t.Mutation.SetTime(stage.TimestampField, now)
			t.Backfilled = append(t.Backfilled, stage.TimestampField)
		}
	}

	e.applyEntryEffects(&t.Mutation, lead, target.Key, now, opts)
	return t
}

func (e *Engine) applyEntryEffects(m *Mutation, lead Lead, target StageKey, now time.Time, opts TransitionOptions) {
	switch target {
	case StagePendingApp:
		m.Set(FieldStatusLabel, DefaultPendingAppLabel)
		m.SetTime(FieldTaskDueAt, e.startOfDay(now))
	case StagePreApproved:
		m.Set(FieldQualificationStatus, DefaultQualificationStatus)
	case StageActive:
		if opts.SuppressAutoRestart && lead.ActiveSubStatus != nil {
			return
		}
		m.Set(FieldSection, string(SectionIncoming))
		m.Set(FieldActiveSubStatus, string(SubStatusNew))
	case StagePastClients:
		if !filled(lead.PastClientStatus) {
			m.Set(FieldPastClientStatus, string(PastClientClosed))
		}
	}
}

func (e *Engine) startOfDay(now time.Time) time.Time {
	local := now.In(e.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.Location)
}
