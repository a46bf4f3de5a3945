package domain

import (
	"errors"
	"strings"
)

// SubStatus is the stored value of an active loan's sub-status.
type SubStatus string

const (
	SubStatusNew       SubStatus = "NEW"
	SubStatusRFP       SubStatus = "RFP"
	SubStatusSubmitted SubStatus = "SUV" // labelled SUB
	SubStatusAWC       SubStatus = "AWC"
	SubStatusCTC       SubStatus = "CTC"
)

// Section groups active loans for the pipeline board.
type Section string

const (
	SectionIncoming Section = "Incoming"
	SectionLive     Section = "Live"
	SectionClosed   Section = "Closed"
)

var (
	ErrNotActive        = errors.New("lead is not in the active stage")
	ErrUnknownSubStatus = errors.New("unknown active sub-status")
	ErrNotPastClient    = errors.New("lead is not in the past-clients stage")
)

// ParseSubStatus accepts a display label or a stored value. SUB and SUV both
// resolve to the stored SUV.
func ParseSubStatus(input string) (SubStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "NEW":
		return SubStatusNew, true
	case "RFP":
		return SubStatusRFP, true
	case "SUB", "SUV":
		return SubStatusSubmitted, true
	case "AWC":
		return SubStatusAWC, true
	case "CTC":
		return SubStatusCTC, true
	}
	return "", false
}

// Label returns the display label of the sub-status.
func (s SubStatus) Label() string {
	if s == SubStatusSubmitted {
		return "SUB"
	}
	return string(s)
}

// IsIncoming reports whether the sub-status belongs to the Incoming section.
func (s SubStatus) IsIncoming() bool {
	return s == SubStatusNew || s == SubStatusRFP
}

// NextSection applies the section rules for a sub-status change. Closed is
// sticky. Incoming sub-statuses pull the loan to Incoming; the remaining ones
// promote Incoming to Live and never move a loan back.
func NextSection(current *string, sub SubStatus) *string {
	if current != nil && Section(*current) == SectionClosed {
		return current
	}
	if sub.IsIncoming() {
		section := string(SectionIncoming)
		return &section
	}
	if current != nil && Section(*current) == SectionIncoming {
		section := string(SectionLive)
		return &section
	}
	return current
}

// ChangeSubStatus computes the writes for a sub-status edit on an active loan.
func ChangeSubStatus(lead Lead, input string) (Mutation, error) {
	if lead.Stage != string(StageActive) {
		return Mutation{}, ErrNotActive
	}
	sub, ok := ParseSubStatus(input)
	if !ok {
		return Mutation{}, ErrUnknownSubStatus
	}

	var m Mutation
	m.Set(FieldActiveSubStatus, string(sub))
	if next := NextSection(lead.Section, sub); next != nil && (lead.Section == nil || *next != *lead.Section) {
		m.Set(FieldSection, *next)
	}
	return m, nil
}

// CloseActive moves an active loan to the Closed section.
func CloseActive(lead Lead) (Mutation, error) {
	if lead.Stage != string(StageActive) {
		return Mutation{}, ErrNotActive
	}
	var m Mutation
	m.Set(FieldSection, string(SectionClosed))
	return m, nil
}
