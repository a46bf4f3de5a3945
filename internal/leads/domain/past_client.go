package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PastClientStatus is the display status of a lead in past-clients.
type PastClientStatus string

const (
	PastClientClosed       PastClientStatus = "Closed"
	PastClientNeedsSupport PastClientStatus = "Needs Support"
	PastClientNewLead      PastClientStatus = "New Lead"

	// ReferralSourcePastClient marks leads cloned from a past client.
	ReferralSourcePastClient = "Past Client"
)

// NormalizePastClientStatus maps a free-form value onto the display enum.
// Anything unrecognized is Closed.
func NormalizePastClientStatus(input string) PastClientStatus {
	normalized := strings.ToLower(strings.Join(strings.Fields(input), " "))
	switch strings.ReplaceAll(normalized, "_", " ") {
	case "needs support":
		return PastClientNeedsSupport
	case "new lead":
		return PastClientNewLead
	}
	return PastClientClosed
}

// PastClientUpdate is the result of a past-client status change. Referral is
// set when the change fans out into a new lead.
type PastClientUpdate struct {
	Status   PastClientStatus
	Mutation Mutation
	Referral *Lead
}

// ChangePastClientStatus computes the status write and, for New Lead, the
// referral lead cloned from the borrower's contact details. Both must be
// persisted together.
func ChangePastClientStatus(lead Lead, input string, newID uuid.UUID, now time.Time) (PastClientUpdate, error) {
	if lead.Stage != string(StagePastClients) {
		return PastClientUpdate{}, ErrNotPastClient
	}

	status := NormalizePastClientStatus(input)
	update := PastClientUpdate{Status: status}
	update.Mutation.Set(FieldPastClientStatus, string(status))

	if status == PastClientNewLead {
		referral := NewReferralLead(lead, newID, now)
		update.Referral = &referral
	}
	return update, nil
}

// NewReferralLead clones the contact fields of source into a fresh lead at
// the first stage.
func NewReferralLead(source Lead, id uuid.UUID, now time.Time) Lead {
	referralSource := ReferralSourcePastClient
	return Lead{
		ID:             id,
		Version:        1,
		FirstName:      source.FirstName,
		LastName:       source.LastName,
		Email:          copyString(source.Email),
		Phone:          source.Phone,
		ReferralSource: &referralSource,
		Stage:          string(StageLeads),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
