package pipeline

import (
	"errors"

	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/repository"
	"loan_pipeline_backend/platform/apperr"
)

const (
	msgLeadNotFound     = "lead not found"
	msgVersionConflict  = "lead was modified by another request; reload and retry"
	msgUnknownStage     = "unknown stage"
	msgBypassIneligible = "bypass is not available for this lead"
)

// ErrValidationDeficiency marks a stage transition refused for missing
// fields. It is always wrapped in an apperr.Error carrying a Deficiency.
var ErrValidationDeficiency = errors.New("validation deficiency")

// Deficiency is the response detail of a refused transition.
type Deficiency struct {
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	MissingFields  []string `json:"missingFields"`
	BypassEligible bool     `json:"bypassEligible"`
}

// NewDeficiency converts a refused verdict into its response detail.
func NewDeficiency(v domain.Verdict) Deficiency {
	missing := make([]string, 0, len(v.Missing))
	for _, field := range v.Missing {
		missing = append(missing, string(field))
	}
	return Deficiency{
		Target:         string(v.Target),
		Message:        v.Message(),
		MissingFields:  missing,
		BypassEligible: v.BypassEligible,
	}
}

func deficiencyError(v domain.Verdict) *apperr.Error {
	return apperr.Wrap(apperr.KindUnprocessable, v.Message(), ErrValidationDeficiency).WithDetails(NewDeficiency(v))
}

// IsDeficiency reports whether err is a refused stage transition.
func IsDeficiency(err error) bool {
	return errors.Is(err, ErrValidationDeficiency)
}

// mapDomainError translates lead rule violations into request errors.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotActive), errors.Is(err, domain.ErrNotPastClient):
		return apperr.Wrap(apperr.KindConflict, err.Error(), err)
	case errors.Is(err, domain.ErrUnknownSubStatus):
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	return err
}

// mapStoreError translates repository sentinels. Other errors are classified
// as persistence failures.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgLeadNotFound)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperr.Wrap(apperr.KindConflict, msgVersionConflict, err)
	}
	return apperr.Persistence(err)
}
