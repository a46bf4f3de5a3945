package transport

import (
	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// RegisterValidations registers the stagekey tag.
func RegisterValidations(val *validator.Validator) error {
	return val.RegisterValidation("stagekey", func(fl playground.FieldLevel) bool {
		return domain.IsKnownStage(fl.Field().String())
	})
}
