package transport

import (
	"loan_pipeline_backend/internal/conditions/domain"
	"loan_pipeline_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// RegisterValidations registers the conditionstatus tag.
func RegisterValidations(val *validator.Validator) error {
	return val.RegisterValidation("conditionstatus", func(fl playground.FieldLevel) bool {
		_, ok := domain.ParseStatus(fl.Field().String())
		return ok
	})
}
