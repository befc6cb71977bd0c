package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrorResponse describes one failed validation rule on one field.
type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// uuid_required rejects the zero UUID, which "required" alone lets
	// through because uuid.UUID is an array type.
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		id, ok := fl.Field().Interface().(uuid.UUID)
		return ok && id != uuid.Nil
	})
}

// ValidateStruct runs the struct's validate tags and returns one entry per
// violated rule. An empty slice means the value passed.
func ValidateStruct(data interface{}) []*ErrorResponse {
	var failures []*ErrorResponse
	if err := validate.Struct(data); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			failures = append(failures, &ErrorResponse{
				FailedField: fieldErr.StructNamespace(),
				Tag:         fieldErr.Tag(),
				Value:       fieldErr.Param(),
			})
		}
	}
	return failures
}
