package inventory

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"warehouse-inventory-api/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct tag validation and reports the first failure as a
// VALIDATION_ERROR naming the JSON field.
func Validate(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("", "invalid input: %v", err)
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperr.Validation(field, "%s is required", field)
	case "max":
		return apperr.Validation(field, "%s must be at most %s characters", field, fe.Param())
	case "min":
		return apperr.Validation(field, "%s must be at least %s", field, fe.Param())
	case "gte":
		return apperr.Validation(field, "%s must be >= %s", field, fe.Param())
	case "oneof":
		return apperr.Validation(field, "%s must be one of: %s", field, fe.Param())
	default:
		return apperr.Validation(field, "%s failed %s validation", field, fe.Tag())
	}
}
