package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/scmdesk/scmdesk/internal/shared"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate runs validator tags on target and reports failures as shared.ErrValidation.
func Validate(target any) error {
	err := validate.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	fields := shared.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:], describe(fe))
	}
	return fields.Err()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email"
	case "gtfield", "gtefield":
		return "must not be before " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
