package usecase

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Field lengths match the columns in migrations/001_init.sql.
const (
	maxNameLength     = 100
	maxEmailLength    = 200
	maxPasswordLength = 300
	maxDocumentLength = 50
	maxLanguageLength = 50
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Messages use the human label, falling back to the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	_ = v.RegisterValidation("absurl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && u.IsAbs() && u.Host != ""
	})
	return v
}

// validateInput runs the struct tags and returns every failure as one
// *domain.ValidationError.
func validateInput(in any) error {
	verrs := &domain.ValidationError{}
	collectValidation(verrs, in)
	return verrs.Err()
}

func collectValidation(verrs *domain.ValidationError, in any) {
	err := validate.Struct(in)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verrs.Add(err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verrs.Add(fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "max":
		return fmt.Sprintf("%s exceeds the maximum allowed length.", fe.Field())
	case "email":
		return fmt.Sprintf("%s is not a valid email address.", fe.Field())
	case "absurl":
		return fmt.Sprintf("%s must be an absolute URI.", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
