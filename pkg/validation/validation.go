// Package validation checks HTTP request DTOs with go-playground/validator
// and reports failures as InvalidArgument domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "consentd/pkg/domain-errors"
)

// MaxBodySize bounds JSON request bodies.
const MaxBodySize = 64 * 1024

// Element limits for list fields.
const (
	MaxPurposes      = 50
	MaxCategories    = 50
	MaxListItemChars = 200
	MaxSubjectIDLen  = 128
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the wire format.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks struct tags and returns an InvalidArgument error naming the
// first failing field.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeInvalidArgument, ErrorMessage(err))
	}
	return nil
}

// ValidateSubjectID checks a subject identifier taken from a URL path.
func ValidateSubjectID(subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "subject_id is required")
	}
	return CheckStringLength("subject_id", subjectID, MaxSubjectIDLen)
}

func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	field := fe.Field()
	if field == "" {
		field = fe.StructField()
	}

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "ltefield", "gtefield":
		return fmt.Sprintf("%s is out of order with %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckList bounds both the element count and each element's length.
func CheckList(fieldName string, values []string, maxCount int) error {
	if len(values) > maxCount {
		return dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("too many %s: max %d allowed", fieldName, maxCount))
	}
	for _, v := range values {
		if err := CheckStringLength(fieldName, v, MaxListItemChars); err != nil {
			return err
		}
	}
	return nil
}
