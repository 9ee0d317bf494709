package main

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// isbnPattern accepts 10 digits ending with 0 whose first two digits are in [10, 90].
var isbnPattern = regexp.MustCompile(`^(?:10|[1-8][0-9]|90)[0-9]{7}0$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("isbn10", func(fl validator.FieldLevel) bool {
		return IsValidISBN(fl.Field().String())
	})
	return v
}

// IsValidISBN reports whether isbn follows the catalog ISBN rules.
func IsValidISBN(isbn string) bool {
	return isbnPattern.MatchString(isbn)
}

// ValidateInput checks the struct tags of a service input and converts
// failures into a *ValidationError listing every offending field.
func ValidateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldErrorMessage(fe)})
	}
	return &ValidationError{Fields: fields}
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "isbn10":
		return field + " must be 10 digits ending with 0 and starting with a number between 10 and 90"
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
