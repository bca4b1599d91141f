// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError describes one failed rule.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field is the JSON name of the failing field.
func (e *ValidationError) Field() string { return e.field }

// Tag is the failing rule, e.g. "required".
func (e *ValidationError) Tag() string { return e.tag }

// Param is the rule parameter, e.g. "100" for max=100.
func (e *ValidationError) Param() string { return e.param }

// Value is the rejected value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual failures.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// APIError is the response-ready form of a validation failure.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError flattens the failures into one message plus per-field details.
func (ve *RequestValidationError) ToAPIError() *APIError {
	if len(ve.errors) == 0 {
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	}

	if len(ve.errors) == 1 {
		err := ve.errors[0]
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: err.message,
			Details: map[string]interface{}{
				"field": err.field,
				"tag":   err.tag,
				"value": err.value,
			},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   err.field,
			"tag":     err.tag,
			"message": err.message,
		}
		messages[i] = err.message
	}

	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report the name clients send, not the Go field name.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
	return validate
}

// ValidateStruct validates s and returns nil when every rule passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []ValidationError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

var errorMessageTemplates = map[string]string{
	"required": "%s is required",
}

var errorMessageWithParam = map[string]string{
	"oneof":   "%s must be one of: %s",
	"gte":     "%s must be greater than or equal to %s",
	"lte":     "%s must be less than or equal to %s",
	"gt":      "%s must be greater than %s",
	"lt":      "%s must be less than %s",
	"nefield": "%s must differ from %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}
	return translateMinMax(fe, field, tag, param)
}

func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	noun := ""
	switch fe.Kind() {
	case reflect.String:
		noun = " characters"
	case reflect.Slice:
		noun = " items"
	}

	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, noun)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, noun)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
