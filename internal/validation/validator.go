// Package validation provides request and document validation utilities using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domainerrors "github.com/livraria/livraria-api/internal/errors"
)

// FieldError describes one rejected field in a validation response.
type FieldError struct {
	Field   string `json:"field" doc:"Field name as sent by the client"`
	Message string `json:"message" doc:"Why the value was rejected"`
}

var isbnPattern = regexp.MustCompile(`^[0-9][0-9-]{8,15}[0-9X]$`)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New creates a validator configured for our domain.
func New() *Validator {
	val := &Validator{v: validator.New(), now: time.Now}

	// Use JSON tag names in error messages
	val.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		}
		return name
	})

	mustRegister(val.v, "objectid", func(fl validator.FieldLevel) bool {
		_, err := primitive.ObjectIDFromHex(fl.Field().String())
		return err == nil
	})
	mustRegister(val.v, "isbn_loose", func(fl validator.FieldLevel) bool {
		return isbnPattern.MatchString(fl.Field().String())
	})
	mustRegister(val.v, "notfuture_year", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(val.now().Year())
	})
	mustRegister(val.v, "past_date", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && t.Before(val.now())
	})

	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate validates a struct and returns a domain error listing every rejected field.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make([]FieldError, 0, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldPath(e),
			Message: v.friendlyMessage(e),
		})
	}

	return domainerrors.ValidationWithDetails("Dados inválidos", fieldErrors)
}

// fieldPath returns the dotted JSON path without the root struct name.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	isString := e.Kind() == reflect.String
	switch e.Tag() {
	case "required", "required_without":
		return "é obrigatório"
	case "email":
		return "deve ser um email válido"
	case "min":
		if isString {
			return fmt.Sprintf("deve ter pelo menos %s caracteres", e.Param())
		}
		return "deve ser maior ou igual a " + e.Param()
	case "max":
		if isString {
			return fmt.Sprintf("deve ter no máximo %s caracteres", e.Param())
		}
		return "deve ser menor ou igual a " + e.Param()
	case "len":
		return fmt.Sprintf("deve ter exatamente %s caracteres", e.Param())
	case "url", "http_url":
		return "deve ser uma URL válida"
	case "oneof":
		return "deve ser um dos valores: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "gte":
		return "deve ser maior ou igual a " + e.Param()
	case "lte":
		return "deve ser menor ou igual a " + e.Param()
	case "gt":
		return "deve ser maior que " + e.Param()
	case "lt":
		return "deve ser menor que " + e.Param()
	case "eqfield":
		return "deve ser igual a " + e.Param()
	case "nefield":
		return "deve ser diferente de " + e.Param()
	case "objectid":
		return "deve ser um identificador válido"
	case "isbn_loose":
		return "deve ser um ISBN válido"
	case "notfuture_year":
		return "não pode ser maior que o ano atual"
	case "past_date":
		return "deve ser uma data no passado"
	default:
		return "é inválido"
	}
}
