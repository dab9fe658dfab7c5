package validate

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Get returns the shared validator with the custom rules registered.
func Get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(jsonFieldName)
		_ = instance.RegisterValidation("maxbytes", validateMaxBytes)
	})
	return instance
}

// Struct validates s and flattens failures into a single error.
func Struct(s any) error {
	return flatten(Get().Struct(s))
}

// Var validates a single value against tag.
func Var(field string, v any, tag string) error {
	err := Get().Var(v, tag)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return &FieldError{Field: field, Tag: ves[0].Tag(), msg: field + " " + describe(ves[0])}
	}
	return err
}

// IsMaxBytes reports whether err came from the maxbytes rule.
func IsMaxBytes(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe) && fe.Tag == "maxbytes"
}

type FieldError struct {
	Field string
	Tag   string
	msg   string
}

func (e *FieldError) Error() string { return e.msg }

// validateMaxBytes checks the byte length, not the rune count, of a string.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil || limit < 0 {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func flatten(err error) error {
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err
	}
	first := ves[0]
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fe.Field()+" "+describe(fe))
	}
	return &FieldError{Field: first.Field(), Tag: first.Tag(), msg: strings.Join(msgs, "; ")}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "maxbytes":
		return "exceeds the maximum size of " + fe.Param() + " bytes"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
