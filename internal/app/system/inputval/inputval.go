// internal/app/system/inputval/inputval.go
//
// Package inputval validates request structs via struct tags:
//
//	type createGroupInput struct {
//		Name string `validate:"required,max=100" label:"Name"`
//	}
//
//	if result := inputval.Validate(input); result.HasErrors() {
//		msg := result.First()
//	}
//
// The label tag controls the field name shown in messages.
package inputval

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func v() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if label := fld.Tag.Get("label"); label != "" {
				return label
			}
			return fld.Name
		})
	})
	return validate
}

// Result collects validation failures in declaration order.
type Result struct {
	Errors []string
}

// HasErrors reports whether any field failed validation.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first failure message, or "" when valid.
func (r Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}

// Validate checks the struct's validate tags and returns human-readable
// failure messages.
func Validate(input any) Result {
	err := v().Struct(input)
	if err == nil {
		return Result{}
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Result{Errors: []string{"invalid input"}}
	}

	var res Result
	for _, fe := range verrs {
		res.Errors = append(res.Errors, message(fe))
	}
	return res
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
