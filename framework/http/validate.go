package http

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator used for request bodies.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// Validate checks v's `validate` struct tags. Failures come back as a 400
// *Error naming each offending field by its JSON name.
//
//	type loginBody struct {
//	    User string `json:"user" validate:"required"`
//	    Pass string `json:"pass" validate:"required"`
//	}
func Validate(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		// Not a struct, or a nil pointer: nothing to check.
		var inv *validator.InvalidValidationError
		if errors.As(err, &inv) {
			return nil
		}
		return BadRequest(err.Error())
	}

	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return BadRequest("Invalid body: " + strings.Join(parts, ", "))
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
