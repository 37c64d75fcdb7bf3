package validation

import (
	"errors"
	"reflect"
	"strings"

	v10 "github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = newValidator()

// newValidator reports fields by their json name so error paths match
// what users write in config files and request bodies.
func newValidator() *v10.Validate {
	v := v10.New(v10.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// Validate runs struct validation using go-playground/validator.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

// FormatValidationErrors converts validator.ValidationErrors into a slice of
// FieldError. Field is the dotted json path below the root struct and Code
// follows the pattern "INVALID_<RULE>|<param>".
func FormatValidationErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	var ve v10.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "", Code: "INVALID", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, f := range ve {
		field := f.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		code := "INVALID_" + strings.ToUpper(f.Tag())
		if p := f.Param(); p != "" {
			code += "|" + p
		}
		out = append(out, FieldError{Field: field, Code: code, Message: message(f)})
	}
	return out
}

func message(f v10.FieldError) string {
	switch f.Tag() {
	case "required", "required_with":
		return "is required"
	case "oneof":
		return "must be one of: " + f.Param()
	case "min":
		return "must be at least " + f.Param()
	case "max":
		return "must be at most " + f.Param()
	case "startswith":
		return "must start with " + f.Param()
	}
	return "failed on the '" + f.Tag() + "' rule"
}

// Summary joins formatted field errors into a single line such as
// "federation.strategy must be one of: strict simple".
func Summary(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		if fe.Field == "" {
			parts = append(parts, fe.Message)
			continue
		}
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return strings.Join(parts, "; ")
}
