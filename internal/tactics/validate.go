package tactics

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/talgya/pitchside/internal/simerr"
)

// FieldViolation describes a single invalid setup field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate returns one violation per out-of-range or unknown field. An empty
// result means the setup is acceptable.
func Validate(s Setup) []FieldViolation {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldViolation{{Field: "setup", Message: err.Error()}}
	}

	out := make([]FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldViolation{Field: fieldPath(fe), Message: violationMessage(fe)})
	}
	return out
}

// ValidateInstruction checks a single player instruction.
func ValidateInstruction(in Instruction) []FieldViolation {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldViolation{{Field: "instruction", Message: err.Error()}}
	}
	out := make([]FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldViolation{Field: fieldPath(fe), Message: violationMessage(fe)})
	}
	return out
}

// AsError converts violations into a simerr validation error, or nil.
func AsError(violations []FieldViolation) error {
	if len(violations) == 0 {
		return nil
	}
	fields := make([]string, len(violations))
	msgs := make([]string, len(violations))
	for i, v := range violations {
		fields[i] = v.Field
		msgs[i] = v.Field + " " + v.Message
	}
	return simerr.Validation("invalid tactical setup: "+strings.Join(msgs, "; "), fields...)
}

// fieldPath strips the root struct name from the namespace, so nested
// instruction fields read "instructions[p7].pressing".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		return fmt.Sprintf("must be between 0 and 100, got %v", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
