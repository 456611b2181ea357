package domain

import (
	"errors"       // Error inspection
	"fmt"          // Error wrapping
	"math"         // Magnitude checks
	"reflect"      // Validator type hooks
	"strings"      // Tag parsing
	"unicode/utf8" // Encoding checks

	"github.com/go-playground/validator/v10" // Struct tag validation
	"github.com/google/uuid"                 // Id parsing
	"github.com/shopspring/decimal"          // Exact money
)

const (
	MaxNameLength     = 100
	MaxSummaryLength  = 255
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores anything past 72 bytes
)

// MaxMoney is the largest magnitude a DECIMAL(14,2) column holds.
var MaxMoney = decimal.RequireFromString("999999999999.99")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Decimals are checked as floats; every bound is far inside float64's exact range
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	maxMoney := MaxMoney.InexactFloat64()
	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		return f.Kind() == reflect.Float64 && math.Abs(f.Float()) <= maxMoney
	})
	_ = v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	})
	return v
}

// Validate checks s against its validate tags. The first failing field is
// reported as ErrValidation.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, describe(fieldErrs[0]))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s longer than %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s shorter than %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be below %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("invalid %s %q", field, fe.Value())
	case "uuid":
		return fmt.Sprintf("%s %q is not a UUID", field, fe.Value())
	case "utf8":
		return field + " is not valid UTF-8"
	case "money":
		return fmt.Sprintf("%s exceeds %s", field, MaxMoney)
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// CheckBalance rejects a balance the money columns cannot hold.
func CheckBalance(field string, v decimal.Decimal) error {
	if v.Abs().GreaterThan(MaxMoney) {
		return fmt.Errorf("%w: %s would exceed %s", ErrValidation, field, MaxMoney)
	}
	return nil
}

// ValidatePasswordBytes enforces the bcrypt input limit, which counts bytes
// where the max tag counts characters.
func ValidatePasswordBytes(password string) error {
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password longer than %d bytes", ErrValidation, MaxPasswordLength)
	}
	return nil
}

// CanonicalID accepts an empty id or any spelling uuid.Parse understands and
// returns the lower-case hyphenated form.
func CanonicalID(id string) (string, error) {
	if id == "" {
		return "", nil
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: id %q is not a UUID", ErrValidation, id)
	}
	return u.String(), nil
}

// NewID returns id when set, otherwise a fresh UUIDv4.
func NewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
