package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	stallIDRegex       = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,15}$`)
	reservationIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("stallid", func(fl validator.FieldLevel) bool {
		return stallIDRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register stallid validator: %v", err))
	}
	if err := v.RegisterValidation("reservationid", func(fl validator.FieldLevel) bool {
		return reservationIDRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register reservationid validator: %v", err))
	}
	return v
}

// Validate checks struct tags and returns an error wrapping ErrValidation with
// one message per failing field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long", field)
	case "email":
		return "email format is invalid"
	case "stallid":
		return fmt.Sprintf("%q is not a valid stall id", fe.Value())
	case "reservationid":
		return "reservationId may only contain letters, digits, '-' and '_'"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
