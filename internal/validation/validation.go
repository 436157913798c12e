// Package validation checks the Auth step form before anything is sent.
package validation

import (
	"regexp"
	"strings"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/go-playground/validator/v10"
)

// nigerianPhone accepts +234 or 0, then 7|8|9, then 0|1, then 8 digits.
var nigerianPhone = regexp.MustCompile(`^(\+234|0)[789][01]\d{8}$`)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Package-level validator, shared by every call.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	RegisterTags(v)
	return v
}

// RegisterTags adds the "ngphone" and "pin" tags to v.
func RegisterTags(v *validator.Validate) {
	_ = v.RegisterValidation("ngphone", func(fl validator.FieldLevel) bool {
		return nigerianPhone.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return pinPattern.MatchString(fl.Field().String())
	})
}

type rule struct {
	field string
	value string
	tag   string
	err   error
}

// Validate applies the form rules for mode in order and returns the first
// failure as a *models.ValidationError. No network or email-format check
// is made.
func Validate(mode models.AuthMode, form models.AuthForm) error {
	if mode == models.AuthModeSignup {
		if err := check(
			rule{"firstName", form.FirstName, "required", models.ErrMissingRequiredField},
			rule{"lastName", form.LastName, "required", models.ErrMissingRequiredField},
		); err != nil {
			return err
		}
		if validate.VarWithValue(form.Password, form.ConfirmPassword, "eqcsfield") != nil {
			return &models.ValidationError{Field: "confirmPassword", Err: models.ErrPasswordMismatch}
		}
	}

	return check(
		rule{"email", form.Email, "required", models.ErrMissingRequiredField},
		rule{"phoneNumber", form.PhoneNumber, "required", models.ErrMissingRequiredField},
		rule{"password", form.Password, "required", models.ErrMissingRequiredField},
		rule{"phoneNumber", form.PhoneNumber, "ngphone", models.ErrInvalidPhoneFormat},
	)
}

// ValidPhone reports whether phone matches the Nigerian mobile format.
func ValidPhone(phone string) bool {
	return validate.Var(phone, "ngphone") == nil
}

// NormalizePhone rewrites a valid local number (0XXXXXXXXXX) into its +234
// form. Anything else is returned unchanged.
func NormalizePhone(phone string) string {
	if strings.HasPrefix(phone, "0") && ValidPhone(phone) {
		return "+234" + phone[1:]
	}
	return phone
}

// ValidatePIN checks a PIN and its confirmation.
func ValidatePIN(pin, confirm string) error {
	if err := check(rule{"pin", pin, "pin", models.ErrInvalidPIN}); err != nil {
		return err
	}
	if validate.VarWithValue(pin, confirm, "eqcsfield") != nil {
		return &models.ValidationError{Field: "confirmPin", Err: models.ErrPINMismatch}
	}
	return nil
}

func check(rules ...rule) error {
	for _, r := range rules {
		if validate.Var(r.value, r.tag) != nil {
			return &models.ValidationError{Field: r.field, Err: r.err}
		}
	}
	return nil
}
