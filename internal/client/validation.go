package client

import (
	"errors"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/simp-lee/memorial/internal/domain"
)

// Validate applies the checks a form runs before calling Register.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			is.EmailFormat.Error("invalid email format"),
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
			validation.Length(6, 72).Error("password must be 6-72 characters"),
		),
		validation.Field(&r.ConfirmPassword,
			validation.Required.Error("password confirmation is required"),
			validation.In(r.Password).Error("passwords do not match"),
		),
	)
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

// ValidateObituary checks o against the server's field rules so obvious
// mistakes fail before a round trip. The server stays authoritative.
func ValidateObituary(o *Obituary) error {
	if o == nil {
		return errors.New("obituary is nil")
	}
	return validation.ValidateStruct(o,
		validation.Field(&o.FullName,
			validation.Required.Error("full name is required"),
			validation.By(maxRunes(domain.MaxFullNameLength)),
		),
		validation.Field(&o.DateOfBirth, validation.By(requiredDate("date of birth"))),
		validation.Field(&o.DateOfDeath,
			validation.By(requiredDate("date of death")),
			validation.By(notBefore(o.DateOfBirth)),
		),
		validation.Field(&o.Biography,
			validation.Required.Error("biography is required"),
			validation.By(maxRunes(domain.MaxBiographyLength)),
		),
	)
}

// ValidateBiographyRequest checks the facts sent to generate-biography.
func ValidateBiographyRequest(req GenerateBiographyRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.FullName,
			validation.Required.Error("full name is required"),
			validation.By(maxRunes(domain.MaxFullNameLength)),
		),
		validation.Field(&req.DateOfBirth, validation.By(requiredDate("date of birth"))),
		validation.Field(&req.DateOfDeath,
			validation.By(requiredDate("date of death")),
			validation.By(notBefore(req.DateOfBirth)),
		),
		validation.Field(&req.Biography, validation.Required.Error("key facts are required")),
	)
}

func maxRunes(limit int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if utf8.RuneCountInString(s) > limit {
			return validation.NewError("validation_length_too_long", "must be no more than {{.max}} characters").
				SetParams(map[string]any{"max": limit})
		}
		return nil
	}
}

func requiredDate(name string) validation.RuleFunc {
	return func(value any) error {
		d, _ := value.(domain.Date)
		if d.IsZero() {
			return errors.New(name + " is required")
		}
		return nil
	}
}

func notBefore(birth domain.Date) validation.RuleFunc {
	return func(value any) error {
		d, _ := value.(domain.Date)
		if !d.IsZero() && !birth.IsZero() && d.Before(birth) {
			return errors.New("date of death cannot be before date of birth")
		}
		return nil
	}
}
