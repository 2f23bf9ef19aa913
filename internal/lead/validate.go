package lead

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse phone numbers without a country prefix.
const DefaultPhoneRegion = "IN"

// Validator checks leads submitted through the add-lead and edit forms.
// Imports are best-effort, so there a failed check is only counted.
type Validator struct {
	validate *validator.Validate
	region   string
}

// NewValidator creates a Validator that parses phone numbers in the given
// region (ISO 3166 alpha-2). An empty region selects DefaultPhoneRegion.
func NewValidator(region string) *Validator {
	if region == "" {
		region = DefaultPhoneRegion
	}
	v := &Validator{validate: validator.New(), region: strings.ToUpper(region)}

	v.validate.RegisterValidation("lead_status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	v.validate.RegisterValidation("visit_type", func(fl validator.FieldLevel) bool {
		return VisitType(fl.Field().String()).Valid()
	})
	v.validate.RegisterValidation("address_type", func(fl validator.FieldLevel) bool {
		return AddressType(fl.Field().String()).Valid()
	})
	v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String(), v.region)
		return err == nil
	})

	return v
}

// Region returns the region used for phone numbers without a country prefix.
func (v *Validator) Region() string { return v.region }

// Validate checks l and returns a FieldErrors describing every problem,
// or nil if the lead is acceptable.
func (v *Validator) Validate(l Lead) error {
	err := v.validate.Struct(l)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate lead: %w", err)
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Tag:     fe.Tag(),
			Message: describe(fe),
		})
	}
	return out
}

// FieldError is a single failed rule on a lead attribute.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FieldErrors is returned by Validator.Validate.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Field + ": " + e.Message
	}
	return "invalid lead: " + strings.Join(parts, "; ")
}

// fieldPath turns "Lead.AdditionalDetails.CoApplicant.Phone" into
// "AdditionalDetails.CoApplicant.Phone".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "required field is empty"
	case "lead_status", "visit_type", "address_type":
		return "invalid enum value " + fmt.Sprintf("%q", fe.Value())
	case "phone":
		return "invalid phone number"
	case "email":
		return "invalid email address"
	case "numeric":
		return "must contain only digits"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "gte", "lte":
		return "out of range (" + fe.Tag() + " " + fe.Param() + ")"
	case "max":
		return "too long (max " + fe.Param() + ")"
	default:
		return "failed " + fe.Tag()
	}
}

// NormalizePhone parses a phone number in the given region and returns it in
// E.164 form.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	parsed, err := phonenumbers.Parse(phone, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
