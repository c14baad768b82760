package validator

import (
	"context"
	"errors"

	"github.com/go-playground/validator"

	"campreg/internal/model"
)

var global *validator.Validate

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("campergender", validateCamperGender)
	_ = v.RegisterValidation("roomgender", validateRoomGender)
	_ = v.RegisterValidation("campsession", validateSessionPreference)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

// validateCamperGender allows the genders a camper can have. Co-ed is
// a room property, never a camper property.
func validateCamperGender(fl validator.FieldLevel) bool {
	g := fl.Field().String()
	return g == model.GenderMale || g == model.GenderFemale
}

func validateRoomGender(fl validator.FieldLevel) bool {
	g := fl.Field().String()
	return g == model.GenderMale || g == model.GenderFemale || g == model.GenderCoed
}

func validateSessionPreference(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, label := range model.SessionPreferences {
		if s == label {
			return true
		}
	}
	return false
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "email":
		msg = ErrInvalidFormat
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "campergender":
		msg = "Gender must be Male or Female"
	case "roomgender":
		msg = "Gender must be Male, Female or Co-ed"
	case "campsession":
		msg = "Unknown session preference"
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Namespace())
}
