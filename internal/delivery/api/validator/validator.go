// Package validator adapts go-playground/validator to echo.
package validator

import (
	"strings"
	"time"

	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/errors"

	"github.com/go-playground/validator/v10"
)

// dateLayout is the DD/MM/YYYY form accepted for dates of birth.
const dateLayout = "2/1/2006"

// CustomValidator implements echo.Validator.
type CustomValidator struct {
	validate *validator.Validate
}

// New returns a validator with the project's custom tags registered.
func New() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ddmmyyyy", validateDate)

	return &CustomValidator{validate: v}
}

// Validate checks i and reports failures as ErrValidationFailed with one detail per field.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.WithStack(err)
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		detail := fe.Field() + " failed on " + fe.Tag()
		if fe.Param() != "" {
			detail += "=" + fe.Param()
		}
		details = append(details, detail)
	}

	return domainerrors.ErrValidationFailed.WithDetails(strings.Join(details, "; "))
}

// validateDate accepts empty strings and DD/MM/YYYY dates.
func validateDate(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	_, err := time.Parse(dateLayout, s)

	return err == nil
}
