package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kirychukyurii/hostdesk/internal/model"
)

// newValidator returns a validator reporting JSON field names and knowing
// the calendar_date tag
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := model.ParseDate(fl.Field().String())
		return err == nil
	})

	return v
}
