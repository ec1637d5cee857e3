// Package validation builds the struct validator shared by the domain
// services and the transports.
package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var eventKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// New returns a validator with the custom tags used across the module
// registered. Errors report JSON field names.
func New() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("eventkey", isEventKey)
	_ = v.RegisterValidation("offset", isFixedOffset)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// IsEventKey reports whether s can be used as a custom event key.
func IsEventKey(s string) bool {
	return eventKeyPattern.MatchString(s)
}

func isEventKey(fl validator.FieldLevel) bool {
	return IsEventKey(fl.Field().String())
}

// IsFixedOffset reports whether s is a "+HH:MM" / "-HH:MM" offset.
func IsFixedOffset(s string) bool {
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return false
	}
	for _, i := range []int{1, 2, 4, 5} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	hh := int(s[1]-'0')*10 + int(s[2]-'0')
	mm := int(s[4]-'0')*10 + int(s[5]-'0')
	return hh <= 18 && mm < 60
}

func isFixedOffset(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || IsFixedOffset(s)
}
