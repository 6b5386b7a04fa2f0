// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Package validation provides struct validation using go-playground/validator v10.
//
// It exposes a thread-safe singleton validator with the custom tags used by
// guest-facing requests, and translates failures into the itemized
// models.ValidationError returned by every request handler.
//
// Custom tags:
//   - guestname: letters, whitespace, hyphens, apostrophes and periods
//   - guestphone: optional leading +, then 7 to 20 digits, spaces, dashes or parentheses
//   - simpleemail: something@something.something without whitespace
//   - isodate: a calendar date in YYYY-MM-DD form
//
// Field names in messages come from the json tag, so problems name the
// request keys clients actually send.
//
//	type Request struct {
//	    GuestName string `json:"guestName" validate:"required,min=2,max=100,guestname"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return verr
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/villasync/internal/models"
)

// DateLayout is the wire format for stay dates.
const DateLayout = "2006-01-02"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	guestNamePattern  = regexp.MustCompile(`^[a-zA-Z\s\-'\.]+$`)
	guestPhonePattern = regexp.MustCompile(`^[\+]?[\d\s\-\(\)]{7,20}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// IsEmail reports whether s looks like an email address. It is the same
// check the simpleemail tag applies.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		mustRegister(validate, "guestname", regexValidator(guestNamePattern))
		mustRegister(validate, "guestphone", regexValidator(guestPhonePattern))
		mustRegister(validate, "simpleemail", regexValidator(emailPattern))
		mustRegister(validate, "isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(DateLayout, fl.Field().String())
			return err == nil
		})
	})

	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

func regexValidator(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ValidateStruct validates s and returns every problem found, or nil.
func ValidateStruct(s interface{}) *models.ValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		verr := &models.ValidationError{}
		verr.Add("request", err.Error())
		return verr
	}

	verr := &models.ValidationError{}
	for _, fe := range validationErrs {
		verr.Add(fe.Field(), translateError(fe))
	}
	return verr
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required":    "%s is required",
	"email":       "%s must be a valid email address",
	"simpleemail": "%s must be a valid email address",
	"guestname":   "%s may only contain letters, spaces, hyphens, apostrophes and periods",
	"guestphone":  "%s must be a valid phone number",
	"isodate":     "%s must be a valid date (YYYY-MM-DD)",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}
	return translateMinMax(fe, field, tag, param)
}

// translateMinMax handles min/max validation with type-specific messages.
func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	isString := fe.Kind() == reflect.String

	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// ParseDate parses a calendar date. It accepts YYYY-MM-DD or a full RFC 3339
// timestamp, which is truncated to its date. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Nights returns the number of nights between two dates from ParseDate.
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn) / (24 * time.Hour))
}

// Today returns the current UTC date at midnight.
func Today(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
