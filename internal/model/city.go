package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinNameLength is the shortest accepted city name, counted after trimming.
const MinNameLength = 5

// City is the record exchanged with the API. CityID is assigned by the server;
// zero means the city has not been created yet.
type City struct {
	CityID int64  `json:"cityId,omitempty"`
	Name   string `json:"name" validate:"trimmedmin=5"`
}

// Created reports whether the server has assigned an id.
func (c City) Created() bool { return c.CityID != 0 }

func (c City) String() string {
	if !c.Created() {
		return c.Name
	}
	return fmt.Sprintf("#%d %s", c.CityID, c.Name)
}

// Normalized returns a copy with the name trimmed.
func (c City) Normalized() City {
	c.Name = strings.TrimSpace(c.Name)
	return c
}

var cityValidate *validator.Validate

func init() {
	cityValidate = validator.New()
	_ = cityValidate.RegisterValidation("trimmedmin", validateTrimmedMin)
}

func validateTrimmedMin(fl validator.FieldLevel) bool {
	n := MinNameLength
	if p := fl.Param(); p != "" {
		if _, err := fmt.Sscanf(p, "%d", &n); err != nil {
			return false
		}
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
}

// ValidationError is a local, per-field failure. It never reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validate checks the draft before it is sent anywhere.
func (c City) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "name cannot be empty"}
	}
	err := cityValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("name must be at least %d characters", MinNameLength),
		}
	}
	return fmt.Errorf("validate city: %w", err)
}
