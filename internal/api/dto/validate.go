package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/gearguard/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks payload struct tags and reports failing fields by their
// JSON name.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return util.NewValidationError("invalid payload", nil)
	}
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return util.NewValidationError("invalid payload", map[string]any{"fields": fields})
}

// Hours accepts a JSON number or a numeric string.
type Hours struct {
	Value float64
	Set   bool
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable input is recorded
// as invalid instead of failing the whole body.
func (h *Hours) UnmarshalJSON(data []byte) error {
	h.Set = true
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		h.Set = false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.Valid = false
		return nil
	}
	h.Value, h.Valid = v, true
	return nil
}

// ParseDate accepts RFC3339 timestamps or YYYY-MM-DD dates (UTC midnight).
func ParseDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*value)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	return nil, util.NewValidationError(fmt.Sprintf("%s must be a date (YYYY-MM-DD or RFC3339)", field), map[string]any{field: s})
}
