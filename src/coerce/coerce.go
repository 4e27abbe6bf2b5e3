// Package coerce turns loosely typed input (form values, CSV cells, JSON
// decoded into interface{}) into typed values. Nothing in here returns an
// error: unusable input becomes nil so callers can keep the field empty.
package coerce

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// ToNumberOrNull returns nil for nil, empty or whitespace-only input, and for
// anything that does not start with a finite number. With isInteger set the
// fractional part is dropped ("2.9" -> 2).
func ToNumberOrNull(value interface{}, isInteger bool) *float64 {
	var f float64

	switch v := value.(type) {
	case nil:
		return nil
	case *float64:
		if v == nil {
			return nil
		}
		f = *v
	case *int64:
		if v == nil {
			return nil
		}
		f = float64(*v)
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		return ToNumberOrNull(v.String(), isInteger)
	case string:
		parsed, ok := parseNumber(v, isInteger)
		if !ok {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if isInteger {
		f = math.Trunc(f)
	}
	return &f
}

func parseNumber(s string, isInteger bool) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	pattern := floatPrefix
	if isInteger {
		pattern = intPrefix
	}
	match := pattern.FindString(s)
	if match == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Float is ToNumberOrNull for decimal fields.
func Float(value interface{}) *float64 {
	return ToNumberOrNull(value, false)
}

// Int is ToNumberOrNull for integer fields.
func Int(value interface{}) *int64 {
	f := ToNumberOrNull(value, true)
	if f == nil {
		return nil
	}
	i := int64(*f)
	return &i
}

// FloatOr returns the coerced value or def when the input is unusable.
func FloatOr(value interface{}, def float64) float64 {
	if f := Float(value); f != nil {
		return *f
	}
	return def
}

// Round scales value by 10^places, rounds to the nearest integer with ties
// going up and scales back. The scaling multiply happens in float64, so
// 1.005 rounds to 1 and -0.125 to -0.12. The scale back is exact in decimal.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	scaled := value * math.Pow(10, float64(places))
	if math.IsInf(scaled, 0) {
		return value
	}
	return decimal.NewFromFloat(scaled).
		Add(decimal.NewFromFloat(0.5)).
		Floor().
		Shift(-places).
		InexactFloat64()
}

// Round2 rounds money amounts.
func Round2(value float64) float64 { return Round(value, 2) }

// Round4 rounds prices.
func Round4(value float64) float64 { return Round(value, 4) }

// RoundPtr rounds a nullable value, keeping nil as nil.
func RoundPtr(value *float64, places int32) *float64 {
	if value == nil {
		return nil
	}
	r := Round(*value, places)
	return &r
}

// String returns a trimmed string form of value and whether it is non-empty.
func String(value interface{}) (string, bool) {
	var s string

	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		s = v
	case *string:
		if v == nil {
			return "", false
		}
		s = *v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case json.Number:
		s = v.String()
	case bool:
		s = strconv.FormatBool(v)
	default:
		return "", false
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}

// StringPtr is String returning nil for empty input.
func StringPtr(value interface{}) *string {
	s, ok := String(value)
	if !ok {
		return nil
	}
	return &s
}

// Bool accepts booleans and the usual textual spellings.
func Bool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case *bool:
		return v != nil && *v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// Falsy reports whether value would be skipped by a truthiness check:
// nil, empty strings, false and zero numbers.
func Falsy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case *string:
		return v == nil || *v == ""
	case bool:
		return !v
	case float64:
		return v == 0 || math.IsNaN(v)
	case int:
		return v == 0
	case int64:
		return v == 0
	default:
		return false
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05 -07:00",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
}

// Timestamp parses value as a point in time. Strings without an offset are
// read as UTC. Unparsable input returns nil.
func Timestamp(value interface{}) *time.Time {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		t := *v
		return &t
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
		return nil
	default:
		return nil
	}
}
