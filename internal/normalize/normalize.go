// Package normalize converts raw LLM-extracted values into typed values.
// Every function is total: unparseable input yields a nil/zero result instead
// of an error, so a single bad value degrades one field rather than aborting
// the document.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/cre-extract/internal/model"
)

var lowerCaser = cases.Lower(language.English)

// dateLayouts are tried in order. US formats first since most CRE documents
// are US-originated.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006/01/02",
	"01/02/06",
}

// Date normalizes a raw date value to ISO-8601 (YYYY-MM-DD). Returns nil if
// the value cannot be parsed as a date.
func Date(raw any) *string {
	s := strings.TrimSpace(toString(raw))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			iso := t.Format("2006-01-02")
			return &iso
		}
	}
	return nil
}

var currencyStrip = regexp.MustCompile(`[$,\s]`)

// Currency normalizes a monetary value to a float. Handles "$1,234.56",
// parenthesized negatives "( $1,234.56 )", and bare numbers. Returns nil on
// unparseable input.
func Currency(raw any) *float64 {
	switch v := raw.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}

	s := strings.TrimSpace(toString(raw))
	if s == "" {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = currencyStrip.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if negative || strings.HasPrefix(strings.TrimSpace(toString(raw)), "-") {
		f = -f
	}
	return &f
}

// Integer normalizes a whole-number value. Floats are accepted when they are
// integral (JSON numbers decode as float64). Returns nil otherwise.
func Integer(raw any) *int {
	switch v := raw.(type) {
	case int:
		return &v
	case float64:
		if v == math.Trunc(v) {
			n := int(v)
			return &n
		}
		return nil
	}

	s := strings.TrimSpace(toString(raw))
	s = currencyStrip.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// Enum matches a raw value against allowed values: case-insensitive exact
// match first, then substring fallback. Unmatched values are logged and
// dropped, never an error.
func Enum(raw any, allowed []string) *string {
	s := strings.TrimSpace(toString(raw))
	if s == "" || len(allowed) == 0 {
		return nil
	}
	folded := lowerCaser.String(s)
	// Treat spaces and underscores as equivalent separators for exact match,
	// so "Modified Gross" hits "modified_gross".
	canonical := strings.ReplaceAll(folded, " ", "_")

	for _, a := range allowed {
		la := lowerCaser.String(a)
		if folded == la || canonical == la {
			return &a
		}
	}
	for _, a := range allowed {
		la := lowerCaser.String(a)
		if strings.Contains(folded, la) || strings.Contains(la, folded) {
			return &a
		}
	}

	zap.L().Debug("normalize: enum value not in allowed set",
		zap.String("value", s),
		zap.Strings("allowed", allowed),
	)
	return nil
}

var (
	trueTokens  = map[string]bool{"true": true, "yes": true, "y": true, "1": true, "permitted": true, "allowed": true}
	falseTokens = map[string]bool{"false": true, "no": true, "n": true, "0": true, "prohibited": true, "not allowed": true, "not permitted": true}
)

// Boolean normalizes a truthy/falsy token. Returns nil for anything outside
// the fixed token sets.
func Boolean(raw any) *bool {
	if b, ok := raw.(bool); ok {
		return &b
	}
	s := lowerCaser.String(strings.TrimSpace(toString(raw)))
	if trueTokens[s] {
		t := true
		return &t
	}
	if falseTokens[s] {
		f := false
		return &f
	}
	return nil
}

// Percent normalizes a percentage to a fraction in [0, 1]-ish range: accepts
// "7%", 7, or 0.07, all yielding 0.07. Values above 1 are divided by 100.
// Anything outside [0, 5] after scaling is rejected (500% is the sanity
// ceiling for escalations and growth figures).
func Percent(raw any) *float64 {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	default:
		s := strings.TrimSpace(toString(raw))
		s = strings.TrimSuffix(s, "%")
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	}

	if f > 1 {
		f /= 100
	}
	if f < 0 || f > 5 {
		return nil
	}
	return &f
}

var bulletPrefix = regexp.MustCompile(`^[\s]*[-*•·◦o]\s+|^[\s]*\d+[.)]\s+`)

// List normalizes a list value: string slices pass through, strings are split
// on newlines and semicolons with bullet markers stripped. Empty results are nil.
func List(raw any) []string {
	var items []string

	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, e := range v {
			items = append(items, toString(e))
		}
	default:
		s := toString(raw)
		items = strings.FieldsFunc(s, func(r rune) bool {
			return r == '\n' || r == ';'
		})
	}

	var out []string
	for _, item := range items {
		item = bulletPrefix.ReplaceAllString(item, "")
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Value dispatches on the declared field type. The returned value is nil when
// normalization fails; callers treat that as "field not extracted".
func Value(raw any, def model.FieldDefinition) any {
	if raw == nil {
		return nil
	}
	switch def.Type {
	case model.FieldTypeDate:
		if v := Date(raw); v != nil {
			return *v
		}
	case model.FieldTypeCurrency:
		if v := Currency(raw); v != nil {
			return *v
		}
	case model.FieldTypeInteger:
		if v := Integer(raw); v != nil {
			return *v
		}
	case model.FieldTypeEnum:
		if v := Enum(raw, def.AllowedValues); v != nil {
			return *v
		}
	case model.FieldTypeBoolean:
		if v := Boolean(raw); v != nil {
			return *v
		}
	case model.FieldTypePercent:
		if v := Percent(raw); v != nil {
			return *v
		}
	case model.FieldTypeList:
		if v := List(raw); v != nil {
			return v
		}
	default:
		s := strings.TrimSpace(toString(raw))
		if s != "" {
			return s
		}
	}
	return nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
