// Package evaluator scores conversation results against persona goals.
// Scoring is path-aware: only variables declared by nodes the conversation
// actually visited count toward the match percentage.
package evaluator

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Match type labels recorded per variable.
const (
	MatchBothNone     = "both_none"
	MatchExact        = "exact_match"
	MatchPartial      = "partial_match"
	MatchNumeric      = "numeric_match"
	MatchNotExtracted = "not_extracted"
	MatchNotOnPath    = "not_on_path"
)

// NormalizeValue prepares a value for comparison. Strings are trimmed and
// lowercased; everything else passes through.
func NormalizeValue(value any) any {
	if s, ok := value.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return value
}

// asFloat attempts a numeric reading of a normalized value.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// CompareValues fuzzily compares an expected and an actual value. It returns
// whether they match and a label describing how: exact after normalization,
// substring containment in either direction, or numeric equality across
// representations. Two nils match; one nil never does.
func CompareValues(expected, actual any) (bool, string) {
	if expected == nil && actual == nil {
		return true, MatchBothNone
	}
	if expected == nil || actual == nil {
		return false, fmt.Sprintf("one_none: expected=%v, actual=%v", expected, actual)
	}

	expNorm := NormalizeValue(expected)
	actNorm := NormalizeValue(actual)

	// DeepEqual keeps composite values (lists, objects) comparable without
	// panicking on non-comparable types.
	if reflect.DeepEqual(expNorm, actNorm) {
		return true, MatchExact
	}

	expStr, expIsStr := expNorm.(string)
	actStr, actIsStr := actNorm.(string)
	if expIsStr && actIsStr {
		if strings.Contains(actStr, expStr) || strings.Contains(expStr, actStr) {
			return true, MatchPartial
		}
	}

	if expF, ok := asFloat(expNorm); ok {
		if actF, ok := asFloat(actNorm); ok && expF == actF {
			return true, MatchNumeric
		}
	}

	return false, fmt.Sprintf("mismatch: expected=%v, actual=%v", expected, actual)
}
