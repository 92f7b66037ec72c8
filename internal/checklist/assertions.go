package checklist

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// ExpectationError reports a failed capture or assertion.
type ExpectationError struct {
	Path string
	Msg  string
}

func (e *ExpectationError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("JSONPath %q: %s", e.Path, e.Msg)
}

func expectErr(path, format string, args ...any) *ExpectationError {
	return &ExpectationError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// EvaluateAssertions evaluates JSONPath assertions against a decoded
// document. Paths are checked in sorted order so the first reported
// failure is stable.
func EvaluateAssertions(doc any, assertions map[string]any) error {
	paths := make([]string, 0, len(assertions))
	for p := range assertions {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := evaluateOne(doc, path, assertions[path]); err != nil {
			return err
		}
	}
	return nil
}

// evaluateOne evaluates a single JSONPath assertion.
func evaluateOne(doc any, path string, expected any) error {
	actual, found, err := jsonPathGet(doc, path)
	if err != nil {
		return &ExpectationError{Msg: err.Error()}
	}

	if ops, ok := expected.(map[string]any); ok {
		return evaluateOperators(path, actual, found, ops)
	}

	if !found {
		return expectErr(path, "no match found")
	}
	if !valuesEqual(actual, expected) {
		return expectErr(path, "expected %v (%T), got %v (%T)", expected, expected, actual, actual)
	}
	return nil
}

// evaluateOperators processes operator maps like {"eq": v}, {"gte": n} or {"len": n}.
func evaluateOperators(path string, actual any, found bool, ops map[string]any) error {
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	for _, op := range names {
		expected := ops[op]

		if op == "exists" {
			want, ok := expected.(bool)
			if !ok {
				return expectErr(path, "'exists' operator requires a boolean value")
			}
			if want && !found {
				return expectErr(path, "expected to exist but no match found")
			}
			if !want && found {
				return expectErr(path, "expected not to exist but found %v", actual)
			}
			continue
		}

		if !found {
			return expectErr(path, "no match found for '%s' check", op)
		}

		switch op {
		case "eq":
			if !valuesEqual(actual, expected) {
				return expectErr(path, "expected eq %v, got %v", expected, actual)
			}

		case "gte", "lte":
			actualNum, err := toFloat64(actual)
			if err != nil {
				return expectErr(path, "'%s' requires numeric actual value: %v", op, err)
			}
			expectedNum, err := toFloat64(expected)
			if err != nil {
				return expectErr(path, "'%s' requires numeric expected value: %v", op, err)
			}
			if op == "gte" && actualNum < expectedNum {
				return expectErr(path, "expected >= %v, got %v", expectedNum, actualNum)
			}
			if op == "lte" && actualNum > expectedNum {
				return expectErr(path, "expected <= %v, got %v", expectedNum, actualNum)
			}

		case "len":
			n, err := lengthOf(actual)
			if err != nil {
				return expectErr(path, "'len' %v", err)
			}
			want, err := toFloat64(expected)
			if err != nil {
				return expectErr(path, "'len' requires numeric expected value: %v", err)
			}
			if float64(n) != want {
				return expectErr(path, "expected length %v, got %d", want, n)
			}

		case "contains":
			actualStr := fmt.Sprintf("%v", actual)
			expectedStr := fmt.Sprintf("%v", expected)
			if !strings.Contains(actualStr, expectedStr) {
				return expectErr(path, "expected to contain %q, got %q", expectedStr, actualStr)
			}

		case "regex":
			pattern, ok := expected.(string)
			if !ok {
				return expectErr(path, "'regex' operator requires a string pattern")
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return expectErr(path, "invalid regex pattern %q: %v", pattern, err)
			}
			actualStr := fmt.Sprintf("%v", actual)
			if !re.MatchString(actualStr) {
				return expectErr(path, "value %q does not match regex %q", actualStr, pattern)
			}

		default:
			return expectErr(path, "unknown operator %q", op)
		}
	}
	return nil
}

// lengthOf returns the length of a string, array or object.
func lengthOf(v any) (int, error) {
	switch x := v.(type) {
	case string:
		return len(x), nil
	case []any:
		return len(x), nil
	case map[string]any:
		return len(x), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len(), nil
	}
	return 0, fmt.Errorf("requires a string, array or object, got %T", v)
}

// valuesEqual compares two values for equality, handling numeric type coercion.
// Values must be the same kind (both numeric or both string) to be equal.
func valuesEqual(actual, expected any) bool {
	actualNum, aErr := toFloat64(actual)
	expectedNum, eErr := toFloat64(expected)

	if aErr == nil && eErr == nil {
		return actualNum == expectedNum
	}
	if (aErr == nil) != (eErr == nil) {
		return false
	}
	return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
}

// toFloat64 converts a value to float64.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
