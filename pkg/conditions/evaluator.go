// Package conditions evaluates user-authored condition chains against
// event payloads. Evaluation is total: malformed conditions evaluate to
// false instead of raising, so a bad condition silently excludes.
package conditions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cadencehq/cadence/pkg/models"
)

// Evaluate folds the condition chain left to right. An empty chain is
// true (the automation runs for every event of its trigger type). Every
// condition is tested even once the chain result is settled, keeping
// evaluation side-effect free and safe to re-run in dry-run mode.
func Evaluate(conds []models.Condition, payload map[string]any) bool {
	if len(conds) == 0 {
		return true
	}

	result := test(conds[0], payload)

	for _, cond := range conds[1:] {
		current := test(cond, payload)

		if cond.Logic == models.LogicOr {
			result = result || current
		} else {
			result = result && current
		}
	}

	return result
}

func test(cond models.Condition, payload map[string]any) bool {
	fieldValue, found := lookupPath(payload, cond.Field)

	if !found {
		// A missing field fails every operator except not_equals,
		// which vacuously holds.
		return cond.Operator == models.OperatorNotEquals
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return valuesEqual(fieldValue, cond.Value)
	case models.OperatorNotEquals:
		return !valuesEqual(fieldValue, cond.Value)
	case models.OperatorContains:
		return strings.Contains(stringify(fieldValue), stringify(cond.Value))
	case models.OperatorGreaterThan:
		left, right, ok := numericPair(fieldValue, cond.Value)

		return ok && left > right
	case models.OperatorLessThan:
		left, right, ok := numericPair(fieldValue, cond.Value)

		return ok && left < right
	}

	return false
}

// lookupPath walks a dotted path through nested maps.
func lookupPath(payload map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = payload

	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// valuesEqual compares numerically when both sides coerce to numbers,
// otherwise by string equality.
func valuesEqual(a, b any) bool {
	left, right, ok := numericPair(a, b)
	if ok {
		return left == right
	}

	return stringify(a) == stringify(b)
}

func numericPair(a, b any) (float64, float64, bool) {
	left, ok := toNumber(a)
	if !ok {
		return 0, 0, false
	}

	right, ok := toNumber(b)
	if !ok {
		return 0, 0, false
	}

	return left, right, true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	}

	return 0, false
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
