// Package condition evaluates the two forms of task condition: a
// structured {path, operator, value} triple, and a string expression of the
// form "<left> <op> <right>" with ${task.key} substitution.
package condition

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/engine/pathresolver"
)

var substitutionPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Evaluate reports whether cond is satisfied by outputs/order. A nil cond
// always evaluates true. Any failure to resolve a referenced path — the
// path is missing, the wrong shape, or substitution fails — evaluates to
// false; this is documented engine behavior, not an error.
func Evaluate(cond *domain.Condition, outputs map[string]map[string]any, order []string) bool {
	if cond == nil {
		return true
	}
	if cond.IsStringForm() {
		return evaluateString(cond.Raw, outputs, order)
	}
	return evaluateStructured(cond, outputs, order)
}

func evaluateStructured(cond *domain.Condition, outputs map[string]map[string]any, order []string) bool {
	if cond.Path == "" {
		return true
	}
	left, ok := pathresolver.TryResolve(cond.Path, outputs, order)
	if !ok {
		return false
	}
	return compare(left, cond.Operator, cond.Value)
}

func evaluateString(raw string, outputs map[string]map[string]any, order []string) bool {
	substituted, ok := substitute(raw, outputs, order)
	if !ok {
		return false
	}

	tokens := strings.Fields(substituted)
	if len(tokens) != 3 {
		return false
	}

	left, ok1 := parseJSONToken(tokens[0])
	opRaw, ok2 := parseJSONToken(tokens[1])
	right, ok3 := parseJSONToken(tokens[2])
	if !ok1 || !ok2 || !ok3 {
		return false
	}

	opStr, ok := opRaw.(string)
	if !ok {
		return false
	}

	return compare(left, domain.ConditionOperator(opStr), right)
}

func parseJSONToken(token string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(token), &v); err != nil {
		return nil, false
	}
	return v, true
}

// substitute replaces every ${path} token with its JSON-encoded resolved
// value. If any referenced path fails to resolve, substitution as a whole
// fails.
func substitute(raw string, outputs map[string]map[string]any, order []string) (string, bool) {
	failed := false
	result := substitutionPattern.ReplaceAllStringFunc(raw, func(match string) string {
		path := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		v, ok := pathresolver.TryResolve(path, outputs, order)
		if !ok {
			failed = true
			return match
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			failed = true
			return match
		}
		return string(encoded)
	})
	if failed {
		return "", false
	}
	return result, true
}

func compare(left any, op domain.ConditionOperator, right any) bool {
	switch op {
	case domain.OpEq:
		return equal(left, right)
	case domain.OpNe:
		return !equal(left, right)
	case domain.OpGt:
		return ordered(left, right, func(c int) bool { return c > 0 })
	case domain.OpGte:
		return ordered(left, right, func(c int) bool { return c >= 0 })
	case domain.OpLt:
		return ordered(left, right, func(c int) bool { return c < 0 })
	case domain.OpLte:
		return ordered(left, right, func(c int) bool { return c <= 0 })
	case domain.OpIn:
		return membership(left, right)
	case domain.OpNotIn:
		return !membership(left, right)
	default:
		return false
	}
}

func equal(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// ordered compares a and b numerically when both are numbers, and
// lexicographically on their string forms otherwise.
func ordered(a, b any, satisfies func(cmp int) bool) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return satisfies(-1)
			case af > bf:
				return satisfies(1)
			default:
				return satisfies(0)
			}
		}
	}

	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	return satisfies(strings.Compare(as, bs))
}

func membership(item, collection any) bool {
	rv := reflect.ValueOf(collection)
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equal(item, rv.Index(i).Interface()) {
				return true
			}
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
