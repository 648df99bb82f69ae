// Package pathresolver implements the small dotted-path language used to
// read upstream task outputs: "prev"/"prevN" shorthand for the Nth-to-last
// completed dependency, or "<taskName>.<key>.<sub>" addressing by name.
package pathresolver

import (
	"strconv"
	"strings"

	"github.com/taskflow/engine/internal/core/domain"
	"go.trai.ch/zerr"
)

// Resolve evaluates path against outputs (task name -> its output map) and
// order (the resolution order used for "prev"/"prevN", oldest first).
func Resolve(path string, outputs map[string]map[string]any, order []string) (any, error) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, zerr.With(domain.ErrInvalidPath, "path", path)
	}

	root := segments[0]
	rest := segments[1:]

	if n, isPrev := parsePrev(root); isPrev {
		name, err := resolvePrevName(n, order)
		if err != nil {
			return nil, zerr.With(err, "path", path)
		}

		out, ok := outputs[name]
		if !ok {
			return nil, zerr.With(domain.ErrInvalidPath, "path", path, "reason", "prev target has no output")
		}

		if len(rest) == 0 {
			// "prev" with no remainder returns the whole output map.
			return copyMap(out), nil
		}
		return descend(out, rest, path)
	}

	out, ok := outputs[root]
	if !ok {
		return nil, zerr.With(domain.ErrInvalidPath, "path", path, "reason", "unknown task")
	}
	if len(rest) == 0 {
		return copyMap(out), nil
	}
	return descend(out, rest, path)
}

// ResolveAll resolves a batch of paths, stopping at the first failure.
func ResolveAll(paths []string, outputs map[string]map[string]any, order []string) (map[string]any, error) {
	result := make(map[string]any, len(paths))
	for _, p := range paths {
		v, err := Resolve(p, outputs, order)
		if err != nil {
			return nil, err
		}
		result[p] = v
	}
	return result, nil
}

// parsePrev reports whether segment is "prev" or "prevN" and, if so, the N
// (defaulting to 1 for bare "prev").
func parsePrev(segment string) (n int, ok bool) {
	if segment == "prev" {
		return 1, true
	}
	if !strings.HasPrefix(segment, "prev") {
		return 0, false
	}
	digits := segment[len("prev"):]
	if digits == "" {
		return 0, false
	}
	val, err := strconv.Atoi(digits)
	if err != nil || val <= 0 {
		return 0, false
	}
	return val, true
}

func resolvePrevName(n int, order []string) (string, error) {
	if n > len(order) {
		return "", zerr.With(domain.ErrInvalidPath, "reason", "prevN exceeds dependency order length", "n", n, "have", len(order))
	}
	return order[len(order)-n], nil
}

func descend(current any, segments []string, fullPath string) (any, error) {
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, zerr.With(domain.ErrInvalidPath, "path", fullPath, "reason", "value is not a map at segment "+seg)
		}
		v, present := m[seg]
		if !present {
			return nil, zerr.With(domain.ErrInvalidPath, "path", fullPath, "reason", "missing key "+seg)
		}
		current = v
	}
	return current, nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TryResolve is like Resolve but reports (value, found) instead of an error,
// for callers that treat a missing path as a non-error (condition
// evaluation's documented "missing path -> false" behavior).
func TryResolve(path string, outputs map[string]map[string]any, order []string) (any, bool) {
	v, err := Resolve(path, outputs, order)
	if err != nil {
		return nil, false
	}
	return v, true
}
