package group

import (
	"strings"

	"github.com/taskflow/engine/internal/core/domain"
	"go.trai.ch/zerr"
)

// substituteTemplate builds a child task's config from a group's
// ConfigTemplate and one materialized item. A literal "${item}" is
// replaced by the item itself (not stringified); "$<path>" descends into
// the item (a leading "." after "$" is stripped); any other string, or any
// non-string value, passes through unchanged.
func substituteTemplate(groupName string, tmpl map[string]any, item any) (map[string]any, error) {
	config := make(map[string]any, len(tmpl))
	for key, val := range tmpl {
		s, isString := val.(string)
		if !isString {
			config[key] = val
			continue
		}

		switch {
		case s == "${item}":
			config[key] = item
		case strings.HasPrefix(s, "$"):
			path := strings.TrimPrefix(s, "$")
			path = strings.TrimPrefix(path, ".")
			v, err := valueFromPath(item, path)
			if err != nil {
				return nil, zerr.With(err, "group", groupName, "key", key)
			}
			config[key] = v
		default:
			config[key] = s
		}
	}
	return config, nil
}

func valueFromPath(item any, path string) (any, error) {
	current := item
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, zerr.With(domain.ErrInvalidPath, "path", path, "reason", "value is not a map at "+part)
		}
		v, present := m[part]
		if !present {
			return nil, zerr.With(domain.ErrInvalidPath, "path", path, "reason", "missing key "+part)
		}
		current = v
	}
	return current, nil
}
