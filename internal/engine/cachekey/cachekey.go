// Package cachekey computes the deterministic cache-key fingerprint: the
// hex SHA-256 of a canonical JSON encoding of task identity, normalized
// config, and (optionally) normalized dependency outputs.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/taskflow/engine/internal/core/domain"
)

// Generate computes the fingerprint for a task instance. config is the
// task's raw configuration (policy keys in domain.ConfigExclusions are
// stripped before hashing, since they govern how a task runs, not what it
// produces). dependencyOutputs is included only when includeDependencies is
// true and non-empty, matching the source project's "generate_key" and
// "generate_partial_key" split.
func Generate(
	taskType, taskName string,
	config map[string]any,
	dependencyOutputs map[string]map[string]any,
	includeDependencies bool,
) string {
	material := map[string]any{
		"task_type": taskType,
		"task_name": taskName,
		"config":    normalizeConfig(config),
	}

	if includeDependencies && len(dependencyOutputs) > 0 {
		deps := make(map[string]any, len(dependencyOutputs))
		for name, out := range dependencyOutputs {
			deps[name] = normalizeValue(out)
		}
		material["dependencies"] = deps
	}

	// encoding/json sorts map[string]any keys at every level, giving the
	// same canonical, insertion-order-independent encoding the fingerprint
	// requires.
	encoded, err := json.Marshal(material)
	if err != nil {
		// json.Marshal on a tree built entirely of normalizeValue's output
		// (maps/slices/scalars/strings) cannot fail; this is unreachable.
		encoded = []byte(fmt.Sprintf("%v", material))
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

func normalizeConfig(config map[string]any) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		if _, excluded := domain.ConfigExclusions[k]; excluded {
			continue
		}
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeValue recursively reduces v to a tree of map[string]any/[]any/
// scalars, sorting map keys (via encoding/json's own map handling) and set-
// like collections, and stringifying anything else. This mirrors the
// source's normalize_value: maps sorted, sequences order-preserved, sets
// normalized-then-sorted, scalars passed through, everything else stringified.
func normalizeValue(v any) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v

	case reflect.Map:
		if isSetLike(rv.Type()) {
			return normalizeSet(rv)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			out[key] = normalizeValue(iter.Value().Interface())
		}
		return out

	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out

	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())

	default:
		return fmt.Sprintf("%v", v)
	}
}

// isSetLike reports whether t is Go's idiomatic set representation,
// map[K]struct{}.
func isSetLike(t reflect.Type) bool {
	return t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

func normalizeSet(rv reflect.Value) []any {
	elems := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		elems = append(elems, fmt.Sprintf("%v", normalizeValue(iter.Key().Interface())))
	}
	sort.Strings(elems)

	out := make([]any, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out
}
