package cachekey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskflow/engine/internal/engine/cachekey"
)

func TestGenerate_Deterministic(t *testing.T) {
	cfg := map[string]any{"url": "https://example.com", "retries": 3}
	k1 := cachekey.Generate("http_get", "fetch", cfg, nil, false)
	k2 := cachekey.Generate("http_get", "fetch", cfg, nil, false)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestGenerate_KeyOrderIndependent(t *testing.T) {
	cfg1 := map[string]any{"a": 1, "b": 2, "c": 3}
	cfg2 := map[string]any{"c": 3, "a": 1, "b": 2}

	k1 := cachekey.Generate("t", "n", cfg1, nil, false)
	k2 := cachekey.Generate("t", "n", cfg2, nil, false)
	assert.Equal(t, k1, k2)
}

func TestGenerate_ExcludesPolicyKeys(t *testing.T) {
	base := map[string]any{"url": "https://example.com"}
	withPolicy := map[string]any{
		"url":               "https://example.com",
		"cache_enabled":     true,
		"cache_ttl":         60,
		"cache_key":         "explicit",
		"progress_tracking": true,
		"timeout":           5,
		"max_retry":         2,
	}

	k1 := cachekey.Generate("t", "n", base, nil, false)
	k2 := cachekey.Generate("t", "n", withPolicy, nil, false)
	assert.Equal(t, k1, k2)
}

func TestGenerate_DifferentConfigDifferentKey(t *testing.T) {
	k1 := cachekey.Generate("t", "n", map[string]any{"x": 1}, nil, false)
	k2 := cachekey.Generate("t", "n", map[string]any{"x": 2}, nil, false)
	assert.NotEqual(t, k1, k2)
}

func TestGenerate_IncludesDependenciesWhenRequested(t *testing.T) {
	cfg := map[string]any{"x": 1}
	deps := map[string]map[string]any{"fetch": {"status": "ok"}}

	withDeps := cachekey.Generate("t", "n", cfg, deps, true)
	withoutDeps := cachekey.Generate("t", "n", cfg, deps, false)
	assert.NotEqual(t, withDeps, withoutDeps)
}

func TestGenerate_EmptyDependenciesIgnoredEvenIfRequested(t *testing.T) {
	cfg := map[string]any{"x": 1}

	withEmptyDeps := cachekey.Generate("t", "n", cfg, map[string]map[string]any{}, true)
	noDeps := cachekey.Generate("t", "n", cfg, nil, true)
	assert.Equal(t, noDeps, withEmptyDeps)
}

func TestGenerate_SetLikeMapSortedRegardlessOfInsertionOrder(t *testing.T) {
	set1 := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	set2 := map[string]struct{}{"c": {}, "b": {}, "a": {}}

	k1 := cachekey.Generate("t", "n", map[string]any{"tags": set1}, nil, false)
	k2 := cachekey.Generate("t", "n", map[string]any{"tags": set2}, nil, false)
	assert.Equal(t, k1, k2)
}
