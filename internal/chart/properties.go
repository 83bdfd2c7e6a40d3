// Package chart turns Port entities into the property lists and per-day
// aggregates the dashboard plots.
package chart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/port-experimental/port-pr-chart/internal/api"
)

// ExtractProperties returns every leaf property path found in entities as
// dotted keys, deduplicated and sorted. Nested objects are descended into;
// arrays and scalars are leaves.
func ExtractProperties(entities []api.Entity) []string {
	seen := make(map[string]struct{})
	for _, entity := range entities {
		collectPaths(entity, "", seen)
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func collectPaths(obj map[string]interface{}, prefix string, seen map[string]struct{}) {
	for key, value := range obj {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			collectPaths(nested, fullKey, seen)
			continue
		}
		seen[fullKey] = struct{}{}
	}
}

// PropertyValue resolves a dotted path against entity. Numeric segments
// index into arrays, so "properties.labels.0" is the first label. The second
// result is false when any segment is missing or a scalar is traversed.
func PropertyValue(entity api.Entity, path string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(entity)
	for _, key := range strings.Split(path, ".") {
		var ok bool
		switch node := current.(type) {
		case map[string]interface{}:
			current, ok = node[key]
		case []interface{}:
			current, ok = element(node, key)
		}
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// element looks up a canonical decimal index ("0", "12", not "01").
func element(arr []interface{}, key string) (interface{}, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(arr) || strconv.Itoa(i) != key {
		return nil, false
	}
	return arr[i], true
}

// PropertyValues returns the distinct non-null values found at path, as
// strings, sorted.
func PropertyValues(entities []api.Entity, path string) []string {
	seen := make(map[string]struct{})
	for _, entity := range entities {
		value, ok := PropertyValue(entity, path)
		if !ok || value == nil {
			continue
		}
		seen[Stringify(value)] = struct{}{}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Stringify renders a decoded JSON value the way it is shown in filters.
// Numbers use the shortest exact decimal form; objects and arrays are JSON.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
