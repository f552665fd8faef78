package catalog

import (
	"strconv"
	"strings"
)

// Model-produced JSON is loosely typed: numbers may arrive as float64,
// int, or quoted strings depending on the upstream provider. These helpers
// coerce defensively and fall back to the tool's default instead of
// erroring, since tools must tolerate any parameter shape.

func floatParam(input map[string]any, key string, def float64) float64 {
	v, ok := input[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return def
}

func intParam(input map[string]any, key string, def int) int {
	return int(floatParam(input, key, float64(def)))
}

func stringParam(input map[string]any, key, def string) string {
	v, ok := input[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func stringSliceParam(input map[string]any, key string) []string {
	v, ok := input[key]
	if !ok || v == nil {
		return nil
	}
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		// Models sometimes send a comma-joined string instead of an array.
		var out []string
		for _, s := range strings.Split(items, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
