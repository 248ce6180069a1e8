package crosside

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// decodeJSONFile reads path into a generic object. Descriptors are
// hand-written files, so errors carry the path.
func decodeJSONFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse %s: top-level value is not an object", path)
	}
	return obj, nil
}

func getString(obj map[string]any, key string) string {
	if obj == nil {
		return ""
	}
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func getBool(obj map[string]any, key string, def bool) bool {
	if obj == nil {
		return def
	}
	if b, ok := obj[key].(bool); ok {
		return b
	}
	return def
}

// getBoolPtr distinguishes "absent" from "false".
func getBoolPtr(obj map[string]any, key string) *bool {
	if obj == nil {
		return nil
	}
	if b, ok := obj[key].(bool); ok {
		return &b
	}
	return nil
}

func getObject(obj map[string]any, key string) map[string]any {
	if obj == nil {
		return nil
	}
	if m, ok := obj[key].(map[string]any); ok {
		return m
	}
	return nil
}

// toStringList accepts only arrays. Non-string and empty entries are
// skipped rather than treated as errors.
func toStringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// splitFlags breaks a whitespace-joined flag string into tokens.
func splitFlags(s string) []string {
	return strings.Fields(s)
}

// stringOrList reads a value that may be either a single whitespace
// separated string or an array of strings.
func stringOrList(v any) []string {
	if s, ok := v.(string); ok {
		return splitFlags(s)
	}
	return toStringList(v)
}

func getStringMap(obj map[string]any, key string) map[string]string {
	src := getObject(obj, key)
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
