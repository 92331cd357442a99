package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*\n?(.*?)\\s*```$")

// UnmarshalLenient unmarshals model output into out, applying recovery
// strategies in order of increasing aggressiveness:
//
//  1. strip markdown code fences and unmarshal directly
//  2. cut to the outermost brace/bracket window and retry
//  3. normalize string arrays to comma-joined strings and retry
//
// Returns ErrParse (wrapped) when every strategy fails. The staged approach
// keeps legitimate []string fields intact: normalization only runs once plain
// unmarshaling has already failed.
func UnmarshalLenient(raw string, out any) error {
	cleaned := StripCodeFence(raw)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	if window, ok := braceWindow(cleaned); ok {
		if err := json.Unmarshal([]byte(window), out); err == nil {
			return nil
		}
		normalized, changed, err := normalizeStringArrays([]byte(window))
		if err == nil && changed {
			if err := json.Unmarshal(normalized, out); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %q", ErrParse, truncateForError(raw))
}

// StripCodeFence removes a surrounding ```json ... ``` fence if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if matches := codeFenceRe.FindStringSubmatch(s); len(matches) == 2 {
		return strings.TrimSpace(matches[1])
	}
	return s
}

// braceWindow locates the outermost JSON value by cutting from the first
// opening brace/bracket to the last matching closer. Handles models that
// wrap JSON in prose.
func braceWindow(s string) (string, bool) {
	first := strings.IndexAny(s, "{[")
	if first < 0 {
		return "", false
	}

	var closer byte
	if s[first] == '{' {
		closer = '}'
	} else {
		closer = ']'
	}

	last := strings.LastIndexByte(s, closer)
	if last <= first {
		return "", false
	}
	return s[first : last+1], true
}

// normalizeStringArrays walks a JSON value and converts arrays of strings
// inside object fields to comma-joined strings, for models that return
// {"field": ["a","b"]} where a plain string was asked for. Top-level arrays
// are left alone: they are valid extraction results.
func normalizeStringArrays(jsonBytes []byte) ([]byte, bool, error) {
	var data interface{}
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return nil, false, err
	}

	changed := false
	normalized := normalizeValue(data, &changed, true)

	result, err := json.Marshal(normalized)
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

func normalizeValue(value interface{}, changed *bool, topLevel bool) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			result[key] = normalizeValue(val, changed, false)
		}
		return result

	case []interface{}:
		if !topLevel && isStringArray(v) && len(v) > 0 {
			*changed = true
			return joinStrings(v)
		}
		result := make([]interface{}, len(v))
		for i, elem := range v {
			result[i] = normalizeValue(elem, changed, false)
		}
		return result

	default:
		return value
	}
}

func isStringArray(arr []interface{}) bool {
	for _, elem := range arr {
		if _, ok := elem.(string); !ok {
			return false
		}
	}
	return true
}

func joinStrings(arr []interface{}) string {
	strs := make([]string, len(arr))
	for i, elem := range arr {
		strs[i] = elem.(string)
	}
	return strings.Join(strs, ", ")
}

func truncateForError(s string) string {
	const limit = 200
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
