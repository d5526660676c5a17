package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// decodeResults pulls the translation array out of a model reply and checks
// it covers the whole batch.
func decodeResults(responseText string, expectedCount int) ([]TranslationResult, error) {
	responseText = cleanJSONResponse(responseText)

	results, err := extractTranslationResults(responseText)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse JSON response: %w (response: %s)",
			err,
			truncateString(responseText, 200),
		)
	}

	if len(results) != expectedCount {
		return nil, fmt.Errorf(
			"expected %d results, got %d",
			expectedCount,
			len(results),
		)
	}

	return results, nil
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}

// fixes invalid JSON escape sequences like \N (ASS newline).
// It replaces \N with \\N so JSON can parse it, preserving the literal \N in the output.
func fixInvalidEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if i < len(s)-1 && s[i] == '\\' {
			next := s[i+1]
			// Valid JSON escape sequences: ", \, /, b, f, n, r, t, u
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				result.WriteByte(s[i])
				result.WriteByte(s[i+1])
			default:
				result.WriteString("\\\\")
				result.WriteByte(next)
			}
			i += 2
		} else {
			result.WriteByte(s[i])
			i++
		}
	}

	return result.String()
}

func extractTranslationResults(text string) ([]TranslationResult, error) {
	text = fixInvalidEscapes(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if results, ok := tryExtractResults(raw); ok && len(results) > 0 {
			return results, nil
		}
	}
	return nil, fmt.Errorf("no valid translation JSON found in response")
}

var wrapperKeys = []string{"results", "translations", "data", "items"}

func tryExtractResults(raw json.RawMessage) ([]TranslationResult, bool) {
	var results []TranslationResult
	if err := json.Unmarshal(raw, &results); err == nil && validateResults(results) {
		return results, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range wrapperKeys {
		if fieldRaw, exists := wrapper[key]; exists {
			var fieldResults []TranslationResult
			if err := json.Unmarshal(fieldRaw, &fieldResults); err == nil && validateResults(fieldResults) {
				return fieldResults, true
			}
		}
	}

	for _, fieldRaw := range wrapper {
		var fieldResults []TranslationResult
		if err := json.Unmarshal(fieldRaw, &fieldResults); err == nil && validateResults(fieldResults) {
			return fieldResults, true
		}
	}

	return nil, false
}

func validateResults(results []TranslationResult) bool {
	for _, r := range results {
		if r.Text != "" {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
