package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seanblong/contextselect/pkg/models"
)

// rawAnalysis mirrors the JSON the model is asked for. Pointer fields tell a
// missing value apart from an empty one.
type rawAnalysis struct {
	Intent     *string  `json:"intent"`
	Keywords   []string `json:"keywords"`
	Category   *string  `json:"category"`
	Complexity *string  `json:"complexity"`
	Entities   []string `json:"entities"`
	Context    *string  `json:"context"`
}

// balancedObject returns the object opening at text[start], if it closes.
func balancedObject(text string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeAnalysis decodes the first balanced object in text that is valid
// analysis JSON. Braces in the prose around the answer are skipped.
func decodeAnalysis(text string) (rawAnalysis, error) {
	var lastErr error
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		obj, ok := balancedObject(text, i)
		if !ok {
			continue
		}
		var raw rawAnalysis
		if err := json.Unmarshal([]byte(obj), &raw); err != nil {
			lastErr = err
			continue
		}
		return raw, nil
	}
	if lastErr != nil {
		return rawAnalysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, lastErr)
	}
	return rawAnalysis{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
}

// parseResponse turns a model answer into an analysis of question. Fields
// that are missing or invalid are taken from the fallback analysis.
func parseResponse(text, question string) (models.QuestionAnalysis, error) {
	raw, err := decodeAnalysis(text)
	if err != nil {
		return models.QuestionAnalysis{}, err
	}

	fb := Fallback(question)
	out := fb

	if raw.Intent != nil && strings.TrimSpace(*raw.Intent) != "" {
		out.Intent = strings.TrimSpace(*raw.Intent)
	}
	if kws := cleanList(raw.Keywords, true); len(kws) > 0 {
		out.Keywords = kws
	}
	if raw.Category != nil {
		if c := models.Category(strings.ToLower(strings.TrimSpace(*raw.Category))); c.Valid() {
			out.Category = c
		}
	}
	if raw.Complexity != nil {
		if c := models.Complexity(strings.ToLower(strings.TrimSpace(*raw.Complexity))); c.Valid() {
			out.Complexity = c
		}
	}
	if raw.Entities != nil {
		out.Entities = cleanList(raw.Entities, false)
	}
	if raw.Context != nil && strings.TrimSpace(*raw.Context) != "" {
		out.Context = strings.TrimSpace(*raw.Context)
	}

	return out, nil
}

// cleanList trims entries, drops empties and removes duplicates keeping the
// first occurrence.
func cleanList(in []string, foldCase bool) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := s
		if foldCase {
			key = strings.ToLower(s)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
