// Package articulation normalizes raw provider responses into the shapes the assistant uses:
// answer text with retrieval metadata, and JSON payloads that may arrive fenced or wrapped in prose.
package articulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ledgerchat/internal/llm"
	"ledgerchat/internal/types"
)

// MaxSuggestions caps the number of follow-up suggestions shown.
const MaxSuggestions = 4

// ErrEmptyResponse is returned when there is no text to decode.
var ErrEmptyResponse = errors.New("empty response text")

// Answer is the normalized chat result.
type Answer struct {
	Text       string
	URLContext []types.URLContextMetadata
}

// Extract pulls the primary text and retrieval metadata out of a response.
func Extract(resp *llm.Response) Answer {
	if resp == nil {
		return Answer{}
	}
	return Answer{
		Text:       strings.TrimSpace(resp.Text),
		URLContext: resp.URLContext,
	}
}

// StripFences removes an optional leading ``` or ```lang line and a trailing ``` fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Language tag, e.g. "json"
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeJSON strips fences and unmarshals text into v. When the stripped text is not
// valid JSON, the first complete top-level object found in it is tried instead.
func DecodeJSON(text string, v any) error {
	body := StripFences(text)
	if body == "" {
		return ErrEmptyResponse
	}

	err := json.Unmarshal([]byte(body), v)
	if err == nil {
		return nil
	}

	for _, candidate := range findJSONCandidates(body) {
		if json.Unmarshal([]byte(candidate), v) == nil {
			return nil
		}
	}
	return fmt.Errorf("decode JSON response: %w", err)
}

// SanitizeSuggestions keeps non-empty string entries, trimmed, up to MaxSuggestions.
func SanitizeSuggestions(raw []any) []string {
	out := make([]string, 0, MaxSuggestions)
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// findJSONCandidates returns the top-level JSON objects embedded in s.
// It tracks string and escape state so braces inside strings are ignored.
// Iterating bytes is safe because UTF-8 never reuses ASCII bytes in multi-byte sequences.
func findJSONCandidates(s string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}
