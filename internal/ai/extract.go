package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Tolerant extraction of JSON values from model output. The upstream
// model is not contractually guaranteed to produce clean JSON: responses
// arrive fenced in markdown, wrapped in prose, or truncated mid-array by
// the output token limit. Strategies are tried in strict order and each
// one runs only if the prior failed.

var (
	fenceOpenRegex  = regexp.MustCompile("(?i)^```(?:json)?[ \t]*\r?\n?")
	fenceCloseRegex = regexp.MustCompile("[ \t\r\n]*```[ \t\r\n]*$")
)

// StripFences removes a single leading code-fence marker (optionally
// tagged "json", case-insensitive) and a single trailing fence, and
// trims surrounding whitespace.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpenRegex.ReplaceAllString(s, "")
	s = fenceCloseRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// snippet returns the first 200 chars of s for error reporting.
func snippet(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

// ExtractValue recovers a single JSON value (object or array) from
// free-form model output. It parses the fence-stripped text first and
// falls back to the original untrimmed text, which covers responses
// where fence stripping was wrong but the raw text itself is valid.
func ExtractValue(raw string) (json.RawMessage, error) {
	cleaned := StripFences(raw)
	if cleaned != "" && json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), nil
	}
	if strings.TrimSpace(raw) != "" && json.Valid([]byte(raw)) {
		return json.RawMessage(raw), nil
	}
	return nil, &ParseError{Snippet: snippet(cleaned)}
}

// questionObjectRegex matches one complete question object by its field
// signature (order, text, difficulty, xpBonus). Used to salvage leading
// objects from an array that was cut off mid-stream.
var questionObjectRegex = regexp.MustCompile(
	`\{[^{}]*"order"\s*:\s*\d+[^{}]*"text"\s*:\s*"(?:[^"\\]|\\.)*"\s*,[^{}]*"difficulty"\s*:\s*"(?:easy|medium|hard)"[^{}]*"xpBonus"\s*:\s*\d+[^{}]*\}`)

// exampleObjectRegex matches one complete code-example object by its
// field signature (title, language, explanation, code).
var exampleObjectRegex = regexp.MustCompile(
	`\{[^{}]*"title"\s*:\s*"(?:[^"\\]|\\.)*"[^{}]*"language"\s*:\s*"(?:[^"\\]|\\.)*"[^{}]*"explanation"\s*:\s*"(?:[^"\\]|\\.)*"[^{}]*"code"\s*:\s*"(?:[^"\\]|\\.)*"[^{}]*\}`)

// ExtractArray recovers a JSON array of objects from model output.
//
// Strategies, in order: parse the fence-stripped text as a whole array;
// parse the original untrimmed text; scan for complete `{...}` fragments
// matching objectPattern and parse each independently, skipping any
// fragment that fails on its own. The third strategy recovers partial
// results from output truncated by a token limit.
//
// recovered is true when the pattern scan (not a clean whole-array
// parse) produced the items; callers may want to log a warning in that
// case. Zero items recovered by any strategy is a hard failure.
func ExtractArray(raw string, objectPattern *regexp.Regexp) (items []json.RawMessage, recovered bool, err error) {
	cleaned := StripFences(raw)

	for _, candidate := range []string{cleaned, raw} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
			return arr, false, nil
		}
	}

	for _, frag := range objectPattern.FindAllString(cleaned, -1) {
		if !json.Valid([]byte(frag)) {
			continue // skip malformed fragment, not fatal
		}
		items = append(items, json.RawMessage(frag))
	}
	if len(items) > 0 {
		return items, true, nil
	}

	return nil, false, &ParseError{Snippet: snippet(cleaned)}
}
