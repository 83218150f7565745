package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyResult is returned when a question-list decode produced zero
// entries. There is no weaker strategy to fall back to; retrying means
// re-invoking the whole orchestration.
var ErrEmptyResult = errors.New("ai returned an empty result")

// ParseError reports that every decode strategy failed for a response.
type ParseError struct {
	Snippet string // first 200 chars of the cleaned response
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unparseable ai response: %v (snippet: %q)", e.Err, e.Snippet)
	}
	return fmt.Sprintf("unparseable ai response (snippet: %q)", e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidStatusError reports an unrecognized evaluation status value.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid evaluation status from ai: %q", e.Status)
}

// InvocationError wraps a failed backend call with its classification.
// Transient failures (rate limit, overload) warrant trying another
// credential/model pair; fatal ones abort the whole matrix.
type InvocationError struct {
	Credential string // key fingerprint for logging, not the key itself
	Model      string
	Status     int // extracted HTTP status, 0 if none found
	Transient  bool
	Err        error
}

func (e *InvocationError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("model %s: %s failure (status %d): %v", e.Model, kind, e.Status, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ExhaustionError is returned when every (credential, model) pair failed
// transiently. LastErr is the final transient failure observed.
type ExhaustionError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustionError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("all %d credential/model attempts failed: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("all %d credential/model attempts failed", e.Attempts)
}

func (e *ExhaustionError) Unwrap() error { return e.LastErr }

// bracketStatusRegex pulls an HTTP status out of messages like
// "[429 Too Many Requests] quota exceeded" — some backends wrap the real
// status inside free text.
var bracketStatusRegex = regexp.MustCompile(`\[(\d{3})\s`)

// IsNoAPIKey reports whether err looks like a missing/invalid credential
// condition that the UI should resolve by prompting for a key, rather
// than showing a generic failure.
func IsNoAPIKey(err error) bool {
	var inv *InvocationError
	if errors.As(err, &inv) {
		if inv.Status == 401 || inv.Status == 403 {
			return true
		}
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "identity")
}
