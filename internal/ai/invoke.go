package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	openai "github.com/sashabaranov/go-openai"
)

// ModelChain is the fixed, priority-ordered list of candidate backend
// models. Index 0 is tried first; later entries are lighter models with
// higher free-tier rate limits. Read-only after startup.
var ModelChain = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
}

// DefaultBaseURL is the generative-language backend's OpenAI-compatible
// endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// transientStatuses are the HTTP codes that warrant trying another
// credential/model pair instead of failing the call.
var transientStatuses = map[int]bool{
	429: true, // rate limited
	503: true, // backend overloaded
}

// InvokeFunc performs a single call to one (credential, model) pair and
// returns raw text or a classified *InvocationError. The orchestrator
// depends on this signature so tests can substitute a fake backend.
type InvokeFunc func(ctx context.Context, credential, modelName, systemInstruction, prompt string) (string, error)

// InvokerConfig holds generation knobs passed through to the backend.
type InvokerConfig struct {
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// Invoker issues single model calls over an OpenAI-compatible API.
type Invoker struct {
	cfg InvokerConfig
}

// NewInvoker creates an Invoker, applying defaults for unset knobs.
func NewInvoker(cfg InvokerConfig) *Invoker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	return &Invoker{cfg: cfg}
}

// Invoke calls one (credential, model) pair with the given system
// instruction and prompt. Failures come back as *InvocationError with a
// transient/fatal classification.
func (iv *Invoker) Invoke(ctx context.Context, credential, modelName, systemInstruction, prompt string) (string, error) {
	config := openai.DefaultConfig(credential)
	config.BaseURL = iv.cfg.BaseURL
	client := openai.NewClientWithConfig(config)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: iv.cfg.Temperature,
		MaxTokens:   iv.cfg.MaxTokens,
	})
	if err != nil {
		inv := classify(credential, modelName, err)
		slog.Debug("model call failed",
			"model", modelName,
			"key", keyFingerprint(credential),
			"status", inv.Status,
			"transient", inv.Transient,
		)
		return "", inv
	}

	if len(resp.Choices) == 0 {
		return "", classify(credential, modelName, fmt.Errorf("backend returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify wraps a raw transport error with its retry classification.
func classify(credential, modelName string, err error) *InvocationError {
	status := extractHTTPStatus(err)
	return &InvocationError{
		Credential: keyFingerprint(credential),
		Model:      modelName,
		Status:     status,
		Transient:  transientStatuses[status],
		Err:        err,
	}
}

// extractHTTPStatus digs an HTTP status out of a backend error: the
// structured status field first, then a "[nnn ..." bracketed number in
// the message — backends are known to wrap the real status inside free
// text. Returns 0 when none is found.
func extractHTTPStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode
	}
	if m := bracketStatusRegex.FindStringSubmatch(err.Error()); m != nil {
		n, convErr := strconv.Atoi(m[1])
		if convErr == nil {
			return n
		}
	}
	return 0
}

// keyFingerprint returns a loggable tail of a credential.
func keyFingerprint(credential string) string {
	if len(credential) <= 4 {
		return "****"
	}
	return "..." + credential[len(credential)-4:]
}
