package ai

import (
	"context"
	"errors"
	"log/slog"
)

// CallResult is a successful orchestrated call: the raw response text
// and the model that produced it.
type CallResult struct {
	Text      string
	ModelUsed string
}

// Orchestrator tries every (credential, model) pair in order until one
// succeeds. The combination of free-tier rate limits and transient
// backend overload across several models and optionally user-supplied
// keys gives a call many chances to succeed before the user sees a
// failure; a non-retryable error fails fast instead of wasting the rest
// of the matrix.
type Orchestrator struct {
	invoke     InvokeFunc
	chain      []string
	defaultKey string
}

// NewOrchestrator wires an invoke function to the model chain. The
// default credential is used when a caller supplies no keys of its own.
func NewOrchestrator(invoke InvokeFunc, chain []string, defaultKey string) *Orchestrator {
	if len(chain) == 0 {
		chain = ModelChain
	}
	return &Orchestrator{invoke: invoke, chain: chain, defaultKey: defaultKey}
}

// Call runs the fallback matrix: outer loop over credentials in caller
// order, inner loop over the model chain by priority. The first success
// short-circuits everything after it. Transient failures move on to the
// next pair; a fatal failure aborts immediately and propagates
// unchanged. When the whole matrix fails transiently the last recorded
// error comes back wrapped in *ExhaustionError.
func (o *Orchestrator) Call(ctx context.Context, credentials []string, systemInstruction, prompt string) (CallResult, error) {
	if len(credentials) == 0 {
		credentials = []string{o.defaultKey}
	}

	var lastErr error
	attempts := 0

	for _, credential := range credentials {
		for _, modelName := range o.chain {
			attempts++
			text, err := o.invoke(ctx, credential, modelName, systemInstruction, prompt)
			if err == nil {
				if attempts > 1 {
					slog.Info("model fallback succeeded",
						"model", modelName,
						"attempts", attempts,
					)
				}
				return CallResult{Text: text, ModelUsed: modelName}, nil
			}

			var inv *InvocationError
			if errors.As(err, &inv) && inv.Transient {
				lastErr = err
				continue
			}
			// Fatal errors are never hidden behind retries.
			return CallResult{}, err
		}
	}

	return CallResult{}, &ExhaustionError{Attempts: attempts, LastErr: lastErr}
}
