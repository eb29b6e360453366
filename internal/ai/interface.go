package ai

import (
	"context"
	"errors"
)

// Provider defines the contract for a generative text backend.
// Every adapter (OpenAI, Gemini, Hugging Face, Ollama) satisfies it, so callers never branch on
// the configured backend.
type Provider interface {
	// Name identifies the backend in logs, metrics and error payloads.
	Name() string

	// Generate submits prompt and returns the complete generated text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Stream submits prompt with streaming enabled and calls emit for every text fragment in
	// arrival order. Returning an error from emit aborts the stream and is returned as-is.
	Stream(ctx context.Context, prompt string, emit func(fragment string) error) error
}

// ErrEmptyResponse is returned when the backend answered without any text.
var ErrEmptyResponse = errors.New("empty response")

// CallError reports a failed backend call (network, auth, rate limit, upstream error).
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return e.Provider + " call failed: " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

func callError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{Provider: provider, Err: err}
}
