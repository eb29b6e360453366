package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"navsmart/internal/config"
	"navsmart/internal/observability"
)

// New builds the one backend selected by configuration, wrapped with metrics and logging.
func New(ctx context.Context, cfg config.LLMConfig, metrics *observability.Metrics) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case config.ProviderOpenAI:
		p = NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, nil)
	case config.ProviderGemini:
		gp, err := NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		p = gp
	case config.ProviderHuggingFace:
		p = NewHFProvider(cfg.HuggingFace.APIKey, cfg.HuggingFace.Model, cfg.HuggingFace.BaseURL, nil)
	case config.ProviderOllama:
		p = NewOllamaProvider(cfg.Ollama.Host, cfg.Ollama.Model, nil)
	default:
		return nil, fmt.Errorf("unknown generative backend %q", cfg.Provider)
	}
	return Instrument(p, metrics), nil
}

type instrumented struct {
	Provider
	metrics *observability.Metrics
}

// Instrument records call outcomes for p. The wrapped provider keeps its Name.
func Instrument(p Provider, metrics *observability.Metrics) Provider {
	return &instrumented{Provider: p, metrics: metrics}
}

func (i *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := i.Provider.Generate(ctx, prompt)
	i.observe(ctx, "generate", err, false)
	return text, err
}

func (i *instrumented) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	var emitErr error
	err := i.Provider.Stream(ctx, prompt, func(fragment string) error {
		if err := emit(fragment); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	i.observe(ctx, "stream", err, emitErr != nil && errors.Is(err, emitErr))
	return err
}

// Close releases the wrapped provider when it holds resources (the Gemini client does).
func (i *instrumented) Close() error {
	if c, ok := i.Provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// observe labels a call cut short by its caller (cancelled context or a failed emit)
// "cancelled"; only the remaining failures count as backend errors.
func (i *instrumented) observe(ctx context.Context, op string, err error, emitFailed bool) {
	if err == nil {
		i.metrics.ObserveBackendCall(i.Name(), "ok")
		return
	}
	if ctx.Err() != nil || emitFailed {
		i.metrics.ObserveBackendCall(i.Name(), "cancelled")
		slog.DebugContext(ctx, "generative backend call cancelled", "provider", i.Name(), "op", op, "error", err)
		return
	}
	i.metrics.ObserveBackendCall(i.Name(), "error")
	slog.WarnContext(ctx, "generative backend call failed", "provider", i.Name(), "op", op, "error", err)
}
