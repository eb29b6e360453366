// README: Itinerary generator (prompt building, backend dispatch, tolerant fence stripping and strict JSON parsing).
package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"navsmart/internal/ai"
)

var ErrInvalidModelOutput = errors.New("model output was not valid JSON")

// DayLabel accepts either "Day 1" or 1 from the model.
type DayLabel string

func (d *DayLabel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = DayLabel(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("day must be a string or a number, got %s", b)
	}
	*d = DayLabel(n.String())
	return nil
}

type Day struct {
	Day        DayLabel `json:"day"`
	Location   string   `json:"location"`
	Activities []string `json:"activities"`
}

type Result struct {
	Reply     string `json:"reply"`
	Itinerary []Day  `json:"itinerary"`
}

// Failure is the error payload returned to clients in place of a Result.
type Failure struct {
	Error     string `json:"error"`
	RawOutput string `json:"raw_output,omitempty"`
}

// OutputError carries the model text that failed to parse.
type OutputError struct {
	Raw string
	Err error
}

func (e *OutputError) Error() string {
	return ErrInvalidModelOutput.Error() + ": " + e.Err.Error()
}

func (e *OutputError) Is(target error) bool { return target == ErrInvalidModelOutput }

func (e *OutputError) Unwrap() error { return e.Err }

const promptTemplate = `
User message: "%s"
Generate a travel itinerary in JSON format with:
- reply: a short summary message
- itinerary: a list of days, each with:
  - day
  - location
  - activities (list of strings)
`

// BuildPrompt embeds the user's message verbatim in the fixed itinerary template.
func BuildPrompt(message string) string {
	return fmt.Sprintf(promptTemplate, message)
}

// Generator dispatches itinerary prompts to the configured backend.
type Generator struct {
	provider ai.Provider
	timeout  time.Duration
}

func NewGenerator(provider ai.Provider, timeout time.Duration) *Generator {
	return &Generator{provider: provider, timeout: timeout}
}

// Provider names the backend answering itinerary prompts.
func (g *Generator) Provider() string { return g.provider.Name() }

// Generate returns the parsed itinerary, an *ai.CallError when the backend fails, or an
// *OutputError when the backend's text is not an itinerary.
func (g *Generator) Generate(ctx context.Context, message string) (*Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	raw, err := g.provider.Generate(ctx, BuildPrompt(message))
	if err != nil {
		var ce *ai.CallError
		if !errors.As(err, &ce) {
			err = &ai.CallError{Provider: g.provider.Name(), Err: err}
		}
		return nil, err
	}

	res, err := Parse(raw)
	if err != nil {
		slog.WarnContext(ctx, "itinerary output rejected", "provider", g.provider.Name(), "error", err)
		return nil, err
	}
	return res, nil
}

// Parse strips Markdown code fences and decodes exactly one itinerary object.
func Parse(raw string) (*Result, error) {
	dec := json.NewDecoder(strings.NewReader(stripFences(raw)))

	var out struct {
		Reply     string `json:"reply"`
		Itinerary *[]Day `json:"itinerary"`
	}
	if err := dec.Decode(&out); err != nil {
		return nil, &OutputError{Raw: raw, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &OutputError{Raw: raw, Err: errors.New("trailing data after JSON object")}
	}
	if out.Itinerary == nil {
		return nil, &OutputError{Raw: raw, Err: errors.New("missing itinerary")}
	}
	return &Result{Reply: out.Reply, Itinerary: *out.Itinerary}, nil
}

// FailureFor converts a Generate error into the client payload.
func FailureFor(provider string, err error) Failure {
	var oe *OutputError
	if errors.As(err, &oe) {
		return Failure{Error: ErrInvalidModelOutput.Error(), RawOutput: oe.Raw}
	}
	var ce *ai.CallError
	if errors.As(err, &ce) {
		return Failure{Error: ce.Error()}
	}
	return Failure{Error: (&ai.CallError{Provider: provider, Err: err}).Error()}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "```")
	if !ok {
		return s
	}
	if info, body, found := strings.Cut(rest, "\n"); found && !strings.ContainsAny(info, "{[") {
		rest = body
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "```"))
}
