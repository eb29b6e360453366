package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"navsmart/internal/ai"
)

type stubProvider struct {
	reply      string
	err        error
	lastPrompt string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.reply, s.err
}

func (s *stubProvider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	return errors.New("not used")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantReply string
		wantDays  int
		wantErr   bool
	}{
		{name: "fenced empty itinerary", raw: "```json\n{\"reply\":\"ok\",\"itinerary\":[]}\n```", wantReply: "ok", wantDays: 0},
		{name: "bare fences", raw: "```\n{\"reply\":\"ok\",\"itinerary\":[]}\n```", wantReply: "ok"},
		{name: "unfenced", raw: `{"reply":"Two days in Rome","itinerary":[{"day":"Day 1","location":"Rome","activities":["Colosseum"]},{"day":2,"location":"Rome","activities":[]}]}`, wantReply: "Two days in Rome", wantDays: 2},
		{name: "unknown fields tolerated", raw: `{"reply":"ok","itinerary":[],"budget":"low"}`, wantReply: "ok"},
		{name: "prose", raw: "Sure! Here is your plan: visit Rome.", wantErr: true},
		{name: "missing itinerary", raw: `{"reply":"ok"}`, wantErr: true},
		{name: "trailing text", raw: `{"reply":"ok","itinerary":[]} hope this helps`, wantErr: true},
		{name: "wrong activities type", raw: `{"reply":"ok","itinerary":[{"day":"1","location":"x","activities":"walk"}]}`, wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidModelOutput) {
					t.Fatalf("expected invalid output error, got %v", err)
				}
				var oe *OutputError
				if !errors.As(err, &oe) || oe.Raw != tt.raw {
					t.Errorf("expected raw output to be kept, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got.Reply != tt.wantReply || len(got.Itinerary) != tt.wantDays {
				t.Errorf("unexpected result %+v", got)
			}
			if got.Itinerary == nil {
				t.Errorf("itinerary should be an empty list, not null")
			}
		})
	}
}

func TestParseNumericDayLabel(t *testing.T) {
	got, err := Parse(`{"reply":"r","itinerary":[{"day":3,"location":"Kyoto","activities":["Fushimi Inari"]}]}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Itinerary[0].Day != "3" {
		t.Errorf("expected day label \"3\", got %q", got.Itinerary[0].Day)
	}
}

func TestGenerate(t *testing.T) {
	p := &stubProvider{reply: "```json\n{\"reply\":\"ok\",\"itinerary\":[]}\n```"}
	res, err := NewGenerator(p, time.Second).Generate(context.Background(), "3 days in Lisbon")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Reply != "ok" || len(res.Itinerary) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.Contains(p.lastPrompt, `User message: "3 days in Lisbon"`) || !strings.Contains(p.lastPrompt, "activities (list of strings)") {
		t.Errorf("unexpected prompt %q", p.lastPrompt)
	}

	raw, _ := json.Marshal(res)
	if string(raw) != `{"reply":"ok","itinerary":[]}` {
		t.Errorf("unexpected wire shape %s", raw)
	}
}

func TestGenerateFailures(t *testing.T) {
	t.Run("invalid output", func(t *testing.T) {
		p := &stubProvider{reply: "I cannot help with that."}
		_, err := NewGenerator(p, 0).Generate(context.Background(), "x")
		f := FailureFor(p.Name(), err)
		if f.Error != "model output was not valid JSON" || f.RawOutput != "I cannot help with that." {
			t.Errorf("unexpected failure %+v", f)
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		p := &stubProvider{err: &ai.CallError{Provider: "openai", Err: errors.New("upstream status 429: rate limited")}}
		_, err := NewGenerator(p, 0).Generate(context.Background(), "x")
		f := FailureFor(p.Name(), err)
		if f.Error != "openai call failed: upstream status 429: rate limited" || f.RawOutput != "" {
			t.Errorf("unexpected failure %+v", f)
		}
	})

	t.Run("unwrapped backend error", func(t *testing.T) {
		p := &stubProvider{err: context.DeadlineExceeded}
		_, err := NewGenerator(p, 0).Generate(context.Background(), "x")
		var ce *ai.CallError
		if !errors.As(err, &ce) || ce.Provider != "stub" {
			t.Fatalf("expected CallError, got %v", err)
		}
		if f := FailureFor(p.Name(), err); f.Error != "stub call failed: context deadline exceeded" {
			t.Errorf("unexpected failure %+v", f)
		}
	})
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```":  "{}",
		"```JSON\n[]\n```":  "[]",
		"```{\"a\":1}```":   `{"a":1}`,
		"```json{}```":      "{}",
		"  {\"a\":1}  ":     `{"a":1}`,
		"```\n{\n}\n```\n": "{\n}",
	}
	for in, want := range tests {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
