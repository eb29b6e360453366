package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestKeywordExtractor(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
		wantErr error
	}{
		{name: "plain trip", message: "plan a trip from Kolkata to Delhi", want: []string{"kolkata", "delhi"}},
		{name: "extra whitespace", message: "  Navigate FROM   New York   TO  Boston Harbor ", want: []string{"new york", "boston harbor"}},
		{name: "multi word names", message: "from San Francisco to Los Angeles", want: []string{"san francisco", "los angeles"}},
		{name: "first to after from wins", message: "from london to toronto", want: []string{"london", "toronto"}},
		{name: "missing from", message: "take me to Delhi", wantErr: ErrMissingKeyword},
		{name: "missing to", message: "leaving from Kolkata", wantErr: ErrMissingKeyword},
		{name: "to only before from", message: "go to Paris from London", wantErr: ErrMalformedRequest},
		{name: "empty start", message: "from to Delhi", wantErr: ErrMalformedRequest},
		{name: "empty end", message: "from Delhi to", wantErr: ErrMalformedRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeywordExtractor{}.Extract(context.Background(), tt.message)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v (%v)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestKeywordExtractorLiteralSplit documents the substring behaviour: "to" inside a place
// name is treated as the keyword.
func TestKeywordExtractorLiteralSplit(t *testing.T) {
	got, err := KeywordExtractor{}.Extract(context.Background(), "from Boston to Denver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "bos" || got[1] != "n to denver" {
		t.Errorf("expected literal split, got %q", got)
	}

	if _, err := (KeywordExtractor{}).Extract(context.Background(), "from Tokyo to Osaka"); !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("expected malformed request for Tokyo, got %v", err)
	}
}

func TestKeywordErrorNamesMissingKeywords(t *testing.T) {
	_, err := KeywordExtractor{}.Extract(context.Background(), "hello there")

	var kwErr *KeywordError
	if !errors.As(err, &kwErr) {
		t.Fatalf("expected KeywordError, got %v", err)
	}
	if !kwErr.IsMissing(KeywordFrom) || !kwErr.IsMissing(KeywordTo) {
		t.Errorf("expected both keywords missing, got %v", kwErr.Missing)
	}
	if kwErr.Error() != "missing keyword 'from' and 'to'" {
		t.Errorf("unexpected message %q", kwErr.Error())
	}

	_, err = KeywordExtractor{}.Extract(context.Background(), "from here")
	if !errors.As(err, &kwErr) || kwErr.IsMissing(KeywordFrom) || !kwErr.IsMissing(KeywordTo) {
		t.Errorf("expected only 'to' missing, got %v", err)
	}
}

type stubTagger struct {
	entities []Entity
	err      error
}

func (s *stubTagger) Tag(context.Context, string) ([]Entity, error) {
	return s.entities, s.err
}

func TestEntityExtractor(t *testing.T) {
	tests := []struct {
		name     string
		entities []Entity
		want     []string
		wantErr  error
	}{
		{
			name: "two locations",
			entities: []Entity{
				{Group: "LOC", Word: "Paris", Start: 14},
				{Group: "LOC", Word: "Berlin", Start: 23},
			},
			want: []string{"Paris", "Berlin"},
		},
		{
			name: "reordered by position and filtered",
			entities: []Entity{
				{Group: "ORG", Word: "Eiffel Tower", Start: 30},
				{Group: "DATE", Word: "tomorrow", Start: 0},
				{Group: "PER", Word: "Victoria", Start: 10},
				{Group: "MISC", Word: " ", Start: 20},
			},
			want: []string{"Victoria", "Eiffel Tower"},
		},
		{
			name:     "single entity",
			entities: []Entity{{Group: "LOC", Word: "Paris"}},
			wantErr:  ErrInsufficientLocations,
		},
		{
			name:    "none",
			wantErr: ErrInsufficientLocations,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEntityExtractor(&stubTagger{entities: tt.entities}).Extract(context.Background(), "text")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntityExtractorTaggerFailure(t *testing.T) {
	boom := errors.New("model offline")
	_, err := NewEntityExtractor(&stubTagger{err: boom}).Extract(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected tagger error to be wrapped, got %v", err)
	}
}

func TestHFTagger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/dslim/bert-base-NER" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req hfNERRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Parameters.AggregationStrategy != "simple" {
			t.Errorf("expected grouped entities, got %q", req.Parameters.AggregationStrategy)
		}
		_, _ = io.WriteString(w, `[
			{"entity_group":"LOC","score":0.99,"word":"Paris","start":14,"end":19},
			{"entity_group":"LOC","score":0.98,"word":"Berlin","start":23,"end":29}
		]`)
	}))
	defer srv.Close()

	tagger := NewHFTagger("hf", "dslim/bert-base-NER", srv.URL, srv.Client())
	places, err := NewEntityExtractor(tagger).Extract(context.Background(), "navigate from Paris to Berlin")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(places, []string{"Paris", "Berlin"}) {
		t.Errorf("unexpected places %q", places)
	}
}

func TestHFTaggerUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"loading"}`)
	}))
	defer srv.Close()

	_, err := NewHFTagger("", "m", srv.URL, srv.Client()).Tag(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
}
