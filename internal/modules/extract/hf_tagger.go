package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HFTagger calls the Hugging Face token-classification inference API with entity grouping.
// It holds no mutable state and is safe for concurrent use.
type HFTagger struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewHFTagger(apiKey, model, baseURL string, client *http.Client) *HFTagger {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HFTagger{apiKey: apiKey, model: model, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type hfNERRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		AggregationStrategy string `json:"aggregation_strategy"`
	} `json:"parameters"`
	Options struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type hfEntity struct {
	EntityGroup string  `json:"entity_group"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
}

func (t *HFTagger) Tag(ctx context.Context, text string) ([]Entity, error) {
	var body hfNERRequest
	body.Inputs = text
	body.Parameters.AggregationStrategy = "simple"
	body.Options.WaitForModel = true

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ner: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/models/"+t.model, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner: do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ner: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ner: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tagged []hfEntity
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, fmt.Errorf("ner: unmarshal response: %w", err)
	}

	entities := make([]Entity, 0, len(tagged))
	for _, e := range tagged {
		entities = append(entities, Entity{Group: e.EntityGroup, Word: e.Word, Score: e.Score, Start: e.Start})
	}
	return entities, nil
}
