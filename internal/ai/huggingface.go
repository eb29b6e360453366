package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultHFBaseURL = "https://api-inference.huggingface.co"

// HFProvider implements Provider against the hosted Hugging Face text-generation inference API.
// The API answers in one piece, so Stream emits a single fragment.
type HFProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewHFProvider(apiKey, model, baseURL string, client *http.Client) *HFProvider {
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HFProvider{apiKey: apiKey, model: model, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *HFProvider) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens   int     `json:"max_new_tokens"`
		Temperature    float64 `json:"temperature"`
		ReturnFullText bool    `json:"return_full_text"`
	} `json:"parameters"`
	Options struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (p *HFProvider) Generate(ctx context.Context, prompt string) (string, error) {
	var body hfRequest
	body.Inputs = prompt
	body.Parameters.MaxNewTokens = 1024
	body.Parameters.Temperature = 0.7
	body.Options.WaitForModel = true

	resp, err := postJSON(ctx, p.client, p.baseURL+"/models/"+p.model, bearer(p.apiKey), body)
	if err != nil {
		return "", callError(p.Name(), err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", callError(p.Name(), fmt.Errorf("unmarshal response: %w", err))
	}

	// The API returns either a list of generations or an {"error": ...} object.
	var gens []hfGeneration
	if err := json.Unmarshal(raw, &gens); err != nil {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return "", callError(p.Name(), fmt.Errorf("api error: %s", apiErr.Error))
		}
		return "", callError(p.Name(), fmt.Errorf("unexpected response shape: %w", err))
	}
	if len(gens) == 0 || gens[0].GeneratedText == "" {
		return "", callError(p.Name(), ErrEmptyResponse)
	}
	return gens[0].GeneratedText, nil
}

func (p *HFProvider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	text, err := p.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return emit(text)
}
