package ai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider against the hosted chat-completions API.
type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	client      *http.Client
}

// NewOpenAIProvider creates an OpenAI chat-completions provider.
// client may be nil; timeouts are then governed by the caller's context only, which is what
// the streaming relay needs.
func NewOpenAIProvider(apiKey, model, baseURL string, client *http.Client) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIProvider{
		apiKey:      apiKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: 0.7,
		client:      client,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (p *OpenAIProvider) request(prompt string, stream bool) chatRequest {
	return chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: p.temperature,
		Stream:      stream,
	}
}

// Generate sends prompt to the chat completions endpoint and returns the reply text.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", bearer(p.apiKey), p.request(prompt, false))
	if err != nil {
		return "", callError(p.Name(), err)
	}
	defer resp.Body.Close()

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", callError(p.Name(), fmt.Errorf("unmarshal response: %w", err))
	}
	if cr.Error != nil {
		return "", callError(p.Name(), fmt.Errorf("api error: %s", cr.Error.Message))
	}
	if len(cr.Choices) == 0 {
		return "", callError(p.Name(), ErrEmptyResponse)
	}
	return cr.Choices[0].Message.Content, nil
}

// Stream reads the server-sent event stream and emits each content delta.
func (p *OpenAIProvider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	resp, err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", bearer(p.apiKey), p.request(prompt, true))
	if err != nil {
		return callError(p.Name(), err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := emit(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return callError(p.Name(), fmt.Errorf("read stream: %w", err))
	}
	return nil
}
