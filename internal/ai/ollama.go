package ai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaProvider implements Provider against a local Ollama server.
// Generate uses /api/generate; Stream uses /api/chat with stream=true, which answers with
// newline-delimited JSON fragments.
type OllamaProvider struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaProvider(host, model string, client *http.Client) *OllamaProvider {
	if host == "" {
		host = defaultOllamaHost
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaProvider{host: strings.TrimRight(host, "/"), model: model, client: client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ollamaFragment covers both fragment shapes: chat deltas carry a role-tagged message,
// generate deltas carry a plain response string.
type ollamaFragment struct {
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (f ollamaFragment) text() string {
	if f.Message != nil {
		return f.Message.Content
	}
	return f.Response
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := postJSON(ctx, p.client, p.host+"/api/generate", nil, ollamaGenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", callError(p.Name(), err)
	}
	defer resp.Body.Close()

	var frag ollamaFragment
	if err := json.NewDecoder(resp.Body).Decode(&frag); err != nil {
		return "", callError(p.Name(), fmt.Errorf("unmarshal response: %w", err))
	}
	if frag.Error != "" {
		return "", callError(p.Name(), errors.New(frag.Error))
	}
	if frag.text() == "" {
		return "", callError(p.Name(), ErrEmptyResponse)
	}
	return frag.text(), nil
}

// Stream forwards fragments in arrival order. Lines that do not parse are skipped.
func (p *OllamaProvider) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	resp, err := postJSON(ctx, p.client, p.host+"/api/chat", nil, ollamaChatRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return callError(p.Name(), err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var frag ollamaFragment
		if err := json.Unmarshal([]byte(line), &frag); err != nil {
			continue
		}
		if frag.Error != "" {
			return callError(p.Name(), errors.New(frag.Error))
		}
		if text := frag.text(); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
		if frag.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return callError(p.Name(), fmt.Errorf("read stream: %w", err))
	}
	return nil
}
