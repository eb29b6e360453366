// README: Transcriber turns an uploaded clip into English text via the hosted Whisper translation endpoint.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrDecode means the clip is empty, not audio, or not decodable.
	ErrDecode = errors.New("audio could not be decoded")
	// ErrInference means the speech model failed to produce a transcript.
	ErrInference = errors.New("speech model inference failed")
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	maxErrorBody   = 512
)

// Transcriber translates spoken audio to English text.
type Transcriber struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewTranscriber(apiKey, model, baseURL string, client *http.Client) *Transcriber {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Transcriber{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Transcribe decodes the whole clip and returns the model's single best hypothesis.
// WAV input is normalised to mono 16 kHz locally; other containers are forwarded as-is
// and decoded by the model host.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrDecode)
	}

	mt := mimetype.Detect(audio)
	if !isAudio(mt) {
		return "", fmt.Errorf("%w: unsupported content type %s", ErrDecode, mt.String())
	}

	payload, ext := audio, mt.Extension()
	if mt.Is("audio/wav") {
		normalized, err := normalizeWAV(audio)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		payload, ext = normalized, ".wav"
	}

	text, err := t.translate(ctx, payload, "clip"+ext)
	if err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "audio transcribed", "content_type", mt.String(), "bytes", len(audio), "chars", len(text))
	return text, nil
}

func isAudio(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return mt.Is("video/webm") || mt.Is("video/mp4") || mt.Is("application/ogg")
}

type translationResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (t *Transcriber) translate(ctx context.Context, audio []byte, filename string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%w: build upload: %v", ErrInference, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("%w: build upload: %v", ErrInference, err)
	}
	if err := w.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("%w: build upload: %v", ErrInference, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: build upload: %v", ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/translations", &body)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrInference, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := strings.TrimSpace(string(snippet))
		// The host rejects undecodable media with 400.
		if resp.StatusCode == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %s", ErrDecode, detail)
		}
		return "", fmt.Errorf("%w: upstream status %d: %s", ErrInference, resp.StatusCode, detail)
	}

	var tr translationResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrInference, err)
	}
	if tr.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrInference, tr.Error.Message)
	}
	return strings.TrimSpace(tr.Text), nil
}
