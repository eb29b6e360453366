package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// pcm16 builds an interleaved 16-bit PCM WAV clip.
func pcm16(rate, channels int, frames [][]int16) []byte {
	dataLen := len(frames) * channels * 2
	b := []byte("RIFF")
	b = binary.LittleEndian.AppendUint32(b, uint32(36+dataLen))
	b = append(b, "WAVEfmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, wavFormatPCM)
	b = binary.LittleEndian.AppendUint16(b, uint16(channels))
	b = binary.LittleEndian.AppendUint32(b, uint32(rate))
	b = binary.LittleEndian.AppendUint32(b, uint32(rate*channels*2))
	b = binary.LittleEndian.AppendUint16(b, uint16(channels*2))
	b = binary.LittleEndian.AppendUint16(b, 16)
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(dataLen))
	for _, f := range frames {
		for _, s := range f {
			b = binary.LittleEndian.AppendUint16(b, uint16(s))
		}
	}
	return b
}

func TestDecodeWAVDownmixesToMono(t *testing.T) {
	clip := pcm16(16000, 2, [][]int16{{16384, -16384}, {16384, 16384}, {-32768, -32768}})

	samples, rate, err := decodeWAV(clip)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("expected 16000 Hz, got %d", rate)
	}
	want := []float64{0, 0.5, -1}
	if len(samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(samples))
	}
	for i := range want {
		if math.Abs(samples[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d: got %f, want %f", i, samples[i], want[i])
		}
	}
}

func TestDecodeWAVRejectsBadInput(t *testing.T) {
	tests := map[string][]byte{
		"not riff":   []byte("hello world, definitely not audio"),
		"no data":    pcm16(16000, 1, nil)[:36],
		"empty data": pcm16(16000, 1, nil),
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := decodeWAV(input); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNormalizeWAVResamplesTo16k(t *testing.T) {
	frames := make([][]int16, 44100)
	for i := range frames {
		v := int16(10000 * math.Sin(2*math.Pi*440*float64(i)/44100))
		frames[i] = []int16{v, v}
	}

	out, err := normalizeWAV(pcm16(44100, 2, frames))
	if err != nil {
		t.Fatalf("normalizeWAV: %v", err)
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != 1 {
		t.Errorf("expected mono output, got %d channels", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != TargetSampleRate {
		t.Errorf("expected %d Hz, got %d", TargetSampleRate, got)
	}
	samples, rate, err := decodeWAV(out)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if rate != TargetSampleRate || len(samples) != TargetSampleRate {
		t.Errorf("expected one second at 16 kHz, got %d samples at %d Hz", len(samples), rate)
	}
}

func TestDecodeWAVRejectsImplausibleSampleRates(t *testing.T) {
	frames := make([][]int16, 1000)
	for _, rate := range []int{1, 4000, 1000000} {
		t.Run(fmt.Sprintf("%dHz", rate), func(t *testing.T) {
			_, _, err := decodeWAV(pcm16(rate, 1, frames))
			if err == nil || !strings.Contains(err.Error(), "sample rate") {
				t.Fatalf("expected sample rate error, got %v", err)
			}
		})
	}
}

func TestTranscribeRejectsLowSampleRateWithoutUpload(t *testing.T) {
	var hits atomic.Int32
	srv := translationServer(t, http.StatusOK, `{"text":"x"}`, func(*http.Request) { hits.Add(1) })

	clip := pcm16(1, 1, make([][]int16, 1000))
	_, err := NewTranscriber("k", "", srv.URL, srv.Client()).Transcribe(context.Background(), clip)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("clip should not reach the model host, got %d uploads", hits.Load())
	}
}

func TestDownmixScalesByBitDepth(t *testing.T) {
	tests := []struct {
		name     string
		data     []int
		channels int
		bits     int
		want     []float64
	}{
		{name: "8-bit unsigned", data: []int{128, 255, 0}, channels: 1, bits: 8, want: []float64{0, 127.0 / 128, -1}},
		{name: "24-bit stereo", data: []int{4194304, -4194304, 8388607, 8388607}, channels: 2, bits: 24, want: []float64{0, 8388607.0 / 8388608}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := downmix(tt.data, tt.channels, tt.bits)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d samples, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("sample %d: got %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	if got := resample(in, 16000, 16000); len(got) != 3 || got[1] != 0.2 {
		t.Errorf("expected input unchanged, got %v", got)
	}
}

func translationServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/translations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscribeWAV(t *testing.T) {
	srv := translationServer(t, http.StatusOK, `{"text":" navigate from Paris to Berlin "}`, func(r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("unexpected model %q", r.FormValue("model"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		if !strings.HasSuffix(hdr.Filename, ".wav") {
			t.Errorf("unexpected filename %q", hdr.Filename)
		}
		raw, _ := io.ReadAll(f)
		if got := binary.LittleEndian.Uint32(raw[24:28]); got != TargetSampleRate {
			t.Errorf("upload not resampled: %d Hz", got)
		}
	})

	clip := pcm16(8000, 1, [][]int16{{0}, {100}, {200}, {300}})
	text, err := NewTranscriber("sk-test", "", srv.URL, srv.Client()).Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "navigate from Paris to Berlin" {
		t.Errorf("unexpected transcript %q", text)
	}
}

func TestTranscribePassesThroughCompressedAudio(t *testing.T) {
	srv := translationServer(t, http.StatusOK, `{"text":"hello"}`, func(r *http.Request) {
		_, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		if !strings.HasSuffix(hdr.Filename, ".mp3") {
			t.Errorf("expected mp3 upload, got %q", hdr.Filename)
		}
	})

	clip := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 128)...)
	if _, err := NewTranscriber("", "", srv.URL, srv.Client()).Transcribe(context.Background(), clip); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestTranscribeErrors(t *testing.T) {
	validClip := pcm16(16000, 1, [][]int16{{1}, {2}})

	tests := []struct {
		name    string
		status  int
		body    string
		clip    []byte
		wantErr error
	}{
		{name: "empty upload", clip: nil, wantErr: ErrDecode},
		{name: "not audio", clip: []byte("{\"message\":\"from a to b\"}"), wantErr: ErrDecode},
		{name: "corrupt wav", clip: validClip[:30], wantErr: ErrDecode},
		{name: "host rejects media", status: http.StatusBadRequest, body: `{"error":{"message":"Invalid file format."}}`, clip: validClip, wantErr: ErrDecode},
		{name: "host failure", status: http.StatusInternalServerError, body: `oops`, clip: validClip, wantErr: ErrInference},
		{name: "garbled response", status: http.StatusOK, body: `not json`, clip: validClip, wantErr: ErrInference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := translationServer(t, tt.status, tt.body, nil)
			_, err := NewTranscriber("k", "", srv.URL, srv.Client()).Transcribe(context.Background(), tt.clip)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTranscribeUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewTranscriber("k", "", url, nil).Transcribe(context.Background(), pcm16(16000, 1, [][]int16{{1}}))
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected inference error, got %v", err)
	}
}
