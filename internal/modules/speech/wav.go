package speech

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// TargetSampleRate is the rate the speech model is trained on.
const TargetSampleRate = 16000

// Accepted input sample rates. Checked before any sample is decoded.
const (
	minSampleRate = 8000
	maxSampleRate = 384000
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	outputBitDepth      = 16
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// decodeWAV returns the clip down-mixed to mono as samples in [-1, 1].
func decodeWAV(data []byte) ([]float64, int, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, 0, errNotWAV
	}

	rate := int(d.SampleRate)
	if rate < minSampleRate || rate > maxSampleRate {
		return nil, 0, fmt.Errorf("sample rate %d Hz outside %d-%d Hz", rate, minSampleRate, maxSampleRate)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, 0, fmt.Errorf("unsupported encoding %d", d.WavAudioFormat)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, fmt.Errorf("unsupported bit depth %d", d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read samples: %w", err)
	}
	channels := int(d.NumChans)
	if channels <= 0 {
		return nil, 0, errors.New("no channels")
	}
	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, 0, errors.New("no samples")
	}

	return downmix(buf.Data, channels, int(d.BitDepth)), rate, nil
}

// downmix averages interleaved integer frames into one channel scaled to [-1, 1].
// 8-bit WAV samples are unsigned.
func downmix(data []int, channels, bitDepth int) []float64 {
	scale := math.Ldexp(1, bitDepth-1)
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(data[i*channels+c]) - offset) / scale
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// resample converts samples between rates with linear interpolation.
func resample(samples []float64, from, to int) []float64 {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}

// encodeWAV writes mono 16-bit PCM. The encoder patches the header sizes on Close, so it
// writes through a temporary file.
func encodeWAV(samples []float64, rate int) ([]byte, error) {
	f, err := os.CreateTemp("", "navsmart-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * 32767))
	}

	enc := wav.NewEncoder(f, rate, outputBitDepth, 1, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: outputBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish wav: %w", err)
	}
	return os.ReadFile(f.Name())
}

// normalizeWAV decodes a WAV clip and re-encodes it as mono 16 kHz 16-bit PCM.
func normalizeWAV(data []byte) ([]byte, error) {
	samples, rate, err := decodeWAV(data)
	if err != nil {
		return nil, err
	}
	return encodeWAV(resample(samples, rate, TargetSampleRate), TargetSampleRate)
}
