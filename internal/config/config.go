// README: Config loader with env defaults for HTTP, maps, cache, speech, NER and LLM backend settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported generative backends.
const (
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
	ProviderOllama      = "ollama"
)

// Supported text extraction strategies for the routing endpoints.
const (
	ExtractorKeyword = "keyword"
	ExtractorNER     = "ner"
)

type LLMConfig struct {
	Provider string
	Timeout  time.Duration
	OpenAI   struct {
		APIKey  string
		Model   string
		BaseURL string
	}
	Gemini struct {
		APIKey string
		Model  string
	}
	HuggingFace struct {
		APIKey  string
		Model   string
		BaseURL string
	}
	Ollama struct {
		Host  string
		Model string
	}
}

type MapsConfig struct {
	APIKey            string
	GeocodeTimeout    time.Duration
	DirectionsTimeout time.Duration
}

type Config struct {
	HTTP struct {
		Addr        string
		CORSOrigins []string
	}
	Log struct {
		Level  string
		Format string
	}
	Maps  MapsConfig
	Cache struct {
		RedisAddr string
		TTL       time.Duration
	}
	Extractor string
	NER       struct {
		APIKey  string
		Model   string
		BaseURL string
	}
	Speech struct {
		APIKey  string
		Model   string
		BaseURL string
	}
	LLM LLMConfig
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("NAV_HTTP_ADDR", ":8000")
	cfg.HTTP.CORSOrigins = envList("NAV_CORS_ORIGINS")
	cfg.Log.Level = envOrDefault("NAV_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("NAV_LOG_FORMAT", "json")

	cfg.Maps.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Maps.GeocodeTimeout = envOrDefaultDuration("NAV_GEOCODE_TIMEOUT", 10*time.Second)
	cfg.Maps.DirectionsTimeout = envOrDefaultDuration("NAV_DIRECTIONS_TIMEOUT", 15*time.Second)

	cfg.Cache.RedisAddr = os.Getenv("NAV_REDIS_ADDR")
	cfg.Cache.TTL = envOrDefaultDuration("NAV_GEOCODE_CACHE_TTL", 24*time.Hour)

	cfg.Extractor = strings.ToLower(envOrDefault("NAV_EXTRACTOR", ExtractorKeyword))

	hfKey := os.Getenv("HF_API_KEY")
	hfBase := envOrDefault("HF_BASE_URL", "https://api-inference.huggingface.co")
	cfg.NER.APIKey = hfKey
	cfg.NER.Model = envOrDefault("HF_NER_MODEL", "dslim/bert-base-NER")
	cfg.NER.BaseURL = hfBase

	openAIKey := os.Getenv("OPENAI_API_KEY")
	openAIBase := envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.Speech.APIKey = openAIKey
	cfg.Speech.Model = envOrDefault("NAV_ASR_MODEL", "whisper-1")
	cfg.Speech.BaseURL = openAIBase

	cfg.LLM.Provider = strings.ToLower(envOrDefault("NAV_LLM_PROVIDER", ProviderOpenAI))
	cfg.LLM.Timeout = envOrDefaultDuration("NAV_BACKEND_TIMEOUT", 60*time.Second)
	cfg.LLM.OpenAI.APIKey = openAIKey
	cfg.LLM.OpenAI.Model = envOrDefault("OPENAI_MODEL", "gpt-4")
	cfg.LLM.OpenAI.BaseURL = openAIBase
	cfg.LLM.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.LLM.Gemini.Model = envOrDefault("GEMINI_MODEL", "gemini-2.0-flash")
	cfg.LLM.HuggingFace.APIKey = hfKey
	cfg.LLM.HuggingFace.Model = envOrDefault("HF_MODEL", "mistralai/Mistral-7B-Instruct-v0.3")
	cfg.LLM.HuggingFace.BaseURL = hfBase
	cfg.LLM.Ollama.Host = envOrDefault("OLLAMA_HOST", "http://localhost:11434")
	cfg.LLM.Ollama.Model = envOrDefault("OLLAMA_MODEL", "llama3")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Maps.APIKey == "" {
		errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY is required"))
	}
	switch c.Extractor {
	case ExtractorKeyword:
	case ExtractorNER:
		if c.NER.APIKey == "" {
			errs = append(errs, errors.New("HF_API_KEY is required when NAV_EXTRACTOR=ner"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NAV_EXTRACTOR %q", c.Extractor))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai backend"))
		}
	case ProviderGemini:
		if c.LLM.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini backend"))
		}
	case ProviderHuggingFace:
		if c.LLM.HuggingFace.APIKey == "" {
			errs = append(errs, errors.New("HF_API_KEY is required for the huggingface backend"))
		}
	case ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown NAV_LLM_PROVIDER %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envOrDefaultDuration accepts Go durations ("15s") or a bare number of seconds.
func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n := envOrDefaultInt(key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
