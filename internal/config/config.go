// Package config loads service configuration from an optional YAML file and
// environment variables. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by STT_PROVIDER and EXTRACTION_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderMock   = "mock"
)

type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	STT           STTConfig           `yaml:"stt"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Sheets        SheetsConfig        `yaml:"sheets"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Recording     RecordingConfig     `yaml:"recording"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal string `yaml:"principal"`
	HTTPPort  string `yaml:"httpPort"`
	Timezone  string `yaml:"timezone"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

type STTConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	Language        string        `yaml:"language"`
	LanguageCode    string        `yaml:"languageCode"`
	SampleRateHz    int           `yaml:"sampleRateHz"`
	AudioEncoding   string        `yaml:"audioEncoding"`
	CredentialsFile string        `yaml:"credentialsFile"`
	Timeout         time.Duration `yaml:"timeout"`
}

type ExtractionConfig struct {
	Provider           string        `yaml:"provider"`
	Model              string        `yaml:"model"`
	Temperature        float64       `yaml:"temperature"`
	MaxTokens          int           `yaml:"maxTokens"`
	MaxTranscriptChars int           `yaml:"maxTranscriptChars"`
	Timeout            time.Duration `yaml:"timeout"`
}

type SheetsConfig struct {
	SpreadsheetID       string        `yaml:"spreadsheetId"`
	ServiceAccountEmail string        `yaml:"serviceAccountEmail"`
	PrivateKey          string        `yaml:"privateKey"`
	Timeout             time.Duration `yaml:"timeout"`
	EnsureGeneral       bool          `yaml:"ensureGeneral"`
}

type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	TopicProcessed string   `yaml:"topicProcessed"`
	TopicFailed    string   `yaml:"topicFailed"`
	Principal      string   `yaml:"principal"`
}

type PipelineConfig struct {
	SuccessResetDelay time.Duration `yaml:"successResetDelay"`
	ErrorResetDelay   time.Duration `yaml:"errorResetDelay"`
}

type RecordingConfig struct {
	MaxAudioBytes int64         `yaml:"maxAudioBytes"`
	MaxDuration   time.Duration `yaml:"maxDuration"`
}

type ObservabilityConfig struct {
	LogLevel    string `yaml:"logLevel"`
	LogFormat   string `yaml:"logFormat"`
	MetricsPort string `yaml:"metricsPort"`
	Env         string `yaml:"env"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal: "svc-voice-notes",
			HTTPPort:  "8080",
			Timezone:  "Europe/Madrid",
		},
		STT: STTConfig{
			Provider:      ProviderOpenAI,
			Model:         "whisper-1",
			Language:      "es",
			LanguageCode:  "es-ES",
			SampleRateHz:  48000,
			AudioEncoding: "WEBM_OPUS",
			Timeout:       60 * time.Second,
		},
		Extraction: ExtractionConfig{
			Provider:           ProviderOpenAI,
			Model:              "gpt-4o-mini",
			Temperature:        0.1,
			MaxTokens:          1000,
			MaxTranscriptChars: 6000,
			Timeout:            60 * time.Second,
		},
		Sheets: SheetsConfig{
			Timeout:       30 * time.Second,
			EnsureGeneral: true,
		},
		Kafka: KafkaConfig{
			TopicProcessed: "notes.processed",
			TopicFailed:    "notes.failed",
		},
		Pipeline: PipelineConfig{
			SuccessResetDelay: 3 * time.Second,
			ErrorResetDelay:   10 * time.Second,
		},
		Recording: RecordingConfig{
			MaxAudioBytes: 25 * 1024 * 1024,
			MaxDuration:   10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: "9090",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any), and environment variables, in that order.
// Invalid environment values fall back to the previous layer.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.HTTPPort = envOrDefault("HTTP_PORT", c.Service.HTTPPort)
	c.Service.Timezone = envOrDefault("TIMEZONE", c.Service.Timezone)

	c.OpenAI.APIKey = envOrDefault("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = envOrDefault("OPENAI_BASE_URL", c.OpenAI.BaseURL)

	c.STT.Provider = strings.ToLower(envOrDefault("STT_PROVIDER", c.STT.Provider))
	c.STT.Model = envOrDefault("STT_MODEL", c.STT.Model)
	c.STT.Language = envOrDefault("STT_LANGUAGE", c.STT.Language)
	c.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", c.STT.LanguageCode)
	c.STT.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", c.STT.SampleRateHz)
	c.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", c.STT.AudioEncoding)
	c.STT.CredentialsFile = envOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.STT.CredentialsFile)
	c.STT.Timeout = envOrDefaultDuration("STT_TIMEOUT", c.STT.Timeout)

	c.Extraction.Provider = strings.ToLower(envOrDefault("EXTRACTION_PROVIDER", c.Extraction.Provider))
	c.Extraction.Model = envOrDefault("EXTRACTION_MODEL", c.Extraction.Model)
	c.Extraction.Temperature = envOrDefaultFloat("EXTRACTION_TEMPERATURE", c.Extraction.Temperature)
	c.Extraction.MaxTokens = envOrDefaultInt("EXTRACTION_MAX_TOKENS", c.Extraction.MaxTokens)
	c.Extraction.MaxTranscriptChars = envOrDefaultInt("EXTRACTION_MAX_TRANSCRIPT_CHARS", c.Extraction.MaxTranscriptChars)
	c.Extraction.Timeout = envOrDefaultDuration("EXTRACTION_TIMEOUT", c.Extraction.Timeout)

	c.Sheets.SpreadsheetID = envOrDefault("GOOGLE_SHEET_ID", c.Sheets.SpreadsheetID)
	c.Sheets.ServiceAccountEmail = envOrDefault("GOOGLE_SERVICE_ACCOUNT_EMAIL", c.Sheets.ServiceAccountEmail)
	c.Sheets.PrivateKey = expandNewlines(envOrDefault("GOOGLE_PRIVATE_KEY", c.Sheets.PrivateKey))
	c.Sheets.Timeout = envOrDefaultDuration("SHEETS_TIMEOUT", c.Sheets.Timeout)
	c.Sheets.EnsureGeneral = envOrDefaultBool("SHEETS_ENSURE_GENERAL", c.Sheets.EnsureGeneral)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicProcessed = envOrDefault("KAFKA_TOPIC_PROCESSED", c.Kafka.TopicProcessed)
	c.Kafka.TopicFailed = envOrDefault("KAFKA_TOPIC_FAILED", c.Kafka.TopicFailed)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Principal
	}

	c.Pipeline.SuccessResetDelay = envOrDefaultDuration("PIPELINE_SUCCESS_RESET_DELAY", c.Pipeline.SuccessResetDelay)
	c.Pipeline.ErrorResetDelay = envOrDefaultDuration("PIPELINE_ERROR_RESET_DELAY", c.Pipeline.ErrorResetDelay)

	c.Recording.MaxAudioBytes = envOrDefaultInt64("RECORDING_MAX_AUDIO_BYTES", c.Recording.MaxAudioBytes)
	c.Recording.MaxDuration = envOrDefaultDuration("RECORDING_MAX_DURATION", c.Recording.MaxDuration)

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", envOrDefault("ZEROLOG_LOG_LEVEL", c.Observability.LogLevel))
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsPort = envOrDefault("METRICS_PORT", c.Observability.MetricsPort)
	c.Observability.Env = envOrDefault("ENV", c.Observability.Env)
	if c.Observability.Env == "dev" && os.Getenv("LOG_FORMAT") == "" {
		c.Observability.LogFormat = "console"
	}
}

// UsesOpenAI reports whether any backend needs the OpenAI key.
func (c *Config) UsesOpenAI() bool {
	return c.STT.Provider == ProviderOpenAI || c.Extraction.Provider == ProviderOpenAI
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// expandNewlines turns literal \n sequences, as found in single-line
// environment values, into newlines.
func expandNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
