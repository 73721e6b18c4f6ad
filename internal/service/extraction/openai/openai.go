// Package openai provides an extraction backend using OpenAI chat completions.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Config holds the extractor configuration.
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	Temperature        float64
	MaxTokens          int
	MaxTranscriptChars int
	Timeout            time.Duration
}

// DefaultConfig returns the settings the prompts were tuned with.
func DefaultConfig() Config {
	return Config{
		Model:              "gpt-4o-mini",
		Temperature:        0.1,
		MaxTokens:          1000,
		MaxTranscriptChars: 6000,
		Timeout:            60 * time.Second,
	}
}

// Extractor implements extraction.Extractor with the OpenAI API.
type Extractor struct {
	client oai.Client
	cfg    Config
}

// New creates an extractor. The API key is required.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Each logical call is issued exactly once.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	return &Extractor{client: oai.NewClient(opts...), cfg: cfg}, nil
}

// Name implements extraction.Extractor.
func (e *Extractor) Name() string {
	return "openai"
}

// ExtractStudents implements extraction.Extractor.
func (e *Extractor) ExtractStudents(ctx context.Context, transcript string) (string, error) {
	return e.complete(ctx, studentsPrompt, transcript)
}

// ExtractGeneralNote implements extraction.Extractor.
func (e *Extractor) ExtractGeneralNote(ctx context.Context, transcript string) (string, error) {
	return e.complete(ctx, generalPrompt, transcript)
}

// ExtractLeads implements extraction.Extractor.
func (e *Extractor) ExtractLeads(ctx context.Context, transcript string) (string, error) {
	return e.complete(ctx, leadsPrompt, transcript)
}

func (e *Extractor) complete(ctx context.Context, system, transcript string) (string, error) {
	if transcript == "" {
		return "", fmt.Errorf("openai: empty transcript")
	}

	user := fmt.Sprintf("AHORA ANALIZA ESTA TRANSCRIPCIÓN:\n%q\n\nRESPONDE SOLO CON EL JSON:", truncate(transcript, e.cfg.MaxTranscriptChars))

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.cfg.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		Temperature: oai.Float(e.cfg.Temperature),
	}
	if e.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = oai.Int(int64(e.cfg.MaxTokens))
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
