package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"voice-notes-service/internal/config"
	"voice-notes-service/internal/models"
	"voice-notes-service/internal/service/extraction"
	extractionmock "voice-notes-service/internal/service/extraction/mock"
	extractionopenai "voice-notes-service/internal/service/extraction/openai"
	"voice-notes-service/internal/service/sheets"
	"voice-notes-service/internal/service/stt"
	sttgoogle "voice-notes-service/internal/service/stt/google"
	sttmock "voice-notes-service/internal/service/stt/mock"
	sttopenai "voice-notes-service/internal/service/stt/openai"
)

// Spreadsheet is the set of tab operations the service uses.
type Spreadsheet interface {
	AppendRows(ctx context.Context, destination string, rows []models.Row) error
	DestinationExists(ctx context.Context, name string) (bool, error)
	ListDestinations(ctx context.Context) ([]string, error)
	CreateDestination(ctx context.Context, name string) error
	RenameDestination(ctx context.Context, from, to string) error
	EnsureDestination(ctx context.Context, name string) error
}

func newSpreadsheet(ctx context.Context, cfg *config.Config) Spreadsheet {
	if err := cfg.ValidateSheets(); err != nil {
		return unavailable{err: err}
	}
	client, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:       cfg.Sheets.SpreadsheetID,
		ServiceAccountEmail: cfg.Sheets.ServiceAccountEmail,
		PrivateKey:          cfg.Sheets.PrivateKey,
		Timeout:             cfg.Sheets.Timeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Sheets client")
		return unavailable{err: err}
	}
	return client
}

func newTranscriber(ctx context.Context, cfg *config.Config) stt.Adapter {
	switch cfg.STT.Provider {
	case config.ProviderMock:
		log.Info().Msg("Using mock STT adapter")
		return sttmock.New()

	case config.ProviderGoogle:
		adapter, err := sttgoogle.New(ctx, sttgoogle.Config{
			LanguageCode:    cfg.STT.LanguageCode,
			SampleRateHz:    int32(cfg.STT.SampleRateHz),
			AudioEncoding:   cfg.STT.AudioEncoding,
			Punctuation:     true,
			CredentialsFile: cfg.STT.CredentialsFile,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Google STT adapter")
			return unavailable{err: err}
		}
		log.Info().Str("languageCode", cfg.STT.LanguageCode).Msg("Using Google STT adapter")
		return adapter

	case config.ProviderOpenAI:
		adapter, err := sttopenai.New(sttopenai.Config{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.STT.Model,
			Language: cfg.STT.Language,
			Timeout:  cfg.STT.Timeout,
		})
		if err != nil {
			return unavailable{err: err}
		}
		log.Info().Str("model", cfg.STT.Model).Msg("Using OpenAI STT adapter")
		return adapter

	default:
		return unavailable{err: fmt.Errorf("unknown STT provider %q", cfg.STT.Provider)}
	}
}

func newExtractor(cfg *config.Config) extraction.Extractor {
	if cfg.Extraction.Provider == config.ProviderMock {
		log.Info().Msg("Using mock extractor")
		return extractionmock.New()
	}

	ext, err := extractionopenai.New(extractionopenai.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		Model:              cfg.Extraction.Model,
		Temperature:        cfg.Extraction.Temperature,
		MaxTokens:          cfg.Extraction.MaxTokens,
		MaxTranscriptChars: cfg.Extraction.MaxTranscriptChars,
		Timeout:            cfg.Extraction.Timeout,
	})
	if err != nil {
		return unavailable{err: err}
	}
	return ext
}

// unavailable stands in for a backend that could not be constructed.
// Every call returns the construction error.
type unavailable struct {
	err error
}

func (u unavailable) Name() string { return "unavailable" }
func (u unavailable) Close() error { return nil }

func (u unavailable) Transcribe(context.Context, []byte) (string, error) {
	return "", &stt.Error{Provider: "unavailable", Kind: stt.KindProvider, Err: u.err}
}

func (u unavailable) ExtractStudents(context.Context, string) (string, error)    { return "", u.err }
func (u unavailable) ExtractGeneralNote(context.Context, string) (string, error) { return "", u.err }
func (u unavailable) ExtractLeads(context.Context, string) (string, error)       { return "", u.err }

func (u unavailable) AppendRows(context.Context, string, []models.Row) error { return u.err }
func (u unavailable) DestinationExists(context.Context, string) (bool, error) {
	return false, u.err
}
func (u unavailable) ListDestinations(context.Context) ([]string, error)      { return nil, u.err }
func (u unavailable) CreateDestination(context.Context, string) error         { return u.err }
func (u unavailable) RenameDestination(context.Context, string, string) error { return u.err }
func (u unavailable) EnsureDestination(context.Context, string) error         { return u.err }
