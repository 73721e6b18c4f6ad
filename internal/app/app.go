package app

import (
	"context"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"voice-notes-service/internal/config"
	"voice-notes-service/internal/events"
	"voice-notes-service/internal/models"
	"voice-notes-service/internal/observability/logging"
	"voice-notes-service/internal/schema"
	"voice-notes-service/internal/service/audio"
	"voice-notes-service/internal/service/dispatch"
	"voice-notes-service/internal/service/extraction"
	"voice-notes-service/internal/service/pipeline"
	"voice-notes-service/internal/service/rows"
	"voice-notes-service/internal/service/stt"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Location    *time.Location

	Recordings *audio.Handler
	Sheets     Spreadsheet
	Processor  *pipeline.Processor
	Publisher  *events.Publisher

	transcriber stt.Adapter
}

// New constructs a new Application from the provided configuration.
// Missing credentials do not fail construction: every run reports them as a
// configuration error instead.
func New(ctx context.Context, cfg *config.Config) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	a.Location = loadLocation(cfg.Service.Timezone)
	a.Recordings = audio.NewHandlerWithLimits(audio.RecordingLimits{
		MaxAudioBytes: cfg.Recording.MaxAudioBytes,
		MaxDuration:   cfg.Recording.MaxDuration,
	})
	a.Sheets = newSpreadsheet(ctx, cfg)
	a.transcriber = newTranscriber(ctx, cfg)
	a.Publisher = events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicProcessed: cfg.Kafka.TopicProcessed,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
	})

	router := extraction.NewRouter(newExtractor(cfg), schema.NewWithClock(func() time.Time {
		return time.Now().In(a.Location)
	}))

	a.Processor = pipeline.NewProcessor(
		a.transcriber,
		router,
		rows.NewMapper(a.Location),
		dispatch.New(a.Sheets),
		pipeline.WithPreflight(cfg.Validate),
		pipeline.WithPublisher(a.Publisher),
		pipeline.WithRecordingStore(a.Recordings),
		pipeline.WithConfig(pipeline.Config{
			SuccessResetDelay: cfg.Pipeline.SuccessResetDelay,
			ErrorResetDelay:   cfg.Pipeline.ErrorResetDelay,
		}),
	)

	if err := cfg.Validate(); err != nil {
		appLogger.Warn().Err(err).Msg("Configuration incomplete, runs will fail until it is fixed")
	}

	appLogger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("extractionProvider", cfg.Extraction.Provider).
		Str("timezone", a.Location.String()).
		Msg("Voice notes service application created")
	return a
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.Cfg.Observability.LogLevel
	logCfg.Format = a.Cfg.Observability.LogFormat
	logging.Init(logCfg)

	a.Logger = logging.WithComponent("application")
	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Observability.Env).
		Msg("Logger setup completed")
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice notes service starting")

	if a.Cfg.Sheets.EnsureGeneral && a.Cfg.ValidateSheets() == nil {
		if err := a.Sheets.EnsureDestination(ctx, models.GeneralDestination); err != nil {
			startLogger.Warn().Err(err).Msg("Could not ensure the General destination")
		}
	}
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	a.Processor.Close()
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Error().Err(err).Msg("Error closing publisher")
	}
	if err := a.transcriber.Close(); err != nil {
		shutdownLogger.Error().Err(err).Msg("Error closing transcriber")
	}

	shutdownLogger.Info().Msg("Voice notes service shutting down")
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("timezone", name).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}
