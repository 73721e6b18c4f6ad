// Package http exposes the recorder API over chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"voice-notes-service/internal/app"
	"voice-notes-service/internal/config"
	"voice-notes-service/internal/observability"
	"voice-notes-service/internal/observability/metrics"
	"voice-notes-service/internal/service/audio"
	"voice-notes-service/internal/service/pipeline"
	"voice-notes-service/internal/service/sheets"
)

// multipartMemory bounds the in-memory part of an upload; larger files spill
// to disk before the recording limits are checked.
const multipartMemory = 8 << 20

// Destinations manages the spreadsheet tabs.
type Destinations interface {
	ListDestinations(ctx context.Context) ([]string, error)
	CreateDestination(ctx context.Context, name string) error
	RenameDestination(ctx context.Context, from, to string) error
}

// Pipeline runs and reports processing runs.
type Pipeline interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Status() pipeline.Status
}

// Recordings stores uploaded voice notes.
type Recordings interface {
	Accept(data []byte, contentType string, duration time.Duration) (audio.Recording, error)
	Get(id string) (audio.Recording, error)
	List() []audio.Recording
	Delete(id string) error
}

// API bundles the backends served by the router.
type API struct {
	Destinations Destinations
	Pipeline     Pipeline
	Recordings   Recordings
	// Ready reports missing configuration; nil means always ready.
	Ready func() error
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	return NewAPIRouter(API{
		Destinations: application.Sheets,
		Pipeline:     application.Processor,
		Recordings:   application.Recordings,
		Ready:        application.Cfg.Validate,
	}, metrics.DefaultMetrics)
}

// NewAPIRouter builds the router over explicit backends.
func NewAPIRouter(api API, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(m))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if api.Ready != nil {
			if err := api.Ready(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", api.status)

		r.Get("/destinations", api.listDestinations)
		r.Post("/destinations", api.createDestination)
		r.Put("/destinations/{name}", api.renameDestination)

		r.Post("/recordings", api.uploadRecording)
		r.Get("/recordings", api.listRecordings)
		r.Delete("/recordings/{id}", api.deleteRecording)
		r.Post("/recordings/{id}/process", api.processRecording)
	})

	return r
}

type nameRequest struct {
	Name string `json:"name"`
}

type processRequest struct {
	Destination string `json:"destination"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

func (api API) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.Pipeline.Status())
}

func (api API) listDestinations(w http.ResponseWriter, r *http.Request) {
	names, err := api.Destinations.ListDestinations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"destinations": names})
}

func (api API) createDestination(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := api.Destinations.CreateDestination(r.Context(), body.Name); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("destination", body.Name).Msg("Destination created")
	writeJSON(w, http.StatusCreated, nameRequest{Name: body.Name})
}

func (api API) renameDestination(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "name")
	var body nameRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := api.Destinations.RenameDestination(r.Context(), from, body.Name); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("from", from).Str("to", body.Name).Msg("Destination renamed")
	writeJSON(w, http.StatusOK, nameRequest{Name: body.Name})
}

// uploadRecording accepts either a multipart form with an "audio" file and a
// "duration" field, or a raw audio body with a ?duration= query parameter.
// Durations are in seconds.
func (api API) uploadRecording(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		contentType string
		rawDuration string
	)

	if err := r.ParseMultipartForm(multipartMemory); err == nil {
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing audio file"})
			return
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read audio file"})
			return
		}
		contentType = header.Header.Get("Content-Type")
		rawDuration = r.FormValue("duration")
	} else {
		var readErr error
		if data, readErr = io.ReadAll(r.Body); readErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
			return
		}
		contentType = r.Header.Get("Content-Type")
		rawDuration = r.URL.Query().Get("duration")
	}

	duration, err := parseSeconds(rawDuration)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rec, err := api.Recordings.Accept(data, contentType, duration)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (api API) listRecordings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]audio.Recording{"recordings": api.Recordings.List()})
}

func (api API) deleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := api.Recordings.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api API) processRecording(w http.ResponseWriter, r *http.Request) {
	var body processRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rec, err := api.Recordings.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := api.Pipeline.Process(r.Context(), pipeline.Request{
		RecordingID: rec.ID,
		Audio:       rec.Audio,
		Destination: body.Destination,
		Duration:    rec.Duration,
		CapturedAt:  rec.CreatedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseSeconds(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		cfgErr *config.ConfigurationError
		runErr *pipeline.Error
	)
	switch {
	case errors.Is(err, pipeline.ErrInvalidDestination):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &runErr):
		if runErr.Kind == pipeline.KindConfiguration {
			return http.StatusFailedDependency
		}
		return http.StatusBadGateway
	case errors.Is(err, audio.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, audio.ErrNotFound), errors.Is(err, sheets.ErrDestinationNotFound):
		return http.StatusNotFound
	case errors.Is(err, audio.ErrEmptyAudio),
		errors.Is(err, audio.ErrTooLong),
		errors.Is(err, audio.ErrUnsupportedType),
		errors.Is(err, sheets.ErrReservedDestination),
		errors.Is(err, sheets.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, sheets.ErrDestinationExists):
		return http.StatusConflict
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var runErr *pipeline.Error
	if errors.As(err, &runErr) {
		resp.Stage = runErr.Stage
		resp.Kind = string(runErr.Kind)
		resp.Message = runErr.Error()
	}

	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Msg("Request failed")
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
