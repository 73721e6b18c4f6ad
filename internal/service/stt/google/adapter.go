// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"errors"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-notes-service/internal/service/stt"
)

const providerName = "google"

// Config holds Google STT configuration.
type Config struct {
	LanguageCode    string
	SampleRateHz    int32
	AudioEncoding   string
	Punctuation     bool
	CredentialsFile string
}

// DefaultConfig returns default Google STT configuration for browser
// recordings (Opus in a WebM container).
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "es-ES",
		SampleRateHz:  48000,
		AudioEncoding: "WEBM_OPUS",
		Punctuation:   true,
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Adapter implements stt.Adapter using synchronous Recognize calls.
type Adapter struct {
	recognize recognizeFunc
	close     func() error
	cfg       Config
}

// New creates a new Google STT adapter. Credentials come from
// cfg.CredentialsFile or, when empty, GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	recognize := func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	}
	return &Adapter{recognize: recognize, close: c.Close, cfg: cfg}, nil
}

// Name implements stt.Adapter.
func (a *Adapter) Name() string {
	return providerName
}

// Transcribe sends the whole recording and joins the best alternative of
// every result.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &stt.Error{Provider: providerName, Kind: stt.KindInvalidAudio, Err: stt.ErrEmptyAudio}
	}

	resp, err := a.recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(a.cfg.AudioEncoding),
			SampleRateHertz:            a.cfg.SampleRateHz,
			LanguageCode:               a.cfg.LanguageCode,
			EnableAutomaticPunctuation: a.cfg.Punctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", &stt.Error{Provider: providerName, Kind: classify(err), Err: err}
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", &stt.Error{Provider: providerName, Kind: stt.KindEmpty, Err: stt.ErrEmptyTranscript}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	if a.close != nil {
		return a.close()
	}
	return nil
}

// parseAudioEncoding converts string encoding name to protobuf enum.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_WEBM_OPUS
	}
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return stt.KindTimeout
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.OutOfRange:
		return stt.KindInvalidAudio
	case codes.Unauthenticated, codes.PermissionDenied:
		return stt.KindUnauthenticated
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		return stt.KindUnavailable
	case codes.DeadlineExceeded:
		return stt.KindTimeout
	default:
		return stt.KindProvider
	}
}
