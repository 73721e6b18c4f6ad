// Command noteclient uploads a local recording to a running voice notes
// service and triggers processing for a destination.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Processing can take a full transcription plus an extraction call.
const requestTimeout = 3 * time.Minute

type recording struct {
	ID          string  `json:"id"`
	Size        int     `json:"size"`
	DurationSec float64 `json:"durationSeconds"`
}

func main() {
	var (
		audioFile   string
		serverAddr  string
		destination string
		duration    time.Duration
		uploadOnly  bool
	)

	cmd := &cobra.Command{
		Use:          "noteclient",
		Short:        "Upload a recording and process it",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			rec, err := upload(ctx, serverAddr, audioFile, duration)
			if err != nil {
				return err
			}
			log.Printf("Uploaded %s: id=%s bytes=%d duration=%.1fs", audioFile, rec.ID, rec.Size, rec.DurationSec)

			if uploadOnly {
				return nil
			}

			start := time.Now()
			body, err := process(ctx, serverAddr, rec.ID, destination)
			if err != nil {
				return err
			}
			log.Printf("Processed %s into %q in %v", rec.ID, destination, time.Since(start).Round(time.Millisecond))
			_, err = os.Stdout.Write(body)
			return err
		},
	}

	cmd.Flags().StringVar(&audioFile, "audio", "", "Path to the recorded audio file")
	cmd.Flags().StringVar(&serverAddr, "server", "http://localhost:8080", "Voice notes API base URL")
	cmd.Flags().StringVar(&destination, "destination", "General", "Destination tab")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Recording length (e.g. 42s)")
	cmd.Flags().BoolVar(&uploadOnly, "upload-only", false, "Upload without processing")
	_ = cmd.MarkFlagRequired("audio")

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func upload(ctx context.Context, server, path string, duration time.Duration) (recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recording{}, fmt.Errorf("read audio file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filepath.Base(path))
	if err != nil {
		return recording{}, err
	}
	if _, err := part.Write(data); err != nil {
		return recording{}, err
	}
	if err := mw.WriteField("duration", strconv.FormatFloat(duration.Seconds(), 'f', 3, 64)); err != nil {
		return recording{}, err
	}
	if err := mw.Close(); err != nil {
		return recording{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/v1/recordings", &body)
	if err != nil {
		return recording{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := send(req, http.StatusCreated)
	if err != nil {
		return recording{}, fmt.Errorf("upload: %w", err)
	}

	var rec recording
	if err := json.Unmarshal(respBody, &rec); err != nil {
		return recording{}, fmt.Errorf("decode upload response: %w", err)
	}
	return rec, nil
}

func process(ctx context.Context, server, id, destination string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"destination": destination})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/v1/recordings/"+id+"/process", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := send(req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}
	return body, nil
}

func send(req *http.Request, want int) ([]byte, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
