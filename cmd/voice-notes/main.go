package main

import (
	"errors"
	"fmt"
	"os"

	"voice-notes-service/internal/config"
	"voice-notes-service/internal/service/pipeline"
)

// Exit codes for different failure modes
const (
	ExitSuccess       = 0
	ExitRunFailed     = 1 // The pipeline reached ERROR
	ExitError         = 2 // Usage or runtime error
	ExitConfiguration = 3 // Required configuration is missing
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var cfgErr *config.ConfigurationError
		var runErr *pipeline.Error
		switch {
		case errors.As(err, &runErr) && runErr.Kind == pipeline.KindConfiguration,
			errors.As(err, &cfgErr):
			os.Exit(ExitConfiguration)
		case errors.As(err, &runErr):
			os.Exit(ExitRunFailed)
		default:
			os.Exit(ExitError)
		}
	}
}
