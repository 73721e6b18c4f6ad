package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voice-notes-service/internal/events"
)

func newWatchCommand() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail processed and failed note events from Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var mu sync.Mutex
			enc := json.NewEncoder(cmd.OutOrStdout())
			return events.Watch(ctx, events.WatchConfig{
				Brokers: cfg.Kafka.Brokers,
				Topics:  []string{cfg.Kafka.TopicProcessed, cfg.Kafka.TopicFailed},
				Since:   since,
			}, func(ev events.Event) {
				mu.Lock()
				defer mu.Unlock()
				if ev.Processed != nil {
					_ = enc.Encode(ev.Processed)
					return
				}
				_ = enc.Encode(ev.Failed)
			})
		},
	}

	cmd.Flags().DurationVar(&since, "since", time.Hour, "Replay events newer than this")
	return cmd
}
