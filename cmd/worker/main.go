// Worker consumes auth events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, AUTH_EVENTS_TOPIC, KAFKA_GROUP_ID and LOKI_URL.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/meisaku0/backend/internal/config"
	"github.com/meisaku0/backend/internal/logger"
	"github.com/meisaku0/backend/internal/telemetry/loki"
)

const (
	pushTimeout  = 10 * time.Second
	pushMaxTries = 5
)

var (
	version = "dev"
	cli     struct {
		Version kong.VersionFlag
		Run     RunCmd `cmd:"" default:"1" help:"Consume auth events and forward them to Loki."`
	}
)

// RunCmd forwards events until interrupted.
type RunCmd struct {
	FromStart bool `help:"Start a new consumer group at the oldest offset instead of the newest." env:"WORKER_FROM_START"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("worker"),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)))
	cmd.FatalIfErrorf(cmd.Run())
}

func (r *RunCmd) Run(ctx context.Context) error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return err
	}
	if cfg.LokiURL == "" {
		return errors.New("worker: LOKI_URL is required")
	}
	lg := logger.Setup(cfg.LogLevel, cfg.IsDevelopment())
	log.Logger = lg

	startOffset := kafka.LastOffset
	if r.FromStart {
		startOffset = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokersList(),
		Topic:          cfg.AuthEventsTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
		StartOffset:    startOffset,
	})
	defer reader.Close()

	client := loki.NewClient(cfg.LokiURL, nil)
	lg.Info().
		Str("topic", cfg.AuthEventsTopic).
		Str("group", cfg.KafkaGroupID).
		Str("loki", cfg.LokiURL).
		Msg("worker: consuming")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				lg.Info().Msg("worker: stopped")
				return nil
			}
			lg.Error().Err(err).Msg("worker: kafka read failed")
			continue
		}

		if err := push(ctx, client, msg.Value); err != nil {
			lg.Error().Err(err).Int64("offset", msg.Offset).Msg("worker: loki push failed")
		}
	}
}

// push retries a Loki push with exponential backoff. The event is dropped after
// pushMaxTries so one bad payload cannot stall the partition.
func push(ctx context.Context, client *loki.Client, raw []byte) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()
		return struct{}{}, client.PushEventJSON(pushCtx, raw)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(pushMaxTries),
	)
	return err
}
