// Package events publishes emitted cues to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"livesub/internal/metrics"
)

// CueEvent is the wire form of one emitted subtitle cue.
type CueEvent struct {
	SessionID string    `json:"session_id"`
	Sequence  int       `json:"sequence"`
	StartSec  float64   `json:"start_sec"`
	EndSec    float64   `json:"end_sec"`
	Text      string    `json:"text"`
	Original  string    `json:"original,omitempty"`
	Language  string    `json:"language,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Publisher writes cue events to a Kafka topic, keyed by session so cues for
// one session stay ordered within a partition. When disabled it degrades to
// log-only mode.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// NewPublisher creates a cue publisher. A nil or disabled config yields a
// log-only publisher, so callers never need to nil-check.
func NewPublisher(cfg *Config) *Publisher {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka disabled, cue events in log-only mode")
		return &Publisher{enabled: false}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka cue publisher initialized")
	return &Publisher{writer: writer, topic: cfg.Topic, enabled: true}
}

// Publish sends one cue event. Best-effort from the orchestrator's point of
// view; the caller logs and continues on error.
func (p *Publisher) Publish(ctx context.Context, ev CueEvent) error {
	start := time.Now()

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	log.Debug().
		Str("session", ev.SessionID).
		Int("sequence", ev.Sequence).
		RawJSON("payload", payload).
		Msg("publishing cue event")

	if !p.enabled || p.writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: payload,
	}
	err = p.writer.WriteMessages(ctx, msg)
	metrics.Default.RecordCuePublish(err, time.Since(start).Seconds())
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Str("session", ev.SessionID).Msg("failed to write cue event")
		return err
	}
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
