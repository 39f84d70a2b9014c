// Package stream fans durable ledger facts out to Kafka for downstream
// consumers (analytics jobs, notification pipelines). The ledger row is the
// source of truth; publishing is best-effort and never fails an emit.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"phdpeer/internal/ledger"
)

// Record is the JSON payload produced to the ledger topic. Field names are
// part of the stream contract for consumers.
type Record struct {
	ID           string         `json:"id"`
	SubjectID    string         `json:"subject_id"`
	ActorRole    string         `json:"actor_role"`
	EventType    string         `json:"event_type"`
	EntityType   string         `json:"entity_type,omitempty"`
	EntityID     string         `json:"entity_id,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	Timestamp    string         `json:"timestamp"`
	SourceModule string         `json:"source_module"`
}

// Publisher produces ledger facts to a Kafka topic, keyed by subject so each
// subject's facts stay ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the topic exists. Returns nil if no
// brokers are configured (stream fan-out disabled).
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 3, 1, nil, topic); err != nil {
		// Topic may already exist; anything else is reported at first produce.
		logger.Warn("ledger topic creation skipped", "topic", topic, "error", err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish produces one fact asynchronously. Failures are logged, never
// returned: the durable row already exists and consumers can re-materialize
// from it.
func (p *Publisher) Publish(ctx context.Context, event ledger.Event) {
	payload, err := json.Marshal(MarshalRecord(event))
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal ledger stream record", "event_id", event.ID, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SubjectID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("produce ledger event",
				"event_id", event.ID,
				"topic", p.topic,
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

// MarshalRecord converts a ledger event into its stream representation.
func MarshalRecord(event ledger.Event) Record {
	return Record{
		ID:           event.ID.String(),
		SubjectID:    event.SubjectID.String(),
		ActorRole:    string(event.ActorRole),
		EventType:    string(event.Type),
		EntityType:   event.EntityType,
		EntityID:     event.EntityID,
		Metadata:     event.Metadata,
		Timestamp:    event.Timestamp.UTC().Format(time.RFC3339Nano),
		SourceModule: event.SourceModule,
	}
}
