package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "authgate/pkg/platform/audit"
)

// Sink writes audit events to a Kafka topic as JSON, keyed by user ID so one
// user's events stay ordered within a partition. It implements audit.Store.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to brokers. Extra kgo options are appended after the defaults.
func New(brokers []string, topic string, opts ...kgo.Opt) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka audit sink: no brokers configured")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("kafka audit sink: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// Append produces event synchronously.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Health pings the cluster.
func (s *Sink) Health(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close flushes pending records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
