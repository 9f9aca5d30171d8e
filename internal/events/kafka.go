package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher emits events to a Kafka topic. Events are keyed by data
// source so consumers see per-source ordering.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	// One partition is enough for advisory events; consumers that need
	// scale can repartition downstream.
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create topic %q: %w", topic, resp.Err)
	}

	return &KafkaPublisher{client: client, topic: topic}, nil
}

// Emit publishes the event synchronously.
func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.DataSourceID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// Close flushes and releases the Kafka client.
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
