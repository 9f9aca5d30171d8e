//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"privacygate/internal/events"
	"privacygate/pkg/testutil/containers"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redpanda := containers.NewRedpandaContainer(t)
	const topic = "privacy.events.test"

	publisher, err := events.NewKafkaPublisher(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	defer publisher.Close()

	sent := events.Event{
		Type:         events.TypeBudgetLow,
		DataSourceID: "hotel-feed-1",
		Remaining:    0.5,
		Allowance:    10.0,
	}
	require.NoError(t, publisher.Emit(ctx, sent))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "hotel-feed-1", string(records[0].Key))

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, events.TypeBudgetLow, got.Type)
	assert.Equal(t, 0.5, got.Remaining)
	assert.False(t, got.Timestamp.IsZero())
}
