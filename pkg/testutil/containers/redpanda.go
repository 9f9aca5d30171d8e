//go:build integration

package containers

import (
	"context"
	"testing"

	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer wraps a testcontainers Redpanda broker, used as a
// Kafka-compatible target for the events publisher.
type RedpandaContainer struct {
	Container *tcredpanda.Container
	Brokers   []string
}

// NewRedpandaContainer starts a single-node Redpanda broker. The container
// is terminated when the test finishes.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "redpandadata/redpanda:v24.2.2")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("failed to get redpanda seed broker: %v", err)
	}

	return &RedpandaContainer{Container: container, Brokers: []string{broker}}
}
