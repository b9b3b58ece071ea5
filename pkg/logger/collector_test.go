package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) published() [][]AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]AggregatedLogEntry, len(p.batches))
	copy(out, p.batches)
	return out
}

func TestCollectorDeduplicatesAndFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Topic:          "nodeflow.logs",
		Publisher:      pub,
	})
	defer c.Close()

	// the same record twice stays one entry, under the threshold
	c.AddLog("warn", "slow insert", map[string]interface{}{"table": "bars"}, "store.go:42")
	c.AddLog("warn", "slow insert", map[string]interface{}{"table": "bars"}, "store.go:42")
	require.Empty(t, pub.published())

	// a second distinct entry hits the threshold
	c.AddLog("error", "publish failed", nil, "pub.go:17")
	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 10*time.Millisecond)

	counts := map[string]int{}
	for _, e := range pub.published()[0] {
		counts[e.Message] = e.Count
	}
	require.Equal(t, 2, counts["slow insert"])
	require.Equal(t, 1, counts["publish failed"])
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "nodeflow.logs",
		Publisher:      pub,
	})

	c.AddLog("warn", "feed reconnect", nil, "client.go:88")
	c.Close()

	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 10*time.Millisecond)
	batch := pub.published()[0]
	require.Len(t, batch, 1)
	require.Equal(t, "feed reconnect", batch[0].Message)
}
