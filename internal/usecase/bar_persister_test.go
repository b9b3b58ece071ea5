package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"NodeFlow/internal/domain/models"
)

func TestBarPersisterFlushesOnClose(t *testing.T) {
	store := &fakeBarStore{}
	p := NewBarPersister(store, testLogger(t))
	p.flushTick = time.Hour
	p.Start()

	sink := p.Sink()
	for i := 0; i < 3; i++ {
		sink(&models.Bar{
			Symbol:    "NQ",
			Timestamp: time.Date(2025, 6, 3, 14, 0, i, 0, time.UTC),
			Close:     21400 + float64(i),
			Volume:    10,
		})
	}
	p.Close()

	assert.Equal(t, 3, store.batchTotal())
}

func TestBarPersisterFlushesOnBatchSize(t *testing.T) {
	store := &fakeBarStore{}
	p := NewBarPersister(store, testLogger(t))
	p.flushTick = time.Hour
	p.batchSize = 2
	p.Start()
	defer p.Close()

	sink := p.Sink()
	sink(&models.Bar{Symbol: "NQ", Close: 21400, Volume: 1})
	sink(&models.Bar{Symbol: "NQ", Close: 21401, Volume: 1})

	assert.Eventually(t, func() bool {
		return store.batchTotal() == 2
	}, 2*time.Second, 10*time.Millisecond)
}
