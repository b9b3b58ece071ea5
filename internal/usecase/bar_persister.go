package usecase

import (
	"context"
	"sync"
	"time"

	"NodeFlow/internal/domain/models"
	drepo "NodeFlow/internal/domain/repository"
	"NodeFlow/pkg/logger"
)

const (
	persisterBuffer  = 4096
	defaultBatchSize = 500
	defaultFlushTick = 2 * time.Second
	persistTimeout   = 10 * time.Second
)

// BarPersister batches finished bars into the bar store off the hot
// path. The sink never blocks; bars are dropped when the buffer fills.
type BarPersister struct {
	store drepo.BarStore
	log   *logger.Logger

	batchSize int
	flushTick time.Duration

	ch       chan *models.Bar
	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewBarPersister creates a new BarPersister instance.
func NewBarPersister(store drepo.BarStore, log *logger.Logger) *BarPersister {
	return &BarPersister{
		store:     store,
		log:       log,
		batchSize: defaultBatchSize,
		flushTick: defaultFlushTick,
		ch:        make(chan *models.Bar, persisterBuffer),
		stop:      make(chan struct{}),
	}
}

// Start launches the background flush loop.
func (p *BarPersister) Start() {
	p.wg.Add(1)
	go p.loop()
}

// Sink adapts the persister into a bar callback.
func (p *BarPersister) Sink() func(*models.Bar) {
	return func(b *models.Bar) {
		select {
		case p.ch <- b:
		default:
			p.log.Warn("bar buffer full, dropping bar", logger.String("symbol", b.Symbol))
		}
	}
}

func (p *BarPersister) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushTick)
	defer ticker.Stop()

	batch := make([]*models.Bar, 0, p.batchSize)
	for {
		select {
		case b := <-p.ch:
			batch = append(batch, b)
			if len(batch) >= p.batchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-p.stop:
			// drain whatever is still buffered
			for {
				select {
				case b := <-p.ch:
					batch = append(batch, b)
				default:
					if len(batch) > 0 {
						p.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (p *BarPersister) flush(batch []*models.Bar) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := p.store.StoreBatch(ctx, batch); err != nil {
		p.log.Warn("persist bars", logger.Error(err), logger.Int("count", len(batch)))
	}
}

// Close flushes remaining bars and stops the loop.
func (p *BarPersister) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}
