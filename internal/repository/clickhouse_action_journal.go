package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"NodeFlow/internal/domain/models"
	pkgch "NodeFlow/pkg/clickhouse"
	"NodeFlow/pkg/logger"
)

// journalEntry is one buffered action record.
type journalEntry struct {
	at      time.Time
	symbol  string
	kind    models.ActionKind
	payload []byte
}

// ClickHouseActionJournal records every emitted action for later
// analysis. Writes go through a buffered channel and a background
// flusher so a slow or unavailable ClickHouse never blocks the trade
// loop; entries are dropped when the buffer fills.
type ClickHouseActionJournal struct {
	client *pkgch.Client
	table  string
	log    *logger.Logger

	entries  chan journalEntry
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewClickHouseActionJournal creates the journal and starts its
// background flusher.
func NewClickHouseActionJournal(client *pkgch.Client, table string, log *logger.Logger) *ClickHouseActionJournal {
	if table == "" {
		table = "actions"
	}
	j := &ClickHouseActionJournal{
		client:  client,
		table:   table,
		log:     log,
		entries: make(chan journalEntry, 1024),
		stopCh:  make(chan struct{}),
	}
	j.wg.Add(1)
	go j.flushLoop()
	return j
}

// Init ensures the journal table exists.
func (j *ClickHouseActionJournal) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime64(3),
		symbol LowCardinality(String),
		kind LowCardinality(String),
		payload String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts)`, j.table)
	return j.client.InitSchema(ctx, []string{stmt})
}

// Record enqueues an action. It never blocks; on a full buffer the
// entry is dropped and counted in the log.
func (j *ClickHouseActionJournal) Record(_ context.Context, symbol string, a models.Action, at time.Time) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	select {
	case j.entries <- journalEntry{at: at, symbol: symbol, kind: a.Kind(), payload: payload}:
	default:
		j.log.Warn("action journal buffer full, dropping entry",
			logger.String("kind", string(a.Kind())))
	}
	return nil
}

// Close drains the buffer and stops the flusher.
func (j *ClickHouseActionJournal) Close() error {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
	return nil
}

func (j *ClickHouseActionJournal) flushLoop() {
	defer j.wg.Done()
	for {
		select {
		case e := <-j.entries:
			j.write(e)
		case <-j.stopCh:
			for {
				select {
				case e := <-j.entries:
					j.write(e)
				default:
					return
				}
			}
		}
	}
}

func (j *ClickHouseActionJournal) write(e journalEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, kind, payload) VALUES (?, ?, ?, ?)", j.table)
	if _, err := j.client.DB().ExecContext(ctx, q, e.at, e.symbol, string(e.kind), string(e.payload)); err != nil {
		j.log.Warn("action journal write failed",
			logger.String("kind", string(e.kind)),
			logger.Error(err))
	}
}
