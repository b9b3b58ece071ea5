package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
	"NodeFlow/internal/engine"
	"NodeFlow/pkg/logger"
)

type fakeBarStore struct {
	mu      sync.Mutex
	bars    map[string][]models.Bar // keyed by from-time, set by tests
	queries []time.Time
	batches [][]*models.Bar
}

func (f *fakeBarStore) batchTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, batch := range f.batches {
		total += len(batch)
	}
	return total
}

func (f *fakeBarStore) Init(context.Context) error               { return nil }
func (f *fakeBarStore) Store(context.Context, *models.Bar) error { return nil }
func (f *fakeBarStore) Health(context.Context) error             { return nil }
func (f *fakeBarStore) Close() error                             { return nil }

func (f *fakeBarStore) StoreBatch(_ context.Context, bars []*models.Bar) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]*models.Bar(nil), bars...))
	return nil
}

func (f *fakeBarStore) Query(_ context.Context, _ string, from, _ time.Time) ([]models.Bar, error) {
	f.queries = append(f.queries, from)
	return f.bars[from.Format("15:04")], nil
}

type fakeLevelStore struct {
	snapshots map[string]*models.DailyLevels
	saved     []*models.DailyLevels
}

func (f *fakeLevelStore) Lookup(_ context.Context, date string) (*models.DailyLevels, error) {
	return f.snapshots[date], nil
}

func (f *fakeLevelStore) Save(_ context.Context, levels *models.DailyLevels) error {
	f.saved = append(f.saved, levels)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// Tuesday 10:00 ET.
var resolveNow = time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)

func TestResolveUsesSnapshot(t *testing.T) {
	bars := &fakeBarStore{}
	snap := &models.DailyLevels{Date: "2025-06-03", PriorDayHigh: 21500, PriorDayLow: 21300}
	levels := &fakeLevelStore{snapshots: map[string]*models.DailyLevels{"2025-06-03": snap}}

	s, err := NewSessionLevels(bars, levels, "NQ", testLogger(t))
	require.NoError(t, err)

	got, err := s.Resolve(context.Background(), resolveNow)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Empty(t, bars.queries, "snapshot hit must not query bars")
}

func TestResolveComputesFromBars(t *testing.T) {
	session := []models.Bar{
		{High: 21500, Low: 21300, Close: 21400, Volume: 100},
		{High: 21480, Low: 21350, Close: 21410, Volume: 50},
	}
	bars := &fakeBarStore{bars: map[string][]models.Bar{"09:30": session}}
	levels := &fakeLevelStore{snapshots: map[string]*models.DailyLevels{}}

	s, err := NewSessionLevels(bars, levels, "NQ", testLogger(t))
	require.NoError(t, err)

	got, err := s.Resolve(context.Background(), resolveNow)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "2025-06-03", got.Date)
	assert.Equal(t, 21500.0, got.PriorDayHigh)
	assert.Equal(t, 21300.0, got.PriorDayLow)
	// no overnight bars, so overnight levels fall back to prior day
	assert.Equal(t, 21500.0, got.OvernightHigh)
	assert.Equal(t, 21300.0, got.OvernightLow)
	assert.Equal(t, 21400.0, got.PointOfControl)

	// prior regular session and overnight windows, in that order
	require.Len(t, bars.queries, 2)
	assert.Equal(t, "09:30", bars.queries[0].Format("15:04"))
	assert.Equal(t, "18:00", bars.queries[1].Format("15:04"))

	require.Len(t, levels.saved, 1)
	assert.Equal(t, got, levels.saved[0])
}

func TestResolveEmptySession(t *testing.T) {
	bars := &fakeBarStore{}
	levels := &fakeLevelStore{snapshots: map[string]*models.DailyLevels{}}

	s, err := NewSessionLevels(bars, levels, "NQ", testLogger(t))
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), resolveNow)
	require.ErrorIs(t, err, engine.ErrEmptySession)
}
