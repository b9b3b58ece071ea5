package usecase

import (
	"context"
	"fmt"
	"time"

	"NodeFlow/internal/domain/models"
	drepo "NodeFlow/internal/domain/repository"
	"NodeFlow/internal/engine"
	"NodeFlow/pkg/logger"
	"NodeFlow/pkg/util"
)

// SessionLevels resolves the daily reference levels for a trading date:
// snapshot lookup first, then recompute from stored bars on a miss.
type SessionLevels struct {
	bars   drepo.BarStore
	levels drepo.LevelStore
	log    *logger.Logger

	symbol string
	loc    *time.Location
}

// NewSessionLevels creates the resolver. Sessions are anchored to the
// exchange clock in America/New_York.
func NewSessionLevels(bars drepo.BarStore, levels drepo.LevelStore, symbol string, log *logger.Logger) (*SessionLevels, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("load exchange timezone: %w", err)
	}
	return &SessionLevels{
		bars:   bars,
		levels: levels,
		log:    log,
		symbol: symbol,
		loc:    loc,
	}, nil
}

// Resolve returns the levels for now's trading date. On a snapshot miss
// it queries the prior regular session (09:30-16:00) and the overnight
// session (18:00 prior day to 09:30) and computes them from bars.
// Returns engine.ErrEmptySession when no prior-session bars exist.
func (s *SessionLevels) Resolve(ctx context.Context, now time.Time) (*models.DailyLevels, error) {
	local := now.In(s.loc)
	date := local.Format("2006-01-02")

	if s.levels != nil {
		cached, err := s.levels.Lookup(ctx, date)
		if err != nil {
			s.log.Warn("level snapshot lookup", logger.Error(err))
		} else if cached != nil {
			s.log.Info("daily levels from snapshot", logger.String("date", date))
			return cached, nil
		}
	}

	if s.bars == nil {
		return nil, engine.ErrEmptySession
	}

	prior := util.PriorTradingDay(local)
	sessionBars, err := s.bars.Query(ctx, s.symbol, util.At(prior, 9, 30), util.At(prior, 16, 0))
	if err != nil {
		return nil, fmt.Errorf("query prior session: %w", err)
	}
	overnightBars, err := s.bars.Query(ctx, s.symbol, util.At(prior, 18, 0), util.At(local, 9, 30))
	if err != nil {
		return nil, fmt.Errorf("query overnight session: %w", err)
	}

	levels, err := engine.ComputeDailyLevels(date, sessionBars, overnightBars)
	if err != nil {
		return nil, err
	}

	if s.levels != nil {
		if err := s.levels.Save(ctx, levels); err != nil {
			s.log.Warn("level snapshot save", logger.Error(err))
		}
	}
	s.log.Info("daily levels computed",
		logger.String("date", date),
		logger.Int("session_bars", len(sessionBars)),
		logger.Int("overnight_bars", len(overnightBars)))
	return levels, nil
}
