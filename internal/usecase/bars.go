package usecase

import (
	"context"
	"fmt"
	"time"

	"NodeFlow/internal/domain/models"
	drepo "NodeFlow/internal/domain/repository"
	"NodeFlow/pkg/util"
)

// BarsUseCase provides business logic for retrieving stored bars.
type BarsUseCase struct {
	store drepo.BarStore
}

func NewBarsUseCase(store drepo.BarStore) *BarsUseCase {
	return &BarsUseCase{store: store}
}

type GetBarsParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetBarsResult struct {
	Symbol string
	From   time.Time
	To     time.Time
	Count  int
	Bars   []models.Bar
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("bar store not configured")
	}
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	from, to := util.AlignFromTo(p.From, p.To, "1s")
	bars, err := uc.store.Query(ctx, p.Symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) > p.Limit {
		bars = bars[:p.Limit]
	}

	return &GetBarsResult{
		Symbol: p.Symbol,
		From:   from,
		To:     to,
		Count:  len(bars),
		Bars:   bars,
	}, nil
}
