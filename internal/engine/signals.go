package engine

import (
	"math"

	"NodeFlow/internal/domain/models"
)

// RetestState is the per-node retest phase.
type RetestState string

const (
	Untouched RetestState = "untouched"
	Touched   RetestState = "touched"
	Armed     RetestState = "armed"
	Retesting RetestState = "retesting"
)

// TrackedLevel wraps a node with its retest state. farthest is the
// largest distance price has put between itself and the node since the
// first touch; it only grows.
type TrackedLevel struct {
	Node  models.LvnLevel
	State RetestState

	farthest     float64
	lastFiredBar int
}

// LevelSignalGenerator owns the tracked-node set and fires at most one
// signal per bar when an armed node is retested with absorption in the
// impulse direction while the market is imbalanced.
type LevelSignalGenerator struct {
	cfg        Config
	classifier *MarketStateClassifier

	levels      map[int64]*TrackedLevel
	barCount    int
	lastFireBar int
}

// NewLevelSignalGenerator creates a generator with its own market state
// classifier.
func NewLevelSignalGenerator(cfg Config) *LevelSignalGenerator {
	return &LevelSignalGenerator{
		cfg:         cfg,
		classifier:  NewMarketStateClassifier(cfg.StateWindowBars, cfg.RangeExpansionMult, cfg.DeltaImbalanceLimit),
		levels:      make(map[int64]*TrackedLevel),
		lastFireBar: -1 << 30,
	}
}

// AddNodes starts tracking the nodes of a completed impulse.
func (g *LevelSignalGenerator) AddNodes(nodes []models.LvnLevel) int {
	for i := range nodes {
		key := levelKey(nodes[i].Price)
		g.levels[key] = &TrackedLevel{
			Node:         nodes[i],
			State:        Untouched,
			lastFiredBar: -1 << 30,
		}
	}
	return len(nodes)
}

// ClearImpulse removes every node belonging to the impulse id.
func (g *LevelSignalGenerator) ClearImpulse(impulseID int64) {
	for key, l := range g.levels {
		if l.Node.ImpulseID == impulseID {
			delete(g.levels, key)
		}
	}
}

// ClearAll drops all tracked nodes, e.g. at session rollover.
func (g *LevelSignalGenerator) ClearAll() {
	g.levels = make(map[int64]*TrackedLevel)
	g.classifier.Reset()
}

// TrackedCount returns the number of tracked nodes.
func (g *LevelSignalGenerator) TrackedCount() int { return len(g.levels) }

// ArmedCount returns the nodes currently Armed or Retesting.
func (g *LevelSignalGenerator) ArmedCount() int {
	n := 0
	for _, l := range g.levels {
		if l.State == Armed || l.State == Retesting {
			n++
		}
	}
	return n
}

// MarketState reports the classifier's current reading.
func (g *LevelSignalGenerator) MarketState() models.MarketState {
	return g.classifier.State()
}

// Levels returns the tracked levels for the monitoring surface.
func (g *LevelSignalGenerator) Levels() []TrackedLevel {
	out := make([]TrackedLevel, 0, len(g.levels))
	for _, l := range g.levels {
		out = append(out, *l)
	}
	return out
}

// Observe advances the classifier and every node's retest state
// without checking firing conditions. Called on bars where no signal
// may fire so level tracking never stalls.
func (g *LevelSignalGenerator) Observe(b *models.Bar) {
	g.barCount++
	g.classifier.Observe(b)
	g.updateStates(b.Close)
}

// ProcessBar advances state like Observe, then checks firing
// conditions. At most one signal per bar.
func (g *LevelSignalGenerator) ProcessBar(b *models.Bar) *models.Signal {
	g.Observe(b)

	if g.barCount < g.lastFireBar+g.cfg.CooldownBars {
		return nil
	}
	if g.classifier.State() != models.Imbalanced {
		return nil
	}

	delta := b.Delta()
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}
	if absDelta < g.cfg.MinDelta {
		return nil
	}
	if b.Range() > g.cfg.MaxAbsorptionRange {
		return nil
	}

	best := g.pickLevel(b.Close, delta)
	if best == nil {
		return nil
	}

	dir := best.Node.Direction.TradeDirection()
	entry := b.Close
	var stop, target float64
	if dir == models.Long {
		stop = best.Node.Price - g.cfg.StopBuffer
		if g.cfg.TargetDistance > 0 {
			target = entry + g.cfg.TargetDistance
		}
	} else {
		stop = best.Node.Price + g.cfg.StopBuffer
		if g.cfg.TargetDistance > 0 {
			target = entry - g.cfg.TargetDistance
		}
	}

	g.lastFireBar = g.barCount
	best.lastFiredBar = g.barCount
	best.State = Touched
	best.farthest = 0

	return &models.Signal{
		Direction:  dir,
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		Size:       g.cfg.PositionSize,
		LevelPrice: best.Node.Price,
		ImpulseID:  best.Node.ImpulseID,
		Delta:      delta,
		Timestamp:  b.Timestamp,
	}
}

// updateStates moves each node at most one step. Nodes inside their
// per-level cooldown hold still.
func (g *LevelSignalGenerator) updateStates(price float64) {
	for _, l := range g.levels {
		if g.barCount < l.lastFiredBar+g.cfg.LevelCooldownBars {
			continue
		}
		dist := math.Abs(price - l.Node.Price)

		switch l.State {
		case Untouched:
			if dist <= g.cfg.LevelTolerance {
				l.State = Touched
				l.farthest = 0
			}
		case Touched:
			if dist > l.farthest {
				l.farthest = dist
			}
			if l.farthest >= g.cfg.RetestDistance {
				l.State = Armed
			}
		case Armed:
			if dist <= g.cfg.LevelTolerance {
				l.State = Retesting
			}
		case Retesting:
			if dist > g.cfg.LevelTolerance {
				l.State = Armed
			}
		}
	}
}

// pickLevel selects the firing node: Retesting, within tolerance, delta
// aligned with its impulse, outside its cooldown. Ties go to the node
// nearest the close, then to the lower price.
func (g *LevelSignalGenerator) pickLevel(price float64, delta int64) *TrackedLevel {
	var best *TrackedLevel
	var bestDist float64

	for _, l := range g.levels {
		if l.State != Retesting {
			continue
		}
		if g.barCount < l.lastFiredBar+g.cfg.LevelCooldownBars {
			continue
		}
		dist := math.Abs(price - l.Node.Price)
		if dist > g.cfg.LevelTolerance {
			continue
		}

		aligned := (l.Node.Direction == models.ImpulseUp && delta > 0) ||
			(l.Node.Direction == models.ImpulseDown && delta < 0)
		if !aligned {
			continue
		}

		if best == nil || dist < bestDist || (dist == bestDist && l.Node.Price < best.Node.Price) {
			best = l
			bestDist = dist
		}
	}
	return best
}

func levelKey(price float64) int64 {
	return int64(math.Round(price * 10))
}
