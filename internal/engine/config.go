package engine

import (
	"fmt"
	"time"
)

// Config holds every tunable parameter of the signal engine. Defaults
// and range validation live in pkg/config where the YAML is loaded;
// cross-field rules that the tag language cannot express are checked
// here.
type Config struct {
	Symbol   string        `yaml:"symbol" validate:"required"`
	Interval time.Duration `yaml:"interval" default:"1s" validate:"gt=0"`

	// Breakout / impulse profiling
	BreakoutThreshold float64 `yaml:"breakout_threshold" default:"2.0" validate:"gt=0"`
	MinImpulseSize    float64 `yaml:"min_impulse_size" default:"30.0" validate:"gt=0"`
	MinImpulseScore   int     `yaml:"min_impulse_score" default:"4" validate:"gte=0,lte=5"`
	MaxImpulseBars    int     `yaml:"max_impulse_bars" default:"300" validate:"gt=0"`
	MaxHuntingBars    int     `yaml:"max_hunting_bars" default:"600" validate:"gt=0"`
	MaxRetraceRatio   float64 `yaml:"max_retrace_ratio" default:"0.5" validate:"gt=0,lte=1"`
	FastImpulseBars   int     `yaml:"fast_impulse_bars" default:"5" validate:"gt=0"`

	// Node extraction
	NodeBucketSize     float64 `yaml:"node_bucket_size" default:"0.5" validate:"gt=0"`
	NodeThresholdRatio float64 `yaml:"node_threshold_ratio" default:"0.15" validate:"gt=0,lt=1"`

	// Level retest / absorption
	LevelTolerance     float64 `yaml:"level_tolerance" default:"2.0" validate:"gt=0"`
	RetestDistance     float64 `yaml:"retest_distance" default:"8.0" validate:"gt=0"`
	MinDelta           int64   `yaml:"min_delta" default:"100" validate:"gt=0"`
	MaxAbsorptionRange float64 `yaml:"max_absorption_range" default:"1.5" validate:"gt=0"`
	CooldownBars       int     `yaml:"cooldown_bars" default:"60" validate:"gte=0"`
	LevelCooldownBars  int     `yaml:"level_cooldown_bars" default:"600" validate:"gte=0"`

	// Market state classification
	StateWindowBars     int     `yaml:"state_window_bars" default:"60" validate:"gt=1"`
	RangeExpansionMult  float64 `yaml:"range_expansion_mult" default:"2.0" validate:"gt=0"`
	DeltaImbalanceLimit int64   `yaml:"delta_imbalance_limit" default:"200" validate:"gt=0"`

	// Position / risk
	StopBuffer      float64 `yaml:"stop_buffer" default:"2.0" validate:"gt=0"`
	TrailingStop    float64 `yaml:"trailing_stop" default:"4.0" validate:"gt=0"`
	TargetDistance  float64 `yaml:"target_distance" default:"8.0" validate:"gte=0"`
	MaxHoldBars     int     `yaml:"max_hold_bars" default:"300" validate:"gt=0"`
	PositionSize    int     `yaml:"position_size" default:"1" validate:"gt=0"`
	MaxDailyLosses  int     `yaml:"max_daily_losses" default:"3" validate:"gte=0"`
	DailyLossLimit  float64 `yaml:"daily_loss_limit" default:"60.0" validate:"gte=0"`
	Slippage        float64 `yaml:"slippage" default:"0.25" validate:"gte=0"`
	Commission      float64 `yaml:"commission" default:"4.0" validate:"gte=0"`
	PointValue      float64 `yaml:"point_value" default:"20.0" validate:"gt=0"`

	// Trading hours, minutes from midnight in the session timezone.
	TradingStart string `yaml:"trading_start" default:"09:30"`
	TradingEnd   string `yaml:"trading_end" default:"16:00"`
	Timezone     string `yaml:"timezone" default:"America/New_York"`
}

// Validate checks the cross-field rules defaults/validator tags cannot.
func (c *Config) Validate() error {
	if c.RetestDistance <= c.LevelTolerance {
		return fmt.Errorf("retest_distance (%v) must exceed level_tolerance (%v)", c.RetestDistance, c.LevelTolerance)
	}
	if c.NodeBucketSize > c.MinImpulseSize {
		return fmt.Errorf("node_bucket_size (%v) larger than min_impulse_size (%v)", c.NodeBucketSize, c.MinImpulseSize)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}
