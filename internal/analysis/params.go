package analysis

import (
	"fmt"
	"time"
)

// Params holds every tunable threshold of the pipeline. Zero values are not
// meaningful; start from DefaultParams.
type Params struct {
	// Validity filter: head >= MinHead (or > when MinHeadInclusive is false)
	// and positive output.
	MinHead          float64 `yaml:"min_head"`
	MinHeadInclusive bool    `yaml:"min_head_inclusive"`

	// Clean-condition subset used for the baseline.
	CleanMaxRainMM float64 `yaml:"clean_max_rain_mm"`
	CleanMinHead   float64 `yaml:"clean_min_head"`

	// Rainfall above this value DebrisLagSteps records earlier marks a record
	// as rain affected.
	LagRainThresholdMM float64 `yaml:"lag_rain_threshold_mm"`

	PricePerKWh  float64       `yaml:"price_per_kwh"`
	CleaningCost float64       `yaml:"cleaning_cost"`
	Currency     string        `yaml:"currency"`
	EventBefore  time.Duration `yaml:"event_before"`
	EventAfter   time.Duration `yaml:"event_after"`

	// Hourly rainfall counted as a heavy-rain hour in the monthly pattern.
	HeavyRainMM float64 `yaml:"heavy_rain_mm"`
}

// DefaultParams returns the station's operating defaults.
func DefaultParams() Params {
	return Params{
		MinHead:            1.0,
		MinHeadInclusive:   true,
		CleanMaxRainMM:     0.5,
		CleanMinHead:       1.0,
		LagRainThresholdMM: 0,
		PricePerKWh:        150,
		CleaningCost:       5_000_000,
		Currency:           "KRW",
		EventBefore:        24 * time.Hour,
		EventAfter:         48 * time.Hour,
		HeavyRainMM:        10,
	}
}

// Validate rejects parameter sets the pipeline cannot run with.
func (p Params) Validate() error {
	if p.MinHead < 0 || (p.MinHead == 0 && p.MinHeadInclusive) {
		return fmt.Errorf("analysis: min_head must admit only positive heads, got %v (inclusive=%v)", p.MinHead, p.MinHeadInclusive)
	}
	if p.CleanMinHead < 0 {
		return fmt.Errorf("analysis: clean_min_head must be non-negative, got %v", p.CleanMinHead)
	}
	if p.LagRainThresholdMM < 0 {
		return fmt.Errorf("analysis: lag_rain_threshold_mm must be non-negative, got %v", p.LagRainThresholdMM)
	}
	if p.PricePerKWh < 0 || p.CleaningCost < 0 {
		return ErrNegativePrice
	}
	if p.EventBefore < 0 || p.EventAfter < 0 {
		return fmt.Errorf("analysis: event window offsets must be non-negative")
	}
	if p.Currency == "" {
		return fmt.Errorf("analysis: currency is required")
	}
	return nil
}

// Filter returns the validity filter described by p.
func (p Params) Filter() Filter {
	return Filter{MinHead: p.MinHead, Inclusive: p.MinHeadInclusive}
}

// CleanCriteria returns the baseline subset described by p.
func (p Params) CleanCriteria() CleanCriteria {
	return CleanCriteria{MaxRainMM: p.CleanMaxRainMM, MinHead: p.CleanMinHead}
}
