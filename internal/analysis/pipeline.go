package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tidal_efficiency/internal/model"
)

// Options changes how Run values losses.
type Options struct {
	// Baseline, when set, replaces the curve derived from the input for
	// valuation. The derived curve is still reported.
	Baseline *Baseline
}

// Result is everything one pipeline run produces.
type Result struct {
	Merged []model.Record
	// Valid holds the records passing the validity filter, labelled and
	// valued, in time order.
	Valid             []Annotated
	Baseline          *Baseline
	ValuationBaseline *Baseline
	Penalties         PenaltyReport
	Event             EventWindow
	Comparison        RainComparison
}

// Run merges generation with rainfall and runs the analysis on the result.
func Run(gen []model.GenerationRecord, rain []model.RainfallRecord, p Params, opts Options) (*Result, error) {
	return RunMerged(MergeHourly(gen, rain), p, opts)
}

// RunMerged runs the analysis over already merged hourly records. It holds no
// state between calls; identical input gives identical output.
func RunMerged(records []model.Record, p Params, opts Options) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	merged := make([]model.Record, len(records))
	copy(merged, records)
	sortRecords(merged)

	valid, err := ComputeEfficiency(merged, p.Filter())
	if err != nil {
		return nil, err
	}

	baseline, err := EstimateBaseline(merged, p.CleanCriteria())
	if err != nil {
		return nil, err
	}
	valuation := baseline
	if opts.Baseline != nil {
		valuation = opts.Baseline
	}

	valuator, err := NewValuator(valuation, p.PricePerKWh)
	if err != nil {
		return nil, err
	}

	labelled := LabelStatus(valid, p.LagRainThresholdMM)
	valuator.Annotate(labelled)

	event, err := valuator.EventWindow(merged, p.EventBefore, p.EventAfter, p.CleaningCost)
	if err != nil {
		return nil, fmt.Errorf("event window: %w", err)
	}

	return &Result{
		Merged:            merged,
		Valid:             labelled,
		Baseline:          baseline,
		ValuationBaseline: valuation,
		Penalties:         Penalties(labelled),
		Event:             event,
		Comparison:        CompareRain(labelled),
	}, nil
}

// Summary is the headline of a run, as shown on the dashboard.
type Summary struct {
	Records      int     `json:"records"`
	ValidRecords int     `json:"valid_records"`
	Global       float64 `json:"baseline_global"`
	Buckets      int     `json:"baseline_buckets"`
	PenaltyCount int     `json:"penalty_buckets"`
	Insufficient int     `json:"insufficient_buckets"`
	TotalLossKWh float64 `json:"total_loss_kwh"`
	TotalLoss    string  `json:"total_loss"`
	EventLoss    string  `json:"event_loss"`
	CleaningCost string  `json:"cleaning_cost"`
	Triggered    bool    `json:"cleanup_triggered"`
	TriggerAt    string  `json:"trigger_at,omitempty"`
	Currency     string  `json:"currency"`
}

// Summarize condenses r for display. Currency amounts are rounded to whole
// units.
func (r *Result) Summarize(currency string) Summary {
	s := Summary{
		Records:      len(r.Merged),
		ValidRecords: len(r.Valid),
		Global:       r.Baseline.Global(),
		Buckets:      len(r.Baseline.Points()),
		PenaltyCount: len(r.Penalties.Penalties),
		Insufficient: len(r.Penalties.Insufficient),
		EventLoss:    r.Event.Total.StringFixed(0),
		CleaningCost: r.Event.CleaningCost.StringFixed(0),
		Triggered:    r.Event.TriggerAt != nil,
		Currency:     currency,
	}
	for _, a := range r.Valid {
		s.TotalLossKWh += a.LossKWh
	}
	s.TotalLoss = r.TotalLoss().StringFixed(0)
	if r.Event.TriggerAt != nil {
		s.TriggerAt = r.Event.TriggerAt.Format("2006-01-02 15:04")
	}
	return s
}

// TotalLoss sums the valued loss of every valid record.
func (r *Result) TotalLoss() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.Valid {
		total = total.Add(a.Loss)
	}
	return total
}
