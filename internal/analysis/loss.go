package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tidal_efficiency/internal/model"
)

// Valuator prices the energy a record fell short of its baseline.
type Valuator struct {
	baseline *Baseline
	price    decimal.Decimal
}

// NewValuator binds a baseline to a fixed energy price per kWh.
func NewValuator(b *Baseline, pricePerKWh float64) (*Valuator, error) {
	if pricePerKWh < 0 {
		return nil, ErrNegativePrice
	}
	return &Valuator{baseline: b, price: decimal.NewFromFloat(pricePerKWh)}, nil
}

// LossKWh is the shortfall against expected output. Over-performance counts
// as zero, never as a negative loss.
func (v *Valuator) LossKWh(head, observedKWh float64) float64 {
	expected := v.baseline.Lookup(head) * head
	return math.Max(0, expected-observedKWh)
}

// Value returns the shortfall in kWh and its price.
func (v *Valuator) Value(head, observedKWh float64) (float64, decimal.Decimal) {
	kwh := v.LossKWh(head, observedKWh)
	return kwh, decimal.NewFromFloat(kwh).Mul(v.price)
}

// Annotate fills LossKWh and Loss of every record.
func (v *Valuator) Annotate(records []Annotated) {
	for i := range records {
		records[i].LossKWh, records[i].Loss = v.Value(records[i].Head, records[i].EnergyKWh)
	}
}

// LossEvent is one hour of an event window.
type LossEvent struct {
	Timestamp  time.Time
	RainfallMM float64
	LossKWh    float64
	Loss       decimal.Decimal
	Cumulative decimal.Decimal
}

// EventWindow accumulates losses around the heaviest rainfall hour.
type EventWindow struct {
	Peak           time.Time
	PeakRainfallMM float64
	Start, End     time.Time
	Events         []LossEvent
	Total          decimal.Decimal
	CleaningCost   decimal.Decimal
	// TriggerAt is the first hour whose cumulative loss exceeds the cleaning
	// cost, or nil when the window never pays for a cleanup.
	TriggerAt *time.Time
}

// EventWindow finds the hour of peak rainfall (the earliest one on ties),
// takes every record in [peak-before, peak+after] and sums their losses in
// timestamp order.
func (v *Valuator) EventWindow(records []model.Record, before, after time.Duration, cleaningCost float64) (EventWindow, error) {
	if len(records) == 0 {
		return EventWindow{}, ErrNoRecords
	}
	if cleaningCost < 0 {
		return EventWindow{}, ErrNegativePrice
	}

	ordered := make([]model.Record, len(records))
	copy(ordered, records)
	sortRecords(ordered)

	peak := ordered[0]
	for _, r := range ordered[1:] {
		if r.RainfallMM > peak.RainfallMM {
			peak = r
		}
	}

	w := EventWindow{
		Peak:           peak.Timestamp,
		PeakRainfallMM: peak.RainfallMM,
		Start:          peak.Timestamp.Add(-before),
		End:            peak.Timestamp.Add(after),
		Total:          decimal.Zero,
		CleaningCost:   decimal.NewFromFloat(cleaningCost),
	}
	window := model.TimeRange{Start: w.Start, End: w.End}

	startIdx := sort.Search(len(ordered), func(i int) bool {
		return !ordered[i].Timestamp.Before(w.Start)
	})
	for _, r := range ordered[startIdx:] {
		if !window.Contains(r.Timestamp) {
			break
		}
		kwh, loss := v.Value(r.Head(), r.EnergyKWh)
		w.Total = w.Total.Add(loss)
		w.Events = append(w.Events, LossEvent{
			Timestamp:  r.Timestamp,
			RainfallMM: r.RainfallMM,
			LossKWh:    kwh,
			Loss:       loss,
			Cumulative: w.Total,
		})
		if w.TriggerAt == nil && w.Total.GreaterThan(w.CleaningCost) {
			ts := r.Timestamp
			w.TriggerAt = &ts
		}
	}
	return w, nil
}
