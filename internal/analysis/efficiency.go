package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tidal_efficiency/internal/model"
)

// Filter is the validity filter applied before efficiency is computed.
// The equipment's minimum operable head is 1.0 m inclusive; exploratory runs
// loosen it to head > 0.
type Filter struct {
	MinHead   float64
	Inclusive bool
}

// Valid reports whether r has an operable head and positive output.
func (f Filter) Valid(r model.Record) bool {
	head := r.Head()
	headOK := head > f.MinHead
	if f.Inclusive {
		headOK = head >= f.MinHead
	}
	return headOK && r.EnergyKWh > 0
}

// Annotated is a valid record with every derived column of the pipeline.
type Annotated struct {
	model.Record
	Head       float64
	Efficiency float64 // kWh per meter of head
	Bucket     Bucket
	Status     model.Status
	LossKWh    float64
	Loss       decimal.Decimal
}

// ComputeEfficiency keeps the records passing f and derives head, efficiency
// and head bucket for each. Efficiency is stored unrounded.
func ComputeEfficiency(records []model.Record, f Filter) ([]Annotated, error) {
	result := make([]Annotated, 0, len(records))
	for _, r := range records {
		if !f.Valid(r) {
			continue
		}
		head := r.Head()
		if head <= 0 {
			return nil, fmt.Errorf("%w: head %v at %s", ErrNonPositiveHead, head, r.Timestamp.Format("2006-01-02 15:04"))
		}
		result = append(result, Annotated{
			Record:     r,
			Head:       head,
			Efficiency: r.EnergyKWh / head,
			Bucket:     BucketOf(head),
			Loss:       decimal.Zero,
		})
	}
	return result, nil
}
