package analysis

import (
	"sort"

	"tidal_efficiency/internal/model"
)

// DebrisLagSteps is the delay, in hourly records, between rainfall and the
// arrival of floating debris at the intake. It is an observed constant, not a
// fitted parameter.
const DebrisLagSteps = 3

// LagStatuses labels each position of a rainfall sequence. Position i is
// rain affected iff i >= DebrisLagSteps and rain[i-DebrisLagSteps] exceeds
// threshold. The first DebrisLagSteps positions have no lagged value and are
// always clean.
func LagStatuses(rain []float64, threshold float64) []model.Status {
	statuses := make([]model.Status, len(rain))
	for i := DebrisLagSteps; i < len(rain); i++ {
		if rain[i-DebrisLagSteps] > threshold {
			statuses[i] = model.StatusRainAffected
		}
	}
	return statuses
}

// LabelStatus returns a copy of records with Status set by the lag rule. The
// shift is positional over the slice as given, so callers pass the sequence
// in time order.
func LabelStatus(records []Annotated, threshold float64) []Annotated {
	rain := make([]float64, len(records))
	for i, r := range records {
		rain[i] = r.RainfallMM
	}
	statuses := LagStatuses(rain, threshold)

	labelled := make([]Annotated, len(records))
	copy(labelled, records)
	for i := range labelled {
		labelled[i].Status = statuses[i]
	}
	return labelled
}

// BucketPenalty compares clean and rain-affected efficiency within one head
// bucket.
type BucketPenalty struct {
	Bucket     Bucket
	CleanMean  float64
	RainMean   float64
	CleanCount int
	RainCount  int
	// PenaltyPct is (CleanMean - RainMean) / CleanMean * 100.
	PenaltyPct float64
}

// PenaltyReport lists penalties for comparable buckets and, separately, the
// buckets lacking one of the two states.
type PenaltyReport struct {
	Penalties    []BucketPenalty
	Insufficient []Bucket
}

// Penalties groups labelled records by (bucket, status) and derives the
// percentage penalty of every bucket observed in both states.
func Penalties(records []Annotated) PenaltyReport {
	type pair struct {
		clean, rain meanAcc
	}
	groups := make(map[Bucket]*pair)
	for _, r := range records {
		g := groups[r.Bucket]
		if g == nil {
			g = &pair{}
			groups[r.Bucket] = g
		}
		if r.Status == model.StatusRainAffected {
			g.rain.add(r.Efficiency)
		} else {
			g.clean.add(r.Efficiency)
		}
	}

	buckets := make([]Bucket, 0, len(groups))
	for b := range groups {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	var report PenaltyReport
	for _, b := range buckets {
		g := groups[b]
		cleanMean := g.clean.mean()
		if g.clean.count == 0 || g.rain.count == 0 || cleanMean == 0 {
			report.Insufficient = append(report.Insufficient, b)
			continue
		}
		rainMean := g.rain.mean()
		report.Penalties = append(report.Penalties, BucketPenalty{
			Bucket:     b,
			CleanMean:  cleanMean,
			RainMean:   rainMean,
			CleanCount: g.clean.count,
			RainCount:  g.rain.count,
			PenaltyPct: (cleanMean - rainMean) / cleanMean * 100,
		})
	}
	return report
}
