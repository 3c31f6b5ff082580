package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"tidal_efficiency/internal/model"
)

// CleanCriteria selects the hours used to learn the baseline: little or no
// rain, an operable head and positive output. It is stricter than the
// validity filter so borderline-rain hours do not contaminate the curve.
type CleanCriteria struct {
	MaxRainMM float64 // rainfall <= MaxRainMM
	MinHead   float64 // head > MinHead
}

// Match reports whether r belongs to the clean subset.
func (c CleanCriteria) Match(r model.Record) bool {
	return r.RainfallMM <= c.MaxRainMM && r.Head() > c.MinHead && r.EnergyKWh > 0
}

// BucketMean is one point of the baseline curve.
type BucketMean struct {
	Bucket     Bucket
	Efficiency float64
	Count      int
}

// Baseline is the expected efficiency per head bucket under debris-free
// conditions. It is immutable once built.
type Baseline struct {
	buckets map[Bucket]BucketMean
	global  float64
}

// NewBaseline builds a baseline from known bucket means, as loaded from an
// artifact. The slice is copied.
func NewBaseline(points []BucketMean, global float64) (*Baseline, error) {
	if math.IsNaN(global) || math.IsInf(global, 0) {
		return nil, fmt.Errorf("analysis: invalid global baseline %v", global)
	}
	buckets := make(map[Bucket]BucketMean, len(points))
	for _, p := range points {
		if p.Bucket != BucketOf(float64(p.Bucket)) {
			return nil, fmt.Errorf("analysis: bucket %v is not a multiple of %v", float64(p.Bucket), BucketWidth)
		}
		if _, dup := buckets[p.Bucket]; dup {
			return nil, fmt.Errorf("analysis: duplicate bucket %s", p.Bucket)
		}
		buckets[p.Bucket] = p
	}
	return &Baseline{buckets: buckets, global: global}, nil
}

// EstimateBaseline derives the baseline from the clean subset of records:
// the mean efficiency per head bucket and the mean over the whole subset.
func EstimateBaseline(records []model.Record, c CleanCriteria) (*Baseline, error) {
	clean := lo.Filter(records, func(r model.Record, _ int) bool {
		return c.Match(r)
	})
	if len(clean) == 0 {
		return nil, ErrEmptyBaseline
	}

	var global meanAcc
	perBucket := make(map[Bucket]*meanAcc)
	for _, r := range clean {
		head := r.Head()
		eff := r.EnergyKWh / head
		global.add(eff)

		b := BucketOf(head)
		acc := perBucket[b]
		if acc == nil {
			acc = &meanAcc{}
			perBucket[b] = acc
		}
		acc.add(eff)
	}

	buckets := make(map[Bucket]BucketMean, len(perBucket))
	for b, acc := range perBucket {
		buckets[b] = BucketMean{Bucket: b, Efficiency: acc.mean(), Count: acc.count}
	}
	return &Baseline{buckets: buckets, global: global.mean()}, nil
}

// Global is the mean efficiency of the whole clean subset.
func (b *Baseline) Global() float64 {
	return b.global
}

// Lookup returns the expected efficiency for head: the mean of the bucket
// nearest to head, or the global mean when that bucket was never observed
// clean. It never fails.
func (b *Baseline) Lookup(head float64) float64 {
	if p, ok := b.buckets[nearestBucket(head)]; ok {
		return p.Efficiency
	}
	return b.global
}

// Bucket returns the mean stored for exactly bucket k.
func (b *Baseline) Bucket(k Bucket) (BucketMean, bool) {
	p, ok := b.buckets[k]
	return p, ok
}

// Points returns the curve ordered by bucket.
func (b *Baseline) Points() []BucketMean {
	points := lo.Values(b.buckets)
	sort.Slice(points, func(i, j int) bool {
		return points[i].Bucket < points[j].Bucket
	})
	return points
}
