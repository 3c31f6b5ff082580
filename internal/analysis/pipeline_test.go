package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidal_efficiency/internal/model"
)

// pipelineInput is three days of hourly generation at alternating heads with a
// single shower; output drops for a while once debris arrives.
func pipelineInput() ([]model.GenerationRecord, []model.RainfallRecord) {
	var gen []model.GenerationRecord
	var rain []model.RainfallRecord
	for i := 0; i < 72; i++ {
		head := 3.0
		if i%2 == 1 {
			head = 2.0
		}
		energy := head * 30000
		if i >= 30 && i < 40 {
			energy = head * 27000
		}
		if i%12 == 11 {
			energy = 0 // sluice closed
		}
		gen = append(gen, model.GenerationRecord{Timestamp: hour(i), SeaLevel: head + 0.5, LakeLevel: 0.5, EnergyKWh: energy})
		if i == 50 {
			continue // rainfall gauge gap
		}
		mm := 0.0
		if i >= 27 && i < 30 {
			mm = 6
		}
		rain = append(rain, model.RainfallRecord{Timestamp: hour(i), RainfallMM: mm})
	}
	return gen, rain
}

func TestRun(t *testing.T) {
	gen, rain := pipelineInput()

	res, err := Run(gen, rain, DefaultParams(), Options{})
	require.NoError(t, err)

	assert.Len(t, res.Merged, 71)
	for i := 1; i < len(res.Merged); i++ {
		assert.True(t, res.Merged[i-1].Timestamp.Before(res.Merged[i].Timestamp))
	}

	for _, r := range res.Valid {
		assert.GreaterOrEqual(t, r.Head, 1.0)
		assert.Greater(t, r.EnergyKWh, 0.0)
		assert.GreaterOrEqual(t, r.LossKWh, 0.0)
		assert.False(t, r.Loss.IsNegative())
	}

	// Dip hours after the lag window are labelled clean, so the penalty is
	// smaller than the raw 10% drop but still positive.
	assert.Same(t, res.Baseline, res.ValuationBaseline)
	assert.Len(t, res.Baseline.Points(), 2)

	require.Len(t, res.Penalties.Penalties, 2)
	for _, p := range res.Penalties.Penalties {
		assert.Greater(t, p.PenaltyPct, 0.0, "bucket %s", p.Bucket)
	}
	assert.Empty(t, res.Penalties.Insufficient)

	assert.Equal(t, hour(27), res.Event.Peak)
	assert.Equal(t, hour(3), res.Event.Start)
	assert.Equal(t, hour(75), res.Event.End)

	assert.True(t, res.Comparison.Comparable)
}

func TestRun_Deterministic(t *testing.T) {
	gen, rain := pipelineInput()

	first, err := Run(gen, rain, DefaultParams(), Options{})
	require.NoError(t, err)
	second, err := Run(gen, rain, DefaultParams(), Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Valid, second.Valid)
	assert.Equal(t, first.Baseline.Points(), second.Baseline.Points())
	assert.Equal(t, first.Penalties, second.Penalties)
	assert.Equal(t, first.Event, second.Event)
}

func TestRun_PrecomputedBaseline(t *testing.T) {
	gen, rain := pipelineInput()
	fixed, err := NewBaseline([]BucketMean{{Bucket: 3.0, Efficiency: 40000}}, 35000)
	require.NoError(t, err)

	res, err := Run(gen, rain, DefaultParams(), Options{Baseline: fixed})
	require.NoError(t, err)

	assert.Same(t, fixed, res.ValuationBaseline)
	assert.NotSame(t, fixed, res.Baseline)
	for _, r := range res.Valid {
		want := 40000.0
		if r.Bucket == 2.0 {
			want = 35000
		}
		assert.InDelta(t, want*r.Head-r.EnergyKWh, r.LossKWh, 1e-6)
	}
}

func TestRun_Errors(t *testing.T) {
	_, err := RunMerged(nil, DefaultParams(), Options{})
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = RunMerged([]model.Record{rec(0, 3, 90000, 4)}, DefaultParams(), Options{})
	assert.ErrorIs(t, err, ErrEmptyBaseline)

	p := DefaultParams()
	p.PricePerKWh = -1
	_, err = RunMerged([]model.Record{rec(0, 3, 90000, 0)}, p, Options{})
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestResult_Summarize(t *testing.T) {
	gen, rain := pipelineInput()
	p := DefaultParams()
	p.EventBefore, p.EventAfter = time.Hour, time.Hour

	res, err := Run(gen, rain, p, Options{})
	require.NoError(t, err)

	s := res.Summarize(p.Currency)
	assert.Equal(t, 71, s.Records)
	assert.Equal(t, len(res.Valid), s.ValidRecords)
	assert.Equal(t, "KRW", s.Currency)
	assert.Equal(t, "5000000", s.CleaningCost)
	assert.False(t, s.Triggered)
	assert.Empty(t, s.TriggerAt)
}
