package drivers

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/model"
)

func TestNetwork_ForwardDimensions(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	net := newNetwork([]int{3, 16, 8, 1}, rng)

	x := mat.NewDense(5, 3, nil)
	acts := net.forward(x)

	require.Len(t, acts, 4)
	r, c := acts[3].Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 1, c)
	for _, v := range net.predict(x) {
		assert.False(t, math.IsNaN(v))
	}
}

func TestNetwork_FitsLinearTarget(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	net := newNetwork([]int{2, 16, 1}, rng)

	var data, y []float64
	for a := -1.0; a <= 1.0; a += 0.25 {
		for b := -1.0; b <= 1.0; b += 0.25 {
			data = append(data, a, b)
			y = append(y, 2*a-b)
		}
	}
	x := mat.NewDense(len(y), 2, data)

	cfg := DefaultTrainConfig()
	cfg.LearningRate = 0.01
	first := net.step(x, y, cfg, 1)
	var last float64
	for step := 2; step <= 2000; step++ {
		last = net.step(x, y, cfg, step)
	}

	assert.Less(t, last, first)
	assert.Less(t, last, 0.01, "final MSE %f", last)
}

func TestSamples(t *testing.T) {
	env := model.MonthlyEnvironmentRecord{Month: "2024-07", RainSum: 412.5, WasteSum: 38.2}
	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	joined := []analysis.MonthlyJoined{
		{Record: model.Record{Timestamp: at, SeaLevel: 3.25, LakeLevel: 0.25, EnergyKWh: 90000}, Environment: env},
		{Record: model.Record{Timestamp: at, SeaLevel: 1.0, LakeLevel: 1.0, EnergyKWh: 500}, Environment: env},
		{Record: model.Record{Timestamp: at, SeaLevel: 2.0, LakeLevel: 1.0, EnergyKWh: 0}, Environment: env},
		{Record: model.Record{Timestamp: at, SeaLevel: 0.5, LakeLevel: 1.0, EnergyKWh: 100}, Environment: env},
	}

	got := Samples(joined)

	require.Len(t, got, 1)
	assert.Equal(t, Sample{Head: 3, Rain: 412.5, Waste: 38.2, Efficiency: 30000}, got[0])
}

func TestFitNormalization(t *testing.T) {
	samples := []Sample{
		{Head: 1, Rain: 10, Waste: 5, Efficiency: 100},
		{Head: 3, Rain: 10, Waste: 15, Efficiency: 300},
	}

	norm := fitNormalization(samples)

	assert.Equal(t, []float64{2, 10, 10}, norm.Mean)
	assert.Equal(t, []float64{1, 1, 5}, norm.Std, "constant column falls back to 1")
	assert.Equal(t, 200.0, norm.TargetM)
	assert.Equal(t, 100.0, norm.TargetS)
}

func syntheticSamples(n int, seed uint64) []Sample {
	rng := rand.New(rand.NewPCG(seed, 0))
	out := make([]Sample, n)
	for i := range out {
		head := 1 + 7*rng.Float64()
		rain := 300 * rng.Float64()
		waste := 100 * rng.Float64()
		out[i] = Sample{
			Head:       head,
			Rain:       rain,
			Waste:      waste,
			Efficiency: 20000 + 3000*head - 80*waste,
		}
	}
	return out
}

func TestTrain_RanksDrivers(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.Epochs = 150
	cfg.BatchSize = 32
	cfg.LearningRate = 0.01

	m, report, err := Train(syntheticSamples(400, 1), cfg)
	require.NoError(t, err)

	assert.Equal(t, 320, report.TrainSamples)
	assert.Equal(t, 80, report.TestSamples)
	assert.Len(t, report.Losses, 150)
	assert.Greater(t, report.R2, 0.9)

	require.Len(t, report.Importances, 3)
	assert.Equal(t, FeatureHead, report.Importances[0].Feature)
	assert.Equal(t, FeatureWaste, report.Importances[1].Feature)
	assert.Equal(t, FeatureRain, report.Importances[2].Feature)

	var sum float64
	for _, imp := range report.Importances {
		assert.GreaterOrEqual(t, imp.Score, 0.0)
		sum += imp.Score
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	pred := m.Predict(Sample{Head: 4, Rain: 100, Waste: 50})
	assert.InDelta(t, 28000, pred, 1500)
}

func TestTrain_Deterministic(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.Epochs = 20
	samples := syntheticSamples(100, 3)

	_, a, err := Train(samples, cfg)
	require.NoError(t, err)
	_, b, err := Train(samples, cfg)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestTrain_Errors(t *testing.T) {
	_, _, err := Train(syntheticSamples(5, 1), DefaultTrainConfig())
	assert.ErrorIs(t, err, ErrTooFewSamples)

	cfg := DefaultTrainConfig()
	cfg.Epochs = 0
	_, _, err = Train(syntheticSamples(20, 1), cfg)
	assert.Error(t, err)
}
