// Package drivers estimates how strongly head, rainfall and debris drive
// generation efficiency (kWh per metre of head). A small neural regressor is
// fitted to hourly records joined with their month's environment totals and
// the drivers are ranked by permutation importance.
package drivers

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"tidal_efficiency/internal/analysis"
)

// Feature names, in column order.
const (
	FeatureHead  = "head"
	FeatureRain  = "rain_avg"
	FeatureWaste = "waste_sum"
)

// Features lists the model inputs in column order.
var Features = []string{FeatureHead, FeatureRain, FeatureWaste}

// ErrTooFewSamples is returned when there is not enough data to split.
var ErrTooFewSamples = errors.New("drivers: too few samples")

const minSamples = 10

// Sample is one training row.
type Sample struct {
	Head       float64 // m
	Rain       float64 // monthly rainfall, mm
	Waste      float64 // monthly collected debris
	Efficiency float64 // kWh per metre of head
}

func (s Sample) features() []float64 {
	return []float64{s.Head, s.Rain, s.Waste}
}

// Samples keeps the hours that had a positive head and produced energy.
func Samples(joined []analysis.MonthlyJoined) []Sample {
	out := make([]Sample, 0, len(joined))
	for _, j := range joined {
		head := j.Head()
		if head <= 0 || j.EnergyKWh <= 0 {
			continue
		}
		out = append(out, Sample{
			Head:       head,
			Rain:       j.Environment.RainSum,
			Waste:      j.Environment.WasteSum,
			Efficiency: j.EnergyKWh / head,
		})
	}
	return out
}

// TrainConfig holds hyperparameters for training.
type TrainConfig struct {
	Hidden       []int
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	BatchSize    int
	Epochs       int
	TestFraction float64
	Seed         uint64
}

// DefaultTrainConfig mirrors an 80/20 split with seed 42.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Hidden:       []int{16, 8},
		LearningRate: 0.005,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		BatchSize:    64,
		Epochs:       200,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Importance is a feature's share of the total permutation importance.
type Importance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// Report summarizes a training run. Errors are in target units.
type Report struct {
	TrainSamples int          `json:"train_samples"`
	TestSamples  int          `json:"test_samples"`
	TrainRMSE    float64      `json:"train_rmse"`
	TestRMSE     float64      `json:"test_rmse"`
	R2           float64      `json:"r2"`
	Importances  []Importance `json:"importances"`
	Losses       []float64    `json:"losses"`
}

// Normalization holds z-score parameters per feature plus the target.
type Normalization struct {
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
	TargetM float64   `json:"target_mean"`
	TargetS float64   `json:"target_std"`
}

func fitNormalization(samples []Sample) Normalization {
	n := float64(len(samples))
	norm := Normalization{
		Mean: make([]float64, len(Features)),
		Std:  make([]float64, len(Features)),
	}
	for _, s := range samples {
		for j, v := range s.features() {
			norm.Mean[j] += v
		}
		norm.TargetM += s.Efficiency
	}
	for j := range norm.Mean {
		norm.Mean[j] /= n
	}
	norm.TargetM /= n

	for _, s := range samples {
		for j, v := range s.features() {
			d := v - norm.Mean[j]
			norm.Std[j] += d * d
		}
		d := s.Efficiency - norm.TargetM
		norm.TargetS += d * d
	}
	for j := range norm.Std {
		norm.Std[j] = stdOrOne(norm.Std[j], n)
	}
	norm.TargetS = stdOrOne(norm.TargetS, n)
	return norm
}

func stdOrOne(sumSq, n float64) float64 {
	s := math.Sqrt(sumSq / n)
	if s < 1e-8 {
		return 1
	}
	return s
}

// Model is a trained efficiency regressor.
type Model struct {
	net  *network
	norm Normalization
}

// Norm returns the normalization fitted on the training rows.
func (m *Model) Norm() Normalization { return m.norm }

// Predict returns the estimated efficiency for one sample's features.
func (m *Model) Predict(s Sample) float64 {
	return m.predict(m.design([]Sample{s}))[0]
}

// design builds the normalized feature matrix, one row per sample.
func (m *Model) design(samples []Sample) *mat.Dense {
	x := mat.NewDense(len(samples), len(Features), nil)
	for i, s := range samples {
		for j, v := range s.features() {
			x.Set(i, j, (v-m.norm.Mean[j])/m.norm.Std[j])
		}
	}
	return x
}

func (m *Model) predict(x *mat.Dense) []float64 {
	out := m.net.predict(x)
	for i := range out {
		out[i] = out[i]*m.norm.TargetS + m.norm.TargetM
	}
	return out
}

// Train fits a model on a seeded shuffle of samples and ranks the features.
func Train(samples []Sample, cfg TrainConfig) (*Model, Report, error) {
	if len(samples) < minSamples {
		return nil, Report{}, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(samples), minSamples)
	}
	if cfg.BatchSize <= 0 || cfg.Epochs <= 0 {
		return nil, Report{}, fmt.Errorf("drivers: batch size and epochs must be positive")
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	train, test := split(samples, cfg.TestFraction, rng)

	m := &Model{norm: fitNormalization(train)}
	sizes := append(append([]int{len(Features)}, cfg.Hidden...), 1)
	m.net = newNetwork(sizes, rng)

	x := m.design(train)
	y := make([]float64, len(train))
	for i, s := range train {
		y[i] = (s.Efficiency - m.norm.TargetM) / m.norm.TargetS
	}

	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}
	losses := make([]float64, 0, cfg.Epochs)
	t := 0
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var sum float64
		var batches int
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			bx, by := batch(x, y, order[start:end])
			t++
			sum += m.net.step(bx, by, cfg, t)
			batches++
		}
		losses = append(losses, sum/float64(batches))
	}

	report := Report{
		TrainSamples: len(train),
		TestSamples:  len(test),
		TrainRMSE:    math.Sqrt(m.mse(train)),
		TestRMSE:     math.Sqrt(m.mse(test)),
		R2:           m.r2(test),
		Importances:  m.importance(samples, rng),
		Losses:       losses,
	}
	return m, report, nil
}

func split(samples []Sample, testFraction float64, rng *rand.Rand) (train, test []Sample) {
	nTest := int(float64(len(samples)) * testFraction)
	nTest = max(1, min(nTest, len(samples)-1))
	perm := rng.Perm(len(samples))
	for i, idx := range perm {
		if i < nTest {
			test = append(test, samples[idx])
		} else {
			train = append(train, samples[idx])
		}
	}
	return train, test
}

func batch(x *mat.Dense, y []float64, rows []int) (*mat.Dense, []float64) {
	_, cols := x.Dims()
	bx := mat.NewDense(len(rows), cols, nil)
	by := make([]float64, len(rows))
	for i, r := range rows {
		bx.SetRow(i, x.RawRowView(r))
		by[i] = y[r]
	}
	return bx, by
}

func (m *Model) mse(samples []Sample) float64 {
	return meanSquaredError(m.predict(m.design(samples)), targets(samples))
}

func (m *Model) r2(samples []Sample) float64 {
	y := targets(samples)
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	var ssTot float64
	for _, v := range y {
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		return 0
	}
	ssRes := meanSquaredError(m.predict(m.design(samples)), y) * float64(len(y))
	return 1 - ssRes/ssTot
}

// importance shuffles one feature column at a time and measures how much the
// error grows. Scores are clipped at zero and normalized to sum to one.
func (m *Model) importance(samples []Sample, rng *rand.Rand) []Importance {
	x := m.design(samples)
	y := targets(samples)
	base := meanSquaredError(m.predict(x), y)

	rows, _ := x.Dims()
	out := make([]Importance, len(Features))
	var total float64
	for j, name := range Features {
		shuffled := mat.DenseCopyOf(x)
		col := mat.Col(nil, j, x)
		rng.Shuffle(rows, func(a, b int) { col[a], col[b] = col[b], col[a] })
		shuffled.SetCol(j, col)

		inc := math.Max(0, meanSquaredError(m.predict(shuffled), y)-base)
		out[j] = Importance{Feature: name, Score: inc}
		total += inc
	}
	for j := range out {
		if total > 0 {
			out[j].Score /= total
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

func targets(samples []Sample) []float64 {
	y := make([]float64, len(samples))
	for i, s := range samples {
		y[i] = s.Efficiency
	}
	return y
}

func meanSquaredError(pred, actual []float64) float64 {
	var sum float64
	for i := range pred {
		d := pred[i] - actual[i]
		sum += d * d
	}
	return sum / float64(len(pred))
}
