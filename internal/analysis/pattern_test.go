package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidal_efficiency/internal/model"
)

func TestPercentile_LinearBetweenRanks(t *testing.T) {
	values := []float64{20, 0, 0, 0, 10, 0, 0, 0, 0, 0}

	assert.InDelta(t, 11.0, percentile(values, 90), 1e-9)
	assert.InDelta(t, 0.0, percentile(values, 50), 1e-9)
	assert.InDelta(t, 20.0, percentile(values, 100), 1e-9)
	assert.Equal(t, 20.0, values[0], "input left unsorted")
}

func TestMonthlyPatterns(t *testing.T) {
	var rain []model.RainfallRecord
	july := []float64{0, 0, 0, 0, 0, 0, 0, 0, 10, 20}
	for i, mm := range july {
		rain = append(rain, model.RainfallRecord{Timestamp: hour(i), RainfallMM: mm})
	}
	aug := time.Date(2024, 8, 3, 0, 0, 0, 0, time.UTC)
	rain = append(rain,
		model.RainfallRecord{Timestamp: aug, RainfallMM: 0},
		model.RainfallRecord{Timestamp: aug.Add(time.Hour), RainfallMM: 0},
	)

	patterns := MonthlyPatterns(rain, 10)

	require.Len(t, patterns, 2)
	p := patterns[0]
	assert.Equal(t, model.MonthKey("2024-07"), p.Month)
	assert.InDelta(t, 30.0, p.RainSum, 1e-9)
	assert.InDelta(t, 20.0, p.RainPeak, 1e-9)
	assert.Equal(t, 2, p.HeavyHours)
	assert.InDelta(t, 20.0/30.0, p.Top10Ratio, 1e-9)

	dry := patterns[1]
	assert.Equal(t, model.MonthKey("2024-08"), dry.Month)
	assert.Zero(t, dry.RainSum)
	assert.Zero(t, dry.Top10Ratio)
	assert.Zero(t, dry.HeavyHours)
}

func TestJoinWaste_InnerJoin(t *testing.T) {
	patterns := []MonthlyRainPattern{{Month: "2024-06"}, {Month: "2024-07"}}
	env := []model.MonthlyEnvironmentRecord{
		{Month: "2024-07", WasteSum: 35},
		{Month: "2024-08", WasteSum: 61},
	}

	rows := JoinWaste(patterns, env)

	require.Len(t, rows, 1)
	assert.Equal(t, model.MonthKey("2024-07"), rows[0].Month)
	assert.Equal(t, 35.0, rows[0].WasteSum)
}

func TestPearson(t *testing.T) {
	c, err := Pearson("rain_sum", []float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5})

	require.NoError(t, err)
	assert.Equal(t, "rain_sum", c.Metric)
	assert.Equal(t, 5, c.N)
	assert.InDelta(t, 0.8, c.R, 1e-12)
	assert.InDelta(t, 0.104088, c.P, 1e-5)
}

func TestPearson_PerfectAndConstant(t *testing.T) {
	c, err := Pearson("x", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.R, 1e-12)
	assert.InDelta(t, 0.0, c.P, 1e-6)

	c, err = Pearson("x", []float64{1, 1, 1}, []float64{2, 4, 6})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(c.R))
	assert.True(t, math.IsNaN(c.P))
}

func TestPearson_TooFewSamples(t *testing.T) {
	_, err := Pearson("x", []float64{1, 2}, []float64{3, 4})
	assert.ErrorIs(t, err, ErrTooFewSamples)

	_, err = Pearson("x", []float64{1, 2, 3}, []float64{3, 4})
	assert.ErrorIs(t, err, ErrTooFewSamples)
}

func TestPatternCorrelations(t *testing.T) {
	rows := []PatternRow{
		{MonthlyRainPattern: MonthlyRainPattern{Month: "2024-06", RainSum: 100, RainPeak: 10, HeavyHours: 1, Top10Ratio: 0.4}, WasteSum: 20},
		{MonthlyRainPattern: MonthlyRainPattern{Month: "2024-07", RainSum: 300, RainPeak: 40, HeavyHours: 6, Top10Ratio: 0.7}, WasteSum: 55},
		{MonthlyRainPattern: MonthlyRainPattern{Month: "2024-08", RainSum: 200, RainPeak: 25, HeavyHours: 3, Top10Ratio: 0.5}, WasteSum: 41},
	}

	corr, err := PatternCorrelations(rows)

	require.NoError(t, err)
	require.Len(t, corr, len(PatternMetrics))
	for i, c := range corr {
		assert.Equal(t, PatternMetrics[i], c.Metric)
		assert.Equal(t, 3, c.N)
		assert.Greater(t, c.R, 0.9)
	}

	_, err = PatternCorrelations(rows[:2])
	assert.ErrorIs(t, err, ErrTooFewSamples)
}

func TestMonthlyEfficiencies_LeftJoin(t *testing.T) {
	aug := int(time.Date(2024, 8, 1, 5, 0, 0, 0, time.UTC).Sub(t0).Hours())
	records := []Annotated{
		{Record: rec(0, 3, 0, 0), Efficiency: 30000},
		{Record: rec(1, 3, 0, 0), Efficiency: 31000},
		{Record: rec(aug, 3, 0, 0), Efficiency: 28000},
	}

	eff := MonthlyEfficiencies(records)
	require.Len(t, eff, 2)
	assert.Equal(t, model.MonthKey("2024-07"), eff[0].Month)
	assert.InDelta(t, 30500.0, eff[0].AvgEfficiency, 1e-9)
	assert.Equal(t, 2, eff[0].Count)

	env := []model.MonthlyEnvironmentRecord{
		{Month: "2024-09", RainSum: 90, WasteSum: 12},
		{Month: "2024-07", RainSum: 200, WasteSum: 35},
	}
	rows := JoinEnvironmentEfficiency(env, eff)

	require.Len(t, rows, 2)
	assert.Equal(t, model.MonthKey("2024-07"), rows[0].Month)
	assert.True(t, rows[0].HasEfficiency)
	assert.InDelta(t, 30500.0, rows[0].AvgEfficiency, 1e-9)
	assert.Equal(t, model.MonthKey("2024-09"), rows[1].Month)
	assert.False(t, rows[1].HasEfficiency)
}
