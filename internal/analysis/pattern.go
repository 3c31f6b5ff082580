package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"tidal_efficiency/internal/model"
)

// MonthlyRainPattern summarizes how a month's rain fell.
type MonthlyRainPattern struct {
	Month      model.MonthKey
	RainSum    float64
	RainPeak   float64
	HeavyHours int
	// Top10Ratio is the share of the month's rain that fell in hours at or
	// above the month's 90th percentile.
	Top10Ratio float64
}

// MonthlyPatterns folds hourly rainfall into per-month pattern metrics,
// ordered by month.
func MonthlyPatterns(rain []model.RainfallRecord, heavyMM float64) []MonthlyRainPattern {
	byMonth := make(map[model.MonthKey][]float64)
	for _, r := range rain {
		m := model.MonthOf(r.Timestamp)
		byMonth[m] = append(byMonth[m], r.RainfallMM)
	}

	months := make([]model.MonthKey, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	patterns := make([]MonthlyRainPattern, 0, len(months))
	for _, m := range months {
		values := byMonth[m]
		p := MonthlyRainPattern{
			Month:    m,
			RainSum:  floats.Sum(values),
			RainPeak: floats.Max(values),
		}
		for _, v := range values {
			if v >= heavyMM {
				p.HeavyHours++
			}
		}
		p.Top10Ratio = top10Ratio(values, p.RainSum)
		patterns = append(patterns, p)
	}
	return patterns
}

func top10Ratio(values []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	threshold := percentile(values, 90)
	var top float64
	for _, v := range values {
		if v >= threshold {
			top += v
		}
	}
	return top / total
}

// percentile interpolates linearly between the closest ranks of the sorted
// values; q is in [0, 100].
func percentile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// PatternRow is a month's rain pattern next to the debris collected.
type PatternRow struct {
	MonthlyRainPattern
	WasteSum float64
}

// JoinWaste inner-joins patterns with monthly environment records on month.
func JoinWaste(patterns []MonthlyRainPattern, env []model.MonthlyEnvironmentRecord) []PatternRow {
	waste := make(map[model.MonthKey]float64, len(env))
	for _, e := range env {
		if _, seen := waste[e.Month]; !seen {
			waste[e.Month] = e.WasteSum
		}
	}

	rows := make([]PatternRow, 0, len(patterns))
	for _, p := range patterns {
		w, ok := waste[p.Month]
		if !ok {
			continue
		}
		rows = append(rows, PatternRow{MonthlyRainPattern: p, WasteSum: w})
	}
	return rows
}

// Correlation is a Pearson coefficient with its two-sided p-value.
type Correlation struct {
	Metric string
	R      float64
	P      float64
	N      int
}

// Pearson correlates x and y. The p-value tests r against zero with a
// Student t distribution on n-2 degrees of freedom. Constant inputs yield NaN.
func Pearson(metric string, x, y []float64) (Correlation, error) {
	n := len(x)
	if n != len(y) || n < 3 {
		return Correlation{}, ErrTooFewSamples
	}

	c := Correlation{Metric: metric, N: n, R: stat.Correlation(x, y, nil)}
	switch {
	case math.IsNaN(c.R):
		c.P = math.NaN()
	case math.Abs(c.R) >= 1:
		c.R = math.Copysign(1, c.R)
		c.P = 0
	default:
		df := float64(n - 2)
		t := c.R * math.Sqrt(df/(1-c.R*c.R))
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		c.P = 2 * dist.Survival(math.Abs(t))
	}
	return c, nil
}

// PatternMetrics names the columns correlated against waste_sum, in report order.
var PatternMetrics = []string{"rain_sum", "rain_peak", "heavy_hours", "top10_ratio"}

// PatternCorrelations correlates each pattern metric with collected debris.
func PatternCorrelations(rows []PatternRow) ([]Correlation, error) {
	columns := map[string][]float64{}
	waste := make([]float64, len(rows))
	for i, r := range rows {
		columns["rain_sum"] = append(columns["rain_sum"], r.RainSum)
		columns["rain_peak"] = append(columns["rain_peak"], r.RainPeak)
		columns["heavy_hours"] = append(columns["heavy_hours"], float64(r.HeavyHours))
		columns["top10_ratio"] = append(columns["top10_ratio"], r.Top10Ratio)
		waste[i] = r.WasteSum
	}

	result := make([]Correlation, 0, len(PatternMetrics))
	for _, metric := range PatternMetrics {
		c, err := Pearson(metric, columns[metric], waste)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// MonthlyEfficiency is the mean efficiency of a month's valid records.
type MonthlyEfficiency struct {
	Month         model.MonthKey
	AvgEfficiency float64
	Count         int
}

// MonthlyEfficiencies groups valid records by month, ordered by month.
func MonthlyEfficiencies(records []Annotated) []MonthlyEfficiency {
	byMonth := make(map[model.MonthKey]*meanAcc)
	for _, r := range records {
		m := model.MonthOf(r.Timestamp)
		acc := byMonth[m]
		if acc == nil {
			acc = &meanAcc{}
			byMonth[m] = acc
		}
		acc.add(r.Efficiency)
	}

	result := make([]MonthlyEfficiency, 0, len(byMonth))
	for m, acc := range byMonth {
		result = append(result, MonthlyEfficiency{Month: m, AvgEfficiency: acc.mean(), Count: acc.count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result
}

// EnvironmentRow is a month of environment data with its efficiency, if any
// valid generation was recorded that month.
type EnvironmentRow struct {
	model.MonthlyEnvironmentRecord
	AvgEfficiency float64
	HasEfficiency bool
}

// JoinEnvironmentEfficiency keeps every environment month and attaches the
// month's mean efficiency where one exists.
func JoinEnvironmentEfficiency(env []model.MonthlyEnvironmentRecord, eff []MonthlyEfficiency) []EnvironmentRow {
	byMonth := make(map[model.MonthKey]float64, len(eff))
	for _, e := range eff {
		byMonth[e.Month] = e.AvgEfficiency
	}

	rows := make([]EnvironmentRow, 0, len(env))
	for _, e := range env {
		avg, ok := byMonth[e.Month]
		rows = append(rows, EnvironmentRow{MonthlyEnvironmentRecord: e, AvgEfficiency: avg, HasEfficiency: ok})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows
}

// RainWasteCorrelation correlates monthly rainfall with collected debris.
func RainWasteCorrelation(env []model.MonthlyEnvironmentRecord) (Correlation, error) {
	rain := make([]float64, len(env))
	waste := make([]float64, len(env))
	for i, e := range env {
		rain[i] = e.RainSum
		waste[i] = e.WasteSum
	}
	return Pearson("rain_sum", rain, waste)
}
