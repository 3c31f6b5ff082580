// anomaly-detect compares each day's generation with what the clean-water
// baseline expects for the heads seen that day and flags days whose
// deviation stands out from the rest.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/config"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
)

type dayStats struct {
	Date         string
	ActualKWh    float64
	ExpectedKWh  float64
	DeviationPct float64
	RainMM       float64
	AffectedHrs  int
	MeanHead     float64
	Category     string
	Cause        string
}

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults built in)")
	mergedPath := flag.String("merged", "data/merged_power_rain_2024.csv", "merged hourly generation/rainfall CSV")
	encoding := flag.String("encoding", "utf-8", "input encoding: utf-8 or cp949")
	sigma := flag.Float64("sigma", 2.0, "standard deviation threshold for flagging anomalies")
	minKWh := flag.Float64("min-kwh", 1000, "minimum daily kWh to consider a day")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	enc, err := ingest.ParseEncoding(*encoding)
	if err != nil {
		log.Fatalf("Invalid -encoding: %v", err)
	}
	p := &ingest.MergedParser{Encoding: enc}
	records, err := ingest.ParseFile(*mergedPath, p.Parse)
	if err != nil {
		log.Fatal(err)
	}
	res, err := analysis.RunMerged(records, cfg.Analysis, analysis.Options{})
	if err != nil {
		log.Fatalf("Running analysis: %v", err)
	}

	allDays := dailyStats(res, *minKWh)
	first, last := res.Merged[0].Timestamp, res.Merged[len(res.Merged)-1].Timestamp

	fmt.Println()
	fmt.Println("Generation Anomaly Detection")
	fmt.Printf("  Data: %s to %s (%d valid hours)\n", first.Format("2006-01-02"), last.Format("2006-01-02"), len(res.Valid))
	fmt.Printf("  Sigma threshold: %.1f | Min daily kWh: %.0f\n", *sigma, *minKWh)
	fmt.Println()

	if len(allDays) == 0 {
		fmt.Println("No days with sufficient data found.")
		return
	}

	mean, stddev, flagged := flagAnomalies(allDays, *sigma)

	fmt.Printf("  Days analyzed: %d\n", len(allDays))
	fmt.Printf("  Mean deviation: %+.1f%%\n", mean)
	fmt.Printf("  Std deviation:  %.1f%%\n", stddev)
	fmt.Printf("  Anomalies found: %d (%.1f%%)\n", len(flagged), 100*float64(len(flagged))/float64(len(allDays)))
	fmt.Println()

	if len(flagged) == 0 {
		fmt.Println("  No anomalous days detected.")
		return
	}
	printFlagged(flagged)
}

// dailyStats sums actual and baseline-expected energy over each day's valid
// hours. Days below minKWh of actual output are skipped.
func dailyStats(res *analysis.Result, minKWh float64) []dayStats {
	type dayAccum struct {
		actual, expected, headSum float64
		hours, affected           int
		rain                      float64
	}
	dayMap := make(map[string]*dayAccum)
	get := func(key string) *dayAccum {
		acc, ok := dayMap[key]
		if !ok {
			acc = &dayAccum{}
			dayMap[key] = acc
		}
		return acc
	}

	for _, r := range res.Valid {
		acc := get(r.Timestamp.Format("2006-01-02"))
		acc.actual += r.EnergyKWh
		acc.expected += res.ValuationBaseline.Lookup(r.Head) * r.Head
		acc.headSum += r.Head
		acc.hours++
		if r.Status == model.StatusRainAffected {
			acc.affected++
		}
	}
	for _, r := range res.Merged {
		if acc, ok := dayMap[r.Timestamp.Format("2006-01-02")]; ok {
			acc.rain += r.RainfallMM
		}
	}

	dayKeys := make([]string, 0, len(dayMap))
	for k := range dayMap {
		dayKeys = append(dayKeys, k)
	}
	sort.Strings(dayKeys)

	var result []dayStats
	for _, key := range dayKeys {
		acc := dayMap[key]
		if acc.actual < minKWh {
			continue
		}
		var dev float64
		if acc.expected > 0 {
			dev = (acc.actual - acc.expected) / acc.expected * 100
		}
		result = append(result, dayStats{
			Date:         key,
			ActualKWh:    acc.actual,
			ExpectedKWh:  acc.expected,
			DeviationPct: dev,
			RainMM:       acc.rain,
			AffectedHrs:  acc.affected,
			MeanHead:     acc.headSum / float64(acc.hours),
		})
	}
	return result
}

// flagAnomalies marks days whose deviation is more than sigma standard
// deviations from the mean deviation.
func flagAnomalies(days []dayStats, sigma float64) (mean, stddev float64, flagged []dayStats) {
	var sum, sumSq float64
	for _, d := range days {
		sum += d.DeviationPct
		sumSq += d.DeviationPct * d.DeviationPct
	}
	n := float64(len(days))
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	stddev = math.Sqrt(variance)

	for _, d := range days {
		if math.Abs(d.DeviationPct-mean) <= sigma*stddev {
			continue
		}
		if d.ActualKWh > d.ExpectedKWh {
			d.Category = "HIGH"
		} else {
			d.Category = "LOW"
		}
		d.Cause = inferCause(d)
		flagged = append(flagged, d)
	}
	return mean, stddev, flagged
}

func inferCause(d dayStats) string {
	if d.Category == "HIGH" {
		if d.DeviationPct > 30 {
			return "Far above baseline, check the level gauges"
		}
		return "Above baseline"
	}
	if d.AffectedHrs > 0 {
		return "Debris inflow after rain"
	}
	if d.DeviationPct < -50 {
		return "Very low output, outage or maintenance?"
	}
	return "Below baseline"
}

func printFlagged(flagged []dayStats) {
	fmt.Printf("  %-12s │ %9s │ %9s │ %8s │ %6s │ %5s │ %5s │ %s\n",
		"Date", "Actual", "Expected", "Dev %", "Rain", "Head", "Type", "Possible Cause")
	fmt.Printf("  ─────────────┼───────────┼───────────┼──────────┼────────┼───────┼───────┼─────────────────────\n")
	for _, d := range flagged {
		fmt.Fprintf(os.Stdout, "  %-12s │ %9.0f │ %9.0f │ %+7.1f  │ %6.1f │ %5.2f │ %5s │ %s\n",
			d.Date, d.ActualKWh, d.ExpectedKWh, d.DeviationPct, d.RainMM, d.MeanHead, d.Category, d.Cause)
	}
	fmt.Println()
}
