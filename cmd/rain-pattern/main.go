// rain-pattern summarizes how each month's rain fell (total, peak hour,
// heavy hours, concentration in the wettest hours) and correlates those
// patterns with the debris collected at the intake screens. With generation
// data it also lines monthly efficiency up against rainfall and debris.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/config"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/report"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults built in)")
	rainPath := flag.String("rain", "data/rain_hourly_2024_avg.csv", "hourly average rainfall CSV")
	envPath := flag.String("env", "data/rain_waste_monthly_2020_2024_merged.csv", "monthly rainfall/debris CSV")
	genPath := flag.String("gen", "", "optional hourly generation CSV for monthly efficiency")
	output := flag.String("output", "data/rain_pattern_vs_waste.csv", "pattern CSV output path")
	featuresPath := flag.String("features", "", "optional CSV of hourly records with their month's totals (requires -gen)")
	encoding := flag.String("encoding", "utf-8", "input encoding: utf-8 or cp949")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	enc, err := ingest.ParseEncoding(*encoding)
	if err != nil {
		log.Fatalf("Invalid -encoding: %v", err)
	}

	rp := &ingest.RainfallParser{Encoding: enc}
	rain, err := ingest.ParseFile(*rainPath, rp.Parse)
	if err != nil {
		log.Fatal(err)
	}
	mp := &ingest.MonthlyParser{Encoding: enc}
	env, err := ingest.ParseFile(*envPath, mp.Parse)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Loaded %d rainfall hours and %d environment months", len(rain), len(env))

	patterns := analysis.MonthlyPatterns(rain, cfg.Analysis.HeavyRainMM)
	rows := analysis.JoinWaste(patterns, env)

	out := os.Stdout
	fmt.Fprintf(out, "\n═══ Rain Pattern vs Debris ═══\n")
	fmt.Fprintf(out, "  Heavy rain: >= %.0f mm/h   Months with debris data: %d of %d\n\n",
		cfg.Analysis.HeavyRainMM, len(rows), len(patterns))
	report.PrintPatterns(out, rows)
	fmt.Fprintln(out)

	corr, err := analysis.PatternCorrelations(rows)
	switch {
	case errors.Is(err, analysis.ErrTooFewSamples):
		fmt.Fprintf(out, "  Not enough overlapping months for correlation (%d)\n", len(rows))
	case err != nil:
		log.Fatalf("Correlating patterns: %v", err)
	default:
		report.PrintCorrelations(out, model.ColWasteSum, corr)
	}

	fmt.Fprintf(out, "\n── Monthly rainfall vs debris (%d months) ──\n", len(env))
	if rw, err := analysis.RainWasteCorrelation(env); err != nil {
		fmt.Fprintf(out, "  %v\n", err)
	} else {
		report.PrintCorrelations(out, model.ColWasteSum, []analysis.Correlation{rw})
	}

	if *genPath != "" {
		if err := monthlyEfficiency(cfg.Analysis, *genPath, *featuresPath, enc, rain, env); err != nil {
			log.Fatal(err)
		}
	} else if *featuresPath != "" {
		log.Fatal("-features requires -gen")
	}

	if err := writeCSV(*output, func(f *os.File) error { return report.WritePatterns(f, rows) }); err != nil {
		log.Fatalf("Writing pattern CSV: %v", err)
	}
	log.Printf("Wrote %d months to %s", len(rows), *output)
}

// monthlyEfficiency prints mean valid efficiency per environment month and
// optionally writes the hourly feature table.
func monthlyEfficiency(p analysis.Params, genPath, featuresPath string, enc ingest.Encoding,
	rain []model.RainfallRecord, env []model.MonthlyEnvironmentRecord) error {
	gp := &ingest.GenerationParser{Encoding: enc}
	gen, err := ingest.ParseFile(genPath, gp.Parse)
	if err != nil {
		return err
	}

	// Efficiency needs no rainfall, so every generation hour counts.
	hours := make([]model.Record, 0, len(gen))
	for _, g := range gen {
		hours = append(hours, model.Record{Timestamp: g.Timestamp, SeaLevel: g.SeaLevel, LakeLevel: g.LakeLevel, EnergyKWh: g.EnergyKWh})
	}
	valid, err := analysis.ComputeEfficiency(hours, p.Filter())
	if err != nil {
		return fmt.Errorf("computing efficiency: %w", err)
	}
	envRows := analysis.JoinEnvironmentEfficiency(env, analysis.MonthlyEfficiencies(valid))

	fmt.Fprintf(os.Stdout, "\n── Monthly efficiency (%d valid hours) ──\n", len(valid))
	report.PrintEnvironment(os.Stdout, envRows)

	if featuresPath == "" {
		return nil
	}
	joined := analysis.MergeMonthly(analysis.MergeHourly(gen, rain), env)
	if err := writeCSV(featuresPath, func(f *os.File) error { return report.WriteMonthlyJoined(f, joined) }); err != nil {
		return fmt.Errorf("writing features: %w", err)
	}
	log.Printf("Wrote %d hourly feature rows to %s", len(joined), featuresPath)
	return nil
}

func writeCSV(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
