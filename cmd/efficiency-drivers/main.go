// efficiency-drivers fits an efficiency regressor on hourly generation joined
// with monthly rainfall and debris totals, then ranks head, rainfall and
// debris by how much the model depends on each.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/drivers"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
)

func main() {
	genPath := flag.String("gen", "data/power_2024_hourly.csv", "hourly generation CSV")
	envPath := flag.String("env", "data/rain_waste_monthly_2020_2024_merged.csv", "monthly rainfall/debris CSV")
	year := flag.Int("year", 2024, "only use environment months of this year (0 for all)")
	output := flag.String("output", "", "optional JSON path for the training report")
	encoding := flag.String("encoding", "utf-8", "input encoding: utf-8 or cp949")
	epochs := flag.Int("epochs", 200, "training epochs")
	lr := flag.Float64("lr", 0.005, "learning rate")
	batchSize := flag.Int("batch-size", 64, "mini-batch size")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	enc, err := ingest.ParseEncoding(*encoding)
	if err != nil {
		log.Fatalf("Invalid -encoding: %v", err)
	}

	gp := &ingest.GenerationParser{Encoding: enc}
	gen, err := ingest.ParseFile(*genPath, gp.Parse)
	if err != nil {
		log.Fatal(err)
	}
	mp := &ingest.MonthlyParser{Encoding: enc}
	env, err := ingest.ParseFile(*envPath, mp.Parse)
	if err != nil {
		log.Fatal(err)
	}
	env = filterYear(env, *year)

	hours := make([]model.Record, 0, len(gen))
	for _, g := range gen {
		hours = append(hours, model.Record{Timestamp: g.Timestamp, SeaLevel: g.SeaLevel, LakeLevel: g.LakeLevel, EnergyKWh: g.EnergyKWh})
	}
	samples := drivers.Samples(analysis.MergeMonthly(hours, env))
	fmt.Printf("Parsed %d generation hours, %d environment months\n", len(gen), len(env))
	fmt.Printf("Training samples (head > 0, energy > 0): %d\n", len(samples))

	cfg := drivers.DefaultTrainConfig()
	cfg.Epochs = *epochs
	cfg.LearningRate = *lr
	cfg.BatchSize = *batchSize
	cfg.Seed = *seed
	fmt.Printf("Training: epochs=%d lr=%.4f batch_size=%d seed=%d hidden=%v\n",
		cfg.Epochs, cfg.LearningRate, cfg.BatchSize, cfg.Seed, cfg.Hidden)

	_, rep, err := drivers.Train(samples, cfg)
	if err != nil {
		log.Fatalf("Training: %v", err)
	}

	first, last := rep.Losses[0], rep.Losses[len(rep.Losses)-1]
	fmt.Printf("Initial train loss: %.6f\n", first)
	fmt.Printf("Final train loss:   %.6f\n", last)
	fmt.Printf("Train RMSE: %.1f kWh/m   Test RMSE: %.1f kWh/m   R²: %.3f (%d/%d samples)\n",
		rep.TrainRMSE, rep.TestRMSE, rep.R2, rep.TrainSamples, rep.TestSamples)

	printImportances(rep.Importances)

	if *output != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			log.Fatalf("Encoding report: %v", err)
		}
		if dir := filepath.Dir(*output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatal(err)
			}
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("Writing report: %v", err)
		}
		fmt.Printf("\nReport saved to %s (%d bytes)\n", *output, len(data))
	}
}

func filterYear(env []model.MonthlyEnvironmentRecord, year int) []model.MonthlyEnvironmentRecord {
	if year == 0 {
		return env
	}
	prefix := strconv.Itoa(year) + "-"
	var out []model.MonthlyEnvironmentRecord
	for _, e := range env {
		if strings.HasPrefix(string(e.Month), prefix) {
			out = append(out, e)
		}
	}
	return out
}

func printImportances(imps []drivers.Importance) {
	fmt.Println()
	fmt.Println("═══ Efficiency Drivers (permutation importance) ═══")
	fmt.Println("┌────────────┬────────┬──────────────────────┐")
	fmt.Println("│ Feature    │ Share  │                      │")
	fmt.Println("├────────────┼────────┼──────────────────────┤")
	for _, imp := range imps {
		bar := strings.Repeat("█", int(imp.Score*20+0.5))
		fmt.Printf("│ %-10s │ %6.4f │ %-20s │\n", imp.Feature, imp.Score, bar)
	}
	fmt.Println("└────────────┴────────┴──────────────────────┘")
}
