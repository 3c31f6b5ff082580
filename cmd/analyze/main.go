// analyze estimates the clean-condition efficiency baseline of the tidal
// station, attributes post-rain efficiency drops to debris, values the lost
// energy and checks whether cleaning the intake screens pays off around the
// heaviest rain of the period.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/config"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/report"
	"tidal_efficiency/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults built in)")
	genPath := flag.String("gen", "", "hourly generation CSV")
	rainPath := flag.String("rain", "", "hourly average rainfall CSV")
	mergedPath := flag.String("merged", "", "merged generation+rainfall CSV (instead of -gen/-rain)")
	encoding := flag.String("encoding", "utf-8", "input encoding: utf-8 or cp949")
	baselineIn := flag.String("baseline", "", "saved baseline used for valuation (overrides config; \"-\" to derive)")
	baselineOut := flag.String("save-baseline", "", "write the derived baseline to this YAML file")
	output := flag.String("output", "", "annotated CSV output path")
	xlsxPath := flag.String("xlsx", "", "XLSX workbook output path")
	pdfPath := flag.String("pdf", "", "PDF summary output path")
	persist := flag.Bool("db", false, "save the run to Postgres (DATABASE_URL)")
	hourly := flag.Bool("hourly", false, "list every hour of the rain event window")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	enc, err := ingest.ParseEncoding(*encoding)
	if err != nil {
		log.Fatalf("Invalid -encoding: %v", err)
	}

	records, source, err := loadRecords(*genPath, *rainPath, *mergedPath, enc)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Loaded %d hourly records from %s", len(records), source)

	var opts analysis.Options
	baselinePath := cfg.Baseline
	if *baselineIn != "" {
		baselinePath = *baselineIn
	}
	if baselinePath != "" && baselinePath != "-" {
		b, info, err := loadBaseline(baselinePath)
		if err != nil {
			log.Fatalf("Loading baseline: %v", err)
		}
		log.Printf("Valuing against baseline %s (source %q, %d buckets)", baselinePath, info.Source, len(b.Points()))
		opts.Baseline = b
	}

	res, err := analysis.RunMerged(records, cfg.Analysis, opts)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	currency := cfg.Analysis.Currency
	out := os.Stdout
	fmt.Fprintf(out, "\n═══ Tidal Efficiency Analysis ═══\n")
	fmt.Fprintf(out, "  Records: %d merged, %d valid (head %s %.1f m, output > 0)\n\n",
		len(res.Merged), len(res.Valid), headOp(cfg.Analysis.MinHeadInclusive), cfg.Analysis.MinHead)

	fmt.Fprintf(out, "── Clean-condition baseline ──\n")
	report.PrintBaseline(out, res.Baseline)
	fmt.Fprintf(out, "\n── Debris penalty by head ──\n")
	report.PrintPenalties(out, res.Penalties)
	fmt.Fprintf(out, "\n── Dry vs rainy hours ──\n")
	report.PrintComparison(out, res.Comparison)
	fmt.Fprintf(out, "\n── Cleanup decision ──\n")
	report.PrintEvent(out, res.Event, currency, *hourly)

	total := res.TotalLoss()
	fmt.Fprintf(out, "\n  Total valued loss over all valid hours: %s %s\n\n", total.StringFixed(0), currency)

	runID := uuid.New()
	meta := report.Meta{
		RunID:       runID.String(),
		GeneratedAt: time.Now().UTC(),
		Source:      source,
		Currency:    currency,
	}

	if *output != "" {
		if err := writeFile(*output, func(f *os.File) error { return report.WriteAnnotated(f, res.Valid) }); err != nil {
			log.Fatalf("Writing annotated CSV: %v", err)
		}
		log.Printf("Wrote %d annotated records to %s", len(res.Valid), *output)
	}

	if *baselineOut != "" {
		info := analysis.ArtifactInfo{GeneratedAt: meta.GeneratedAt, Source: source}
		if err := writeFile(*baselineOut, func(f *os.File) error { return analysis.SaveBaseline(f, res.Baseline, info) }); err != nil {
			log.Fatalf("Writing baseline: %v", err)
		}
		log.Printf("Saved baseline to %s", *baselineOut)
	}

	if *xlsxPath != "" {
		data, err := report.BuildWorkbook(res, meta)
		if err != nil {
			log.Fatalf("Building workbook: %v", err)
		}
		if err := os.WriteFile(*xlsxPath, data, 0o644); err != nil {
			log.Fatalf("Writing workbook: %v", err)
		}
		log.Printf("Wrote workbook to %s", *xlsxPath)
	}

	if *pdfPath != "" {
		data, err := report.BuildSummaryPDF(res, meta)
		if err != nil {
			log.Fatalf("Building PDF: %v", err)
		}
		if err := os.WriteFile(*pdfPath, data, 0o644); err != nil {
			log.Fatalf("Writing PDF: %v", err)
		}
		log.Printf("Wrote PDF summary to %s", *pdfPath)
	}

	if *persist {
		if cfg.DatabaseURL == "" {
			log.Fatal("-db requires DATABASE_URL or database_url in the config")
		}
		if err := saveRun(cfg, runID, source, res); err != nil {
			log.Fatalf("Saving run: %v", err)
		}
		log.Printf("Saved run %s to Postgres", runID)
	}
}

// loadRecords reads either a merged CSV or a generation/rainfall pair and
// returns hourly records plus a description of the source.
func loadRecords(genPath, rainPath, mergedPath string, enc ingest.Encoding) ([]model.Record, string, error) {
	if mergedPath != "" {
		p := &ingest.MergedParser{Encoding: enc}
		records, err := ingest.ParseFile(mergedPath, p.Parse)
		if err != nil {
			return nil, "", err
		}
		logSkipped(mergedPath, p.Skipped)
		return records, filepath.Base(mergedPath), nil
	}

	if genPath == "" || rainPath == "" {
		return nil, "", fmt.Errorf("either -merged or both -gen and -rain are required")
	}
	gp := &ingest.GenerationParser{Encoding: enc}
	gen, err := ingest.ParseFile(genPath, gp.Parse)
	if err != nil {
		return nil, "", err
	}
	logSkipped(genPath, gp.Skipped)

	rp := &ingest.RainfallParser{Encoding: enc}
	rain, err := ingest.ParseFile(rainPath, rp.Parse)
	if err != nil {
		return nil, "", err
	}
	logSkipped(rainPath, rp.Skipped)

	records := analysis.MergeHourly(gen, rain)
	log.Printf("Joined %d generation and %d rainfall rows into %d hours", len(gen), len(rain), len(records))
	return records, filepath.Base(genPath) + "+" + filepath.Base(rainPath), nil
}

func logSkipped(path string, n int) {
	if n > 0 {
		log.Printf("  %s: skipped %d rows with unparseable values", path, n)
	}
}

func loadBaseline(path string) (*analysis.Baseline, analysis.ArtifactInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, analysis.ArtifactInfo{}, err
	}
	defer f.Close()
	return analysis.LoadBaseline(f)
}

func writeFile(path string, write func(*os.File) error) error {
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

func saveRun(cfg config.Config, runID uuid.UUID, source string, res *analysis.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	_, err = repo.SaveRun(ctx, postgres.RunInfo{
		ID:          runID,
		CreatedAt:   time.Now().UTC(),
		Source:      source,
		Currency:    cfg.Analysis.Currency,
		PricePerKWh: cfg.Analysis.PricePerKWh,
	}, res)
	return err
}

func headOp(inclusive bool) string {
	if inclusive {
		return ">="
	}
	return ">"
}
