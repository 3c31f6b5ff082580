// merge-data joins the station's raw hourly generation export with averaged
// hourly rainfall and writes a merged CSV with the head (낙차) column, ready
// for analyze -merged.
package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/report"
)

var errNoOverlap = errors.New("no overlapping hours between generation and rainfall")

func main() {
	genPath := flag.String("gen", "data/sihwa_tidal.csv", "raw generation export (날짜, 시간 columns)")
	rainPath := flag.String("rain", "data/rain_avg.csv", "hourly average rainfall CSV")
	genEncoding := flag.String("gen-encoding", "utf-8", "generation file encoding")
	rainEncoding := flag.String("rain-encoding", "utf-8", "rainfall file encoding")
	output := flag.String("output", "data/final_merged.csv", "merged CSV output path")
	flag.Parse()

	genEnc, err := ingest.ParseEncoding(*genEncoding)
	if err != nil {
		log.Fatalf("Invalid -gen-encoding: %v", err)
	}
	rainEnc, err := ingest.ParseEncoding(*rainEncoding)
	if err != nil {
		log.Fatalf("Invalid -rain-encoding: %v", err)
	}

	merged, err := mergeFiles(*genPath, *rainPath, *output, genEnc, rainEnc)
	if err != nil {
		log.Fatal(err)
	}

	first, last := merged[0].Timestamp, merged[len(merged)-1].Timestamp
	log.Printf("Wrote %d rows (%s to %s) to %s", len(merged),
		first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04"), *output)
}

// mergeFiles parses both inputs, joins them hour by hour and writes the
// merged CSV to output.
func mergeFiles(genPath, rainPath, output string, genEnc, rainEnc ingest.Encoding) ([]model.Record, error) {
	gp := &ingest.GenerationParser{Encoding: genEnc}
	gen, err := ingest.ParseFile(genPath, gp.Parse)
	if err != nil {
		return nil, err
	}
	if gp.Skipped > 0 {
		log.Printf("Skipped %d generation rows with unparseable values", gp.Skipped)
	}

	rp := &ingest.RainfallParser{Encoding: rainEnc}
	rain, err := ingest.ParseFile(rainPath, rp.Parse)
	if err != nil {
		return nil, err
	}
	if rp.Skipped > 0 {
		log.Printf("Skipped %d rainfall rows with unparseable values", rp.Skipped)
	}

	merged := analysis.MergeHourly(gen, rain)
	log.Printf("Generation rows: %d, rainfall rows: %d, merged rows: %d", len(gen), len(rain), len(merged))
	if len(merged) == 0 {
		return nil, errNoOverlap
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	if err := report.WriteMerged(f, merged); err != nil {
		f.Close()
		return nil, err
	}
	return merged, f.Close()
}
