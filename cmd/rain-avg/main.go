// rain-avg averages per-station hourly rainfall observations into one
// rainfall value per hour across all observation points.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/samber/lo"

	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/report"
)

func main() {
	input := flag.String("input", "data/rainfall_data.csv", "per-station rainfall CSV (일시, 지점, 강수량(mm))")
	encoding := flag.String("encoding", "cp949", "input encoding: cp949 or utf-8")
	output := flag.String("output", "data/rain_avg.csv", "hourly average output path")
	flag.Parse()

	enc, err := ingest.ParseEncoding(*encoding)
	if err != nil {
		log.Fatalf("Invalid -encoding: %v", err)
	}

	stations, hours, err := averageFile(*input, *output, enc)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %d hours from %d stations to %s", hours, stations, *output)
}

// averageFile averages the per-station observations of input by hour and
// writes them to output. It returns the station and hour counts.
func averageFile(input, output string, enc ingest.Encoding) (stations, hours int, err error) {
	p := &ingest.StationRainfallParser{Encoding: enc}
	obs, err := ingest.ParseFile(input, p.Parse)
	if err != nil {
		return 0, 0, err
	}
	if p.Skipped > 0 {
		log.Printf("Skipped %d rows with unparseable rainfall", p.Skipped)
	}

	names := lo.Uniq(lo.Map(obs, func(o model.StationRainfall, _ int) string { return o.Station }))
	avg := ingest.AverageByHour(obs)
	log.Printf("Averaged %d observations from %d stations into %d hours", len(obs), len(names), len(avg))

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, 0, err
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return 0, 0, err
	}
	if err := report.WriteRainfall(f, avg); err != nil {
		f.Close()
		return 0, 0, err
	}
	return len(names), len(avg), f.Close()
}
