// fetch-levels downloads sea and lake gauge levels at the barrage from the
// water authority's level service and writes them as a LevelsParser CSV
// (sensor_id,value,updated_ts), which the dashboard loads as history.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"tidal_efficiency/internal/config"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/waterapi"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (water_api section)")
	startDate := flag.String("start", "", "start date (YYYY-MM-DD, KST), defaults to yesterday")
	endDate := flag.String("end", "", "end date (YYYY-MM-DD, KST), defaults to today")
	output := flag.String("output", "data/levels/levels.csv", "output CSV path")
	appendOut := flag.Bool("append", false, "append to an existing output file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	today := time.Now().In(waterapi.KST)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, waterapi.KST)
	start, err := parseDate(*startDate, today.AddDate(0, 0, -1))
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end, err := parseDate(*endDate, today)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}
	if !start.Before(end) {
		log.Fatalf("Start %s is not before end %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := waterapi.New(cfg.WaterAPI, nil)
	log.Printf("Fetching levels for station %q from %s to %s",
		cfg.WaterAPI.Station, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var readings []model.Reading

	// Fetch in daily chunks to stay within API limits.
	for chunkStart := start; chunkStart.Before(end); chunkStart = chunkStart.AddDate(0, 0, 1) {
		chunkEnd := chunkStart.AddDate(0, 0, 1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		log.Printf("  %s ...", chunkStart.Format("2006-01-02"))

		levels, err := client.Range(ctx, chunkStart, chunkEnd)
		if errors.Is(err, waterapi.ErrNoData) {
			log.Printf("    no observations")
			continue
		}
		if err != nil {
			log.Fatalf("Fetching %s: %v", chunkStart.Format("2006-01-02"), err)
		}
		for _, l := range levels {
			readings = append(readings, l.Readings()...)
		}

		select {
		case <-ctx.Done():
			log.Fatalf("Interrupted: %v", ctx.Err())
		case <-time.After(time.Second):
		}
	}

	// Sort by timestamp and drop duplicates from overlapping chunks.
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	seen := make(map[string]bool, len(readings))
	deduped := readings[:0]
	for _, r := range readings {
		key := r.SensorID + r.Timestamp.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}
	readings = deduped

	if err := writeReadings(*output, readings, *appendOut); err != nil {
		log.Fatalf("Writing %s: %v", *output, err)
	}
	log.Printf("Wrote %d readings to %s", len(readings), *output)
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", s, waterapi.KST)
}

// writeReadings writes readings in LevelsParser format. When appending to a
// non-empty file the header is not repeated.
func writeReadings(path string, readings []model.Reading, appendOut bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendOut {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(ingest.LevelsHeader); err != nil {
			f.Close()
			return err
		}
	}
	for _, r := range readings {
		if err := cw.Write(ingest.FormatLevelsRecord(r)); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
