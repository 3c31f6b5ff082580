package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"tidal_efficiency/internal/model"
)

// LevelsParser parses live channel samples recorded by fetch-levels and the
// dashboard.
//
// Expected format:
//
//	sensor_id,value,updated_ts
//	sea_level,2.31,1719802800
type LevelsParser struct{}

func (p *LevelsParser) Parse(r io.Reader) ([]model.Reading, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateLevelsHeader(header); err != nil {
		return nil, err
	}

	var readings []model.Reading
	lineNum := 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		reading, err := parseLevelsRecord(record, lineNum)
		if err != nil {
			continue
		}

		readings = append(readings, reading)
	}

	return readings, nil
}

// LevelsHeader is the header row written ahead of level samples.
var LevelsHeader = []string{"sensor_id", "value", "updated_ts"}

func validateLevelsHeader(header []string) error {
	if len(header) < len(LevelsHeader) {
		return fmt.Errorf("expected at least %d columns, got %d", len(LevelsHeader), len(header))
	}

	for i, col := range LevelsHeader {
		if strings.TrimSpace(header[i]) != col {
			return fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}

	return nil
}

func parseLevelsRecord(record []string, lineNum int) (model.Reading, error) {
	if len(record) < 3 {
		return model.Reading{}, fmt.Errorf("line %d: expected 3 fields, got %d", lineNum, len(record))
	}

	sensorType := model.SensorType(strings.TrimSpace(record[0]))
	info, ok := model.SensorCatalog[sensorType]
	if !ok {
		return model.Reading{}, fmt.Errorf("line %d: unknown sensor %q", lineNum, record[0])
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return model.Reading{}, fmt.Errorf("line %d: parsing value: %w", lineNum, err)
	}

	ts, err := parseUnixTimestamp(strings.TrimSpace(record[2]))
	if err != nil {
		return model.Reading{}, fmt.Errorf("line %d: parsing timestamp: %w", lineNum, err)
	}

	return model.Reading{
		Timestamp: ts,
		SensorID:  string(sensorType),
		Type:      sensorType,
		Value:     value,
		Unit:      info.Unit,
	}, nil
}

// parseUnixTimestamp parses a Unix epoch float (seconds) into a time.Time.
func parseUnixTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// FormatLevelsRecord renders a reading as a LevelsParser row.
func FormatLevelsRecord(r model.Reading) []string {
	return []string{
		string(r.Type),
		strconv.FormatFloat(r.Value, 'f', -1, 64),
		strconv.FormatInt(r.Timestamp.Unix(), 10),
	}
}
