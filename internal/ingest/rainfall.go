package ingest

import (
	"fmt"
	"io"
	"sort"
	"time"

	"tidal_efficiency/internal/model"
)

// RainfallParser parses hourly rainfall averaged across observation points.
//
// Expected format:
//
//	일시,평균강수량(mm)
//	2024-07-01 03:00:00,4.5
type RainfallParser struct {
	Encoding Encoding
	Skipped  int
}

func (p *RainfallParser) Parse(r io.Reader) ([]model.RainfallRecord, error) {
	src, err := openCSV(r, p.Encoding)
	if err != nil {
		return nil, err
	}

	tsIdx, err := src.column(model.ColObserved)
	if err != nil {
		return nil, err
	}
	rainIdx, err := src.column(model.ColAvgRain)
	if err != nil {
		return nil, err
	}

	p.Skipped = 0
	var records []model.RainfallRecord
	for {
		record, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := ParseTimestamp(field(record, tsIdx))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", src.lineNum, err)
		}
		rain, err := parseFloatField(record, rainIdx, model.ColAvgRain)
		if err != nil {
			p.Skipped++
			continue
		}

		records = append(records, model.RainfallRecord{Timestamp: ts, RainfallMM: rain})
	}

	return records, nil
}

// StationRainfallParser parses the weather service export with one row per
// observation point and hour.
//
// Expected format:
//
//	지점,지점명,일시,강수량(mm)
//	112,인천,2024-07-01 03:00,5.0
type StationRainfallParser struct {
	Encoding Encoding
	Skipped  int
}

func (p *StationRainfallParser) Parse(r io.Reader) ([]model.StationRainfall, error) {
	src, err := openCSV(r, p.Encoding)
	if err != nil {
		return nil, err
	}

	tsIdx, err := src.column(model.ColObserved)
	if err != nil {
		return nil, err
	}
	rainIdx, err := src.column(model.ColRain)
	if err != nil {
		return nil, err
	}
	stationIdx := src.optionalColumn(model.ColStationNm, model.ColStation)

	p.Skipped = 0
	var obs []model.StationRainfall
	for {
		record, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := ParseTimestamp(field(record, tsIdx))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", src.lineNum, err)
		}
		// Blank cells are missing observations; they take no part in the mean.
		if field(record, rainIdx) == "" {
			continue
		}
		rain, err := parseFloatField(record, rainIdx, model.ColRain)
		if err != nil {
			p.Skipped++
			continue
		}

		obs = append(obs, model.StationRainfall{
			Timestamp:  ts,
			Station:    field(record, stationIdx),
			RainfallMM: rain,
		})
	}

	return obs, nil
}

// AverageByHour folds station observations into one mean per timestamp,
// ordered by time.
func AverageByHour(obs []model.StationRainfall) []model.RainfallRecord {
	type acc struct {
		sum   float64
		count int
	}
	byTime := make(map[time.Time]*acc)
	for _, o := range obs {
		a := byTime[o.Timestamp]
		if a == nil {
			a = &acc{}
			byTime[o.Timestamp] = a
		}
		a.sum += o.RainfallMM
		a.count++
	}

	result := make([]model.RainfallRecord, 0, len(byTime))
	for ts, a := range byTime {
		result = append(result, model.RainfallRecord{
			Timestamp:  ts,
			RainfallMM: a.sum / float64(a.count),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}
