package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tidal_efficiency/internal/model"
)

// MergedParser reads a generation export that already carries the hourly
// rainfall column, such as the output of merge-data.
//
// Expected columns: 날짜, 해수위(ELm), 호수위(ELm), 합계(킬로와트시), 평균강수량(mm).
// When 날짜 holds only the date, the hour comes from 시간 (24:00 rolls over
// to the next day) or else from a full 일시 column. A date-only 날짜 with
// neither is rejected.
type MergedParser struct {
	Encoding Encoding
	Skipped  int
}

func (p *MergedParser) Parse(r io.Reader) ([]model.Record, error) {
	src, err := openCSV(r, p.Encoding)
	if err != nil {
		return nil, err
	}

	dateIdx := src.optionalColumn(model.ColDate)
	clockIdx := src.optionalColumn(model.ColTime)
	obsIdx := src.optionalColumn(model.ColObserved)
	if dateIdx < 0 && obsIdx < 0 {
		return nil, fmt.Errorf("missing column %q", model.ColDate)
	}
	seaIdx, err := src.column(model.ColSeaLevel)
	if err != nil {
		return nil, err
	}
	lakeIdx, err := src.column(model.ColLakeLevel)
	if err != nil {
		return nil, err
	}
	energyIdx, err := src.column(model.ColEnergy)
	if err != nil {
		return nil, err
	}
	rainIdx, err := src.column(model.ColAvgRain)
	if err != nil {
		return nil, err
	}

	p.Skipped = 0
	var records []model.Record
	for {
		record, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := mergedTimestamp(record, dateIdx, clockIdx, obsIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", src.lineNum, err)
		}

		rec := model.Record{Timestamp: ts}
		values := []struct {
			dst  *float64
			idx  int
			name string
		}{
			{&rec.SeaLevel, seaIdx, model.ColSeaLevel},
			{&rec.LakeLevel, lakeIdx, model.ColLakeLevel},
			{&rec.EnergyKWh, energyIdx, model.ColEnergy},
			{&rec.RainfallMM, rainIdx, model.ColAvgRain},
		}
		ok := true
		for _, v := range values {
			if *v.dst, err = parseFloatField(record, v.idx, v.name); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			p.Skipped++
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

func mergedTimestamp(record []string, dateIdx, clockIdx, obsIdx int) (time.Time, error) {
	date := field(record, dateIdx)
	switch {
	case dateIdx >= 0 && clockIdx >= 0:
		return ParseDateClock(date, field(record, clockIdx))
	case obsIdx >= 0 && (dateIdx < 0 || !hasClock(date)):
		return ParseTimestamp(field(record, obsIdx))
	case !hasClock(date):
		return time.Time{}, fmt.Errorf("%s %q has no time of day", model.ColDate, date)
	default:
		return ParseTimestamp(date)
	}
}

// hasClock reports whether s carries a time of day after its date.
func hasClock(s string) bool {
	return strings.ContainsAny(strings.TrimSpace(s), " T")
}
