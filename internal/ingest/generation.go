package ingest

import (
	"fmt"
	"io"

	"tidal_efficiency/internal/model"
)

// GenerationParser parses the station's hourly generation export.
//
// Expected format (extra columns are ignored):
//
//	날짜,해수위(ELm),호수위(ELm),합계(킬로와트시)
//	2024-01-01 01:00:00,2.31,-1.12,88200
//
// The raw operator export splits the timestamp into 날짜 and 시간, with the
// last hour of a day written as 24:00; both shapes are accepted.
type GenerationParser struct {
	Encoding Encoding
	// Skipped counts rows dropped for unparseable numeric values.
	Skipped int
}

func (p *GenerationParser) Parse(r io.Reader) ([]model.GenerationRecord, error) {
	src, err := openCSV(r, p.Encoding)
	if err != nil {
		return nil, err
	}

	dateIdx, err := src.column(model.ColDate)
	if err != nil {
		return nil, err
	}
	clockIdx := src.optionalColumn(model.ColTime)
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

	p.Skipped = 0
	var records []model.GenerationRecord
	for {
		record, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var rec model.GenerationRecord
		if clockIdx >= 0 {
			rec.Timestamp, err = ParseDateClock(field(record, dateIdx), field(record, clockIdx))
		} else {
			rec.Timestamp, err = ParseTimestamp(field(record, dateIdx))
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", src.lineNum, err)
		}

		rec.SeaLevel, err = parseFloatField(record, seaIdx, model.ColSeaLevel)
		if err != nil {
			p.Skipped++
			continue
		}
		rec.LakeLevel, err = parseFloatField(record, lakeIdx, model.ColLakeLevel)
		if err != nil {
			p.Skipped++
			continue
		}
		rec.EnergyKWh, err = parseFloatField(record, energyIdx, model.ColEnergy)
		if err != nil {
			p.Skipped++
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}
