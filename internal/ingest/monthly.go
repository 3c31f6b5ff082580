package ingest

import (
	"fmt"
	"io"

	"tidal_efficiency/internal/model"
)

// MonthlyParser parses monthly rainfall and debris collection totals.
//
// Expected format:
//
//	date,rain_sum,waste_sum
//	2024-07-01,412.5,38.2
//
// The month column may also be called "month" and the rainfall column
// "rain_avg"; the date is truncated to its month.
type MonthlyParser struct {
	Encoding Encoding
	Skipped  int
}

func (p *MonthlyParser) Parse(r io.Reader) ([]model.MonthlyEnvironmentRecord, error) {
	src, err := openCSV(r, p.Encoding)
	if err != nil {
		return nil, err
	}

	monthIdx, err := src.column(model.ColMonth, model.ColEnvDate)
	if err != nil {
		return nil, err
	}
	rainIdx, err := src.column(model.ColRainSum, model.ColRainAvg)
	if err != nil {
		return nil, err
	}
	wasteIdx, err := src.column(model.ColWasteSum)
	if err != nil {
		return nil, err
	}

	p.Skipped = 0
	var records []model.MonthlyEnvironmentRecord
	for {
		record, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		month, err := parseMonth(field(record, monthIdx))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", src.lineNum, err)
		}
		rain, err := parseFloatField(record, rainIdx, "rain")
		if err != nil {
			p.Skipped++
			continue
		}
		waste, err := parseFloatField(record, wasteIdx, model.ColWasteSum)
		if err != nil {
			p.Skipped++
			continue
		}

		records = append(records, model.MonthlyEnvironmentRecord{
			Month:    month,
			RainSum:  rain,
			WasteSum: waste,
		})
	}

	return records, nil
}

func parseMonth(s string) (model.MonthKey, error) {
	if ts, err := ParseTimestamp(s); err == nil {
		return model.MonthOf(ts), nil
	}
	// Period strings such as "2024-07" carry no day.
	if ts, err := ParseTimestamp(s + "-01"); err == nil {
		return model.MonthOf(ts), nil
	}
	return "", fmt.Errorf("unrecognized month %q", s)
}
