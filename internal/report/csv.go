// Package report renders pipeline results as CSV files, terminal tables and
// XLSX/PDF documents.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/model"
)

// TimestampLayout is used for every timestamp written to CSV.
const TimestampLayout = "2006-01-02 15:04:05"

// AnnotatedHeader lists the columns written by WriteAnnotated.
var AnnotatedHeader = []string{
	model.ColDate,
	model.ColSeaLevel,
	model.ColLakeLevel,
	model.ColEnergy,
	model.ColAvgRain,
	model.ColHead,
	model.ColEfficiency,
	model.ColHeadGroup,
	model.ColStatus,
	model.ColLossKWh,
	model.ColLossKRW,
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// WriteAnnotated writes valid records with their derived columns. Input
// values keep their shortest exact form; derived values are fixed to four
// decimals and currency to two, so identical runs produce identical files.
func WriteAnnotated(w io.Writer, records []analysis.Annotated) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AnnotatedHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.Format(TimestampLayout),
			formatFloat(r.SeaLevel, -1),
			formatFloat(r.LakeLevel, -1),
			formatFloat(r.EnergyKWh, -1),
			formatFloat(r.RainfallMM, -1),
			formatFloat(r.Head, 4),
			formatFloat(r.Efficiency, 4),
			r.Bucket.String(),
			r.Status.String(),
			formatFloat(r.LossKWh, 4),
			r.Loss.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %s: %w", row[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMerged writes joined hourly records with their head, in the layout
// MergedParser reads back.
func WriteMerged(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	header := []string{model.ColDate, model.ColSeaLevel, model.ColLakeLevel, model.ColEnergy, model.ColAvgRain, model.ColHead}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.Format(TimestampLayout),
			formatFloat(r.SeaLevel, -1),
			formatFloat(r.LakeLevel, -1),
			formatFloat(r.EnergyKWh, -1),
			formatFloat(r.RainfallMM, -1),
			formatFloat(r.Head(), 4),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %s: %w", row[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMonthlyJoined writes hourly records next to their month's rainfall
// and debris totals.
func WriteMonthlyJoined(w io.Writer, rows []analysis.MonthlyJoined) error {
	cw := csv.NewWriter(w)
	header := []string{
		model.ColDate, model.ColSeaLevel, model.ColLakeLevel, model.ColEnergy, model.ColAvgRain, model.ColHead,
		model.ColMonth, model.ColRainSum, model.ColWasteSum,
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		row := []string{
			r.Timestamp.Format(TimestampLayout),
			formatFloat(r.SeaLevel, -1),
			formatFloat(r.LakeLevel, -1),
			formatFloat(r.EnergyKWh, -1),
			formatFloat(r.RainfallMM, -1),
			formatFloat(r.Head(), 4),
			string(r.Environment.Month),
			formatFloat(r.Environment.RainSum, -1),
			formatFloat(r.Environment.WasteSum, -1),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %s: %w", row[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRainfall writes hourly averaged rainfall.
func WriteRainfall(w io.Writer, records []model.RainfallRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{model.ColObserved, model.ColAvgRain}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Timestamp.Format(TimestampLayout), formatFloat(r.RainfallMM, -1)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PatternHeader lists the columns written by WritePatterns.
var PatternHeader = []string{"month", "rain_sum", "rain_peak", "heavy_hours", "top10_ratio", "waste_sum"}

// WritePatterns writes monthly rain patterns next to collected debris.
func WritePatterns(w io.Writer, rows []analysis.PatternRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PatternHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		row := []string{
			string(r.Month),
			formatFloat(r.RainSum, -1),
			formatFloat(r.RainPeak, -1),
			strconv.Itoa(r.HeavyHours),
			formatFloat(r.Top10Ratio, 4),
			formatFloat(r.WasteSum, -1),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
