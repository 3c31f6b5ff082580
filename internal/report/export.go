package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"tidal_efficiency/internal/analysis"
)

// Meta identifies the run a document belongs to.
type Meta struct {
	RunID       string
	GeneratedAt time.Time
	Source      string
	Currency    string
}

// BuildWorkbook renders a run as an XLSX workbook with one sheet per table.
func BuildWorkbook(res *analysis.Result, meta Meta) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	baselineSheet := "baseline"
	penaltySheet := "penalty"
	eventSheet := "event"
	recordsSheet := "records"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, name := range []string{baselineSheet, penaltySheet, eventSheet, recordsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	s := res.Summarize(meta.Currency)
	summary := [][2]any{
		{"Run", meta.RunID},
		{"Generated", meta.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Source", meta.Source},
		{"Records", s.Records},
		{"Valid records", s.ValidRecords},
		{"Global baseline (kWh/m)", s.Global},
		{"Total loss (kWh)", s.TotalLossKWh},
		{"Total loss (" + meta.Currency + ")", res.TotalLoss().InexactFloat64()},
		{"Event peak", res.Event.Peak.Format("2006-01-02 15:04")},
		{"Event loss (" + meta.Currency + ")", res.Event.Total.InexactFloat64()},
		{"Cleaning cost (" + meta.Currency + ")", res.Event.CleaningCost.InexactFloat64()},
		{"Cleanup triggered at", s.TriggerAt},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Tidal Efficiency Loss Report")
	for i, kv := range summary {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	_ = f.SetSheetRow(baselineSheet, "A1", &[]any{"head", "efficiency", "hours"})
	for i, p := range res.Baseline.Points() {
		_ = f.SetSheetRow(baselineSheet, fmt.Sprintf("A%d", i+2), &[]any{float64(p.Bucket), p.Efficiency, p.Count})
	}

	_ = f.SetSheetRow(penaltySheet, "A1", &[]any{"head", "clean", "rain", "clean_n", "rain_n", "penalty_pct"})
	for i, p := range res.Penalties.Penalties {
		_ = f.SetSheetRow(penaltySheet, fmt.Sprintf("A%d", i+2),
			&[]any{float64(p.Bucket), p.CleanMean, p.RainMean, p.CleanCount, p.RainCount, p.PenaltyPct})
	}

	_ = f.SetSheetRow(eventSheet, "A1", &[]any{"time", "rain_mm", "loss_kwh", "loss", "cumulative"})
	for i, ev := range res.Event.Events {
		_ = f.SetSheetRow(eventSheet, fmt.Sprintf("A%d", i+2), &[]any{
			ev.Timestamp.Format(TimestampLayout), ev.RainfallMM, ev.LossKWh,
			ev.Loss.InexactFloat64(), ev.Cumulative.InexactFloat64(),
		})
	}

	header := make([]any, len(AnnotatedHeader))
	for i, h := range AnnotatedHeader {
		header[i] = h
	}
	_ = f.SetSheetRow(recordsSheet, "A1", &header)
	for i, r := range res.Valid {
		_ = f.SetSheetRow(recordsSheet, fmt.Sprintf("A%d", i+2), &[]any{
			r.Timestamp.Format(TimestampLayout), r.SeaLevel, r.LakeLevel, r.EnergyKWh, r.RainfallMM,
			r.Head, r.Efficiency, float64(r.Bucket), r.Status.String(), r.LossKWh, r.Loss.InexactFloat64(),
		})
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSummaryPDF renders a one-page summary of a run.
func BuildSummaryPDF(res *analysis.Result, meta Meta) ([]byte, error) {
	s := res.Summarize(meta.Currency)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Tidal Efficiency Loss Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	lines := []string{
		fmt.Sprintf("Run: %s", meta.RunID),
		fmt.Sprintf("Generated: %s", meta.GeneratedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Records: %d (valid %d)", s.Records, s.ValidRecords),
		fmt.Sprintf("Global baseline: %.1f kWh/m", s.Global),
		fmt.Sprintf("Total loss: %.1f kWh, %s %s", s.TotalLossKWh, s.TotalLoss, meta.Currency),
		fmt.Sprintf("Rain peak: %.1f mm at %s", res.Event.PeakRainfallMM, res.Event.Peak.Format("2006-01-02 15:04")),
		fmt.Sprintf("Event loss: %s %s (cleaning cost %s)", s.EventLoss, meta.Currency, s.CleaningCost),
	}
	if s.Triggered {
		lines = append(lines, fmt.Sprintf("Cleanup pays off from %s", s.TriggerAt))
	} else {
		lines = append(lines, "Cleanup cost not reached within the window")
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Head (m)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Baseline", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Clean", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Rain", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Penalty %", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, p := range res.Penalties.Penalties {
		pdf.CellFormat(30, 6, p.Bucket.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", res.ValuationBaseline.Lookup(float64(p.Bucket))), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", p.CleanMean), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", p.RainMean), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", p.PenaltyPct), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
