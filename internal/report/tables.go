package report

import (
	"fmt"
	"io"
	"math"

	"tidal_efficiency/internal/analysis"
)

// PrintBaseline prints the clean-condition efficiency curve.
func PrintBaseline(w io.Writer, b *analysis.Baseline) {
	fmt.Fprintln(w, "  Baseline Efficiency (clean conditions):")
	fmt.Fprintf(w, "   %6s │ %12s │ %7s\n", "Head", "kWh/m", "Hours")
	fmt.Fprintf(w, "  ────────┼──────────────┼────────\n")
	for _, p := range b.Points() {
		fmt.Fprintf(w, "   %5s m │ %12.1f │ %7d\n", p.Bucket, p.Efficiency, p.Count)
	}
	fmt.Fprintf(w, "   %6s │ %12.1f │\n", "global", b.Global())
}

// PrintPenalties prints the debris penalty per head bucket.
func PrintPenalties(w io.Writer, r analysis.PenaltyReport) {
	fmt.Fprintln(w, "  Debris Penalty by Head (3h lag):")
	if len(r.Penalties) == 0 {
		fmt.Fprintln(w, "   not enough rain-affected hours to compare")
	} else {
		fmt.Fprintf(w, "   %6s │ %10s │ %10s │ %6s │ %6s │ %8s\n", "Head", "Clean", "Rain", "n", "n", "Penalty")
		fmt.Fprintf(w, "  ────────┼────────────┼────────────┼────────┼────────┼─────────\n")
		for _, p := range r.Penalties {
			fmt.Fprintf(w, "   %5s m │ %10.1f │ %10.1f │ %6d │ %6d │ %7.2f%%\n",
				p.Bucket, p.CleanMean, p.RainMean, p.CleanCount, p.RainCount, p.PenaltyPct)
		}
	}
	if len(r.Insufficient) > 0 {
		fmt.Fprintf(w, "   insufficient data:")
		for _, b := range r.Insufficient {
			fmt.Fprintf(w, " %s", b)
		}
		fmt.Fprintln(w)
	}
}

// PrintEvent prints the loss timeline around the heaviest rain. With hourly
// set every hour of the window is listed.
func PrintEvent(w io.Writer, e analysis.EventWindow, currency string, hourly bool) {
	fmt.Fprintf(w, "  Rain Event: peak %.1f mm at %s\n", e.PeakRainfallMM, e.Peak.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  Window: %s to %s (%d hours with data)\n",
		e.Start.Format("2006-01-02 15:04"), e.End.Format("2006-01-02 15:04"), len(e.Events))

	if hourly && len(e.Events) > 0 {
		fmt.Fprintf(w, "   %11s │ %6s │ %10s │ %14s │ %14s\n", "Time", "Rain", "Loss kWh", "Loss", "Cumulative")
		fmt.Fprintf(w, "  ────────────┼────────┼────────────┼────────────────┼───────────────\n")
		for _, ev := range e.Events {
			fmt.Fprintf(w, "   %11s │ %6.1f │ %10.1f │ %14s │ %14s\n",
				ev.Timestamp.Format("01-02 15:04"), ev.RainfallMM, ev.LossKWh,
				ev.Loss.StringFixed(0), ev.Cumulative.StringFixed(0))
		}
	}

	fmt.Fprintf(w, "  Cumulative loss: %s %s   Cleaning cost: %s %s\n",
		e.Total.StringFixed(0), currency, e.CleaningCost.StringFixed(0), currency)
	if e.TriggerAt != nil {
		fmt.Fprintf(w, "  Cleanup pays off from %s\n", e.TriggerAt.Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintln(w, "  Cleanup cost not reached within the window")
	}
}

// PrintComparison prints dry versus rainy mean efficiency.
func PrintComparison(w io.Writer, c analysis.RainComparison) {
	fmt.Fprintln(w, "  Rain vs No Rain:")
	fmt.Fprintf(w, "   dry   %10.1f kWh/m  (%d hours)\n", c.DryMean, c.DryCount)
	fmt.Fprintf(w, "   rainy %10.1f kWh/m  (%d hours)\n", c.WetMean, c.WetCount)
	if c.Comparable {
		fmt.Fprintf(w, "   reduction %.2f%%\n", c.ReductionPct)
	} else {
		fmt.Fprintln(w, "   reduction n/a")
	}
}

// PrintPatterns prints monthly rain pattern metrics.
func PrintPatterns(w io.Writer, rows []analysis.PatternRow) {
	fmt.Fprintf(w, "   %7s │ %8s │ %6s │ %5s │ %6s │ %8s\n", "Month", "Rain", "Peak", "Heavy", "Top10", "Waste")
	fmt.Fprintf(w, "  ─────────┼──────────┼────────┼───────┼────────┼─────────\n")
	for _, r := range rows {
		fmt.Fprintf(w, "   %7s │ %8.1f │ %6.1f │ %5d │ %6.3f │ %8.1f\n",
			r.Month, r.RainSum, r.RainPeak, r.HeavyHours, r.Top10Ratio, r.WasteSum)
	}
}

// PrintCorrelations prints Pearson coefficients against collected debris.
func PrintCorrelations(w io.Writer, target string, corr []analysis.Correlation) {
	fmt.Fprintf(w, "  Correlation with %s:\n", target)
	for _, c := range corr {
		fmt.Fprintf(w, "   %-12s r=%s  p=%s  (n=%d)\n", c.Metric, formatStat(c.R), formatStat(c.P), c.N)
	}
}

// PrintEnvironment prints monthly environment totals with mean efficiency.
func PrintEnvironment(w io.Writer, rows []analysis.EnvironmentRow) {
	fmt.Fprintf(w, "   %7s │ %8s │ %8s │ %10s\n", "Month", "Rain", "Waste", "kWh/m")
	fmt.Fprintf(w, "  ─────────┼──────────┼──────────┼───────────\n")
	for _, r := range rows {
		eff := "-"
		if r.HasEfficiency {
			eff = fmt.Sprintf("%.1f", r.AvgEfficiency)
		}
		fmt.Fprintf(w, "   %7s │ %8.1f │ %8.1f │ %10s\n", r.Month, r.RainSum, r.WasteSum, eff)
	}
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}
