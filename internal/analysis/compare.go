package analysis

// RainComparison contrasts mean efficiency of dry hours with hours that saw
// any rain, without lag and without head control.
type RainComparison struct {
	DryMean, WetMean   float64
	DryCount, WetCount int
	// ReductionPct is valid only when Comparable is true.
	ReductionPct float64
	Comparable   bool
}

// CompareRain splits valid records on rainfall == 0 versus rainfall > 0.
func CompareRain(records []Annotated) RainComparison {
	var dry, wet meanAcc
	for _, r := range records {
		switch {
		case r.RainfallMM == 0:
			dry.add(r.Efficiency)
		case r.RainfallMM > 0:
			wet.add(r.Efficiency)
		}
	}

	c := RainComparison{DryCount: dry.count, WetCount: wet.count}
	if dry.count > 0 {
		c.DryMean = dry.mean()
	}
	if wet.count > 0 {
		c.WetMean = wet.mean()
	}
	if dry.count > 0 && wet.count > 0 && c.DryMean > 0 {
		c.ReductionPct = (c.DryMean - c.WetMean) / c.DryMean * 100
		c.Comparable = true
	}
	return c
}
