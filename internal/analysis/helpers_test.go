package analysis

import (
	"time"

	"tidal_efficiency/internal/model"
)

var t0 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func hour(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Hour)
}

// rec builds a merged row with the basin level at zero, so head equals sea.
func rec(n int, head, energy, rain float64) model.Record {
	return model.Record{
		Timestamp:  hour(n),
		SeaLevel:   head,
		LakeLevel:  0,
		EnergyKWh:  energy,
		RainfallMM: rain,
	}
}
