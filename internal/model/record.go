package model

import "time"

// GenerationRecord is one hourly row of the station's generation export.
type GenerationRecord struct {
	Timestamp time.Time
	SeaLevel  float64 // m
	LakeLevel float64 // m
	EnergyKWh float64
}

// RainfallRecord is the rainfall for one hour, already averaged across
// observation points.
type RainfallRecord struct {
	Timestamp  time.Time
	RainfallMM float64
}

// StationRainfall is a raw rainfall observation of a single point.
type StationRainfall struct {
	Timestamp  time.Time
	Station    string
	RainfallMM float64
}

// MonthlyEnvironmentRecord holds monthly rainfall and collected debris totals.
type MonthlyEnvironmentRecord struct {
	Month    MonthKey
	RainSum  float64
	WasteSum float64
}

// Record is a generation row joined with the rainfall of the same hour.
type Record struct {
	Timestamp  time.Time
	SeaLevel   float64
	LakeLevel  float64
	EnergyKWh  float64
	RainfallMM float64
}

// Head is the hydraulic head: sea side minus basin side.
func (r Record) Head() float64 {
	return r.SeaLevel - r.LakeLevel
}

// MonthKey identifies a calendar month, e.g. "2024-07".
type MonthKey string

const monthLayout = "2006-01"

// MonthOf truncates t to its month key.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthLayout))
}

// Start returns the first instant of the month in UTC.
func (m MonthKey) Start() (time.Time, error) {
	return time.Parse(monthLayout, string(m))
}

// Status is the debris state assigned to a record by the lag rule.
type Status int

const (
	StatusClean Status = iota
	StatusRainAffected
)

// Labels as written to CSV outputs; these are part of the file format.
const (
	StatusLabelClean        = "맑음"
	StatusLabelRainAffected = "비 온 후(쓰레기유입)"
)

func (s Status) String() string {
	if s == StatusRainAffected {
		return StatusLabelRainAffected
	}
	return StatusLabelClean
}

// ParseStatus converts a CSV label back to a Status.
func ParseStatus(label string) (Status, bool) {
	switch label {
	case StatusLabelClean:
		return StatusClean, true
	case StatusLabelRainAffected:
		return StatusRainAffected, true
	}
	return StatusClean, false
}
