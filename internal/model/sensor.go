package model

import "time"

type SensorType string

const (
	SensorSeaLevel  SensorType = "sea_level"
	SensorLakeLevel SensorType = "lake_level"
	SensorHead      SensorType = "head"
	SensorWaste     SensorType = "waste"
	SensorRainfall  SensorType = "rainfall"
)

// SensorInfo holds display name and unit for a sensor type.
type SensorInfo struct {
	Name string
	Unit string
}

// SensorCatalog maps every known SensorType to its display name and unit.
var SensorCatalog = map[SensorType]SensorInfo{
	SensorSeaLevel:  {Name: "Sea Level", Unit: "m"},
	SensorLakeLevel: {Name: "Lake Level", Unit: "m"},
	SensorHead:      {Name: "Head", Unit: "m"},
	SensorWaste:     {Name: "Debris Intensity", Unit: ""},
	SensorRainfall:  {Name: "Average Rainfall", Unit: "mm"},
}

// Reading is a single live sample of one sensor channel.
type Reading struct {
	Timestamp time.Time
	SensorID  string
	Type      SensorType
	Value     float64
	Unit      string
}

type Sensor struct {
	ID   string
	Name string
	Type SensorType
	Unit string
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End].
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}
