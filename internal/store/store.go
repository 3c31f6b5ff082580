package store

import (
	"sort"
	"sync"
	"time"

	"tidal_efficiency/internal/model"
)

// Store keeps live channel readings in memory, indexed by sensor ID. It backs
// the dashboard's history endpoint and is fed by the live feed and by level
// files recorded earlier.
type Store struct {
	mu        sync.RWMutex
	sensors   map[string]model.Sensor
	readings  map[string][]model.Reading // keyed by sensor ID, sorted by timestamp
	retention time.Duration
}

// New returns an empty store. A positive retention drops readings older than
// that relative to the newest reading of the same sensor.
func New(retention time.Duration) *Store {
	return &Store{
		sensors:   make(map[string]model.Sensor),
		readings:  make(map[string][]model.Reading),
		retention: retention,
	}
}

// AddSensor registers a sensor.
func (s *Store) AddSensor(sensor model.Sensor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors[sensor.ID] = sensor
}

// AddReadings appends readings, registering unseen sensors from the catalog.
// Sorting only happens when a batch arrives out of order.
func (s *Store) AddReadings(readings []model.Reading) {
	if len(readings) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unsorted := make(map[string]bool)
	for _, r := range readings {
		if _, ok := s.sensors[r.SensorID]; !ok {
			info := model.SensorCatalog[r.Type]
			s.sensors[r.SensorID] = model.Sensor{ID: r.SensorID, Name: info.Name, Type: r.Type, Unit: r.Unit}
		}
		existing := s.readings[r.SensorID]
		if n := len(existing); n > 0 && r.Timestamp.Before(existing[n-1].Timestamp) {
			unsorted[r.SensorID] = true
		}
		s.readings[r.SensorID] = append(existing, r)
	}

	for id := range unsorted {
		sort.SliceStable(s.readings[id], func(i, j int) bool {
			return s.readings[id][i].Timestamp.Before(s.readings[id][j].Timestamp)
		})
	}

	if s.retention > 0 {
		for _, r := range readings {
			s.pruneLocked(r.SensorID)
		}
	}
}

// pruneLocked drops readings outside the retention window. Must be called
// with mu held.
func (s *Store) pruneLocked(sensorID string) {
	all := s.readings[sensorID]
	if len(all) == 0 {
		return
	}
	cutoff := all[len(all)-1].Timestamp.Add(-s.retention)
	idx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(cutoff)
	})
	if idx > 0 {
		s.readings[sensorID] = append([]model.Reading(nil), all[idx:]...)
	}
}

// Sensors returns all registered sensors ordered by ID.
func (s *Store) Sensors() []model.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensors := make([]model.Sensor, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		sensors = append(sensors, sensor)
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].ID < sensors[j].ID })
	return sensors
}

// ReadingCount returns the total number of readings for a sensor.
func (s *Store) ReadingCount(sensorID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings[sensorID])
}

// TimeRange returns the time range covered by a sensor's readings.
func (s *Store) TimeRange(sensorID string) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := s.readings[sensorID]
	if len(readings) == 0 {
		return model.TimeRange{}, false
	}

	return model.TimeRange{
		Start: readings[0].Timestamp,
		End:   readings[len(readings)-1].Timestamp,
	}, true
}

// ReadingsInRange returns readings for a sensor between start (inclusive) and end (exclusive).
func (s *Store) ReadingsInRange(sensorID string, start, end time.Time) []model.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rangeOf(s.readings[sensorID], start, end)
}

func rangeOf(all []model.Reading, start, end time.Time) []model.Reading {
	if len(all) == 0 {
		return nil
	}

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(end)
	})

	if startIdx >= endIdx {
		return nil
	}

	result := make([]model.Reading, endIdx-startIdx)
	copy(result, all[startIdx:endIdx])
	return result
}

// ReadingAt returns the most recent reading at or before the given timestamp.
func (s *Store) ReadingAt(sensorID string, t time.Time) (model.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.readings[sensorID]
	idx := sort.Search(len(all), func(i int) bool {
		return all[i].Timestamp.After(t)
	})
	if idx == 0 {
		return model.Reading{}, false
	}
	return all[idx-1], true
}

// Day returns every reading of all sensors on the calendar day of date, in
// its location, ordered by time and then sensor ID.
func (s *Store) Day(date time.Time) []model.Reading {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)

	s.mu.RLock()
	var result []model.Reading
	for _, all := range s.readings {
		result = append(result, rangeOf(all, start, end)...)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].SensorID < result[j].SensorID
	})
	return result
}
