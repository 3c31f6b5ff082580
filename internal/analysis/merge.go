package analysis

import (
	"sort"
	"time"

	"tidal_efficiency/internal/model"
)

// MergeHourly inner-joins generation and rainfall rows on their timestamp.
// Hours present on only one side are dropped; partial periods are excluded
// rather than filled. When rainfall repeats a timestamp the first row wins.
// The result is ordered by timestamp.
func MergeHourly(gen []model.GenerationRecord, rain []model.RainfallRecord) []model.Record {
	rainAt := make(map[time.Time]float64, len(rain))
	for _, r := range rain {
		if _, seen := rainAt[r.Timestamp]; !seen {
			rainAt[r.Timestamp] = r.RainfallMM
		}
	}

	merged := make([]model.Record, 0, len(gen))
	for _, g := range gen {
		mm, ok := rainAt[g.Timestamp]
		if !ok {
			continue
		}
		merged = append(merged, model.Record{
			Timestamp:  g.Timestamp,
			SeaLevel:   g.SeaLevel,
			LakeLevel:  g.LakeLevel,
			EnergyKWh:  g.EnergyKWh,
			RainfallMM: mm,
		})
	}
	sortRecords(merged)
	return merged
}

// MonthlyJoined is an hourly record carrying its month's environment totals.
type MonthlyJoined struct {
	model.Record
	Environment model.MonthlyEnvironmentRecord
}

// MergeMonthly joins hourly records with monthly aggregates on the month key.
// Records of months absent from env are dropped, and so are unmatched months.
func MergeMonthly(records []model.Record, env []model.MonthlyEnvironmentRecord) []MonthlyJoined {
	byMonth := make(map[model.MonthKey]model.MonthlyEnvironmentRecord, len(env))
	for _, e := range env {
		if _, seen := byMonth[e.Month]; !seen {
			byMonth[e.Month] = e
		}
	}

	joined := make([]MonthlyJoined, 0, len(records))
	for _, r := range records {
		e, ok := byMonth[model.MonthOf(r.Timestamp)]
		if !ok {
			continue
		}
		joined = append(joined, MonthlyJoined{Record: r, Environment: e})
	}
	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].Timestamp.Before(joined[j].Timestamp)
	})
	return joined
}

func sortRecords(records []model.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}
