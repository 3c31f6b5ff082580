// sql-stats prints the archive schema and ready-made queries over the live
// readings of every known sensor, for pasting into psql.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/store/postgres"
)

func main() {
	write(os.Stdout)
}

func write(w io.Writer) {
	// Collect and sort for stable output.
	type entry struct {
		id   string
		name string
		unit string
	}
	entries := make([]entry, 0, len(model.SensorCatalog))
	for t, info := range model.SensorCatalog {
		entries = append(entries, entry{string(t), info.Name, info.Unit})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	var inLines []string
	for _, e := range entries {
		comment := e.name
		if e.unit != "" {
			comment += " [" + e.unit + "]"
		}
		inLines = append(inLines, fmt.Sprintf("  '%s'  -- %s", e.id, comment))
	}
	inList := strings.Join(inLines, "\n  ,")

	fmt.Fprintln(w, "-- Schema")
	for _, stmt := range postgres.Schema() {
		fmt.Fprintf(w, "%s;\n\n", stmt)
	}

	fmt.Fprintf(w, `-- Hourly aggregates of the live readings
SELECT
  sensor_id,
  date_trunc('hour', ts) AS start_time,
  avg(value) AS avg,
  min(value) AS min_val,
  max(value) AS max_val
FROM %[1]s
WHERE sensor_id IN (
%[2]s
)
GROUP BY sensor_id, start_time
ORDER BY sensor_id, start_time;
`, postgres.ReadingsTable, inList)

	fmt.Fprintf(w, `
-- Recent readings (last 24 hours)
SELECT sensor_id, value, ts
FROM %[1]s
WHERE ts > now() - interval '24 hours'
  AND sensor_id IN (
%[2]s
)
ORDER BY sensor_id, ts DESC;
`, postgres.ReadingsTable, inList)
}
