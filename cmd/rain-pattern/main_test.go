package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
)

func TestMonthlyEfficiency_WritesFeatures(t *testing.T) {
	dir := t.TempDir()
	gen := filepath.Join(dir, "power.csv")
	require.NoError(t, os.WriteFile(gen, []byte(`날짜,해수위(ELm),호수위(ELm),합계(킬로와트시)
2024-07-01 00:00:00,3.25,0.25,90000
2024-07-01 01:00:00,2.25,0.25,60000
2024-08-01 00:00:00,2.25,0.25,60000
`), 0o644))
	rain := []model.RainfallRecord{
		{Timestamp: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), RainfallMM: 0},
		{Timestamp: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), RainfallMM: 4},
	}
	env := []model.MonthlyEnvironmentRecord{{Month: "2024-07", RainSum: 412.5, WasteSum: 38.2}}
	features := filepath.Join(dir, "out", "features.csv")

	err := monthlyEfficiency(analysis.DefaultParams(), gen, features, ingest.EncodingUTF8, rain, env)
	require.NoError(t, err)

	data, err := os.ReadFile(features)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "only hours with both rainfall and a debris month join")
	assert.True(t, strings.HasSuffix(lines[0], "month,rain_sum,waste_sum"))
	assert.Equal(t, "2024-07-01 00:00:00,3.25,0.25,90000,0,3.0000,2024-07,412.5,38.2", lines[1])
}

func TestMonthlyEfficiency_NoFeaturesFile(t *testing.T) {
	gen := filepath.Join(t.TempDir(), "power.csv")
	require.NoError(t, os.WriteFile(gen, []byte("날짜,해수위(ELm),호수위(ELm),합계(킬로와트시)\n2024-07-01 00:00:00,3.25,0.25,90000\n"), 0o644))

	err := monthlyEfficiency(analysis.DefaultParams(), gen, "", ingest.EncodingUTF8, nil, nil)

	assert.NoError(t, err)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "patterns.csv")

	require.NoError(t, writeCSV(path, func(f *os.File) error {
		_, err := f.WriteString("month,rain_sum\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "month,rain_sum\n", string(data))

	boom := errors.New("boom")
	assert.ErrorIs(t, writeCSV(path, func(*os.File) error { return boom }), boom)
}
