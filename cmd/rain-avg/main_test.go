package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"tidal_efficiency/internal/ingest"
)

func TestAverageFile_CP949(t *testing.T) {
	input := `지점,지점명,일시,강수량(mm)
112,인천,2024-07-01 03:00,5.0
119,수원,2024-07-01 03:00,2.0
112,인천,2024-07-01 04:00,
119,수원,2024-07-01 04:00,1.0
`
	encoded, err := korean.EUCKR.NewEncoder().String(input)
	require.NoError(t, err)

	dir := t.TempDir()
	in := filepath.Join(dir, "rainfall_data.csv")
	require.NoError(t, os.WriteFile(in, []byte(encoded), 0o644))
	out := filepath.Join(dir, "out", "rain_avg.csv")

	stations, hours, err := averageFile(in, out, ingest.EncodingCP949)
	require.NoError(t, err)
	assert.Equal(t, 2, stations)
	assert.Equal(t, 2, hours)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "일시,평균강수량(mm)\n2024-07-01 03:00:00,3.5\n2024-07-01 04:00:00,1\n", string(data),
		"blank cells take no part in the mean")
}

func TestAverageFile_MissingInput(t *testing.T) {
	_, _, err := averageFile(filepath.Join(t.TempDir(), "nope.csv"), filepath.Join(t.TempDir(), "out.csv"), ingest.EncodingUTF8)
	assert.Error(t, err)
}
