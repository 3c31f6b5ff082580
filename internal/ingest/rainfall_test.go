package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidal_efficiency/internal/model"
)

func TestRainfallParser_Parse(t *testing.T) {
	input := `일시,평균강수량(mm)
2024-07-01 00:00:00,0.0
2024-07-01 01:00:00,4.5`

	p := &RainfallParser{}
	records, err := p.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2024, 7, 1, 1, 0, 0, 0, time.UTC), records[1].Timestamp)
	assert.InDelta(t, 4.5, records[1].RainfallMM, 1e-9)
}

func TestRainfallParser_InvalidHeader(t *testing.T) {
	input := `timestamp,rain
2024-07-01 00:00:00,0.0`

	p := &RainfallParser{}
	_, err := p.Parse(strings.NewReader(input))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "일시")
}

func TestStationRainfall_AverageByHour(t *testing.T) {
	input := `지점,지점명,일시,강수량(mm)
112,인천,2024-07-01 01:00,6.0
201,강화,2024-07-01 01:00,2.0
202,시흥,2024-07-01 01:00,
112,인천,2024-07-01 00:00,0.0
201,강화,2024-07-01 00:00,1.0`

	p := &StationRainfallParser{}
	obs, err := p.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, obs, 4)
	assert.Equal(t, "인천", obs[0].Station)

	avg := AverageByHour(obs)
	require.Len(t, avg, 2)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), avg[0].Timestamp)
	assert.InDelta(t, 0.5, avg[0].RainfallMM, 1e-9)
	assert.InDelta(t, 4.0, avg[1].RainfallMM, 1e-9)
}

func TestAverageByHour_Empty(t *testing.T) {
	assert.Empty(t, AverageByHour(nil))
	assert.Empty(t, AverageByHour([]model.StationRainfall{}))
}

func TestMonthlyParser_Parse(t *testing.T) {
	input := `date,rain_avg,waste_sum
2024-06-01,120.5,30.1
2024-07,410.0,55.4
2024-08-01,n/a,12.0`

	p := &MonthlyParser{}
	records, err := p.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.MonthKey("2024-06"), records[0].Month)
	assert.Equal(t, model.MonthKey("2024-07"), records[1].Month)
	assert.InDelta(t, 410.0, records[1].RainSum, 1e-9)
	assert.InDelta(t, 55.4, records[1].WasteSum, 1e-9)
	assert.Equal(t, 1, p.Skipped)
}

func TestMonthlyParser_BadMonth(t *testing.T) {
	input := `month,rain_sum,waste_sum
July,120.5,30.1`

	p := &MonthlyParser{}
	_, err := p.Parse(strings.NewReader(input))
	assert.Error(t, err)
}

func TestMergedParser_Parse(t *testing.T) {
	input := `날짜,해수위(ELm),호수위(ELm),합계(킬로와트시),일시,평균강수량(mm),낙차
2024-07-01 00:00:00,2.5,-0.5,90000,2024-07-01 00:00:00,0.0,3.0
2024-07-01 01:00:00,2.0,-0.5,70000,2024-07-01 01:00:00,1.5,2.5`

	p := &MergedParser{}
	records, err := p.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.InDelta(t, 3.0, records[0].Head(), 1e-9)
	assert.InDelta(t, 1.5, records[1].RainfallMM, 1e-9)
}

func TestMergedParser_DateAndClock(t *testing.T) {
	input := `날짜,시간,해수위(ELm),호수위(ELm),합계(킬로와트시),일시,평균강수량(mm)
2024-01-01,01:00,2.5,-0.5,90000,2024-01-01 01:00:00,0.0
2024-01-01,02:00,2.4,-0.5,88000,2024-01-01 02:00:00,0.0
2024-01-01,24:00,2.3,-0.5,86000,2024-01-02 00:00:00,1.0`

	records, err := (&MergedParser{}).Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), records[0].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), records[1].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), records[2].Timestamp)
}

func TestMergedParser_DateOnlyUsesObserved(t *testing.T) {
	input := `날짜,해수위(ELm),호수위(ELm),합계(킬로와트시),일시,평균강수량(mm)
2024-01-01,2.5,-0.5,90000,2024-01-01 05:00:00,0.0`

	records, err := (&MergedParser{}).Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC), records[0].Timestamp)
}

func TestMergedParser_DateOnlyWithoutHourFails(t *testing.T) {
	input := `날짜,해수위(ELm),호수위(ELm),합계(킬로와트시),평균강수량(mm)
2024-01-01,2.5,-0.5,90000,0.0`

	_, err := (&MergedParser{}).Parse(strings.NewReader(input))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLevelsParser_Parse(t *testing.T) {
	input := `sensor_id,value,updated_ts
sea_level,2.31,1719802800
lake_level,-1.12,1719802800.5
pump_power,10,1719802800`

	p := &LevelsParser{}
	readings, err := p.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, model.SensorSeaLevel, readings[0].Type)
	assert.Equal(t, "m", readings[0].Unit)
	assert.Equal(t, time.Unix(1719802800, 0).UTC(), readings[0].Timestamp)
	assert.InDelta(t, -1.12, readings[1].Value, 1e-9)

	row := FormatLevelsRecord(readings[0])
	assert.Equal(t, []string{"sea_level", "2.31", "1719802800"}, row)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rain.csv")
	require.NoError(t, os.WriteFile(path, []byte("일시,평균강수량(mm)\n2024-07-01 03:00:00,4.5\n"), 0o644))

	p := &RainfallParser{}
	records, err := ParseFile(path, p.Parse)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4.5, records[0].RainfallMM)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.csv"), p.Parse)
	assert.ErrorContains(t, err, "opening")

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("foo,bar\n1,2\n"), 0o644))
	_, err = ParseFile(bad, p.Parse)
	assert.ErrorContains(t, err, "parsing "+bad)
}
