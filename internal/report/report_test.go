package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/model"
)

var t0 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func sampleRecords() []model.Record {
	var records []model.Record
	for i := 0; i < 48; i++ {
		head := 3.0
		energy := 90000.0
		rain := 0.0
		if i == 10 {
			rain = 12
		}
		if i >= 13 && i < 16 {
			energy = 84000
		}
		records = append(records, model.Record{
			Timestamp:  t0.Add(time.Duration(i) * time.Hour),
			SeaLevel:   head + 0.25,
			LakeLevel:  0.25,
			EnergyKWh:  energy,
			RainfallMM: rain,
		})
	}
	return records
}

func sampleResult(t *testing.T) *analysis.Result {
	t.Helper()
	res, err := analysis.RunMerged(sampleRecords(), analysis.DefaultParams(), analysis.Options{})
	require.NoError(t, err)
	return res
}

func TestWriteAnnotated(t *testing.T) {
	records := []analysis.Annotated{{
		Record: model.Record{
			Timestamp: t0.Add(3 * time.Hour), SeaLevel: 3.1, LakeLevel: 0.1, EnergyKWh: 87000, RainfallMM: 0,
		},
		Head:       3.0,
		Efficiency: 29000,
		Bucket:     3.0,
		Status:     model.StatusRainAffected,
		LossKWh:    3600,
		Loss:       decimal.NewFromInt(540000),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteAnnotated(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "날짜,해수위(ELm),호수위(ELm),합계(킬로와트시),평균강수량(mm),낙차,efficiency,head_group,status,loss_kwh,loss_krw", lines[0])
	assert.Equal(t, "2024-07-01 03:00:00,3.1,0.1,87000,0,3.0000,29000.0000,3.0,비 온 후(쓰레기유입),3600.0000,540000.00", lines[1])
}

func TestWriteAnnotated_Deterministic(t *testing.T) {
	res := sampleResult(t)

	var first, second bytes.Buffer
	require.NoError(t, WriteAnnotated(&first, res.Valid))
	require.NoError(t, WriteAnnotated(&second, sampleResult(t).Valid))

	assert.Equal(t, first.String(), second.String())
}

func TestWriteMerged_ReadBack(t *testing.T) {
	records := sampleRecords()

	var buf bytes.Buffer
	require.NoError(t, WriteMerged(&buf, records))

	p := &ingest.MergedParser{}
	got, err := p.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestWriteRainfall(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRainfall(&buf, []model.RainfallRecord{{Timestamp: t0, RainfallMM: 1.25}}))

	assert.Equal(t, "일시,평균강수량(mm)\n2024-07-01 00:00:00,1.25\n", buf.String())
}

func TestWriteMonthlyJoined(t *testing.T) {
	rows := analysis.MergeMonthly(sampleRecords()[:1], []model.MonthlyEnvironmentRecord{
		{Month: "2024-07", RainSum: 412.5, WasteSum: 38.2},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteMonthlyJoined(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "날짜,해수위(ELm),호수위(ELm),합계(킬로와트시),평균강수량(mm),낙차,month,rain_sum,waste_sum", lines[0])
	assert.Equal(t, "2024-07-01 00:00:00,3.25,0.25,90000,0,3.0000,2024-07,412.5,38.2", lines[1])
}

func TestWritePatterns(t *testing.T) {
	rows := []analysis.PatternRow{{
		MonthlyRainPattern: analysis.MonthlyRainPattern{Month: "2024-07", RainSum: 30, RainPeak: 20, HeavyHours: 2, Top10Ratio: 2.0 / 3},
		WasteSum:           35.5,
	}}

	var buf bytes.Buffer
	require.NoError(t, WritePatterns(&buf, rows))

	assert.Equal(t, "month,rain_sum,rain_peak,heavy_hours,top10_ratio,waste_sum\n2024-07,30,20,2,0.6667,35.5\n", buf.String())
}

func TestPrintTables(t *testing.T) {
	res := sampleResult(t)

	var buf bytes.Buffer
	PrintBaseline(&buf, res.Baseline)
	PrintPenalties(&buf, res.Penalties)
	PrintEvent(&buf, res.Event, "KRW", true)
	PrintComparison(&buf, res.Comparison)

	out := buf.String()
	assert.Contains(t, out, "3.0 m")
	assert.Contains(t, out, "Rain Event: peak 12.0 mm at 2024-07-01 10:00")
	assert.Contains(t, out, "Cleaning cost: 5000000 KRW")
	assert.Contains(t, out, "reduction -0.43%")
}

func TestPrintCorrelations(t *testing.T) {
	var buf bytes.Buffer
	PrintCorrelations(&buf, "waste_sum", []analysis.Correlation{{Metric: "rain_sum", R: 0.8, P: 0.104, N: 5}})

	assert.Contains(t, buf.String(), "rain_sum     r=0.800  p=0.104  (n=5)")
}

func TestBuildWorkbook(t *testing.T) {
	res := sampleResult(t)
	meta := Meta{RunID: "run-1", GeneratedAt: t0, Source: "test", Currency: "KRW"}

	data, err := BuildWorkbook(res, meta)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "baseline", "penalty", "event", "records"}, f.GetSheetList())
	v, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "run-1", v)

	rows, err := f.GetRows("records")
	require.NoError(t, err)
	assert.Len(t, rows, len(res.Valid)+1)
	assert.Equal(t, model.ColHead, rows[0][5])
}

func TestBuildSummaryPDF(t *testing.T) {
	res := sampleResult(t)

	data, err := BuildSummaryPDF(res, Meta{RunID: "run-1", GeneratedAt: t0, Currency: "KRW"})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
