package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/model"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func TestRepository_SaveRun(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	var records []model.Record
	for i := 0; i < 12; i++ {
		rain := 0.0
		if i == 4 {
			rain = 9
		}
		records = append(records, model.Record{
			Timestamp:  start.Add(time.Duration(i) * time.Hour),
			SeaLevel:   3.5,
			LakeLevel:  0.5,
			EnergyKWh:  90000 - float64(i%3)*1000,
			RainfallMM: rain,
		})
	}
	res, err := analysis.RunMerged(records, analysis.DefaultParams(), analysis.Options{})
	require.NoError(t, err)

	id, err := repo.SaveRun(ctx, RunInfo{Source: "integration", Currency: "KRW", PricePerKWh: 150}, res)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	t.Cleanup(func() {
		_, _ = repo.db.ExecContext(context.Background(), "DELETE FROM "+runsTable+" WHERE id = $1", id)
	})

	var count int
	require.NoError(t, repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+recordsTable+" WHERE run_id = $1", id).Scan(&count))
	assert.Equal(t, len(res.Valid), count)

	b, err := repo.LoadBaseline(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, res.Baseline.Points(), b.Points())
	assert.InDelta(t, res.Baseline.Global(), b.Global(), 1e-9)
}

func TestRepository_Readings(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	ts := time.Date(2031, 1, 2, 3, 0, 0, 0, time.UTC)
	readings := []model.Reading{
		{Timestamp: ts, SensorID: "waste", Type: model.SensorWaste, Value: 12},
		{Timestamp: ts, SensorID: "head", Type: model.SensorHead, Value: 2.4, Unit: "m"},
	}
	t.Cleanup(func() {
		_, _ = repo.db.ExecContext(context.Background(), "DELETE FROM "+readingsTable+" WHERE ts = $1", ts)
	})

	require.NoError(t, repo.InsertReadings(ctx, readings))
	readings[1].Value = 2.5
	require.NoError(t, repo.InsertReadings(ctx, readings))

	got, err := repo.ReadingsInRange(ctx, ts, ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "head", got[0].SensorID)
	assert.Equal(t, 2.5, got[0].Value)
	assert.Equal(t, ts, got[0].Timestamp)
}

func TestRepository_NilDB(t *testing.T) {
	var repo *Repository

	assert.Error(t, repo.Migrate(context.Background()))
	assert.Error(t, repo.InsertReadings(context.Background(), []model.Reading{{SensorID: "x"}}))
	_, err := repo.SaveRun(context.Background(), RunInfo{}, &analysis.Result{})
	assert.Error(t, err)
}
