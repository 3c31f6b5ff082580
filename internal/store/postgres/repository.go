// Package postgres persists analysis runs and live readings in PostgreSQL
// through database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/model"
)

const (
	runsTable     = "analysis_runs"
	recordsTable  = "analysis_records"
	baselineTable = "baseline_points"
	readingsTable = "live_readings"
)

var errNilDB = errors.New("postgres: nil db")

// Open connects with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + runsTable + ` (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	source TEXT NOT NULL,
	currency TEXT NOT NULL,
	price_per_kwh DOUBLE PRECISION NOT NULL,
	global_baseline DOUBLE PRECISION NOT NULL,
	valid_records INTEGER NOT NULL,
	total_loss NUMERIC NOT NULL,
	event_peak TIMESTAMPTZ NOT NULL,
	event_loss NUMERIC NOT NULL,
	cleaning_cost NUMERIC NOT NULL,
	trigger_at TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS ` + recordsTable + ` (
	run_id UUID NOT NULL REFERENCES ` + runsTable + `(id) ON DELETE CASCADE,
	ts TIMESTAMPTZ NOT NULL,
	sea_level DOUBLE PRECISION NOT NULL,
	lake_level DOUBLE PRECISION NOT NULL,
	energy_kwh DOUBLE PRECISION NOT NULL,
	rainfall_mm DOUBLE PRECISION NOT NULL,
	head DOUBLE PRECISION NOT NULL,
	efficiency DOUBLE PRECISION NOT NULL,
	head_group DOUBLE PRECISION NOT NULL,
	rain_affected BOOLEAN NOT NULL,
	loss_kwh DOUBLE PRECISION NOT NULL,
	loss NUMERIC NOT NULL,
	PRIMARY KEY (run_id, ts)
)`,
	`CREATE TABLE IF NOT EXISTS ` + baselineTable + ` (
	run_id UUID NOT NULL REFERENCES ` + runsTable + `(id) ON DELETE CASCADE,
	head DOUBLE PRECISION NOT NULL,
	efficiency DOUBLE PRECISION NOT NULL,
	hours INTEGER NOT NULL,
	PRIMARY KEY (run_id, head)
)`,
	`CREATE TABLE IF NOT EXISTS ` + readingsTable + ` (
	sensor_id TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (sensor_id, ts)
)`,
}

// Schema returns the statements Migrate runs, in order.
func Schema() []string {
	return append([]string(nil), schema...)
}

// ReadingsTable is the table live sensor readings are archived in.
const ReadingsTable = readingsTable

// Repository stores pipeline results and live readings.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tables when they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errNilDB
	}
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// RunInfo describes a pipeline run being saved.
type RunInfo struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Source      string
	Currency    string
	PricePerKWh float64
}

// SaveRun writes a run, its annotated records and the derived baseline in one
// transaction. A zero ID is replaced by a new random one, which is returned.
func (r *Repository) SaveRun(ctx context.Context, info RunInfo, res *analysis.Result) (uuid.UUID, error) {
	if r == nil || r.db == nil {
		return uuid.Nil, errNilDB
	}
	if res == nil {
		return uuid.Nil, errors.New("postgres: nil result")
	}
	if info.ID == uuid.Nil {
		info.ID = uuid.New()
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}

	var triggerAt sql.NullTime
	if res.Event.TriggerAt != nil {
		triggerAt = sql.NullTime{Time: *res.Event.TriggerAt, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO `+runsTable+` (
	id, created_at, source, currency, price_per_kwh, global_baseline, valid_records,
	total_loss, event_peak, event_loss, cleaning_cost, trigger_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		info.ID, info.CreatedAt, info.Source, info.Currency, info.PricePerKWh,
		res.Baseline.Global(), len(res.Valid), res.TotalLoss().String(),
		res.Event.Peak, res.Event.Total.String(), res.Event.CleaningCost.String(), triggerAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	recordStmt, err := tx.PrepareContext(ctx, `
INSERT INTO `+recordsTable+` (
	run_id, ts, sea_level, lake_level, energy_kwh, rainfall_mm,
	head, efficiency, head_group, rain_affected, loss_kwh, loss
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		_ = tx.Rollback()
		return uuid.Nil, err
	}
	defer recordStmt.Close()

	for _, a := range res.Valid {
		if _, err := recordStmt.ExecContext(ctx,
			info.ID, a.Timestamp, a.SeaLevel, a.LakeLevel, a.EnergyKWh, a.RainfallMM,
			a.Head, a.Efficiency, float64(a.Bucket), a.Status == model.StatusRainAffected,
			a.LossKWh, a.Loss.String(),
		); err != nil {
			_ = tx.Rollback()
			return uuid.Nil, fmt.Errorf("insert record %s: %w", a.Timestamp.Format(time.RFC3339), err)
		}
	}

	for _, p := range res.Baseline.Points() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+baselineTable+` (run_id, head, efficiency, hours) VALUES ($1, $2, $3, $4)`,
			info.ID, float64(p.Bucket), p.Efficiency, p.Count,
		); err != nil {
			_ = tx.Rollback()
			return uuid.Nil, fmt.Errorf("insert baseline: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return info.ID, nil
}

// LoadBaseline rebuilds the baseline saved with a run.
func (r *Repository) LoadBaseline(ctx context.Context, runID uuid.UUID) (*analysis.Baseline, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}

	var global float64
	err := r.db.QueryRowContext(ctx, `SELECT global_baseline FROM `+runsTable+` WHERE id = $1`, runID).Scan(&global)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT head, efficiency, hours FROM `+baselineTable+` WHERE run_id = $1 ORDER BY head ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []analysis.BucketMean
	for rows.Next() {
		var head, eff float64
		var hours int
		if err := rows.Scan(&head, &eff, &hours); err != nil {
			return nil, err
		}
		points = append(points, analysis.BucketMean{Bucket: analysis.Bucket(head), Efficiency: eff, Count: hours})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return analysis.NewBaseline(points, global)
}

// InsertReadings upserts live readings.
func (r *Repository) InsertReadings(ctx context.Context, readings []model.Reading) error {
	if r == nil || r.db == nil {
		return errNilDB
	}
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO `+readingsTable+` (sensor_id, ts, value, unit)
VALUES ($1, $2, $3, $4)
ON CONFLICT (sensor_id, ts)
DO UPDATE SET value = EXCLUDED.value, unit = EXCLUDED.unit`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rd := range readings {
		if rd.SensorID == "" || rd.Timestamp.IsZero() {
			_ = tx.Rollback()
			return errors.New("postgres: invalid reading")
		}
		if _, err := stmt.ExecContext(ctx, rd.SensorID, rd.Timestamp, rd.Value, rd.Unit); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ReadingsInRange returns readings of all sensors within [start, end),
// ordered by time and sensor.
func (r *Repository) ReadingsInRange(ctx context.Context, start, end time.Time) ([]model.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT sensor_id, ts, value, unit
FROM `+readingsTable+`
WHERE ts >= $1 AND ts < $2
ORDER BY ts ASC, sensor_id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []model.Reading
	for rows.Next() {
		var rd model.Reading
		if err := rows.Scan(&rd.SensorID, &rd.Timestamp, &rd.Value, &rd.Unit); err != nil {
			return nil, err
		}
		rd.Timestamp = rd.Timestamp.UTC()
		rd.Type = model.SensorType(rd.SensorID)
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}
