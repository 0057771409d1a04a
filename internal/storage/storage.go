// Package storage provides SQLite-backed persistence for last prices, spike alerts and bias reports.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/voltwatch/internal/models"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db        *sql.DB
	maxAlerts int
}

// SpikeAlert is a persisted spike event with its optional take-profit estimate.
type SpikeAlert struct {
	Event      models.SpikeEvent
	TakeProfit *float64
	Unit       string
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/voltwatch/data.db.
func New(maxAlerts int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "voltwatch", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if maxAlerts <= 0 {
		maxAlerts = 5000
	}
	s := &Storage{db: db, maxAlerts: maxAlerts}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS last_prices (
			instrument      TEXT PRIMARY KEY,
			price           REAL NOT NULL,
			observed_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS spike_alerts (
			id              TEXT PRIMARY KEY,
			instrument      TEXT NOT NULL,
			start_price     REAL NOT NULL,
			price           REAL NOT NULL,
			delta           REAL NOT NULL,
			direction       TEXT NOT NULL,
			tp              REAL,
			unit            TEXT,
			detected_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bias_reports (
			id              TEXT PRIMARY KEY,
			report_id       TEXT NOT NULL,
			name            TEXT NOT NULL,
			scope           TEXT NOT NULL,
			value           REAL NOT NULL,
			label           TEXT NOT NULL,
			as_of           INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spike_alerts_detected_at ON spike_alerts(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bias_reports_as_of ON bias_reports(as_of)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveLastPrice upserts the latest observation of an instrument.
func (s *Storage) SaveLastPrice(sample models.PriceSample) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO last_prices (instrument, price, observed_at)
		VALUES (?,?,?)`,
		sample.Instrument, sample.Price, sample.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save last price: %w", err)
	}
	return nil
}

// LoadLastPrices returns the last observation per instrument.
func (s *Storage) LoadLastPrices() (map[string]models.PriceSample, error) {
	rows, err := s.db.Query(`SELECT instrument, price, observed_at FROM last_prices`)
	if err != nil {
		return nil, fmt.Errorf("failed to query last prices: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.PriceSample)
	for rows.Next() {
		var sample models.PriceSample
		var observedAtNano int64
		if err := rows.Scan(&sample.Instrument, &sample.Price, &observedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan last price: %w", err)
		}
		sample.Timestamp = time.Unix(0, observedAtNano).UTC()
		out[sample.Instrument] = sample
	}
	return out, rows.Err()
}

// AddSpikeAlert stores an emitted event and keeps at most maxAlerts newest rows.
// Events without an ID are stored under a fresh one; event itself is not modified.
func (s *Storage) AddSpikeAlert(event *models.SpikeEvent, est *models.RangeEstimate) error {
	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}

	var tp sql.NullFloat64
	var unit sql.NullString
	if est != nil {
		tp = sql.NullFloat64{Float64: est.TakeProfit, Valid: true}
		unit = sql.NullString{String: est.Unit, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO spike_alerts
			(id, instrument, start_price, price, delta, direction, tp, unit, detected_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		id, event.Instrument, event.WindowStartPrice, event.CurrentPrice, event.Delta,
		string(event.Direction), tp, unit, event.DetectedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert spike alert: %w", err)
	}

	if _, err = tx.Exec(rotateAlertsSQL, s.maxAlerts); err != nil {
		return fmt.Errorf("failed to enforce alert cap: %w", err)
	}
	return tx.Commit()
}

// RecentSpikeAlerts returns up to k alerts, newest first.
func (s *Storage) RecentSpikeAlerts(k int) ([]SpikeAlert, error) {
	rows, err := s.db.Query(`
		SELECT id, instrument, start_price, price, delta, direction, tp, unit, detected_at
		FROM spike_alerts ORDER BY detected_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query spike alerts: %w", err)
	}
	defer rows.Close()

	var alerts []SpikeAlert
	for rows.Next() {
		var a SpikeAlert
		var direction string
		var tp sql.NullFloat64
		var unit sql.NullString
		var detectedAtNano int64

		err := rows.Scan(
			&a.Event.ID, &a.Event.Instrument, &a.Event.WindowStartPrice, &a.Event.CurrentPrice,
			&a.Event.Delta, &direction, &tp, &unit, &detectedAtNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spike alert: %w", err)
		}

		a.Event.Direction = models.Direction(direction)
		a.Event.DetectedAt = time.Unix(0, detectedAtNano).UTC()
		if tp.Valid {
			v := tp.Float64
			a.TakeProfit = &v
		}
		a.Unit = unit.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// RotateAlerts keeps at most maxAlerts newest alerts by detected_at.
func (s *Storage) RotateAlerts() error {
	if _, err := s.db.Exec(rotateAlertsSQL, s.maxAlerts); err != nil {
		return fmt.Errorf("failed to rotate alerts: %w", err)
	}
	return nil
}

const rotateAlertsSQL = `
	DELETE FROM spike_alerts WHERE id NOT IN (
		SELECT id FROM spike_alerts ORDER BY detected_at DESC LIMIT ?
	)`

// AddBiasScores stores one bias report. All scores share a report ID.
func (s *Storage) AddBiasScores(scores []models.BiasScore) error {
	if len(scores) == 0 {
		return nil
	}
	reportID := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, sc := range scores {
		_, err := tx.Exec(`
			INSERT INTO bias_reports (id, report_id, name, scope, value, label, as_of)
			VALUES (?,?,?,?,?,?,?)`,
			uuid.New().String(), reportID, sc.Name, string(sc.Scope), sc.Value, string(sc.Label),
			sc.AsOf.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert bias score: %w", err)
		}
	}
	return tx.Commit()
}

// LatestBiasScores returns the scores of the most recent report in insertion order.
func (s *Storage) LatestBiasScores() ([]models.BiasScore, error) {
	rows, err := s.db.Query(`
		SELECT name, scope, value, label, as_of FROM bias_reports
		WHERE report_id = (SELECT report_id FROM bias_reports ORDER BY as_of DESC, rowid DESC LIMIT 1)
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bias scores: %w", err)
	}
	defer rows.Close()

	var scores []models.BiasScore
	for rows.Next() {
		var sc models.BiasScore
		var scope, label string
		var asOfNano int64
		if err := rows.Scan(&sc.Name, &scope, &sc.Value, &label, &asOfNano); err != nil {
			return nil, fmt.Errorf("failed to scan bias score: %w", err)
		}
		sc.Scope = models.BiasScope(scope)
		sc.Label = models.BiasLabel(label)
		sc.AsOf = time.Unix(0, asOfNano).UTC()
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}
