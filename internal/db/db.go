// Package db stores completed dark-baseline calibrations in sqlite so a
// restarted monitor can report how the current baseline compares to earlier
// runs. Acquired readings are never persisted; only calibration results.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the calibration database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Serialise writers; the monitor and the HTTP handlers share this handle.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// CalibrationRecord is one stored dark-baseline calibration.
type CalibrationRecord struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	BaselineTarget int       `json:"baseline_target"`
	MeanDark       float64   `json:"mean_dark"`
	DarkStd        float64   `json:"dark_std"`
	Gain           float64   `json:"gain"`
	QE             float64   `json:"quantum_efficiency"`
	WavelengthNM   float64   `json:"wavelength_nm"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordCalibration inserts a completed calibration and returns its row ID.
func (db *DB) RecordCalibration(r *CalibrationRecord) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO calibrations
			(session_id, baseline_target, mean_dark, dark_std, gain, quantum_efficiency, wavelength_nm)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.BaselineTarget, r.MeanDark, r.DarkStd, r.Gain, r.QE, r.WavelengthNM)
	if err != nil {
		return 0, fmt.Errorf("failed to record calibration: %w", err)
	}
	return res.LastInsertId()
}

// ListCalibrations returns up to limit calibrations, newest first.
func (db *DB) ListCalibrations(limit int) ([]CalibrationRecord, error) {
	rows, err := db.Query(`
		SELECT id, session_id, baseline_target, mean_dark, dark_std,
		       gain, quantum_efficiency, wavelength_nm, created_at
		FROM calibrations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibrations: %w", err)
	}
	defer rows.Close()

	var out []CalibrationRecord
	for rows.Next() {
		var r CalibrationRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.BaselineTarget, &r.MeanDark, &r.DarkStd,
			&r.Gain, &r.QE, &r.WavelengthNM, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestCalibration returns the most recent calibration, or nil if none has
// been recorded yet.
func (db *DB) LatestCalibration() (*CalibrationRecord, error) {
	recs, err := db.ListCalibrations(1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}
