// Package store implements the persistence gateway over SQLite, one
// table per source keyed by calendar date.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

// tableNames maps each source tag to its table. Table names cannot be
// bound as SQL parameters, so every statement below interpolates only
// values coming from this map.
var tableNames = map[forecast.SourceTag]string{
	forecast.SourceMETMalaysia:    "met_malaysia",
	forecast.SourceOpenWeatherMap: "open_weather_map",
	forecast.SourceWindy:          "windy",
}

// SQLiteStore persists reconciled daily records.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, enables WAL, and runs
// schema migration. Transactions are opened with BEGIN IMMEDIATE so that
// the read-merge-write of ReconcileUpsert serializes against concurrent
// writers for the same key.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", forecast.ErrStorage, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", forecast.ErrStorage, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", forecast.ErrStorage, err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	for _, table := range tableNames {
		schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			date         TEXT PRIMARY KEY,
			min_temp     REAL NOT NULL,
			max_temp     REAL NOT NULL,
			current_temp REAL
		);`, table)

		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileUpsert looks up the stored row for agg's date, lets merge
// compute the reconciled row against it, and upserts the result, all
// inside a single immediate transaction, so two overlapping ingestion
// runs can never both average against the same pre-update value.
// A merge rejection (min > max) rolls back without persisting anything.
func (s *SQLiteStore) ReconcileUpsert(ctx context.Context, tag forecast.SourceTag, agg forecast.DailyRecord,
	merge func(existing *forecast.DailyRecord) (forecast.DailyRecord, error)) error {

	table, ok := tableNames[tag]
	if !ok {
		return fmt.Errorf("%w: unknown source %q", forecast.ErrStorage, tag)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", forecast.ErrStorage, err)
	}
	defer tx.Rollback()

	var existing *forecast.DailyRecord
	row := tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT date, min_temp, max_temp, current_temp FROM %s WHERE date = ?`, table), agg.Date)

	rec, err := scanRecord(row)
	switch {
	case err == nil:
		existing = &rec
	case errors.Is(err, sql.ErrNoRows):
		existing = nil
	default:
		return fmt.Errorf("%w: select existing: %v", forecast.ErrStorage, err)
	}

	merged, err := merge(existing)
	if err != nil {
		return err
	}

	var current sql.NullFloat64
	if merged.Current != nil {
		current = sql.NullFloat64{Float64: *merged.Current, Valid: true}
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (date, min_temp, max_temp, current_temp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			min_temp = excluded.min_temp,
			max_temp = excluded.max_temp,
			current_temp = excluded.current_temp`, table),
		merged.Date, merged.Min, merged.Max, current,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", forecast.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", forecast.ErrStorage, err)
	}
	return nil
}

// Today returns the row for the given date, if any (0 or 1 records).
func (s *SQLiteStore) Today(ctx context.Context, tag forecast.SourceTag, date string) ([]forecast.DailyRecord, error) {
	table, ok := tableNames[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", forecast.ErrStorage, tag)
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT date, min_temp, max_temp, current_temp FROM %s WHERE date = ?`, table), date)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return []forecast.DailyRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select today: %v", forecast.ErrStorage, err)
	}
	return []forecast.DailyRecord{rec}, nil
}

// Week returns all rows with date in [from, to], ascending by date.
func (s *SQLiteStore) Week(ctx context.Context, tag forecast.SourceTag, from, to string) ([]forecast.DailyRecord, error) {
	table, ok := tableNames[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", forecast.ErrStorage, tag)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT date, min_temp, max_temp, current_temp FROM %s
		 WHERE date BETWEEN ? AND ? ORDER BY date ASC`, table), from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: select week: %v", forecast.ErrStorage, err)
	}
	defer rows.Close()

	records := []forecast.DailyRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", forecast.ErrStorage, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %v", forecast.ErrStorage, err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (forecast.DailyRecord, error) {
	var rec forecast.DailyRecord
	var current sql.NullFloat64

	if err := s.Scan(&rec.Date, &rec.Min, &rec.Max, &current); err != nil {
		return forecast.DailyRecord{}, err
	}
	if current.Valid {
		rec.Current = &current.Float64
	}
	return rec, nil
}
