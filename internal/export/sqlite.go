package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pfrederiksen/eventscout/internal/event"
)

// DB is an event export database
type DB struct {
	*sql.DB
	path string
}

// openDB opens a SQLite database at the given path
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return sqlDB, nil
}

// OpenSQLite opens or creates the database at path and ensures the schema exists
func OpenSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// InitSchema creates the tables if they do not exist
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}

// WriteRecords replaces every stored event with records
func (db *DB) WriteRecords(ctx context.Context, records []*event.Record) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"event_tags", "event_sponsors", "events"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	insertEvent, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, name, thumbnail_url, description, time, start_date, end_date, day, location, url, price, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer insertEvent.Close()

	insertTag, err := tx.PrepareContext(ctx, `INSERT INTO event_tags (event_id, position, tag) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare tag insert: %w", err)
	}
	defer insertTag.Close()

	insertSponsor, err := tx.PrepareContext(ctx, `INSERT INTO event_sponsors (event_id, position, sponsor) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sponsor insert: %w", err)
	}
	defer insertSponsor.Close()

	for _, r := range records {
		var price sql.NullString
		if r.Price != nil {
			price = sql.NullString{String: *r.Price, Valid: true}
		}

		if _, err = insertEvent.ExecContext(ctx,
			r.ID, r.Name, r.ThumbnailURL, r.Description, r.Time,
			r.StartDate, r.EndDate, r.Day(), r.Location, r.URL, price, r.Status,
		); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", r.ID, err)
		}
		for i, tag := range r.Tags {
			if _, err = insertTag.ExecContext(ctx, r.ID, i, tag); err != nil {
				return fmt.Errorf("failed to insert tag for event %d: %w", r.ID, err)
			}
		}
		for i, sponsor := range r.Sponsors {
			if _, err = insertSponsor.ExecContext(ctx, r.ID, i, sponsor); err != nil {
				return fmt.Errorf("failed to insert sponsor for event %d: %w", r.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	return nil
}

// Records reads back every stored event ordered by id
func (db *DB) Records(ctx context.Context) ([]*event.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, thumbnail_url, description, time, start_date, end_date, location, url, price, status
		FROM events ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	records := []*event.Record{}
	byID := map[int]*event.Record{}
	for rows.Next() {
		r := &event.Record{Tags: []string{}, Sponsors: []string{}}
		var price sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.ThumbnailURL, &r.Description, &r.Time,
			&r.StartDate, &r.EndDate, &r.Location, &r.URL, &price, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if price.Valid {
			p := price.String
			r.Price = &p
		}
		records = append(records, r)
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadList(ctx, "SELECT event_id, tag FROM event_tags ORDER BY event_id, position", byID, func(r *event.Record, v string) {
		r.Tags = append(r.Tags, v)
	}); err != nil {
		return nil, err
	}
	if err := db.loadList(ctx, "SELECT event_id, sponsor FROM event_sponsors ORDER BY event_id, position", byID, func(r *event.Record, v string) {
		r.Sponsors = append(r.Sponsors, v)
	}); err != nil {
		return nil, err
	}

	return records, nil
}

func (db *DB) loadList(ctx context.Context, query string, byID map[int]*event.Record, add func(*event.Record, string)) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return fmt.Errorf("failed to scan list row: %w", err)
		}
		if r, ok := byID[id]; ok {
			add(r, value)
		}
	}
	return rows.Err()
}
