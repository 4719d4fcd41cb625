// Package store persists locally created events in SQLite. Subscription
// sources (ICS, CalDAV) are never written here; they are merged into the
// snapshot at read time.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"timebox/internal/model"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New opens (creating if needed) the SQLite database at dbPath and runs
// migrations. loc is the display timezone event instants are returned in;
// nil means time.Local.
func New(dbPath string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.Local
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_at ON events(start_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Create stores a new event. A missing ID gets a fresh UUID, matching
// how the API mints identifiers. The stored event is returned.
func (s *Store) Create(ctx context.Context, ev model.Event) (model.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.Source = model.SourceLocal

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, title, start_at, end_at, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Title,
		ev.Start.Format(time.RFC3339),
		ev.End.Format(time.RFC3339),
		ev.Category,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// List returns all stored events in insertion order, which is the order
// the layout engine preserves within day buckets.
func (s *Store) List(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, start_at, end_at, category FROM events ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var id, title, startStr, endStr, category string
		if err := rows.Scan(&id, &title, &startStr, &endStr, &category); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored start for %s: %w", id, err)
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored end for %s: %w", id, err)
		}
		out = append(out, model.Event{
			ID:       id,
			Title:    title,
			Start:    start.In(s.loc),
			End:      end.In(s.loc),
			Category: category,
			Source:   model.SourceLocal,
		})
	}
	return out, rows.Err()
}

// Get returns a single event by ID, or (zero, false, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (model.Event, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, start_at, end_at, category FROM events WHERE id = ?`, id)

	var evID, title, startStr, endStr, category string
	if err := row.Scan(&evID, &title, &startStr, &endStr, &category); err != nil {
		if err == sql.ErrNoRows {
			return model.Event{}, false, nil
		}
		return model.Event{}, false, fmt.Errorf("get event: %w", err)
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return model.Event{}, false, fmt.Errorf("parse stored start for %s: %w", id, err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return model.Event{}, false, fmt.Errorf("parse stored end for %s: %w", id, err)
	}
	return model.Event{
		ID:       evID,
		Title:    title,
		Start:    start.In(s.loc),
		End:      end.In(s.loc),
		Category: category,
		Source:   model.SourceLocal,
	}, true, nil
}

// Delete removes an event by ID and reports whether anything was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Clear removes all stored events.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}
