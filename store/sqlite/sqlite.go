/*
Package sqlite provides SQLite-backed persistence for reusable reference
data.

PURPOSE:
  Billing runs themselves are single-shot and never persisted, but the
  configuration that feeds them is worth keeping: named working-day
  calendars (finance maintains one per fiscal year) and exchange-rate
  presets (rates change monthly, re-typing them per run invites typos).
  This package stores exactly those two things.

KEY TABLES:
  calendars:    name -> twelve working-day counts (JSON)
  rate_presets: name -> service-rate configuration (JSON, same shape the
                run config accepts)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  Uses sync.RWMutex for thread-safety across the API's handlers.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - api/handlers.go: The reference-data endpoints using this store
  - factory/config.go: The JSON shapes stored here
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/billing-engine/billing"
)

// Store persists named calendars and exchange-rate presets.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Named working-day calendars
	CREATE TABLE IF NOT EXISTS calendars (
		name TEXT PRIMARY KEY,
		days_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Named exchange-rate / TSR configuration presets
	CREATE TABLE IF NOT EXISTS rate_presets (
		name TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALENDARS
// =============================================================================

// Calendar is a named working-day calendar.
type Calendar struct {
	Name      string
	Days      billing.WorkingDays
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveCalendar inserts or replaces a calendar by name.
func (s *Store) SaveCalendar(ctx context.Context, name string, days billing.WorkingDays) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	daysJSON, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calendars (name, days_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET days_json = excluded.days_json, updated_at = excluded.updated_at`,
		name, string(daysJSON), now, now)
	if err != nil {
		return fmt.Errorf("failed to save calendar %q: %w", name, err)
	}
	return nil
}

// GetCalendar returns a calendar by name, or nil when absent.
func (s *Store) GetCalendar(ctx context.Context, name string) (*Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT name, days_json, created_at, updated_at FROM calendars WHERE name = ?`, name)

	cal, err := scanCalendar(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cal, err
}

// ListCalendars returns all calendars ordered by name.
func (s *Store) ListCalendars(ctx context.Context) ([]Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, days_json, created_at, updated_at FROM calendars ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	defer rows.Close()

	var calendars []Calendar
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, *cal)
	}
	return calendars, rows.Err()
}

// DeleteCalendar removes a calendar by name.
func (s *Store) DeleteCalendar(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM calendars WHERE name = ?`, name)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalendar(sc scanner) (*Calendar, error) {
	var cal Calendar
	var daysJSON, createdAt, updatedAt string

	if err := sc.Scan(&cal.Name, &daysJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan calendar: %w", err)
	}
	if err := json.Unmarshal([]byte(daysJSON), &cal.Days); err != nil {
		return nil, fmt.Errorf("corrupt calendar %q: %w", cal.Name, err)
	}
	cal.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	cal.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &cal, nil
}

// =============================================================================
// RATE PRESETS
// =============================================================================

// RatePreset is a named service-rate configuration. The JSON payload is the
// same "tsr" object the run config accepts, stored verbatim.
type RatePreset struct {
	Name      string
	Config    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveRatePreset inserts or replaces a preset by name.
func (s *Store) SaveRatePreset(ctx context.Context, name string, config json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !json.Valid(config) {
		return fmt.Errorf("rate preset %q is not valid JSON", name)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_presets (name, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET config_json = excluded.config_json, updated_at = excluded.updated_at`,
		name, string(config), now, now)
	if err != nil {
		return fmt.Errorf("failed to save rate preset %q: %w", name, err)
	}
	return nil
}

// GetRatePreset returns a preset by name, or nil when absent.
func (s *Store) GetRatePreset(ctx context.Context, name string) (*RatePreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT name, config_json, created_at, updated_at FROM rate_presets WHERE name = ?`, name)

	var p RatePreset
	var config, createdAt, updatedAt string
	if err := row.Scan(&p.Name, &config, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan rate preset: %w", err)
	}
	p.Config = json.RawMessage(config)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// ListRatePresets returns all presets ordered by name.
func (s *Store) ListRatePresets(ctx context.Context) ([]RatePreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, config_json, created_at, updated_at FROM rate_presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rate presets: %w", err)
	}
	defer rows.Close()

	var presets []RatePreset
	for rows.Next() {
		var p RatePreset
		var config, createdAt, updatedAt string
		if err := rows.Scan(&p.Name, &config, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rate preset: %w", err)
		}
		p.Config = json.RawMessage(config)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeleteRatePreset removes a preset by name.
func (s *Store) DeleteRatePreset(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM rate_presets WHERE name = ?`, name)
	return err
}
