// Package storage provides a SQLite-backed journal of market ticks and alert lifecycle events.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/gridpulse/internal/models"
	_ "modernc.org/sqlite"
)

// EventKind labels an alert lifecycle transition.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventTriggered EventKind = "triggered"
	EventRemoved   EventKind = "removed"
)

// AlertEvent is one journaled alert lifecycle transition.
type AlertEvent struct {
	SessionID  string
	AlertID    int
	Market     string
	Condition  models.Condition
	Value      float64
	Kind       EventKind
	RecordedAt time.Time
}

// Storage wraps a SQLite database used as a session journal.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// ":memory:" keeps the journal in process memory.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = ":memory:"
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
	db.SetMaxOpenConns(1) // single writer; also keeps one shared :memory: database
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
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
		`CREATE TABLE IF NOT EXISTS ticks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			market      TEXT NOT NULL,
			price       REAL NOT NULL,
			change      REAL NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alert_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT NOT NULL,
			alert_id    INTEGER NOT NULL,
			market      TEXT NOT NULL,
			condition   TEXT NOT NULL,
			value       REAL NOT NULL,
			kind        TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_session_market ON ticks(session_id, market, seq DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_events_session ON alert_events(session_id, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordTick journals every ticker entry of one tick in a single transaction.
func (s *Storage) RecordTick(sessionID string, seq int, tickers []models.Ticker, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO ticks (session_id, seq, market, price, change, recorded_at)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare tick insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tickers {
		if _, err := stmt.Exec(sessionID, seq, t.Name, t.Price, t.Change, at.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert tick for %s: %w", t.Name, err)
		}
	}

	return tx.Commit()
}

// RecentPrices returns up to n most recent journaled prices for a market, oldest first.
func (s *Storage) RecentPrices(sessionID, market string, n int) ([]float64, error) {
	rows, err := s.db.Query(`
		SELECT price FROM (
			SELECT seq, price FROM ticks
			WHERE session_id = ? AND market = ?
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, sessionID, market, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	prices := []float64{}
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// RecordAlertEvent journals an alert lifecycle transition.
func (s *Storage) RecordAlertEvent(ev AlertEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_events (session_id, alert_id, market, condition, value, kind, recorded_at)
		VALUES (?,?,?,?,?,?,?)`,
		ev.SessionID, ev.AlertID, ev.Market, string(ev.Condition), ev.Value, string(ev.Kind),
		ev.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}
	return nil
}

// AlertEvents returns the session's alert events in the order they were recorded.
func (s *Storage) AlertEvents(sessionID string) ([]AlertEvent, error) {
	rows, err := s.db.Query(`
		SELECT session_id, alert_id, market, condition, value, kind, recorded_at
		FROM alert_events WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert events: %w", err)
	}
	defer rows.Close()

	var events []AlertEvent
	for rows.Next() {
		var ev AlertEvent
		var cond, kind string
		var recordedAtNano int64
		if err := rows.Scan(&ev.SessionID, &ev.AlertID, &ev.Market, &cond, &ev.Value, &kind, &recordedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		ev.Condition = models.Condition(cond)
		ev.Kind = EventKind(kind)
		ev.RecordedAt = time.Unix(0, recordedAtNano)
		events = append(events, ev)
	}
	if events == nil {
		events = []AlertEvent{}
	}
	return events, rows.Err()
}

// RotateTicks keeps at most maxTicks newest tick sequences per session.
func (s *Storage) RotateTicks(sessionID string, maxTicks int) error {
	_, err := s.db.Exec(`
		DELETE FROM ticks WHERE session_id = ? AND seq <= (
			SELECT COALESCE(MAX(seq), 0) - ? FROM ticks WHERE session_id = ?
		)`, sessionID, maxTicks, sessionID)
	if err != nil {
		return fmt.Errorf("failed to rotate ticks: %w", err)
	}
	return nil
}

// CountTicks returns the number of distinct tick sequences journaled for a session.
func (s *Storage) CountTicks(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT seq) FROM ticks WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ticks: %w", err)
	}
	return n, nil
}
