// Package ledger is the SQL-backed store of transactions, budgets, goals,
// investments and recurring templates.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"finassist/internal/logging"
	"finassist/internal/types"
)

// ErrNotFound is returned when an update or delete matches no row.
var ErrNotFound = errors.New("ledger: record not found")

// timeLayout is fixed-width so stored times sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLLedger implements types.Ledger on SQLite.
type SQLLedger struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	now    func() time.Time
}

var _ types.Ledger = (*SQLLedger)(nil)

// Open opens (or creates) the ledger database. driver is "sqlite" for the
// pure-Go modernc driver or "sqlite3" for mattn/go-sqlite3.
func Open(driver, path string) (*SQLLedger, error) {
	timer := logging.StartTimer(logging.CategoryLedger, "ledger.Open")
	defer timer.Stop()

	if driver == "" {
		driver = "sqlite"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.LedgerDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.LedgerDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	l := &SQLLedger{db: db, dbPath: path, now: time.Now}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Ledger("ledger opened: driver=%s path=%s", driver, path)
	return l, nil
}

// SetClock overrides the clock used for CreatedAt stamps.
func (l *SQLLedger) SetClock(now func() time.Time) { l.now = now }

// DB exposes the connection so other stores can share the file.
func (l *SQLLedger) DB() *sql.DB { return l.db }

// Path returns the database file path.
func (l *SQLLedger) Path() string { return l.dbPath }

// Close closes the database connection.
func (l *SQLLedger) Close() error { return l.db.Close() }

func (l *SQLLedger) initialize() error {
	schema := []string{`
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	`, `
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		limit_amount TEXT NOT NULL,
		period TEXT NOT NULL,
		start_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_budgets_user ON budgets(user_id);
	`, `
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target TEXT NOT NULL,
		current TEXT NOT NULL DEFAULT '0',
		deadline TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);
	`, `
	CREATE TABLE IF NOT EXISTS investments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id);
	`, `
	CREATE TABLE IF NOT EXISTS recurring_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		next_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recurring_user ON recurring_transactions(user_id);
	`}
	for _, stmt := range schema {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// exec runs a write statement under the write lock.
func (l *SQLLedger) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.ExecContext(ctx, query, args...)
}
