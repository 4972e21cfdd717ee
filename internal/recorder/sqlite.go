package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"StockDog/internal/model"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists synchronization history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sync_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			request_id  TEXT,
			trigger     TEXT,
			status      TEXT,
			symbols     TEXT,
			requested   INTEGER,
			received    INTEGER,
			applied     INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_ts ON sync_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS quote_history (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			request_id     TEXT,
			symbol         TEXT NOT NULL,
			last_price     REAL,
			change         REAL,
			percent_change REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_symbol_ts ON quote_history(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSync(evt *SyncEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO sync_events
		(timestamp, request_id, trigger, status, symbols, requested, received, applied, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().UnixMilli(), evt.RequestID, evt.Trigger, evt.Status,
		strings.Join(evt.Symbols, ","), len(evt.Symbols), evt.Received, evt.Applied,
		evt.Duration.Milliseconds(), evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordQuotes(requestID string, quotes []model.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO quote_history
		(timestamp, request_id, symbol, last_price, change, percent_change)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, q := range quotes {
		if _, err := stmt.Exec(now, requestID, q.Symbol, q.LastPrice, q.Change, q.PercentChange); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) QuoteHistory(symbol string, limit int) ([]QuotePoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`SELECT timestamp, symbol, last_price, change, percent_change
		FROM quote_history WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		model.NormalizeSymbol(symbol), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []QuotePoint
	for rows.Next() {
		var (
			p  QuotePoint
			ts int64
		)
		if err := rows.Scan(&ts, &p.Symbol, &p.LastPrice, &p.Change, &p.PercentChange); err != nil {
			return nil, err
		}
		p.Timestamp = time.UnixMilli(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
