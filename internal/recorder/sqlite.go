package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists refresh history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			name      TEXT,
			price     REAL,
			version   INTEGER,
			asks      INTEGER,
			outcome   TEXT NOT NULL,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_symbol_ts ON refresh_history(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRefresh(evt *RefreshEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := evt.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO refresh_history
		(timestamp, symbol, name, price, version, asks, outcome, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		ts.UnixNano(), evt.Symbol, evt.Name, evt.Price, evt.Version, evt.Asks,
		string(evt.Outcome), evt.Error,
	)
	return err
}

// Recent returns the latest events for symbol, newest first. An empty symbol
// matches every symbol.
func (r *SQLiteRecorder) Recent(symbol string, limit int) ([]RefreshEvent, error) {
	rows, err := r.db.Query(`SELECT timestamp, symbol, name, price, version, asks, outcome, error
		FROM refresh_history
		WHERE ? = '' OR symbol = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query refresh history: %w", err)
	}
	defer rows.Close()

	var events []RefreshEvent
	for rows.Next() {
		var (
			evt     RefreshEvent
			ts      int64
			outcome string
		)
		if err := rows.Scan(&ts, &evt.Symbol, &evt.Name, &evt.Price, &evt.Version, &evt.Asks, &outcome, &evt.Error); err != nil {
			return nil, fmt.Errorf("scan refresh history: %w", err)
		}
		evt.Time = time.Unix(0, ts)
		evt.Outcome = Outcome(outcome)
		events = append(events, evt)
	}
	return events, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
