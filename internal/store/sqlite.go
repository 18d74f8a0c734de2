package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents in a single SQLite table. Each conditional write
// is one SQL statement, so SQLite's writer lock makes it atomic; the mutex
// additionally serialises writers inside this process.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the aggregator scan while appends are being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
			tbl TEXT NOT NULL,
			key TEXT NOT NULL,
			doc TEXT NOT NULL,
			PRIMARY KEY (tbl, key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

func unavailable(op string, table Table, key string, err error) error {
	return fmt.Errorf("%s %s/%s: %w: %w", op, table, key, ErrUnavailable, err)
}

func (s *SQLiteStore) Get(ctx context.Context, table Table, key string) (Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM items WHERE tbl = ? AND key = ?`, string(table), key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get %s/%s: %w", table, key, ErrNotFound)
	}
	if err != nil {
		return Document{}, unavailable("get", table, key, err)
	}
	return Document{Table: table, Key: key, Body: []byte(body)}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, table Table, key string, v any, cond Condition) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("put %s/%s: marshal: %w", table, key, err)
	}

	var (
		query string
		args  []any
	)
	switch {
	case cond.MustExist:
		query = `UPDATE items SET doc = ? WHERE tbl = ? AND key = ?`
		args = []any{string(body), string(table), key}
	case cond.MustNotExist:
		query = `INSERT INTO items (tbl, key, doc) VALUES (?, ?, ?)
			ON CONFLICT (tbl, key) DO NOTHING`
		args = []any{string(table), key, string(body)}
	case cond.VersionAttr != "":
		path := "$." + cond.VersionAttr
		query = `INSERT INTO items (tbl, key, doc) VALUES (?, ?, ?)
			ON CONFLICT (tbl, key) DO UPDATE SET doc = excluded.doc
			WHERE COALESCE(json_extract(items.doc, ?), 0) <= json_extract(excluded.doc, ?)`
		args = []any{string(table), key, string(body), path, path}
	default:
		query = `INSERT INTO items (tbl, key, doc) VALUES (?, ?, ?)
			ON CONFLICT (tbl, key) DO UPDATE SET doc = excluded.doc`
		args = []any{string(table), key, string(body)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable("put", table, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("put", table, key, err)
	}
	if n == 0 {
		return fmt.Errorf("put %s/%s: %w", table, key, ErrConditionFailed)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, table Table, key string, patch any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("update %s/%s: marshal: %w", table, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET doc = json_patch(doc, ?) WHERE tbl = ? AND key = ?`,
		string(body), string(table), key,
	)
	if err != nil {
		return unavailable("update", table, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update", table, key, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s/%s: %w", table, key, ErrConditionFailed)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, table Table, key, attr string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("append %s/%s: marshal: %w", table, key, err)
	}
	path := "$." + attr

	s.mu.Lock()
	defer s.mu.Unlock()

	// Equivalent of list_append(if_not_exists(attr, []), [v]) guarded by the
	// key existing and the attribute being a list (or absent).
	res, err := s.db.ExecContext(ctx,
		`UPDATE items
		SET doc = json_set(doc, ?, json_insert(COALESCE(json_extract(doc, ?), '[]'), '$[#]', json(?)))
		WHERE tbl = ? AND key = ? AND COALESCE(json_type(doc, ?), 'array') = 'array'`,
		path, path, string(body), string(table), key, path,
	)
	if err != nil {
		return unavailable("append", table, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("append", table, key, err)
	}
	if n > 0 {
		return nil
	}

	// Nothing changed: tell a missing key apart from a mistyped attribute.
	var kind sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT json_type(doc, ?) FROM items WHERE tbl = ? AND key = ?`, path, string(table), key,
	).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("append %s/%s: %w", table, key, ErrConditionFailed)
	}
	if err != nil {
		return unavailable("append", table, key, err)
	}
	return fmt.Errorf("append %s/%s: %s is %s: %w", table, key, attr, kind.String, ErrTypeMismatch)
}

func (s *SQLiteStore) Scan(ctx context.Context, table Table) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, doc FROM items WHERE tbl = ? ORDER BY key`, string(table),
	)
	if err != nil {
		return nil, unavailable("scan", table, "*", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, unavailable("scan", table, "*", err)
		}
		docs = append(docs, Document{Table: table, Key: key, Body: []byte(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("scan", table, "*", err)
	}
	return docs, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
