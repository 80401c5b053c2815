package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loykin/folio/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// Path is a filesystem path to the database file; ":memory:" is in-memory.
type DB struct {
	db    *sql.DB
	table string
}

// New opens a SQLite database and creates the key-value table.
func New(cfg store.Config) (*DB, error) {
	p := strings.TrimSpace(cfg.Path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	p = strings.TrimPrefix(p, "sqlite://")
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite works best with a single writer connection; this also keeps
	// ":memory:" databases shared across calls.
	d.SetMaxOpenConns(1)
	if cfg.ConnMaxAge > 0 {
		d.SetConnMaxLifetime(cfg.ConnMaxAge)
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")

	s := &DB{db: d, table: cfg.TableName()}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s(
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`, s.table))
	return err
}

func (s *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key=?;`, s.table), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *DB) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at;`, s.table),
		key, value, time.Now().UTC())
	return err
}

func (s *DB) Close() error { return s.db.Close() }
