package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/andes-audit/concilia/internal/session"
)

// SQLiteStore implements SessionStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a sqlite database at the given DSN. With the ":memory:"
// DSN the pool is pinned to one connection so every query sees the same
// in-memory database.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	entity     TEXT NOT NULL,
	state      TEXT NOT NULL,
	analyzed   INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_entity ON sessions(entity);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ErrNotFound is returned when no session matches.
var ErrNotFound = eris.New("session not found")

func (s *SQLiteStore) Save(ctx context.Context, state session.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal session")
	}

	analyzed := 0
	if state.Analysis != nil {
		analyzed = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, entity, state, analyzed, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET entity = excluded.entity, state = excluded.state,
		   analyzed = excluded.analyzed, updated_at = excluded.updated_at`,
		state.ID, state.Entity, string(stateJSON), analyzed, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save session %s", state.ID)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*session.State, error) {
	return s.scanState(s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = ?`, id,
	))
}

func (s *SQLiteStore) ByEntity(ctx context.Context, entity string) (*session.State, error) {
	return s.scanState(s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE entity = ? ORDER BY updated_at DESC LIMIT 1`, entity,
	))
}

func (s *SQLiteStore) List(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity, analyzed FROM sessions ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var analyzed int
		if err := rows.Scan(&info.ID, &info.Entity, &analyzed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session info")
		}
		info.Analyzed = analyzed != 0
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete session %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) scanState(row *sql.Row) (*session.State, error) {
	var stateJSON string
	err := row.Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan session")
	}

	var state session.State
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal session")
	}
	return &state, nil
}
