package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS brd_sessions (
	session_id TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const upsertSession = `
INSERT INTO brd_sessions (session_id, snapshot, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`

// SQL stores snapshots in a single table. The same statements run on SQLite
// (modernc driver) and Postgres (pgx stdlib driver).
type SQL struct {
	db *sqlx.DB
}

func NewSQLite(dbPath string) (*SQL, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newSQL(db)
}

func NewPostgres(ctx context.Context, databaseURL string) (*SQL, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return newSQL(db)
}

func newSQL(db *sqlx.DB) (*SQL, error) {
	if _, err := db.Exec(sessionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) Save(ctx context.Context, sessionID string, snapshot []byte) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(upsertSession), sessionID, string(snapshot), now); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQL) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var snapshot string
	err := s.db.GetContext(ctx, &snapshot, s.db.Rebind(`SELECT snapshot FROM brd_sessions WHERE session_id = ?`), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return []byte(snapshot), nil
}
