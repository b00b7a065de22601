package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids lock contention.
	conn.SetMaxOpenConns(1)
	return conn, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_permissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	branch TEXT NOT NULL,
	can_view INTEGER DEFAULT 1,
	can_trigger INTEGER DEFAULT 0,
	can_disable INTEGER DEFAULT 0,
	FOREIGN KEY (user_id) REFERENCES users(id),
	UNIQUE(user_id, branch)
);

CREATE TABLE IF NOT EXISTS branch_status (
	branch TEXT PRIMARY KEY,
	is_enabled INTEGER DEFAULT 1,
	disabled_at TIMESTAMP,
	disabled_by TEXT,
	last_check TIMESTAMP
);
`

func ApplySchema(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
