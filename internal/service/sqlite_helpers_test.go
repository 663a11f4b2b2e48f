package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"rafpad/internal/db"
	"rafpad/internal/repository"
)

// failingContent hace que el trigger aborte el INSERT en tasks.
const failingContent = "explode"

func newSQLiteTaskStore(t *testing.T) (*repository.SQLiteTaskStore, *sql.DB) {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "rafpad.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	const trigger = `
		CREATE TRIGGER fail_task_insert BEFORE INSERT ON tasks
		WHEN NEW.content = 'explode'
		BEGIN
			SELECT RAISE(ABORT, 'simulated failure');
		END;
	`
	if _, err := conn.Exec(trigger); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	return repository.NewSQLiteTaskStore(conn), conn
}
