package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"rafpad/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Configuración razonable para ambientes iniciales.
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id         BIGSERIAL PRIMARY KEY,
	tag        VARCHAR(50) NOT NULL UNIQUE,
	name       VARCHAR(100),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS tasks (
	id           BIGSERIAL PRIMARY KEY,
	content      TEXT NOT NULL,
	category     VARCHAR(50),
	priority     VARCHAR(20),
	deadline     TIMESTAMPTZ,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	project_id   BIGINT NOT NULL REFERENCES projects(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS subtasks (
	id           BIGSERIAL PRIMARY KEY,
	content      VARCHAR(200) NOT NULL,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	task_id      BIGINT NOT NULL REFERENCES tasks(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS notes (
	id         BIGSERIAL PRIMARY KEY,
	content    TEXT NOT NULL,
	category   VARCHAR(50),
	project_id BIGINT NOT NULL REFERENCES projects(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS subtasks_task_id_idx ON subtasks (task_id);
`

// MigratePostgres crea las tablas si no existen.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	tag        VARCHAR(50) NOT NULL UNIQUE,
	name       VARCHAR(100),
	created_at DATETIME NOT NULL,
	deleted_at DATETIME
);
CREATE TABLE IF NOT EXISTS tasks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	content      TEXT NOT NULL,
	category     VARCHAR(50),
	priority     VARCHAR(20),
	deadline     DATETIME,
	is_completed BOOLEAN NOT NULL DEFAULT 0,
	project_id   INTEGER NOT NULL REFERENCES projects(id),
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	deleted_at   DATETIME
);
CREATE TABLE IF NOT EXISTS subtasks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	content      VARCHAR(200) NOT NULL,
	is_completed BOOLEAN NOT NULL DEFAULT 0,
	task_id      INTEGER NOT NULL REFERENCES tasks(id),
	created_at   DATETIME NOT NULL,
	deleted_at   DATETIME
);
CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	content    TEXT NOT NULL,
	category   VARCHAR(50),
	project_id INTEGER NOT NULL REFERENCES projects(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	deleted_at DATETIME
);
CREATE INDEX IF NOT EXISTS subtasks_task_id_idx ON subtasks (task_id);
`

// OpenSQLite abre (o crea) la base SQLite en path y aplica el esquema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializa escrituras; una sola conexión evita SQLITE_BUSY entre transacciones.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return conn, nil
}
