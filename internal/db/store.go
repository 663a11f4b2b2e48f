package db

import (
	"context"
	"fmt"

	"rafpad/internal/config"
	"rafpad/internal/repository"
)

// OpenTaskStore abre el TaskStore que corresponde al DSN configurado y aplica el esquema.
// La función devuelta libera la conexión subyacente.
func OpenTaskStore(ctx context.Context, cfg *config.Config) (repository.TaskStore, func(), error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := Ping(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if err := MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPgTaskStore(pool), pool.Close, nil
	default:
		conn, err := OpenSQLite(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteTaskStore(conn), func() { conn.Close() }, nil
	}
}
