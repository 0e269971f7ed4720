package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ainotes/internal/config"
)

// Open selects the store implementation named by store.driver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath())
	case "postgres":
		return OpenPostgres(ctx, PostgresConfig{
			DSN:              cfg.Store.DSN,
			MaxConns:         cfg.Store.MaxConns,
			MinConns:         cfg.Store.MinConns,
			MaxConnLifetime:  seconds(cfg.Store.ConnMaxLifetimeSeconds),
			MaxConnIdleTime:  seconds(cfg.Store.ConnMaxIdleSeconds),
			DialTimeout:      seconds(cfg.Store.DialTimeoutSeconds),
			StatementTimeout: seconds(cfg.Store.StatementTimeoutSeconds),
		}, logger)
	default:
		return nil, fmt.Errorf("store.driver: unsupported value %q", cfg.Store.Driver)
	}
}

func seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}
