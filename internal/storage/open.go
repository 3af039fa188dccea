package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Options selects and locates the backing KV.
type Options struct {
	// Driver is sqlite, postgres or memory.
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN and Migrations configure the postgres driver.
	DSN        string
	Migrations string
}

// Open returns the KV named by opts.Driver. The postgres driver applies
// pending migrations before connecting.
func Open(ctx context.Context, opts Options, log *slog.Logger) (KV, error) {
	switch opts.Driver {
	case "memory":
		log.Warn("using in-memory store, workouts will not survive a restart")
		return NewMemory(), nil
	case "sqlite", "":
		kv, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store opened", "path", opts.Path)
		return kv, nil
	case "postgres":
		if err := RunMigrations(opts.DSN, opts.Migrations); err != nil {
			return nil, fmt.Errorf("migrating: %w", err)
		}
		log.Info("migrations applied")
		db, err := New(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		log.Info("database connected")
		return db, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}
