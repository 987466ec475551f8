package cli

import (
	"context"
	"fmt"

	"github.com/meridian-hpc/jobmeta/internal/config"
	"github.com/meridian-hpc/jobmeta/internal/kvs"
)

// pinger matches store backends with a liveness check.
type pinger interface {
	Ping(ctx context.Context) error
}

// openStore opens the configured attribute store backend. The second
// return is non-nil when the backend supports liveness checks.
func openStore(cfg *config.Config) (kvs.Store, pinger, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return kvs.NewMemory(), nil, nil
	case config.BackendSQLite:
		st, err := kvs.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.BackendRedis:
		st, err := kvs.OpenRedis(cfg.RedisOptions())
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
