// Package store provides the key-value persistence behind the client's
// credential store. Every backend keeps plain string values under plain
// string keys.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oremus-labs/ol-power-client/internal/redisx"
)

// KV is the minimal get/set/remove contract the credential store needs.
// Removing a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported credential store driver")

// Config selects and configures a backend.
type Config struct {
	Driver    string
	DSN       string
	KeyPrefix string
	Redis     redisx.Config
}

// Open initializes the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (KV, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverMemory
	}
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		kv, err := OpenFile(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case DriverSQLite:
		kv, err := OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case DriverPostgres:
		kv, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case DriverRedis:
		redisCfg := cfg.Redis
		if redisCfg.Addr == "" {
			redisCfg.Addr = cfg.DSN
		}
		client, err := redisx.NewClient(redisCfg)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis credential store requires an address")
		}
		return NewRedis(client, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}
}
