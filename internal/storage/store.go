// Package storage provides the key-value blob store that progress state is
// persisted to. Every backend stores opaque bytes under a string key and
// reports a missing key as ErrNotFound.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a key-value blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	DSN         string
	RedisAddr   string
	RedisPrefix string
}

// Open builds the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(opts.Path)
	case BackendSQLite:
		return OpenSQLite(opts.Path)
	case BackendPostgres:
		return OpenPostgres(opts.DSN)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
