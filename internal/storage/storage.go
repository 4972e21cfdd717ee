package storage

import (
	"context"
	"fmt"
)

// KV is the string-keyed durable store behind the portfolio.
type KV interface {
	// Get returns the value for key. ok is false when the key was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Options selects and configures a KV backend.
type Options struct {
	Driver   string // "file", "sqlite", "redis" or "memory"
	Path     string
	RedisURL string
	Prefix   string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Driver {
	case "", "file":
		return NewFileKV(opts.Path)
	case "sqlite":
		return NewSQLiteKV(opts.Path)
	case "redis":
		return NewRedisKV(ctx, opts.RedisURL, opts.Prefix)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
