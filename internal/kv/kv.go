// Package kv is the persisted key-value store the client keeps its session
// token and state snapshots in. Values are opaque strings.
package kv

import (
	"context"
	"fmt"
)

// Store is a string key-value store. Get reports ok=false for a missing key;
// Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options selects and configures a Store.
type Options struct {
	Driver        string
	Dir           string // file driver
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string // redis key prefix
}

// Open builds the store named by opts.Driver. An empty driver means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverFile:
		return NewFileStore(opts.Dir)
	case DriverRedis:
		return DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.Prefix)
	case DriverMemory:
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", opts.Driver)
	}
}
