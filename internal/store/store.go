// Package store provides key/value backends for locally persisted state.
//
// Every backend writes a batch of keys atomically: after SetMany returns,
// readers observe either all of the new values or none of them.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("store closed")

// Backend is the persistence capability used by the record store.
type Backend interface {
	// Get returns the raw value for key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// SetMany writes all entries or none.
	SetMany(ctx context.Context, entries map[string][]byte) error

	// Delete removes the named keys. Absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	Close() error
}

// Set writes a single key.
func Set(ctx context.Context, b Backend, key string, value []byte) error {
	return b.SetMany(ctx, map[string][]byte{key: value})
}

// Kind names a backend implementation.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Kind        Kind
	Path        string // KindFile
	DatabaseURL string // KindPostgres
	Table       string // KindPostgres
	RedisAddr   string // KindRedis
	RedisDB     int    // KindRedis
	Prefix      string // KindRedis
}

// Open returns the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFile, "":
		return NewFile(opts.Path)
	case KindPostgres:
		return NewPostgres(ctx, opts.DatabaseURL, opts.Table)
	case KindRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.RedisDB, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", opts.Kind)
	}
}
