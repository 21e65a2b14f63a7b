// Package storage is the client's persistence adapter: a durable string-keyed
// store that keeps the session token, refresh token and serialized identity
// across restarts.
//
// Two implementations are provided. SQLiteStorage writes to a local SQLite
// file whose schema is managed by embedded goose migrations; MemoryStorage
// keeps everything in a map and is meant for tests and throwaway sessions.
//
// Get returns (nil, nil) for missing keys. SetMany and Delete are atomic:
// either every key is written/removed or none is.
package storage

import "context"

type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
	Close() error
}
