package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) Storage {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openMemory(t *testing.T) Storage {
	t.Helper()
	return NewMemoryStorage()
}

var implementations = []struct {
	name string
	open func(t *testing.T) Storage
}{
	{name: "sqlite", open: openSQLite},
	{name: "memory", open: openMemory},
}

func TestStorage_Contract(t *testing.T) {
	for _, impl := range implementations {
		t.Run(impl.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("missing key returns nil nil", func(t *testing.T) {
				s := impl.open(t)
				v, err := s.Get(ctx, "token")
				require.NoError(t, err)
				require.Nil(t, v)
			})

			t.Run("set then get", func(t *testing.T) {
				s := impl.open(t)
				require.NoError(t, s.Set(ctx, "token", []byte("abc")))
				v, err := s.Get(ctx, "token")
				require.NoError(t, err)
				require.Equal(t, []byte("abc"), v)
			})

			t.Run("set overwrites", func(t *testing.T) {
				s := impl.open(t)
				require.NoError(t, s.Set(ctx, "user", []byte("old")))
				require.NoError(t, s.Set(ctx, "user", []byte("new")))
				v, err := s.Get(ctx, "user")
				require.NoError(t, err)
				require.Equal(t, []byte("new"), v)
			})

			t.Run("set many and list", func(t *testing.T) {
				s := impl.open(t)
				require.NoError(t, s.SetMany(ctx, map[string][]byte{
					"token":        []byte("a"),
					"refreshToken": []byte("r"),
					"user":         []byte(`{"id":"1"}`),
				}))
				m, err := s.List(ctx)
				require.NoError(t, err)
				assert.Len(t, m, 3)
				assert.Equal(t, []byte("r"), m["refreshToken"])
			})

			t.Run("delete is idempotent and selective", func(t *testing.T) {
				s := impl.open(t)
				require.NoError(t, s.SetMany(ctx, map[string][]byte{
					"token": []byte("a"),
					"user":  []byte("u"),
					"theme": []byte("dark"),
				}))
				require.NoError(t, s.Delete(ctx, "token", "user", "refreshToken"))
				require.NoError(t, s.Delete(ctx, "token", "user", "refreshToken"))

				m, err := s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, map[string][]byte{"theme": []byte("dark")}, m)
			})

			t.Run("clear removes everything", func(t *testing.T) {
				s := impl.open(t)
				require.NoError(t, s.Set(ctx, "a", []byte{1}))
				require.NoError(t, s.Set(ctx, "b", []byte{2}))
				require.NoError(t, s.Clear(ctx))
				m, err := s.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, m)
			})
		})
	}
}

func TestMemoryStorage_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	in := []byte("token")
	require.NoError(t, s.Set(ctx, "token", in))
	in[0] = 'X'

	out, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, []byte("token"), out)

	out[0] = 'Y'
	again, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, []byte("token"), again)
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "token", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), v)
}

func TestSQLiteStorage_ErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db))
	s := NewSQLiteStorage(db)
	require.NoError(t, db.Close())

	_, err = s.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get kv_store[k]")

	err = s.Set(ctx, "k", []byte("v"))
	require.ErrorContains(t, err, "failed to set kv_store[k]")

	_, err = s.List(ctx)
	require.ErrorContains(t, err, "failed to list kv_store")

	err = s.Clear(ctx)
	require.ErrorContains(t, err, "failed to clear kv_store")

	require.Error(t, s.Delete(ctx, "k"))
	require.Error(t, s.SetMany(ctx, map[string][]byte{"k": []byte("v")}))
}
