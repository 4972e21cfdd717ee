package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileKV(filepath.Join(dir, "nested", "state.json"))
	require.NoError(t, err)

	lite, err := NewSQLiteKV(filepath.Join(dir, "state.db"))
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	all := map[string]KV{
		"memory": NewMemoryKV(),
		"file":   file,
		"sqlite": lite,
		"redis":  NewRedisKVFromClient(rdb, "test:"),
	}
	t.Cleanup(func() {
		for _, kv := range all {
			kv.Close()
		}
	})
	return all
}

func TestKV_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set(ctx, "StockDog.nextId", "3"))
			require.NoError(t, kv.Set(ctx, "StockDog.nextId", "4"))
			v, ok, err := kv.Get(ctx, "StockDog.nextId")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "4", v)
		})
	}
}

func TestFileKV_Reload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "a", `[{"id":0}]`))

	again, err := NewFileKV(path)
	require.NoError(t, err)
	v, ok, err := again.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":0}]`, v)
}

func TestFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewFileKV(path)
	assert.Error(t, err)
}

func TestRedisKV_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := NewRedisKVFromClient(rdb, "stockdog:")
	defer kv.Close()

	require.NoError(t, kv.Set(context.Background(), "StockDog.nextId", "7"))
	got, err := mr.Get("stockdog:StockDog.nextId")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "etcd"})
	assert.Error(t, err)

	kv, err := Open(context.Background(), Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)
}
