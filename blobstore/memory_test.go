package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	src := []byte("payload")
	require.NoError(t, store.Put(ctx, "b/1", src))
	src[0] = 'X'

	w, err := store.Create(ctx, "a/1")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/1"}, names, "created blob is invisible until Close")

	require.NoError(t, w.Close())
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "b/1"}, names)

	got, err := ReadAll(ctx, store, "b/1")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	blob, err := store.Open(ctx, "a/1")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 6)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	assert.Equal(t, "ed", string(buf[:n]))

	_, err = blob.ReadAt(ctx, buf, -1)
	assert.Error(t, err)

	r, err := blob.ReadRange(ctx, 2, 100)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "reamed", string(content))

	require.NoError(t, store.Delete(ctx, "a/1"))
	_, err = store.Open(ctx, "a/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_PutIfNotExists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.PutIfNotExists(ctx, "k", []byte("first")))
	err := store.PutIfNotExists(ctx, "k", []byte("second"))
	assert.ErrorIs(t, err, ErrExists)

	got, err := ReadAll(ctx, store, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	assert.Equal(t, int64(1), store.Opens())

	w, err := store.Create(ctx, "w")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("late"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Open(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
