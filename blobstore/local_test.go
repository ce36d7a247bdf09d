package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	frame := []byte("zstd frame bytes for an object file")
	w, err := store.Create(ctx, "objects/a.o")
	require.NoError(t, err)
	_, err = w.Write(frame[:10])
	require.NoError(t, err)
	_, err = w.Write(frame[10:])
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(dir, "objects", "a.o"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, "objects/a.o")
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len(frame)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 5)
	require.NoError(t, err)
	require.Equal(t, "frame", string(buf[:n]))

	r, err := blob.ReadRange(ctx, 11, 5)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, "bytes", string(got))

	require.NoError(t, store.Put(ctx, "objects/b.o", []byte("b")))
	names, err := store.List(ctx, "objects/")
	require.NoError(t, err)
	require.Equal(t, []string{"objects/a.o", "objects/b.o"}, names)

	require.NoError(t, store.Delete(ctx, "objects/a.o"))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"objects/b.o"}, names)

	_, err = store.Open(ctx, "objects/a.o")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_ReadBoundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "digits", []byte("0123456789")))

	blob, err := store.Open(ctx, "digits")
	require.NoError(t, err)
	defer blob.Close()

	tests := []struct {
		name      string
		off, size int64
		want      string
	}{
		{"full", 0, 10, "0123456789"},
		{"past end", 8, 5, "89"},
		{"offset past end", 20, 5, ""},
		{"empty", 3, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := blob.ReadRange(ctx, tt.off, tt.size)
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	require.ErrorIs(t, err, io.EOF)
	require.True(t, bytes.Equal([]byte("89"), buf[:n]))
}

func TestLocalBlobStore_NestedNamesAndTemps(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "zstd/ab/cd", []byte("nested")))

	// An unfinished write is invisible.
	w, err := store.Create(ctx, "zstd/ab/ef")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	names, err := store.List(ctx, "zstd/")
	require.NoError(t, err)
	require.Equal(t, []string{"zstd/ab/cd"}, names)

	require.NoError(t, w.Close())
	names, err = store.List(ctx, "zstd/ab/")
	require.NoError(t, err)
	require.Equal(t, []string{"zstd/ab/cd", "zstd/ab/ef"}, names)

	got, err := ReadAll(ctx, store, "zstd/ab/cd")
	require.NoError(t, err)
	require.Equal(t, "nested", string(got))

	_, err = store.Open(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "missing"))
}

func TestLocalBlobStore_Mappable(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "m", []byte("mapped")))
	blob, err := store.Open(ctx, "m")
	require.NoError(t, err)

	m, ok := blob.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	require.Equal(t, "mapped", string(data))

	require.NoError(t, blob.Close())
	_, err = m.Bytes()
	require.Error(t, err)
}
