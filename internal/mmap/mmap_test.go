package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(path, []byte("frame payload"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.False(t, m.Writable())
	assert.Equal(t, 13, m.Size())

	buf := make([]byte, 7)
	n, err := m.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))

	n, err = m.ReadAt(make([]byte, 10), 10)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = m.ReadAt(buf, 20)
	assert.ErrorIs(t, err, io.EOF)
	_, err = m.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestOpen_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Zero(t, m.Size())
	assert.NoError(t, m.Advise(AccessWillNeed))
	assert.NoError(t, m.Close())
}

func TestRegion_Records(t *testing.T) {
	m, err := MapAnon(4096 + 8*64)
	require.NoError(t, err)
	defer m.Close()

	headers, err := m.Region(0, 4096)
	require.NoError(t, err)
	blocks, err := m.Region(4096, 8*64)
	require.NoError(t, err)

	assert.Equal(t, 128, headers.Records(32))
	assert.Equal(t, 8, blocks.Records(64))
	assert.Zero(t, blocks.Records(0))
	assert.Equal(t, 4096, blocks.Offset())

	rec := blocks.Record(2, 64)
	assert.Len(t, rec, 64)
	assert.Equal(t, 64, cap(rec))
	copy(rec, "block two")
	assert.Equal(t, "block two", string(m.Bytes()[4096+128:4096+137]))

	// Appending to a record reallocates instead of overwriting its neighbor.
	_ = append(rec, 'x')
	assert.Zero(t, blocks.Record(3, 64)[0])
}
