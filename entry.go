package blockcache

import (
	"sync/atomic"

	"github.com/hupe1980/blockcache/internal/hash"
)

const writeLocked = -1

// entry is the in-memory state of one cached value.
//
// readers is the number of open handles, or writeLocked once a deleter owns
// the entry. A write-locked entry never becomes readable again; whoever moves
// readers to writeLocked frees the blocks.
type entry struct {
	key        hash.Key
	blocks     []uint32
	size       int
	lastAccess atomic.Uint64
	readers    atomic.Int32
	// doomed is set when a reader found the value corrupt while other
	// readers still hold it; the last of them frees the blocks.
	doomed atomic.Bool
}

func (e *entry) live() bool {
	return e.readers.Load() != writeLocked
}

// tryAcquireRead takes a shared lock unless a writer holds the entry.
func (e *entry) tryAcquireRead() bool {
	for {
		n := e.readers.Load()
		if n == writeLocked {
			return false
		}
		if e.readers.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// tryAcquireWrite takes the exclusive lock if nobody holds the entry.
func (e *entry) tryAcquireWrite() bool {
	return e.readers.CompareAndSwap(0, writeLocked)
}

// lengthOf returns the payload length of the i-th block of the chain.
func (e *entry) lengthOf(i, blockSize int) int {
	if i < len(e.blocks)-1 {
		return blockSize
	}
	return e.size - (len(e.blocks)-1)*blockSize
}
