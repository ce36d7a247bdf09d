package blockcache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when cache geometry or options are invalid.
	ErrInvalidConfig = errors.New("blockcache: invalid configuration")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("blockcache: cache is closed")

	// ErrCorrupted marks a value whose blocks failed verification.
	ErrCorrupted = errors.New("blockcache: corrupted block")
)

// ErrNotPowerOfTwo indicates a geometry parameter that must be a power of two.
//
// errors.Is(err, ErrInvalidConfig) reports true.
type ErrNotPowerOfTwo struct {
	Name  string
	Value int
}

func (e *ErrNotPowerOfTwo) Error() string {
	return fmt.Sprintf("blockcache: %s must be a power of two, got %d", e.Name, e.Value)
}

func (e *ErrNotPowerOfTwo) Unwrap() error { return ErrInvalidConfig }

// ErrOutOfRange indicates a parameter outside its permitted range.
//
// errors.Is(err, ErrInvalidConfig) reports true.
type ErrOutOfRange struct {
	Name  string
	Value int64
	Min   int64
	Max   int64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("blockcache: %s must be in [%d, %d], got %d", e.Name, e.Min, e.Max, e.Value)
}

func (e *ErrOutOfRange) Unwrap() error { return ErrInvalidConfig }

// CorruptionError describes the first block of a value that failed verification.
//
// errors.Is(err, ErrCorrupted) reports true.
type CorruptionError struct {
	Block  uint32 // global block index
	Index  int    // position in the chain
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("blockcache: corrupted block %d (chain index %d): %s", e.Block, e.Index, e.Reason)
}

func (e *CorruptionError) Unwrap() error { return ErrCorrupted }
