package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/blockcache"
	"github.com/hupe1980/blockcache/blobstore"
	"github.com/hupe1980/blockcache/resource"
)

var (
	// ErrNotFound is returned when an artifact is in neither the cache nor the origin.
	ErrNotFound = blobstore.ErrNotFound
	// ErrTooLarge is returned when a framed artifact does not fit in the cache.
	ErrTooLarge = errors.New("artifact: too large to cache")
)

// Store serves artifacts from a block cache, reading through to an origin
// blob store on a miss. Origin blobs are named by the hex content hash.
type Store struct {
	cache  *blockcache.Cache
	origin blobstore.BlobStore
	rc     *resource.Controller
	logger *blockcache.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithResourceController paces origin reads through rc's IO budget.
func WithResourceController(rc *resource.Controller) StoreOption {
	return func(s *Store) { s.rc = rc }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *blockcache.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store. origin may be nil for a cache-only store.
func NewStore(cache *blockcache.Cache, origin blobstore.BlobStore, optFns ...StoreOption) *Store {
	s := &Store{
		cache:  cache,
		origin: origin,
		logger: blockcache.NoopLogger(),
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// Put stores content at the origin (if any) and caches it in encoding e.
// It returns the content hash.
func (s *Store) Put(ctx context.Context, content []byte, e Encoding) (Hash, error) {
	h := SumHash(content)

	if s.origin != nil {
		if err := s.putOrigin(ctx, h.String(), content); err != nil {
			return h, err
		}
	}

	if err := s.fill(Key{Encoding: e, Hash: h}, content); err != nil {
		// The origin still has the content.
		if s.origin != nil && errors.Is(err, ErrTooLarge) {
			return h, nil
		}
		return h, err
	}
	return h, nil
}

func (s *Store) putOrigin(ctx context.Context, name string, content []byte) error {
	if cp, ok := s.origin.(blobstore.ConditionalPutter); ok {
		err := cp.PutIfNotExists(ctx, name, content)
		if errors.Is(err, blobstore.ErrExists) {
			return nil
		}
		return err
	}
	return s.origin.Put(ctx, name, content)
}

// Open returns a handle to the framed artifact, loading it from the origin on
// a miss. The caller must Release the handle.
func (s *Store) Open(ctx context.Context, k Key) (*blockcache.Handle, error) {
	if h, ok := s.cache.Get(k.String()); ok {
		err := checkFrame(h)
		if err == nil {
			return h, nil
		}
		h.Release()
		s.cache.Delete(k.String())
		s.logger.LogCorruption(ctx, k.String(), err)
	}

	if s.origin == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}

	content, err := s.load(ctx, k.Hash)
	if err != nil {
		return nil, err
	}
	if err := s.fill(k, content); err != nil {
		return nil, err
	}

	h, ok := s.cache.Get(k.String())
	if !ok {
		// Evicted or deleted before we got to it.
		return nil, fmt.Errorf("artifact: %s evicted while loading", k)
	}
	return h, nil
}

// Content returns the decoded, verified content of an artifact.
func (s *Store) Content(ctx context.Context, k Key) ([]byte, error) {
	h, err := s.Open(ctx, k)
	if err != nil {
		return nil, err
	}
	frame := h.Bytes()
	h.Release()

	content, fh, err := Unframe(k.Encoding, frame)
	if err != nil {
		s.cache.Delete(k.String())
		s.logger.LogCorruption(ctx, k.String(), err)
		return nil, err
	}
	if fh.Hash != k.Hash {
		return nil, fmt.Errorf("%w: key %s holds %s", ErrHashMismatch, k, fh.Hash)
	}
	return content, nil
}

// Contains reports whether k is cached.
func (s *Store) Contains(k Key) bool {
	return s.cache.Contains(k.String())
}

// Evict removes k from the cache. The origin is untouched.
func (s *Store) Evict(k Key) bool {
	return s.cache.Delete(k.String())
}

// load reads and verifies content from the origin.
func (s *Store) load(ctx context.Context, h Hash) ([]byte, error) {
	blob, err := s.origin.Open(ctx, h.String())
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, h)
		}
		return nil, err
	}
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.rc != nil {
		r = resource.NewRateLimitedReader(ctx, rc, s.rc)
	}

	content := make([]byte, blob.Size())
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", h, err)
	}
	if SumHash(content) != h {
		return nil, fmt.Errorf("%w: origin object %s", ErrHashMismatch, h)
	}
	return content, nil
}

func (s *Store) fill(k Key, content []byte) error {
	frame, err := Frame(k.Encoding, content)
	if err != nil {
		return err
	}
	if len(frame) > s.cache.MaxValueSize() || !s.cache.Add(k.String(), frame) {
		return fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, k, len(frame))
	}
	return nil
}

// checkFrame validates the frame header without decoding the payload.
func checkFrame(h *blockcache.Handle) error {
	var hdr [FrameHeaderSize]byte
	n, err := h.ReadAt(hdr[:], 0)
	if err != nil && n < FrameHeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrBadFrame, h.Len())
	}
	_, err = DecodeFrameHeader(hdr[:], h.Len())
	return err
}
