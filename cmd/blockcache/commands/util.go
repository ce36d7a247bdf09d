package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/blockcache"
	"github.com/hupe1980/blockcache/artifact"
	"github.com/hupe1980/blockcache/blobstore"
	"github.com/hupe1980/blockcache/blobstore/minio"
	"github.com/hupe1980/blockcache/blobstore/s3"
	"github.com/hupe1980/blockcache/internal/config"
	"github.com/hupe1980/blockcache/resource"
)

// newLogger builds the process logger from the logging section.
func newLogger(c *config.Config) (*blockcache.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(c.Logging.Format, "json") {
		return blockcache.NewJSONLogger(level), nil
	}
	return blockcache.NewTextLogger(level), nil
}

// newController builds the resource controller shared by scrubs and origin reads.
func newController(c *config.Config) (*resource.Controller, error) {
	limit, err := c.IOLimitBytes()
	if err != nil {
		return nil, err
	}
	return resource.NewController(resource.Config{IOLimitBytesPerSec: limit}), nil
}

// openCache opens the on-disk cache described by c.
func openCache(c *config.Config, optFns ...blockcache.Option) (*blockcache.Cache, error) {
	blockSize, err := c.BlockSizeBytes()
	if err != nil {
		return nil, err
	}
	opts := []blockcache.Option{
		blockcache.WithBlocksPerPartition(c.BlocksPerPartition),
		blockcache.WithBlockSize(blockSize),
		blockcache.WithEvictionSamples(c.EvictionSamples),
		blockcache.WithEvictionEntries(c.EvictionEntries),
	}
	return blockcache.NewOnDisk(c.Dir, c.Partitions, append(opts, optFns...)...)
}

// openOrigin returns the configured origin store, or nil when none is set.
func openOrigin(ctx context.Context, c *config.Config) (blobstore.BlobStore, error) {
	o := c.Origin
	switch o.Type {
	case "":
		return nil, nil
	case "local":
		if err := os.MkdirAll(o.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create origin %s: %w", o.Path, err)
		}
		return blobstore.NewLocalStore(o.Path), nil
	case "s3":
		optFns := []s3.Option{s3.WithPrefix(o.Prefix)}
		if o.Region != "" {
			optFns = append(optFns, s3.WithRegion(o.Region))
		}
		if o.Endpoint != "" {
			optFns = append(optFns, s3.WithEndpoint(o.Endpoint))
		}
		return s3.New(ctx, o.Bucket, optFns...)
	case "minio":
		return minio.Dial(minio.Config{
			Endpoint:  o.Endpoint,
			AccessKey: o.AccessKey,
			SecretKey: o.SecretKey,
			Region:    o.Region,
			Secure:    o.Secure,
			Bucket:    o.Bucket,
			Prefix:    o.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown origin type %q", o.Type)
	}
}

// openArtifacts wires an artifact store over cache and the configured origin.
func openArtifacts(ctx context.Context, c *config.Config, cache *blockcache.Cache, rc *resource.Controller, logger *blockcache.Logger) (*artifact.Store, error) {
	origin, err := openOrigin(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("open origin: %w", err)
	}
	return artifact.NewStore(cache, origin,
		artifact.WithResourceController(rc),
		artifact.WithLogger(logger),
	), nil
}

// withCache opens the cache, runs fn and closes the cache.
func withCache(fn func(cache *blockcache.Cache, logger *blockcache.Logger) error) error {
	return withCacheOptions(nil, fn)
}

func withCacheOptions(optFns []blockcache.Option, fn func(cache *blockcache.Cache, logger *blockcache.Logger) error) (err error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	cache, err := openCache(cfg, append(optFns, blockcache.WithLogger(logger))...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(cache, logger)
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

// openOutput opens the named file, or returns stdout for "" and "-".
func openOutput(name string, stdout io.Writer) (io.Writer, func() error, error) {
	if name == "" || name == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
