package blockcache

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/blockcache/resource"
)

const (
	// DefaultBlocksPerPartition is the number of blocks in each partition.
	DefaultBlocksPerPartition = 32768
	// DefaultBlockSize is the payload size of each block.
	DefaultBlockSize = 32768
	// DefaultEvictionSamples is the number of blocks sampled per eviction round.
	DefaultEvictionSamples = 10
	// DefaultEvictionEntries is the maximum number of entries removed per eviction round.
	DefaultEvictionEntries = 4
)

type options struct {
	blocksPerPartition int
	blockSize          int
	evictionSamples    int
	evictionEntries    int
	seed               uint64
	seeded             bool
	recovery           bool
	openConcurrency    int
	logger             *Logger
	metricsCollector   MetricsCollector
	resourceController *resource.Controller
}

func defaultOptions() options {
	return options{
		blocksPerPartition: DefaultBlocksPerPartition,
		blockSize:          DefaultBlockSize,
		evictionSamples:    DefaultEvictionSamples,
		evictionEntries:    DefaultEvictionEntries,
		recovery:           true,
		openConcurrency:    runtime.GOMAXPROCS(0),
		logger:             NoopLogger(),
		metricsCollector:   NoopMetricsCollector{},
	}
}

// Option configures a Cache at construction time.
type Option func(*options)

// WithBlocksPerPartition sets how many blocks each partition holds.
// Must be a power of two. Defaults to 32768.
func WithBlocksPerPartition(n int) Option {
	return func(o *options) {
		o.blocksPerPartition = n
	}
}

// WithBlockSize sets the payload size of one block in bytes.
// Must be a power of two no larger than 64 KiB. Defaults to 32 KiB.
//
// Values are stored as chains of at most 255 blocks, so the block size also
// bounds the largest cacheable value (255 * blockSize).
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

// WithEvictionSamples sets how many random blocks are inspected per eviction round.
//
// Larger samples approximate LRU more closely at the cost of more header
// reads while the cache is full. Defaults to 10.
func WithEvictionSamples(n int) Option {
	return func(o *options) {
		o.evictionSamples = n
	}
}

// WithEvictionEntries sets the maximum number of entries removed per eviction round.
// Defaults to 4.
func WithEvictionEntries(n int) Option {
	return func(o *options) {
		o.evictionEntries = n
	}
}

// WithSeed makes eviction sampling deterministic. Intended for tests.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithRecovery controls whether NewOnDisk rebuilds the index from existing
// partition files. When disabled, existing contents are discarded.
// Defaults to true.
func WithRecovery(enabled bool) Option {
	return func(o *options) {
		o.recovery = enabled
	}
}

// WithOpenConcurrency limits how many partitions are opened and scanned in parallel.
// Defaults to GOMAXPROCS.
func WithOpenConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.openConcurrency = n
		}
	}
}

// WithLogger configures structured logging.
//
// If nil is passed, logging is disabled.
//
// Example:
//
//	cache, err := blockcache.NewInMemory(4,
//	    blockcache.WithLogger(blockcache.NewJSONLogger(slog.LevelWarn)),
//	)
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel is a shortcut for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures operational metrics collection.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController shares memory, background and IO limits with other caches.
//
// In-memory partitions reserve their full size from the controller's memory
// limit. Scrub runs in a background slot and paces verification through the
// IO limiter.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resourceController = rc
	}
}

func (o *options) validate(numPartitions int) error {
	if err := checkPowerOfTwo("number of partitions", numPartitions); err != nil {
		return err
	}
	if err := checkPowerOfTwo("blocks per partition", o.blocksPerPartition); err != nil {
		return err
	}
	if err := checkPowerOfTwo("block size", o.blockSize); err != nil {
		return err
	}
	if o.blockSize > MaxBlockSize {
		return &ErrOutOfRange{Name: "block size", Value: int64(o.blockSize), Min: 1, Max: MaxBlockSize}
	}
	total := int64(numPartitions) * int64(o.blocksPerPartition)
	if total > maxTotalBlocks {
		return &ErrOutOfRange{Name: "total blocks", Value: total, Min: 1, Max: maxTotalBlocks}
	}
	if o.evictionSamples < 1 {
		return &ErrOutOfRange{Name: "eviction samples", Value: int64(o.evictionSamples), Min: 1, Max: maxTotalBlocks}
	}
	if o.evictionEntries < 1 || o.evictionEntries > o.evictionSamples {
		return &ErrOutOfRange{Name: "eviction entries", Value: int64(o.evictionEntries), Min: 1, Max: int64(o.evictionSamples)}
	}
	return nil
}

func checkPowerOfTwo(name string, v int) error {
	if v <= 0 || v&(v-1) != 0 {
		return &ErrNotPowerOfTwo{Name: name, Value: v}
	}
	return nil
}
