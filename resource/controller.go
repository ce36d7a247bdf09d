package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the memory limit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes caps the memory reserved for in-memory partitions.
	// If 0, reservations are only tracked.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers is the number of background jobs, such as scrubs,
	// that may run at once. If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec paces scrub reads and origin fills. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Usage is a point-in-time view of a Controller.
type Usage struct {
	MemoryReserved  int64 // bytes reserved by in-memory partitions
	MemoryLimit     int64 // 0 when unlimited
	BackgroundBusy  int64 // background slots in use
	BackgroundSlots int64
	IOBytes         int64 // bytes charged against the IO budget since creation
}

// Controller arbitrates memory, background slots and IO bandwidth between
// the caches and stores that share it. A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	bgSem  *semaphore.Weighted
	bgBusy atomic.Int64

	io      *rate.Limiter // nil if unlimited
	ioBytes atomic.Int64
}

// NewController creates a Controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireIO waits until the IO budget allows n bytes. Requests larger than
// one second of budget are paid in installments.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil {
		return nil
	}
	if c.io == nil {
		c.ioBytes.Add(int64(n))
		return nil
	}
	burst := c.io.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		c.ioBytes.Add(int64(step))
		n -= step
	}
	return nil
}

// AcquireMemory reserves n bytes without blocking. It fails with
// ErrMemoryLimitExceeded when the reservation does not fit.
func (c *Controller) AcquireMemory(n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(n) {
		return ErrMemoryLimitExceeded
	}
	c.memUsed.Add(n)
	return nil
}

// ReleaseMemory returns a reservation made by AcquireMemory.
func (c *Controller) ReleaseMemory(n int64) {
	if c == nil || n <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(n)
	}
	c.memUsed.Add(-n)
}

// MemoryUsage returns the reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireBackground waits for a background slot.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.bgSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.bgBusy.Add(1)
	return nil
}

// ReleaseBackground returns a slot taken by AcquireBackground.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgBusy.Add(-1)
	c.bgSem.Release(1)
}

// Usage returns current reservations and counters.
func (c *Controller) Usage() Usage {
	if c == nil {
		return Usage{}
	}
	return Usage{
		MemoryReserved:  c.memUsed.Load(),
		MemoryLimit:     c.cfg.MemoryLimitBytes,
		BackgroundBusy:  c.bgBusy.Load(),
		BackgroundSlots: c.cfg.MaxBackgroundWorkers,
		IOBytes:         c.ioBytes.Load(),
	}
}
