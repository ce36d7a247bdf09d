package blockcache

import (
	"context"
	"time"
)

// ScrubReport summarizes one Scrub pass.
type ScrubReport struct {
	Checked int   // values verified
	Corrupt int   // values found corrupt and removed
	Skipped int   // values locked by a writer during the pass
	Bytes   int64 // payload bytes verified
}

// Scrub verifies every cached value and removes the corrupt ones.
//
// It runs in a background slot of the resource controller and paces reads
// through its IO limiter, so it can run alongside foreground traffic. Scrub
// does not refresh last-access times. It stops early when ctx is done.
func (c *Cache) Scrub(ctx context.Context) (ScrubReport, error) {
	var report ScrubReport
	if c.closed.Load() {
		return report, ErrClosed
	}

	rc := c.opts.resourceController
	if err := rc.AcquireBackground(ctx); err != nil {
		return report, err
	}
	defer rc.ReleaseBackground()

	start := time.Now()
	var err error
	c.entries.Range(func(_, v any) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if c.closed.Load() {
			err = ErrClosed
			return false
		}

		e := v.(*entry)
		if !e.tryAcquireRead() {
			report.Skipped++
			return true
		}
		if err = rc.AcquireIO(ctx, e.size); err != nil {
			c.releaseRead(e)
			return false
		}

		_, verr := c.verify(e)
		c.releaseRead(e)
		report.Checked++
		report.Bytes += int64(e.size)

		if verr != nil {
			report.Corrupt++
			c.forceDelete(e)
			c.opts.logger.LogCorruption(ctx, e.key.String(), verr)
			c.opts.metricsCollector.RecordCorruption()
		}
		return true
	})

	c.opts.logger.LogScrub(ctx, report, time.Since(start), err)
	return report, err
}
