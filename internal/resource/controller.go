package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for encoded payload bytes.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxInflightBackend is the maximum number of concurrent backend searches.
	// If 0, unlimited.
	MaxInflightBackend int64

	// MaxBackgroundWorkers is the maximum number of concurrent background jobs.
	// If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// SamplesPerSec limits how many background samples may start per second.
	// If 0, unlimited.
	SamplesPerSec float64
}

// Controller manages resources of a single cache instance.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Backend
	backendSem *semaphore.Weighted // nil if unlimited

	// Background
	bgSem   *semaphore.Weighted
	limiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
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

	if cfg.MaxInflightBackend > 0 {
		c.backendSem = semaphore.NewWeighted(cfg.MaxInflightBackend)
	}

	if cfg.SamplesPerSec > 0 {
		burst := int(cfg.SamplesPerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.SamplesPerSec), burst)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control eviction/retry policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireBackend reserves a backend slot.
// Blocks until a slot is free or ctx is done.
func (c *Controller) AcquireBackend(ctx context.Context) error {
	if c == nil || c.backendSem == nil {
		return nil
	}
	return c.backendSem.Acquire(ctx, 1)
}

// ReleaseBackend releases a backend slot.
func (c *Controller) ReleaseBackend() {
	if c == nil || c.backendSem == nil {
		return
	}
	c.backendSem.Release(1)
}

// TryAcquireBackground attempts to reserve a background worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AllowSample reports whether a background sample may start now.
func (c *Controller) AllowSample() bool {
	if c == nil || c.limiter == nil {
		return true
	}
	return c.limiter.AllowN(time.Now(), 1)
}
