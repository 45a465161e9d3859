// Package resource implements the resource Controller shared by a cache instance.
//
// The Controller governs three resource types:
//
//   - Memory: tracks and limits encoded payload bytes held by the store (non-blocking, fail-fast)
//   - Backend concurrency: bounds in-flight authoritative searches issued on misses
//   - Background work: bounds recall-sampling goroutines and rate-limits how often they start
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                      resource.Controller                    │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Payload Memory │  Backend Slots  │  Background Sampling    │
//	│  (fail-fast)    │  (blocking sem) │  (sem + token bucket)   │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireBackend │  TryAcquireBackground   │
//	│  ReleaseMemory  │  ReleaseBackend │  ReleaseBackground      │
//	│  MemoryUsage    │                 │  AllowSample            │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//	if err := rc.AcquireMemory(len(payload)); err != nil {
//	    // evict and retry, or reject the insert
//	}
//
// # Backend Limits
//
// AcquireBackend blocks until a slot is free or ctx is done, so a burst of
// misses cannot overwhelm the backing vector database:
//
//	if err := rc.AcquireBackend(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackend()
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
