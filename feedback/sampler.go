package feedback

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/proximity/internal/resource"
	"github.com/hupe1980/proximity/model"
)

// SearchFunc is the authoritative search used to establish ground truth.
type SearchFunc func(ctx context.Context, v model.Vector) (model.Result, error)

// RecallFunc receives the measured recall of a served entry.
type RecallFunc func(id model.EntryID, recall float64, at time.Time)

// SamplerOptions configures a Sampler.
type SamplerOptions struct {
	// Rate is the fraction of hits that are re-checked, in [0, 1].
	Rate float64
	// Timeout bounds every verification search.
	Timeout time.Duration
	// Seed makes the sampling decision reproducible.
	Seed int64
}

// DefaultSamplerOptions contains the default sampler configuration.
var DefaultSamplerOptions = SamplerOptions{
	Rate:    0.01,
	Timeout: 5 * time.Second,
	Seed:    1,
}

// Sampler verifies a fraction of cache hits against the backend in the background.
type Sampler struct {
	opts      SamplerOptions
	search    SearchFunc
	resources *resource.Controller
	window    *Window
	onRecall  RecallFunc
	logger    *slog.Logger
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand

	// closeMu orders wg.Add in Observe before wg.Wait in Close.
	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

// NewSampler creates a sampler. The resource controller bounds concurrency
// (background semaphore) and throughput (sample rate limiter).
func NewSampler(search SearchFunc, rc *resource.Controller, window *Window, onRecall RecallFunc, logger *slog.Logger, now func() time.Time, optFns ...func(o *SamplerOptions)) *Sampler {
	opts := DefaultSamplerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &Sampler{
		opts:      opts,
		search:    search,
		resources: rc,
		window:    window,
		onRecall:  onRecall,
		logger:    logger,
		now:       now,
		rng:       rand.New(rand.NewSource(opts.Seed)), //nolint:gosec // sampling only
	}
}

func (s *Sampler) pick() bool {
	if s.opts.Rate <= 0 {
		return false
	}
	if s.opts.Rate >= 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.opts.Rate
}

// Observe possibly schedules a background verification of a hit.
// It never blocks and reports whether a verification was started.
// After Close it always returns false.
func (s *Sampler) Observe(id model.EntryID, v model.Vector, served model.Result) bool {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		return false
	}
	if !s.pick() || !s.resources.AllowSample() || !s.resources.TryAcquireBackground() {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.resources.ReleaseBackground()
		s.verify(id, v, served)
	}()
	return true
}

func (s *Sampler) verify(id model.EntryID, v model.Vector, served model.Result) {
	ctx := context.Background()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	truth, err := s.search(ctx, v)
	if err != nil {
		s.logger.Warn("recall sample failed", "entry_id", uint64(id), "error", err)
		return
	}

	now := s.now()
	recall := served.Recall(truth)
	if s.window != nil {
		s.window.RecordRecall(recall, now)
	}
	if s.onRecall != nil {
		s.onRecall(id, recall, now)
	}
	s.logger.Debug("recall sampled", "entry_id", uint64(id), "recall", recall)
}

// Wait blocks until all in-flight verifications have finished.
func (s *Sampler) Wait() {
	s.wg.Wait()
}

// Close stops accepting new verifications and waits for in-flight ones.
func (s *Sampler) Close() {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()

	s.wg.Wait()
}
