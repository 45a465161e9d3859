package feedback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Params are the tunables published by the adaptive controller.
type Params struct {
	// RadiusScale multiplies the radius of newly inserted entries.
	RadiusScale float64
	// DecayRate is the confidence decay rate (per second) for all entries.
	DecayRate float64
}

// ControllerOptions configures the adaptive controller.
type ControllerOptions struct {
	// TargetRecall is the recall floor the controller tries to hold.
	TargetRecall float64
	// MinSamples is the number of recall samples required before acting on recall.
	MinSamples uint64
	// Step is the multiplicative adjustment per snapshot, in (0, 1).
	Step float64
	// MinScale and MaxScale bound RadiusScale.
	MinScale, MaxScale float64
	// BaseDecayRate is the initial decay rate; MaxDecayRate bounds it from above.
	BaseDecayRate, MaxDecayRate float64
	// Buffer is the capacity of the snapshot channel.
	Buffer int
}

// DefaultControllerOptions contains the default adaptive controller configuration.
var DefaultControllerOptions = ControllerOptions{
	TargetRecall:  0.9,
	MinSamples:    10,
	Step:          0.1,
	MinScale:      0.25,
	MaxScale:      2,
	BaseDecayRate: 0,
	MaxDecayRate:  1,
	Buffer:        16,
}

// Controller adapts Params from window snapshots.
// The hot path only reads Params through an atomic pointer.
type Controller struct {
	opts      ControllerOptions
	params    atomic.Pointer[Params]
	snapshots chan WindowSnapshot
	logger    *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewController creates an adaptive controller. Call Start to run its loop.
func NewController(logger *slog.Logger, optFns ...func(o *ControllerOptions)) *Controller {
	opts := DefaultControllerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	if opts.Step <= 0 || opts.Step >= 1 {
		opts.Step = DefaultControllerOptions.Step
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller{
		opts:      opts,
		snapshots: make(chan WindowSnapshot, opts.Buffer),
		logger:    logger,
	}
	c.params.Store(&Params{RadiusScale: 1, DecayRate: opts.BaseDecayRate})
	return c
}

// Params returns the currently published parameters.
func (c *Controller) Params() Params {
	return *c.params.Load()
}

// Offer hands a snapshot to the controller without blocking.
// It returns false if the channel is full and the snapshot was dropped.
func (c *Controller) Offer(s WindowSnapshot) bool {
	select {
	case c.snapshots <- s:
		return true
	default:
		return false
	}
}

// Start runs the adaptation loop until ctx is cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-c.snapshots:
				c.Apply(s)
			}
		}
	}()
}

// Stop terminates the loop started by Start and waits for it to exit.
func (c *Controller) Stop() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
	})
}

// Apply adjusts and publishes Params for one snapshot.
//
// Recall below target narrows the radius and speeds up decay. Recall at or
// above target widens the radius and relaxes decay back towards the base.
// Snapshots with too few recall samples leave Params untouched.
func (c *Controller) Apply(s WindowSnapshot) Params {
	cur := c.Params()
	if s.RecallSamples < c.opts.MinSamples {
		return cur
	}

	next := cur
	if s.Recall < c.opts.TargetRecall {
		next.RadiusScale = clamp(cur.RadiusScale*(1-c.opts.Step), c.opts.MinScale, c.opts.MaxScale)
		step := cur.DecayRate * (1 + c.opts.Step)
		if step == 0 {
			step = c.opts.Step * c.opts.MaxDecayRate
		}
		next.DecayRate = clamp(step, c.opts.BaseDecayRate, c.opts.MaxDecayRate)
	} else {
		next.RadiusScale = clamp(cur.RadiusScale*(1+c.opts.Step), c.opts.MinScale, c.opts.MaxScale)
		next.DecayRate = clamp(cur.DecayRate*(1-c.opts.Step), c.opts.BaseDecayRate, c.opts.MaxDecayRate)
	}

	if next != cur {
		c.params.Store(&next)
		c.logger.Debug("feedback params updated",
			"recall", s.Recall,
			"hit_ratio", s.HitRatio(),
			"radius_scale", next.RadiusScale,
			"decay_rate", next.DecayRate,
		)
	}
	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
