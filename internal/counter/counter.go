// Package counter owns the live poultry count and feeds every change into the history log.
package counter

import (
	"context"
	"coopcount/internal/detect"
	"coopcount/internal/history"
	"coopcount/internal/ports"
	"coopcount/internal/types"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Snapshot is the externally visible counter state.
type Snapshot struct {
	types.CounterState
	AIAvailable       bool `json:"ai_available"`
	DetectionInFlight bool `json:"detection_in_flight"`
}

// Counter is the Counter State controller. It is safe for concurrent use; state changes and
// their history appends happen under one lock so the log order matches the order of changes.
type Counter struct {
	mu    sync.Mutex
	state types.CounterState

	history  *history.Store
	detector ports.Detector
	matcher  detect.Matcher
	policy   types.DetectionPolicy
	cooldown *detect.Cooldown
	pub      ports.Publisher
	now      func() time.Time

	inFlight atomic.Bool
}

type Option func(*Counter)

// WithPublisher publishes a CountEvent after every append.
func WithPublisher(p ports.Publisher) Option {
	return func(c *Counter) { c.pub = p }
}

// WithClock replaces the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(c *Counter) { c.now = now }
}

// New builds a stopped counter at zero. cfg supplies the label filter, the detection policy and the
// cooldown applied after the detector reports it is unavailable. Unset fields take their defaults; an
// explicit zero cooldown stays disabled.
func New(h *history.Store, d ports.Detector, cfg types.DetectorConfig, opts ...Option) *Counter {
	cfg = cfg.WithDefaults()
	c := &Counter{
		history:  h,
		detector: d,
		matcher:  detect.NewMatcher(cfg.Labels, cfg.MinConfidence),
		policy:   cfg.Policy,
		cooldown: detect.NewCooldown(cfg.Cooldown()),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a snapshot of the counter.
func (c *Counter) State() Snapshot {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	_, down := c.cooldown.Active()
	return Snapshot{
		CounterState:      st,
		AIAvailable:       !down,
		DetectionInFlight: c.inFlight.Load(),
	}
}

// Start accepts manual increments from now on.
func (c *Counter) Start() {
	c.mu.Lock()
	c.state.Running = true
	c.mu.Unlock()
	log.Info("counting started")
}

// Stop stops accepting manual increments and saves the current count.
func (c *Counter) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Running = false
	log.WithField("count", c.state.Count).Info("counting stopped")
	return c.save(ctx, types.ReasonStop)
}

// ManualIncrement adds one and saves the count while running. While stopped it does nothing and
// reports false. The count is left unchanged when the save fails.
func (c *Counter) ManualIncrement(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Running {
		return false, nil
	}
	c.state.Count++
	if err := c.save(ctx, types.ReasonManual); err != nil {
		c.state.Count--
		return false, err
	}
	return true, nil
}

// ApplyDetectionResult turns n matching detections into the new count according to the policy, then
// saves it. It returns the new count, or the unchanged count when the save fails.
//
// PolicyReplace sets the count to n. PolicyMaxPresence keeps max(count, 1 if n > 0 else 0).
func (c *Counter) ApplyDetectionResult(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, types.Err(types.ErrInvalidCount, nil, "detection count %d", n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state.Count
	switch c.policy {
	case types.PolicyMaxPresence:
		presence := 0
		if n > 0 {
			presence = 1
		}
		c.state.Count = max(c.state.Count, presence)
	default:
		c.state.Count = n
	}
	if err := c.save(ctx, types.ReasonDetection); err != nil {
		c.state.Count = prev
		return prev, err
	}
	return c.state.Count, nil
}

// Reset deletes the whole history log, then zeroes the count. Running is left as is.
// When the log cannot be deleted the count is kept.
func (c *Counter) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.history.Clear(ctx); err != nil {
		return err
	}
	c.state.Count = 0
	log.WithField("running", c.state.Running).Info("counter reset")
	return nil
}

// Detect runs the detector on one frame and applies the result. Only one detection runs at a time:
// a second call while one is in flight fails fast with types.ErrDetectionInFlight. After the detector
// reports it is unavailable, calls fail fast with types.ErrDetectorUnavailable until the cooldown ends.
// No match is a valid outcome reported as types.AccuracyNoDetection.
func (c *Counter) Detect(ctx context.Context, frame []byte) (types.DetectionOutcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return types.DetectionOutcome{}, types.ErrDetectionInFlight
	}
	defer c.inFlight.Store(false)

	if cause, down := c.cooldown.Active(); down {
		return types.DetectionOutcome{}, types.Err(types.ErrDetectorUnavailable, cause, "")
	}

	preds, err := c.detector.Detect(ctx, frame)
	if err != nil {
		if errors.Is(err, types.ErrDetectorUnavailable) {
			c.cooldown.Trip(err)
			log.WithError(err).Warn("detector unavailable, AI count disabled for cooldown")
		}
		return types.DetectionOutcome{}, err
	}

	matched := c.matcher.Filter(preds)
	count, err := c.ApplyDetectionResult(ctx, len(matched))
	out := types.DetectionOutcome{Matched: len(matched), Count: count, Status: types.AccuracyNoDetection}
	if len(matched) > 0 {
		out.Status = types.AccuracyHigh
	}
	log.WithFields(log.Fields{
		"predictions": len(preds),
		"matched":     out.Matched,
		"count":       out.Count,
		"policy":      c.policy,
	}).Info("detection applied")
	return out, err
}

// RetryAfter is how long detection stays disabled after the detector was reported unavailable.
func (c *Counter) RetryAfter() time.Duration {
	return c.cooldown.Remaining()
}

// CheckDetector probes the detector and disables AI counting for the cooldown when it is not ready.
// A successful probe re-enables it.
func (c *Counter) CheckDetector(ctx context.Context) error {
	if err := c.detector.Ready(ctx); err != nil {
		c.cooldown.Trip(err)
		return err
	}
	c.cooldown.Reset()
	return nil
}

// save appends the current count. Callers hold c.mu.
func (c *Counter) save(ctx context.Context, reason types.Reason) error {
	rec := types.NewCountRecord(c.state.Count, c.now())
	if err := c.history.Append(ctx, rec); err != nil {
		log.WithError(err).WithField("count", rec.Count).Error("failed to save count")
		return err
	}
	c.publish(ctx, types.CountEvent{CountRecord: rec, Reason: reason})
	return nil
}

func (c *Counter) publish(ctx context.Context, ev types.CountEvent) {
	if c.pub == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("failed to marshal count event")
		return
	}
	if err := c.pub.PublishRaw(ctx, b); err != nil {
		log.WithError(err).WithField("reason", ev.Reason).Warn("failed to publish count event")
	}
}
