// Package session owns the tracking lifecycle: it gates activation behind
// platform permissions, drives the location provider's start and stop, filters
// and throttles the raw sample stream, and publishes accepted samples and
// status changes to subscribers. The session is the sole mutator of tracking
// state; every other package here is a pure function or a read-only view.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/trackkit/gpstrack/config"
	"github.com/trackkit/gpstrack/location"
	"github.com/trackkit/gpstrack/permission"
	"github.com/trackkit/gpstrack/provider"
	"github.com/trackkit/gpstrack/stats"
)

const defaultSubscriberBuffer = 16

var (
	// ErrAlreadyTracking is returned by Start while the session is active.
	ErrAlreadyTracking = errors.New("tracking already active")
	// ErrNotTracking is returned by Stop while the session is idle.
	ErrNotTracking = errors.New("tracking not active")
	// ErrAlreadyTransitioning is returned when a start or stop is already
	// in flight; the session never queues a second transition.
	ErrAlreadyTransitioning = errors.New("a start or stop is already in flight")
	// ErrPermissionPending is returned by Start when the platform deferred
	// the permission to an asynchronous dialog. The session stays idle;
	// the caller re-invokes Start once the dialog resolves.
	ErrPermissionPending = errors.New("location permission pending user response")
)

// State is the session's lifecycle state.
type State int

// The lifecycle states. Starting and Stopping exist to serialize concurrent
// start/stop calls; a second transition attempted while one is in flight is
// rejected, not queued.
const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// A Status is a point-in-time view of the session.
type Status struct {
	State    State
	Tracking bool
	// LastUpdate is the fix time of the most recently accepted sample,
	// zero before any sample is accepted.
	LastUpdate time.Time
	// Duration is time since tracking started. It keeps running while a
	// stop is in flight, freezes at its final value once idle again, and
	// is zero in a session that never started.
	Duration            time.Duration
	Accepted            int64
	DroppedUnreasonable int64
	DroppedThrottled    int64
}

// A Session drives one device's tracking lifecycle over a location provider.
type Session struct {
	prov   provider.Provider
	gate   *permission.Gate
	logger golog.Logger
	clk    clock.Clock
	stats  *stats.Aggregator
	bcast  *broadcaster

	normalizeInvalid  bool
	accuracyThreshold float64
	subscriberBuffer  int

	mu             sync.Mutex
	state          State
	cfg            config.TrackingConfig
	startedAt      time.Time
	stoppedAt      time.Time
	lastUpdate     time.Time
	haveAccepted   bool
	lastAcceptedMs int64
	lastErr        error
	pumpCancel     func()

	accepted            atomic.Int64
	droppedUnreasonable atomic.Int64
	droppedThrottled    atomic.Int64

	activeBackgroundWorkers sync.WaitGroup
}

// Option configures a session.
type Option func(*Session)

// WithClock injects the clock used for durations.
func WithClock(clk clock.Clock) Option {
	return func(s *Session) {
		s.clk = clk
	}
}

// WithNormalizeInvalid makes Start and UpdateConfig repair an invalid config
// through normalization instead of failing.
func WithNormalizeInvalid() Option {
	return func(s *Session) {
		s.normalizeInvalid = true
	}
}

// WithAccuracyThreshold tightens the accuracy gate on incoming samples below
// the plausibility maximum.
func WithAccuracyThreshold(thresholdM float64) Option {
	return func(s *Session) {
		s.accuracyThreshold = thresholdM
	}
}

// WithSubscriberBuffer sets the per-subscriber channel buffer.
func WithSubscriberBuffer(n int) Option {
	return func(s *Session) {
		s.subscriberBuffer = n
	}
}

// New returns an idle session over the given provider.
func New(prov provider.Provider, logger golog.Logger, opts ...Option) *Session {
	s := &Session{
		prov:              prov,
		logger:            logger,
		clk:               clock.New(),
		accuracyThreshold: location.MaxReasonableAccuracyM,
		subscriberBuffer:  defaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = permission.NewGate(prov, logger)
	s.stats = stats.New(s.clk)
	s.bcast = newBroadcaster(s.subscriberBuffer)
	return s
}

// effectiveConfig validates cfg and returns the normalized copy the session
// will run with. Warnings are logged either way; errors fail unless the
// normalize-invalid policy is set.
func (s *Session) effectiveConfig(cfg config.TrackingConfig) (config.TrackingConfig, error) {
	res := cfg.Validate()
	if !res.Valid() {
		if !s.normalizeInvalid {
			return config.TrackingConfig{}, &config.InvalidConfigError{Result: res}
		}
		s.logger.Warnw("tracking config invalid; proceeding with normalized values", "errors", res.Errors)
	}
	for _, w := range res.Warnings {
		s.logger.Warnw("tracking config advisory", "warning", w)
	}
	return cfg.Normalize(), nil
}

// Start validates the config, ensures the permission scope it implies, and
// starts the provider. On success the session is active and samples flow to
// subscribers. A cancellation of ctx while the provider start is in flight is
// honored once it resolves: the provider is stopped again and the session
// settles idle rather than lingering active.
func (s *Session) Start(ctx context.Context, cfg config.TrackingConfig) error {
	s.mu.Lock()
	switch s.state {
	case StateActive:
		s.mu.Unlock()
		return ErrAlreadyTracking
	case StateStarting, StateStopping:
		s.mu.Unlock()
		return ErrAlreadyTransitioning
	case StateIdle:
	}
	s.state = StateStarting
	s.mu.Unlock()

	effective, err := s.effectiveConfig(cfg)
	if err != nil {
		s.settle(StateIdle)
		return err
	}

	scope := permission.ScopeFor(effective)
	status, err := s.gate.Ensure(ctx, scope)
	if err != nil {
		s.settle(StateIdle)
		return err
	}
	if status == provider.StatusPending {
		s.settle(StateIdle)
		return errors.Wrapf(ErrPermissionPending, "scope %q", scope)
	}

	if err := s.prov.StartEmitting(ctx, effective); err != nil {
		s.settle(StateIdle)
		return errors.Wrap(err, "provider could not start emitting")
	}

	if ctx.Err() != nil {
		// Aborted while the provider start was in flight.
		goutils.UncheckedError(s.prov.StopEmitting(context.Background()))
		s.settle(StateIdle)
		return ctx.Err()
	}

	s.stats.Reset()
	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cfg = effective
	s.startedAt = s.clk.Now()
	s.stoppedAt = time.Time{}
	s.lastUpdate = time.Time{}
	s.haveAccepted = false
	s.lastErr = nil
	s.pumpCancel = cancelFunc
	s.accepted.Store(0)
	s.droppedUnreasonable.Store(0)
	s.droppedThrottled.Store(0)
	s.state = StateActive
	s.mu.Unlock()

	s.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		s.pump(cancelCtx)
	})

	s.logger.Infow("tracking started",
		"interval_ms", effective.IntervalMs,
		"distance_filter", effective.DistanceFilterM,
		"accuracy", effective.Accuracy,
		"background", effective.BackgroundMode)
	s.bcast.publishStatus(s.Status())
	return nil
}

// Stop halts the sample pump and the provider. Statistics keep their final
// values until the next Start.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return ErrNotTracking
	case StateStarting, StateStopping:
		s.mu.Unlock()
		return ErrAlreadyTransitioning
	case StateActive:
	}
	s.state = StateStopping
	cancel := s.pumpCancel
	s.mu.Unlock()

	cancel()
	s.activeBackgroundWorkers.Wait()
	stopErr := s.prov.StopEmitting(ctx)

	s.stats.Freeze()
	s.mu.Lock()
	s.state = StateIdle
	s.stoppedAt = s.clk.Now()
	s.mu.Unlock()

	s.logger.Infow("tracking stopped")
	s.bcast.publishStatus(s.Status())
	if stopErr != nil {
		return errors.Wrap(stopErr, "provider could not stop emitting")
	}
	return nil
}

// UpdateConfig revalidates cfg and applies it to the running session. A
// changed interval or filter takes effect on the very next sample; the
// provider itself keeps its native cadence until the next start, since the
// capability contract has no mid-stream reconfigure.
func (s *Session) UpdateConfig(ctx context.Context, cfg config.TrackingConfig) error {
	effective, err := s.effectiveConfig(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ErrNotTracking
	}
	s.cfg = effective
	s.logger.Debugw("tracking config updated", "interval_ms", effective.IntervalMs, "distance_filter", effective.DistanceFilterM)
	return nil
}

// pump drains the provider's channels until cancelled or the provider fails.
func (s *Session) pump(cancelCtx context.Context) {
	for {
		select {
		case <-cancelCtx.Done():
			return
		default:
		}

		select {
		case <-cancelCtx.Done():
			return
		case smp := <-s.prov.Samples():
			s.handleSample(smp)
		case err := <-s.prov.Failures():
			s.handleFailure(err)
			return
		}
	}
}

// handleSample filters one raw sample and, if it survives the plausibility
// gate and the throttle, publishes it and folds it into statistics. The
// throttle runs on sample timestamps, not wall time, so replayed and live
// streams behave identically.
func (s *Session) handleSample(smp location.Sample) {
	s.mu.Lock()
	if s.state != StateActive {
		// A sample racing a stop in flight is dropped.
		s.mu.Unlock()
		return
	}
	if !location.Reasonable(smp) || !location.AcceptableAccuracy(smp.AccuracyM, s.accuracyThreshold) {
		s.mu.Unlock()
		s.droppedUnreasonable.Inc()
		return
	}
	if s.haveAccepted && smp.TimestampMs-s.lastAcceptedMs < int64(s.cfg.IntervalMs) {
		s.mu.Unlock()
		s.droppedThrottled.Inc()
		return
	}
	s.haveAccepted = true
	s.lastAcceptedMs = smp.TimestampMs
	s.lastUpdate = smp.Time()
	s.mu.Unlock()

	s.accepted.Inc()
	s.stats.Add(smp)
	s.bcast.publishSample(smp)
}

// handleFailure reacts to an abrupt provider fault: the stream is dead, so
// holding the active state would make the status a lie. The session records
// the error, stops the provider and settles idle. Any retry is the caller's.
func (s *Session) handleFailure(err error) {
	s.logger.Errorw("location provider failed; stopping tracking", "error", err)

	s.mu.Lock()
	s.lastErr = err
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cancel := s.pumpCancel
	s.mu.Unlock()

	cancel()
	if stopErr := s.prov.StopEmitting(context.Background()); stopErr != nil {
		s.logger.Errorw("provider stop after failure also failed", "error", stopErr)
	}

	s.stats.Freeze()
	s.mu.Lock()
	s.state = StateIdle
	s.stoppedAt = s.clk.Now()
	s.mu.Unlock()
	s.bcast.publishStatus(s.Status())
}

// Status is a pure read of the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var duration time.Duration
	switch {
	case s.state == StateActive || s.state == StateStopping:
		duration = s.clk.Now().Sub(s.startedAt)
	case !s.stoppedAt.IsZero():
		duration = s.stoppedAt.Sub(s.startedAt)
	}

	return Status{
		State:               s.state,
		Tracking:            s.state == StateActive,
		LastUpdate:          s.lastUpdate,
		Duration:            duration,
		Accepted:            s.accepted.Load(),
		DroppedUnreasonable: s.droppedUnreasonable.Load(),
		DroppedThrottled:    s.droppedThrottled.Load(),
	}
}

// Err returns the most recent provider failure, nil if tracking has never
// failed since the last Start.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Stats returns a snapshot of the statistics accumulated over the current or
// most recent tracking lifetime.
func (s *Session) Stats() stats.Snapshot {
	return s.stats.Snapshot()
}

// Subscribe registers a new subscriber for accepted samples and status
// changes.
func (s *Session) Subscribe() *Subscription {
	return s.bcast.subscribe()
}

// Close stops tracking if needed and shuts down all subscriptions.
func (s *Session) Close(ctx context.Context) error {
	var err error
	if stopErr := s.Stop(ctx); stopErr != nil && !errors.Is(stopErr, ErrNotTracking) {
		err = multierr.Combine(err, stopErr)
	}
	s.bcast.close()
	return err
}

func (s *Session) settle(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
