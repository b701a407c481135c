// Package replay implements a location provider that plays back a recorded
// track file, pacing emission from the recorded timestamps.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/trackkit/gpstrack/config"
	"github.com/trackkit/gpstrack/location"
	"github.com/trackkit/gpstrack/provider"
)

const channelBuffer = 32

// ErrEndOfTrack is delivered on the failure channel once every recorded sample
// has been emitted.
var ErrEndOfTrack = errors.New("reached end of track")

// Config describes how to configure a replay provider.
type Config struct {
	// TrackPath is a JSON-lines file of location samples.
	TrackPath string `json:"track_path"`
	// Speed scales playback; 2 emits at twice the recorded rate. Zero
	// means real time.
	Speed float64 `json:"speed,omitempty"`
}

// Validate checks that the config attributes are valid for a replay provider.
func (cfg *Config) Validate(path string) error {
	if cfg.TrackPath == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "track_path")
	}
	if cfg.Speed < 0 {
		return errors.Errorf("speed must be nonnegative, got %v", cfg.Speed)
	}
	return nil
}

// Provider replays a pre-recorded track on its own goroutine.
type Provider struct {
	logger golog.Logger
	clk    clock.Clock
	track  []location.Sample
	speed  float64

	mu                      sync.Mutex
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup

	samples  chan location.Sample
	failures chan error
}

// Option configures a replay provider.
type Option func(*Provider)

// WithClock injects the clock used to pace emission.
func WithClock(clk clock.Clock) Option {
	return func(p *Provider) {
		p.clk = clk
	}
}

// New reads the whole track file up front and returns a provider ready to
// replay it.
func New(conf *Config, logger golog.Logger, opts ...Option) (*Provider, error) {
	if err := conf.Validate(""); err != nil {
		return nil, err
	}

	track, err := readTrack(conf.TrackPath)
	if err != nil {
		return nil, err
	}

	speed := conf.Speed
	if speed == 0 {
		speed = 1
	}

	p := &Provider{
		logger:   logger,
		clk:      clock.New(),
		track:    track,
		speed:    speed,
		samples:  make(chan location.Sample, channelBuffer),
		failures: make(chan error, channelBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func readTrack(path string) ([]location.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open track file")
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	var track []location.Sample
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var s location.Sample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(err, "bad sample on line %d of %s", line, path)
		}
		track = append(track, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read track file")
	}
	if len(track) == 0 {
		return nil, errors.Errorf("track file %s holds no samples", path)
	}
	return track, nil
}

// QueryPermission always grants: replay needs no platform permission.
func (p *Provider) QueryPermission(ctx context.Context, scope provider.PermissionScope) (provider.PermissionStatus, error) {
	return provider.StatusGranted, nil
}

// RequestPermission always grants.
func (p *Provider) RequestPermission(ctx context.Context, scope provider.PermissionScope) (provider.PermissionStatus, error) {
	return provider.StatusGranted, nil
}

// StartEmitting begins replaying the track. Gaps between samples follow the
// recorded timestamps divided by the speed factor. The requested config does
// not alter pacing; replay's native cadence is the recording's.
func (p *Provider) StartEmitting(ctx context.Context, cfg config.TrackingConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelFunc != nil {
		return errors.New("replay already emitting")
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	p.cancelFunc = cancelFunc

	p.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer p.activeBackgroundWorkers.Done()
		p.emitLoop(cancelCtx)
	})
	return nil
}

func (p *Provider) emitLoop(cancelCtx context.Context) {
	var lastTs int64
	for i, s := range p.track {
		if i > 0 {
			gap := time.Duration(float64(s.TimestampMs-lastTs)/p.speed) * time.Millisecond
			if gap > 0 {
				select {
				case <-cancelCtx.Done():
					return
				case <-p.clk.After(gap):
				}
			}
		}
		lastTs = s.TimestampMs

		select {
		case <-cancelCtx.Done():
			return
		case p.samples <- s:
		}
	}

	p.logger.Debugw("replay finished", "samples", len(p.track))
	select {
	case <-cancelCtx.Done():
	case p.failures <- ErrEndOfTrack:
	}
}

// StopEmitting halts playback and waits for the emit goroutine to exit. A
// stopped provider can be started again and replays from the top.
func (p *Provider) StopEmitting(ctx context.Context) error {
	p.mu.Lock()
	cancelFunc := p.cancelFunc
	p.cancelFunc = nil
	p.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}
	p.activeBackgroundWorkers.Wait()
	return nil
}

// Samples delivers replayed samples.
func (p *Provider) Samples() <-chan location.Sample {
	return p.samples
}

// Failures delivers ErrEndOfTrack when the track is exhausted.
func (p *Provider) Failures() <-chan error {
	return p.failures
}

// Close stops playback.
func (p *Provider) Close() error {
	return p.StopEmitting(context.Background())
}
