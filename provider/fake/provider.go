// Package fake is a scriptable in-memory location provider for testing.
package fake

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/trackkit/gpstrack/config"
	"github.com/trackkit/gpstrack/location"
	"github.com/trackkit/gpstrack/provider"
)

const channelBuffer = 32

// Provider is a fake location provider. Permission answers, start/stop errors
// and emitted samples are all scripted by the test.
type Provider struct {
	logger golog.Logger

	mu          sync.Mutex
	permissions map[provider.PermissionScope]provider.PermissionStatus
	requests    map[provider.PermissionScope][]provider.PermissionStatus
	startErr    error
	stopErr     error
	emitting    bool
	startedCfg  config.TrackingConfig
	startCount  int
	stopCount   int

	samples  chan location.Sample
	failures chan error
}

// New returns a fake provider with every permission unknown.
func New(logger golog.Logger) *Provider {
	return &Provider{
		logger:      logger,
		permissions: map[provider.PermissionScope]provider.PermissionStatus{},
		requests:    map[provider.PermissionScope][]provider.PermissionStatus{},
		samples:     make(chan location.Sample, channelBuffer),
		failures:    make(chan error, channelBuffer),
	}
}

// SetPermission fixes the answer both QueryPermission and RequestPermission
// give for a scope.
func (p *Provider) SetPermission(scope provider.PermissionScope, status provider.PermissionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permissions[scope] = status
}

// ScriptRequest queues answers for successive RequestPermission calls on a
// scope, ahead of whatever SetPermission fixed. Lets a test play out a
// pending-then-granted dialog.
func (p *Provider) ScriptRequest(scope provider.PermissionScope, statuses ...provider.PermissionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests[scope] = append(p.requests[scope], statuses...)
}

// SetStartError makes the next StartEmitting calls fail.
func (p *Provider) SetStartError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startErr = err
}

// SetStopError makes the next StopEmitting calls fail.
func (p *Provider) SetStopError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopErr = err
}

// QueryPermission reports the scripted status for a scope.
func (p *Provider) QueryPermission(ctx context.Context, scope provider.PermissionScope) (provider.PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status, ok := p.permissions[scope]; ok {
		return status, nil
	}
	return provider.StatusUnknown, nil
}

// RequestPermission pops the next scripted answer for the scope, falling back
// to the fixed status.
func (p *Provider) RequestPermission(ctx context.Context, scope provider.PermissionScope) (provider.PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if queued := p.requests[scope]; len(queued) > 0 {
		status := queued[0]
		p.requests[scope] = queued[1:]
		p.permissions[scope] = status
		return status, nil
	}
	if status, ok := p.permissions[scope]; ok {
		return status, nil
	}
	return provider.StatusUnknown, nil
}

// StartEmitting records the config it was started with.
func (p *Provider) StartEmitting(ctx context.Context, cfg config.TrackingConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	if p.emitting {
		return errors.New("fake provider already emitting")
	}
	p.emitting = true
	p.startedCfg = cfg
	p.startCount++
	return nil
}

// StopEmitting ceases emission.
func (p *Provider) StopEmitting(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCount++
	p.emitting = false
	return p.stopErr
}

// Samples returns the sample channel tests emit into.
func (p *Provider) Samples() <-chan location.Sample {
	return p.samples
}

// Failures returns the failure channel tests fail into.
func (p *Provider) Failures() <-chan error {
	return p.failures
}

// Emit delivers a sample as if the hardware produced it.
func (p *Provider) Emit(s location.Sample) {
	p.samples <- s
}

// Fail delivers an abrupt provider failure.
func (p *Provider) Fail(err error) {
	p.failures <- err
}

// Emitting reports whether the provider has been started and not stopped.
func (p *Provider) Emitting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.emitting
}

// StartedConfig returns the config passed to the most recent StartEmitting.
func (p *Provider) StartedConfig() config.TrackingConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startedCfg
}

// StartCount returns how many times StartEmitting succeeded.
func (p *Provider) StartCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startCount
}

// StopCount returns how many times StopEmitting was called.
func (p *Provider) StopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCount
}
