// Package stats accumulates distance, duration and speed statistics over the
// stream of accepted samples within one tracking lifetime.
package stats

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	mstats "github.com/montanaflynn/stats"

	"github.com/trackkit/gpstrack/location"
)

// A Snapshot is a read-only view of the accumulated statistics.
type Snapshot struct {
	Count          int
	DistanceM      float64
	ElevationGainM float64
	Duration       time.Duration
	// AvgSpeedMps is distance over duration, not an average of reported
	// speeds.
	AvgSpeedMps          float64
	MaxSpeedMps          float64
	MeanReportedSpeedMps float64
}

// An Aggregator folds accepted samples into running totals. The tracking
// session is its only writer; everyone else reads snapshots.
type Aggregator struct {
	mu        sync.Mutex
	clk       clock.Clock
	running   bool
	startedAt time.Time
	frozen    time.Duration

	count          int
	distanceM      float64
	elevationGainM float64
	speeds         []float64
	last           *location.Sample
}

// New returns an aggregator using the given clock for durations.
func New(clk clock.Clock) *Aggregator {
	return &Aggregator{clk: clk}
}

// Reset clears all totals and begins a new accumulation lifetime.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = true
	a.startedAt = a.clk.Now()
	a.frozen = 0
	a.count = 0
	a.distanceM = 0
	a.elevationGainM = 0
	a.speeds = nil
	a.last = nil
}

// Freeze stops the duration clock; totals keep their final values until the
// next Reset.
func (a *Aggregator) Freeze() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.frozen = a.clk.Now().Sub(a.startedAt)
	a.running = false
}

// Add folds one accepted sample into the totals.
func (a *Aggregator) Add(s location.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.count++
	a.speeds = append(a.speeds, s.SpeedMps)
	if a.last != nil {
		a.distanceM += a.last.DistanceM(s)
		if rise := s.Altitude - a.last.Altitude; rise > 0 {
			a.elevationGainM += rise
		}
	}
	a.last = &s
}

// Snapshot returns the current totals.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	duration := a.frozen
	if a.running {
		duration = a.clk.Now().Sub(a.startedAt)
	}

	snap := Snapshot{
		Count:          a.count,
		DistanceM:      a.distanceM,
		ElevationGainM: a.elevationGainM,
		Duration:       duration,
	}
	if duration > 0 {
		snap.AvgSpeedMps = a.distanceM / duration.Seconds()
	}
	if len(a.speeds) > 0 {
		// Max and Mean only fail on empty input.
		snap.MaxSpeedMps, _ = mstats.Max(a.speeds)
		snap.MeanReportedSpeedMps, _ = mstats.Mean(a.speeds)
	}
	return snap
}
