// Package config defines the tracking configuration and its validation and
// normalization rules. Validation reports every violation it finds so a caller
// can reject bad input; normalization clamps the same input into something the
// location provider can always be started with.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Bounds on the tracking configuration. The provider cannot safely be started
// with values outside these ranges.
const (
	MinIntervalMs = 1000
	MaxIntervalMs = 3600000

	MinDistanceFilterM = 0
	MaxDistanceFilterM = 1000
)

// Advisory thresholds. Crossing these produces warnings, never errors.
const (
	lowIntervalWarnMs        = 5000
	backgroundIntervalWarnMs = 10000
	lowAccuracyFilterWarnM   = 50
)

// Default notification strings used when the caller supplies none.
const (
	DefaultNotificationTitle   = "GPS Tracking Active"
	DefaultNotificationMessage = "Your location is being tracked"
)

// Accuracy selects the quality of fixes requested from the location provider.
type Accuracy string

// The recognized accuracy levels.
const (
	AccuracyHigh   = Accuracy("high")
	AccuracyMedium = Accuracy("medium")
	AccuracyLow    = Accuracy("low")
)

func (a Accuracy) recognized() bool {
	switch a {
	case AccuracyHigh, AccuracyMedium, AccuracyLow:
		return true
	default:
		return false
	}
}

// A TrackingConfig describes how a tracking session should behave. Once handed
// to a session it is treated as immutable; changing it means validating a new
// instance and applying it through UpdateConfig.
type TrackingConfig struct {
	IntervalMs          int      `json:"interval_ms"`
	DistanceFilterM     float64  `json:"distance_filter"`
	Accuracy            Accuracy `json:"accuracy"`
	BackgroundMode      bool     `json:"background_mode"`
	NotificationTitle   string   `json:"notification_title,omitempty"`
	NotificationMessage string   `json:"notification_message,omitempty"`
}

// Interval returns the update cadence as a duration.
func (c TrackingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// A ValidationResult carries every violation and advisory found in one
// validation pass, in the order the checks ran.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether validation found no errors. Warnings never affect
// validity.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks the config against the documented bounds. It never repairs
// anything; use Normalize for that.
func (c TrackingConfig) Validate() ValidationResult {
	var res ValidationResult

	if c.IntervalMs < MinIntervalMs || c.IntervalMs > MaxIntervalMs {
		res.Errors = append(res.Errors,
			errors.Errorf("interval_ms must be between %d and %d, got %d", MinIntervalMs, MaxIntervalMs, c.IntervalMs).Error())
	} else if c.IntervalMs < lowIntervalWarnMs {
		res.Warnings = append(res.Warnings,
			errors.Errorf("interval_ms below %d may drain the battery quickly", lowIntervalWarnMs).Error())
	}

	if c.DistanceFilterM < MinDistanceFilterM || c.DistanceFilterM > MaxDistanceFilterM {
		res.Errors = append(res.Errors,
			errors.Errorf("distance_filter must be between %d and %d, got %v", MinDistanceFilterM, MaxDistanceFilterM, c.DistanceFilterM).Error())
	}

	if !c.Accuracy.recognized() {
		res.Errors = append(res.Errors,
			errors.Errorf("accuracy must be one of %q, %q or %q, got %q", AccuracyHigh, AccuracyMedium, AccuracyLow, c.Accuracy).Error())
	}

	if c.BackgroundMode && c.IntervalMs >= MinIntervalMs && c.IntervalMs < backgroundIntervalWarnMs {
		res.Warnings = append(res.Warnings,
			errors.Errorf("background mode with interval_ms below %d risks OS-level throttling", backgroundIntervalWarnMs).Error())
	}

	if c.Accuracy == AccuracyLow && c.DistanceFilterM < lowAccuracyFilterWarnM {
		res.Warnings = append(res.Warnings,
			errors.Errorf("low accuracy with distance_filter below %dm makes displacement filtering unreliable", lowAccuracyFilterWarnM).Error())
	}

	return res
}

// Normalize clamps the config into its legal ranges and fills in defaults. It
// never fails and is idempotent, so it is the path of last resort when a
// caller wants best-effort values instead of a validation error.
func (c TrackingConfig) Normalize() TrackingConfig {
	out := c

	if out.IntervalMs < MinIntervalMs {
		out.IntervalMs = MinIntervalMs
	} else if out.IntervalMs > MaxIntervalMs {
		out.IntervalMs = MaxIntervalMs
	}

	if out.DistanceFilterM < MinDistanceFilterM {
		out.DistanceFilterM = MinDistanceFilterM
	} else if out.DistanceFilterM > MaxDistanceFilterM {
		out.DistanceFilterM = MaxDistanceFilterM
	}

	if !out.Accuracy.recognized() {
		out.Accuracy = AccuracyHigh
	}

	if out.NotificationTitle == "" {
		out.NotificationTitle = DefaultNotificationTitle
	}
	if out.NotificationMessage == "" {
		out.NotificationMessage = DefaultNotificationMessage
	}

	return out
}

// An InvalidConfigError reports that a config failed validation, carrying the
// full result so callers can inspect every violation.
type InvalidConfigError struct {
	Result ValidationResult
}

func (e *InvalidConfigError) Error() string {
	return "invalid tracking config: " + strings.Join(e.Result.Errors, "; ")
}
