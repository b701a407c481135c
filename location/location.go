// Package location defines the raw location sample produced by a provider and
// the pure checks deciding whether such a sample is well-formed and plausible.
// Reasonable is the single gate between provider noise and everything
// downstream; it must run before a sample is throttled, published or folded
// into statistics.
package location

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
)

// Limits on what counts as a plausible sample.
const (
	// MaxReasonableSpeedMps is about 300 km/h; faster readings are treated
	// as provider noise. The boundary value itself is accepted.
	MaxReasonableSpeedMps = 83.33

	// MaxReasonableAccuracyM rejects fixes so imprecise they carry no
	// positional information.
	MaxReasonableAccuracyM = 5000

	// DefaultAccuracyThresholdM is the threshold AcceptableAccuracy applies
	// when the caller passes none.
	DefaultAccuracyThresholdM = 100
)

// A Sample is one raw location reading from a provider. Samples are never
// mutated after creation; the session either forwards or discards them.
type Sample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Altitude is meters above the WGS84 ellipsoid.
	Altitude  float64 `json:"altitude"`
	AccuracyM float64 `json:"accuracy"`
	SpeedMps  float64 `json:"speed"`
	// Bearing is degrees clockwise from true north, 0-360.
	Bearing float64 `json:"bearing"`
	// TimestampMs is epoch milliseconds at the time of the fix.
	TimestampMs int64 `json:"timestamp"`
	// SpeedLimitExceeded is passed through from providers that evaluate
	// speed limits themselves; this core never sets it.
	SpeedLimitExceeded *bool `json:"speed_limit_exceeded,omitempty"`
}

// Time returns the fix time.
func (s Sample) Time() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// Point returns the sample's coordinate as a geo point.
func (s Sample) Point() *geo.Point {
	return geo.NewPoint(s.Latitude, s.Longitude)
}

// Velocity decomposes the reported speed along the reported bearing into a
// north-east plane vector (X east, Y north).
func (s Sample) Velocity() r3.Vector {
	bearingRad := s.Bearing * math.Pi / 180
	return r3.Vector{
		X: s.SpeedMps * math.Sin(bearingRad),
		Y: s.SpeedMps * math.Cos(bearingRad),
	}
}

// DistanceM returns the great-circle distance to another sample in meters.
func (s Sample) DistanceM(other Sample) float64 {
	return s.Point().GreatCircleDistance(other.Point()) * 1000
}

// ValidCoordinate reports whether both values are within WGS84 bounds.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// AcceptableAccuracy reports whether an accuracy reading is positive and at
// most thresholdM. A nonpositive threshold falls back to
// DefaultAccuracyThresholdM.
func AcceptableAccuracy(accuracyM, thresholdM float64) bool {
	if thresholdM <= 0 {
		thresholdM = DefaultAccuracyThresholdM
	}
	return accuracyM > 0 && accuracyM <= thresholdM
}

// Reasonable reports whether a sample is plausible enough to act on. It
// rejects the null-island (0,0) sentinel used by providers without a fix,
// out-of-bounds coordinates, implausibly fast motion, fixes with no usable
// accuracy and nonpositive timestamps.
func Reasonable(s Sample) bool {
	if s.Latitude == 0 && s.Longitude == 0 {
		return false
	}
	if !ValidCoordinate(s.Latitude, s.Longitude) {
		return false
	}
	if s.SpeedMps > MaxReasonableSpeedMps {
		return false
	}
	if s.AccuracyM <= 0 || s.AccuracyM > MaxReasonableAccuracyM {
		return false
	}
	return s.TimestampMs > 0
}
