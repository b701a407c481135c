package config

import (
	"testing"

	"go.viam.com/test"
)

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	res := cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeTrue)
	test.That(t, res.Errors, test.ShouldBeEmpty)

	// interval below the minimum is an error that names the bound
	cfg = TrackingConfig{IntervalMs: 500, DistanceFilterM: 10, Accuracy: AccuracyHigh}
	res = cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeFalse)
	test.That(t, res.Errors, test.ShouldHaveLength, 1)
	test.That(t, res.Errors[0], test.ShouldContainSubstring, "interval_ms")
	test.That(t, res.Errors[0], test.ShouldContainSubstring, "1000")

	cfg = TrackingConfig{IntervalMs: MaxIntervalMs + 1, DistanceFilterM: 10, Accuracy: AccuracyHigh}
	res = cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeFalse)
	test.That(t, res.Errors[0], test.ShouldContainSubstring, "interval_ms")

	cfg = TrackingConfig{IntervalMs: 5000, DistanceFilterM: 2000, Accuracy: AccuracyHigh}
	res = cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeFalse)
	test.That(t, res.Errors[0], test.ShouldContainSubstring, "distance_filter")

	cfg = TrackingConfig{IntervalMs: 5000, DistanceFilterM: 10, Accuracy: "best"}
	res = cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeFalse)
	test.That(t, res.Errors[0], test.ShouldContainSubstring, "accuracy")

	// errors accumulate in check order
	cfg = TrackingConfig{IntervalMs: 1, DistanceFilterM: -5, Accuracy: ""}
	res = cfg.Validate()
	test.That(t, res.Errors, test.ShouldHaveLength, 3)
	test.That(t, res.Errors[0], test.ShouldContainSubstring, "interval_ms")
	test.That(t, res.Errors[1], test.ShouldContainSubstring, "distance_filter")
	test.That(t, res.Errors[2], test.ShouldContainSubstring, "accuracy")
}

func TestValidateWarnings(t *testing.T) {
	// a short interval is valid but draws a battery advisory
	cfg := TrackingConfig{IntervalMs: 2000, DistanceFilterM: 10, Accuracy: AccuracyHigh}
	res := cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeTrue)
	test.That(t, res.Warnings, test.ShouldHaveLength, 1)
	test.That(t, res.Warnings[0], test.ShouldContainSubstring, "battery")

	// background mode below 10s adds the OS throttling advisory
	cfg.BackgroundMode = true
	res = cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeTrue)
	test.That(t, res.Warnings, test.ShouldHaveLength, 2)
	test.That(t, res.Warnings[1], test.ShouldContainSubstring, "throttling")

	// low accuracy with a tight filter is advisory only
	cfg = TrackingConfig{IntervalMs: 60000, DistanceFilterM: 10, Accuracy: AccuracyLow}
	res = cfg.Validate()
	test.That(t, res.Valid(), test.ShouldBeTrue)
	test.That(t, res.Warnings, test.ShouldHaveLength, 1)
	test.That(t, res.Warnings[0], test.ShouldContainSubstring, "unreliable")
}

func TestNormalize(t *testing.T) {
	got := TrackingConfig{IntervalMs: 500, DistanceFilterM: 2000}.Normalize()
	test.That(t, got, test.ShouldResemble, TrackingConfig{
		IntervalMs:          1000,
		DistanceFilterM:     1000,
		Accuracy:            AccuracyHigh,
		BackgroundMode:      false,
		NotificationTitle:   DefaultNotificationTitle,
		NotificationMessage: DefaultNotificationMessage,
	})

	got = TrackingConfig{IntervalMs: MaxIntervalMs + 5, DistanceFilterM: -1, Accuracy: "ultra"}.Normalize()
	test.That(t, got.IntervalMs, test.ShouldEqual, MaxIntervalMs)
	test.That(t, got.DistanceFilterM, test.ShouldEqual, float64(MinDistanceFilterM))
	test.That(t, got.Accuracy, test.ShouldEqual, AccuracyHigh)

	// a valid config passes through untouched
	cfg := TrackingConfig{
		IntervalMs:          5000,
		DistanceFilterM:     25,
		Accuracy:            AccuracyMedium,
		BackgroundMode:      true,
		NotificationTitle:   "On a trip",
		NotificationMessage: "Recording your route",
	}
	test.That(t, cfg.Normalize(), test.ShouldResemble, cfg)
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, cfg := range []TrackingConfig{
		{},
		{IntervalMs: 500, DistanceFilterM: 2000},
		{IntervalMs: -1, DistanceFilterM: -1, Accuracy: "nope"},
		DefaultConfig(),
		BatterySaverConfig(),
	} {
		once := cfg.Normalize()
		test.That(t, once.Normalize(), test.ShouldResemble, once)
		test.That(t, once.Validate().Valid(), test.ShouldBeTrue)
	}
}

func TestPresets(t *testing.T) {
	for _, cfg := range []TrackingConfig{
		DefaultConfig(),
		HighAccuracyConfig(),
		BalancedConfig(),
		BatterySaverConfig(),
	} {
		test.That(t, cfg.Validate().Valid(), test.ShouldBeTrue)
	}

	test.That(t, HighAccuracyConfig().IntervalMs, test.ShouldEqual, MinIntervalMs)
	test.That(t, BatterySaverConfig().Accuracy, test.ShouldEqual, AccuracyLow)
}

func TestInvalidConfigError(t *testing.T) {
	res := TrackingConfig{IntervalMs: 500, DistanceFilterM: 10, Accuracy: AccuracyHigh}.Validate()
	err := &InvalidConfigError{Result: res}
	test.That(t, err.Error(), test.ShouldContainSubstring, "interval_ms")
}

func TestInterval(t *testing.T) {
	cfg := TrackingConfig{IntervalMs: 5000}
	test.That(t, cfg.Interval().Seconds(), test.ShouldEqual, 5.0)
}
