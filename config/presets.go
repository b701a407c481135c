package config

// DefaultConfig returns the configuration used when the caller expresses no
// preference: high accuracy at a 5 second cadence, foreground only.
func DefaultConfig() TrackingConfig {
	return TrackingConfig{
		IntervalMs:          5000,
		DistanceFilterM:     10,
		Accuracy:            AccuracyHigh,
		NotificationTitle:   DefaultNotificationTitle,
		NotificationMessage: DefaultNotificationMessage,
	}
}

// HighAccuracyConfig trades battery for the densest stream the bounds allow.
func HighAccuracyConfig() TrackingConfig {
	cfg := DefaultConfig()
	cfg.IntervalMs = MinIntervalMs
	cfg.DistanceFilterM = 5
	return cfg
}

// BalancedConfig is a middle ground suitable for most trip recording.
func BalancedConfig() TrackingConfig {
	cfg := DefaultConfig()
	cfg.IntervalMs = 10000
	cfg.DistanceFilterM = 25
	cfg.Accuracy = AccuracyMedium
	return cfg
}

// BatterySaverConfig favors battery life over fidelity: a sparse cadence, a
// wide displacement filter and low-power fixes.
func BatterySaverConfig() TrackingConfig {
	cfg := DefaultConfig()
	cfg.IntervalMs = 60000
	cfg.DistanceFilterM = 100
	cfg.Accuracy = AccuracyLow
	return cfg
}
