package location

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func goodSample() Sample {
	return Sample{
		Latitude:    40.7,
		Longitude:   -73.98,
		Altitude:    50.5,
		AccuracyM:   12,
		SpeedMps:    5.4,
		Bearing:     90,
		TimestampMs: 1700000000000,
	}
}

func TestValidCoordinate(t *testing.T) {
	test.That(t, ValidCoordinate(40.7, -73.98), test.ShouldBeTrue)
	test.That(t, ValidCoordinate(-90, 180), test.ShouldBeTrue)
	test.That(t, ValidCoordinate(90, -180), test.ShouldBeTrue)
	test.That(t, ValidCoordinate(90.0001, 0), test.ShouldBeFalse)
	test.That(t, ValidCoordinate(-90.0001, 0), test.ShouldBeFalse)
	test.That(t, ValidCoordinate(0, 180.0001), test.ShouldBeFalse)
	test.That(t, ValidCoordinate(0, -180.0001), test.ShouldBeFalse)
}

func TestAcceptableAccuracy(t *testing.T) {
	test.That(t, AcceptableAccuracy(50, 100), test.ShouldBeTrue)
	test.That(t, AcceptableAccuracy(100, 100), test.ShouldBeTrue)
	test.That(t, AcceptableAccuracy(101, 100), test.ShouldBeFalse)
	test.That(t, AcceptableAccuracy(0, 100), test.ShouldBeFalse)
	test.That(t, AcceptableAccuracy(-3, 100), test.ShouldBeFalse)

	// nonpositive threshold falls back to the default
	test.That(t, AcceptableAccuracy(DefaultAccuracyThresholdM, 0), test.ShouldBeTrue)
	test.That(t, AcceptableAccuracy(DefaultAccuracyThresholdM+1, 0), test.ShouldBeFalse)
}

func TestReasonable(t *testing.T) {
	test.That(t, Reasonable(goodSample()), test.ShouldBeTrue)

	// null island is the no-fix sentinel
	s := goodSample()
	s.Latitude, s.Longitude = 0, 0
	test.That(t, Reasonable(s), test.ShouldBeFalse)

	s = goodSample()
	s.Latitude = 91
	test.That(t, Reasonable(s), test.ShouldBeFalse)

	// the speed cutoff is inclusive on the accept side
	s = goodSample()
	s.SpeedMps = MaxReasonableSpeedMps
	test.That(t, Reasonable(s), test.ShouldBeTrue)
	s.SpeedMps = MaxReasonableSpeedMps + 0.01
	test.That(t, Reasonable(s), test.ShouldBeFalse)

	s = goodSample()
	s.AccuracyM = MaxReasonableAccuracyM
	test.That(t, Reasonable(s), test.ShouldBeTrue)
	s.AccuracyM = MaxReasonableAccuracyM + 1
	test.That(t, Reasonable(s), test.ShouldBeFalse)
	s.AccuracyM = 0
	test.That(t, Reasonable(s), test.ShouldBeFalse)

	s = goodSample()
	s.TimestampMs = 0
	test.That(t, Reasonable(s), test.ShouldBeFalse)
}

func TestSampleHelpers(t *testing.T) {
	s := goodSample()
	test.That(t, s.Time(), test.ShouldResemble, time.UnixMilli(1700000000000))
	test.That(t, s.Point().Lat(), test.ShouldEqual, 40.7)
	test.That(t, s.Point().Lng(), test.ShouldEqual, -73.98)

	// due east at 5.4 m/s
	v := s.Velocity()
	test.That(t, v.X, test.ShouldAlmostEqual, 5.4, 1e-9)
	test.That(t, v.Y, test.ShouldAlmostEqual, 0, 1e-9)

	// due north
	s.Bearing = 0
	v = s.Velocity()
	test.That(t, v.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, v.Y, test.ShouldAlmostEqual, 5.4, 1e-9)
}

func TestDistanceM(t *testing.T) {
	a := goodSample()
	b := a
	test.That(t, a.DistanceM(b), test.ShouldAlmostEqual, 0, 1e-9)

	// one degree of latitude is about 111 km
	b.Latitude = a.Latitude + 1
	test.That(t, a.DistanceM(b), test.ShouldAlmostEqual, 111195, 500)
}
