// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package telemetry extracts time-aligned telemetry samples and GPS
// polylines from a DayCollection's segment files, one segment at a time.
package telemetry

import "sort"

// Gear is the vehicle's selected gear.
type Gear string

const (
	GearPark    Gear = "park"
	GearDrive   Gear = "drive"
	GearReverse Gear = "reverse"
	GearNeutral Gear = "neutral"
)

// Autopilot is the driver-assistance mode active at a sample.
type Autopilot string

const (
	AutopilotManual      Autopilot = "manual"
	AutopilotSelfDriving Autopilot = "self_driving"
	AutopilotAutosteer   Autopilot = "autosteer"
	AutopilotTACC        Autopilot = "tacc"
)

// Sample is a single decoded telemetry record, timestamped
// collection-relative.
type Sample struct {
	TimestampMs      int64
	SpeedMps         float64
	Gear             Gear
	Autopilot        Autopilot
	BlinkerLeft      bool
	BlinkerRight     bool
	Brake            bool
	AcceleratorPct   float64
	SteeringAngleDeg float64

	// HasGPS reports whether LatitudeDeg/LongitudeDeg/HeadingDeg are valid.
	HasGPS      bool
	LatitudeDeg float64
	LongitudeDeg float64
	HeadingDeg  float64
}

// GpsPoint is one filtered, valid fix in a GpsPath.
type GpsPoint struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	TimestampMs  int64
}

// GpsPath is the ordered, valid-fix-only GPS polyline derived from Samples.
type GpsPath []GpsPoint

// Result is the outcome of an extraction request.
type Result struct {
	Samples   []Sample
	GpsPath   GpsPath
	Cancelled bool
}

// Nearest returns the sample whose TimestampMs is closest to ms, tie-broken
// by the earlier sample (§4.3). Samples must be sorted ascending. Returns
// false if there are no samples.
func Nearest(samples []Sample, ms int64) (Sample, bool) {
	if len(samples) == 0 {
		return Sample{}, false
	}
	i := sort.Search(len(samples), func(i int) bool { return samples[i].TimestampMs >= ms })
	if i == 0 {
		return samples[0], true
	}
	if i == len(samples) {
		return samples[len(samples)-1], true
	}
	before, after := samples[i-1], samples[i]
	if after.TimestampMs-ms < ms-before.TimestampMs {
		return after, true
	}
	return before, true
}

// validGPS reports whether a lat/lon pair is a plausible fix (§3: excludes
// (0,0) and out-of-range values).
func validGPS(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}
