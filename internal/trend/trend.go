// Package trend derives the glucose rate of change and its direction bucket
package trend

import (
	"errors"
	"time"
)

// Bucket is one of the seven rate-of-change classifications
type Bucket int

// Buckets ordered from falling fastest to rising fastest
const (
	Unknown Bucket = iota
	StrongFall
	Fall
	SlightFall
	Flat
	SlightRise
	Rise
	StrongRise
)

// Thresholds in mmol/L per minute
const (
	strongThreshold = 0.10
	threshold       = 0.05
	slightThreshold = 0.025
)

// mgdlPerMmol matches the share service conversion used for the readings
const mgdlPerMmol = 18.0

// ErrNoElapsedTime is returned when two samples share a timestamp or arrive out of order
var ErrNoElapsedTime = errors.New("samples are not separated in time")

// Classify maps a rate (mmol/L/min) to its bucket. Each bucket includes its
// upper bound; the flat bucket is closed on both sides.
func Classify(rate float64) Bucket {
	switch {
	case rate < -strongThreshold:
		return StrongFall
	case rate < -threshold:
		return Fall
	case rate < -slightThreshold:
		return SlightFall
	case rate <= slightThreshold:
		return Flat
	case rate <= threshold:
		return SlightRise
	case rate <= strongThreshold:
		return Rise
	default:
		return StrongRise
	}
}

// Estimate computes the rate of change between the newest and the previous
// sample, both in mg/dL, and classifies it.
func Estimate(newestMgdl int, newest time.Time, previousMgdl int, previous time.Time) (float64, Bucket, error) {
	minutes := newest.Sub(previous).Minutes()
	if minutes <= 0 {
		return 0, Unknown, ErrNoElapsedTime
	}

	rate := float64(newestMgdl-previousMgdl) / mgdlPerMmol / minutes
	return rate, Classify(rate), nil
}

// String returns the human-readable label of the bucket
func (b Bucket) String() string {
	switch b {
	case StrongFall:
		return "strong fall"
	case Fall:
		return "fall"
	case SlightFall:
		return "slight fall"
	case Flat:
		return "flat"
	case SlightRise:
		return "slight rise"
	case Rise:
		return "rise"
	case StrongRise:
		return "strong rise"
	default:
		return "unknown"
	}
}

// Arrow returns the Unicode arrow character for the bucket
func (b Bucket) Arrow() string {
	switch b {
	case StrongFall:
		return "⇊"
	case Fall:
		return "↓"
	case SlightFall:
		return "↘"
	case Flat:
		return "→"
	case SlightRise:
		return "↗"
	case Rise:
		return "↑"
	case StrongRise:
		return "⇈"
	default:
		return "-"
	}
}

// Angle returns the arrow rotation in degrees, 0 pointing straight up.
// The second result is false when no arrow should be drawn.
func (b Bucket) Angle() (float64, bool) {
	switch b {
	case StrongRise, Rise:
		return 0, true
	case SlightRise:
		return 45, true
	case Flat:
		return 90, true
	case SlightFall:
		return 135, true
	case Fall, StrongFall:
		return 180, true
	default:
		return 0, false
	}
}

// IsDouble reports whether the bucket is drawn as a double arrow
func (b Bucket) IsDouble() bool {
	return b == StrongRise || b == StrongFall
}
