package provider

import (
	"math"
	"strconv"
	"strings"
	"time"
)

func resolveClock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// resolveTolerance applies DefaultTolerance to a zero value.
func resolveTolerance(name string, tolerance time.Duration) (time.Duration, error) {
	if tolerance < 0 {
		return 0, configError(name, "tolerance must not be negative, got %s", tolerance)
	}
	if tolerance == 0 {
		return DefaultTolerance, nil
	}
	return tolerance, nil
}

// checkFreshness evaluates a signed Unix timestamp. It returns an empty
// Reason when raw is within tolerance of now (inclusive).
//
// A timestamp that is not a finite positive number cannot be trusted enough
// to judge its age and is reported as missing, not expired.
func checkFreshness(raw string, tolerance time.Duration, now time.Time) Reason {
	ts, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) || ts <= 0 {
		return ReasonMissingSignature
	}
	if math.Abs(float64(now.Unix())-ts) > tolerance.Seconds() {
		return ReasonTimestampExpired
	}
	return ""
}
