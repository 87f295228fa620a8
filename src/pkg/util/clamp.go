package util

import (
	"cmp"
	"time"
)

// Clamp clamps val to the range [min, max] for any ordered type.
func Clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Seconds turns a configured number of seconds into a duration clamped to [min, max] seconds.
func Seconds(seconds, min, max int) time.Duration {
	return time.Duration(Clamp(seconds, min, max)) * time.Second
}
