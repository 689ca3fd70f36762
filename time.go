package account

import "time"

// IsWithinWindow reports whether t happened less than window before now.
// Times in the future count as within the window.
func IsWithinWindow(t time.Time, window time.Duration, now time.Time) bool {
	return t.After(now.Add(-window))
}

// IsOutsideWindow is the negation of IsWithinWindow
func IsOutsideWindow(t time.Time, window time.Duration, now time.Time) bool {
	return !IsWithinWindow(t, window, now)
}

// ParseWindow parses a duration expression such as "24h" or "15m"
func ParseWindow(pattern string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(pattern)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
