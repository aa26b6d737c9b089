// Package strategy derives covered-call strategy candidates from a
// normalized options chain. All functions are pure: no I/O, no shared
// state, identical output for identical input.
package strategy

import (
	"sort"
	"time"
)

// Default expiration window targeting the near-month contract.
const (
	DefaultMinDays = 20
	DefaultMaxDays = 40
)

// SelectExpiration picks the target expiration from the available set:
// the earliest date whose whole-day distance from referenceDay lies in
// the closed interval [minDays, maxDays]. The input is sorted ascending
// internally so the first-match rule is deterministic regardless of the
// order the vendor returned dates in. The second return value is false
// when no date qualifies.
func SelectExpiration(available []time.Time, referenceDay time.Time, minDays, maxDays int) (time.Time, bool) {
	if len(available) == 0 {
		return time.Time{}, false
	}

	sorted := make([]time.Time, len(available))
	copy(sorted, available)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})

	for _, d := range sorted {
		days := int(d.Sub(referenceDay).Hours() / 24)
		if days >= minDays && days <= maxDays {
			return d, true
		}
	}

	return time.Time{}, false
}
