package strategy

import (
	"testing"
	"time"
)

var refDay = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func days(n int) time.Time {
	return refDay.AddDate(0, 0, n)
}

// TestSelectExpirationWindowInclusive verifies both window boundaries
// are accepted (closed interval).
func TestSelectExpirationWindowInclusive(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		want   bool
	}{
		{"below window", 19, false},
		{"lower boundary", 20, true},
		{"inside window", 30, true},
		{"upper boundary", 40, true},
		{"above window", 41, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := SelectExpiration([]time.Time{days(tt.offset)}, refDay, DefaultMinDays, DefaultMaxDays)
			if found != tt.want {
				t.Fatalf("offset %d: found = %v, want %v", tt.offset, found, tt.want)
			}
			if found && !got.Equal(days(tt.offset)) {
				t.Errorf("offset %d: got %v, want %v", tt.offset, got, days(tt.offset))
			}
		})
	}
}

// TestSelectExpirationAscendingFirstMatch verifies the selector sorts
// internally and returns the earliest in-window date regardless of the
// order the vendor returned dates in.
func TestSelectExpirationAscendingFirstMatch(t *testing.T) {
	inputs := [][]time.Time{
		{days(50), days(25), days(35)},
		{days(25), days(35), days(50)},
		{days(35), days(50), days(25)},
	}

	for _, available := range inputs {
		got, found := SelectExpiration(available, refDay, 20, 40)
		if !found {
			t.Fatal("expected a match inside the window")
		}
		if !got.Equal(days(25)) {
			t.Errorf("got %v, want %v (earliest in-window date)", got, days(25))
		}
	}
}

func TestSelectExpirationEmptySet(t *testing.T) {
	if _, found := SelectExpiration(nil, refDay, 20, 40); found {
		t.Error("expected no match for empty input")
	}
}

func TestSelectExpirationNoneInWindow(t *testing.T) {
	available := []time.Time{days(1), days(7), days(14), days(60), days(90)}
	if _, found := SelectExpiration(available, refDay, 20, 40); found {
		t.Error("expected no match when all dates fall outside the window")
	}
}

// TestSelectExpirationPastDates verifies already-expired dates (negative
// day counts) never match.
func TestSelectExpirationPastDates(t *testing.T) {
	available := []time.Time{days(-30), days(-25)}
	if _, found := SelectExpiration(available, refDay, 20, 40); found {
		t.Error("expected no match for past expirations")
	}
}

func TestSelectExpirationPicksFirstAmongSeveral(t *testing.T) {
	available := []time.Time{days(22), days(29), days(36)}
	got, found := SelectExpiration(available, refDay, 20, 40)
	if !found {
		t.Fatal("expected a match")
	}
	if !got.Equal(days(22)) {
		t.Errorf("got %v, want the earliest qualifying date %v", got, days(22))
	}
}
