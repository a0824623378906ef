package refresh

import (
	"testing"
	"time"
)

func at(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
}

func TestIsDue_NeverRefreshed(t *testing.T) {
	now := at(2025, 6, 3, 12, 0)
	for _, m := range []Mode{Historical, Daily, Snapshot, Weekly} {
		if !IsDue(nil, now, m) {
			t.Errorf("IsDue(nil, %s) = false, want true", m)
		}
	}
}

func TestIsDue_CalendarDayBoundary(t *testing.T) {
	last := at(2025, 6, 2, 23, 50)
	now := at(2025, 6, 3, 0, 10)
	for _, m := range []Mode{Historical, Daily} {
		if !IsDue(&last, now, m) {
			t.Errorf("%s: 20 minutes across midnight should be due", m)
		}
	}

	sameDayLate := at(2025, 6, 3, 23, 59)
	if IsDue(&now, sameDayLate, Historical) {
		t.Errorf("historical: same calendar date should not be due")
	}
}

func TestIsDue_CalendarDayUsesNowLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2025-06-02 20:00 UTC is 2025-06-03 05:00 in Tokyo.
	last := at(2025, 6, 2, 20, 0)
	now := time.Date(2025, 6, 3, 8, 0, 0, 0, tokyo)
	if IsDue(&last, now, Daily) {
		t.Errorf("daily: same Tokyo calendar date should not be due")
	}
}

func TestIsDue_SnapshotTTL(t *testing.T) {
	now := at(2025, 6, 3, 12, 0)
	last := now.Add(-40 * time.Minute)
	if IsDue(&last, now, Snapshot) {
		t.Errorf("snapshot refreshed 40m ago should not be due")
	}
	last = now.Add(-65 * time.Minute)
	if !IsDue(&last, now, Snapshot) {
		t.Errorf("snapshot refreshed 65m ago should be due")
	}
	last = now.Add(-time.Hour)
	if IsDue(&last, now, Snapshot) {
		t.Errorf("snapshot refreshed exactly 1h ago should not be due")
	}
}

func TestIsDue_WeeklyTTL(t *testing.T) {
	now := at(2025, 6, 10, 12, 0)
	last := now.Add(-6 * 24 * time.Hour)
	if IsDue(&last, now, Weekly) {
		t.Errorf("weekly refreshed 6 days ago should not be due")
	}
	last = now.Add(-7*24*time.Hour - time.Minute)
	if !IsDue(&last, now, Weekly) {
		t.Errorf("weekly refreshed 7 days and 1 minute ago should be due")
	}
}

func TestIsDue_UnknownModeNeverDue(t *testing.T) {
	last := at(2020, 1, 1, 0, 0)
	if IsDue(&last, at(2025, 1, 1, 0, 0), Mode(42)) {
		t.Errorf("unknown mode should not be due")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Historical, Daily, Snapshot, Weekly} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("hourly"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}
