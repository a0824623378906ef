package refresh

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the cadence policy governing when a resource goes stale.
type Mode int

const (
	// Historical resources are due once per calendar day.
	Historical Mode = iota + 1
	// Daily resources are due once per calendar day.
	Daily
	// Snapshot resources are due after SnapshotTTL.
	Snapshot
	// Weekly resources are due after WeeklyTTL.
	Weekly
)

const (
	SnapshotTTL = time.Hour
	WeeklyTTL   = 7 * 24 * time.Hour
)

var modeNames = map[Mode]string{
	Historical: "historical",
	Daily:      "daily",
	Snapshot:   "snapshot",
	Weekly:     "weekly",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode maps a mode name (any case) to a Mode.
func ParseMode(s string) (Mode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return 0, fmt.Errorf("refresh: unknown cadence mode %q", s)
}

// IsDue reports whether a resource last refreshed at last needs refreshing
// at now. A nil last means the resource was never refreshed. Calendar-day
// modes compare dates in now's location; elapsed hours do not matter.
func IsDue(last *time.Time, now time.Time, mode Mode) bool {
	if last == nil {
		return true
	}
	switch mode {
	case Historical, Daily:
		return dateOf(*last, now.Location()).Before(dateOf(now, now.Location()))
	case Snapshot:
		return now.Sub(*last) > SnapshotTTL
	case Weekly:
		return now.Sub(*last) > WeeklyTTL
	default:
		return false
	}
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
