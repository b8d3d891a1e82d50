// Package autosync decides when the external indexer runs.
//
// A Coordinator consumes host events (document changes, startup, timer
// ticks, manual requests) from a single queue and runs at most one sync at
// a time. Triggers that arrive while a sync is in flight are dropped; the
// next trigger picks up whatever is still pending.
package autosync

import (
	"fmt"
	"strings"
)

// Mode governs which triggers are active.
type Mode string

const (
	// ModeOff disables every automatic trigger. Manual sync still works.
	ModeOff Mode = "off"
	// ModeOnChange syncs incrementally after document changes.
	ModeOnChange Mode = "on-change"
	// ModeOnStartup runs one full sync when the host starts.
	ModeOnStartup Mode = "on-startup"
	// ModeScheduled runs a full sync every interval.
	ModeScheduled Mode = "scheduled"
)

// ParseMode converts a configuration string to a Mode.
// "on-save" is accepted as an alias for on-change.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return ModeOff, nil
	case "on-change", "on-save":
		return ModeOnChange, nil
	case "on-startup":
		return ModeOnStartup, nil
	case "scheduled":
		return ModeScheduled, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q", s)
	}
}

// Modes lists the canonical mode names.
func Modes() []Mode {
	return []Mode{ModeOff, ModeOnChange, ModeOnStartup, ModeScheduled}
}

func (m Mode) String() string {
	return string(m)
}
