package models

import (
	"fmt"
	"strings"
)

// Mode selects which data source is tried first on each cycle.
type Mode string

const (
	// ModeLive prefers the remote API and falls back to demo data.
	ModeLive Mode = "live"
	// ModeDemo prefers the static demo data and falls back to the remote API.
	ModeDemo Mode = "demo"
)

// ParseMode validates a persisted or user-supplied mode string.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeLive:
		return ModeLive, nil
	case ModeDemo:
		return ModeDemo, nil
	default:
		return "", fmt.Errorf("unknown mode %q", value)
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeDemo {
		return ModeLive
	}
	return ModeDemo
}

// Label is the text shown on the mode toggle control.
func (m Mode) Label() string {
	if m == ModeDemo {
		return "Offline Demo"
	}
	return "Live API"
}

// SourceStatus is the state shown by the source status indicator.
type SourceStatus string

const (
	SourceStatusNormal   SourceStatus = "normal"
	SourceStatusFallback SourceStatus = "fallback"
)
