package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadClock = errors.New("malformed time of day")

// ParseClock parses a zero-padded 24-hour "HH:MM" value into minutes since
// midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return h*60 + m, nil
}

// ClockMinutes converts "H:MM" to minutes since midnight without rejecting
// anything; unreadable parts count as zero.
func ClockMinutes(s string) int {
	hs, ms, _ := strings.Cut(strings.TrimSpace(s), ":")
	h, _ := strconv.Atoi(hs)
	m, _ := strconv.Atoi(ms)
	return h*60 + m
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
