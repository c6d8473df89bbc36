package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NowMillis returns the current unix time in milliseconds.
// Tests may swap it for a deterministic clock.
var NowMillis = func() int64 {
	return time.Now().UnixMilli()
}
