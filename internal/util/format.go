package util

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count as "1.2 MB"
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// FormatCount renders an integer with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatAgo renders a timestamp relative to now ("3 minutes ago")
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
