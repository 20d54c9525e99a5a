package webui

import (
	"strconv"
	"time"
)

var uptimeUnits = []struct {
	suffix string
	size   time.Duration
}{
	{"w", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// FormatUptime renders d with at most two units, e.g. "2h 34m" or "45s".
// Sub-second durations render as "0s".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		return "-" + FormatUptime(-d)
	}
	for i, u := range uptimeUnits {
		n := d / u.size
		if n == 0 && i < len(uptimeUnits)-1 {
			continue
		}
		out := strconv.FormatInt(int64(n), 10) + u.suffix
		if i+1 < len(uptimeUnits) {
			next := uptimeUnits[i+1]
			out += " " + strconv.FormatInt(int64((d%u.size)/next.size), 10) + next.suffix
		}
		return out
	}
	return "0s"
}
