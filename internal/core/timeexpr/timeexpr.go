// Package timeexpr resolves CLI time expressions to unix seconds.
//
// Supported forms: "now", "now-<N><unit>" with unit one of s, m, h, d, w,
// integer unix seconds, and RFC3339 timestamps.
package timeexpr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var unitSeconds = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 60 * 60,
	'd': 24 * 60 * 60,
	'w': 7 * 24 * 60 * 60,
}

// ParseToUnix resolves expr relative to now.
func ParseToUnix(expr string, now time.Time) (int64, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "now" {
		return now.Unix(), nil
	}

	if secs, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return secs, nil
	}

	if offset, ok := strings.CutPrefix(trimmed, "now-"); ok {
		return parseRelative(offset, now)
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return 0, fmt.Errorf("unsupported time format %q", trimmed)
	}
	return t.Unix(), nil
}

func parseRelative(offset string, now time.Time) (int64, error) {
	if len(offset) < 2 {
		return 0, fmt.Errorf("invalid relative time %q, expected e.g. now-15m", offset)
	}

	value, unit := offset[:len(offset)-1], offset[len(offset)-1]
	quantity, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid relative duration quantity %q", value)
	}

	mult, ok := unitSeconds[unit]
	if !ok {
		return 0, fmt.Errorf("invalid relative duration unit %q, use one of s,m,h,d,w", string(unit))
	}

	if quantity > math.MaxInt64/mult || quantity < math.MinInt64/mult {
		return 0, fmt.Errorf("relative duration %q is out of range", offset)
	}
	delta := quantity * mult

	base := now.Unix()
	if (delta > 0 && base < math.MinInt64+delta) || (delta < 0 && base > math.MaxInt64+delta) {
		return 0, fmt.Errorf("relative duration %q is out of range", offset)
	}
	return base - delta, nil
}
