package dexcom

import (
	"regexp"
	"strconv"
	"time"
)

var wtPattern = regexp.MustCompile(`Date\((\d+)`)

// ParseWT extracts the epoch milliseconds embedded in a share timestamp
// such as "Date(1719828000000)" or "/Date(1719828000000-0400)/".
func ParseWT(wt string) (time.Time, error) {
	m := wtPattern.FindStringSubmatch(wt)
	if m == nil {
		return time.Time{}, &TimeParseError{Value: wt}
	}

	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, &TimeParseError{Value: wt}
	}

	return time.UnixMilli(ms), nil
}
