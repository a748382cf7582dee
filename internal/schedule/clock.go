package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoTime marks a stop time whose HH:MM:SS value could not be parsed.
const NoTime = -1

// ParseClock converts an HH:MM:SS schedule time to seconds since midnight.
// Hours beyond 23 are kept as-is, so 25:10:00 yields 90600.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid schedule time %q", s)
	}

	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid schedule time %q", s)
		}
		fields[i] = v
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid schedule time %q", s)
	}

	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

// SecondsSinceMidnight returns the number of seconds since midnight for the given time
func SecondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// FormatClock12h renders seconds since midnight as "03:04 PM".
// Service-day hours past 23 wrap onto the next calendar day for display.
func FormatClock12h(seconds int) string {
	h := (seconds / 3600) % 24
	m := (seconds % 3600) / 60
	return time.Date(2000, 1, 1, h, m, 0, 0, time.UTC).Format("03:04 PM")
}
