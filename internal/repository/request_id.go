package repository

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"
)

var requestIDPattern = regexp.MustCompile(`^\d{8}_\d{6}_\d{6}$`)

// lastIDMicros is the Unix microsecond of the most recent ID handed out.
var lastIDMicros atomic.Int64

// NewRequestID returns a YYYYMMDD_HHMMSS_ffffff ID for the current time that no other
// call in this process has returned. Calls landing on the same microsecond are pushed
// to the next free one, so IDs stay unique and sort in issue order.
func NewRequestID() string {
	now := time.Now().UnixMicro()
	for {
		last := lastIDMicros.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if lastIDMicros.CompareAndSwap(last, next) {
			return FormatRequestID(time.UnixMicro(next))
		}
	}
}

// FormatRequestID formats t as YYYYMMDD_HHMMSS_ffffff. IDs sort chronologically.
func FormatRequestID(t time.Time) string {
	return t.Format("20060102_150405") + fmt.Sprintf("_%06d", t.Nanosecond()/1000)
}

// ValidRequestID reports whether id has the FormatRequestID layout.
func ValidRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}
