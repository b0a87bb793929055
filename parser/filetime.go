package parser

import (
	"fmt"
	"time"
)

const (
	// Milliseconds between 1601-01-01 and 1970-01-01 (UTC).
	FILETIME_EPOCH_DELTA_MS = 11644473600000

	TICKS_PER_MILLISECOND = 10000
)

// WinFileTime is a timestamp in windows filetime format: 100ns ticks
// since 1601-01-01 UTC. A tick count of 0 is an unset field and
// converts to the zero time.Time.
type WinFileTime struct {
	time.Time
	Ticks uint64 `json:"-"`
}

func NewWinFileTime(ticks uint64) WinFileTime {
	return WinFileTime{Time: FiletimeToTime(ticks), Ticks: ticks}
}

func (self WinFileTime) IsUnknown() bool {
	return self.Ticks == 0
}

// EpochMillis returns milliseconds since 1970.
func (self WinFileTime) EpochMillis() int64 {
	return FiletimeToEpochMillis(self.Ticks)
}

func (self WinFileTime) String() string {
	if self.IsUnknown() {
		return "unknown"
	}
	return self.Time.Format(time.RFC3339Nano)
}

func (self WinFileTime) GoString() string {
	return fmt.Sprintf("%v", self)
}

// Every uint64 divided down to milliseconds fits an int64, so this
// never overflows.
func FiletimeToEpochMillis(ticks uint64) int64 {
	return int64(ticks/TICKS_PER_MILLISECOND) - FILETIME_EPOCH_DELTA_MS
}

// FiletimeToTime converts at millisecond resolution.
func FiletimeToTime(ticks uint64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	return time.UnixMilli(FiletimeToEpochMillis(ticks)).UTC()
}
