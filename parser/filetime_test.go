package parser

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFiletimeConversion(t *testing.T) {
	assert.Equal(t, int64(978307200000), FiletimeToEpochMillis(testTicks))
	assert.True(t, FiletimeToTime(testTicks).Equal(
		time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)))

	// The FILETIME epoch itself.
	assert.Equal(t, int64(-FILETIME_EPOCH_DELTA_MS), FiletimeToEpochMillis(1))
}

func TestFiletimeUnknown(t *testing.T) {
	assert.True(t, FiletimeToTime(0).IsZero())

	value := NewWinFileTime(0)
	assert.True(t, value.IsUnknown())
	assert.Equal(t, "unknown", value.String())
}

func TestWinFileTime(t *testing.T) {
	value := NewWinFileTime(testTicks + 15*TICKS_PER_MILLISECOND + 9999)
	assert.Equal(t, "2001-01-01T00:00:00.015Z", value.String())
	assert.Equal(t, int64(978307200015), value.EpochMillis())

	serialized, err := json.Marshal(NewWinFileTime(testTicks))
	assert.NoError(t, err)
	assert.Equal(t, `"2001-01-01T00:00:00Z"`, string(serialized))
}
