package parser

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func decodeTestRuns(t *testing.T, encoded []byte) (RunList, []Run, error) {
	return DecodeRunList(NewCursor(encoded, 0), 0)
}

func TestRunListRelativeOffsets(t *testing.T) {
	run_list, runs, err := decodeTestRuns(t, encodeRunList(
		testRun{Offset: 100, Length: 1},
		testRun{Offset: 5, Length: 2},
	))
	assert.NoError(t, err)
	assert.Equal(t, RunList{100, 105, 106}, run_list)
	assert.Equal(t, []Run{
		{RelativeOffset: 100, Start: 100, Length: 1},
		{RelativeOffset: 5, Start: 105, Length: 2},
	}, runs)
}

func TestRunListNegativeOffset(t *testing.T) {
	run_list, _, err := decodeTestRuns(t, encodeRunList(
		testRun{Offset: 0x10000, Length: 1},
		testRun{Offset: -0x8000, Length: 2},
	))
	assert.NoError(t, err)
	assert.Equal(t, RunList{0x10000, 0x8000, 0x8001}, run_list)
}

func TestRunListMFTLayout(t *testing.T) {
	assert.Equal(t, []byte{0x11, 0x02, 0x04, 0x11, 0x01, 0x06, 0x00},
		testMFTRunList)

	run_list, _, err := decodeTestRuns(t, testMFTRunList)
	assert.NoError(t, err)
	assert.Equal(t, RunList{4, 5, 10}, run_list)
	assert.Equal(t, "4 5 10", run_list.String())
}

func TestRunListEmpty(t *testing.T) {
	run_list, runs, err := decodeTestRuns(t, []byte{0x00})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(run_list))
	assert.Equal(t, 0, len(runs))
}

func TestRunListSparse(t *testing.T) {
	run_list, runs, err := decodeTestRuns(t, encodeRunList(
		testRun{Offset: 10, Length: 2},
		testRun{Sparse: true, Length: 2},
		testRun{Offset: 3, Length: 1},
	))
	assert.NoError(t, err)

	// Sparse runs do not move the base of the next offset.
	assert.Equal(t, RunList{10, 11, SparseCluster, SparseCluster, 13}, run_list)
	assert.True(t, runs[1].IsSparse)
	assert.Equal(t, "10 11 sparse sparse 13", run_list.String())
	assert.Equal(t, "[{10+2} {sparse 2} {13+1}]", fmt.Sprintf("%v", runs))
}

func TestRunListMalformed(t *testing.T) {
	// Header promises a length and offset byte that are missing.
	_, _, err := decodeTestRuns(t, []byte{0x11, 0x02})
	assert.True(t, errors.Is(err, RunListError))

	// No terminator.
	_, _, err = decodeTestRuns(t, []byte{0x11, 0x02, 0x04})
	assert.True(t, errors.Is(err, RunListError))

	// Offset before the start of the volume.
	_, _, err = decodeTestRuns(t, encodeRunList(
		testRun{Offset: 2, Length: 1},
		testRun{Offset: -3, Length: 1},
	))
	assert.True(t, errors.Is(err, RunListError))
}

func TestRunListLimit(t *testing.T) {
	encoded := encodeRunList(testRun{Offset: 1, Length: 100})

	_, _, err := DecodeRunList(NewCursor(encoded, 0), 10)
	assert.True(t, errors.Is(err, RunListError))

	run_list, _, err := DecodeRunList(NewCursor(encoded, 0), 100)
	assert.NoError(t, err)
	assert.Equal(t, 100, len(run_list))
}

func TestRunListRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		runs := []testRun{}
		starts := []int64{}
		total := uint64(0)
		previous := int64(0)

		count := 1 + rng.Intn(6)
		for j := 0; j < count; j++ {
			start := rng.Int63n(1 << 40)
			length := uint64(1 + rng.Intn(300))

			runs = append(runs, testRun{Offset: start - previous, Length: length})
			starts = append(starts, start)
			total += length
			previous = start
		}

		run_list, decoded, err := decodeTestRuns(t, encodeRunList(runs...))
		assert.NoError(t, err)
		assert.Equal(t, int(total), len(run_list))
		assert.Equal(t, len(runs), len(decoded))

		for idx, run := range decoded {
			assert.Equal(t, starts[idx], run.Start)
			assert.Equal(t, int64(runs[idx].Length), run.Length)
		}
	}
}
