package parser

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Placeholder cluster number for clusters in a sparse run.
	SparseCluster int64 = -1
)

// Run is one decoded data run in its compressed form.
type Run struct {
	// Offset relative to the previous run as stored on disk.
	RelativeOffset int64

	// Absolute starting cluster (0 for sparse runs).
	Start  int64
	Length int64

	IsSparse bool
}

func (self Run) String() string {
	if self.IsSparse {
		return fmt.Sprintf("{sparse %d}", self.Length)
	}
	return fmt.Sprintf("{%d+%d}", self.Start, self.Length)
}

// RunList is the expanded form of a run list: one absolute cluster
// number per cluster of the stream, in stream order.
type RunList []int64

func (self RunList) String() string {
	result := make([]string, 0, len(self))
	for _, cluster := range self {
		if cluster == SparseCluster {
			result = append(result, "sparse")
		} else {
			result = append(result, fmt.Sprintf("%d", cluster))
		}
	}
	return strings.Join(result, " ")
}

// DecodeRunList decodes a data run structure starting at the cursor.
//
// Each run starts with a header byte: the low nibble is the width of
// the run length and the high nibble the width of the run offset. The
// length is unsigned, the offset is signed and relative to the start
// of the previous run. A zero length terminates the list. Runs without
// an offset are sparse.
func DecodeRunList(cursor *Cursor, max_clusters int64) (RunList, []Run, error) {
	STATS.Inc_RunList()

	result := RunList{}
	runs := []Run{}
	previous := int64(0)

	if max_clusters <= 0 {
		max_clusters = DefaultMaxRunListClusters
	}

	for {
		header, err := cursor.Uint8()
		if err != nil {
			return result, runs, errors.Wrap(RunListError, err.Error())
		}

		length_size := int(header & 0xF)
		offset_size := int(header >> 4)

		length_buf, err := cursor.Bytes(length_size)
		if err != nil {
			return result, runs, errors.Wrap(RunListError, err.Error())
		}

		run_length, err := ParseUnsignedLE(length_buf)
		if err != nil {
			return result, runs, err
		}

		if run_length == 0 {
			break
		}

		if run_length > uint64(max_clusters) ||
			int64(len(result))+int64(run_length) > max_clusters {
			return result, runs, errors.Wrapf(RunListError,
				"run list exceeds %d clusters", max_clusters)
		}

		offset_buf, err := cursor.Bytes(offset_size)
		if err != nil {
			return result, runs, errors.Wrap(RunListError, err.Error())
		}

		run_offset, err := ParseSignedLE(offset_buf)
		if err != nil {
			return result, runs, err
		}

		length := int64(run_length)
		if offset_size == 0 {
			runs = append(runs, Run{Length: length, IsSparse: true})
			for i := int64(0); i < length; i++ {
				result = append(result, SparseCluster)
			}
			continue
		}

		start := previous + run_offset
		if start < 0 {
			return result, runs, errors.Wrapf(RunListError,
				"run starts at negative cluster %d", start)
		}

		runs = append(runs, Run{
			RelativeOffset: run_offset,
			Start:          start,
			Length:         length,
		})

		for i := int64(0); i < length; i++ {
			result = append(result, start+i)
		}

		previous = start
	}

	return result, runs, nil
}
