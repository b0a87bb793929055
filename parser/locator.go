package parser

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// LocateEntry finds the byte offset of an entry in the image using the
// $MFT's own run list.
//
// Usually several entries share a cluster so the entry number is split
// into a run list index and a slot within that cluster. When entries
// are larger than clusters, the entry is mapped by byte offset and all
// the clusters it covers must be contiguous.
func LocateEntry(entry uint64, run_list RunList,
	geometry VolumeGeometry, volume_skip int64) (int64, error) {
	cluster_size := geometry.ClusterSize()
	record_size := int64(geometry.EntryRecordSize)
	if cluster_size <= 0 || record_size <= 0 {
		return 0, errors.Wrap(MalformedBootSectorError,
			"geometry has no cluster or record size")
	}

	number_of_clusters := uint64(len(run_list))
	entries_per_cluster := uint64(geometry.EntriesPerCluster())

	var cluster_index, last_cluster_index uint64
	var offset_within_cluster int64

	if entries_per_cluster > 0 {
		cluster_index = entry / entries_per_cluster
		last_cluster_index = cluster_index
		offset_within_cluster = int64(entry%entries_per_cluster) * record_size

	} else {
		clusters_per_entry := uint64(record_size / cluster_size)
		if clusters_per_entry == 0 || record_size%cluster_size != 0 {
			return 0, errors.Wrapf(MalformedBootSectorError,
				"entry size %d is not a multiple of cluster size %d",
				record_size, cluster_size)
		}

		if entry > (^uint64(0))/clusters_per_entry {
			return 0, errors.Wrapf(EntryOutOfRangeError,
				"entry %d", entry)
		}
		cluster_index = entry * clusters_per_entry
		last_cluster_index = cluster_index + clusters_per_entry - 1
	}

	if cluster_index >= number_of_clusters ||
		last_cluster_index >= number_of_clusters {
		return 0, errors.Wrapf(EntryOutOfRangeError,
			"entry %d is past the end of the $MFT (0-%d)",
			entry, number_of_clusters*maxUint64(entries_per_cluster, 1))
	}

	cluster := run_list[cluster_index]
	for i := cluster_index; i <= last_cluster_index; i++ {
		if run_list[i] == SparseCluster {
			return 0, errors.Wrapf(SparseEntryError,
				"entry %d is in a sparse run", entry)
		}

		if run_list[i] != cluster+int64(i-cluster_index) {
			return 0, errors.Wrapf(EntryOutOfRangeError,
				"entry %d spans non contiguous clusters", entry)
		}
	}

	if cluster > (math.MaxInt64-volume_skip-offset_within_cluster)/cluster_size {
		return 0, errors.Wrapf(EntryOutOfRangeError,
			"entry %d: cluster %d is past any possible image", entry, cluster)
	}

	return volume_skip + cluster*cluster_size + offset_within_cluster, nil
}

// OpenEntry returns a reader positioned over just this entry. Each call
// gets its own reader so entries can be read in any order, or from
// several goroutines, without sharing a file position.
func OpenEntry(reader io.ReaderAt, entry uint64, run_list RunList,
	geometry VolumeGeometry, volume_skip int64) (*io.SectionReader, error) {
	offset, err := LocateEntry(entry, run_list, geometry, volume_skip)
	if err != nil {
		return nil, err
	}

	return openRecord(reader, offset, geometry), nil
}

func openRecord(reader io.ReaderAt, offset int64,
	geometry VolumeGeometry) *io.SectionReader {
	return io.NewSectionReader(reader, offset, int64(geometry.EntryRecordSize))
}

// readRecord reads a whole entry record. Running out of data is a
// truncated entry rather than a short buffer.
func readRecord(reader io.Reader, record_size int) ([]byte, error) {
	buf := make([]byte, record_size)
	n, err := io.ReadFull(reader, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, errors.Wrapf(EntryReadTruncatedError,
			"read %d of %d bytes", n, record_size)
	}
	if err != nil {
		return nil, errors.Wrap(err, "readRecord")
	}
	return buf, nil
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
