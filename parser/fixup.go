package parser

import (
	"github.com/pkg/errors"
)

// FixupReport describes what ApplyFixups did to a buffer.
type FixupReport struct {
	// The update sequence number found at the head of the array.
	UpdateSequence uint16

	// Number of sector tails that were restored.
	Applied int

	// Sectors whose tail did not carry the update sequence number.
	// This happens after a torn write, or when the buffer was already
	// fixed up.
	Mismatched []int

	// The array promised more sectors than the buffer holds.
	Truncated bool
}

// ApplyFixups undoes the NTFS update sequence protection in place.
//
// On disk the last two bytes of each sector are replaced by the update
// sequence number and the real values moved into the fixup array. The
// array's first element is the update sequence number itself, so
// fixup_count covers fixup_count-1 sectors. A sector is only restored
// if all of it lies within the buffer. Running this twice gives the
// same buffer.
func ApplyFixups(buf []byte, fixup_offset, fixup_count,
	bytes_per_sector int) (*FixupReport, error) {
	STATS.Inc_FixupEntry()

	report := &FixupReport{}
	if fixup_count == 0 {
		return report, nil
	}

	if bytes_per_sector < 2 {
		return report, errors.Wrapf(FixupOutOfRangeError,
			"invalid sector size %d", bytes_per_sector)
	}

	cursor := NewCursor(buf, 0)
	err := cursor.Seek(fixup_offset)
	if err != nil {
		report.Truncated = true
		return report, errors.Wrapf(FixupOutOfRangeError,
			"fixup array at %#x outside entry", fixup_offset)
	}

	usn, err := cursor.Bytes(2)
	if err != nil {
		report.Truncated = true
		return report, errors.Wrapf(FixupOutOfRangeError,
			"fixup array at %#x outside entry", fixup_offset)
	}
	report.UpdateSequence = uint16(usn[0]) | uint16(usn[1])<<8

	for i := 0; i < fixup_count-1; i++ {
		sector_end := (i + 1) * bytes_per_sector
		if sector_end > len(buf) {
			report.Truncated = true
			break
		}

		value, err := cursor.Bytes(2)
		if err != nil {
			report.Truncated = true
			break
		}

		if buf[sector_end-2] != usn[0] || buf[sector_end-1] != usn[1] {
			report.Mismatched = append(report.Mismatched, i)
		}

		buf[sector_end-2] = value[0]
		buf[sector_end-1] = value[1]
		report.Applied++
	}

	if report.Truncated {
		return report, errors.Wrapf(FixupOutOfRangeError,
			"applied %d of %d fixups", report.Applied, fixup_count-1)
	}

	return report, nil
}

// ApplyLegacyFixups copies fixup array element i into the tail of
// sector i for every element, the update sequence number included.
// Elements for sectors past the end of the buffer are skipped.
func ApplyLegacyFixups(buf []byte, fixup_offset, fixup_count,
	bytes_per_sector int) (*FixupReport, error) {
	STATS.Inc_FixupEntry()

	report := &FixupReport{}
	if fixup_count == 0 {
		return report, nil
	}

	if bytes_per_sector < 2 {
		return report, errors.Wrapf(FixupOutOfRangeError,
			"invalid sector size %d", bytes_per_sector)
	}

	if fixup_offset < 0 || fixup_offset+2*fixup_count > len(buf) {
		report.Truncated = true
		return report, errors.Wrapf(FixupOutOfRangeError,
			"fixup array at %#x outside entry", fixup_offset)
	}

	array := append([]byte{}, buf[fixup_offset:fixup_offset+2*fixup_count]...)
	report.UpdateSequence = uint16(array[0]) | uint16(array[1])<<8

	for i := 0; i < fixup_count; i++ {
		sector_end := (i + 1) * bytes_per_sector
		if sector_end > len(buf) {
			break
		}

		buf[sector_end-2] = array[2*i]
		buf[sector_end-1] = array[2*i+1]
		report.Applied++
	}

	return report, nil
}
