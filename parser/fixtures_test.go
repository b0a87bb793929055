package parser

import (
	"encoding/binary"
	"unicode/utf16"

	"go.uber.org/zap"
)

// Builders for synthetic volumes. Everything uses 512 byte sectors, 8
// sectors per cluster and 1024 byte entries unless a test says
// otherwise.

const (
	testSectorSize  = 512
	testClusterSize = 4096
	testRecordSize  = 1024
	testUSN         = 0x0102

	// 2001-01-01T00:00:00Z
	testTicks = 126227808000000000
)

var le = binary.LittleEndian

func testOptions() Options {
	options := GetDefaultOptions()
	options.Logger = zap.NewNop()
	return options
}

func testGeometry() VolumeGeometry {
	return VolumeGeometry{
		BytesPerSector:    testSectorSize,
		SectorsPerCluster: testClusterSize / testSectorSize,
		EntryRecordSize:   testRecordSize,
	}
}

func align8(n int) int {
	return (n + 7) &^ 7
}

func buildBootSector(bytes_per_sector uint16, sectors_per_cluster uint8,
	mft_cluster uint64, record_byte int8) []byte {
	buf := make([]byte, BOOT_SECTOR_SIZE)
	copy(buf, []byte{0xEB, 0x52, 0x90})
	copy(buf[3:], "NTFS    ")
	le.PutUint16(buf[0x0B:], bytes_per_sector)
	buf[0x0D] = sectors_per_cluster
	buf[0x15] = 0xF8
	le.PutUint64(buf[0x28:], 88)
	le.PutUint64(buf[0x30:], mft_cluster)
	le.PutUint64(buf[0x38:], 2)
	buf[0x40] = byte(record_byte)
	buf[0x44] = 1
	le.PutUint64(buf[0x48:], 0x1234abcd)
	buf[0x1FE] = 0x55
	buf[0x1FF] = 0xAA
	return buf
}

type testRun struct {
	Offset int64
	Length uint64
	Sparse bool
}

func minimalUnsigned(value uint64) []byte {
	result := []byte{}
	for {
		result = append(result, byte(value))
		value >>= 8
		if value == 0 {
			return result
		}
	}
}

func minimalSigned(value int64) []byte {
	result := []byte{}
	for {
		b := byte(value)
		result = append(result, b)
		value >>= 8
		if (value == 0 && b&0x80 == 0) || (value == -1 && b&0x80 != 0) {
			return result
		}
	}
}

func encodeRunList(runs ...testRun) []byte {
	result := []byte{}
	for _, run := range runs {
		length := minimalUnsigned(run.Length)
		offset := []byte{}
		if !run.Sparse {
			offset = minimalSigned(run.Offset)
		}
		result = append(result, byte(len(offset)<<4|len(length)))
		result = append(result, length...)
		result = append(result, offset...)
	}
	return append(result, 0)
}

func residentAttribute(attr_type uint32, id uint16, content []byte) []byte {
	length := align8(RESIDENT_HEADER_SIZE + len(content))
	buf := make([]byte, length)
	le.PutUint32(buf[0:], attr_type)
	le.PutUint32(buf[4:], uint32(length))
	le.PutUint16(buf[14:], id)
	le.PutUint32(buf[16:], uint32(len(content)))
	le.PutUint16(buf[20:], RESIDENT_HEADER_SIZE)
	copy(buf[RESIDENT_HEADER_SIZE:], content)
	return buf
}

func nonResidentData(id uint16, run_list []byte, clusters uint64) []byte {
	length := align8(NON_RESIDENT_HEADER_SIZE + len(run_list))
	buf := make([]byte, length)
	le.PutUint32(buf[0:], ATTR_TYPE_DATA)
	le.PutUint32(buf[4:], uint32(length))
	buf[8] = 1
	le.PutUint16(buf[14:], id)
	le.PutUint64(buf[24:], clusters-1)
	le.PutUint16(buf[NON_RESIDENT_RUNLIST_FIELD:], NON_RESIDENT_HEADER_SIZE)
	le.PutUint64(buf[40:], clusters*testClusterSize)
	le.PutUint64(buf[48:], clusters*testClusterSize)
	le.PutUint64(buf[56:], clusters*testClusterSize)
	copy(buf[NON_RESIDENT_HEADER_SIZE:], run_list)
	return buf
}

func standardInformationContent(ticks uint64, flags uint32) []byte {
	buf := make([]byte, STANDARD_INFORMATION_SIZE)
	for i := 0; i < 4; i++ {
		le.PutUint64(buf[i*8:], ticks)
	}
	le.PutUint32(buf[32:], flags)
	le.PutUint32(buf[48:], 0)
	le.PutUint32(buf[52:], 0x100)
	le.PutUint64(buf[64:], 0x5000)
	return buf
}

func fileNameContent(parent uint64, parent_sequence uint16, name string,
	namespace NameSpace, ticks uint64) []byte {
	units := utf16.Encode([]rune(name))
	buf := make([]byte, FILE_NAME_SIZE+2*len(units))
	le.PutUint64(buf[0:], parent|uint64(parent_sequence)<<48)
	for i := 0; i < 4; i++ {
		le.PutUint64(buf[8+i*8:], ticks)
	}
	le.PutUint64(buf[40:], 4096)
	le.PutUint64(buf[48:], 11)
	le.PutUint32(buf[56:], 0x20)
	buf[64] = byte(len(units))
	buf[65] = byte(namespace)
	for i, unit := range units {
		le.PutUint16(buf[FILE_NAME_SIZE+2*i:], unit)
	}
	return buf
}

type testEntry struct {
	RecordNumber uint32
	Sequence     uint16
	Flags        uint16
	Attributes   [][]byte

	// Leave out the 0xFFFFFFFF marker so only the used size ends the
	// attribute list.
	NoEndMarker bool
}

// buildEntry lays out an entry and protects it with fixups the way it
// is found on disk.
func buildEntry(record_size, sector_size int, entry testEntry) []byte {
	buf := make([]byte, record_size)
	fixup_offset := ENTRY_HEADER_SIZE
	fixup_count := record_size/sector_size + 1
	attribute_offset := align8(fixup_offset + 2*fixup_count)

	copy(buf, FILE_SIGNATURE)
	le.PutUint16(buf[4:], uint16(fixup_offset))
	le.PutUint16(buf[6:], uint16(fixup_count))
	le.PutUint64(buf[8:], 0x1000)
	le.PutUint16(buf[16:], entry.Sequence)
	le.PutUint16(buf[18:], 1)
	le.PutUint16(buf[20:], uint16(attribute_offset))
	le.PutUint16(buf[22:], entry.Flags)
	le.PutUint32(buf[28:], uint32(record_size))
	le.PutUint16(buf[40:], uint16(len(entry.Attributes)))
	le.PutUint32(buf[44:], entry.RecordNumber)

	pos := attribute_offset
	for _, attr := range entry.Attributes {
		copy(buf[pos:], attr)
		pos += len(attr)
	}

	if !entry.NoEndMarker {
		le.PutUint32(buf[pos:], ATTR_TYPE_END)
		pos += 8
	}
	le.PutUint32(buf[24:], uint32(pos))

	protectEntry(buf, fixup_offset, fixup_count, sector_size, testUSN)
	return buf
}

func protectEntry(buf []byte, fixup_offset, fixup_count, sector_size int,
	usn uint16) {
	le.PutUint16(buf[fixup_offset:], usn)
	for i := 0; i < fixup_count-1; i++ {
		end := (i + 1) * sector_size
		copy(buf[fixup_offset+2+2*i:], buf[end-2:end])
		le.PutUint16(buf[end-2:], usn)
	}
}

// The $MFT of the test image occupies clusters 4, 5 and 10.
var testMFTRunList = encodeRunList(
	testRun{Offset: 4, Length: 2},
	testRun{Offset: 6, Length: 1},
)

const (
	testImageClusters = 11
	testEntry9Offset  = 10*testClusterSize + testRecordSize
)

// buildImage returns an 11 cluster volume preceded by skip bytes. Entry
// 9 is a file called hello.txt.
func buildImage(skip int, with_data bool) []byte {
	return buildImageWithMFT(skip, testMFTAttributes(with_data))
}

func testMFTAttributes(with_data bool) [][]byte {
	mft_attributes := [][]byte{
		residentAttribute(ATTR_TYPE_STANDARD_INFORMATION, 0,
			standardInformationContent(testTicks, 0x06)),
		residentAttribute(ATTR_TYPE_FILE_NAME, 1,
			fileNameContent(5, 5, "$MFT", NAMESPACE_WIN32_DOS, testTicks)),
	}
	if with_data {
		mft_attributes = append(mft_attributes,
			nonResidentData(2, testMFTRunList, 3))
	}
	return mft_attributes
}

func buildImageWithMFT(skip int, mft_attributes [][]byte) []byte {
	image := make([]byte, skip+testImageClusters*testClusterSize)
	copy(image[skip:], buildBootSector(testSectorSize, 8, 4, -10))

	copy(image[skip+4*testClusterSize:], buildEntry(
		testRecordSize, testSectorSize, testEntry{
			RecordNumber: 0,
			Sequence:     1,
			Flags:        1,
			Attributes:   mft_attributes,
		}))

	copy(image[skip+testEntry9Offset:], buildEntry(
		testRecordSize, testSectorSize, testEntry{
			RecordNumber: 9,
			Sequence:     2,
			Flags:        1,
			Attributes: [][]byte{
				residentAttribute(ATTR_TYPE_STANDARD_INFORMATION, 0,
					standardInformationContent(testTicks, 0x20)),
				residentAttribute(ATTR_TYPE_FILE_NAME, 1,
					fileNameContent(5, 5, "hello.txt", NAMESPACE_WIN32, testTicks)),
				residentAttribute(ATTR_TYPE_DATA, 2, []byte("hello world")),
			},
		}))

	return image
}
