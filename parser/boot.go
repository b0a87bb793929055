package parser

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	BOOT_SECTOR_SIZE = 512
	BOOT_SIGNATURE   = 0xaa55
)

// The on disk layout of the NTFS boot sector. Reserved and unused
// ranges are kept as padding fields so the struct covers exactly 512
// bytes.
type BootSector struct {
	Jump              [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	Reserved          [2]byte
	Unused1           [5]byte
	MediaDescriptor   uint8
	Unused2           [2]byte
	Unused3           [8]byte
	Unused4           [4]byte
	Unused5           [4]byte
	TotalSectors      uint64
	MFTCluster        uint64
	MFTMirrorCluster  uint64
	RecordSize        int8
	Unused6           [3]byte
	IndexRecordSize   int8
	Unused7           [3]byte
	SerialNumber      uint64
	Unused8           [4]byte
	BootCode          [426]byte
	Signature         uint16
}

// VolumeGeometry holds the constants needed to find and decode MFT
// entries. It is read once per volume and never changes.
type VolumeGeometry struct {
	BytesPerSector        uint32
	SectorsPerCluster     uint32
	EntryRecordSize       uint32
	IndexRecordSize       uint32
	MFTStartCluster       uint64
	MFTMirrorStartCluster uint64

	OEMName         string
	MediaDescriptor uint8
	TotalSectors    uint64
	SerialNumber    uint64
	Signature       uint16
}

func (self VolumeGeometry) ClusterSize() int64 {
	return int64(self.SectorsPerCluster) * int64(self.BytesPerSector)
}

// Number of entries in a cluster. This is 0 when records are larger
// than clusters (e.g. 4k records on 512 byte clusters).
func (self VolumeGeometry) EntriesPerCluster() int64 {
	if self.EntryRecordSize == 0 {
		return 0
	}
	return self.ClusterSize() / int64(self.EntryRecordSize)
}

func (self VolumeGeometry) MFTOffset() int64 {
	return int64(self.MFTStartCluster) * self.ClusterSize()
}

func (self VolumeGeometry) DebugString() string {
	result := "struct VolumeGeometry:\n"
	result += fmt.Sprintf("  OEMName: %v\n", self.OEMName)
	result += fmt.Sprintf("  BytesPerSector: %#0x\n", self.BytesPerSector)
	result += fmt.Sprintf("  SectorsPerCluster: %#0x\n", self.SectorsPerCluster)
	result += fmt.Sprintf("  EntryRecordSize: %#0x\n", self.EntryRecordSize)
	result += fmt.Sprintf("  IndexRecordSize: %#0x\n", self.IndexRecordSize)
	result += fmt.Sprintf("  MFTStartCluster: %#0x\n", self.MFTStartCluster)
	result += fmt.Sprintf("  MFTMirrorStartCluster: %#0x\n", self.MFTMirrorStartCluster)
	result += fmt.Sprintf("  MediaDescriptor: %#0x\n", self.MediaDescriptor)
	result += fmt.Sprintf("  TotalSectors: %#0x\n", self.TotalSectors)
	result += fmt.Sprintf("  SerialNumber: %#0x\n", self.SerialNumber)
	result += fmt.Sprintf("  Signature: %#0x\n", self.Signature)
	return result
}

// RecordSizeFromByte decodes the boot sector's "size of record"
// bytes. Positive values count clusters, negative values are a power
// of two in bytes regardless of the cluster size.
func RecordSizeFromByte(value int8, cluster_size int64) int64 {
	if value >= 0 {
		return int64(value) * cluster_size
	}

	exponent := -int64(value)
	if exponent > 31 {
		return 0
	}
	return 1 << uint(exponent)
}

// ParseBootSector decodes the first 512 bytes of the volume.
func ParseBootSector(buf []byte, options Options) (VolumeGeometry, error) {
	STATS.Inc_BootSector()

	result := VolumeGeometry{}
	if len(buf) < BOOT_SECTOR_SIZE {
		return result, errors.Wrapf(MalformedBootSectorError,
			"boot sector is only %d bytes", len(buf))
	}

	boot := &BootSector{}
	err := restruct.Unpack(buf[:BOOT_SECTOR_SIZE], binary.LittleEndian, boot)
	if err != nil {
		return result, errors.Wrap(MalformedBootSectorError, err.Error())
	}

	result = VolumeGeometry{
		BytesPerSector:        uint32(boot.BytesPerSector),
		SectorsPerCluster:     uint32(boot.SectorsPerCluster),
		MFTStartCluster:       boot.MFTCluster,
		MFTMirrorStartCluster: boot.MFTMirrorCluster,
		OEMName:               strings.TrimRight(string(boot.OEMName[:]), " \x00"),
		MediaDescriptor:       boot.MediaDescriptor,
		TotalSectors:          boot.TotalSectors,
		SerialNumber:          boot.SerialNumber,
		Signature:             boot.Signature,
	}

	if boot.Signature != BOOT_SIGNATURE {
		err := errors.Wrapf(MalformedBootSectorError,
			"boot signature is %#04x not %#04x", boot.Signature, BOOT_SIGNATURE)
		if options.StrictBootSector {
			return result, err
		}
		options.GetLogger().Warn("Boot sector signature mismatch",
			zap.Uint16("signature", boot.Signature))
	}

	// Nothing else can be located without these.
	cluster_size := result.ClusterSize()
	if cluster_size == 0 {
		return result, errors.Wrapf(MalformedBootSectorError,
			"invalid cluster geometry: %d bytes per sector, %d sectors per cluster",
			result.BytesPerSector, result.SectorsPerCluster)
	}

	record_size := RecordSizeFromByte(boot.RecordSize, cluster_size)
	if record_size <= 0 || record_size > 0xffffffff {
		return result, errors.Wrapf(MalformedBootSectorError,
			"invalid entry record size byte %#x", uint8(boot.RecordSize))
	}
	result.EntryRecordSize = uint32(record_size)

	// The index record size is informational only.
	index_size := RecordSizeFromByte(boot.IndexRecordSize, cluster_size)
	if index_size > 0 && index_size <= 0xffffffff {
		result.IndexRecordSize = uint32(index_size)
	}

	DebugPrint("Boot sector: %v", result.DebugString())
	return result, nil
}

// ReadBootSector reads exactly one boot sector at offset (the start of
// the volume within the image).
func ReadBootSector(reader io.ReaderAt, offset int64,
	options Options) (VolumeGeometry, error) {
	buf := make([]byte, BOOT_SECTOR_SIZE)
	n, err := reader.ReadAt(buf, offset)
	if n < BOOT_SECTOR_SIZE {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return VolumeGeometry{}, errors.Wrapf(MalformedBootSectorError,
			"reading boot sector at %#x: %v", offset, err)
	}

	return ParseBootSector(buf, options)
}
