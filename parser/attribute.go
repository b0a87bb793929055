package parser

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

const (
	ATTR_TYPE_STANDARD_INFORMATION = 16
	ATTR_TYPE_ATTRIBUTE_LIST       = 32
	ATTR_TYPE_FILE_NAME            = 48
	ATTR_TYPE_OBJECT_ID            = 64
	ATTR_TYPE_SECURITY_DESCRIPTOR  = 80
	ATTR_TYPE_VOLUME_NAME          = 96
	ATTR_TYPE_VOLUME_INFORMATION   = 112
	ATTR_TYPE_DATA                 = 128
	ATTR_TYPE_INDEX_ROOT           = 144
	ATTR_TYPE_INDEX_ALLOCATION     = 160
	ATTR_TYPE_BITMAP               = 176
	ATTR_TYPE_REPARSE_POINT        = 192
	ATTR_TYPE_EA_INFORMATION       = 208
	ATTR_TYPE_EA                   = 224
	ATTR_TYPE_LOGGED_UTILITY       = 256

	// Marks the end of the attribute list.
	ATTR_TYPE_END = 0xFFFFFFFF

	// Fixed parts of the attribute headers and contents.
	ATTR_HEADER_SIZE                = 16
	RESIDENT_HEADER_SIZE            = 24
	NON_RESIDENT_HEADER_SIZE        = 64
	STANDARD_INFORMATION_SIZE_V1    = 48
	STANDARD_INFORMATION_SIZE       = 72
	FILE_NAME_SIZE                  = 66
	NON_RESIDENT_RUNLIST_FIELD      = 32
	NON_RESIDENT_ALLOCATED_SIZE_OFF = 40
)

func AttributeTypeName(value uint32) string {
	switch value {
	case ATTR_TYPE_STANDARD_INFORMATION:
		return "$STANDARD_INFORMATION"
	case ATTR_TYPE_ATTRIBUTE_LIST:
		return "$ATTRIBUTE_LIST"
	case ATTR_TYPE_FILE_NAME:
		return "$FILE_NAME"
	case ATTR_TYPE_OBJECT_ID:
		return "$OBJECT_ID"
	case ATTR_TYPE_SECURITY_DESCRIPTOR:
		return "$SECURITY_DESCRIPTOR"
	case ATTR_TYPE_VOLUME_NAME:
		return "$VOLUME_NAME"
	case ATTR_TYPE_VOLUME_INFORMATION:
		return "$VOLUME_INFORMATION"
	case ATTR_TYPE_DATA:
		return "$DATA"
	case ATTR_TYPE_INDEX_ROOT:
		return "$INDEX_ROOT"
	case ATTR_TYPE_INDEX_ALLOCATION:
		return "$INDEX_ALLOCATION"
	case ATTR_TYPE_BITMAP:
		return "$BITMAP"
	case ATTR_TYPE_REPARSE_POINT:
		return "$REPARSE_POINT"
	case ATTR_TYPE_EA_INFORMATION:
		return "$EA_INFORMATION"
	case ATTR_TYPE_EA:
		return "$EA"
	case ATTR_TYPE_LOGGED_UTILITY:
		return "$LOGGED_UTILITY_STREAM"
	}
	return "Unknown"
}

// Attribute is one of *StandardInformation, *FileName, *DataRun or
// *OtherAttribute.
type Attribute interface {
	Header() *AttributeHeader
	DebugString() string
}

// AttributeHeader holds the fields common to every attribute.
type AttributeHeader struct {
	Type       uint32
	TypeName   string
	Length     uint32
	Resident   bool
	NameLength uint8
	NameOffset uint16
	DataFlags  DataFlags
	ID         uint16

	// Stream name, only set for named attributes (e.g. ADS).
	Name string `json:",omitempty"`

	// Offset of the header within the entry.
	Offset int
}

func (self *AttributeHeader) Header() *AttributeHeader {
	return self
}

func (self *AttributeHeader) DebugString() string {
	result := fmt.Sprintf("struct NTFS_ATTRIBUTE @ %#x:\n", self.Offset)
	result += fmt.Sprintf("  Type: %v (%d)\n", self.TypeName, self.Type)
	result += fmt.Sprintf("  Length: %#0x\n", self.Length)
	result += fmt.Sprintf("  Resident: %v\n", self.Resident)
	result += fmt.Sprintf("  NameLength: %#0x\n", self.NameLength)
	result += fmt.Sprintf("  NameOffset: %#0x\n", self.NameOffset)
	result += fmt.Sprintf("  Flags: %v\n", self.DataFlags.DebugString())
	result += fmt.Sprintf("  ID: %#0x\n", self.ID)
	if self.Name != "" {
		result += fmt.Sprintf("  Name: %v\n", self.Name)
	}
	return result
}

type StandardInformation struct {
	AttributeHeader

	ContentSize   uint32
	ContentOffset uint16

	CreateTime       WinFileTime
	FileAlteredTime  WinFileTime
	MFTAlteredTime   WinFileTime
	FileAccessedTime WinFileTime
	Flags            FileAttributes

	MaxVersions uint32
	Version     uint32
	ClassID     uint32

	// The following are only present on NTFS 3.0+ (72 byte) records.
	OwnerID              uint32
	SecurityID           uint32
	QuotaCharged         uint64
	UpdateSequenceNumber uint64
}

func (self *StandardInformation) DebugString() string {
	result := self.AttributeHeader.DebugString()
	result += fmt.Sprintf("  Created: %v\n", self.CreateTime)
	result += fmt.Sprintf("  File Modified: %v\n", self.FileAlteredTime)
	result += fmt.Sprintf("  MFT Modified: %v\n", self.MFTAlteredTime)
	result += fmt.Sprintf("  Accessed: %v\n", self.FileAccessedTime)
	result += fmt.Sprintf("  Flags: %v\n", self.Flags)
	result += fmt.Sprintf("  Owner ID: %d\n", self.OwnerID)
	result += fmt.Sprintf("  Security ID: %d\n", self.SecurityID)
	result += fmt.Sprintf("  Quota Charged: %d\n", self.QuotaCharged)
	result += fmt.Sprintf("  USN: %d\n", self.UpdateSequenceNumber)
	return result
}

type NameSpace uint8

const (
	NAMESPACE_POSIX     NameSpace = 0
	NAMESPACE_WIN32     NameSpace = 1
	NAMESPACE_DOS       NameSpace = 2
	NAMESPACE_WIN32_DOS NameSpace = 3
)

func (self NameSpace) String() string {
	switch self {
	case NAMESPACE_POSIX:
		return "POSIX"
	case NAMESPACE_WIN32:
		return "Win32"
	case NAMESPACE_DOS:
		return "DOS"
	case NAMESPACE_WIN32_DOS:
		return "Win32 & DOS"
	}
	return "Unknown"
}

func (self NameSpace) MarshalText() ([]byte, error) {
	return []byte(self.String()), nil
}

type FileName struct {
	AttributeHeader

	ContentSize   uint32
	ContentOffset uint16

	ParentEntry    uint64
	ParentSequence uint16

	CreateTime       WinFileTime
	FileModifiedTime WinFileTime
	MFTModifiedTime  WinFileTime
	FileAccessedTime WinFileTime

	AllocatedSize  uint64
	RealSize       uint64
	Flags          FileAttributes
	ReparseValue   uint32
	FileNameLength uint8
	NameSpace      NameSpace

	// Name keeps only the low byte of every UTF-16 code unit (zero
	// bytes dropped). This loses anything outside Latin-1 but matches
	// the output of older tools byte for byte. NameIsLossy is set
	// when information was actually lost.
	Name        string
	NameIsLossy bool

	// The correctly decoded UTF-16LE name.
	UnicodeName string
}

func (self *FileName) DebugString() string {
	result := self.AttributeHeader.DebugString()
	result += fmt.Sprintf("  Parent: %d-%d\n", self.ParentEntry, self.ParentSequence)
	result += fmt.Sprintf("  Created: %v\n", self.CreateTime)
	result += fmt.Sprintf("  File Modified: %v\n", self.FileModifiedTime)
	result += fmt.Sprintf("  MFT Modified: %v\n", self.MFTModifiedTime)
	result += fmt.Sprintf("  Accessed: %v\n", self.FileAccessedTime)
	result += fmt.Sprintf("  Allocated Size: %d\n", self.AllocatedSize)
	result += fmt.Sprintf("  Actual Size: %d\n", self.RealSize)
	result += fmt.Sprintf("  Flags: %v\n", self.Flags)
	result += fmt.Sprintf("  Namespace: %v\n", self.NameSpace)
	result += fmt.Sprintf("  Name: %v\n", self.UnicodeName)
	if self.NameIsLossy {
		result += fmt.Sprintf("  Legacy Name: %v\n", self.Name)
	}
	return result
}

// DataRun is a non-resident $DATA attribute.
type DataRun struct {
	AttributeHeader

	VCNStart        uint64
	VCNEnd          uint64
	RunListOffset   uint16
	CompressionUnit uint16
	AllocatedSize   uint64
	ActualSize      uint64
	InitializedSize uint64

	// Only decoded when requested.
	Runs    []Run   `json:",omitempty"`
	RunList RunList `json:",omitempty"`
}

func (self *DataRun) DebugString() string {
	result := self.AttributeHeader.DebugString()
	result += fmt.Sprintf("  VCN: %#0x-%#0x\n", self.VCNStart, self.VCNEnd)
	result += fmt.Sprintf("  RunListOffset: %#0x\n", self.RunListOffset)
	result += fmt.Sprintf("  AllocatedSize: %#0x\n", self.AllocatedSize)
	result += fmt.Sprintf("  ActualSize: %#0x\n", self.ActualSize)
	result += fmt.Sprintf("  InitializedSize: %#0x\n", self.InitializedSize)
	if self.RunList != nil {
		result += fmt.Sprintf("  Runs: %v\n", self.Runs)
		result += fmt.Sprintf("  Run List: %v\n", self.RunList)
	}
	return result
}

// OtherAttribute keeps the header of attributes that are not decoded.
type OtherAttribute struct {
	AttributeHeader
}

type attributeOptions struct {
	SaveRunList        bool
	MaxRunListClusters int64
}

func attributeError(offset int, err error) error {
	return errors.Wrapf(AttributeParseError,
		"attribute at %#x: %v", offset, err)
}

// ParseAttribute decodes the attribute whose header starts at
// offset. It returns the attribute and the offset of the next one.
func ParseAttribute(buf []byte, offset int, options attributeOptions) (
	Attribute, int, error) {
	STATS.Inc_Attribute()

	header, err := parseAttributeHeader(buf, offset)
	if err != nil {
		return nil, offset, err
	}

	next := offset + int(header.Length)

	// Limit all further reads to the attribute itself.
	attr_buf := buf[:next]

	if header.Resident {
		cursor := NewCursor(attr_buf, offset+ATTR_HEADER_SIZE)
		content_size, err := cursor.Uint32()
		if err != nil {
			return nil, offset, attributeError(offset, err)
		}

		content_offset, err := cursor.Uint16()
		if err != nil {
			return nil, offset, attributeError(offset, err)
		}

		content_start := offset + int(content_offset)
		content_end := content_start + int(content_size)
		if content_start < offset || content_end > len(attr_buf) {
			return nil, offset, errors.Wrapf(AttributeParseError,
				"attribute at %#x: content %#x+%#x outside attribute",
				offset, content_offset, content_size)
		}
		content := attr_buf[content_start:content_end]

		switch header.Type {
		case ATTR_TYPE_STANDARD_INFORMATION:
			si, err := parseStandardInformation(content)
			if err != nil {
				return nil, offset, attributeError(offset, err)
			}
			si.AttributeHeader = *header
			si.ContentSize = content_size
			si.ContentOffset = content_offset
			return si, next, nil

		case ATTR_TYPE_FILE_NAME:
			fn, err := parseFileName(content)
			if err != nil {
				return nil, offset, attributeError(offset, err)
			}
			fn.AttributeHeader = *header
			fn.ContentSize = content_size
			fn.ContentOffset = content_offset
			return fn, next, nil
		}

		return &OtherAttribute{AttributeHeader: *header}, next, nil
	}

	if header.Type == ATTR_TYPE_DATA {
		data_run, err := parseDataRun(attr_buf, offset, options)
		if err != nil {
			return nil, offset, attributeError(offset, err)
		}
		data_run.AttributeHeader = *header
		return data_run, next, nil
	}

	return &OtherAttribute{AttributeHeader: *header}, next, nil
}

func parseAttributeHeader(buf []byte, offset int) (*AttributeHeader, error) {
	cursor := NewCursor(buf, 0)
	err := cursor.Seek(offset)
	if err != nil {
		return nil, attributeError(offset, err)
	}

	if cursor.Remaining() < ATTR_HEADER_SIZE {
		return nil, errors.Wrapf(AttributeParseError,
			"attribute at %#x: header truncated", offset)
	}

	header := &AttributeHeader{Offset: offset}

	// These can not fail after the check above.
	header.Type, _ = cursor.Uint32()
	header.Length, _ = cursor.Uint32()
	non_resident, _ := cursor.Uint8()
	header.NameLength, _ = cursor.Uint8()
	header.NameOffset, _ = cursor.Uint16()
	flags, _ := cursor.Uint16()
	header.ID, _ = cursor.Uint16()

	header.TypeName = AttributeTypeName(header.Type)
	header.Resident = non_resident == 0
	header.DataFlags = DataFlags(flags)

	// A zero length would never advance to the next attribute.
	if header.Length == 0 {
		return nil, errors.Wrapf(AttributeParseError,
			"attribute at %#x has zero length", offset)
	}

	if header.Length < ATTR_HEADER_SIZE ||
		uint64(offset)+uint64(header.Length) > uint64(len(buf)) {
		return nil, errors.Wrapf(AttributeParseError,
			"attribute at %#x: length %#x outside entry of %#x",
			offset, header.Length, len(buf))
	}

	if header.NameLength > 0 {
		name_start := offset + int(header.NameOffset)
		name_cursor := NewCursor(buf[:offset+int(header.Length)], 0)
		err := name_cursor.Seek(name_start)
		if err != nil {
			return nil, attributeError(offset, err)
		}
		raw, err := name_cursor.Bytes(int(header.NameLength) * 2)
		if err != nil {
			return nil, attributeError(offset, err)
		}
		header.Name, _ = decodeUTF16(raw)
	}

	return header, nil
}

func parseStandardInformation(content []byte) (*StandardInformation, error) {
	STATS.Inc_STANDARD_INFORMATION()

	if len(content) < STANDARD_INFORMATION_SIZE_V1 {
		return nil, errors.Wrapf(OutOfBoundsError,
			"$STANDARD_INFORMATION is only %d bytes", len(content))
	}

	cursor := NewCursor(content, 0)
	result := &StandardInformation{}

	result.CreateTime = readFileTime(cursor)
	result.FileAlteredTime = readFileTime(cursor)
	result.MFTAlteredTime = readFileTime(cursor)
	result.FileAccessedTime = readFileTime(cursor)

	flags, _ := cursor.Uint32()
	result.Flags = FileAttributes(flags)
	result.MaxVersions, _ = cursor.Uint32()
	result.Version, _ = cursor.Uint32()
	result.ClassID, _ = cursor.Uint32()

	if len(content) >= STANDARD_INFORMATION_SIZE {
		result.OwnerID, _ = cursor.Uint32()
		result.SecurityID, _ = cursor.Uint32()
		result.QuotaCharged, _ = cursor.Uint64()
		result.UpdateSequenceNumber, _ = cursor.Uint64()
	}

	return result, nil
}

func parseFileName(content []byte) (*FileName, error) {
	STATS.Inc_FILE_NAME()

	if len(content) < FILE_NAME_SIZE {
		return nil, errors.Wrapf(OutOfBoundsError,
			"$FILE_NAME is only %d bytes", len(content))
	}

	cursor := NewCursor(content, 0)
	result := &FileName{}

	parent, _ := cursor.Uint64()
	result.ParentEntry = parent & 0xFFFFFFFFFFFF
	result.ParentSequence = uint16(parent >> 48)

	result.CreateTime = readFileTime(cursor)
	result.FileModifiedTime = readFileTime(cursor)
	result.MFTModifiedTime = readFileTime(cursor)
	result.FileAccessedTime = readFileTime(cursor)

	result.AllocatedSize, _ = cursor.Uint64()
	result.RealSize, _ = cursor.Uint64()
	flags, _ := cursor.Uint32()
	result.Flags = FileAttributes(flags)
	result.ReparseValue, _ = cursor.Uint32()
	result.FileNameLength, _ = cursor.Uint8()
	namespace, _ := cursor.Uint8()
	result.NameSpace = NameSpace(namespace)

	raw, err := cursor.Bytes(int(result.FileNameLength) * 2)
	if err != nil {
		return nil, err
	}

	result.Name, result.NameIsLossy = decodeLowBytes(raw)
	result.UnicodeName, err = decodeUTF16(raw)
	if err != nil {
		// Fall back so there is always something to show.
		result.UnicodeName = result.Name
	}

	return result, nil
}

func parseDataRun(buf []byte, offset int, options attributeOptions) (
	*DataRun, error) {
	cursor := NewCursor(buf, 0)
	err := cursor.Seek(offset + ATTR_HEADER_SIZE)
	if err != nil {
		return nil, err
	}

	result := &DataRun{}
	result.VCNStart, err = cursor.Uint64()
	if err != nil {
		return nil, err
	}
	result.VCNEnd, err = cursor.Uint64()
	if err != nil {
		return nil, err
	}
	result.RunListOffset, err = cursor.Uint16()
	if err != nil {
		return nil, err
	}
	result.CompressionUnit, err = cursor.Uint16()
	if err != nil {
		return nil, err
	}

	// Sizes are informational - keep going without them if the
	// attribute is too short to hold them.
	if cursor.Seek(offset+NON_RESIDENT_ALLOCATED_SIZE_OFF) == nil {
		result.AllocatedSize, _ = cursor.Uint64()
		result.ActualSize, _ = cursor.Uint64()
		result.InitializedSize, _ = cursor.Uint64()
	}

	if !options.SaveRunList {
		return result, nil
	}

	err = cursor.Seek(offset + int(result.RunListOffset))
	if err != nil {
		return nil, err
	}

	run_list, runs, err := DecodeRunList(cursor, options.MaxRunListClusters)
	if err != nil {
		return nil, err
	}

	result.RunList = run_list
	result.Runs = runs

	return result, nil
}

func readFileTime(cursor *Cursor) WinFileTime {
	ticks, _ := cursor.Uint64()
	return NewWinFileTime(ticks)
}

// decodeLowBytes keeps the low byte of each UTF-16 unit.
func decodeLowBytes(raw []byte) (string, bool) {
	result := make([]rune, 0, len(raw)/2)
	lossy := false
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i+1] != 0 {
			lossy = true
		}
		if raw[i] != 0 {
			result = append(result, rune(raw[i]))
		}
	}
	return string(result), lossy
}

func decodeUTF16(raw []byte) (string, error) {
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	result, err := decoder.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(result), nil
}
