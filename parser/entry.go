package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ENTRY_HEADER_SIZE = 48

	// Oldest NTFS versions end the header before the record number.
	ENTRY_HEADER_MIN_ATTRIBUTE_OFFSET = 0x2a
)

var (
	FILE_SIGNATURE = []byte("FILE")
	BAAD_SIGNATURE = []byte("BAAD")
)

// The fixed header at the start of every MFT entry.
type EntryHeader struct {
	Signature           [4]byte
	FixupOffset         uint16
	FixupCount          uint16
	LogSequenceNumber   uint64
	SequenceValue       uint16
	LinkCount           uint16
	AttributeOffset     uint16
	Flags               uint16
	UsedSize            uint32
	AllocatedSize       uint32
	BaseRecordReference uint64
	NextAttributeID     uint16
	Padding             uint16
	RecordNumber        uint32
}

// MFTEntry is one decoded entry. The buffer has been fixed up.
type MFTEntry struct {
	Buffer []byte `json:"-"`

	Signature            string
	FixupOffset          uint16
	FixupCount           uint16
	LogSequenceNumber    uint64
	SequenceValue        uint16
	LinkCount            uint16
	FirstAttributeOffset uint16
	Flags                EntryFlags
	UsedSize             uint32
	AllocatedSize        uint32
	BaseRecordReference  uint64
	NextAttributeID      uint16
	RecordNumber         uint32

	Attributes []Attribute

	// Anomalies that were recovered from.
	Warnings []string `json:",omitempty"`
}

type DecodeOptions struct {
	// Keep the run list of non-resident $DATA attributes. Needed for
	// the $MFT's own entry.
	SaveRunList bool

	MaxRunListClusters int64

	Options Options
}

func (self *MFTEntry) warn(options Options, message string, err error) {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	self.Warnings = append(self.Warnings, message)
	options.GetLogger().Warn(message,
		zap.Uint32("record_number", self.RecordNumber))
}

func (self *MFTEntry) IsAllocated() bool {
	return self.Flags.IsAllocated()
}

func (self *MFTEntry) IsDir() bool {
	return self.Flags.IsDirectory()
}

func (self *MFTEntry) StandardInformation() *StandardInformation {
	for _, attr := range self.Attributes {
		si, ok := attr.(*StandardInformation)
		if ok {
			return si
		}
	}
	return nil
}

func (self *MFTEntry) FileNames() []*FileName {
	result := []*FileName{}
	for _, attr := range self.Attributes {
		fn, ok := attr.(*FileName)
		if ok {
			result = append(result, fn)
		}
	}
	return result
}

// FileName returns the preferred (long) name of the entry.
func (self *MFTEntry) FileName(legacy bool) string {
	short_name := ""
	for _, fn := range self.FileNames() {
		name := fn.UnicodeName
		if legacy {
			name = fn.Name
		}

		switch fn.NameSpace {
		case NAMESPACE_WIN32, NAMESPACE_WIN32_DOS, NAMESPACE_POSIX:
			return name
		default:
			short_name = name
		}
	}
	return short_name
}

func (self *MFTEntry) DataRuns() []*DataRun {
	result := []*DataRun{}
	for _, attr := range self.Attributes {
		data, ok := attr.(*DataRun)
		if ok {
			result = append(result, data)
		}
	}
	return result
}

// RunList returns the run list of the unnamed $DATA stream, if it was
// decoded.
func (self *MFTEntry) RunList() (RunList, []Run) {
	for _, data := range self.DataRuns() {
		if data.Name == "" && data.RunList != nil {
			return data.RunList, data.Runs
		}
	}
	return nil, nil
}

func (self *MFTEntry) DebugString() string {
	result := "struct MFT_ENTRY:\n"
	result += fmt.Sprintf("  Signature: %v\n", self.Signature)
	result += fmt.Sprintf("  Fixup_offset: %#0x\n", self.FixupOffset)
	result += fmt.Sprintf("  Fixup_count: %#0x\n", self.FixupCount)
	result += fmt.Sprintf("  Logfile_sequence_number: %#0x\n", self.LogSequenceNumber)
	result += fmt.Sprintf("  Sequence_value: %#0x\n", self.SequenceValue)
	result += fmt.Sprintf("  Link_count: %#0x\n", self.LinkCount)
	result += fmt.Sprintf("  Attribute_offset: %#0x\n", self.FirstAttributeOffset)
	result += fmt.Sprintf("  Flags: %v\n", self.Flags.DebugString())
	result += fmt.Sprintf("  Mft_entry_size: %#0x\n", self.UsedSize)
	result += fmt.Sprintf("  Mft_entry_allocated: %#0x\n", self.AllocatedSize)
	result += fmt.Sprintf("  Base_record_reference: %#0x\n", self.BaseRecordReference)
	result += fmt.Sprintf("  Next_attribute_id: %#0x\n", self.NextAttributeID)
	result += fmt.Sprintf("  Record_number: %#0x\n", self.RecordNumber)
	return result
}

func (self *MFTEntry) Display() string {
	result := []string{self.DebugString()}

	result = append(result, "Attribute:")
	for _, attr := range self.Attributes {
		result = append(result, attr.DebugString())
	}

	for _, warning := range self.Warnings {
		result = append(result, "Warning: "+warning)
	}

	return strings.Join(result, "\n")
}

// DecodeEntry decodes one entry record. The buffer is fixed up in
// place.
//
// Decoding goes ReadBuffer -> ApplyFixups -> ParseHeader ->
// IterateAttributes -> Done. On failure a *DecodeError names the stage
// and, once the header is parsed, the entry is returned as well with
// the attributes decoded before the failure.
func DecodeEntry(buf []byte, geometry VolumeGeometry,
	options DecodeOptions) (*MFTEntry, error) {
	STATS.Inc_MFT_ENTRY()

	// ReadBuffer
	record_size := int(geometry.EntryRecordSize)
	if record_size == 0 || len(buf) < record_size {
		return nil, &DecodeError{
			Stage: StageReadBuffer,
			Err: errors.Wrapf(EntryReadTruncatedError,
				"have %d bytes, entry is %d", len(buf), record_size),
		}
	}
	buf = buf[:record_size]

	if record_size < ENTRY_HEADER_SIZE {
		return nil, &DecodeError{
			Stage: StageReadBuffer,
			Err: errors.Wrapf(MalformedHeaderError,
				"entry size %d smaller than its header", record_size),
		}
	}

	entry := &MFTEntry{Buffer: buf}

	// ApplyFixups: the fixup fields are outside any sector tail so
	// they can be read before the fixup.
	fixup_offset := binary.LittleEndian.Uint16(buf[4:6])
	fixup_count := binary.LittleEndian.Uint16(buf[6:8])

	apply_fixups := ApplyFixups
	if options.Options.LegacyFixups {
		apply_fixups = ApplyLegacyFixups
	}

	report, err := apply_fixups(buf, int(fixup_offset), int(fixup_count),
		int(geometry.BytesPerSector))
	if err != nil {
		entry.warn(options.Options, "Fixups incomplete", err)
	}
	if report != nil && len(report.Mismatched) > 0 {
		entry.warn(options.Options, fmt.Sprintf(
			"Fixup sequence mismatch in sectors %v", report.Mismatched), nil)
	}

	// ParseHeader
	header := &EntryHeader{}
	err = restruct.Unpack(buf[:ENTRY_HEADER_SIZE], binary.LittleEndian, header)
	if err != nil {
		return nil, &DecodeError{Stage: StageParseHeader,
			Err: errors.Wrap(MalformedHeaderError, err.Error())}
	}

	entry.Signature = string(header.Signature[:])
	entry.FixupOffset = header.FixupOffset
	entry.FixupCount = header.FixupCount
	entry.LogSequenceNumber = header.LogSequenceNumber
	entry.SequenceValue = header.SequenceValue
	entry.LinkCount = header.LinkCount
	entry.FirstAttributeOffset = header.AttributeOffset
	entry.Flags = EntryFlags(header.Flags)
	entry.UsedSize = header.UsedSize
	entry.AllocatedSize = header.AllocatedSize
	entry.BaseRecordReference = header.BaseRecordReference
	entry.NextAttributeID = header.NextAttributeID
	if header.AttributeOffset >= ENTRY_HEADER_SIZE {
		entry.RecordNumber = header.RecordNumber
	}

	if !bytes.Equal(header.Signature[:], FILE_SIGNATURE) {
		entry.warn(options.Options, fmt.Sprintf(
			"Unexpected entry signature %q", entry.Signature), nil)
	}

	if int(header.AttributeOffset) < ENTRY_HEADER_MIN_ATTRIBUTE_OFFSET ||
		int(header.AttributeOffset) >= record_size {
		return entry, &DecodeError{Stage: StageParseHeader,
			Err: errors.Wrapf(MalformedHeaderError,
				"first attribute offset %#x", header.AttributeOffset)}
	}

	used_size := int(header.UsedSize)
	if used_size > record_size {
		entry.warn(options.Options, fmt.Sprintf(
			"Used size %#x larger than entry, capped to %#x",
			used_size, record_size), nil)
		used_size = record_size
	}

	// IterateAttributes
	attribute_options := attributeOptions{
		SaveRunList:        options.SaveRunList,
		MaxRunListClusters: options.MaxRunListClusters,
	}

	cursor := NewCursor(buf, int(header.AttributeOffset))
	for cursor.Position() < used_size {
		position := cursor.Position()
		attr_type, err := cursor.Uint32()
		if err != nil {
			return entry, &DecodeError{Stage: StageAttributes,
				Err: attributeError(position, err)}
		}

		if attr_type == ATTR_TYPE_END {
			break
		}

		attr, next, err := ParseAttribute(buf, position, attribute_options)
		if err != nil {
			return entry, &DecodeError{Stage: StageAttributes, Err: err}
		}

		entry.Attributes = append(entry.Attributes, attr)

		err = cursor.Seek(next)
		if err != nil {
			return entry, &DecodeError{Stage: StageAttributes,
				Err: attributeError(position, err)}
		}
	}

	STATS.Inc_MFT_ENTRY_attributes(len(entry.Attributes))
	return entry, nil
}
