package parser

import (
	"fmt"
	"strings"
)

// FileAttributes are the DOS style flags kept in
// $STANDARD_INFORMATION and $FILE_NAME.
type FileAttributes uint32

var file_attribute_names = []struct {
	mask uint32
	name string
}{
	{0x0001, "Read Only"},
	{0x0002, "Hidden"},
	{0x0004, "System"},
	{0x0020, "Archive"},
	{0x0040, "Device"},
	{0x0080, "Normal"},
	{0x0100, "Temporary"},
	{0x0200, "Sparse File"},
	{0x0400, "Reparse Point"},
	{0x0800, "Compressed"},
	{0x1000, "Offline"},
	{0x2000, "Content is not being indexed for faster searches"},
	{0x4000, "Encrypted"},
}

func (self FileAttributes) Names() []string {
	result := []string{}
	for _, item := range file_attribute_names {
		if uint32(self)&item.mask != 0 {
			result = append(result, item.name)
		}
	}
	return result
}

// String lists the set flags the way istat does.
func (self FileAttributes) String() string {
	return strings.Join(self.Names(), ", ")
}

func (self FileAttributes) MarshalText() ([]byte, error) {
	return []byte(self.String()), nil
}

// Flags of the attribute header.
type DataFlags uint16

func (self DataFlags) IsCompressed() bool {
	return self&(1<<0) != 0
}

func (self DataFlags) IsEncrypted() bool {
	return self&(1<<14) != 0
}

func (self DataFlags) IsSparse() bool {
	return self&(1<<15) != 0
}

func (self DataFlags) DebugString() string {
	names := []string{}
	if self.IsCompressed() {
		names = append(names, "COMPRESSED")
	}
	if self.IsEncrypted() {
		names = append(names, "ENCRYPTED")
	}
	if self.IsSparse() {
		names = append(names, "SPARSE")
	}

	return fmt.Sprintf("%d (%v)", self, strings.Join(names, ","))
}

// Flags of the MFT entry header.
type EntryFlags uint16

func (self EntryFlags) IsAllocated() bool {
	return self&(1<<0) != 0
}

func (self EntryFlags) IsDirectory() bool {
	return self&(1<<1) != 0
}

func (self EntryFlags) DebugString() string {
	names := []string{}
	if self.IsAllocated() {
		names = append(names, "ALLOCATED")
	}
	if self.IsDirectory() {
		names = append(names, "DIRECTORY")
	}

	return fmt.Sprintf("%d (%v)", self, strings.Join(names, ","))
}
