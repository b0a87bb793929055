package parser

import (
	"fmt"
	"time"

	"github.com/Velocidex/ordereddict"
)

// This file defines a model for MFT entry.

type TimeStamps struct {
	CreateTime       time.Time
	FileModifiedTime time.Time
	MFTModifiedTime  time.Time
	AccessedTime     time.Time
}

type FilenameInfo struct {
	Times          TimeStamps
	Type           string
	Name           string
	ParentEntry    uint64
	ParentSequence uint16
	AllocatedSize  uint64
	RealSize       uint64
	Flags          []string
}

type AttributeInfo struct {
	Type     string
	TypeId   uint32
	Id       uint16
	Inode    string
	Resident bool
	Size     int64
	Name     string `json:",omitempty"`
	Runs     string `json:",omitempty"`
}

// Describe a single MFT entry.
type EntryInformation struct {
	MFTID          int64
	SequenceNumber uint16
	Size           int64
	Allocated      bool
	IsDir          bool
	LinkCount      uint16
	SI_Times       *TimeStamps `json:",omitempty"`
	SI_Flags       []string    `json:",omitempty"`

	// If multiple filenames are given, we list them here.
	Filenames []*FilenameInfo

	Attributes []*AttributeInfo

	Warnings []string `json:",omitempty"`
}

// ModelMFTEntry flattens a decoded entry for display or JSON output.
func ModelMFTEntry(entry *MFTEntry, mft_id uint64,
	options Options) *EntryInformation {
	result := &EntryInformation{
		MFTID:          int64(mft_id),
		SequenceNumber: entry.SequenceValue,
		Allocated:      entry.IsAllocated(),
		IsDir:          entry.IsDir(),
		LinkCount:      entry.LinkCount,
		Warnings:       entry.Warnings,
	}

	si := entry.StandardInformation()
	if si != nil {
		result.SI_Times = &TimeStamps{
			CreateTime:       si.CreateTime.Time,
			FileModifiedTime: si.FileAlteredTime.Time,
			MFTModifiedTime:  si.MFTAlteredTime.Time,
			AccessedTime:     si.FileAccessedTime.Time,
		}
		result.SI_Flags = si.Flags.Names()
	}

	for _, filename := range entry.FileNames() {
		name := filename.UnicodeName
		if options.LegacyNames {
			name = filename.Name
		}

		result.Filenames = append(result.Filenames, &FilenameInfo{
			Times: TimeStamps{
				CreateTime:       filename.CreateTime.Time,
				FileModifiedTime: filename.FileModifiedTime.Time,
				MFTModifiedTime:  filename.MFTModifiedTime.Time,
				AccessedTime:     filename.FileAccessedTime.Time,
			},
			Type:           filename.NameSpace.String(),
			Name:           name,
			ParentEntry:    filename.ParentEntry,
			ParentSequence: filename.ParentSequence,
			AllocatedSize:  filename.AllocatedSize,
			RealSize:       filename.RealSize,
			Flags:          filename.Flags.Names(),
		})
	}

	for _, attr := range entry.Attributes {
		header := attr.Header()
		info := &AttributeInfo{
			Type:     header.TypeName,
			TypeId:   header.Type,
			Id:       header.ID,
			Resident: header.Resident,
			Inode: fmt.Sprintf("%v-%v-%v",
				mft_id, header.Type, header.ID),
			Name: header.Name,
		}

		switch t := attr.(type) {
		case *DataRun:
			info.Size = int64(t.ActualSize)
			if t.Runs != nil {
				info.Runs = fmt.Sprintf("%v", t.Runs)
			}
			if header.Name == "" && result.Size == 0 {
				result.Size = info.Size
			}

		case *StandardInformation:
			info.Size = int64(t.ContentSize)

		case *FileName:
			info.Size = int64(t.ContentSize)
		}

		result.Attributes = append(result.Attributes, info)
	}

	return result
}

// DescribeGeometry returns the volume geometry with the derived sizes
// that were used to locate entries.
func DescribeGeometry(geometry VolumeGeometry) *ordereddict.Dict {
	return ordereddict.NewDict().
		Set("OEMName", geometry.OEMName).
		Set("BytesPerSector", geometry.BytesPerSector).
		Set("SectorsPerCluster", geometry.SectorsPerCluster).
		Set("ClusterSize", geometry.ClusterSize()).
		Set("EntryRecordSize", geometry.EntryRecordSize).
		Set("IndexRecordSize", geometry.IndexRecordSize).
		Set("EntriesPerCluster", geometry.EntriesPerCluster()).
		Set("MFTStartCluster", geometry.MFTStartCluster).
		Set("MFTMirrorStartCluster", geometry.MFTMirrorStartCluster).
		Set("MFTOffset", geometry.MFTOffset()).
		Set("TotalSectors", geometry.TotalSectors).
		Set("SerialNumber", fmt.Sprintf("%#x", geometry.SerialNumber)).
		Set("Signature", fmt.Sprintf("%#x", geometry.Signature))
}
