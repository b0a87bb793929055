package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"www.velocidex.com/golang/go-mftstat/parser"
)

var (
	entries_command = app.Command(
		"entries", "List a range of MFT entries.")

	entries_command_file_arg = entries_command.Arg(
		"file", "The image file to inspect",
	).Required().File()

	entries_command_offset = entries_command.Flag(
		"offset", "Sector offset of the volume in the image.",
	).Short('o').Default("0").Int64()

	entries_command_start = entries_command.Flag(
		"start", "First entry to list.",
	).Default("0").Uint64()

	entries_command_count = entries_command.Flag(
		"count", "Number of entries to list.",
	).Default("16").Uint64()

	entries_command_legacy_names = entries_command.Flag(
		"legacy_names", "Show names using the low byte of each character.",
	).Bool()
)

func doEntries() {
	session, _ := openSession(*entries_command_file_arg, *entries_command_offset)
	defer session.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"MFT Id",
		"Seq",
		"Allocated",
		"IsDir",
		"Parent",
		"Name",
		"SI Modified",
		"Status",
	})
	defer table.Render()

	end := *entries_command_start + *entries_command_count
	for id := *entries_command_start; id < end; id++ {
		mft_entry, err := session.GetEntry(id)
		if errors.Is(err, parser.EntryOutOfRangeError) {
			break
		}

		status := "ok"
		if err != nil {
			status = err.Error()
		} else if len(mft_entry.Warnings) > 0 {
			status = fmt.Sprintf("%d warnings", len(mft_entry.Warnings))
		}

		if mft_entry == nil {
			table.Append([]string{
				fmt.Sprintf("%d", id), "", "", "", "", "", "", status,
			})
			continue
		}

		parent := ""
		file_names := mft_entry.FileNames()
		if len(file_names) > 0 {
			parent = fmt.Sprintf("%d-%d", file_names[0].ParentEntry,
				file_names[0].ParentSequence)
		}

		modified := ""
		si := mft_entry.StandardInformation()
		if si != nil {
			modified = si.FileAlteredTime.String()
		}

		table.Append([]string{
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%d", mft_entry.SequenceValue),
			fmt.Sprintf("%v", mft_entry.IsAllocated()),
			fmt.Sprintf("%v", mft_entry.IsDir()),
			parent,
			mft_entry.FileName(*entries_command_legacy_names),
			modified,
			status,
		})
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case "entries":
			doEntries()
		default:
			return false
		}
		return true
	})
}
