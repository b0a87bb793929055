package main

import (
	"encoding/json"
	"fmt"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-mftstat/parser"
)

var (
	stat_command = app.Command(
		"stat", "Inspect an MFT entry.")

	stat_command_file_arg = stat_command.Arg(
		"file", "The image file to inspect",
	).Required().File()

	stat_command_arg = stat_command.Arg(
		"entry", "The MFT entry number.",
	).Default("0").Uint64()

	stat_command_offset = stat_command.Flag(
		"offset", "Sector offset of the volume in the image.",
	).Short('o').Default("0").Int64()

	stat_command_verbose = stat_command.Flag(
		"verbose", "Show all the entry fields.",
	).Short('v').Bool()

	stat_command_legacy_names = stat_command.Flag(
		"legacy_names", "Show names using the low byte of each character.",
	).Bool()

	stat_command_stats = stat_command.Flag(
		"stats", "Show decoder statistics.",
	).Bool()
)

func doSTAT() {
	session, options := openSession(*stat_command_file_arg, *stat_command_offset)
	defer session.Close()

	if *stat_command_legacy_names {
		options.LegacyNames = true
	}

	mft_entry, err := session.GetEntry(*stat_command_arg)
	if mft_entry == nil {
		kingpin.FatalIfError(err, "Can not open entry")
	}

	if *debug_flag {
		parser.Debug(mft_entry)
	}

	if *stat_command_verbose {
		fmt.Println(mft_entry.Display())

	} else {
		stat := parser.ModelMFTEntry(mft_entry, *stat_command_arg, options)
		serialized, err := json.MarshalIndent(stat, " ", " ")
		kingpin.FatalIfError(err, "Marshal")

		fmt.Println(string(serialized))
	}

	// A partial entry is still shown before reporting the error.
	kingpin.FatalIfError(err, "Entry %v", *stat_command_arg)

	if *stat_command_stats {
		serialized, err := json.MarshalIndent(session.Stats(), " ", " ")
		kingpin.FatalIfError(err, "Marshal")

		fmt.Println(string(serialized))
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case "stat":
			doSTAT()
		default:
			return false
		}
		return true
	})
}
