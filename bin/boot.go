package main

import (
	"encoding/json"
	"fmt"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-mftstat/parser"
)

var (
	boot_command = app.Command(
		"boot", "Inspect the boot record.")

	boot_command_arg = boot_command.Arg(
		"file", "The image file to inspect",
	).Required().File()

	boot_command_offset = boot_command.Flag(
		"offset", "Sector offset of the volume in the image.",
	).Short('o').Default("0").Int64()

	boot_command_verbose = boot_command.Flag(
		"verbose", "Show the raw boot sector fields.",
	).Short('v').Bool()
)

func doBoot() {
	options := getOptions()
	reader := getPagedReader(*boot_command_arg, options)

	geometry, err := parser.ReadBootSector(reader,
		*boot_command_offset*SECTOR_SIZE, options)
	kingpin.FatalIfError(err, "Boot record")

	if *boot_command_verbose {
		fmt.Println(geometry.DebugString())
		return
	}

	serialized, err := json.MarshalIndent(
		parser.DescribeGeometry(geometry), " ", " ")
	kingpin.FatalIfError(err, "Marshal")

	fmt.Println(string(serialized))
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case "boot":
			doBoot()
		default:
			return false
		}
		return true
	})
}
