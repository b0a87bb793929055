package main

import (
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("mftstat",
		"A tool for decoding NTFS MFT entries.")

	record_directory = app.Flag(
		"record", "Path to read/write recorded data").
		Default("").String()

	config_file = app.Flag(
		"config", "A YAML file with decoder options.").
		Default("").String()

	debug_flag = app.Flag(
		"debug", "Print debug information").Bool()

	command_handlers []CommandHandler
)

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			break
		}
	}
}
