package main

import (
	"io"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-mftstat/logger"
	"www.velocidex.com/golang/go-mftstat/parser"
)

const SECTOR_SIZE = 512

func getOptions() parser.Options {
	if *debug_flag {
		parser.SetDebug(true)
		logger.SetDebug(true)
	}

	if *config_file == "" {
		return parser.GetDefaultOptions()
	}

	options, err := parser.LoadOptions(*config_file)
	kingpin.FatalIfError(err, "Can not load config")

	return options
}

func getReader(reader io.ReaderAt, options parser.Options) io.ReaderAt {
	if *record_directory == "" {
		return reader
	}

	parser.Printf("Will record to dir %v\n", *record_directory)
	recorder, err := parser.NewRecorder(*record_directory, reader, options)
	kingpin.FatalIfError(err, "Can not create recorder")

	return recorder
}

func getPagedReader(fd *os.File, options parser.Options) io.ReaderAt {
	reader, err := parser.NewPagedReader(getReader(fd, options),
		options.PageSize, options.PageCacheSize)
	kingpin.FatalIfError(err, "Can not create reader")

	return reader
}

// openSession opens the volume that starts offset sectors into the
// image.
func openSession(fd *os.File, offset int64) (*parser.Session, parser.Options) {
	options := getOptions()

	session, err := parser.NewSession(getPagedReader(fd, options),
		offset*SECTOR_SIZE, options)
	kingpin.FatalIfError(err, "Can not open filesystem")

	return session, options
}
