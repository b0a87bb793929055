package parser

import (
	"fmt"
	"os"
	"sync"

	"github.com/davecgh/go-spew/spew"
)

var (
	debug = false

	ntfs_debug      bool
	ntfs_debug_once sync.Once
)

// SetDebug turns on the Printf trace.
func SetDebug(enabled bool) {
	debug = enabled
}

func Debug(arg interface{}) {
	spew.Dump(arg)
}

func Printf(fmt_str string, args ...interface{}) {
	if debug {
		fmt.Printf(fmt_str, args...)
	}
}

// DebugPrint prints only when NTFS_DEBUG is set in the environment.
func DebugPrint(fmt_str string, v ...interface{}) {
	ntfs_debug_once.Do(func() {
		_, ntfs_debug = os.LookupEnv("NTFS_DEBUG")
	})

	if ntfs_debug {
		fmt.Printf(fmt_str, v...)
	}
}
