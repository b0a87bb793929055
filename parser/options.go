package parser

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"www.velocidex.com/golang/go-mftstat/logger"
)

const (
	// A run list is expanded to one number per cluster. Corrupt
	// length fields could otherwise ask for terabytes.
	DefaultMaxRunListClusters = 1 << 24
)

type Options struct {
	// Fail when the boot sector signature is missing. By default
	// this is only logged since evidence images are often damaged.
	StrictBootSector bool `yaml:"strict_boot_sector"`

	// Keep $DATA run lists on entries other than $MFT.
	SaveRunLists bool `yaml:"save_run_lists"`

	// Show the low byte file name instead of the UTF-16 decoded one.
	LegacyNames bool `yaml:"legacy_names"`

	// Write the fixup array the way older tools did: element i goes
	// to the tail of sector i, starting with the update sequence
	// number itself. The restored sectors are off by one so this is
	// only useful to reproduce their output.
	LegacyFixups bool `yaml:"legacy_fixups"`

	// Number of decoded entries kept by the session.
	CacheSize int `yaml:"cache_size"`

	// Page size and number of pages for the PagedReader.
	PageSize      int64 `yaml:"page_size"`
	PageCacheSize int   `yaml:"page_cache_size"`

	MaxRunListClusters int64 `yaml:"max_run_list_clusters"`

	Logger *zap.Logger `yaml:"-"`
}

func GetDefaultOptions() Options {
	return Options{
		SaveRunLists:       true,
		CacheSize:          1000,
		PageSize:           1024,
		PageCacheSize:      10000,
		MaxRunListClusters: DefaultMaxRunListClusters,
	}
}

func (self Options) GetLogger() *zap.Logger {
	if self.Logger != nil {
		return self.Logger
	}
	return logger.Logger
}

// LoadOptions reads a YAML file over the default options. Keys absent
// from the file keep their defaults.
func LoadOptions(filename string) (Options, error) {
	options := GetDefaultOptions()

	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return options, errors.Wrap(err, "LoadOptions")
	}

	err = ParseOptions(data, &options)
	return options, err
}

func ParseOptions(data []byte, options *Options) error {
	err := yaml.Unmarshal(data, options)
	if err != nil {
		return errors.Wrap(err, "ParseOptions")
	}

	if options.MaxRunListClusters <= 0 {
		options.MaxRunListClusters = DefaultMaxRunListClusters
	}
	return nil
}
