package parser

import (
	"io"
	"os"

	"github.com/Velocidex/ordereddict"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Session holds what is needed to read entries from one volume: the
// geometry and the $MFT's own run list. It is read only once created
// so entries may be fetched from several goroutines.
type Session struct {
	DiskReader io.ReaderAt

	// Byte offset of the volume within the image.
	VolumeSkip int64

	Geometry VolumeGeometry

	// Entry 0 ($MFT) and its decoded $DATA run list.
	MFTEntry   *MFTEntry
	MFTRunList RunList
	MFTRuns    []Run

	// Set when the $MFT entry itself was only partially decoded.
	mft_error error

	// DiskReader limited to the end of the image, when that is known.
	// Reads past it are truncated rather than padded.
	bounded io.ReaderAt

	options Options
	cache   *lru.Cache
	closer  io.Closer
}

// NewSession reads the boot sector at volume_skip then decodes the
// $MFT entry to find where the rest of the table lives.
func NewSession(reader io.ReaderAt, volume_skip int64,
	options Options) (*Session, error) {
	STATS.Inc_Session()

	geometry, err := ReadBootSector(reader, volume_skip, options)
	if err != nil {
		return nil, err
	}

	cache_size := options.CacheSize
	if cache_size <= 0 {
		cache_size = 1
	}
	cache, err := lru.New(cache_size)
	if err != nil {
		return nil, err
	}

	self := &Session{
		DiskReader: reader,
		VolumeSkip: volume_skip,
		Geometry:   geometry,
		bounded:    reader,
		options:    options,
		cache:      cache,
	}

	image_size := ReaderSize(reader)
	if image_size >= 0 {
		self.bounded = io.NewSectionReader(reader, 0, image_size)
	}

	mft_offset := volume_skip + geometry.MFTOffset()
	buf, err := readRecord(openRecord(self.bounded, mft_offset, geometry),
		int(geometry.EntryRecordSize))
	if err != nil {
		return nil, errors.Wrap(err, "reading $MFT entry")
	}

	entry, err := DecodeEntry(buf, geometry, DecodeOptions{
		SaveRunList:        true,
		MaxRunListClusters: options.MaxRunListClusters,
		Options:            options,
	})
	if entry == nil {
		return nil, errors.Wrap(err, "decoding $MFT entry")
	}

	run_list, runs := entry.RunList()
	if run_list == nil {
		if err != nil {
			return nil, errors.Wrap(err, "decoding $MFT entry")
		}
		return nil, errors.New("$DATA attribute not found for $MFT")
	}

	// Attributes after $DATA are not needed to locate entries.
	if err != nil {
		options.GetLogger().Warn("$MFT entry partially decoded",
			zap.Error(err))
	}

	self.MFTEntry = entry
	self.mft_error = err
	self.MFTRunList = run_list
	self.MFTRuns = runs

	return self, nil
}

// NewSessionFromFile opens an image file through a PagedReader.
func NewSessionFromFile(path string, volume_skip int64,
	options Options) (*Session, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "NewSessionFromFile")
	}

	reader, err := NewPagedReader(fd, options.PageSize, options.PageCacheSize)
	if err != nil {
		fd.Close()
		return nil, err
	}

	self, err := NewSession(reader, volume_skip, options)
	if err != nil {
		fd.Close()
		return nil, err
	}
	self.closer = fd

	return self, nil
}

// LocateEntry returns the byte offset of the entry within the image.
func (self *Session) LocateEntry(entry uint64) (int64, error) {
	return LocateEntry(entry, self.MFTRunList, self.Geometry, self.VolumeSkip)
}

// NumberOfEntries is the number of entries the $MFT run list can
// address.
func (self *Session) NumberOfEntries() uint64 {
	epc := self.Geometry.EntriesPerCluster()
	if epc > 0 {
		return uint64(len(self.MFTRunList)) * uint64(epc)
	}

	clusters_per_entry := int64(self.Geometry.EntryRecordSize) /
		self.Geometry.ClusterSize()
	if clusters_per_entry <= 0 {
		return 0
	}
	return uint64(int64(len(self.MFTRunList)) / clusters_per_entry)
}

// GetEntry locates, reads and decodes one entry. As with DecodeEntry a
// partially decoded entry may be returned together with an error.
// Only fully decoded entries are cached.
func (self *Session) GetEntry(entry uint64) (*MFTEntry, error) {
	if entry == 0 && self.MFTEntry != nil {
		return self.MFTEntry, self.mft_error
	}

	cached, pres := self.cache.Get(entry)
	STATS.Inc_EntryCache(pres)
	if pres {
		return cached.(*MFTEntry), nil
	}

	reader, err := OpenEntry(self.bounded, entry, self.MFTRunList,
		self.Geometry, self.VolumeSkip)
	if err != nil {
		return nil, err
	}

	buf, err := readRecord(reader, int(self.Geometry.EntryRecordSize))
	if err != nil {
		return nil, errors.Wrapf(err, "entry %d", entry)
	}

	result, err := DecodeEntry(buf, self.Geometry, DecodeOptions{
		SaveRunList:        self.options.SaveRunLists,
		MaxRunListClusters: self.options.MaxRunListClusters,
		Options:            self.options,
	})
	if err != nil {
		return result, err
	}

	self.cache.Add(entry, result)
	return result, nil
}

func (self *Session) Options() Options {
	return self.options
}

func (self *Session) Stats() *ordereddict.Dict {
	result := ordereddict.NewDict().
		Set("CachedEntries", self.cache.Len()).
		Set("MFTClusters", len(self.MFTRunList)).
		Set("NumberOfEntries", self.NumberOfEntries()).
		Set("Counters", STATS.Dict())

	paged, ok := self.DiskReader.(*PagedReader)
	if ok {
		result.Set("PagedReader", paged.Stats())
	}
	return result
}

// Purge drops all cached entries.
func (self *Session) Purge() {
	self.cache.Purge()
}

func (self *Session) Close() error {
	self.Purge()
	if self.closer != nil {
		return self.closer.Close()
	}
	return nil
}
