package parser

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/Velocidex/ordereddict"
	lru "github.com/hashicorp/golang-lru"
)

// Raw devices (e.g. \\.\c: on windows) may only be read in whole
// sectors. PagedReader reads aligned pages and keeps them in an LRU so
// neighbouring entries in the same page cost a single read.
type PagedReader struct {
	mu sync.Mutex

	reader   io.ReaderAt
	pagesize int64
	lru      *lru.Cache
	freelist sync.Pool

	Hits int64
	Miss int64
}

// ReadAt follows these rules:
//  1. A read inside the file fills buf and returns n = len(buf).
//  2. A read that starts inside the file and runs past its end is
//     padded with zeros and also returns n = len(buf), err = nil.
//  3. A read that starts outside the file returns n = 0 and io.EOF.
//
// Callers that need the exact end of the image should use Size().
func (self *PagedReader) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, io.EOF
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	buf_idx := 0
	for {
		// How much is left in this page to read?
		to_read := int(self.pagesize - offset%self.pagesize)
		if to_read > len(buf)-buf_idx {
			to_read = len(buf) - buf_idx
		}

		if to_read == 0 {
			return buf_idx, nil
		}

		var page_buf []byte

		page := offset - offset%self.pagesize
		cached_page_buf, pres := self.lru.Get(page)
		if !pres {
			self.Miss += 1
			DebugPrint("Cache miss for %x (%x) (%d)\n", page, self.pagesize,
				self.lru.Len())

			page_buf = self.freelist.Get().([]byte)
			n, err := self.reader.ReadAt(page_buf, page)
			if err != nil && !errors.Is(err, io.EOF) {
				self.freelist.Put(page_buf)
				return buf_idx, err
			}

			// The page goes to the lru so clear what the read did not
			// fill.
			for i := n; i < int(self.pagesize); i++ {
				page_buf[i] = 0
			}

			if n == 0 {
				self.freelist.Put(page_buf)

				// Nothing read yet: the whole range is past the end.
				if buf_idx == 0 {
					return 0, io.EOF
				}

				for i := buf_idx; i < len(buf); i++ {
					buf[i] = 0
				}
				return len(buf), nil
			}

			self.lru.Add(page, page_buf)

		} else {
			self.Hits += 1
			page_buf = cached_page_buf.([]byte)
		}

		page_offset := int(offset % self.pagesize)
		copy(buf[buf_idx:buf_idx+to_read],
			page_buf[page_offset:page_offset+to_read])

		offset += int64(to_read)
		buf_idx += to_read
	}
}

func (self *PagedReader) Stats() *ordereddict.Dict {
	self.mu.Lock()
	defer self.mu.Unlock()

	return ordereddict.NewDict().
		Set("PageSize", self.pagesize).
		Set("Pages", self.lru.Len()).
		Set("Hits", self.Hits).
		Set("Miss", self.Miss)
}

// Flush drops all cached pages.
func (self *PagedReader) Flush() {
	self.lru.Purge()
}

func NewPagedReader(reader io.ReaderAt, pagesize int64, cache_size int) (*PagedReader, error) {
	if pagesize <= 0 {
		pagesize = 1024
	}

	self := &PagedReader{
		reader:   reader,
		pagesize: pagesize,
	}
	self.freelist.New = func() interface{} {
		return make([]byte, pagesize)
	}

	cache, err := lru.NewWithEvict(cache_size, func(key, value interface{}) {
		self.freelist.Put(value.([]byte))
	})
	if err != nil {
		return nil, err
	}
	self.lru = cache

	return self, nil
}

// Size is the size of the underlying image or -1 if it is not known.
func (self *PagedReader) Size() int64 {
	return ReaderSize(self.reader)
}

// ReaderSize finds the size of the data behind reader. Readers that
// can not tell (e.g. a replay only Recorder) give -1.
func ReaderSize(reader io.ReaderAt) int64 {
	switch t := reader.(type) {
	case interface{ Size() int64 }:
		return t.Size()

	case interface{ Stat() (os.FileInfo, error) }:
		stat, err := t.Stat()
		if err == nil {
			return stat.Size()
		}
	}
	return -1
}
