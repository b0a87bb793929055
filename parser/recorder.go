package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Recorder saves every read from the delegate into a directory and
// serves repeated reads from there. A recorded directory can later
// stand in for the image (e.g. as a test fixture).
type Recorder struct {
	path string

	reader io.ReaderAt
	logger *zap.Logger
}

func (self *Recorder) ReadAt(buf []byte, offset int64) (int, error) {
	full_path := filepath.Join(self.path,
		fmt.Sprintf("%#08x-%d.bin", offset, len(buf)))

	fd, err := os.Open(full_path)
	if err == nil {
		defer fd.Close()
		return fd.ReadAt(buf, 0)
	}

	n, err := self.reader.ReadAt(buf, offset)
	if n > 0 && (err == nil || err == io.EOF) {
		out, err := os.OpenFile(full_path, os.O_RDWR|os.O_CREATE, 0660)
		if err != nil {
			self.logger.Warn("Unable to record read",
				zap.String("path", full_path), zap.Error(err))
		} else {
			_, _ = out.Write(buf[:n])
			out.Close()
		}
	}
	return n, err
}

func (self *Recorder) Size() int64 {
	return ReaderSize(self.reader)
}

// NewRecorder creates the directory if needed. A nil reader replays
// previously recorded reads only.
func NewRecorder(path string, reader io.ReaderAt, options Options) (*Recorder, error) {
	err := os.MkdirAll(path, 0770)
	if err != nil {
		return nil, err
	}

	if reader == nil {
		reader = replayOnly{}
	}

	return &Recorder{
		path:   path,
		reader: reader,
		logger: options.GetLogger(),
	}, nil
}

type replayOnly struct{}

func (self replayOnly) ReadAt(buf []byte, offset int64) (int, error) {
	return 0, io.EOF
}
