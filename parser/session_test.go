package parser

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite

	image   []byte
	session *Session
}

func (self *SessionTestSuite) SetupTest() {
	self.image = buildImage(0, true)

	session, err := NewSession(bytes.NewReader(self.image), 0, testOptions())
	self.Require().NoError(err)
	self.session = session
}

func (self *SessionTestSuite) TestGeometry() {
	self.Equal(uint32(1024), self.session.Geometry.EntryRecordSize)
	self.Equal(int64(4096), self.session.Geometry.ClusterSize())
	self.Equal(RunList{4, 5, 10}, self.session.MFTRunList)
	self.Equal(uint64(12), self.session.NumberOfEntries())
	self.Equal("$MFT", self.session.MFTEntry.FileName(false))
}

func (self *SessionTestSuite) TestGetEntry() {
	offset, err := self.session.LocateEntry(9)
	self.NoError(err)
	self.Equal(int64(41984), offset)

	entry, err := self.session.GetEntry(9)
	self.Require().NoError(err)

	self.Equal(uint32(9), entry.RecordNumber)
	self.Equal("hello.txt", entry.FileName(false))

	file_names := entry.FileNames()
	self.Equal(1, len(file_names))
	self.Equal(uint64(5), file_names[0].ParentEntry)

	si := entry.StandardInformation()
	self.Require().NotNil(si)
	self.True(si.FileAlteredTime.Time.Equal(
		time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Served from the cache the second time.
	again, err := self.session.GetEntry(9)
	self.NoError(err)
	self.True(entry == again)

	zero, err := self.session.GetEntry(0)
	self.NoError(err)
	self.True(zero == self.session.MFTEntry)
}

func (self *SessionTestSuite) TestEntryOutOfRange() {
	_, err := self.session.GetEntry(12)
	self.True(errors.Is(err, EntryOutOfRangeError))
}

func (self *SessionTestSuite) TestEmptyEntry() {
	// Entry 11 is the last slot of the last cluster. It locates but
	// holds no entry.
	offset, err := self.session.LocateEntry(11)
	self.NoError(err)
	self.Equal(int64(44032), offset)

	entry, err := self.session.GetEntry(11)
	self.NotNil(entry)
	self.True(errors.Is(err, MalformedHeaderError))
}

func (self *SessionTestSuite) TestTruncatedImage() {
	image := self.image[:43000]
	session, err := NewSession(bytes.NewReader(image), 0, testOptions())
	self.Require().NoError(err)

	_, err = session.GetEntry(11)
	self.True(errors.Is(err, EntryReadTruncatedError))
}

func (self *SessionTestSuite) TestTruncatedImageFile() {
	// The image ends part way through entry 9.
	path := filepath.Join(self.T().TempDir(), "image.dd")
	self.Require().NoError(ioutil.WriteFile(
		path, self.image[:testEntry9Offset+700], 0600))

	session, err := NewSessionFromFile(path, 0, testOptions())
	self.Require().NoError(err)
	defer session.Close()

	entry, err := session.GetEntry(9)
	self.Nil(entry)
	self.True(errors.Is(err, EntryReadTruncatedError))

	// Entries wholly before the end still decode.
	offset, err := session.LocateEntry(8)
	self.NoError(err)
	self.Equal(int64(testEntry9Offset-testRecordSize), offset)

	_, err = session.GetEntry(8)
	self.False(errors.Is(err, EntryReadTruncatedError))
}

func (self *SessionTestSuite) TestPartialMFTEntry() {
	// A zero length attribute after $DATA stops the walk.
	broken := make([]byte, ATTR_HEADER_SIZE)
	le.PutUint32(broken, ATTR_TYPE_DATA)

	image := buildImageWithMFT(0, append(testMFTAttributes(true), broken))
	session, err := NewSession(bytes.NewReader(image), 0, testOptions())
	self.Require().NoError(err)
	self.Equal(RunList{4, 5, 10}, session.MFTRunList)

	entry, err := session.GetEntry(0)
	self.True(entry == session.MFTEntry)
	self.True(errors.Is(err, AttributeParseError))
}

func (self *SessionTestSuite) TestVolumeSkip() {
	image := buildImage(1024*512, true)
	session, err := NewSession(bytes.NewReader(image), 1024*512, testOptions())
	self.Require().NoError(err)

	entry, err := session.GetEntry(9)
	self.NoError(err)
	self.Equal("hello.txt", entry.FileName(false))
}

func (self *SessionTestSuite) TestMissingMFTData() {
	image := buildImage(0, false)
	_, err := NewSession(bytes.NewReader(image), 0, testOptions())
	self.Error(err)
	self.Contains(err.Error(), "$DATA attribute not found for $MFT")
}

func (self *SessionTestSuite) TestModel() {
	entry, err := self.session.GetEntry(9)
	self.Require().NoError(err)

	model := ModelMFTEntry(entry, 9, self.session.Options())
	self.Equal(int64(9), model.MFTID)
	self.True(model.Allocated)
	self.Equal(1, len(model.Filenames))
	self.Equal("hello.txt", model.Filenames[0].Name)
	self.Equal("Win32", model.Filenames[0].Type)
	self.Equal(3, len(model.Attributes))
	self.Equal("9-128-2", model.Attributes[2].Inode)

	serialized, err := json.Marshal(model)
	self.NoError(err)
	self.Contains(string(serialized), `"Name":"hello.txt"`)

	geometry := DescribeGeometry(self.session.Geometry)
	cluster_size, _ := geometry.Get("ClusterSize")
	self.Equal(int64(4096), cluster_size)
}

func (self *SessionTestSuite) TestSessionFromFile() {
	path := filepath.Join(self.T().TempDir(), "image.dd")
	self.Require().NoError(ioutil.WriteFile(path, self.image, 0600))

	session, err := NewSessionFromFile(path, 0, testOptions())
	self.Require().NoError(err)
	defer session.Close()

	entry, err := session.GetEntry(9)
	self.NoError(err)
	self.Equal("hello.txt", entry.FileName(false))

	stats := session.Stats()
	_, pres := stats.Get("PagedReader")
	self.True(pres)
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, &SessionTestSuite{})
}
