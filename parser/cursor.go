package parser

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// A Cursor walks a fixed buffer (usually one fixed up MFT entry). All
// reads are bounds checked before they happen so malformed length
// fields can never reach outside the buffer.
type Cursor struct {
	buf []byte
	pos int
}

func NewCursor(buf []byte, pos int) *Cursor {
	return &Cursor{buf: buf, pos: pos}
}

func (self *Cursor) Position() int {
	return self.pos
}

func (self *Cursor) Len() int {
	return len(self.buf)
}

func (self *Cursor) Remaining() int {
	if self.pos >= len(self.buf) {
		return 0
	}
	return len(self.buf) - self.pos
}

func (self *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(self.buf) {
		return errors.Wrapf(OutOfBoundsError,
			"seek to %#x in buffer of %#x", pos, len(self.buf))
	}
	self.pos = pos
	return nil
}

func (self *Cursor) Skip(n int) error {
	return self.Seek(self.pos + n)
}

func (self *Cursor) check(n int) error {
	if n < 0 || self.pos < 0 || self.pos+n > len(self.buf) {
		return errors.Wrapf(OutOfBoundsError,
			"read of %d bytes at %#x in buffer of %#x",
			n, self.pos, len(self.buf))
	}
	return nil
}

// Bytes returns the next n bytes. The slice aliases the underlying
// buffer.
func (self *Cursor) Bytes(n int) ([]byte, error) {
	err := self.check(n)
	if err != nil {
		return nil, err
	}
	result := self.buf[self.pos : self.pos+n]
	self.pos += n
	return result, nil
}

func (self *Cursor) Uint8() (uint8, error) {
	err := self.check(1)
	if err != nil {
		return 0, err
	}
	result := self.buf[self.pos]
	self.pos++
	return result, nil
}

func (self *Cursor) Uint16() (uint16, error) {
	b, err := self.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (self *Cursor) Uint32() (uint32, error) {
	b, err := self.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (self *Cursor) Uint64() (uint64, error) {
	b, err := self.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
