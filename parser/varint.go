package parser

import (
	"github.com/pkg/errors"
)

// Run lists store their fields in as few bytes as needed. Lengths are
// always positive and padded with zeros, offsets are two's complement
// and padded with the sign.

// ParseUnsignedLE decodes up to 8 little endian bytes, zero extended.
func ParseUnsignedLE(b []byte) (uint64, error) {
	if len(b) > 8 {
		return 0, errors.Wrapf(RunListError,
			"unsigned field of %d bytes does not fit 64 bits", len(b))
	}

	var result uint64
	for i := len(b) - 1; i >= 0; i-- {
		result = result<<8 | uint64(b[i])
	}
	return result, nil
}

// ParseSignedLE decodes up to 8 little endian bytes, sign extended from
// the top bit of the most significant byte. An empty field is 0.
func ParseSignedLE(b []byte) (int64, error) {
	value, err := ParseUnsignedLE(b)
	if err != nil {
		return 0, err
	}

	width := len(b)
	if width > 0 && width < 8 && b[width-1]&0x80 != 0 {
		value |= ^uint64(0) << (uint(width) * 8)
	}
	return int64(value), nil
}
