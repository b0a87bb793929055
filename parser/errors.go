package parser

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	MalformedBootSectorError = errors.New("MalformedBootSector")
	EntryReadTruncatedError  = errors.New("EntryReadTruncated")
	FixupOutOfRangeError     = errors.New("FixupOutOfRange")
	AttributeParseError      = errors.New("AttributeParseError")
	EntryOutOfRangeError     = errors.New("EntryOutOfRange")
	OutOfBoundsError         = errors.New("OutOfBounds")
	RunListError             = errors.New("RunListError")
	SparseEntryError         = errors.New("SparseEntry")
	MalformedHeaderError     = errors.New("MalformedEntryHeader")
)

type DecodeStage int

const (
	StageReadBuffer DecodeStage = iota
	StageApplyFixups
	StageParseHeader
	StageAttributes
	StageDone
)

func (self DecodeStage) String() string {
	switch self {
	case StageReadBuffer:
		return "ReadBuffer"
	case StageApplyFixups:
		return "ApplyFixups"
	case StageParseHeader:
		return "ParseHeader"
	case StageAttributes:
		return "IterateAttributes"
	case StageDone:
		return "Done"
	}
	return fmt.Sprintf("Stage(%d)", int(self))
}

// A DecodeError records where in the entry state machine decoding
// stopped. Any attributes decoded before the failure are still
// available on the entry returned with it.
type DecodeError struct {
	Stage DecodeStage
	Err   error
}

func (self *DecodeError) Error() string {
	return fmt.Sprintf("decoding stopped at %v: %v", self.Stage, self.Err)
}

func (self *DecodeError) Unwrap() error {
	return self.Err
}

// Cause allows errors.Cause() to see through the stage.
func (self *DecodeError) Cause() error {
	return self.Err
}
