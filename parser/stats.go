package parser

import (
	"encoding/json"
	"sync"

	"github.com/Velocidex/ordereddict"
)

var (
	STATS = Stats{}
)

type Stats struct {
	mu sync.Mutex

	BootSector           int
	MFT_ENTRY            int
	NTFS_ATTRIBUTE       int
	STANDARD_INFORMATION int
	FILE_NAME            int
	FixupEntry           int
	RunList              int
	Session              int
	MFT_ENTRY_attributes int
	EntryCacheHit        int
	EntryCacheMiss       int
}

func (self *Stats) DebugString() string {
	self.mu.Lock()
	defer self.mu.Unlock()

	serialized, _ := json.MarshalIndent(self, " ", " ")
	return string(serialized)
}

func (self *Stats) Dict() *ordereddict.Dict {
	self.mu.Lock()
	defer self.mu.Unlock()

	return ordereddict.NewDict().
		Set("BootSector", self.BootSector).
		Set("MFT_ENTRY", self.MFT_ENTRY).
		Set("NTFS_ATTRIBUTE", self.NTFS_ATTRIBUTE).
		Set("STANDARD_INFORMATION", self.STANDARD_INFORMATION).
		Set("FILE_NAME", self.FILE_NAME).
		Set("FixupEntry", self.FixupEntry).
		Set("RunList", self.RunList).
		Set("Session", self.Session).
		Set("MFT_ENTRY_attributes", self.MFT_ENTRY_attributes).
		Set("EntryCacheHit", self.EntryCacheHit).
		Set("EntryCacheMiss", self.EntryCacheMiss)
}

func (self *Stats) Inc_BootSector() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.BootSector++
}

func (self *Stats) Inc_MFT_ENTRY() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.MFT_ENTRY++
}

func (self *Stats) Inc_Session() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.Session++
}

func (self *Stats) Inc_FixupEntry() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.FixupEntry++
}

func (self *Stats) Inc_RunList() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.RunList++
}

func (self *Stats) Inc_Attribute() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.NTFS_ATTRIBUTE++
}

func (self *Stats) Inc_STANDARD_INFORMATION() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.STANDARD_INFORMATION++
}

func (self *Stats) Inc_FILE_NAME() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.FILE_NAME++
}

func (self *Stats) Inc_MFT_ENTRY_attributes(count int) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.MFT_ENTRY_attributes += count
}

func (self *Stats) Inc_EntryCache(hit bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if hit {
		self.EntryCacheHit++
	} else {
		self.EntryCacheMiss++
	}
}
