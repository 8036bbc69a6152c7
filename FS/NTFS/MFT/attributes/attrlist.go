package attributes

import (
	"fmt"

	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/utils"
)

const attrListEntryLen = 26

// AttributeListEntries is recognised so that records spanning several MFT entries
// can be reported, the referenced entries are not merged.
type AttributeListEntries struct {
	Entries []AttributeList
	Header  *AttributeHeader
}

type AttributeList struct { //more than one MFT entry to store a file/directory its attributes
	Type       uint32 //0-4
	Len        uint16 //4-6
	Namelen    uint8  //6
	Nameoffset uint8  //7
	StartVcn   uint64 //8-16
	ParRef     uint64 //16-24 entry in the lower 48 bits
	ID         uint16 //24-26
	Name       string `struct:"-"`
}

func (attrList AttributeList) GetType() string {
	return AttributeHeader{Type: attrList.Type}.GetType()
}

func (attrList AttributeList) GetEntry() uint64 {
	return attrList.ParRef & 0x0000ffffffffffff
}

func (attrListEntries *AttributeListEntries) SetHeader(header *AttributeHeader) {
	attrListEntries.Header = header
}

func (attrListEntries AttributeListEntries) GetHeader() AttributeHeader {
	return *attrListEntries.Header
}

func (attrListEntries *AttributeListEntries) Parse(data []byte) error {
	for pos := 0; pos+attrListEntryLen <= len(data); {
		var attrList AttributeList
		err := utils.Unmarshal(data[pos:], &attrList)
		if err != nil {
			return err
		}
		nameStart := pos + int(attrList.Nameoffset)
		nameEnd := nameStart + 2*int(attrList.Namelen)
		if attrList.Namelen > 0 && nameEnd <= len(data) {
			attrList.Name = utils.DecodeUTF16(data[nameStart:nameEnd])
		}
		attrListEntries.Entries = append(attrListEntries.Entries, attrList)
		if attrList.Len == 0 {
			break
		}
		pos += int(attrList.Len)
	}
	return nil
}

// GetExternalEntries lists the MFT entries other than entryID holding attributes of the record.
func (attrListEntries AttributeListEntries) GetExternalEntries(entryID uint64) []uint64 {
	var entries []uint64
	seen := map[uint64]bool{}
	for _, entry := range attrListEntries.Entries {
		// attribute is stored in the same base record
		if entry.GetEntry() == entryID || seen[entry.GetEntry()] {
			continue
		}
		seen[entry.GetEntry()] = true
		logger.FSLogger.Info(fmt.Sprintf("attribute %s of record %d stored in %d", entry.GetType(), entryID, entry.GetEntry()))
		entries = append(entries, entry.GetEntry())
	}
	return entries
}

func (attrListEntries AttributeListEntries) FindType() string {
	return attrListEntries.Header.GetType()
}

func (attrListEntries AttributeListEntries) IsNoNResident() bool {
	return attrListEntries.Header.IsNoNResident()
}
