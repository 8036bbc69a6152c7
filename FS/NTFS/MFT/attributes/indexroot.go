package attributes

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/utils"
	"github.com/pkg/errors"
)

var IndexEntryFlags = map[uint32]string{
	0x00000001: "Child Node exists",
	0x00000002: "Last Entry in list",
}

const indexEntryHeaderLen = 16

type IndexEntries []IndexEntry

type IndexEntry struct {
	ParRef     uint64 // referenced MFT entry
	ParSeq     uint16
	Len        uint16 //8-9
	ContentLen uint16 //10-11
	Flags      uint32 //12-15
	ChildVCN   uint64
	Fnattr     *FNAttribute
}

type NodeHeader struct {
	OffsetEntryList          uint32 // 0-4 offset to the first index entry
	OffsetEndUsedEntryList   uint32 //4-8 where the entry list ends, relative to the start of node header
	OffsetEndEntryListBuffer uint32 //8-12 allocated
	Flags                    uint32 //12-16 0x01 has children
}

type IndexRoot struct {
	Type                 uint32 //0-3 indexed attribute type, FileName for directories
	CollationSortingRule uint32 //4-7
	Sizebytes            uint32 //8-11 size of an index allocation node
	Sizeclusters         uint8  //12-12
	Nodeheader           *NodeHeader
	Header               *AttributeHeader
	IndexEntries         IndexEntries
}

func (nodeheader *NodeHeader) Parse(data []byte) error {
	return utils.Unmarshal(data, nodeheader)
}

func (nodeheader NodeHeader) HasChildren() bool {
	return nodeheader.Flags&0x01 != 0
}

func (idxEntry IndexEntry) HasChild() bool {
	return idxEntry.Flags&0x01 != 0
}

func (idxEntry IndexEntry) IsLast() bool {
	return idxEntry.Flags&0x02 != 0
}

func (idxEntry IndexEntry) GetFname() string {
	if idxEntry.Fnattr == nil {
		return ""
	}
	return idxEntry.Fnattr.Fname
}

func (idxRoot IndexRoot) GetEntries() IndexEntries {
	return idxRoot.IndexEntries
}

func (idxRoot *IndexRoot) SetHeader(header *AttributeHeader) {
	idxRoot.Header = header
}

func (idxRoot *IndexRoot) Parse(data []byte) error {
	d := decoder.New(data)
	err := d.Struct(func(d *decoder.Decoder) {
		idxRoot.Type = d.U32()
		idxRoot.CollationSortingRule = d.U32()
		idxRoot.Sizebytes = d.U32()
		idxRoot.Sizeclusters = d.U8()
		d.Skip(3)
	})
	if err != nil {
		return errors.Wrap(err, "index root header")
	}

	nodeHeaderStart := d.Tell()
	var nodeheader *NodeHeader = new(NodeHeader)
	err = nodeheader.Parse(d.Read(16))
	if err != nil {
		return errors.Wrap(err, "index root node header")
	}
	idxRoot.Nodeheader = nodeheader

	end := nodeHeaderStart + int(nodeheader.OffsetEndUsedEntryList)
	if end > len(data) {
		logger.FSLogger.Warning(fmt.Sprintf("index root node of %d bytes exceeds attribute by %d",
			nodeheader.OffsetEndUsedEntryList, end-len(data)))
		end = len(data)
	}
	d.Seek(nodeHeaderStart + int(nodeheader.OffsetEntryList))
	if d.Err() != nil {
		return errors.Wrap(d.Err(), "index root values offset")
	}
	idxRoot.IndexEntries, err = ParseIndexEntries(d, end)
	return err
}

func (idxRoot IndexRoot) GetHeader() AttributeHeader {
	return *idxRoot.Header
}

func (idxRoot IndexRoot) IsNoNResident() bool {
	return false // always resident
}

func (idxRoot IndexRoot) FindType() string {
	return idxRoot.Header.GetType()
}

func (idxRoot IndexRoot) IsFileNameIndex() bool {
	return idxRoot.Type == FileNameType
}

func (idxRoot IndexRoot) GetIndexEntriesSortedByMFTEntry() IndexEntries {
	return sortByMFTEntry(idxRoot.IndexEntries)
}

func sortByMFTEntry(idxEntries IndexEntries) IndexEntries {
	idxEntriesSortedByMFTEntryID := utils.FilterClone(idxEntries, func(idxEntry IndexEntry) bool {
		return idxEntry.Fnattr != nil
	})

	slices.SortFunc(idxEntriesSortedByMFTEntryID, func(idxEntryA, idxEntryB IndexEntry) int {
		return cmp.Compare(idxEntryA.ParRef, idxEntryB.ParRef)
	})
	return idxEntriesSortedByMFTEntryID
}

// ParseIndexEntries decodes index values from the decoder position until the value
// flagged as last or until the cursor reaches end. A value is left by its declared
// length, clamped to end.
func ParseIndexEntries(d *decoder.Decoder, end int) (IndexEntries, error) {
	var idxEntries IndexEntries
	for d.Tell()+indexEntryHeaderLen <= end {
		start := d.Tell()
		var idxEntry *IndexEntry = new(IndexEntry)
		err := d.Struct(func(d *decoder.Decoder) {
			ref := d.U64()
			idxEntry.ParRef = ref & 0x0000ffffffffffff
			idxEntry.ParSeq = uint16(ref >> 48)
			idxEntry.Len = d.U16()
			idxEntry.ContentLen = d.U16()
			idxEntry.Flags = d.U32()
		})
		if err != nil {
			return idxEntries, errors.Wrapf(err, "index entry at %d", start)
		}

		if idxEntry.ContentLen > 0 {
			if start+indexEntryHeaderLen+int(idxEntry.ContentLen) > end {
				logger.FSLogger.Warning(fmt.Sprintf("index entry key at %d exceeds node by %d",
					start, start+indexEntryHeaderLen+int(idxEntry.ContentLen)-end))
			} else {
				var fnattr FNAttribute
				err = fnattr.Parse(d.Read(int(idxEntry.ContentLen)))
				if err != nil {
					logger.FSLogger.Warning(fmt.Sprintf("index entry key at %d: %s", start, err))
				} else {
					idxEntry.Fnattr = &fnattr
				}
			}
		}

		// the child node VCN occupies the last 8 bytes of the entry
		if idxEntry.HasChild() && idxEntry.Len >= indexEntryHeaderLen+8 && start+int(idxEntry.Len) <= end {
			err = d.SeekTemp(start+int(idxEntry.Len)-8, func(d *decoder.Decoder) error {
				idxEntry.ChildVCN = d.U64()
				return nil
			})
			if err != nil {
				return idxEntries, err
			}
		}

		idxEntries = append(idxEntries, *idxEntry)
		if idxEntry.IsLast() {
			break
		}
		if idxEntry.Len == 0 {
			logger.FSLogger.Warning("zero len index entry")
			break
		}

		next := start + int(idxEntry.Len)
		if next > end {
			next = end
		}
		d.Seek(next)
	}
	return idxEntries, d.Err()
}
