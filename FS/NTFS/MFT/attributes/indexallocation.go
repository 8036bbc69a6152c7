package attributes

import (
	"fmt"

	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/utils"
	"github.com/pkg/errors"
)

const (
	DefaultIndexNodeSize = 4096
	indexNodeHeaderStart = 24
	indxMagic            = "494e4458"
)

type IndexAllocationRecords struct {
	Header   *AttributeHeader
	NodeSize int
	Bitmap   *BitMap
	Records  []IndexAllocation
}

type IndexAllocation struct {
	Signature        [4]byte      //0-4
	FixupArrayOffset uint16       //4-6
	NumFixupEntries  uint16       //6-8
	LSN              int64        //8-16
	VCN              int64        //16-24 where the record fits in the tree
	Nodeheader       *NodeHeader  `struct:"-"`
	IndexEntries     IndexEntries `struct:"-"`
	FixUp            *FixUp       `struct:"-"`
}

func (idxAllocation IndexAllocation) GetEntries() IndexEntries {
	return idxAllocation.IndexEntries
}

func (idxAllocation IndexAllocation) GetSignature() string {
	return string(idxAllocation.Signature[:])
}

func (idxAllocationRecs *IndexAllocationRecords) SetHeader(header *AttributeHeader) {
	idxAllocationRecs.Header = header
}

func (idxAllocationRecs IndexAllocationRecords) GetHeader() AttributeHeader {
	return *idxAllocationRecs.Header
}

func (idxAllocationRecs IndexAllocationRecords) FindType() string {
	return idxAllocationRecs.Header.GetType()
}

func (idxAllocationRecs IndexAllocationRecords) IsNoNResident() bool {
	return idxAllocationRecs.Header.IsNoNResident()
}

func (idxAllocationRecs IndexAllocationRecords) GetEntries() IndexEntries {
	var idxEntries IndexEntries
	for _, record := range idxAllocationRecs.Records {
		idxEntries = append(idxEntries, record.GetEntries()...)
	}
	return idxEntries
}

func (idxAllocationRecs IndexAllocationRecords) getNodeSize() int {
	if idxAllocationRecs.NodeSize <= 0 {
		return DefaultIndexNodeSize
	}
	return idxAllocationRecs.NodeSize
}

// Parse decodes the nodes of an index allocation stream held in memory.
func (idxAllocationRecs *IndexAllocationRecords) Parse(data []byte) error {
	return idxAllocationRecs.ReadNodes(readers.NewMemoryReader(data))
}

// ReadNodes reads and decodes node i of the stream only when bit i of the bitmap is set.
func (idxAllocationRecs *IndexAllocationRecords) ReadNodes(src readers.ByteSource) error {
	nodeSize := idxAllocationRecs.getNodeSize()
	nofNodes := int(src.GetDiskSize() / int64(nodeSize))
	idxAllocationRecs.Records = nil
	for nodeNum := 0; nodeNum < nofNodes; nodeNum++ {
		if idxAllocationRecs.Bitmap != nil && !idxAllocationRecs.Bitmap.IsSet(nodeNum) {
			continue
		}
		data, err := src.ReadAbsolute(int64(nodeNum*nodeSize), nodeSize)
		if err != nil {
			return errors.Wrapf(err, "reading index node %d", nodeNum)
		}
		var idxAllocation IndexAllocation
		err = idxAllocation.Parse(data)
		if err != nil {
			return errors.Wrapf(err, "index node %d", nodeNum)
		}
		idxAllocationRecs.Records = append(idxAllocationRecs.Records, idxAllocation)
	}
	return nil
}

func (idxAllocation *IndexAllocation) Parse(data []byte) error {
	data = append([]byte(nil), data...)
	d := decoder.New(data)
	err := d.AssertMagic(indxMagic)
	if err != nil {
		return err
	}
	err = utils.Unmarshal(data, idxAllocation)
	if err != nil {
		return err
	}

	idxAllocation.FixUp, err = ParseFixUp(data, idxAllocation.FixupArrayOffset, idxAllocation.NumFixupEntries)
	if err != nil {
		return err
	}
	mismatched := idxAllocation.FixUp.Apply(data, FixUpStride)
	if len(mismatched) > 0 {
		logger.FSLogger.Warning(fmt.Sprintf("index node VCN %d fixup mismatch at sectors %v",
			idxAllocation.VCN, mismatched))
	}

	var nodeheader *NodeHeader = new(NodeHeader)
	d.Seek(indexNodeHeaderStart)
	err = nodeheader.Parse(d.Read(16))
	if err != nil {
		return errors.Wrapf(err, "node header of VCN %d", idxAllocation.VCN)
	}
	idxAllocation.Nodeheader = nodeheader

	end := indexNodeHeaderStart + int(nodeheader.OffsetEndUsedEntryList)
	if end > len(data) {
		msg := fmt.Sprintf("data buffer exceed by %d in parsing index allocation entry",
			end-len(data))
		logger.FSLogger.Warning(msg)
		end = len(data)
	}
	d.Seek(indexNodeHeaderStart + int(nodeheader.OffsetEntryList))
	if d.Err() != nil {
		return errors.Wrapf(d.Err(), "values offset of VCN %d", idxAllocation.VCN)
	}
	idxAllocation.IndexEntries, err = ParseIndexEntries(d, end)
	return err
}

func (idxAllocation IndexAllocation) GetIndexEntriesSortedByMFTEntry() IndexEntries {
	return sortByMFTEntry(idxAllocation.IndexEntries)
}

func (idxAllocationRecs IndexAllocationRecords) GetIndexEntriesSortedByMFTEntry() IndexEntries {
	return sortByMFTEntry(idxAllocationRecs.GetEntries())
}
