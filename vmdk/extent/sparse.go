package extent

import (
	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/errs"
)

type SectorType uint64

const (
	SectorSize     = 512
	SparseMagic    = "4b444d56" // KDMV
	GDAtEnd        = SectorType(0xffffffffffffffff)
	FlagCompressed = 1 << 16
	FlagMarkers    = 1 << 17

	CompressionNone    = 0
	CompressionDeflate = 1
)

// gdOffset points to the level 0 of metadata. It is expressed in sectors.
// overHead is the number of sectors occupied by the metadata.
// numGTEsPerGT is the number of entries in a grain table.
// Sparse Header (512) + Embedded Descriptor + Redundant Grain dir + Redundant Grain tables +
// Grain Dir  + Grain tables + Padding + Grains

type SparseHeader struct {
	Version            uint32
	Flags              uint32
	Capacity           SectorType //extent capacity
	GrainSize          SectorType
	DescriptorOffset   SectorType
	DescriptorSize     SectorType
	NumGTEsPerGT       uint32
	RgdOffset          SectorType // redundant
	GdOffset           SectorType
	OverHead           SectorType
	UncleanShutdown    uint8
	SingleEndLineChar  byte
	NonEndLineChar     byte
	DoubleEndLineChar1 byte
	DoubleEndLineChar2 byte
	CompressAlgorithm  uint16
}

// ParseSparseHeader decodes the first sector of a hosted sparse extent.
func ParseSparseHeader(data []byte) (*SparseHeader, error) {
	sparseH := new(SparseHeader)
	d := decoder.New(data)
	err := d.AssertMagic(SparseMagic)
	if err != nil {
		return nil, err
	}
	err = d.Struct(func(d *decoder.Decoder) {
		sparseH.Version = d.U32()
		sparseH.Flags = d.U32()
		sparseH.Capacity = SectorType(d.U64())
		sparseH.GrainSize = SectorType(d.U64())
		sparseH.DescriptorOffset = SectorType(d.U64())
		sparseH.DescriptorSize = SectorType(d.U64())
		sparseH.NumGTEsPerGT = d.U32()
		sparseH.RgdOffset = SectorType(d.U64())
		sparseH.GdOffset = SectorType(d.U64())
		sparseH.OverHead = SectorType(d.U64())
		sparseH.UncleanShutdown = d.U8()
		sparseH.SingleEndLineChar = d.U8()
		sparseH.NonEndLineChar = d.U8()
		sparseH.DoubleEndLineChar1 = d.U8()
		sparseH.DoubleEndLineChar2 = d.U8()
		sparseH.CompressAlgorithm = d.U16()
		d.Skip(433)
	})
	if err != nil {
		return nil, err
	}
	if sparseH.GrainSize == 0 || sparseH.NumGTEsPerGT == 0 {
		return nil, errs.NewIntegrityError("sparse header with grain size %d and %d entries per grain table",
			sparseH.GrainSize, sparseH.NumGTEsPerGT)
	}
	return sparseH, nil
}

// GTCoverage is the number of sectors covered by one grain table.
func (sparseH SparseHeader) GTCoverage() uint64 {
	return uint64(sparseH.NumGTEsPerGT) * uint64(sparseH.GrainSize)
}

// NofGDEntries is the number of grain tables needed to cover the capacity.
func (sparseH SparseHeader) NofGDEntries() uint64 {
	coverage := sparseH.GTCoverage()
	return (uint64(sparseH.Capacity) + coverage - 1) / coverage
}

func (sparseH SparseHeader) GetGrainSizeB() int64 {
	return int64(sparseH.GrainSize) * SectorSize
}

func (sparseH SparseHeader) HasCompressedGrains() bool {
	return sparseH.Flags&FlagCompressed != 0
}
