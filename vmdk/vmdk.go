// Package vmdk translates the logical sectors of a hosted sparse VMDK extent
// into reads against the extent file.
package vmdk

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/vmdk/extent"
	arc "github.com/hashicorp/golang-lru/arc/v2"
	"github.com/pkg/errors"
)

const DefaultGrainCacheSize = 64

const sectorSize = extent.SectorSize

type VMDKImage struct {
	src            readers.ByteSource
	Header         *extent.SparseHeader
	Descriptor     *Descriptor
	grainDirectory extent.GrainDirectory
	grainTables    *extent.GrainTableCache
	inflatedGrains *arc.ARCCache[uint32, []byte]
}

func Open(src readers.ByteSource) (*VMDKImage, error) {
	return OpenWithCache(src, DefaultGrainCacheSize)
}

// OpenWithCache parses the sparse header and descriptor, keeping up to cacheSize grain tables.
func OpenWithCache(src readers.ByteSource, cacheSize int) (*VMDKImage, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultGrainCacheSize
	}
	vmdkImage := &VMDKImage{src: src}

	data, err := vmdkImage.readSectors(0, 1)
	if err != nil {
		return nil, errors.Wrap(err, "reading sparse header")
	}
	vmdkImage.Header, err = extent.ParseSparseHeader(data)
	if err != nil {
		return nil, err
	}

	if vmdkImage.Header.HasCompressedGrains() {
		if vmdkImage.Header.CompressAlgorithm != extent.CompressionDeflate {
			return nil, errs.NewUnsupported("grain compression algorithm %d", vmdkImage.Header.CompressAlgorithm)
		}
		if vmdkImage.Header.GdOffset == extent.GDAtEnd {
			return nil, errs.NewUnsupported("grain directory at the end of a stream optimized extent")
		}
		vmdkImage.inflatedGrains, err = arc.NewARC[uint32, []byte](cacheSize)
		if err != nil {
			return nil, err
		}
	}

	vmdkImage.grainTables, err = extent.NewGrainTableCache(cacheSize)
	if err != nil {
		return nil, err
	}

	vmdkImage.Descriptor = &Descriptor{DDB: map[string]string{}, ParentCID: NoParentCID}
	if vmdkImage.Header.DescriptorSize > 0 {
		data, err = vmdkImage.readSectors(uint64(vmdkImage.Header.DescriptorOffset), int(vmdkImage.Header.DescriptorSize))
		if err != nil {
			return nil, errors.Wrap(err, "reading embedded descriptor")
		}
		vmdkImage.Descriptor, err = ParseDescriptor(string(data))
		if err != nil {
			return nil, err
		}
	}

	msg := fmt.Sprintf("VMDK capacity %d sectors grain %d sectors %d GTEs per GT createType %s",
		vmdkImage.Header.Capacity, vmdkImage.Header.GrainSize, vmdkImage.Header.NumGTEsPerGT,
		vmdkImage.Descriptor.CreateType)
	logger.FSLogger.Info(msg)
	return vmdkImage, nil
}

func (vmdkImage *VMDKImage) GetDiskSize() int64 {
	return int64(vmdkImage.Header.Capacity) * sectorSize
}

func (vmdkImage *VMDKImage) HasParent() bool {
	return vmdkImage.Descriptor.HasParent()
}

func (vmdkImage *VMDKImage) GetGrainSizeB() int64 {
	return vmdkImage.Header.GetGrainSizeB()
}

func (vmdkImage *VMDKImage) GetInfo() string {
	hits, misses := vmdkImage.CacheStats()
	return fmt.Sprintf("createType %s capacity %d sectors grain %d bytes uuid %s cache hits %d misses %d",
		vmdkImage.Descriptor.CreateType, vmdkImage.Header.Capacity, vmdkImage.GetGrainSizeB(),
		vmdkImage.Descriptor.UUID, hits, misses)
}

// CacheStats reports grain table cache hits and misses.
func (vmdkImage *VMDKImage) CacheStats() (int, int) {
	return vmdkImage.grainTables.Stats()
}

// ReadAbsolute reads within a single sector, or whole sectors from a sector boundary.
func (vmdkImage *VMDKImage) ReadAbsolute(offset int64, size int) ([]byte, error) {
	if offset < 0 || size < 0 {
		return nil, fmt.Errorf("invalid read offset %d size %d", offset, size)
	}
	diskSize := vmdkImage.GetDiskSize()
	if offset+int64(size) > diskSize {
		read := diskSize - offset
		if read < 0 {
			read = 0
		}
		return nil, &errs.ShortReadError{Offset: offset, Requested: size, Read: int(read)}
	}

	sector := uint64(offset / sectorSize)
	sectorOffset := int(offset % sectorSize)

	if sectorOffset+size > sectorSize {
		if sectorOffset != 0 || size%sectorSize != 0 {
			return nil, errs.NewIntegrityError("unaligned cross sector reads not implemented (offset %d size %d)", offset, size)
		}
		var buf bytes.Buffer
		buf.Grow(size)
		for idx := sector; idx < sector+uint64(size/sectorSize); idx++ {
			data, err := vmdkImage.readImageSector(idx)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		return buf.Bytes(), nil
	}

	data, err := vmdkImage.readImageSector(sector)
	if err != nil {
		return nil, err
	}
	return data[sectorOffset : sectorOffset+size], nil
}

func (vmdkImage *VMDKImage) readImageSector(sector uint64) ([]byte, error) {
	location := vmdkImage.Header.Locate(sector)
	grainTableEntry, err := vmdkImage.getGrainTableEntry(location)
	if err != nil {
		return nil, err
	}

	if grainTableEntry == 0 { //otherwise is zero
		return make([]byte, sectorSize), nil
	}

	if vmdkImage.Header.HasCompressedGrains() {
		grain, err := vmdkImage.inflateGrain(grainTableEntry)
		if err != nil {
			return nil, err
		}
		start := location.SectorInGrain * sectorSize
		return append([]byte(nil), grain[start:start+sectorSize]...), nil
	}

	return vmdkImage.readSectors(uint64(grainTableEntry)+location.SectorInGrain, 1)
}

func (vmdkImage *VMDKImage) getGrainTableEntry(location extent.GrainLocation) (uint32, error) {
	if vmdkImage.grainDirectory == nil {
		err := vmdkImage.populateGrainDirectory()
		if err != nil {
			return 0, err
		}
	}

	if location.GDIndex >= uint64(len(vmdkImage.grainDirectory)) {
		return 0, errs.NewIntegrityError("grain directory index %d beyond %d entries",
			location.GDIndex, len(vmdkImage.grainDirectory))
	}
	grainDirectoryEntry := vmdkImage.grainDirectory[location.GDIndex]
	if grainDirectoryEntry == 0 { // grain table never allocated
		return 0, nil
	}

	grainTable, err := vmdkImage.grainTables.Get(location.GDIndex, func() (extent.GrainTable, error) {
		data, err := vmdkImage.readSectors(uint64(grainDirectoryEntry), vmdkImage.Header.GrainTableSectors())
		if err != nil {
			return nil, errors.Wrapf(err, "reading grain table %d at sector %d", location.GDIndex, grainDirectoryEntry)
		}
		return extent.ParseGrainTable(data, vmdkImage.Header.NumGTEsPerGT), nil
	})
	if err != nil {
		return 0, err
	}
	return grainTable[location.GTIndex], nil
}

func (vmdkImage *VMDKImage) populateGrainDirectory() error {
	nofEntries := vmdkImage.Header.NofGDEntries()
	data, err := vmdkImage.readSectors(uint64(vmdkImage.Header.GdOffset), vmdkImage.Header.GrainDirectorySectors())
	if err != nil {
		return errors.Wrap(err, "reading grain directory")
	}
	vmdkImage.grainDirectory = extent.ParseGrainDirectory(data, nofEntries)
	logger.FSLogger.Info(fmt.Sprintf("grain directory with %d entries at sector %d", nofEntries, vmdkImage.Header.GdOffset))
	return nil
}

// inflateGrain decodes a grain marker {lba u64, size u32} followed by a zlib stream.
func (vmdkImage *VMDKImage) inflateGrain(grainSector uint32) ([]byte, error) {
	if grain, ok := vmdkImage.inflatedGrains.Get(grainSector); ok {
		return grain, nil
	}
	data, err := vmdkImage.readSectors(uint64(grainSector), 1)
	if err != nil {
		return nil, err
	}
	compressedSize := int(binary.LittleEndian.Uint32(data[8:12]))
	if 12+compressedSize > len(data) {
		data, err = vmdkImage.readSectors(uint64(grainSector), (12+compressedSize+sectorSize-1)/sectorSize)
		if err != nil {
			return nil, err
		}
	}
	d := decoder.New(data)
	d.Skip(12)
	grain, err := d.Inflate(compressedSize)
	if err != nil {
		return nil, errors.Wrapf(err, "inflating grain at sector %d", grainSector)
	}
	if int64(len(grain)) < vmdkImage.GetGrainSizeB() {
		grain = append(grain, make([]byte, vmdkImage.GetGrainSizeB()-int64(len(grain)))...)
	}
	vmdkImage.inflatedGrains.Add(grainSector, grain)
	return grain, nil
}

func (vmdkImage *VMDKImage) readSectors(sector uint64, count int) ([]byte, error) {
	return vmdkImage.src.ReadAbsolute(int64(sector)*sectorSize, count*sectorSize)
}
