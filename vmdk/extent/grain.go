package extent

import (
	"encoding/binary"
	"fmt"

	"github.com/aarsakian/DiskTree/logger"
	arc "github.com/hashicorp/golang-lru/arc/v2"
)

//grain size 2^G sectors  a block of sectors containing data for the virtual disk
//gtCoverage by a grain table nof GTE x grainSize
//GDE offset in sectors of a grain table in a sparse extent
//GTE offset of a grain in the sparse extent, zero when the grain was never written

type GrainDirectory []uint32

type GrainTable []uint32

// Location of a sector inside the two level grain structure.
type GrainLocation struct {
	GDIndex       uint64
	GTIndex       uint64
	SectorInGrain uint64
}

func (sparseH SparseHeader) Locate(sector uint64) GrainLocation {
	coverage := sparseH.GTCoverage()
	return GrainLocation{
		GDIndex:       sector / coverage,
		GTIndex:       (sector % coverage) / uint64(sparseH.GrainSize),
		SectorInGrain: sector % uint64(sparseH.GrainSize),
	}
}

// GrainDirectorySectors is the number of sectors holding the grain directory.
func (sparseH SparseHeader) GrainDirectorySectors() int {
	return sectorsFor(int(sparseH.NofGDEntries()) * 4)
}

// GrainTableSectors is the number of sectors holding one grain table.
func (sparseH SparseHeader) GrainTableSectors() int {
	return sectorsFor(int(sparseH.NumGTEsPerGT) * 4)
}

func sectorsFor(length int) int {
	return (length + SectorSize - 1) / SectorSize
}

func ParseGrainDirectory(data []byte, nofEntries uint64) GrainDirectory {
	gd := make(GrainDirectory, nofEntries)
	for idx := range gd {
		gd[idx] = binary.LittleEndian.Uint32(data[idx*4 : idx*4+4])
	}
	return gd
}

func ParseGrainTable(data []byte, nofEntries uint32) GrainTable {
	gt := make(GrainTable, nofEntries)
	for idx := range gt {
		gt[idx] = binary.LittleEndian.Uint32(data[idx*4 : idx*4+4])
	}
	return gt
}

// GrainTableCache keeps recently resolved grain tables keyed by grain directory index.
type GrainTableCache struct {
	tables *arc.ARCCache[uint64, GrainTable]
	hits   int
	misses int
}

func NewGrainTableCache(size int) (*GrainTableCache, error) {
	tables, err := arc.NewARC[uint64, GrainTable](size)
	if err != nil {
		return nil, err
	}
	return &GrainTableCache{tables: tables}, nil
}

// Get returns the table of gdIndex, calling load on a miss.
func (cache *GrainTableCache) Get(gdIndex uint64, load func() (GrainTable, error)) (GrainTable, error) {
	if gt, ok := cache.tables.Get(gdIndex); ok {
		cache.hits++
		return gt, nil
	}
	cache.misses++
	logger.FSLogger.Info(fmt.Sprintf("grain table cache miss for directory entry %d", gdIndex))
	gt, err := load()
	if err != nil {
		return nil, err
	}
	cache.tables.Add(gdIndex, gt)
	return gt, nil
}

func (cache *GrainTableCache) Stats() (int, int) {
	return cache.hits, cache.misses
}
