// Package testimage writes small synthetic disk images in memory for tests.
package testimage

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

const SectorSize = 512

// SparseSpec describes a hosted sparse VMDK extent.
type SparseSpec struct {
	CapacitySectors uint64
	GrainSize       uint64 // sectors
	NumGTEsPerGT    uint32
	Descriptor      string
	Grains          map[uint64][]byte // grain number -> content, shorter content is zero padded
	Compressed      bool
}

func DefaultDescriptor(capacitySectors uint64) string {
	return "# Disk DescriptorFile\n" +
		"version=1\n" +
		"encoding=\"UTF-8\"\n" +
		"CID=fffffffe\n" +
		"parentCID=ffffffff\n" +
		"createType=\"monolithicSparse\"\n" +
		"\n" +
		"# Extent description\n" +
		"RW " + strconv.FormatUint(capacitySectors, 10) + " SPARSE \"disk.vmdk\"\n" +
		"\n" +
		"# The Disk Data Base \n" +
		"#DDB\n" +
		"\n" +
		"ddb.adapterType = \"lsilogic\"\n" +
		"ddb.geometry.cylinders = \"16\"\n" +
		"ddb.uuid = \"60 00 C2 9b 69 2f c9 76-74 c4 07 9e 10 87 3b f9\"\n" +
		"ddb.virtualHWVersion = \"4\"\n"
}

func sectorsFor(length int) uint64 {
	return uint64((length + SectorSize - 1) / SectorSize)
}

// BuildSparseVMDK lays out header, descriptor, grain directory, grain tables and grains.
func BuildSparseVMDK(spec SparseSpec) []byte {
	gtCoverage := uint64(spec.NumGTEsPerGT) * spec.GrainSize
	nofGDEntries := (spec.CapacitySectors + gtCoverage - 1) / gtCoverage

	descriptorOffset := uint64(1)
	descriptorSectors := sectorsFor(len(spec.Descriptor))
	gdOffset := descriptorOffset + descriptorSectors
	gdSectors := sectorsFor(int(nofGDEntries) * 4)
	gtSectors := sectorsFor(int(spec.NumGTEsPerGT) * 4)

	// only grain tables covering at least one grain are allocated
	grainNumbers := make([]uint64, 0, len(spec.Grains))
	for grain := range spec.Grains {
		grainNumbers = append(grainNumbers, grain)
	}
	sort.Slice(grainNumbers, func(i, j int) bool { return grainNumbers[i] < grainNumbers[j] })

	gtSector := map[uint64]uint64{}
	next := gdOffset + gdSectors
	for _, grain := range grainNumbers {
		gdIndex := grain / uint64(spec.NumGTEsPerGT)
		if _, ok := gtSector[gdIndex]; !ok {
			gtSector[gdIndex] = next
			next += gtSectors
		}
	}
	overHead := next

	var grainsArea bytes.Buffer
	gte := map[uint64]uint32{}
	grainBytes := int(spec.GrainSize) * SectorSize
	for _, grain := range grainNumbers {
		content := make([]byte, grainBytes)
		copy(content, spec.Grains[grain])
		gte[grain] = uint32(overHead + uint64(grainsArea.Len()/SectorSize))
		if spec.Compressed {
			var compressed bytes.Buffer
			w := zlib.NewWriter(&compressed)
			w.Write(content)
			w.Close()
			marker := make([]byte, 12)
			binary.LittleEndian.PutUint64(marker[0:], grain*spec.GrainSize)
			binary.LittleEndian.PutUint32(marker[8:], uint32(compressed.Len()))
			grainsArea.Write(marker)
			grainsArea.Write(compressed.Bytes())
			grainsArea.Write(make([]byte, int(sectorsFor(12+compressed.Len()))*SectorSize-12-compressed.Len()))
		} else {
			grainsArea.Write(content)
		}
	}

	image := make([]byte, int(overHead)*SectorSize+grainsArea.Len())

	header := image[:SectorSize]
	copy(header[0:], "KDMV")
	binary.LittleEndian.PutUint32(header[4:], 1)
	flags := uint32(3)
	if spec.Compressed {
		flags |= 1 << 16
	}
	binary.LittleEndian.PutUint32(header[8:], flags)
	binary.LittleEndian.PutUint64(header[12:], spec.CapacitySectors)
	binary.LittleEndian.PutUint64(header[20:], spec.GrainSize)
	if len(spec.Descriptor) > 0 {
		binary.LittleEndian.PutUint64(header[28:], descriptorOffset)
		binary.LittleEndian.PutUint64(header[36:], descriptorSectors)
	}
	binary.LittleEndian.PutUint32(header[44:], spec.NumGTEsPerGT)
	binary.LittleEndian.PutUint64(header[48:], 0)
	binary.LittleEndian.PutUint64(header[56:], gdOffset)
	binary.LittleEndian.PutUint64(header[64:], overHead)
	header[72] = 0
	copy(header[73:77], "\n \r\n")
	if spec.Compressed {
		binary.LittleEndian.PutUint16(header[77:], 1)
	}

	copy(image[descriptorOffset*SectorSize:], spec.Descriptor)

	for gdIndex, sector := range gtSector {
		binary.LittleEndian.PutUint32(image[gdOffset*SectorSize+gdIndex*4:], uint32(sector))
	}
	for grain, offset := range gte {
		gdIndex := grain / uint64(spec.NumGTEsPerGT)
		gtIndex := grain % uint64(spec.NumGTEsPerGT)
		binary.LittleEndian.PutUint32(image[gtSector[gdIndex]*SectorSize+gtIndex*4:], offset)
	}

	copy(image[overHead*SectorSize:], grainsArea.Bytes())
	return image
}

// SparseFromDisk converts a flat disk image into a sparse extent, skipping all zero grains.
func SparseFromDisk(disk []byte, grainSize uint64, numGTEsPerGT uint32) []byte {
	grainBytes := int(grainSize) * SectorSize
	capacity := uint64(len(disk)+grainBytes-1) / uint64(grainBytes) * grainSize
	grains := map[uint64][]byte{}
	zero := make([]byte, grainBytes)
	for offset := 0; offset < len(disk); offset += grainBytes {
		end := offset + grainBytes
		if end > len(disk) {
			end = len(disk)
		}
		chunk := disk[offset:end]
		if bytes.Equal(chunk, zero[:len(chunk)]) {
			continue
		}
		grains[uint64(offset/grainBytes)] = chunk
	}
	return BuildSparseVMDK(SparseSpec{
		CapacitySectors: capacity,
		GrainSize:       grainSize,
		NumGTEsPerGT:    numGTEsPerGT,
		Descriptor:      DefaultDescriptor(capacity),
		Grains:          grains,
	})
}
