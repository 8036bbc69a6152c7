package extent

import (
	"regexp"
	"strconv"

	"github.com/aarsakian/DiskTree/errs"
)

type Extents []Extent

type Extent struct {
	AccessMode  string
	NofSectors  int64
	ExtentType  string
	Filename    string
	StartSector int64 //only for flat extents
}

var extentRe = regexp.MustCompile(`^(RW|RDONLY|NOACCESS)\s+([0-9]+)\s+(SPARSE|FLAT|ZERO|VMFS|VMFSSPARSE)(?:\s+("(?:[^"\\]|\\.)*"))?(?:\s+([0-9]+))?`)

// IsExtentLine reports whether a descriptor line describes an extent.
func IsExtentLine(line string) bool {
	return extentRe.MatchString(line)
}

// ParseExtent decodes a line such as RW 4192256 SPARSE "disk-s001.vmdk".
func ParseExtent(line string) (Extent, error) {
	cols := extentRe.FindStringSubmatch(line)
	if cols == nil {
		return Extent{}, errs.NewIntegrityError("extent line %q not understood", line)
	}
	nofsectors, err := strconv.ParseInt(cols[2], 10, 64)
	if err != nil {
		return Extent{}, errs.NewIntegrityError("extent size %s: %v", cols[2], err)
	}
	extent := Extent{AccessMode: cols[1], NofSectors: nofsectors, ExtentType: cols[3]}
	if cols[4] != "" {
		extent.Filename, err = strconv.Unquote(cols[4])
		if err != nil {
			return Extent{}, errs.NewIntegrityError("extent file name %s: %v", cols[4], err)
		}
	}
	if cols[5] != "" {
		extent.StartSector, _ = strconv.ParseInt(cols[5], 10, 64)
	}
	return extent, nil
}

func (extents Extents) GetHDSize() int64 {
	totalSize := int64(0)
	for _, extent := range extents {
		totalSize += extent.NofSectors
	}
	return totalSize * SectorSize
}
