package attributes

import (
	"bytes"

	"github.com/aarsakian/DiskTree/errs"
)

const FixUpStride = 512

// FixUp is the update sequence array, the signature every protected sector ends with
// and the original values to put back.
type FixUp struct {
	Signature      []byte
	OriginalValues [][]byte
}

func ParseFixUp(data []byte, offset uint16, count uint16) (*FixUp, error) {
	if count == 0 {
		return &FixUp{}, nil
	}
	end := int(offset) + 2*int(count)
	if end > len(data) {
		return nil, errs.NewIntegrityError("fixup array at %d with %d entries exceeds %d bytes", offset, count, len(data))
	}
	fixuparray := data[offset:end]
	fixupvals := make([][]byte, 0, count-1)
	for val := 2; val < len(fixuparray); val += 2 {
		fixupvals = append(fixupvals, append([]byte(nil), fixuparray[val:val+2]...))
	}
	return &FixUp{Signature: append([]byte(nil), fixuparray[:2]...), OriginalValues: fixupvals}, nil
}

// Apply restores the last two bytes of every stride sized sector of data.
// Sectors whose trailing bytes do not carry the signature are left as they are
// and their numbers returned.
func (fixup FixUp) Apply(data []byte, stride int) []int {
	var mismatched []int
	for sectorNum := 1; sectorNum <= len(fixup.OriginalValues) && sectorNum*stride <= len(data); sectorNum++ {
		pos := sectorNum*stride - 2
		if !bytes.Equal(data[pos:pos+2], fixup.Signature) {
			mismatched = append(mismatched, sectorNum-1)
			continue
		}
		copy(data[pos:pos+2], fixup.OriginalValues[sectorNum-1])
	}
	return mismatched
}
