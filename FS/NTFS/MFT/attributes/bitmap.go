package attributes

// BitMap holds one bit per cluster, MFT entry or index node.
type BitMap struct {
	AllocationStatus []byte
	Header           *AttributeHeader
}

func (bitmap *BitMap) SetHeader(header *AttributeHeader) {
	bitmap.Header = header
}

func (bitmap BitMap) GetHeader() AttributeHeader {
	return *bitmap.Header
}

func (bitmap *BitMap) Parse(data []byte) error {
	bitmap.AllocationStatus = append([]byte(nil), data...)
	return nil
}

func (bitmap BitMap) FindType() string {
	return bitmap.Header.GetType()
}

func (bitmap BitMap) IsNoNResident() bool {
	return bitmap.Header.IsNoNResident()
}

func (bitmap BitMap) IsSet(pos int) bool {
	if pos < 0 || pos/8 >= len(bitmap.AllocationStatus) {
		return false
	}
	return bitmap.AllocationStatus[pos/8]&(1<<(pos%8)) != 0
}

func (bitmap BitMap) Len() int {
	return 8 * len(bitmap.AllocationStatus)
}

// GetUnallocated returns the positions of the cleared bits among the first limit bits.
func (bitmap BitMap) GetUnallocated(limit int) []int {
	var unallocated []int
	for pos := 0; pos < bitmap.Len() && pos < limit; pos++ {
		if !bitmap.IsSet(pos) {
			unallocated = append(unallocated, pos)
		}
	}
	return unallocated
}

func (bitmap BitMap) CountUnallocated(limit int) int {
	count := 0
	for pos := 0; pos < bitmap.Len() && pos < limit; pos++ {
		if !bitmap.IsSet(pos) {
			count++
		}
	}
	return count
}
