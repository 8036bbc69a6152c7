package readers

// MemoryReader serves reads from an in-memory blob.
type MemoryReader struct {
	Data []byte
}

func NewMemoryReader(data []byte) *MemoryReader {
	return &MemoryReader{Data: data}
}

func (memreader *MemoryReader) CreateHandler() error {
	return nil
}

func (memreader *MemoryReader) CloseHandler() error {
	return nil
}

func (memreader *MemoryReader) ReadAbsolute(offset int64, length int) ([]byte, error) {
	if err := checkRange(offset, length, int64(len(memreader.Data))); err != nil {
		return nil, err
	}
	return append([]byte(nil), memreader.Data[offset:offset+int64(length)]...), nil
}

func (memreader *MemoryReader) GetDiskSize() int64 {
	return int64(len(memreader.Data))
}
