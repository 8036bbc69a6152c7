package readers

// Cursor keeps a read position over a ByteSource.
type Cursor struct {
	src ByteSource
	pos int64
}

func NewCursor(src ByteSource) *Cursor {
	return &Cursor{src: src}
}

func (cursor *Cursor) Tell() int64 {
	return cursor.pos
}

func (cursor *Cursor) Seek(offset int64) {
	cursor.pos = offset
}

// Read returns size bytes at the current position and advances past them.
func (cursor *Cursor) Read(size int) ([]byte, error) {
	data, err := cursor.src.ReadAbsolute(cursor.pos, size)
	if err != nil {
		return nil, err
	}
	cursor.pos += int64(size)
	return data, nil
}
