package readers

import (
	"github.com/aarsakian/DiskTree/errs"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// MMapReader maps the whole image file into memory.
type MMapReader struct {
	PathToEvidenceFiles string
	readerAt            *mmap.ReaderAt
}

func (mreader *MMapReader) CreateHandler() error {
	readerAt, err := mmap.Open(mreader.PathToEvidenceFiles)
	if err != nil {
		return errors.Wrapf(err, "mapping %s", mreader.PathToEvidenceFiles)
	}
	mreader.readerAt = readerAt
	return nil
}

func (mreader MMapReader) CloseHandler() error {
	if mreader.readerAt == nil {
		return nil
	}
	return mreader.readerAt.Close()
}

func (mreader MMapReader) ReadAbsolute(offset int64, length int) ([]byte, error) {
	if err := checkRange(offset, length, mreader.GetDiskSize()); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	n, err := mreader.readerAt.ReadAt(data, offset)
	if n < length {
		if err != nil {
			return nil, errors.Wrapf(&errs.ShortReadError{Offset: offset, Requested: length, Read: n}, "%s", err)
		}
		return nil, &errs.ShortReadError{Offset: offset, Requested: length, Read: n}
	}
	return data, nil
}

func (mreader MMapReader) GetDiskSize() int64 {
	if mreader.readerAt == nil {
		return 0
	}
	return int64(mreader.readerAt.Len())
}
