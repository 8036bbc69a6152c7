package readers

import (
	"fmt"
	"io"
	"os"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/pkg/errors"
)

type RawReader struct {
	PathToEvidenceFiles string
	fd                  *os.File
	size                int64
}

func (imgreader *RawReader) CreateHandler() error {
	file, err := os.Open(imgreader.PathToEvidenceFiles)
	if err != nil {
		return errors.Wrapf(err, "getting handle of %s", imgreader.PathToEvidenceFiles)
	}
	finfo, err := file.Stat()
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "stat of %s", imgreader.PathToEvidenceFiles)
	}
	imgreader.fd = file
	imgreader.size = finfo.Size()
	return nil
}

func (imgreader RawReader) CloseHandler() error {
	if imgreader.fd == nil {
		return nil
	}
	return imgreader.fd.Close()
}

func (imgreader RawReader) ReadAbsolute(physicalOffset int64, length int) ([]byte, error) {
	if err := checkRange(physicalOffset, length, imgreader.size); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	n, err := imgreader.fd.ReadAt(data, physicalOffset)
	logger.FSLogger.Info(fmt.Sprintf("raw read: offset %d len %d", physicalOffset, length))
	if n < length {
		if err != nil && !errors.Is(err, io.EOF) {
			logger.FSLogger.Error(fmt.Sprintf("error %s reading file", err))
			return nil, errors.Wrapf(err, "reading %s at %d", imgreader.PathToEvidenceFiles, physicalOffset)
		}
		return nil, &errs.ShortReadError{Offset: physicalOffset, Requested: length, Read: n}
	}
	return data, nil

}

func (imgreader RawReader) GetDiskSize() int64 {
	return imgreader.size
}
