//go:build unix

package readers

import (
	"fmt"
	"io"
	"os"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DeviceReader reads block devices such as /dev/sdb with pread.
type DeviceReader struct {
	pathToDisk string
	fd         int
	size       int64
}

func newPhysicalDriveReader(pathToDisk string) DiskReader {
	return &DeviceReader{pathToDisk: pathToDisk, fd: -1}
}

func (devreader *DeviceReader) CreateHandler() error {
	fd, err := unix.Open(devreader.pathToDisk, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return errors.Wrapf(err, "opening %s", devreader.pathToDisk)
	}
	// lseek to the end works for regular files and block devices alike
	size, err := unix.Seek(fd, 0, io.SeekEnd)
	if err != nil {
		unix.Close(fd)
		return errors.Wrapf(err, "size of %s", devreader.pathToDisk)
	}
	devreader.fd = fd
	devreader.size = size
	return nil
}

func (devreader *DeviceReader) CloseHandler() error {
	if devreader.fd < 0 {
		return nil
	}
	err := unix.Close(devreader.fd)
	devreader.fd = -1
	return err
}

func (devreader *DeviceReader) ReadAbsolute(offset int64, length int) ([]byte, error) {
	if err := checkRange(offset, length, devreader.size); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	read := 0
	for read < length {
		n, err := unix.Pread(devreader.fd, data[read:], offset+int64(read))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			logger.FSLogger.Error(fmt.Sprintf("pread failed at offset %d: %v", offset+int64(read), err))
			return nil, &os.PathError{Op: "pread", Path: devreader.pathToDisk, Err: err}
		}
		if n == 0 {
			return nil, &errs.ShortReadError{Offset: offset, Requested: length, Read: read}
		}
		read += n
	}
	return data, nil
}

func (devreader *DeviceReader) GetDiskSize() int64 {
	return devreader.size
}
