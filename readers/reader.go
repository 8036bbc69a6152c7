package readers

import (
	"fmt"

	"github.com/aarsakian/DiskTree/errs"
)

// ByteSource reads exact absolute byte ranges. A read returns size bytes or fails, never less.
type ByteSource interface {
	ReadAbsolute(offset int64, size int) ([]byte, error)
	GetDiskSize() int64
}

// DiskReader is a ByteSource backed by a medium that must be opened and closed.
type DiskReader interface {
	ByteSource
	CreateHandler() error
	CloseHandler() error
}

func GetHandler(pathToDisk string, mode string) (DiskReader, error) {

	var dr DiskReader
	switch mode {
	case "physicalDrive", "device":
		dr = newPhysicalDriveReader(pathToDisk)
	case "mmap":
		dr = &MMapReader{PathToEvidenceFiles: pathToDisk}
	case "raw", "vmdk":
		dr = &RawReader{PathToEvidenceFiles: pathToDisk}
	default:
		return nil, errs.NewUnsupported("reader mode %s", mode)
	}
	err := dr.CreateHandler()
	if err != nil {
		return nil, err
	}

	return dr, nil
}

// checkRange rejects reads that fall outside a source of the given size.
func checkRange(offset int64, size int, diskSize int64) error {
	if offset < 0 || size < 0 {
		return fmt.Errorf("invalid read offset %d size %d", offset, size)
	}
	if diskSize >= 0 && offset+int64(size) > diskSize {
		read := diskSize - offset
		if read < 0 {
			read = 0
		}
		return &errs.ShortReadError{Offset: offset, Requested: size, Read: int(read)}
	}
	return nil
}
