//go:build windows

package readers

import (
	"fmt"
	"unsafe"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const chunkSize = 64 * 1024 * 1024 // 64 MB

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procSetFilePointerEx = kernel32.NewProc("SetFilePointerEx")
)

type DISK_GEOMETRY struct {
	Cylinders         int64
	MediaType         int32
	TracksPerCylinder int32
	SectorsPerTrack   int32
	BytesPerSector    int32
}

type WindowsReader struct {
	a_file string
	fd     windows.Handle
}

func newPhysicalDriveReader(pathToDisk string) DiskReader {
	return &WindowsReader{a_file: pathToDisk}
}

func (winreader *WindowsReader) CreateHandler() error {
	file_ptr, err := windows.UTF16PtrFromString(winreader.a_file)
	if err != nil {
		return err
	}
	var templateHandle windows.Handle
	fd, err := windows.CreateFile(file_ptr, windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil,
		windows.OPEN_EXISTING, windows.FILE_FLAG_SEQUENTIAL_SCAN, templateHandle)
	if err != nil {
		return errors.Wrapf(err, "opening %s", winreader.a_file)
	}
	winreader.fd = fd
	return nil
}

func (winreader WindowsReader) CloseHandler() error {
	return windows.Close(winreader.fd)
}

func (winreader WindowsReader) GetDiskSize() int64 {
	const IOCTL_DISK_GET_DRIVE_GEOMETRY = 0x70000
	const nByte_DISK_GEOMETRY = 24
	disk_geometry := DISK_GEOMETRY{}

	var returned uint32
	var inBuffer *byte
	err := windows.DeviceIoControl(winreader.fd, IOCTL_DISK_GET_DRIVE_GEOMETRY,
		inBuffer, 0, (*byte)(unsafe.Pointer(&disk_geometry)), nByte_DISK_GEOMETRY, &returned, nil)
	if err != nil {
		logger.FSLogger.Error(fmt.Sprintf("drive geometry of %s: %v", winreader.a_file, err))
		return -1
	}

	return disk_geometry.Cylinders * int64(disk_geometry.TracksPerCylinder) *
		int64(disk_geometry.SectorsPerTrack) * int64(disk_geometry.BytesPerSector)
}

// ReadAbsolute reads in chunks, physical drives need sector aligned requests.
func (winreader WindowsReader) ReadAbsolute(startOffset int64, totalSize int) ([]byte, error) {
	if err := checkRange(startOffset, totalSize, winreader.GetDiskSize()); err != nil {
		return nil, err
	}
	data := make([]byte, totalSize)
	offset := 0

	for offset < totalSize {

		err := setFilePointerEx(winreader.fd, int64(offset)+startOffset, windows.FILE_BEGIN)
		if err != nil {
			return nil, errors.Wrapf(err, "seek failed at offset %d", int64(offset)+startOffset)
		}

		toRead := chunkSize
		if totalSize-offset < chunkSize {
			toRead = totalSize - offset
		}

		var bytesRead uint32
		err = windows.ReadFile(winreader.fd, data[offset:offset+toRead], &bytesRead, nil)
		if err != nil {
			logger.FSLogger.Error(fmt.Sprintf("Read failed at offset %d: %v", int64(offset)+startOffset, err))
			return nil, err
		}

		logger.FSLogger.Info(fmt.Sprintf("Read %d bytes at offset %d", bytesRead, int64(offset)+startOffset))
		offset += int(bytesRead)

		if bytesRead == 0 {
			return nil, &errs.ShortReadError{Offset: startOffset, Requested: totalSize, Read: offset}
		}
	}
	return data, nil

}

func setFilePointerEx(handle windows.Handle, distance int64, moveMethod uint32) error {
	var newPos int64
	r1, _, err := procSetFilePointerEx.Call(
		uintptr(handle),
		uintptr(distance),
		uintptr(unsafe.Pointer(&newPos)),
		uintptr(moveMethod),
	)
	if r1 == 0 {
		return err
	}
	return nil
}
