package disk

import (
	"fmt"
	"io"
	"path"
	"strings"

	metadata "github.com/aarsakian/DiskTree/FS"
	mbrLib "github.com/aarsakian/DiskTree/disk/partition/MBR"
	"github.com/aarsakian/DiskTree/disk/volume"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/vmdk"
	"github.com/pkg/errors"
)

var ErrNTFSVol = errors.New("NTFS volume discovered instead of MBR")

type Partition interface {
	readers.ByteSource
	GetOffset() uint64
	LocateVolume() error
	GetVolume() volume.Volume
	GetInfo() string
	GetVolInfo() string
}

type Disk struct {
	MBR        *mbrLib.MBR
	Handler    readers.DiskReader
	VMDK       *vmdk.VMDKImage
	Image      readers.ByteSource // logical disk, the handler itself or the VMDK translation over it
	Partitions []Partition

	RootScanLimit int // entries searched for the root directory, 0 keeps the volume default
}

// Initialize opens the evidence. A .vmdk file, or mode vmdk, is read through the sparse extent translation.
func (disk *Disk) Initialize(pathToDisk string, mode string, grainCacheSize int) error {
	isVMDK := mode == "vmdk" || strings.ToLower(path.Ext(pathToDisk)) == ".vmdk"
	if isVMDK && mode != "mmap" {
		mode = "raw"
	}
	hD, err := readers.GetHandler(pathToDisk, mode)
	if err != nil {
		return errors.Wrapf(err, "opening %s", pathToDisk)
	}
	disk.Handler = hD
	if !isVMDK {
		disk.Image = hD
		return nil
	}
	return disk.AttachVMDK(hD, grainCacheSize)
}

// AttachVMDK reads the logical disk out of the sparse extent held by src.
func (disk *Disk) AttachVMDK(src readers.ByteSource, grainCacheSize int) error {
	vmdkImage, err := vmdk.OpenWithCache(src, grainCacheSize)
	if err != nil {
		return err
	}
	disk.VMDK = vmdkImage
	disk.Image = vmdkImage
	return nil
}

// Process discovers the partitions, recognises their volumes and loads the MFT of
// the selected partition, all of them when partitionNum is -1.
func (disk *Disk) Process(partitionNum int) (map[int][]metadata.Record, error) {
	err := disk.DiscoverPartitions()
	if errors.Is(err, ErrNTFSVol) {
		msg := "No MBR discovered, instead NTFS volume found at 1st sector"
		logger.FSLogger.Warning(msg)
		disk.CreatePseudoMBR("NTFS")
	} else if err != nil {
		return nil, err
	}
	disk.ProcessPartitions(partitionNum)

	err = disk.DiscoverFileSystems(partitionNum)
	if err != nil {
		return nil, err
	}
	return disk.GetFileSystemMetadata(), nil
}

func (disk Disk) Close() error {
	if disk.Handler == nil {
		return nil
	}
	return disk.Handler.CloseHandler()
}

func (disk Disk) hasProtectiveMBR() bool {
	return disk.MBR != nil && disk.MBR.IsProtective()
}

func (disk *Disk) populateMBR() error {
	data, err := disk.Image.ReadAbsolute(0, mbrLib.SectorSize) // MBR always at first sector
	if err != nil {
		return errors.Wrap(err, "reading first sector")
	}
	if volume.IsNTFS(data) {
		return ErrNTFSVol
	}

	mbr, err := mbrLib.Open(disk.Image)
	if err != nil {
		return err
	}
	disk.MBR = mbr
	return nil
}

func (disk *Disk) CreatePseudoMBR(voltype string) {
	var mbr mbrLib.MBR

	mbr.PopulatePseudoMBR(disk.Image, voltype)
	disk.MBR = &mbr
	disk.Partitions = nil
	for idx := range disk.MBR.Partitions {
		disk.Partitions = append(disk.Partitions, &disk.MBR.Partitions[idx])
	}
}

func (disk *Disk) DiscoverPartitions() error {
	err := disk.populateMBR()
	if err != nil {
		return err
	}
	if disk.hasProtectiveMBR() {
		logger.FSLogger.Warning("protective MBR found, GUID partition tables are not read")
	}

	disk.Partitions = nil
	for idx := range disk.MBR.Partitions {
		disk.Partitions = append(disk.Partitions, &disk.MBR.Partitions[idx])
	}
	for idx := range disk.MBR.ExtendedPartitions {
		disk.Partitions = append(disk.Partitions, &disk.MBR.ExtendedPartitions[idx])
	}
	return nil
}

func (disk *Disk) ProcessPartitions(partitionNum int) {
	for idx := range disk.Partitions {
		if partitionNum != -1 && partitionNum != idx {
			continue
		}
		err := disk.Partitions[idx].LocateVolume()
		if err != nil {
			logger.FSLogger.Error(fmt.Sprintf("partition %d: %s", idx, err))
			continue
		}

		parttionOffset := disk.Partitions[idx].GetOffset()
		vol := disk.Partitions[idx].GetVolume()
		if vol == nil {
			msg := "No Known Volume at partition %d (Currently supported NTFS)."
			logger.FSLogger.Warning(fmt.Sprintf(msg, idx))
			continue //fs not found
		}
		msg := "Partition %d  %s at %d sector"
		logger.FSLogger.Info(fmt.Sprintf(msg, idx, vol.GetSignature(), parttionOffset))
	}
}

func (disk *Disk) DiscoverFileSystems(partitionNum int) error {
	for idx := range disk.Partitions {
		if partitionNum != -1 && partitionNum != idx {
			continue
		}
		vol := disk.Partitions[idx].GetVolume()
		if vol == nil {
			continue
		}
		if ntfs, ok := vol.(*volume.NTFS); ok && disk.RootScanLimit > 0 {
			ntfs.RootScanLimit = disk.RootScanLimit
		}
		msg := fmt.Sprintf("Processing partition %d at sector %d", idx, disk.Partitions[idx].GetOffset())
		logger.FSLogger.Info(msg)
		err := vol.Process()
		if err != nil {
			return errors.Wrapf(err, "partition %d", idx)
		}
	}
	return nil
}

func (disk Disk) GetFileSystemMetadata() map[int][]metadata.Record {
	recordsPerPartition := map[int][]metadata.Record{}
	for idx, partition := range disk.Partitions {
		vol := partition.GetVolume()
		if vol == nil {
			continue
		}
		ntfs, ok := vol.(*volume.NTFS)
		if ok && ntfs.MFT == nil {
			continue
		}
		recordsPerPartition[idx] = vol.GetFS()
	}
	return recordsPerPartition
}

// GetNTFS returns the processed NTFS volume of a partition.
func (disk Disk) GetNTFS(partitionNum int) (*volume.NTFS, error) {
	if partitionNum < 0 || partitionNum >= len(disk.Partitions) {
		return nil, errors.Errorf("partition %d not found, %d partitions", partitionNum, len(disk.Partitions))
	}
	ntfs, ok := disk.Partitions[partitionNum].GetVolume().(*volume.NTFS)
	if !ok || ntfs == nil {
		return nil, errors.Errorf("no NTFS volume at partition %d", partitionNum)
	}
	if ntfs.MFT == nil {
		return nil, errors.Errorf("NTFS volume at partition %d has not been processed", partitionNum)
	}
	return ntfs, nil
}

func (disk Disk) ShowVolumeInfo(w io.Writer) {
	for idx, partition := range disk.Partitions {
		if partition.GetVolume() == nil {
			continue
		}
		fmt.Fprintf(w, "Partition %d %s\n", idx, partition.GetVolInfo())
	}
}

func (disk Disk) ListPartitions(w io.Writer) {
	if disk.hasProtectiveMBR() {
		fmt.Fprintf(w, "GPT:\n")
	} else {
		fmt.Fprintf(w, "MBR:\n")
	}
	for idx, partition := range disk.Partitions {
		fmt.Fprintf(w, "%d %s\n", idx, partition.GetInfo())
	}
}

// CollectUnallocated sends the runs of consecutive unallocated clusters of a partition.
func (disk Disk) CollectUnallocated(partitionNum int, blocks chan<- []byte) error {
	defer close(blocks)
	ntfs, err := disk.GetNTFS(partitionNum)
	if err != nil {
		return err
	}
	unallocatedClusters, err := ntfs.GetUnallocatedClusters()
	if err != nil {
		return err
	}

	for start := 0; start < len(unallocatedClusters); {
		end := start + 1
		for end < len(unallocatedClusters) && unallocatedClusters[end] == unallocatedClusters[end-1]+1 {
			end++
		}
		data, err := ntfs.ReadClusters(int64(unallocatedClusters[start]), end-start)
		if err != nil {
			return err
		}
		blocks <- data
		start = end
	}
	return nil
}
