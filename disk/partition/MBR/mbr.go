package MBR

import (
	"fmt"
	"math"

	"github.com/aarsakian/DiskTree/disk/volume"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/utils"
	"github.com/pkg/errors"
)

const (
	SectorSize      = 512
	PartitionsStart = 446
	SignatureOffset = 510
	maxLogical      = 128
)

var PartitionTypes = map[uint8]string{
	0x01: "FAT12",
	0x04: "FAT16 <32M",
	0x05: "Extended",
	0x06: "FAT16",
	0x07: "HPFS/NTFS/exFAT",
	0x0b: "W95 FAT32",
	0x0c: "W95 FAT32 (LBA)",
	0x0e: "W95 FAT16 (LBA)",
	0x0f: "W95 Ext'd (LBA)",
	0x17: "Hidden HPFS/NTFS",
	0x27: "Hidden NTFS WinRE",
	0x82: "Linux swap",
	0x83: "Linux",
	0x85: "Linux extended",
	0x8e: "Linux LVM",
	0xee: "GPT protective"}

type MBR struct {
	BootCode           [446]byte //0-445
	Partitions         []Partition
	ExtendedPartitions []ExtendedPartition
	Signature          [2]byte //510-511
}

// Entry is the 16 byte partition table record.
type Entry struct {
	Flag     uint8
	StartCHS [3]byte
	Type     uint8
	EndCHS   [3]byte
	StartLBA uint32
	Size     uint32 //sectors
}

type Partition struct {
	Entry
	Volume volume.Volume
	src    readers.ByteSource
}

type ExtendedPartition struct {
	Partition   *Partition
	TableOffset int // sector of the extended boot record describing it
}

func (partition Partition) GetOffset() uint64 {
	return uint64(partition.StartLBA)
}

func (partition Partition) GetPartitionType() string {
	name, ok := PartitionTypes[partition.Type]
	if !ok {
		return fmt.Sprintf("Unknown (0x%02x)", partition.Type)
	}
	return name
}

func (partition Partition) IsExtended() bool {
	return partition.Type == 0x05 || partition.Type == 0x0f || partition.Type == 0x85
}

// ReadAbsolute reads relative to the first sector of the partition.
func (partition Partition) ReadAbsolute(offset int64, size int) ([]byte, error) {
	if partition.src == nil {
		return nil, errs.NewIntegrityError("partition at sector %d has no underlying disk", partition.StartLBA)
	}
	if offset < 0 || offset+int64(size) > partition.GetDiskSize() {
		read := partition.GetDiskSize() - offset
		if read < 0 {
			read = 0
		}
		return nil, &errs.ShortReadError{Offset: offset, Requested: size, Read: int(read)}
	}
	return partition.src.ReadAbsolute(int64(partition.StartLBA)*SectorSize+offset, size)
}

func (partition Partition) GetDiskSize() int64 {
	return int64(partition.Size) * SectorSize
}

// LocateVolume recognises the file system stored in the partition.
func (partition *Partition) LocateVolume() error {
	if partition.IsExtended() {
		return nil
	}
	data, err := partition.ReadAbsolute(0, SectorSize)
	if err != nil {
		return errors.Wrapf(err, "reading boot sector of partition at %d", partition.StartLBA)
	}
	if !volume.IsNTFS(data) {
		return nil
	}
	ntfs := volume.NewNTFS(partition)
	err = ntfs.AddVolume(data)
	if err != nil {
		return err
	}
	partition.Volume = ntfs
	return nil
}

func (partition Partition) GetVolume() volume.Volume {
	return partition.Volume
}

func (partition Partition) GetInfo() string {
	return fmt.Sprintf(" %s at %d size %d sectors", partition.GetPartitionType(), partition.GetOffset(), partition.Size)
}

func (partition Partition) GetVolInfo() string {
	if partition.Volume == nil {
		return ""
	}
	return partition.Volume.GetInfo()
}

func (extPartition ExtendedPartition) GetOffset() uint64 {
	return extPartition.Partition.GetOffset()
}

func (extPartition *ExtendedPartition) LocateVolume() error {
	return extPartition.Partition.LocateVolume()
}

func (extPartition ExtendedPartition) GetVolume() volume.Volume {
	return extPartition.Partition.Volume
}

func (extPartition ExtendedPartition) GetInfo() string {
	return fmt.Sprintf("\tlogical partition %s at %d size %d sectors",
		extPartition.Partition.GetPartitionType(), extPartition.Partition.GetOffset(), extPartition.Partition.Size)
}

func (extPartition ExtendedPartition) GetVolInfo() string {
	return extPartition.Partition.GetVolInfo()
}

func (extPartition ExtendedPartition) ReadAbsolute(offset int64, size int) ([]byte, error) {
	return extPartition.Partition.ReadAbsolute(offset, size)
}

func (extPartition ExtendedPartition) GetDiskSize() int64 {
	return extPartition.Partition.GetDiskSize()
}

func (mbr MBR) IsProtective() bool {
	return len(mbr.Partitions) > 0 && mbr.Partitions[0].Type == 0xee
}

func (mbr MBR) GetPartition(partitionNum int) Partition {
	return mbr.Partitions[partitionNum]
}

// LocatePartitions decodes the four table entries keeping those with sectors.
func LocatePartitions(data []byte) ([]Partition, error) {
	var partitions []Partition
	for pos := 0; pos+16 <= len(data) && pos < 64; pos += 16 {
		var partition *Partition = new(Partition) //explicit is better
		err := utils.Unmarshal(data[pos:pos+16], &partition.Entry)
		if err != nil {
			return nil, err
		}
		if partition.Size == 0 {
			continue
		}
		partitions = append(partitions, *partition)
	}

	return partitions, nil
}

func (mbr *MBR) Parse(buffer []byte) error {
	if len(buffer) < SectorSize {
		return &errs.ShortReadError{Offset: 0, Requested: SectorSize, Read: len(buffer)}
	}
	copy(mbr.Signature[:], buffer[SignatureOffset:SectorSize])
	if mbr.Signature != [2]byte{0x55, 0xaa} {
		return &errs.FormatError{Structure: "MBR", Expected: "55aa", Found: utils.Hexify(mbr.Signature[:])}
	}
	copy(mbr.BootCode[:], buffer[:PartitionsStart])

	partitions, err := LocatePartitions(buffer[PartitionsStart:SignatureOffset])
	if err != nil {
		return err
	}
	mbr.Partitions = partitions
	return nil
}

// Open reads the partition table of src and binds every partition to it.
func Open(src readers.ByteSource) (*MBR, error) {
	data, err := src.ReadAbsolute(0, SectorSize)
	if err != nil {
		return nil, errors.Wrap(err, "reading MBR")
	}
	mbr := new(MBR)
	err = mbr.Parse(data)
	if err != nil {
		return nil, err
	}
	for idx := range mbr.Partitions {
		mbr.Partitions[idx].src = src
	}

	offset, err := mbr.GetExtendedPartitionOffset()
	if err == nil {
		err = mbr.DiscoverExtendedPartitions(src, offset)
		if err != nil {
			logger.FSLogger.Warning(fmt.Sprintf("extended partition chain at %d: %s", offset, err))
		}
	}
	return mbr, nil
}

func (mbr MBR) GetExtendedPartitionOffset() (uint32, error) {
	for _, partition := range mbr.Partitions {
		if partition.IsExtended() {
			return partition.StartLBA, nil
		}
	}
	return 0, errors.New("extended partition not found")
}

// DiscoverExtendedPartitions follows the chain of extended boot records.
// Logical partitions start relative to their own record, the next record relative to the extended partition.
func (mbr *MBR) DiscoverExtendedPartitions(src readers.ByteSource, extendedStart uint32) error {
	var extPartitions []ExtendedPartition
	visited := map[uint32]bool{}
	tableSector := extendedStart
	for len(extPartitions) < maxLogical && !visited[tableSector] {
		visited[tableSector] = true
		data, err := src.ReadAbsolute(int64(tableSector)*SectorSize, SectorSize)
		if err != nil {
			mbr.ExtendedPartitions = extPartitions
			return err
		}
		var ebr MBR
		err = ebr.Parse(data)
		if err != nil {
			mbr.ExtendedPartitions = extPartitions
			return err
		}
		next := uint32(0)
		for idx := range ebr.Partitions {
			partition := ebr.Partitions[idx]
			if partition.IsExtended() {
				next = extendedStart + partition.StartLBA
				continue
			}
			partition.StartLBA += tableSector
			partition.src = src
			extPartitions = append(extPartitions, ExtendedPartition{Partition: &partition, TableOffset: int(tableSector)})
		}
		if next == 0 {
			break
		}
		tableSector = next
	}
	mbr.ExtendedPartitions = extPartitions
	return nil
}

// PopulatePseudoMBR covers a disk that starts directly with a volume.
func (mbr *MBR) PopulatePseudoMBR(src readers.ByteSource, voltype string) {
	partition := new(Partition)
	if voltype == "NTFS" {
		partition.Type = 0x07
	}
	sectors := src.GetDiskSize() / SectorSize
	if sectors > math.MaxUint32 {
		// an MBR entry cannot describe more than 2 TiB
		logger.FSLogger.Warning(fmt.Sprintf("volume of %d sectors truncated to %d", sectors, uint32(math.MaxUint32)))
		sectors = math.MaxUint32
	}
	partition.Size = uint32(sectors)
	partition.src = src
	mbr.Partitions = []Partition{*partition}
}
