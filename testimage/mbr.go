package testimage

import "encoding/binary"

// MBRPartition is one entry of a partition table.
type MBRPartition struct {
	Type     uint8
	StartLBA uint32
	Sectors  uint32
	Bootable bool
}

// PartitionTable encodes a boot sector with up to four entries and the 55AA signature.
func PartitionTable(entries ...MBRPartition) []byte {
	sector := make([]byte, SectorSize)
	for idx, entry := range entries {
		if idx == 4 {
			break
		}
		pos := 446 + 16*idx
		if entry.Bootable {
			sector[pos] = 0x80
		}
		sector[pos+4] = entry.Type
		binary.LittleEndian.PutUint32(sector[pos+8:], entry.StartLBA)
		binary.LittleEndian.PutUint32(sector[pos+12:], entry.Sectors)
	}
	sector[510] = 0x55
	sector[511] = 0xaa
	return sector
}

// DiskPartition is a volume image placed at StartLBA.
type DiskPartition struct {
	Type     uint8
	StartLBA uint32
	Volume   []byte
}

// BuildMBRDisk lays the volumes out behind a partition table describing them.
func BuildMBRDisk(partitions ...DiskPartition) []byte {
	var entries []MBRPartition
	end := int64(SectorSize)
	for _, partition := range partitions {
		sectors := uint32((len(partition.Volume) + SectorSize - 1) / SectorSize)
		entries = append(entries, MBRPartition{Type: partition.Type, StartLBA: partition.StartLBA, Sectors: sectors})
		end = max(end, int64(partition.StartLBA+sectors)*SectorSize)
	}

	disk := make([]byte, end)
	copy(disk, PartitionTable(entries...))
	for _, partition := range partitions {
		copy(disk[int64(partition.StartLBA)*SectorSize:], partition.Volume)
	}
	return disk
}
