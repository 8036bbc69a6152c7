package volume

import (
	metadata "github.com/aarsakian/DiskTree/FS"
)

type Volume interface {
	Process() error
	GetSectorsPerCluster() int
	GetBytesPerSector() uint64
	GetInfo() string
	GetFS() []metadata.Record
	GetUnallocatedClusters() ([]int, error)
	GetSignature() string
}
