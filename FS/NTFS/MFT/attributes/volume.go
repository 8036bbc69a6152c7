package attributes

import (
	"fmt"

	"github.com/aarsakian/DiskTree/utils"
)

type VolumeName struct {
	Name   string
	Header *AttributeHeader
}

type VolumeInfo struct {
	F1     uint64           //unused
	MajVer uint8            // 8-8
	MinVer uint8            // 9-9
	Flags  uint16           //dirty, resize log file, upgrade on mount
	Header *AttributeHeader `struct:"-"`
}

func (volName *VolumeName) SetHeader(header *AttributeHeader) {
	volName.Header = header
}

func (volName VolumeName) GetHeader() AttributeHeader {
	return *volName.Header
}

func (volName *VolumeName) Parse(data []byte) error {
	volName.Name = utils.DecodeUTF16(data)
	return nil
}

func (volName VolumeName) FindType() string {
	return volName.Header.GetType()
}

func (volName VolumeName) IsNoNResident() bool {
	return volName.Header.IsNoNResident()
}

func (volInfo *VolumeInfo) SetHeader(header *AttributeHeader) {
	volInfo.Header = header
}

func (volInfo VolumeInfo) GetHeader() AttributeHeader {
	return *volInfo.Header
}

func (volInfo *VolumeInfo) Parse(data []byte) error {
	return utils.Unmarshal(data, volInfo)
}

func (volInfo VolumeInfo) FindType() string {
	return volInfo.Header.GetType()
}

func (volInfo VolumeInfo) IsNoNResident() bool {
	return volInfo.Header.IsNoNResident()
}

func (volInfo VolumeInfo) GetVersion() string {
	return fmt.Sprintf("%d.%d", volInfo.MajVer, volInfo.MinVer)
}

func (volInfo VolumeInfo) IsDirty() bool {
	return volInfo.Flags&0x0001 != 0
}
