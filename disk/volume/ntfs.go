package volume

import (
	"bytes"
	"fmt"

	metadata "github.com/aarsakian/DiskTree/FS"
	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/utils"
	"github.com/pkg/errors"
)

const (
	oemID        = "NTFS    "
	volumeEntry  = 3
	bitmapEntry  = 6
	bootSectorSz = 512
)

type NTFS struct {
	VBR           *VBR
	MFT           *MFT.MFTTable
	Root          *MFT.Record
	Label         string
	Version       string
	RootScanLimit int
	src           readers.ByteSource
}

type VBR struct { //Volume Boot Record
	JumpInstruction   [3]byte   //0-3
	Signature         [8]byte   //3-11 OEM id
	BytesPerSector    uint16    //11-13
	SectorsPerCluster uint8     //13
	ReservedSectors   uint16    //14-16
	NotUsed1          [3]byte   //16-19
	NotUsed2          uint16    //19-21
	MediaDescriptor   uint8     //21
	NotUsed3          uint16    //22-24
	SectorsPerTrack   uint16    //24-26
	NumberOfHeads     uint16    //26-28
	HiddenSectors     uint32    //28-32
	NotUsed4          uint32    //32-36
	NotUsed5          uint32    //36-40
	TotalSectors      uint64    //40-48
	MFTOffset         uint64    //48-56 cluster
	MFTMirrOffset     uint64    //56-64 cluster
	ClustersPerRecord int8      //64 negative n means 2^-n bytes
	NotUsed6          [3]byte   //65-68
	ClustersPerIndex  int8      //68
	NotUsed7          [3]byte   //69-72
	SerialNumber      uint64    //72-80
	Checksum          uint32    //80-84
	BootCode          [426]byte //84-510
	EndMarker         [2]byte   //510-512
}

// IsNTFS tells whether a boot sector carries the NTFS OEM id.
func IsNTFS(data []byte) bool {
	return len(data) >= 11 && string(data[3:11]) == oemID
}

func NewNTFS(src readers.ByteSource) *NTFS {
	return &NTFS{src: src, RootScanLimit: MFT.DefaultRootScanLimit}
}

// OpenNTFS reads the boot sector of src and loads the MFT.
func OpenNTFS(src readers.ByteSource) (*NTFS, error) {
	data, err := src.ReadAbsolute(0, bootSectorSz)
	if err != nil {
		return nil, errors.Wrap(err, "reading NTFS boot sector")
	}
	ntfs := NewNTFS(src)
	err = ntfs.AddVolume(data)
	if err != nil {
		return nil, err
	}
	err = ntfs.Process()
	if err != nil {
		return nil, err
	}
	return ntfs, nil
}

func (vbr *VBR) Parse(data []byte) error {
	err := utils.Unmarshal(data, vbr)
	if err != nil {
		return errors.Wrap(err, "NTFS boot sector")
	}
	if vbr.GetSignature() != oemID {
		return &errs.FormatError{Structure: "NTFS boot sector", Expected: utils.Hexify([]byte(oemID)),
			Found: utils.Hexify(vbr.Signature[:])}
	}
	if !bytes.Equal(vbr.EndMarker[:], []byte{0x55, 0xaa}) {
		return &errs.FormatError{Structure: "NTFS boot sector", Expected: "55aa",
			Found: utils.Hexify(vbr.EndMarker[:])}
	}
	if vbr.BytesPerSector == 0 || vbr.SectorsPerCluster == 0 {
		return errs.NewIntegrityError("NTFS boot sector with %d bytes per sector and %d sectors per cluster",
			vbr.BytesPerSector, vbr.SectorsPerCluster)
	}
	return nil
}

func (ntfs *NTFS) AddVolume(data []byte) error {
	ntfs.VBR = new(VBR)
	return ntfs.VBR.Parse(data)
}

func (vbr VBR) GetSignature() string {
	return string(vbr.Signature[:])
}

func (vbr VBR) GetClusterSize() int {
	return int(vbr.SectorsPerCluster) * int(vbr.BytesPerSector)
}

// sizeOf decodes the size fields of the boot sector, clusters when positive, 2^-n bytes otherwise.
func (vbr VBR) sizeOf(val int8) int {
	if val < 0 {
		return 1 << uint(-val)
	}
	return int(val) * vbr.GetClusterSize()
}

func (vbr VBR) GetRecordSize() int {
	return vbr.sizeOf(vbr.ClustersPerRecord)
}

func (vbr VBR) GetIndexNodeSize() int {
	return vbr.sizeOf(vbr.ClustersPerIndex)
}

func (ntfs NTFS) GetSignature() string {
	return "NTFS"
}

func (ntfs NTFS) GetSectorsPerCluster() int {
	return int(ntfs.VBR.SectorsPerCluster)
}

func (ntfs NTFS) GetBytesPerSector() uint64 {
	return uint64(ntfs.VBR.BytesPerSector)
}

func (ntfs NTFS) GetClusterSize() int {
	return ntfs.VBR.GetClusterSize()
}

func (ntfs NTFS) GetTotalClusters() int {
	return int(ntfs.VBR.TotalSectors / uint64(ntfs.VBR.SectorsPerCluster))
}

// ReadClusters reads count clusters starting at the logical cluster lcn.
func (ntfs *NTFS) ReadClusters(lcn int64, count int) ([]byte, error) {
	if lcn < 0 || count < 0 {
		return nil, errs.NewIntegrityError("invalid cluster range %d count %d", lcn, count)
	}
	clusterSize := int64(ntfs.GetClusterSize())
	return ntfs.src.ReadAbsolute(lcn*clusterSize, count*int(clusterSize))
}

// Process loads MFT entry 0, walks the $MFT stream it describes and resolves the root directory.
func (ntfs *NTFS) Process() error {
	if ntfs.VBR == nil {
		return errs.NewIntegrityError("NTFS volume without boot sector")
	}
	recordSize := ntfs.VBR.GetRecordSize()
	physicalOffset := int64(ntfs.VBR.MFTOffset) * int64(ntfs.GetClusterSize())

	msg := "Reading first record entry to determine the size of $MFT Table at offset %d"
	logger.FSLogger.Info(fmt.Sprintf(msg, physicalOffset))

	data, err := ntfs.src.ReadAbsolute(physicalOffset, recordSize)
	if err != nil {
		return errors.Wrap(err, "reading $MFT entry 0")
	}
	var mftRecord MFT.Record
	err = mftRecord.Process(data)
	if err != nil {
		return errors.Wrap(err, "$MFT entry 0")
	}

	stream, err := ntfs.OpenFile(&mftRecord)
	if err != nil {
		return errors.Wrap(err, "$MFT data stream")
	}
	if stream.GetDiskSize() < 0 || stream.GetDiskSize() > ntfs.src.GetDiskSize() {
		return errs.NewIntegrityError("$MFT size %d exceeds the volume size %d",
			stream.GetDiskSize(), ntfs.src.GetDiskSize())
	}
	ntfs.MFT = &MFT.MFTTable{RecordSize: recordSize}
	err = ntfs.MFT.ProcessStream(stream)
	if err != nil {
		return err
	}

	ntfs.Root, err = ntfs.MFT.FindRoot(ntfs.RootScanLimit)
	if err != nil {
		return err
	}

	logger.FSLogger.Info("Locating parent $MFT records from Filename attributes")
	ntfs.MFT.FindParentRecords()
	ntfs.MFT.CalculateFileSizes()
	ntfs.readVolumeInfo()
	return nil
}

func (ntfs *NTFS) readVolumeInfo() {
	record, err := ntfs.MFT.GetRecord(volumeEntry, 0)
	if err != nil {
		logger.FSLogger.Warning(fmt.Sprintf("$Volume: %s", err))
		return
	}
	if attr := record.FindAttribute("Volume Name"); attr != nil {
		ntfs.Label = attr.(*MFTAttributes.VolumeName).Name
	}
	if attr := record.FindAttribute("Volume Info"); attr != nil {
		ntfs.Version = attr.(*MFTAttributes.VolumeInfo).GetVersion()
	}
}

// RootEntry returns the root directory resolved by Process.
func (ntfs *NTFS) RootEntry() (*MFT.Record, error) {
	if ntfs.Root == nil {
		return nil, errs.NewIntegrityError("NTFS volume has not been processed")
	}
	return ntfs.Root, nil
}

func (ntfs *NTFS) GetRecord(entry uint64, seq uint16) (*MFT.Record, error) {
	if ntfs.MFT == nil {
		return nil, errs.NewIntegrityError("NTFS volume has not been processed")
	}
	return ntfs.MFT.GetRecord(entry, seq)
}

// loadNonResident reads the content of a non resident attribute and decodes it in place.
func (ntfs *NTFS) loadNonResident(record *MFT.Record, attr MFT.Attribute) error {
	header := attr.GetHeader()
	stream, err := ntfs.OpenAttribute(record, header.Type, header.GetName())
	if err != nil {
		return err
	}
	data, err := stream.ReadAll()
	if err != nil {
		return err
	}
	return attr.Parse(data)
}

// ReadDirectoryEntries lists the index values of a directory: the index root values
// followed by those of the allocation nodes marked in use by the index bitmap.
func (ntfs *NTFS) ReadDirectoryEntries(record *MFT.Record) (MFTAttributes.IndexEntries, error) {
	roots := record.FindAttributes("Index Root")
	if len(roots) != 1 {
		return nil, errs.NewIntegrityError("record %d has %d index roots", record.Index, len(roots))
	}
	idxRoot := roots[0].(*MFTAttributes.IndexRoot)
	name := idxRoot.Header.GetName()
	idxEntries := append(MFTAttributes.IndexEntries(nil), idxRoot.GetEntries()...)

	var bitmap *MFTAttributes.BitMap
	if attr := record.FindAttribute("BitMap"); attr != nil {
		stored := attr.(*MFTAttributes.BitMap)
		if stored.Header.GetName() != name {
			return nil, errs.NewIntegrityError("record %d index bitmap %q does not match index root %q",
				record.Index, stored.Header.GetName(), name)
		}
		bitmap = &MFTAttributes.BitMap{Header: stored.Header, AllocationStatus: stored.AllocationStatus}
		if bitmap.IsNoNResident() && bitmap.AllocationStatus == nil {
			err := ntfs.loadNonResident(record, bitmap)
			if err != nil {
				return nil, errors.Wrapf(err, "index bitmap of record %d", record.Index)
			}
		}
	}

	attr := record.FindAttribute("Index Allocation")
	if attr != nil {
		idxAllocation := attr.(*MFTAttributes.IndexAllocationRecords)
		if idxAllocation.Header.GetName() != name {
			return nil, errs.NewIntegrityError("record %d index allocation %q does not match index root %q",
				record.Index, idxAllocation.Header.GetName(), name)
		}

		stream, err := ntfs.OpenAttribute(record, MFTAttributes.IndexAllocationType, name)
		if err != nil {
			return nil, err
		}
		nodes := MFTAttributes.IndexAllocationRecords{
			Header:   idxAllocation.Header,
			NodeSize: int(idxRoot.Sizebytes),
			Bitmap:   bitmap,
		}
		if nodes.NodeSize == 0 {
			nodes.NodeSize = ntfs.VBR.GetIndexNodeSize()
		}
		err = nodes.ReadNodes(stream)
		if err != nil {
			return nil, errors.Wrapf(err, "index allocation of record %d", record.Index)
		}
		idxEntries = append(idxEntries, nodes.GetEntries()...)
	}

	if ntfs.MFT != nil {
		ntfs.MFT.SetI30Size(idxEntries)
	}
	return utils.FilterClone(idxEntries, func(idxEntry MFTAttributes.IndexEntry) bool {
		return idxEntry.Fnattr != nil
	}), nil
}

func (ntfs NTFS) GetFS() []metadata.Record {
	var records []metadata.Record
	for _, record := range ntfs.MFT.GetRecords() {
		records = append(records, metadata.NTFSRecord{Record: record})
	}
	return records
}

// GetUnallocatedClusters lists the clusters left clear in $Bitmap.
func (ntfs *NTFS) GetUnallocatedClusters() ([]int, error) {
	record, err := ntfs.GetRecord(bitmapEntry, 0)
	if err != nil {
		return nil, errors.Wrap(err, "$Bitmap")
	}
	stream, err := ntfs.OpenFile(record)
	if err != nil {
		return nil, errors.Wrap(err, "$Bitmap")
	}
	data, err := stream.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "$Bitmap")
	}
	bitmap := MFTAttributes.BitMap{AllocationStatus: data}
	return bitmap.GetUnallocated(ntfs.GetTotalClusters()), nil
}

func (ntfs NTFS) GetInfo() string {
	return fmt.Sprintf("%s label %q version %s size %d cluster size %d", ntfs.GetSignature(), ntfs.Label, ntfs.Version,
		ntfs.VBR.TotalSectors*uint64(ntfs.VBR.BytesPerSector), ntfs.GetClusterSize())
}
