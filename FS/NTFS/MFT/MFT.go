package MFT

import (
	"fmt"
	"path"
	"slices"
	"strings"

	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/utils"
	"github.com/pkg/errors"
)

const (
	DefaultRecordSize = 1024
	RootEntry         = 5
)

var SIFlags = map[uint32]string{
	1: "Read Only", 2: "Hidden", 4: "System", 32: "Archive", 64: "Device", 128: "Normal",
	256: "Temporary", 512: "Sparse", 1024: "Reparse Point", 2048: "Compressed",
	4096: "Offline",
	8192: "Not Indexed", 16384: "Encrypted",
}

var MFTflags = map[uint16]string{
	0: "File Unallocated", 1: "File Allocated", 2: "Folder Unallocated", 3: "Folder Allocated",
}

type Records []Record

type Attribute interface {
	FindType() string
	SetHeader(header *MFTAttributes.AttributeHeader)
	GetHeader() MFTAttributes.AttributeHeader
	IsNoNResident() bool
	Parse([]byte) error
}

type IndexAttributes interface {
	GetIndexEntriesSortedByMFTEntry() MFTAttributes.IndexEntries
	GetEntries() MFTAttributes.IndexEntries
}

// LinkedRecordInfo is an attribute list entry kept in another MFT entry.
type LinkedRecordInfo struct {
	RefEntry uint64
	RefSeq   uint16
	StartVCN uint64
	Type     string
}

// MFT Record
type Record struct {
	Signature            [4]byte //0-3
	UpdateFixUpArrOffset uint16  //4-5      offset values are relative to the start of the entry.
	UpdateFixUpArrSize   uint16  //6-7
	Lsn                  uint64  //8-15    logfile sequence number, points to the most recent LogFile entry for this MFT entry
	Seq                  uint16  //16-17   is incremented when the entry is either allocated or unallocated, determined by the OS.
	Linkcount            uint16  //18-19        how many directories have entries for this MFTentry
	AttrOff              uint16  //20-21       //first attr location
	Flags                uint16  //22-23  //tells whether entry is used or not
	Size                 uint32  //24-27 used bytes of the entry
	AllocSize            uint32  //28-31
	BaseRef              uint64  //32-39
	NextAttrID           uint16  //40-41 e.g. if it is 6 then there are attributes with 1 to 5
	F1                   uint16  //42-43
	Entry                uint32  //44-48 stored entry number, zero on entries written before XP

	Index             int                  `struct:"-"` // slot position in the $MFT stream
	FixUp             *MFTAttributes.FixUp `struct:"-"`
	Attributes        []Attribute          `struct:"-"`
	LinkedRecordsInfo []LinkedRecordInfo   `struct:"-"`
	I30Size           uint64               `struct:"-"`
	Parent            *Record              `struct:"-"`
}

func (record Record) GetSignature() string {
	return string(record.Signature[:])
}

// Process decodes an MFT entry: header, update sequence fixups and the attribute stream.
func (record *Record) Process(bs []byte) error {
	bs = append([]byte(nil), bs...)
	err := utils.Unmarshal(bs, record)
	if err != nil {
		return errors.Wrap(err, "MFT entry header")
	}

	if record.GetSignature() != "FILE" {
		return &errs.FormatError{Structure: "MFT entry", Expected: "FILE",
			Found: utils.Hexify(record.Signature[:])}
	}

	record.FixUp, err = MFTAttributes.ParseFixUp(bs, record.UpdateFixUpArrOffset, record.UpdateFixUpArrSize)
	if err != nil {
		return errors.Wrap(err, "MFT entry fixup")
	}
	mismatched := record.FixUp.Apply(bs, MFTAttributes.FixUpStride)
	if len(mismatched) > 0 {
		logger.FSLogger.Warning(fmt.Sprintf("record %d fixup mismatch at sectors %v", record.Index, mismatched))
	}
	record.I30Size = 0 //default value

	limit := len(bs)
	if record.Size > 0 && int(record.Size) < limit {
		limit = int(record.Size)
	}
	d := decoder.New(bs[:limit])
	d.Seek(int(record.AttrOff))

	var attributes []Attribute
	var linkedRecordsInfo []LinkedRecordInfo
	for d.Err() == nil && d.Remaining() >= 4 {
		start := d.Tell()
		var marker uint32
		d.Peek(func(d *decoder.Decoder) error {
			marker = d.U32()
			return nil
		})
		if marker == MFTAttributes.EndOfAttributes {
			break
		}

		attrHeader, err := MFTAttributes.ReadAttributeHeader(d)
		if err != nil {
			logger.FSLogger.Warning(fmt.Sprintf("record %d: %s", record.Index, err))
			break
		}
		if attrHeader.AttrLen == 0 {
			logger.FSLogger.Warning(fmt.Sprintf("record %d zero length attribute at %d", record.Index, start))
			break
		}

		attr, err := newAttribute(attrHeader)
		if err != nil {
			logger.FSLogger.Warning(fmt.Sprintf("record %d attribute %s: %s",
				record.Index, attrHeader.GetType(), err))
		} else {
			attributes = append(attributes, attr)
			if attrList, ok := attr.(*MFTAttributes.AttributeListEntries); ok {
				linkedRecordsInfo = append(linkedRecordsInfo, record.linkedRecords(attrList)...)
			}
		}
		// always continue at the next record whatever the payload decoding consumed
		d.Seek(start + int(attrHeader.AttrLen))
	}
	record.Attributes = attributes
	record.LinkedRecordsInfo = linkedRecordsInfo
	return nil
}

func newAttribute(attrHeader *MFTAttributes.AttributeHeader) (Attribute, error) {
	var attr Attribute
	switch attrHeader.Type {
	case MFTAttributes.StdInfoType:
		attr = &MFTAttributes.SIAttribute{}
	case MFTAttributes.FileNameType:
		attr = &MFTAttributes.FNAttribute{}
	case MFTAttributes.DataType:
		attr = &MFTAttributes.DATA{}
	case MFTAttributes.IndexRootType:
		attr = &MFTAttributes.IndexRoot{}
	case MFTAttributes.IndexAllocationType:
		attr = &MFTAttributes.IndexAllocationRecords{}
	case MFTAttributes.BitmapType:
		attr = &MFTAttributes.BitMap{}
	case MFTAttributes.VolumeNameType:
		attr = &MFTAttributes.VolumeName{}
	case MFTAttributes.VolumeInfoType:
		attr = &MFTAttributes.VolumeInfo{}
	case MFTAttributes.AttrListType:
		attr = &MFTAttributes.AttributeListEntries{}
	default:
		attr = &MFTAttributes.Unknown{}
	}
	attr.SetHeader(attrHeader)
	if attrHeader.IsNoNResident() {
		// content is read through the volume on demand
		return attr, nil
	}
	err := attr.Parse(attrHeader.ATRrecordResident.Content)
	if err != nil {
		return nil, err
	}
	return attr, nil
}

func (record Record) linkedRecords(attrList *MFTAttributes.AttributeListEntries) []LinkedRecordInfo {
	var linkedRecordsInfo []LinkedRecordInfo
	for _, entry := range attrList.Entries {
		if entry.GetEntry() == uint64(record.Index) {
			continue
		}
		linkedRecordsInfo = append(linkedRecordsInfo, LinkedRecordInfo{RefEntry: entry.GetEntry(),
			RefSeq: uint16(entry.ParRef >> 48), StartVCN: entry.StartVcn, Type: entry.GetType()})
	}
	if len(linkedRecordsInfo) > 0 {
		logger.FSLogger.Warning(fmt.Sprintf("record %d keeps %d attributes in other entries, they are not merged",
			record.Index, len(linkedRecordsInfo)))
	}
	return linkedRecordsInfo
}

func (record Record) getType() string {
	return MFTflags[record.Flags&0x03]
}

func (record Record) IsInUse() bool {
	return record.Flags&0x01 != 0
}

func (record Record) IsFolder() bool {
	return record.Flags&0x02 != 0
}

func (record Record) IsDeleted() bool {
	return !record.IsInUse()
}

func (record Record) GetID() int {
	return record.Index
}

func (record Record) GetSequence() int {
	return int(record.Seq)
}

func (record Record) FindAttribute(attributeName string) Attribute {
	for _, attribute := range record.Attributes {
		if attribute.FindType() == attributeName {
			return attribute
		}
	}
	return nil
}

func (record Record) FindAttributes(attributeName string) []Attribute {
	return utils.Filter(record.Attributes, func(attribute Attribute) bool {
		return attribute.FindType() == attributeName
	})
}

// FindNamedAttribute returns the attribute of the given type and stream name.
func (record Record) FindNamedAttribute(attrType uint32, name string) Attribute {
	for _, attribute := range record.Attributes {
		header := attribute.GetHeader()
		if header.Type == attrType && header.GetName() == name {
			return attribute
		}
	}
	return nil
}

func (record Record) FindNonResidentAttributes() []Attribute {
	return utils.Filter(record.Attributes, func(attribute Attribute) bool {
		return attribute.IsNoNResident()
	})
}

func (record Record) HasAttr(attrName string) bool {
	return record.FindAttribute(attrName) != nil
}

func (record Record) HasResidentDataAttr() bool {
	attribute := record.FindNamedAttribute(MFTAttributes.DataType, "")
	return attribute != nil && !attribute.IsNoNResident()
}

func (record Record) GetResidentData() []byte {
	attribute := record.FindNamedAttribute(MFTAttributes.DataType, "")
	if attribute == nil || attribute.IsNoNResident() {
		return nil
	}
	return attribute.(*MFTAttributes.DATA).Content
}

// GetRunList returns the run list of the unnamed attribute of attrType.
func (record Record) GetRunList(attrType uint32) *MFTAttributes.RunList {
	attr := record.FindNamedAttribute(attrType, "")
	if attr == nil || !attr.IsNoNResident() {
		return nil
	}
	return attr.GetHeader().ATRrecordNoNResident.RunList
}

func (record Record) getVCNs() (uint64, uint64) {
	for _, attribute := range record.Attributes {
		if attribute.IsNoNResident() {
			return attribute.GetHeader().ATRrecordNoNResident.StartVcn,
				attribute.GetHeader().ATRrecordNoNResident.LastVcn
		}
	}
	return 0, 0
}

func (record Record) GetVCNs() (uint64, uint64) {
	return record.getVCNs()
}

func (record Record) GetFileNames() []*MFTAttributes.FNAttribute {
	var fnattrs []*MFTAttributes.FNAttribute
	for _, attr := range record.FindAttributes("FileName") {
		fnattrs = append(fnattrs, attr.(*MFTAttributes.FNAttribute))
	}
	return fnattrs
}

func (record Record) GetFnames() map[string]string {
	fnAttributes := record.GetFileNames()
	fnames := make(map[string]string, len(fnAttributes))
	for _, fnattr := range fnAttributes {
		fnames[fnattr.GetFileNameType()] = fnattr.Fname
	}
	return fnames
}

// GetFname prefers the long name over the 8.3 one.
func (record Record) GetFname() string {
	fnames := record.GetFnames()
	for _, namescheme := range []string{"Win32", "Win32 & Dos", "POSIX", "Dos"} {
		name, ok := fnames[namescheme]
		if ok {
			return name
		}
	}
	return "-"
}

// GetFileName returns the FILE_NAME attribute carrying the preferred name.
func (record Record) GetFileName() *MFTAttributes.FNAttribute {
	fnattrs := record.GetFileNames()
	for _, namescheme := range []uint8{1, 3, 0, 2} {
		for _, fnattr := range fnattrs {
			if fnattr.Nspace == namescheme {
				return fnattr
			}
		}
	}
	return nil
}

func (record Record) HasParent() bool {
	return record.Parent != nil
}

// GetFullPath joins the names of the ancestors up to the root, the record's own name excluded.
func (record Record) GetFullPath() string {
	var names []string
	visited := map[int]bool{record.Index: true}
	for parent := record.Parent; parent != nil && parent.Index != RootEntry; parent = parent.Parent {
		if visited[parent.Index] {
			logger.FSLogger.Warning(fmt.Sprintf("record %d has a parent loop at %d", record.Index, parent.Index))
			break
		}
		visited[parent.Index] = true
		names = append(names, parent.GetFname())
	}
	slices.Reverse(names)
	return "/" + path.Join(names...)
}

func (record Record) HasFilenameExtension(extension string) bool {
	fname := strings.ToLower(record.GetFname())
	return strings.HasSuffix(fname, "."+strings.ToLower(extension))
}

func (record Record) HasFilename(filename string) bool {
	return record.GetFname() == filename
}

func (record Record) HasFilenames(filenames []string) bool {
	for _, filename := range filenames {
		if record.HasFilename(filename) {
			return true
		}
	}
	return false
}

func (record Record) HasPath(filespath string) bool {
	return record.GetFullPath() == filespath
}

func (record Record) HasPrefix(prefix string) bool {
	return strings.HasPrefix(record.GetFname(), prefix)
}

func (record Record) HasSuffix(suffix string) bool {
	return strings.HasSuffix(record.GetFname(), suffix)
}

func (record Record) GetPhysicalSize() int64 {
	data := record.FindNamedAttribute(MFTAttributes.DataType, "")
	if data != nil && data.IsNoNResident() {
		return int64(data.GetHeader().ATRrecordNoNResident.Alen)
	}
	fnattr := record.GetFileName()
	if fnattr != nil {
		return int64(fnattr.AllocFsize)
	}
	return 0
}

// GetLogicalFileSize takes the size from the DATA attribute, then FILE_NAME, then the parent index.
func (record Record) GetLogicalFileSize() int64 {
	data := record.FindNamedAttribute(MFTAttributes.DataType, "")
	if data != nil {
		header := data.GetHeader()
		return header.GetContentSize()
	}
	fnattr := record.GetFileName()
	if fnattr != nil && fnattr.RealFsize != 0 {
		return int64(fnattr.RealFsize)
	}
	return int64(record.I30Size)
}

func (record Record) GetTimestamps() (string, string, string, string) {
	attr := record.FindAttribute("Standard Information")
	if attr != nil {
		return attr.(*MFTAttributes.SIAttribute).GetTimestamps()
	}
	fnattr := record.GetFileName()
	if fnattr != nil {
		return fnattr.GetTimestamps()
	}
	return "", "", "", ""
}

// GetIndexEntries gathers the values of the resident index root and the loaded allocation nodes.
func (record Record) GetIndexEntries() MFTAttributes.IndexEntries {
	var idxEntries MFTAttributes.IndexEntries
	for _, attrName := range []string{"Index Root", "Index Allocation"} {
		attr := record.FindAttribute(attrName)
		if attr == nil {
			continue
		}
		idxEntries = append(idxEntries, attr.(IndexAttributes).GetEntries()...)
	}
	return idxEntries
}

func (record Record) GetUnallocatedClusters(totalClusters int) []int {
	attr := record.FindAttribute("BitMap")
	if attr == nil {
		return nil
	}
	return attr.(*MFTAttributes.BitMap).GetUnallocated(totalClusters)
}

func (record Record) GetInfo() string {
	startVCN, lastVCN := record.getVCNs()
	info := fmt.Sprintf("record %d seq %d type %s name %s", record.Index, record.Seq, record.getType(), record.GetFname())
	if startVCN != 0 || lastVCN != 0 {
		info += fmt.Sprintf(" startVCN %d endVCN %d", startVCN, lastVCN)
	}
	return info
}
