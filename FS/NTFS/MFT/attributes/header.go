package attributes

import (
	"fmt"

	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/pkg/errors"
)

const (
	StdInfoType         uint32 = 0x10
	AttrListType        uint32 = 0x20
	FileNameType        uint32 = 0x30
	ObjectIDType        uint32 = 0x40
	SecurityType        uint32 = 0x50
	VolumeNameType      uint32 = 0x60
	VolumeInfoType      uint32 = 0x70
	DataType            uint32 = 0x80
	IndexRootType       uint32 = 0x90
	IndexAllocationType uint32 = 0xa0
	BitmapType          uint32 = 0xb0
	ReparseType         uint32 = 0xc0
	EndOfAttributes     uint32 = 0xffffffff
)

var AttrTypes = map[uint32]string{
	0x10: "Standard Information", 0x20: "Attribute List",
	0x30: "FileName", 0x40: "Object ID",
	0x50: "Security Descriptor", 0x60: "Volume Name",
	0x70: "Volume Info", 0x80: "DATA",
	0x90: "Index Root", 0xa0: "Index Allocation",
	0xb0: "BitMap", 0xc0: "Reparse Point",
	0xd0: "EA Information", 0xe0: "EA",
	0x100:      "Logged Utility Stream",
	0xffffffff: "Last",
}

var dataFlags = map[uint16]string{
	0x0001: "Compressed",
	0x4000: "Encrypted",
	0x8000: "Sparse",
}

type AttributeHeader struct {
	Offset               int    // start of the attribute inside its MFT entry
	Type                 uint32 //0-4  type of attribute e.g. $DATA
	AttrLen              uint32 //4-8  length of attribute
	NoNResident          uint8  //8
	Nlen                 uint8  //9 name length in utf16 units
	NameOff              uint16 //10-12 name offset relative to the start of attribute
	Flags                uint16 //12-14 compressed, encrypted, sparse
	ID                   uint16 //14-16
	Name                 string
	ATRrecordResident    *ATRrecordResident
	ATRrecordNoNResident *ATRrecordNoNResident
}

type ATRrecordResident struct {
	ContentSize   uint32 //16-20 size of Resident attribute
	OffsetContent uint16 //20-22 offset to content relative to the attribute start
	IDxflag       uint8  //22
	Content       []byte
}

type ATRrecordNoNResident struct {
	StartVcn          uint64 //16-24
	LastVcn           uint64 //24-32
	RunOff            uint16 //32-34 offset to the data runs
	Compusize         uint16 //34-36 compression unit, 2^n clusters
	Alen              uint64 //40-48 allocated
	ActualLength      uint64 //48-56 data size
	InitLength        uint64 //56-64 valid data size
	TotalAllocated    uint64 //64-72 only when compressed
	RunList           *RunList
	RunListTotalLenCl uint64
}

// ReadAttributeHeader decodes the attribute that starts at the decoder position.
// On return the decoder stands after the decoded header fields; callers move it to
// the end of the record using AttrLen.
func ReadAttributeHeader(d *decoder.Decoder) (*AttributeHeader, error) {
	attrHeader := &AttributeHeader{Offset: d.Tell()}
	err := d.Struct(func(d *decoder.Decoder) {
		attrHeader.Type = d.U32()
		attrHeader.AttrLen = d.U32()
		attrHeader.NoNResident = d.U8()
		attrHeader.Nlen = d.U8()
		attrHeader.NameOff = d.U16()
		attrHeader.Flags = d.U16()
		attrHeader.ID = d.U16()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "attribute header at %d", attrHeader.Offset)
	}

	if attrHeader.Nlen > 0 {
		err = d.SeekTemp(attrHeader.Offset+int(attrHeader.NameOff), func(d *decoder.Decoder) error {
			attrHeader.Name = d.FixedText(2*int(attrHeader.Nlen), decoder.UTF16LE)
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "name of attribute %s", attrHeader.GetType())
		}
	}

	if attrHeader.IsNoNResident() {
		err = attrHeader.readNonResident(d)
	} else {
		err = attrHeader.readResident(d)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "attribute %s at %d", attrHeader.GetType(), attrHeader.Offset)
	}
	return attrHeader, nil
}

func (attrHeader *AttributeHeader) readResident(d *decoder.Decoder) error {
	resident := new(ATRrecordResident)
	err := d.Struct(func(d *decoder.Decoder) {
		resident.ContentSize = d.U32()
		resident.OffsetContent = d.U16()
		resident.IDxflag = d.U8()
		d.Skip(1)
	})
	if err != nil {
		return err
	}
	err = d.SeekTemp(attrHeader.Offset+int(resident.OffsetContent), func(d *decoder.Decoder) error {
		resident.Content = d.Read(int(resident.ContentSize))
		return nil
	})
	if err != nil {
		return err
	}
	attrHeader.ATRrecordResident = resident
	return nil
}

func (attrHeader *AttributeHeader) readNonResident(d *decoder.Decoder) error {
	nonResident := new(ATRrecordNoNResident)
	err := d.Struct(func(d *decoder.Decoder) {
		nonResident.StartVcn = d.U64()
		nonResident.LastVcn = d.U64()
		nonResident.RunOff = d.U16()
		nonResident.Compusize = d.U16()
		d.Skip(4)
		nonResident.Alen = d.U64()
		nonResident.ActualLength = d.U64()
		nonResident.InitLength = d.U64()
		if nonResident.Compusize > 0 {
			nonResident.TotalAllocated = d.U64()
		}
	})
	if err != nil {
		return err
	}

	if uint32(nonResident.RunOff) > attrHeader.AttrLen {
		return errs.NewIntegrityError("data runs offset %d beyond attribute length %d",
			nonResident.RunOff, attrHeader.AttrLen)
	}
	var runs []byte
	err = d.SeekTemp(attrHeader.Offset+int(nonResident.RunOff), func(d *decoder.Decoder) error {
		runs = d.Read(int(attrHeader.AttrLen) - int(nonResident.RunOff))
		return nil
	})
	if err != nil {
		return err
	}

	nonResident.RunList = new(RunList)
	nonResident.RunListTotalLenCl, err = nonResident.RunList.Process(runs)
	if err != nil {
		return err
	}
	attrHeader.ATRrecordNoNResident = nonResident
	return nil
}

func (attrHeader AttributeHeader) GetType() string {
	attrType, ok := AttrTypes[attrHeader.Type]
	if !ok {
		return fmt.Sprintf("Unknown 0x%x", attrHeader.Type)
	}
	return attrType
}

func (attrHeader AttributeHeader) GetName() string {
	return attrHeader.Name
}

func (attrHeader AttributeHeader) IsLast() bool {
	return attrHeader.Type == EndOfAttributes
}

func (attrHeader AttributeHeader) IsFileName() bool {
	return attrHeader.Type == FileNameType
}

func (attrHeader AttributeHeader) IsData() bool {
	return attrHeader.Type == DataType
}

func (attrHeader AttributeHeader) IsObject() bool {
	return attrHeader.Type == ObjectIDType
}

func (attrHeader AttributeHeader) IsAttrList() bool {
	return attrHeader.Type == AttrListType
}

func (attrHeader AttributeHeader) IsBitmap() bool {
	return attrHeader.Type == BitmapType
}

func (attrHeader AttributeHeader) IsVolumeName() bool {
	return attrHeader.Type == VolumeNameType
}

func (attrHeader AttributeHeader) IsVolumeInfo() bool {
	return attrHeader.Type == VolumeInfoType
}

func (attrHeader AttributeHeader) IsIndexRoot() bool {
	return attrHeader.Type == IndexRootType
}

func (attrHeader AttributeHeader) IsIndexAllocation() bool {
	return attrHeader.Type == IndexAllocationType
}

func (attrHeader AttributeHeader) IsStdInfo() bool {
	return attrHeader.Type == StdInfoType
}

func (attrHeader AttributeHeader) IsNoNResident() bool {
	return attrHeader.NoNResident == 1
}

func (attrHeader AttributeHeader) IsCompressed() bool {
	return attrHeader.Flags&0x0001 != 0
}

func (attrHeader AttributeHeader) IsEncrypted() bool {
	return attrHeader.Flags&0x4000 != 0
}

func (attrHeader AttributeHeader) IsSparse() bool {
	return attrHeader.Flags&0x8000 != 0
}

// GetFlags names the data flags set on the attribute.
func (attrHeader AttributeHeader) GetFlags() []string {
	var flags []string
	for _, bit := range []uint16{0x0001, 0x4000, 0x8000} {
		if attrHeader.Flags&bit != 0 {
			flags = append(flags, dataFlags[bit])
		}
	}
	return flags
}

// GetContentSize is the logical size of the attribute payload.
func (attrHeader AttributeHeader) GetContentSize() int64 {
	if attrHeader.ATRrecordNoNResident != nil {
		return int64(attrHeader.ATRrecordNoNResident.ActualLength)
	}
	if attrHeader.ATRrecordResident != nil {
		return int64(attrHeader.ATRrecordResident.ContentSize)
	}
	return 0
}
