package attributes

import (
	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/utils"
)

var NameSpaceFlags = map[uint8]string{
	0: "POSIX", 1: "Win32", 2: "Dos", 3: "Win32 & Dos",
}

type FNAttribute struct {
	ParRef     uint64
	ParSeq     uint16
	Crtime     utils.WindowsTime
	Mtime      utils.WindowsTime
	MFTmtime   utils.WindowsTime
	Atime      utils.WindowsTime
	AllocFsize uint64
	RealFsize  uint64
	Flags      uint32 //hidden, read only, directory
	Reparse    uint32
	Nlen       uint8 //length of name
	Nspace     uint8 //format of name
	Fname      string
	Header     *AttributeHeader
}

func (fnattr *FNAttribute) SetHeader(header *AttributeHeader) {
	fnattr.Header = header
}

func (fnattr FNAttribute) GetHeader() AttributeHeader {
	return *fnattr.Header
}

func (fnattr FNAttribute) FindType() string {
	return fnattr.Header.GetType()
}

func (fnattr FNAttribute) IsNoNResident() bool {
	return fnattr.Header.IsNoNResident()
}

// Parse decodes a FILE_NAME payload, the same layout is used by directory index keys.
func (fnattr *FNAttribute) Parse(data []byte) error {
	d := decoder.New(data)
	return d.Struct(func(d *decoder.Decoder) {
		ref := d.U64()
		fnattr.ParRef = ref & 0x0000ffffffffffff
		fnattr.ParSeq = uint16(ref >> 48)
		fnattr.Crtime = utils.WindowsTime{Stamp: d.U64()}
		fnattr.Mtime = utils.WindowsTime{Stamp: d.U64()}
		fnattr.MFTmtime = utils.WindowsTime{Stamp: d.U64()}
		fnattr.Atime = utils.WindowsTime{Stamp: d.U64()}
		fnattr.AllocFsize = d.U64()
		fnattr.RealFsize = d.U64()
		fnattr.Flags = d.U32()
		fnattr.Reparse = d.U32()
		fnattr.Nlen = d.U8()
		fnattr.Nspace = d.U8()
		fnattr.Fname = d.FixedText(2*int(fnattr.Nlen), decoder.UTF16LE)
	})
}

func (fnattr FNAttribute) GetFileNameType() string {
	return NameSpaceFlags[fnattr.Nspace]
}

func (fnattr FNAttribute) IsDosOnly() bool {
	return fnattr.Nspace == 2
}

func (fnattr FNAttribute) IsFolder() bool {
	return fnattr.Flags&0x10000000 != 0
}

func (fnattr FNAttribute) GetTimestamps() (string, string, string, string) {
	atime := fnattr.Atime.ConvertToIsoTime()
	ctime := fnattr.Crtime.ConvertToIsoTime()
	mtime := fnattr.Mtime.ConvertToIsoTime()
	mftime := fnattr.MFTmtime.ConvertToIsoTime()
	return atime, ctime, mtime, mftime
}
