package metadata

import "github.com/aarsakian/DiskTree/FS/NTFS/MFT"

type NTFSRecord struct {
	*MFT.Record
}

func (ntfsRecord NTFSRecord) FindAttribute(attrName string) Attribute {
	attr := ntfsRecord.Record.FindAttribute(attrName)
	if attr == nil {
		return nil
	}
	return attr
}

func (ntfsRecord NTFSRecord) GetParent() Record {
	if ntfsRecord.Parent == nil {
		return nil
	}
	return NTFSRecord{ntfsRecord.Parent}
}
