package MFT

import (
	"fmt"

	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/utils"
	"github.com/pkg/errors"
)

const (
	DefaultRootScanLimit = 32
	slotsPerRead         = 256
)

// ReallocatedError reports a file reference whose sequence number no longer matches the entry.
type ReallocatedError struct {
	Entry     uint64
	RecordSeq uint16
	RefSeq    uint16
}

func (e *ReallocatedError) Error() string {
	return fmt.Sprintf("entry %d has been reallocated with seq %d ref seq %d", e.Entry, e.RecordSeq, e.RefSeq)
}

// MFTTable holds the decoded entries of $MFT indexed by slot position.
type MFTTable struct {
	Records        []Record
	Size           int
	RecordSize     int
	CorruptEntries []int
}

func (mfttable *MFTTable) recordSize() int {
	if mfttable.RecordSize <= 0 {
		return DefaultRecordSize
	}
	return mfttable.RecordSize
}

// ProcessRecords decodes a $MFT stream held in memory.
func (mfttable *MFTTable) ProcessRecords(data []byte) error {
	return mfttable.ProcessStream(readers.NewMemoryReader(data))
}

// ProcessStream walks the fixed size slots of the $MFT stream. Unused slots are
// skipped, corrupt ones are logged and listed in CorruptEntries, a corrupt entry 0 is fatal.
func (mfttable *MFTTable) ProcessStream(src readers.ByteSource) error {
	recordSize := mfttable.recordSize()
	mfttable.Size = int(src.GetDiskSize() / int64(recordSize))
	mfttable.Records = make([]Record, mfttable.Size)
	mfttable.CorruptEntries = nil

	msg := fmt.Sprintf("Processing %d $MFT entries", mfttable.Size)
	logger.FSLogger.Info(msg)

	cursor := readers.NewCursor(src)
	for slot := 0; slot < mfttable.Size; {
		nofSlots := min(slotsPerRead, mfttable.Size-slot)
		data, err := cursor.Read(nofSlots * recordSize)
		if err != nil {
			return errors.Wrapf(err, "reading $MFT entries %d-%d", slot, slot+nofSlots-1)
		}
		for pos := 0; pos < len(data); pos += recordSize {
			err = mfttable.processSlot(slot, data[pos:pos+recordSize])
			if err != nil {
				return err
			}
			slot++
		}
	}
	return nil
}

func (mfttable *MFTTable) processSlot(slot int, data []byte) error {
	if utils.Hexify(data[:4]) == "00000000" { //zero area skip
		return nil
	}
	record := Record{Index: slot}
	err := record.Process(data)
	if err != nil {
		if slot == 0 {
			return errors.Wrap(err, "$MFT entry 0")
		}
		logger.FSLogger.Error(fmt.Sprintf("skipped corrupt record %d: %s", slot, err))
		mfttable.CorruptEntries = append(mfttable.CorruptEntries, slot)
		return nil
	}
	record.Index = slot
	if record.Entry != 0 && int(record.Entry) != slot {
		logger.FSLogger.Warning(fmt.Sprintf("record at slot %d stores entry number %d", slot, record.Entry))
	}
	mfttable.Records[slot] = record
	return nil
}

func (mfttable MFTTable) isPopulated(entry uint64) bool {
	return entry < uint64(len(mfttable.Records)) && mfttable.Records[entry].GetSignature() == "FILE"
}

// GetRecords returns pointers to the decoded entries in slot order.
func (mfttable *MFTTable) GetRecords() []*Record {
	var records []*Record
	for idx := range mfttable.Records {
		if mfttable.isPopulated(uint64(idx)) {
			records = append(records, &mfttable.Records[idx])
		}
	}
	return records
}

// GetRecord resolves a file reference. A zero sequence skips the check, a sequence one
// behind is accepted for an entry no longer in use since deleting a file increments it.
func (mfttable *MFTTable) GetRecord(referencedEntry uint64, referencedSeq uint16) (*Record, error) {
	if !mfttable.isPopulated(referencedEntry) {
		return nil, errs.NewIntegrityError("cannot find entry record for ref %d", referencedEntry)
	}
	record := &mfttable.Records[referencedEntry]
	if referencedSeq == 0 || record.Seq == referencedSeq {
		return record, nil
	}
	if record.Seq == referencedSeq+1 && !record.IsInUse() {
		return record, nil
	}
	return nil, &ReallocatedError{Entry: referencedEntry, RecordSeq: record.Seq, RefSeq: referencedSeq}
}

// FindRoot returns the first directory named "." within the first limit entries.
func (mfttable *MFTTable) FindRoot(limit int) (*Record, error) {
	for idx := 0; idx <= limit && idx < len(mfttable.Records); idx++ {
		if !mfttable.isPopulated(uint64(idx)) {
			continue
		}
		for _, fnattr := range mfttable.Records[idx].GetFileNames() {
			if fnattr.Fname == "." {
				return &mfttable.Records[idx], nil
			}
		}
	}
	return nil, errs.NewIntegrityError("no root directory within the first %d MFT entries", limit)
}

func (mfttable *MFTTable) FindParentRecords() {
	for idx := range mfttable.Records {
		if !mfttable.isPopulated(uint64(idx)) {
			continue
		}
		fnattr := mfttable.Records[idx].GetFileName()
		if fnattr == nil || fnattr.ParRef == uint64(idx) {
			continue
		}
		parentRecord, err := mfttable.GetRecord(fnattr.ParRef, fnattr.ParSeq)
		if err != nil {
			logger.FSLogger.Warning(fmt.Sprintf("record %d parent: %s", idx, err))
			continue
		}

		logger.FSLogger.Info(fmt.Sprintf("update record %d with parent %d", idx, parentRecord.Index))
		mfttable.Records[idx].Parent = parentRecord
	}
}

// CalculateFileSizes backfills sizes of files from the FILE_NAME keys of their parent index.
func (mfttable *MFTTable) CalculateFileSizes() {
	for _, record := range mfttable.GetRecords() {
		if !record.IsFolder() {
			continue
		}
		for _, attrType := range []string{"Index Root", "Index Allocation"} {
			attr := record.FindAttribute(attrType)
			if attr == nil {
				continue
			}
			mfttable.SetI30Size(attr.(IndexAttributes).GetIndexEntriesSortedByMFTEntry())
		}
	}
}

func (mfttable *MFTTable) SetI30Size(idxEntries MFTAttributes.IndexEntries) {
	for _, idxEntry := range idxEntries {
		if idxEntry.Fnattr == nil {
			continue
		}
		referencedEntry, err := mfttable.GetRecord(idxEntry.ParRef, idxEntry.ParSeq)
		if err != nil {
			continue
		}

		// set file size omit folders
		if referencedEntry.IsFolder() {
			continue
		}

		if idxEntry.Fnattr.RealFsize > idxEntry.Fnattr.AllocFsize {
			referencedEntry.I30Size = idxEntry.Fnattr.AllocFsize
		} else {
			referencedEntry.I30Size = idxEntry.Fnattr.RealFsize
		}
	}
}
