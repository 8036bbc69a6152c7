package MFT

import (
	"bytes"
	"testing"

	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileEntry(entry uint32, seq uint16, flags uint16, parent uint64, name string, attrs ...[]byte) []byte {
	dir := flags&0x02 != 0
	all := [][]byte{
		testimage.ResidentAttr(MFTAttributes.StdInfoType, "", 0, testimage.StandardInformation(0x20)),
		testimage.ResidentAttr(MFTAttributes.FileNameType, "", 2, testimage.FileName(parent, RootEntry, name, 3, dir, 0)),
	}
	return testimage.MFTEntry(entry, seq, flags, append(all, attrs...)...)
}

func TestRecordProcess(t *testing.T) {
	data := fileEntry(16, 3, 0x01, RootEntry, "notes.txt",
		testimage.ResidentAttr(MFTAttributes.DataType, "", 3, []byte("hello world")))

	var record Record
	require.NoError(t, record.Process(data))

	assert.Equal(t, "FILE", record.GetSignature())
	assert.Equal(t, uint16(3), record.Seq)
	assert.Equal(t, uint32(16), record.Entry)
	assert.True(t, record.IsInUse())
	assert.False(t, record.IsFolder())
	assert.Len(t, record.Attributes, 3)
	assert.Equal(t, "notes.txt", record.GetFname())
	assert.True(t, record.HasFilenameExtension("TXT"))
	assert.True(t, record.HasResidentDataAttr())
	assert.Equal(t, []byte("hello world"), record.GetResidentData())
	assert.Equal(t, int64(11), record.GetLogicalFileSize())

	atime, ctime, _, _ := record.GetTimestamps()
	assert.Equal(t, "2020-09-13T12:26:40.000Z", atime)
	assert.Equal(t, atime, ctime)
}

func TestRecordFixupsRestoreContent(t *testing.T) {
	content := bytes.Repeat([]byte{0x5a, 0xa5}, 300)
	data := fileEntry(20, 1, 0x01, RootEntry, "spans.bin",
		testimage.ResidentAttr(MFTAttributes.DataType, "", 3, content))

	var record Record
	require.NoError(t, record.Process(data))
	assert.Equal(t, content, record.GetResidentData())
}

func TestRecordFixupMismatchIsTolerated(t *testing.T) {
	data := fileEntry(20, 1, 0x01, RootEntry, "a.txt")
	data[1022] ^= 0xff

	var record Record
	require.NoError(t, record.Process(data))
	assert.Equal(t, "a.txt", record.GetFname())
}

func TestRecordBadSignature(t *testing.T) {
	data := fileEntry(20, 1, 0x01, RootEntry, "a.txt")
	copy(data, "BAAD")

	var record Record
	err := record.Process(data)
	var formatErr *errs.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "42414144", formatErr.Found)
}

func TestRecordSkipsUnknownAttributes(t *testing.T) {
	data := fileEntry(21, 1, 0x01, RootEntry, "stream.dat",
		testimage.ResidentAttr(0x100, "$TXF_DATA", 6, make([]byte, 40)),
		testimage.ResidentAttr(MFTAttributes.DataType, "", 3, []byte("after")))

	var record Record
	require.NoError(t, record.Process(data))
	assert.Len(t, record.Attributes, 4)
	assert.True(t, record.HasAttr("Logged Utility Stream"))
	assert.Equal(t, []byte("after"), record.GetResidentData())
}

func TestRecordZeroLengthAttributeEndsStream(t *testing.T) {
	broken := testimage.ResidentAttr(MFTAttributes.DataType, "", 3, []byte("data"))
	broken[4], broken[5], broken[6], broken[7] = 0, 0, 0, 0
	data := fileEntry(22, 1, 0x01, RootEntry, "broken", broken)

	var record Record
	require.NoError(t, record.Process(data))
	assert.Len(t, record.Attributes, 2)
	assert.False(t, record.HasResidentDataAttr())
}

func TestRecordNonResidentData(t *testing.T) {
	data := fileEntry(23, 1, 0x01, RootEntry, "big.bin",
		testimage.NonResidentAttr(testimage.NonResident{
			Type: MFTAttributes.DataType, ID: 3,
			Runs:    []testimage.Run{{LCN: 40, Length: 2}, {LCN: 10, Length: 1}},
			LastVCN: 2, Allocated: 3 * 4096, DataSize: 10000, ValidSize: 10000,
		}))

	var record Record
	require.NoError(t, record.Process(data))

	assert.False(t, record.HasResidentDataAttr())
	assert.Nil(t, record.GetResidentData())
	assert.Len(t, record.FindNonResidentAttributes(), 1)
	runlist := record.GetRunList(MFTAttributes.DataType)
	require.NotNil(t, runlist)
	assert.Equal(t, []MFTAttributes.Run{{LCN: 40, Length: 2}, {LCN: 10, Length: 1}}, runlist.Runs())
	assert.Equal(t, int64(3*4096), record.GetPhysicalSize())
	assert.Equal(t, int64(10000), record.GetLogicalFileSize())
	startVCN, lastVCN := record.GetVCNs()
	assert.Equal(t, uint64(0), startVCN)
	assert.Equal(t, uint64(2), lastVCN)
}

func TestRecordPrefersLongName(t *testing.T) {
	data := testimage.MFTEntry(24, 1, 0x01,
		testimage.ResidentAttr(MFTAttributes.FileNameType, "", 2, testimage.FileName(RootEntry, RootEntry, "LONGNA~1.TXT", 2, false, 0)),
		testimage.ResidentAttr(MFTAttributes.FileNameType, "", 3, testimage.FileName(RootEntry, RootEntry, "Long Name.txt", 1, false, 0)))

	var record Record
	require.NoError(t, record.Process(data))
	assert.Equal(t, "Long Name.txt", record.GetFname())
	assert.Equal(t, "Long Name.txt", record.GetFileName().Fname)
	assert.Equal(t, map[string]string{"Dos": "LONGNA~1.TXT", "Win32": "Long Name.txt"}, record.GetFnames())
	assert.True(t, record.HasFilenames([]string{"x", "Long Name.txt"}))
	assert.True(t, record.HasPrefix("Long"))
	assert.True(t, record.HasSuffix(".txt"))
}

func TestRecordWithoutNames(t *testing.T) {
	var record Record
	require.NoError(t, record.Process(testimage.MFTEntry(25, 1, 0x01)))
	assert.Equal(t, "-", record.GetFname())
	assert.Nil(t, record.GetFileName())
	assert.Equal(t, int64(0), record.GetLogicalFileSize())
}
