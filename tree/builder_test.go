package tree

import (
	"bytes"
	"testing"

	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/disk/volume"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/testimage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	records  map[uint64]*MFT.Record
	listings map[int]MFTAttributes.IndexEntries
	failing  map[int]error
}

func (reader fakeReader) RootEntry() (*MFT.Record, error) {
	record, ok := reader.records[MFT.RootEntry]
	if !ok {
		return nil, errs.NewIntegrityError("no root")
	}
	return record, nil
}

func (reader fakeReader) ReadDirectoryEntries(record *MFT.Record) (MFTAttributes.IndexEntries, error) {
	if err, ok := reader.failing[record.Index]; ok {
		return nil, err
	}
	return reader.listings[record.Index], nil
}

func (reader fakeReader) GetRecord(entry uint64, seq uint16) (*MFT.Record, error) {
	record, ok := reader.records[entry]
	if !ok {
		return nil, errs.NewIntegrityError("no entry %d", entry)
	}
	return record, nil
}

func value(ref uint64, name string, namespace uint8) MFTAttributes.IndexEntry {
	return MFTAttributes.IndexEntry{ParRef: ref, ParSeq: 1,
		Fnattr: &MFTAttributes.FNAttribute{Fname: name, Nspace: namespace}}
}

func newFakeReader() fakeReader {
	return fakeReader{
		records: map[uint64]*MFT.Record{
			MFT.RootEntry: {Index: MFT.RootEntry, Flags: 0x03},
			16:            {Index: 16, Flags: 0x03},
			17:            {Index: 17, Flags: 0x03},
			18:            {Index: 18, Flags: 0x01},
		},
		listings: map[int]MFTAttributes.IndexEntries{
			MFT.RootEntry: {
				value(MFT.RootEntry, ".", 3),
				value(16, "DOCUME~1", 2),
				value(16, "Documents", 1),
				value(99, "stale.txt", 3),
				value(17, "broken", 3),
			},
			16: {value(18, "a.txt", 3)},
		},
		failing: map[int]error{17: errs.NewIntegrityError("record 17 has 0 index roots")},
	}
}

func TestBuildFromDirectoryReader(t *testing.T) {
	var recordsTree Tree
	require.NoError(t, recordsTree.Build(newFakeReader()))

	assert.Equal(t, 4, recordsTree.Len())
	root := recordsTree.GetRoot()
	require.Len(t, root.GetChildren(), 2)
	assert.Equal(t, "broken", root.GetChildren()[0].Name)
	assert.Equal(t, "Documents", root.GetChildren()[1].Name)
	assert.Error(t, root.GetChildren()[0].Err)
	assert.NoError(t, root.GetChildren()[1].Err)

	node, err := recordsTree.Find("/documents/A.TXT")
	require.NoError(t, err)
	assert.Equal(t, 18, node.Record.Index)
	assert.Equal(t, "/Documents/a.txt", node.GetPath())
	assert.Equal(t, "Documents", node.GetParent().Name)
	assert.False(t, node.IsFolder())

	_, err = recordsTree.Find("/stale.txt")
	assert.Error(t, err)
}

func TestBuildFailsWithoutRootListing(t *testing.T) {
	reader := newFakeReader()
	reader.failing[MFT.RootEntry] = errors.New("unreadable")

	var recordsTree Tree
	assert.Error(t, recordsTree.Build(reader))
}

func TestFindBeforeBuild(t *testing.T) {
	var recordsTree Tree
	_, err := recordsTree.Find("/")
	assert.Error(t, err)
	assert.NoError(t, recordsTree.Walk(func(*Node) error { return nil }))
}

func TestWalkAndRecords(t *testing.T) {
	var recordsTree Tree
	require.NoError(t, recordsTree.Build(newFakeReader()))

	var visited []int
	require.NoError(t, recordsTree.Walk(func(node *Node) error {
		visited = append(visited, node.Record.Index)
		return nil
	}))
	assert.Equal(t, []int{MFT.RootEntry, 17, 16, 18}, visited)
	assert.Len(t, recordsTree.Records(), 4)

	stop := errors.New("stop")
	count := 0
	err := recordsTree.Walk(func(node *Node) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, count)
}

func TestShow(t *testing.T) {
	var recordsTree Tree
	require.NoError(t, recordsTree.Build(newFakeReader()))

	var buf bytes.Buffer
	recordsTree.Show(&buf)
	assert.Equal(t, "./ 5\n  broken/ 17\n  Documents/ 16\n    a.txt 18\n", buf.String())
}

func TestBuildFromVolume(t *testing.T) {
	image := testimage.BuildNTFS(testimage.NTFSSpec{
		Files: []testimage.NTFSFile{
			{Entry: 20, Name: "Windows", Dir: true},
			{Entry: 21, Parent: 20, Name: "System32", Dir: true, IndexInAllocation: true},
			{Parent: 21, Name: "kernel.dll", Content: []byte("MZ"), Resident: true},
			{Entry: 22, Name: "Program Files", DosName: "PROGRA~1", Dir: true},
			{Name: "readme.txt", Content: []byte("read me"), Resident: true},
			{Name: "gone.txt", Content: []byte("x"), Resident: true, Deleted: true},
		},
	})
	ntfs, err := volume.OpenNTFS(readers.NewMemoryReader(image))
	require.NoError(t, err)

	var recordsTree Tree
	require.NoError(t, recordsTree.Build(ntfs))
	assert.Equal(t, 9, recordsTree.Len())

	var names []string
	for _, child := range recordsTree.GetRoot().GetChildren() {
		names = append(names, child.Name)
	}
	assert.Equal(t, []string{"$Bitmap", "$MFT", "$Volume", "Program Files", "readme.txt", "Windows"}, names)

	node, err := recordsTree.Find("windows/system32/KERNEL.DLL")
	require.NoError(t, err)
	assert.Equal(t, "/Windows/System32/kernel.dll", node.GetPath())
	assert.Equal(t, []byte("MZ"), node.Record.GetResidentData())

	_, err = recordsTree.Find("/gone.txt")
	assert.Error(t, err)
}
