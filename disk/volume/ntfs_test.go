package volume

import (
	"sort"
	"testing"

	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clusterSize = 4096
	docsEntry   = 30
)

func pattern(size int, seed int) []byte {
	data := make([]byte, size)
	for idx := range data {
		data[idx] = byte((idx*7 + seed) % 251)
	}
	return data
}

func sparseContent() []byte {
	data := pattern(4*clusterSize, 3)
	clear(data[clusterSize : 3*clusterSize])
	return data
}

func volumeSpec() testimage.NTFSSpec {
	return testimage.NTFSSpec{
		Label: "DATA",
		Files: []testimage.NTFSFile{
			{Name: "readme.txt", Content: []byte("hello ntfs"), Resident: true},
			{Name: "big.bin", Content: pattern(3*clusterSize+100, 1)},
			{Name: "frag.bin", Content: pattern(4*clusterSize, 2), Fragmented: true},
			{Name: "sparse.bin", Content: sparseContent(), SparseFrom: 1, SparseLen: 2},
			{Name: "partial.bin", Content: pattern(2*clusterSize, 4), ValidSize: 5000},
			{Name: "gone.txt", Content: []byte("deleted"), Resident: true, Deleted: true, Seq: 2},
			{Entry: docsEntry, Name: "docs", Dir: true, IndexInAllocation: true},
			{Parent: docsEntry, Name: "a.txt", Content: []byte("a"), Resident: true},
			{Parent: docsEntry, Name: "LongFileName.txt", DosName: "LONGFI~1.TXT", Content: []byte("long"), Resident: true},
		},
	}
}

func openVolume(t *testing.T, spec testimage.NTFSSpec) *NTFS {
	t.Helper()
	ntfs, err := OpenNTFS(readers.NewMemoryReader(testimage.BuildNTFS(spec)))
	require.NoError(t, err)
	return ntfs
}

func findRecord(t *testing.T, ntfs *NTFS, name string) *MFT.Record {
	t.Helper()
	for _, record := range ntfs.MFT.GetRecords() {
		if record.GetFname() == name {
			return record
		}
	}
	require.Failf(t, "record not found", "no record named %s", name)
	return nil
}

func names(idxEntries MFTAttributes.IndexEntries) []string {
	var fnames []string
	for _, idxEntry := range idxEntries {
		fnames = append(fnames, idxEntry.GetFname())
	}
	sort.Strings(fnames)
	return fnames
}

func TestOpenNTFS(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())

	assert.Equal(t, "NTFS", ntfs.GetSignature())
	assert.Equal(t, "DATA", ntfs.Label)
	assert.Equal(t, "3.1", ntfs.Version)
	assert.Equal(t, clusterSize, ntfs.GetClusterSize())
	assert.Equal(t, 8, ntfs.GetSectorsPerCluster())
	assert.Equal(t, uint64(512), ntfs.GetBytesPerSector())
	assert.Equal(t, 1024, ntfs.VBR.GetRecordSize())
	assert.Equal(t, clusterSize, ntfs.VBR.GetIndexNodeSize())
	assert.Equal(t, 64, ntfs.MFT.Size)
	assert.Empty(t, ntfs.MFT.CorruptEntries)

	root, err := ntfs.RootEntry()
	require.NoError(t, err)
	assert.Equal(t, MFT.RootEntry, root.GetID())
	assert.Len(t, ntfs.GetFS(), len(ntfs.MFT.GetRecords()))
	assert.Contains(t, ntfs.GetInfo(), `label "DATA"`)
}

func TestOpenNTFSFragmentedMFT(t *testing.T) {
	spec := volumeSpec()
	spec.FragmentMFT = true
	ntfs := openVolume(t, spec)

	mftRecord, err := ntfs.GetRecord(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, mftRecord.GetRunList(MFTAttributes.DataType).NofFragments())
	assert.Equal(t, "LongFileName.txt", findRecord(t, ntfs, "LongFileName.txt").GetFname())
}

func TestUnprocessedVolume(t *testing.T) {
	ntfs := NewNTFS(readers.NewMemoryReader(nil))
	_, err := ntfs.RootEntry()
	var integrityErr *errs.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
	_, err = ntfs.GetRecord(0, 0)
	assert.ErrorAs(t, err, &integrityErr)
	assert.ErrorAs(t, ntfs.Process(), &integrityErr)
}

func TestBootSectorChecks(t *testing.T) {
	image := testimage.BuildNTFS(volumeSpec())
	assert.True(t, IsNTFS(image))

	badOEM := append([]byte(nil), image...)
	copy(badOEM[3:], "EXFAT   ")
	assert.False(t, IsNTFS(badOEM))
	_, err := OpenNTFS(readers.NewMemoryReader(badOEM))
	var formatErr *errs.FormatError
	assert.ErrorAs(t, err, &formatErr)

	noMarker := append([]byte(nil), image...)
	noMarker[510] = 0
	_, err = OpenNTFS(readers.NewMemoryReader(noMarker))
	assert.ErrorAs(t, err, &formatErr)

	noGeometry := append([]byte(nil), image...)
	noGeometry[13] = 0
	_, err = OpenNTFS(readers.NewMemoryReader(noGeometry))
	var integrityErr *errs.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestVBRSizes(t *testing.T) {
	vbr := VBR{BytesPerSector: 512, SectorsPerCluster: 2, ClustersPerRecord: -12, ClustersPerIndex: 4}
	assert.Equal(t, 1024, vbr.GetClusterSize())
	assert.Equal(t, 4096, vbr.GetRecordSize())
	assert.Equal(t, 4096, vbr.GetIndexNodeSize())
}

func TestReadClusters(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())

	data, err := ntfs.ReadClusters(0, 1)
	require.NoError(t, err)
	assert.True(t, IsNTFS(data))

	_, err = ntfs.ReadClusters(-1, 1)
	assert.Error(t, err)
	_, err = ntfs.ReadClusters(int64(ntfs.GetTotalClusters()), 1)
	assert.Error(t, err)
}

func TestReadDirectoryEntriesOfRoot(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())
	root, err := ntfs.RootEntry()
	require.NoError(t, err)

	idxEntries, err := ntfs.ReadDirectoryEntries(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"$Bitmap", "$MFT", "$Volume", "big.bin", "docs", "frag.bin",
		"partial.bin", "readme.txt", "sparse.bin"}, names(idxEntries))
}

func TestReadDirectoryEntriesFromAllocation(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())
	docs, err := ntfs.GetRecord(docsEntry, 0)
	require.NoError(t, err)

	idxEntries, err := ntfs.ReadDirectoryEntries(docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"LONGFI~1.TXT", "LongFileName.txt", "a.txt"}, names(idxEntries))
	for _, idxEntry := range idxEntries {
		assert.Equal(t, uint16(1), idxEntry.ParSeq)
	}
}

func TestReadDirectoryEntriesRejectsMismatchedBitmap(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())
	docs, err := ntfs.GetRecord(docsEntry, 0)
	require.NoError(t, err)

	bitmap := docs.FindAttribute("BitMap").(*MFTAttributes.BitMap)
	bitmap.Header.Name = "$SDH"
	_, err = ntfs.ReadDirectoryEntries(docs)
	var integrityErr *errs.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestReadDirectoryEntriesOfFile(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())
	_, err := ntfs.ReadDirectoryEntries(findRecord(t, ntfs, "big.bin"))
	var integrityErr *errs.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestGetUnallocatedClusters(t *testing.T) {
	spec := volumeSpec()
	spec.FreeClusters = 5
	ntfs := openVolume(t, spec)

	unallocated, err := ntfs.GetUnallocatedClusters()
	require.NoError(t, err)
	total := ntfs.GetTotalClusters()
	assert.Equal(t, []int{total - 5, total - 4, total - 3, total - 2, total - 1}, unallocated)
}

func TestRootIndexLayout(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())
	root, err := ntfs.RootEntry()
	require.NoError(t, err)
	assert.NotNil(t, root.FindAttribute("Index Allocation"))

	small := openVolume(t, testimage.NTFSSpec{
		Files: []testimage.NTFSFile{{Name: "only.txt", Content: []byte("x"), Resident: true}},
	})
	root, err = small.RootEntry()
	require.NoError(t, err)
	assert.Nil(t, root.FindAttribute("Index Allocation"))
	idxEntries, err := small.ReadDirectoryEntries(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"$Bitmap", "$MFT", "$Volume", "only.txt"}, names(idxEntries))
}

func TestReadDirectoryEntriesRejectsMismatchedBitmapOfResidentIndex(t *testing.T) {
	ntfs := openVolume(t, testimage.NTFSSpec{
		Files: []testimage.NTFSFile{{Name: "only.txt", Content: []byte("x"), Resident: true}},
	})
	root, err := ntfs.RootEntry()
	require.NoError(t, err)

	root.Attributes = append(root.Attributes, &MFTAttributes.BitMap{
		Header:           &MFTAttributes.AttributeHeader{Type: MFTAttributes.BitmapType, Name: "$SDH"},
		AllocationStatus: []byte{0x01},
	})
	_, err = ntfs.ReadDirectoryEntries(root)
	var integrityErr *errs.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestReadDirectoryEntriesKeepsRecordIntact(t *testing.T) {
	ntfs := openVolume(t, volumeSpec())
	docs, err := ntfs.GetRecord(docsEntry, 0)
	require.NoError(t, err)

	first, err := ntfs.ReadDirectoryEntries(docs)
	require.NoError(t, err)
	second, err := ntfs.ReadDirectoryEntries(docs)
	require.NoError(t, err)
	assert.Equal(t, names(first), names(second))

	idxAllocation := docs.FindAttribute("Index Allocation").(*MFTAttributes.IndexAllocationRecords)
	assert.Empty(t, idxAllocation.Records)
	assert.Nil(t, idxAllocation.Bitmap)
	assert.Zero(t, idxAllocation.NodeSize)
}
