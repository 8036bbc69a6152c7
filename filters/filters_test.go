package filters

import (
	"testing"

	metadata "github.com/aarsakian/DiskTree/FS"
	"github.com/aarsakian/DiskTree/disk/volume"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	docsEntry = 30
	subEntry  = 31
)

func volumeRecords(t *testing.T) []metadata.Record {
	t.Helper()
	image := testimage.BuildNTFS(testimage.NTFSSpec{
		Files: []testimage.NTFSFile{
			{Name: "readme.txt", Content: []byte("readme"), Resident: true},
			{Name: "notes.TXT", Content: []byte("notes"), Resident: true},
			{Name: "image.jpg", Content: []byte{0xff, 0xd8}, Resident: true},
			{Name: "gone.txt", Content: []byte("gone"), Resident: true, Deleted: true, Seq: 2},
			{Entry: docsEntry, Name: "docs", Dir: true},
			{Parent: docsEntry, Name: "a.txt", Content: []byte("a"), Resident: true},
			{Entry: subEntry, Parent: docsEntry, Name: "sub", Dir: true},
			{Parent: subEntry, Name: "b.jpg", Content: []byte("b"), Resident: true},
		},
	})
	ntfs, err := volume.OpenNTFS(readers.NewMemoryReader(image))
	require.NoError(t, err)
	return ntfs.GetFS()
}

func fnames(records []metadata.Record) []string {
	var names []string
	for _, record := range records {
		names = append(names, record.GetFname())
	}
	return names
}

func TestNameFilter(t *testing.T) {
	records := NameFilter{Filenames: []string{"readme.txt", "missing.txt"}}.Execute(volumeRecords(t))
	assert.Equal(t, []string{"readme.txt"}, fnames(records))
}

func TestExtensionsFilter(t *testing.T) {
	records := ExtensionsFilter{Extensions: []string{"txt"}}.Execute(volumeRecords(t))
	assert.ElementsMatch(t, []string{"readme.txt", "notes.TXT", "gone.txt", "a.txt"}, fnames(records))

	records = ExtensionsFilter{Extensions: []string{"jpg", "txt"}}.Execute(volumeRecords(t))
	assert.Len(t, records, 6)
}

func TestPathFilters(t *testing.T) {
	records := volumeRecords(t)

	assert.ElementsMatch(t, []string{"a.txt", "sub"}, fnames(PathFilter{NamePath: "/docs"}.Execute(records)))
	assert.ElementsMatch(t, []string{"a.txt", "sub", "b.jpg"},
		fnames(UnderPathFilter{DirPath: "/docs/"}.Execute(records)))
	assert.Equal(t, []string{"b.jpg"}, fnames(UnderPathFilter{DirPath: "/docs/sub"}.Execute(records)))
	assert.Len(t, UnderPathFilter{}.Execute(records), len(records))
}

func TestDeletedAndOrphansFilters(t *testing.T) {
	records := volumeRecords(t)

	assert.Equal(t, []string{"gone.txt"}, fnames(DeletedFilter{Include: true}.Execute(records)))
	assert.Len(t, DeletedFilter{}.Execute(records), len(records))
	assert.Equal(t, []string{"gone.txt"}, fnames(OrphansFilter{Include: true}.Execute(records)))
	assert.Len(t, OrphansFilter{}.Execute(records), len(records))
}

func TestFoldersFilter(t *testing.T) {
	records := volumeRecords(t)

	files := FoldersFilter{Include: false}.Execute(records)
	for _, record := range files {
		assert.False(t, record.IsFolder(), record.GetFname())
	}
	assert.NotContains(t, fnames(files), "docs")
	assert.Len(t, FoldersFilter{Include: true}.Execute(records), len(records))
}

func TestPrefixesSuffixesFilter(t *testing.T) {
	records := PrefixesSuffixesFilter{Prefixes: []string{"n"}, Suffixes: []string{".TXT"}}.Execute(volumeRecords(t))
	assert.Equal(t, []string{"notes.TXT"}, fnames(records))

	records = PrefixesSuffixesFilter{Prefixes: []string{"b"}}.Execute(volumeRecords(t))
	assert.Equal(t, []string{"b.jpg"}, fnames(records))
}

func TestFilterManager(t *testing.T) {
	var flm FilterManager
	flm.Register(ExtensionsFilter{Extensions: []string{"txt"}})
	flm.Register(PathFilter{NamePath: "/"})
	flm.Register(FoldersFilter{Include: false})
	assert.Equal(t, 3, flm.Len())

	records := flm.ApplyFilters(volumeRecords(t))
	assert.ElementsMatch(t, []string{"readme.txt", "notes.TXT", "gone.txt"}, fnames(records))

	var empty FilterManager
	assert.Len(t, empty.ApplyFilters(volumeRecords(t)), len(volumeRecords(t)))
}
