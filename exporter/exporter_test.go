package exporter

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	metadata "github.com/aarsakian/DiskTree/FS"
	"github.com/aarsakian/DiskTree/disk"
	"github.com/aarsakian/DiskTree/disk/volume"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clusterSize = 4096

func content(size int) []byte {
	data := make([]byte, size)
	for idx := range data {
		data[idx] = byte(idx % 253)
	}
	return data
}

func volumeImage() []byte {
	return testimage.BuildNTFS(testimage.NTFSSpec{
		FreeClusters: 3,
		Files: []testimage.NTFSFile{
			{Entry: 16, Name: "readme.txt", Content: []byte("export me"), Resident: true},
			{Entry: 17, Name: "big.bin", Content: content(2*clusterSize + 17)},
			{Entry: 30, Name: "docs", Dir: true},
		},
	})
}

func openVolume(t *testing.T) (*volume.NTFS, []metadata.Record) {
	t.Helper()
	ntfs, err := volume.OpenNTFS(readers.NewMemoryReader(volumeImage()))
	require.NoError(t, err)

	var records []metadata.Record
	for _, record := range ntfs.GetFS() {
		switch record.GetFname() {
		case "readme.txt", "big.bin", "docs":
			records = append(records, record)
		}
	}
	require.Len(t, records, 3)
	return ntfs, records
}

func TestExportRecords(t *testing.T) {
	ntfs, records := openVolume(t)
	location := filepath.Join(t.TempDir(), "out")

	exported, err := Exporter{Location: location, Hash: "MD5"}.ExportRecords(ntfs, records)
	require.NoError(t, err)
	require.Len(t, exported, 2)

	data, err := os.ReadFile(filepath.Join(location, "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("export me"), data)

	data, err = os.ReadFile(filepath.Join(location, "big.bin"))
	require.NoError(t, err)
	assert.Equal(t, content(2*clusterSize+17), data)

	for _, exportedFile := range exported {
		data, err := os.ReadFile(exportedFile.Path)
		require.NoError(t, err)
		sum := md5.Sum(data)
		assert.Equal(t, hex.EncodeToString(sum[:]), exportedFile.Hash)
		assert.Equal(t, int64(len(data)), exportedFile.Size)
	}
	assert.NoFileExists(t, filepath.Join(location, "docs"))
}

func TestExportWithIdStrategy(t *testing.T) {
	ntfs, records := openVolume(t)
	location := t.TempDir()

	exported, err := Exporter{Location: location, Hash: "sha1", Strategy: "Id"}.ExportRecords(ntfs, records[:1])
	require.NoError(t, err)
	require.Len(t, exported, 1)

	assert.Equal(t, "[16]readme.txt", exported[0].Name)
	sum := sha1.Sum([]byte("export me"))
	assert.Equal(t, hex.EncodeToString(sum[:]), exported[0].Hash)
	assert.FileExists(t, filepath.Join(location, "[16]readme.txt"))
}

func TestExportErrors(t *testing.T) {
	ntfs, records := openVolume(t)

	_, err := Exporter{}.ExportRecords(ntfs, records)
	assert.Error(t, err)

	_, err = Exporter{Location: t.TempDir(), Hash: "CRC32"}.ExportRecords(ntfs, records)
	assert.Error(t, err)
}

func TestExportUnallocated(t *testing.T) {
	physicalDisk := disk.Disk{Image: readers.NewMemoryReader(volumeImage())}
	_, err := physicalDisk.Process(0)
	require.NoError(t, err)

	location := t.TempDir()
	require.NoError(t, Exporter{Location: location}.ExportUnallocated(physicalDisk, 0))

	data, err := os.ReadFile(filepath.Join(location, "Unallocated"))
	require.NoError(t, err)
	assert.Len(t, data, 3*clusterSize)

	require.NoError(t, Exporter{Location: location}.ExportUnallocated(physicalDisk, 0))
	again, err := os.ReadFile(filepath.Join(location, "Unallocated"))
	require.NoError(t, err)
	assert.Equal(t, data, again)

	assert.Error(t, Exporter{Location: location}.ExportUnallocated(physicalDisk, 4))
}
