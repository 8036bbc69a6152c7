package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowsTimeEpochBoundary(t *testing.T) {
	winTime := WindowsTime{Stamp: 116444736000000000}
	assert.Equal(t, int64(0), winTime.UnixMilli())
	assert.Equal(t, "1970-01-01T00:00:00.000Z", winTime.ConvertToIsoTime())
}

func TestWindowsTimeKnownDate(t *testing.T) {
	// 2020-01-01T00:00:00Z
	winTime := WindowsTime{Stamp: 132223104000000000}
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), winTime.ToTime())
}

func TestUnmarshal(t *testing.T) {
	var header struct {
		Signature [4]byte
		Offset    uint16
		Count     uint16
		Stamp     WindowsTime
	}
	data := []byte{'F', 'I', 'L', 'E', 0x30, 0x00, 0x03, 0x00,
		0x00, 0x80, 0x3e, 0xd5, 0xde, 0xb1, 0x9d, 0x01}
	require.NoError(t, Unmarshal(data, &header))
	assert.Equal(t, "FILE", string(header.Signature[:]))
	assert.Equal(t, uint16(0x30), header.Offset)
	assert.Equal(t, uint16(3), header.Count)
	assert.Equal(t, uint64(116444736000000000), header.Stamp.Stamp)

	assert.Error(t, Unmarshal(data[:6], &header))
}

func TestDecodeUTF16(t *testing.T) {
	assert.Equal(t, "$MFT", DecodeUTF16([]byte{'$', 0, 'M', 0, 'F', 0, 'T', 0}))
	assert.Equal(t, "", DecodeUTF16(nil))
}

func TestGetEntries(t *testing.T) {
	assert.Equal(t, []string{"a.txt", "b.txt"}, GetEntries("a.txt, b.txt,"))
	assert.Equal(t, []int{5, 12}, GetEntriesInt("5,x,12"))
}

func TestHashes(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", GetMD5(nil))
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", GetSHA1(nil))
}

func TestWriteFileReplacesContent(t *testing.T) {
	fullpath := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteFile(fullpath, []byte("first")))
	require.NoError(t, AppendFile(fullpath, []byte("+more")))
	data, err := os.ReadFile(fullpath)
	require.NoError(t, err)
	assert.Equal(t, "first+more", string(data))

	require.NoError(t, WriteFile(fullpath, []byte("new")))
	data, err = os.ReadFile(fullpath)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
