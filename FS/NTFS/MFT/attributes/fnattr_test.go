package attributes

import (
	"testing"

	"github.com/aarsakian/DiskTree/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNameParse(t *testing.T) {
	var fnattr FNAttribute
	err := fnattr.Parse(testimage.FileName(42, 7, "report.txt", 1, false, 1234))
	require.NoError(t, err)

	assert.Equal(t, uint64(42), fnattr.ParRef)
	assert.Equal(t, uint16(7), fnattr.ParSeq)
	assert.Equal(t, "report.txt", fnattr.Fname)
	assert.Equal(t, uint8(10), fnattr.Nlen)
	assert.Equal(t, "Win32", fnattr.GetFileNameType())
	assert.Equal(t, uint64(1234), fnattr.RealFsize)
	assert.Equal(t, uint64(1240), fnattr.AllocFsize)
	assert.Equal(t, testimage.Stamp, fnattr.Crtime.Stamp)
	assert.False(t, fnattr.IsFolder())
	assert.False(t, fnattr.IsDosOnly())

	atime, ctime, mtime, mftime := fnattr.GetTimestamps()
	for _, stamp := range []string{atime, ctime, mtime, mftime} {
		assert.Equal(t, "2020-09-13T12:26:40.000Z", stamp)
	}
}

func TestFileNameDirectoryAndDosName(t *testing.T) {
	var fnattr FNAttribute
	require.NoError(t, fnattr.Parse(testimage.FileName(5, 5, "PROGRA~1", 2, true, 0)))
	assert.True(t, fnattr.IsFolder())
	assert.True(t, fnattr.IsDosOnly())
	assert.Equal(t, "Dos", fnattr.GetFileNameType())
}

func TestFileNameUnicode(t *testing.T) {
	var fnattr FNAttribute
	require.NoError(t, fnattr.Parse(testimage.FileName(5, 5, "αρχείο.txt", 3, false, 1)))
	assert.Equal(t, "αρχείο.txt", fnattr.Fname)
}

func TestFileNameTruncated(t *testing.T) {
	var fnattr FNAttribute
	data := testimage.FileName(5, 5, "report.txt", 1, false, 1)
	assert.Error(t, fnattr.Parse(data[:70]))
}
