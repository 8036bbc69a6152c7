package testimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMFTEntryOverflow(t *testing.T) {
	assert.NotPanics(t, func() { MFTEntry(16, 1, 0x01, make([]byte, MFTEntrySize-64)) })
	assert.Panics(t, func() { MFTEntry(16, 1, 0x01, make([]byte, MFTEntrySize-63)) })
	assert.Panics(t, func() { IndexNode(0, make([]byte, IndexNodeSize)) })
}

func TestBuildNTFSSpillsLargeRootIndex(t *testing.T) {
	var files []NTFSFile
	for idx := 0; idx < 20; idx++ {
		files = append(files, NTFSFile{Name: "a rather long file name.txt", Content: []byte{byte(idx)}, Resident: true})
	}
	assert.NotPanics(t, func() { BuildNTFS(NTFSSpec{Files: files}) })
}
