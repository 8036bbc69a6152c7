package attributes

import (
	"testing"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedBlock() []byte {
	data := make([]byte, 1024)
	copy(data[48:], []byte{0x01, 0x00, 0xab, 0xcd, 0x12, 0x34})
	copy(data[510:], []byte{0x01, 0x00})
	copy(data[1022:], []byte{0x01, 0x00})
	return data
}

func TestFixUpRestoresSectorEnds(t *testing.T) {
	data := protectedBlock()
	fixup, err := ParseFixUp(data, 48, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, fixup.Signature)
	assert.Len(t, fixup.OriginalValues, 2)

	assert.Empty(t, fixup.Apply(data, FixUpStride))
	assert.Equal(t, []byte{0xab, 0xcd}, data[510:512])
	assert.Equal(t, []byte{0x12, 0x34}, data[1022:1024])
}

func TestFixUpMismatchLeavesSector(t *testing.T) {
	data := protectedBlock()
	data[1022] = 0x09
	fixup, err := ParseFixUp(data, 48, 3)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, fixup.Apply(data, FixUpStride))
	assert.Equal(t, []byte{0xab, 0xcd}, data[510:512])
	assert.Equal(t, []byte{0x09, 0x00}, data[1022:1024])
}

func TestFixUpArrayOutOfRange(t *testing.T) {
	_, err := ParseFixUp(make([]byte, 10), 8, 3)
	var integrityErr *errs.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestFixUpEmptyArray(t *testing.T) {
	fixup, err := ParseFixUp(make([]byte, 512), 48, 0)
	require.NoError(t, err)
	assert.Empty(t, fixup.Apply(make([]byte, 512), FixUpStride))
}
