package vmdk

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/aarsakian/DiskTree/readers"
	"github.com/aarsakian/DiskTree/testimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	readers.ByteSource
	reads int
}

func (src *countingSource) ReadAbsolute(offset int64, size int) ([]byte, error) {
	src.reads++
	return src.ByteSource.ReadAbsolute(offset, size)
}

func pattern(fill byte, size int) []byte {
	return bytes.Repeat([]byte{fill}, size)
}

// 4 grain tables of 4 entries, grains of 8 sectors: 128 sectors in total.
func sparseSpec() testimage.SparseSpec {
	grain0 := append(pattern(0x11, 512), pattern(0x12, 512)...)
	return testimage.SparseSpec{
		CapacitySectors: 128,
		GrainSize:       8,
		NumGTEsPerGT:    4,
		Descriptor:      testimage.DefaultDescriptor(128),
		Grains: map[uint64][]byte{
			0:  grain0,
			2:  pattern(0x22, 8*512),
			9:  pattern(0x99, 8*512),
			15: pattern(0xff, 8*512),
		},
	}
}

func openSparse(t *testing.T, spec testimage.SparseSpec, cacheSize int) (*VMDKImage, *countingSource) {
	t.Helper()
	src := &countingSource{ByteSource: readers.NewMemoryReader(testimage.BuildSparseVMDK(spec))}
	vmdkImage, err := OpenWithCache(src, cacheSize)
	require.NoError(t, err)
	return vmdkImage, src
}

func TestOpenParsesHeaderAndDescriptor(t *testing.T) {
	vmdkImage, _ := openSparse(t, sparseSpec(), 4)

	assert.Equal(t, uint32(1), vmdkImage.Header.Version)
	assert.Equal(t, uint64(128), uint64(vmdkImage.Header.Capacity))
	assert.Equal(t, int64(128*512), vmdkImage.GetDiskSize())
	assert.Equal(t, int64(8*512), vmdkImage.GetGrainSizeB())

	descriptor := vmdkImage.Descriptor
	assert.Equal(t, 1, descriptor.Version)
	assert.Equal(t, "monolithicSparse", descriptor.CreateType)
	assert.Equal(t, "fffffffe", descriptor.CID)
	assert.False(t, vmdkImage.HasParent())
	require.Len(t, descriptor.Extents, 1)
	assert.Equal(t, "disk.vmdk", descriptor.Extents[0].Filename)
	assert.Equal(t, int64(128), descriptor.Extents[0].NofSectors)
	assert.Equal(t, "lsilogic", descriptor.DDB["ddb.adapterType"])
	assert.Equal(t, "6000c29b-692f-c976-74c4-079e10873bf9", descriptor.UUID.String())
}

func TestOpenRejectsBadMagic(t *testing.T) {
	image := testimage.BuildSparseVMDK(sparseSpec())
	copy(image, "COWD")

	_, err := Open(readers.NewMemoryReader(image))
	var formatErr *errs.FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestReadAllocatedGrains(t *testing.T) {
	vmdkImage, _ := openSparse(t, sparseSpec(), 4)

	data, err := vmdkImage.ReadAbsolute(0, 1024)
	require.NoError(t, err)
	assert.Equal(t, append(pattern(0x11, 512), pattern(0x12, 512)...), data)

	data, err = vmdkImage.ReadAbsolute(512+10, 20)
	require.NoError(t, err)
	assert.Equal(t, pattern(0x12, 20), data)

	// grain 9 lives in grain table 2
	data, err = vmdkImage.ReadAbsolute(9*8*512+3*512, 512)
	require.NoError(t, err)
	assert.Equal(t, pattern(0x99, 512), data)

	// spans grains 1 (unallocated) and 2
	data, err = vmdkImage.ReadAbsolute(15*512, 1024)
	require.NoError(t, err)
	assert.Equal(t, append(pattern(0, 512), pattern(0x22, 512)...), data)
}

func TestZeroGrainDoesNotTouchBackingStore(t *testing.T) {
	vmdkImage, src := openSparse(t, sparseSpec(), 4)

	// warm the grain directory and grain table 0
	_, err := vmdkImage.ReadAbsolute(0, 512)
	require.NoError(t, err)

	before := src.reads
	data, err := vmdkImage.ReadAbsolute(3*8*512+100, 300) // grain 3, same table, never written
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 300), data)

	data, err = vmdkImage.ReadAbsolute(4*8*512, 2048) // grain table 1 is not allocated at all
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 2048), data)
	assert.Equal(t, before, src.reads)
}

func TestUnalignedCrossSectorReadsAreRejected(t *testing.T) {
	vmdkImage, _ := openSparse(t, sparseSpec(), 4)

	_, err := vmdkImage.ReadAbsolute(500, 24)
	var integrityErr *errs.IntegrityError
	require.True(t, errors.As(err, &integrityErr))
	assert.Contains(t, err.Error(), "unaligned cross sector reads not implemented")

	_, err = vmdkImage.ReadAbsolute(512, 700)
	assert.True(t, errors.As(err, &integrityErr))
}

func TestReadPastCapacity(t *testing.T) {
	vmdkImage, _ := openSparse(t, sparseSpec(), 4)

	_, err := vmdkImage.ReadAbsolute(127*512, 1024)
	var shortRead *errs.ShortReadError
	require.True(t, errors.As(err, &shortRead))
	assert.Equal(t, 512, shortRead.Read)
}

func TestGrainTableCache(t *testing.T) {
	vmdkImage, _ := openSparse(t, sparseSpec(), 1)

	for _, offset := range []int64{0, 512, 9 * 8 * 512, 0} {
		_, err := vmdkImage.ReadAbsolute(offset, 512)
		require.NoError(t, err)
	}
	hits, misses := vmdkImage.CacheStats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 3, misses)

	vmdkImage, _ = openSparse(t, sparseSpec(), 8)
	for _, offset := range []int64{0, 512, 9 * 8 * 512, 0} {
		_, err := vmdkImage.ReadAbsolute(offset, 512)
		require.NoError(t, err)
	}
	hits, misses = vmdkImage.CacheStats()
	assert.Equal(t, 2, hits)
	assert.Equal(t, 2, misses)
}

func TestCompressedGrains(t *testing.T) {
	spec := sparseSpec()
	spec.Compressed = true
	vmdkImage, _ := openSparse(t, spec, 4)

	data, err := vmdkImage.ReadAbsolute(2*8*512+7*512, 512)
	require.NoError(t, err)
	assert.Equal(t, pattern(0x22, 512), data)

	data, err = vmdkImage.ReadAbsolute(512, 16)
	require.NoError(t, err)
	assert.Equal(t, pattern(0x12, 16), data)
}

func TestCompressedGrainDirectoryAtEnd(t *testing.T) {
	spec := sparseSpec()
	spec.Compressed = true
	image := testimage.BuildSparseVMDK(spec)
	for idx := 56; idx < 64; idx++ {
		image[idx] = 0xff
	}

	_, err := Open(readers.NewMemoryReader(image))
	var unsupported *errs.UnsupportedFeatureError
	assert.True(t, errors.As(err, &unsupported))
}
