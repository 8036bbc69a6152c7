package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegers(t *testing.T) {
	d := New([]byte{0xff, 0xfe, 0xff, 0x01, 0x02, 0x78, 0x56, 0x34, 0x12,
		0x01, 0, 0, 0, 0, 0, 0, 0x80})

	assert.Equal(t, int8(-1), d.S8())
	assert.Equal(t, int16(-2), d.S16())
	assert.Equal(t, uint16(0x0201), d.U16())
	assert.Equal(t, uint32(0x12345678), d.U32())
	assert.Equal(t, uint64(0x8000000000000001), d.U64())
	assert.NoError(t, d.Err())
	assert.Equal(t, 0, d.Remaining())
}

func TestBigEndianMode(t *testing.T) {
	d := NewWithOrder([]byte{0x12, 0x34, 0x00, 0x01, 0x02}, binary.BigEndian)
	assert.Equal(t, uint16(0x1234), d.U16())
	assert.Equal(t, uint64(0x000102), d.VarUInt(3))
}

func TestVarIntegers(t *testing.T) {
	d := New([]byte{0x20, 0x05, 0x00, 0x00, 0xf0, 0xff, 0x00, 0x80, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	assert.Equal(t, uint64(0x20), d.VarUInt(1))
	assert.Equal(t, int64(5), d.VarInt(3))
	assert.Equal(t, int64(-16), d.VarInt(2))
	assert.Equal(t, int64(-32768), d.VarInt(2))
	assert.Equal(t, int64(-1), d.VarInt(8))
	require.NoError(t, d.Err())

	d.VarUInt(9)
	var unsupported *errs.UnsupportedFeatureError
	assert.True(t, errors.As(d.Err(), &unsupported))
}

func TestShortReadIsSticky(t *testing.T) {
	d := New([]byte{1, 2, 3})
	assert.Equal(t, uint32(0), d.U32())
	assert.Equal(t, uint8(0), d.U8())

	var shortRead *errs.ShortReadError
	require.True(t, errors.As(d.Err(), &shortRead))
	assert.Equal(t, 4, shortRead.Requested)
	assert.Equal(t, 3, shortRead.Read)
}

func TestAssertMagic(t *testing.T) {
	d := New([]byte("KDMV\x01"))
	require.NoError(t, d.AssertMagic("4b444d56"))
	assert.Equal(t, uint8(1), d.U8())

	d = New([]byte("FILX"))
	err := d.AssertMagic("46494c45")
	var formatErr *errs.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, "46494c58", formatErr.Found)
}

func TestFixedTextAndHex(t *testing.T) {
	d := New([]byte{'N', 'T', 'F', 'S', ' ', ' ', ' ', ' ', '.', 0, 'a', 0, 0xde, 0xad})
	assert.Equal(t, "NTFS    ", d.FixedText(8, ASCII))
	assert.Equal(t, ".a", d.FixedText(4, UTF16LE))
	assert.Equal(t, "dead", d.Hex(2))
}

func TestPeekAndSeekTemp(t *testing.T) {
	d := New([]byte{1, 2, 3, 4, 5, 6})
	d.Skip(1)

	var peeked uint16
	require.NoError(t, d.Peek(func(d *Decoder) error {
		peeked = d.U16()
		return nil
	}))
	assert.Equal(t, uint16(0x0302), peeked)
	assert.Equal(t, 1, d.Tell())

	var tail []byte
	require.NoError(t, d.SeekTemp(4, func(d *Decoder) error {
		tail = d.Read(2)
		return nil
	}))
	assert.Equal(t, []byte{5, 6}, tail)
	assert.Equal(t, 1, d.Tell())

	assert.Error(t, d.SeekTemp(10, func(d *Decoder) error { return nil }))
}

func TestStruct(t *testing.T) {
	type header struct {
		version  uint32
		capacity uint64
	}
	var h header
	d := New([]byte{1, 0, 0, 0, 0, 0x10, 0, 0, 0, 0, 0, 0})
	require.NoError(t, d.Struct(func(d *Decoder) {
		h.version = d.U32()
		h.capacity = d.U64()
	}))
	assert.Equal(t, header{version: 1, capacity: 0x1000}, h)
}

func TestInflate(t *testing.T) {
	payload := bytes.Repeat([]byte("grain"), 100)
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	d := New(append([]byte{0xaa}, buf.Bytes()...))
	d.Skip(1)
	inflated, err := d.Inflate(-1)
	require.NoError(t, err)
	assert.Equal(t, payload, inflated)
	assert.Equal(t, 0, d.Remaining())
}
