// Package decoder is a cursor over an in-memory byte range with typed field extraction.
//
// Errors are sticky: the first failed read is kept and returned by Err, every
// later read returns a zero value. Callers decode a whole structure and check
// Err once.
package decoder

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aarsakian/DiskTree/errs"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

type Encoding int

const (
	ASCII Encoding = iota
	UTF16LE
)

type Decoder struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	err   error
}

func New(data []byte) *Decoder {
	return NewWithOrder(data, binary.LittleEndian)
}

func NewWithOrder(data []byte, order binary.ByteOrder) *Decoder {
	return &Decoder{data: data, order: order}
}

func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) Len() int {
	return len(d.data)
}

func (d *Decoder) Tell() int {
	return d.pos
}

func (d *Decoder) Remaining() int {
	if d.pos > len(d.data) {
		return 0
	}
	return len(d.data) - d.pos
}

// Seek moves the cursor to an absolute position, the end of data included.
func (d *Decoder) Seek(offset int) {
	if d.err != nil {
		return
	}
	if offset < 0 || offset > len(d.data) {
		d.err = &errs.ShortReadError{Offset: int64(offset), Requested: 0, Read: 0}
		return
	}
	d.pos = offset
}

func (d *Decoder) Skip(length int) {
	d.Seek(d.pos + length)
}

func (d *Decoder) take(length int) []byte {
	if d.err != nil {
		return nil
	}
	if length < 0 || d.pos+length > len(d.data) {
		d.err = &errs.ShortReadError{Offset: int64(d.pos), Requested: length, Read: d.Remaining()}
		return nil
	}
	b := d.data[d.pos : d.pos+length]
	d.pos += length
	return b
}

func (d *Decoder) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) S8() int8 {
	return int8(d.U8())
}

func (d *Decoder) U16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return d.order.Uint16(b)
}

func (d *Decoder) S16() int16 {
	return int16(d.U16())
}

func (d *Decoder) U32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return d.order.Uint32(b)
}

func (d *Decoder) S32() int32 {
	return int32(d.U32())
}

func (d *Decoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return d.order.Uint64(b)
}

func (d *Decoder) checkWidth(width int) bool {
	if d.err != nil {
		return false
	}
	if width < 1 || width > 8 {
		d.err = errs.NewUnsupported("packed integer of width %d", width)
		return false
	}
	return true
}

// VarUInt reads an unsigned integer packed in width bytes.
func (d *Decoder) VarUInt(width int) uint64 {
	if !d.checkWidth(width) {
		return 0
	}
	b := d.take(width)
	if b == nil {
		return 0
	}
	var val uint64
	for idx := width - 1; idx >= 0; idx-- {
		var byteval uint64
		if d.order == binary.LittleEndian {
			byteval = uint64(b[idx])
		} else {
			byteval = uint64(b[width-1-idx])
		}
		val = val<<8 | byteval
	}
	return val
}

// VarInt reads a two's complement integer packed in width bytes and sign extends it.
func (d *Decoder) VarInt(width int) int64 {
	val := d.VarUInt(width)
	if d.err != nil {
		return 0
	}
	shift := uint(64 - 8*width)
	return int64(val<<shift) >> shift
}

func (d *Decoder) Read(length int) []byte {
	b := d.take(length)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (d *Decoder) Hex(length int) string {
	return hex.EncodeToString(d.take(length))
}

func (d *Decoder) FixedText(length int, encoding Encoding) string {
	b := d.take(length)
	if b == nil {
		return ""
	}
	switch encoding {
	case UTF16LE:
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
		if err != nil {
			d.err = errors.Wrapf(err, "decoding utf16 text at %d", d.pos-length)
			return ""
		}
		return string(text)
	default:
		return string(b)
	}
}

// AssertMagic consumes len(expected)/2 bytes and fails when they differ from the hex pattern.
func (d *Decoder) AssertMagic(expected string) error {
	want, err := hex.DecodeString(expected)
	if err != nil {
		d.err = errors.Wrapf(err, "invalid magic pattern %s", expected)
		return d.err
	}
	start := d.pos
	got := d.take(len(want))
	if d.err != nil {
		return d.err
	}
	if !bytes.Equal(got, want) {
		d.err = &errs.FormatError{Structure: fmt.Sprintf("magic at %d", start), Expected: expected, Found: hex.EncodeToString(got)}
	}
	return d.err
}

// Peek runs fn and restores the cursor afterwards.
func (d *Decoder) Peek(fn func(*Decoder) error) error {
	if d.err != nil {
		return d.err
	}
	pos := d.pos
	err := fn(d)
	d.pos = pos
	if err != nil {
		return err
	}
	return d.err
}

// SeekTemp runs fn at offset and restores the cursor afterwards.
func (d *Decoder) SeekTemp(offset int, fn func(*Decoder) error) error {
	return d.Peek(func(d *Decoder) error {
		d.Seek(offset)
		if d.err != nil {
			return d.err
		}
		return fn(d)
	})
}

// Struct threads the decoder into a field builder and reports the sticky error.
func (d *Decoder) Struct(fn func(*Decoder)) error {
	fn(d)
	return d.err
}

// Inflate decompresses a zlib stream of length bytes, or the rest of the data when length < 0.
func (d *Decoder) Inflate(length int) ([]byte, error) {
	if length < 0 {
		length = d.Remaining()
	}
	compressed := d.take(length)
	if d.err != nil {
		return nil, d.err
	}
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "opening zlib stream")
	}
	defer reader.Close()
	inflated, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "inflating zlib stream")
	}
	return inflated, nil
}
