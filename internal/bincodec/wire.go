package bincodec

import (
	"encoding/binary"
	"math"

	"github.com/roach88/supdto/internal/dto"
)

// Size prefix markers. Sizes below sizeMarkerReserved take one byte;
// anything larger is sizeMarkerWide followed by a little-endian uint64.
const (
	sizeMarkerReserved byte = 0xFE
	sizeMarkerWide     byte = 0xFF
)

// Type section tokens. Leaf types use their dto.TypeCode value as token.
const (
	tokStructStart    byte = 0x10
	tokStructEnd      byte = 0x11
	tokArrayStart     byte = 0x12
	tokArrayEnd       byte = 0x13
	tokUnboundedStart byte = 0x14
	tokUnboundedEnd   byte = 0x15
)

func appendSize(buf []byte, n uint64) []byte {
	if n < uint64(sizeMarkerReserved) {
		return append(buf, byte(n))
	}
	buf = append(buf, sizeMarkerWide)
	return binary.LittleEndian.AppendUint64(buf, n)
}

func appendString(buf []byte, s string) []byte {
	buf = appendSize(buf, uint64(len(s)))
	return append(buf, s...)
}

// appendScalar writes the raw little-endian payload of a scalar value.
func appendScalar(buf []byte, v *dto.AnyValue) []byte {
	bits, str := v.ScalarBits()
	switch v.Code().FixedSize() {
	case 1:
		return append(buf, byte(bits))
	case 2:
		return binary.LittleEndian.AppendUint16(buf, uint16(bits))
	case 4:
		return binary.LittleEndian.AppendUint32(buf, uint32(bits))
	case 8:
		return binary.LittleEndian.AppendUint64(buf, bits)
	}
	return appendString(buf, str)
}

// reader is a bounds-checked cursor over an input buffer.
type reader struct {
	op   string
	data []byte
	off  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n uint64) ([]byte, error) {
	if n > uint64(r.remaining()) {
		return nil, dto.NewError(dto.KindParse, r.op, "buffer exhausted at offset %d: need %d bytes, have %d", r.off, n, r.remaining())
	}
	b := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) size() (uint64, error) {
	b, err := r.byte()
	if err != nil {
		return 0, err
	}
	switch b {
	case sizeMarkerReserved:
		return 0, dto.NewError(dto.KindParse, r.op, "reserved size marker 0x%02x at offset %d", b, r.off-1)
	case sizeMarkerWide:
		wide, err := r.take(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(wide), nil
	}
	return uint64(b), nil
}

// count reads a size prefix that will be used as an in-memory length.
func (r *reader) count() (int, error) {
	n, err := r.size()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		return 0, dto.NewError(dto.KindParse, r.op, "size %d at offset %d is too large", n, r.off)
	}
	return int(n), nil
}

func (r *reader) string() (string, error) {
	n, err := r.size()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) done() error {
	if r.remaining() != 0 {
		return dto.NewError(dto.KindParse, r.op, "%d trailing bytes at offset %d", r.remaining(), r.off)
	}
	return nil
}

// scalar reads the raw payload of a scalar of the given code, sign-extending
// signed integers.
func (r *reader) scalar(code dto.TypeCode) (uint64, string, error) {
	if code == dto.StringCode {
		s, err := r.string()
		return 0, s, err
	}
	b, err := r.take(uint64(code.FixedSize()))
	if err != nil {
		return 0, "", err
	}
	switch code {
	case dto.BoolCode:
		if b[0] != 0 {
			return 1, "", nil
		}
		return 0, "", nil
	case dto.Char8Code, dto.UInt8Code:
		return uint64(b[0]), "", nil
	case dto.Int8Code:
		return uint64(int64(int8(b[0]))), "", nil
	case dto.Int16Code:
		return uint64(int64(int16(binary.LittleEndian.Uint16(b)))), "", nil
	case dto.UInt16Code:
		return uint64(binary.LittleEndian.Uint16(b)), "", nil
	case dto.Int32Code:
		return uint64(int64(int32(binary.LittleEndian.Uint32(b)))), "", nil
	case dto.UInt32Code, dto.Float32Code:
		return uint64(binary.LittleEndian.Uint32(b)), "", nil
	}
	return binary.LittleEndian.Uint64(b), "", nil
}
