// Package ctype copies AnyValue trees to and from packed fixed-layout C
// structures.
//
// The layout is the declaration-order concatenation of the leaves with no
// padding (#pragma pack(1)), in host byte order. Each scalar occupies
// sizeof(T) bytes; a string occupies a fixed NUL-terminated slot of
// Options.StringSize bytes. Unbounded arrays have no fixed layout and are
// rejected.
//
// Every operation is all-or-nothing: sizes are checked before any byte is
// copied, and decoding goes through a scratch value so a failed decode
// leaves the destination untouched.
package ctype

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/visit"
)

// DefaultStringSize is the string slot width used when none is configured.
const DefaultStringSize = 64

// Options configures the C layout.
type Options struct {
	// StringSize is the byte width of a string slot, terminator included.
	StringSize int
}

// Option mutates Options.
type Option func(*Options)

// WithStringSize sets the string slot width.
func WithStringSize(n int) Option {
	return func(o *Options) { o.StringSize = n }
}

func resolve(opts []Option) Options {
	o := Options{StringSize: DefaultStringSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.StringSize < 1 {
		o.StringSize = DefaultStringSize
	}
	return o
}

// Size returns sizeof the packed C structure for t.
func Size(t dto.AnyType, opts ...Option) (int, error) {
	s := &sizer{opts: resolve(opts), mult: []int{1}}
	if err := visit.Walk[dto.AnyType](t, s); err != nil {
		return 0, err
	}
	return s.total, nil
}

type sizer struct {
	visit.Base[dto.AnyType]
	opts  Options
	mult  []int
	total int
}

func (s *sizer) ScalarProlog(t dto.AnyType) error {
	n := t.Code().FixedSize()
	if t.Code() == dto.StringCode {
		n = s.opts.StringSize
	}
	m := s.mult[len(s.mult)-1]
	if m != 0 && n > (math.MaxInt-s.total)/m {
		return dto.NewError(dto.KindSerialize, "Size", "layout of %s overflows", t)
	}
	s.total += n * m
	return nil
}

func (s *sizer) ArrayProlog(t dto.AnyType) error {
	if t.Code() == dto.UnboundedArrayCode {
		return dto.NewError(dto.KindSerialize, "Size", "unbounded array %q has no fixed C layout", t.Name())
	}
	m, n := s.mult[len(s.mult)-1], t.NumberOfElements()
	if n != 0 && m > math.MaxInt/n {
		return dto.NewError(dto.KindSerialize, "Size", "layout of %s overflows", t)
	}
	s.mult = append(s.mult, m*n)
	return nil
}

func (s *sizer) ArrayEpilog(dto.AnyType) error {
	s.mult = s.mult[:len(s.mult)-1]
	return nil
}

// ToBytes returns the packed C image of v.
func ToBytes(v *dto.AnyValue, opts ...Option) ([]byte, error) {
	o := resolve(opts)
	size, err := Size(v.Type(), opts...)
	if err != nil {
		return nil, err
	}
	enc := &encoder{opts: o, buf: make([]byte, size)}
	if err := visit.Walk[*dto.AnyValue](v, enc); err != nil {
		return nil, err
	}
	return enc.buf, nil
}

// AssignToCType writes the packed C image of v into dst, which must be
// exactly Size bytes long. dst is not modified on failure.
func AssignToCType(v *dto.AnyValue, dst []byte, opts ...Option) error {
	size, err := Size(v.Type(), opts...)
	if err != nil {
		return err
	}
	if len(dst) != size {
		return dto.NewError(dto.KindSerialize, "AssignToCType", "destination is %d bytes, layout of %s is %d", len(dst), v.Type(), size)
	}
	image, err := ToBytes(v, opts...)
	if err != nil {
		return err
	}
	copy(dst, image)
	return nil
}

// AssignFromCType reads the packed C image src into v using v's type. v is
// not modified on failure.
func AssignFromCType(v *dto.AnyValue, src []byte, opts ...Option) error {
	t := v.Type()
	size, err := Size(t, opts...)
	if err != nil {
		return err
	}
	if len(src) != size {
		return dto.NewError(dto.KindParse, "AssignFromCType", "source is %d bytes, layout of %s is %d", len(src), t, size)
	}
	scratch := dto.NewValue(t)
	dec := &decoder{opts: resolve(opts), src: src}
	if err := visit.Walk[*dto.AnyValue](scratch, dec); err != nil {
		return err
	}
	return v.Assign(scratch)
}

// SafeAssignFromCType is AssignFromCType reporting success instead of an
// error.
func SafeAssignFromCType(v *dto.AnyValue, src []byte, opts ...Option) bool {
	return AssignFromCType(v, src, opts...) == nil
}

// ToStruct fills the Go struct pointed to by ptr with the C image of v.
// ptr must have an encoding/binary layout (fixed-size fields only, byte
// arrays for string slots) whose size equals Size(v.Type()).
func ToStruct(v *dto.AnyValue, ptr any, opts ...Option) error {
	image, err := ToBytes(v, opts...)
	if err != nil {
		return err
	}
	if n := binary.Size(ptr); n != len(image) {
		return dto.NewError(dto.KindSerialize, "ToStruct", "target is %d bytes, layout of %s is %d", n, v.Type(), len(image))
	}
	if err := binary.Read(bytes.NewReader(image), binary.NativeEndian, ptr); err != nil {
		return dto.WrapError(dto.KindSerialize, "ToStruct", "failed to fill target", err)
	}
	return nil
}

// FromStruct reads v from the Go struct pointed to by ptr; see ToStruct.
func FromStruct(v *dto.AnyValue, ptr any, opts ...Option) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, ptr); err != nil {
		return dto.WrapError(dto.KindParse, "FromStruct", "source has no fixed layout", err)
	}
	return AssignFromCType(v, buf.Bytes(), opts...)
}

type encoder struct {
	visit.Base[*dto.AnyValue]
	opts Options
	buf  []byte
	off  int
}

func (e *encoder) ArrayProlog(v *dto.AnyValue) error {
	if v.Code() == dto.UnboundedArrayCode {
		return dto.NewError(dto.KindSerialize, "ToBytes", "unbounded array %q has no fixed C layout", v.TypeName())
	}
	return nil
}

func (e *encoder) ScalarProlog(v *dto.AnyValue) error {
	bits, str := v.ScalarBits()
	out := e.buf[e.off:]
	switch v.Code().FixedSize() {
	case 1:
		out[0] = byte(bits)
	case 2:
		binary.NativeEndian.PutUint16(out, uint16(bits))
	case 4:
		binary.NativeEndian.PutUint32(out, uint32(bits))
	case 8:
		binary.NativeEndian.PutUint64(out, bits)
	default:
		if len(str) >= e.opts.StringSize {
			return dto.NewError(dto.KindSerialize, "ToBytes", "string of %d bytes does not fit a %d-byte slot", len(str), e.opts.StringSize)
		}
		if i := strings.IndexByte(str, 0); i >= 0 {
			return dto.NewError(dto.KindSerialize, "ToBytes", "string has a NUL byte at offset %d", i)
		}
		copy(out, str)
		e.off += e.opts.StringSize
		return nil
	}
	e.off += v.Code().FixedSize()
	return nil
}

type decoder struct {
	visit.Base[*dto.AnyValue]
	opts Options
	src  []byte
	off  int
}

func (d *decoder) ScalarProlog(v *dto.AnyValue) error {
	in := d.src[d.off:]
	var bits uint64
	switch v.Code() {
	case dto.StringCode:
		slot := in[:d.opts.StringSize]
		end := bytes.IndexByte(slot, 0)
		if end < 0 {
			return dto.NewError(dto.KindParse, "AssignFromCType", "string slot at offset %d is not NUL-terminated", d.off)
		}
		d.off += d.opts.StringSize
		return v.SetScalarBits(0, string(slot[:end]))
	case dto.BoolCode:
		if in[0] != 0 {
			bits = 1
		}
	case dto.Char8Code, dto.UInt8Code:
		bits = uint64(in[0])
	case dto.Int8Code:
		bits = uint64(int64(int8(in[0])))
	case dto.Int16Code:
		bits = uint64(int64(int16(binary.NativeEndian.Uint16(in))))
	case dto.UInt16Code:
		bits = uint64(binary.NativeEndian.Uint16(in))
	case dto.Int32Code:
		bits = uint64(int64(int32(binary.NativeEndian.Uint32(in))))
	case dto.UInt32Code, dto.Float32Code:
		bits = uint64(binary.NativeEndian.Uint32(in))
	default:
		bits = binary.NativeEndian.Uint64(in)
	}
	d.off += v.Code().FixedSize()
	return v.SetScalarBits(bits, "")
}
