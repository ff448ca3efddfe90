// Package bincodec implements the compact little-endian binary encoding of
// AnyValue trees.
//
// Plain encoding writes scalars as raw little-endian bytes and strings as a
// size prefix followed by the bytes. Structs and fixed arrays carry no
// framing; unbounded arrays carry their element count as a size prefix. The
// reader must know the type.
//
// Self-describing encoding prepends a type section and tags every scalar in
// the value section with its one-byte type token, terminating strings with
// a NUL byte, so the reader needs no external type.
//
// Every encoder and decoder walks the tree with package visit; no codec
// recurses.
package bincodec

import (
	"math"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/visit"
)

// Marshal encodes v in the plain binary format.
func Marshal(v *dto.AnyValue) ([]byte, error) {
	enc := &valueEncoder{}
	if err := visit.Walk[*dto.AnyValue](v, enc); err != nil {
		return nil, err
	}
	return enc.buf, nil
}

// Unmarshal decodes plain binary data as a value of type t.
func Unmarshal(t dto.AnyType, data []byte) (*dto.AnyValue, error) {
	r := &reader{op: "Unmarshal", data: data}
	v, err := decodeValue(r, t, false)
	if err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalInto decodes plain binary data into v using v's type. On failure
// v is left unchanged.
func UnmarshalInto(v *dto.AnyValue, data []byte) error {
	decoded, err := Unmarshal(v.Type(), data)
	if err != nil {
		return err
	}
	return v.Assign(decoded)
}

// MarshalSelfDescribing encodes v as a type section followed by a tagged
// value section.
func MarshalSelfDescribing(v *dto.AnyValue) ([]byte, error) {
	buf, err := MarshalType(v.Type())
	if err != nil {
		return nil, err
	}
	enc := &valueEncoder{buf: buf, tagged: true}
	if err := visit.Walk[*dto.AnyValue](v, enc); err != nil {
		return nil, err
	}
	return enc.buf, nil
}

// UnmarshalSelfDescribing decodes data produced by MarshalSelfDescribing.
func UnmarshalSelfDescribing(data []byte) (*dto.AnyValue, error) {
	r := &reader{op: "UnmarshalSelfDescribing", data: data}
	t, err := decodeType(r)
	if err != nil {
		return nil, err
	}
	v, err := decodeValue(r, t, true)
	if err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return v, nil
}

// Decoding never allocates more than nodesPerByte value nodes per input
// byte, plus freeNodes. Without the budget, arrays of empty structs occupy
// no wire bytes and could be sized without limit by a short input.
const (
	nodesPerByte = 64
	freeNodes    = 1 << 16
)

func nodeBudget(remaining int) uint64 {
	return uint64(remaining)*nodesPerByte + freeNodes
}

func decodeValue(r *reader, t dto.AnyType, tagged bool) (*dto.AnyValue, error) {
	s := measure(t, tagged)
	if s.total > uint64(r.remaining()) {
		return nil, dto.NewError(dto.KindParse, r.op, "type %s needs at least %d bytes, have %d", t, s.total, r.remaining())
	}
	budget := nodeBudget(r.remaining())
	if s.nodes > budget {
		return nil, dto.NewError(dto.KindParse, r.op, "type %s has %d value nodes, more than %d bytes of input can describe", t, s.nodes, r.remaining())
	}
	v := dto.NewValue(t)
	dec := &valueDecoder{r: r, tagged: tagged, budget: budget - s.nodes}
	if err := visit.Walk[*dto.AnyValue](v, dec); err != nil {
		return nil, err
	}
	return v, nil
}

type valueEncoder struct {
	visit.Base[*dto.AnyValue]
	buf    []byte
	tagged bool
}

func (e *valueEncoder) ScalarProlog(v *dto.AnyValue) error {
	if e.tagged {
		e.buf = append(e.buf, byte(v.Code()))
	}
	e.buf = appendScalar(e.buf, v)
	if e.tagged && v.Code() == dto.StringCode {
		e.buf = append(e.buf, 0)
	}
	return nil
}

func (e *valueEncoder) ArrayProlog(v *dto.AnyValue) error {
	if v.Code() == dto.UnboundedArrayCode {
		e.buf = appendSize(e.buf, uint64(v.NumberOfElements()))
	}
	return nil
}

type valueDecoder struct {
	visit.Base[*dto.AnyValue]
	r      *reader
	tagged bool
	budget uint64 // value nodes left to allocate
}

func (d *valueDecoder) ScalarProlog(v *dto.AnyValue) error {
	if d.tagged {
		tok, err := d.r.byte()
		if err != nil {
			return err
		}
		if tok != byte(v.Code()) {
			return dto.NewError(dto.KindParse, d.r.op, "token mismatch at offset %d: got 0x%02x, want %s", d.r.off-1, tok, v.Code())
		}
	}
	bits, str, err := d.r.scalar(v.Code())
	if err != nil {
		return err
	}
	if d.tagged && v.Code() == dto.StringCode {
		term, err := d.r.byte()
		if err != nil {
			return err
		}
		if term != 0 {
			return dto.NewError(dto.KindParse, d.r.op, "string of length %d at offset %d is not NUL-terminated", len(str), d.r.off-1)
		}
	}
	return v.SetScalarBits(bits, str)
}

func (d *valueDecoder) ArrayProlog(v *dto.AnyValue) error {
	if v.Code() != dto.UnboundedArrayCode {
		return nil
	}
	n, err := d.r.count()
	if err != nil {
		return err
	}
	// Reject counts the remaining input cannot possibly hold before
	// allocating the elements.
	elem := measure(v.ElementType(), d.tagged)
	if elem.total > 0 && uint64(n) > uint64(d.r.remaining())/elem.total {
		return dto.NewError(dto.KindParse, d.r.op, "array count %d exceeds remaining %d bytes", n, d.r.remaining())
	}
	nodes := mulSat(uint64(n), elem.nodes)
	if nodes > d.budget {
		return dto.NewError(dto.KindParse, d.r.op, "array count %d at offset %d needs %d value nodes, input allows %d", n, d.r.off, nodes, d.budget)
	}
	d.budget -= nodes
	return v.SetNumberOfElements(n)
}

// MinWireSize returns the smallest number of bytes a value of type t can
// occupy in the value section, saturating at math.MaxUint64.
func MinWireSize(t dto.AnyType, tagged bool) uint64 {
	return measure(t, tagged).total
}

func measure(t dto.AnyType, tagged bool) *sizer {
	s := &sizer{tagged: tagged, mult: []uint64{1}}
	_ = visit.Walk[dto.AnyType](t, s)
	return s
}

// sizer accumulates minimum wire sizes and the number of value nodes
// NewValue allocates for a type. mult holds the repetition factor of the
// enclosing fixed arrays; unbounded arrays contribute only their count
// prefix and their own node.
type sizer struct {
	visit.Base[dto.AnyType]
	tagged bool
	mult   []uint64
	total  uint64
	nodes  uint64
}

func (s *sizer) add(n uint64) {
	s.total = addSat(s.total, mulSat(n, s.mult[len(s.mult)-1]))
}

func (s *sizer) node() {
	s.nodes = addSat(s.nodes, s.mult[len(s.mult)-1])
}

func (s *sizer) StructProlog(dto.AnyType) error {
	s.node()
	return nil
}

func (s *sizer) ScalarProlog(t dto.AnyType) error {
	s.node()
	n := uint64(t.Code().FixedSize())
	if t.Code() == dto.StringCode {
		n = 1
		if s.tagged {
			n++
		}
	}
	if s.tagged {
		n++
	}
	s.add(n)
	return nil
}

func (s *sizer) ArrayProlog(t dto.AnyType) error {
	s.node()
	outer := s.mult[len(s.mult)-1]
	if t.Code() == dto.UnboundedArrayCode {
		s.add(1)
		s.mult = append(s.mult, 0)
		return nil
	}
	s.mult = append(s.mult, mulSat(outer, uint64(t.NumberOfElements())))
	return nil
}

func (s *sizer) ArrayEpilog(dto.AnyType) error {
	s.mult = s.mult[:len(s.mult)-1]
	return nil
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func mulSat(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}
