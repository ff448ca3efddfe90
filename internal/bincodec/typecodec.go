package bincodec

import (
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/visit"
)

// MarshalType encodes the type section of the self-describing format:
//
//	leaf:      <code>
//	struct:    0x10 <name> <member count> (<member name> <type>)* 0x11
//	array:     0x12 <name> <size> <element type> 0x13
//	unbounded: 0x14 <name> <element type> 0x15
//
// Names are size-prefixed strings; counts and sizes are size prefixes.
func MarshalType(t dto.AnyType) ([]byte, error) {
	enc := &typeEncoder{}
	if err := visit.Walk[dto.AnyType](t, enc); err != nil {
		return nil, err
	}
	return enc.buf, nil
}

// UnmarshalType decodes a complete type section.
func UnmarshalType(data []byte) (dto.AnyType, error) {
	r := &reader{op: "UnmarshalType", data: data}
	t, err := decodeType(r)
	if err != nil {
		return dto.AnyType{}, err
	}
	if err := r.done(); err != nil {
		return dto.AnyType{}, err
	}
	return t, nil
}

type typeEncoder struct {
	visit.Base[dto.AnyType]
	buf []byte
}

func (e *typeEncoder) EmptyProlog(t dto.AnyType) error {
	e.buf = append(e.buf, byte(dto.EmptyCode))
	return nil
}

func (e *typeEncoder) ScalarProlog(t dto.AnyType) error {
	e.buf = append(e.buf, byte(t.Code()))
	return nil
}

func (e *typeEncoder) StructProlog(t dto.AnyType) error {
	e.buf = append(e.buf, tokStructStart)
	e.buf = appendString(e.buf, t.Name())
	e.buf = appendSize(e.buf, uint64(t.NumberOfMembers()))
	return nil
}

func (e *typeEncoder) MemberProlog(_ dto.AnyType, name string) error {
	e.buf = appendString(e.buf, name)
	return nil
}

func (e *typeEncoder) StructEpilog(dto.AnyType) error {
	e.buf = append(e.buf, tokStructEnd)
	return nil
}

func (e *typeEncoder) ArrayProlog(t dto.AnyType) error {
	if t.Code() == dto.UnboundedArrayCode {
		e.buf = append(e.buf, tokUnboundedStart)
		e.buf = appendString(e.buf, t.Name())
		return nil
	}
	e.buf = append(e.buf, tokArrayStart)
	e.buf = appendString(e.buf, t.Name())
	e.buf = appendSize(e.buf, uint64(t.NumberOfElements()))
	return nil
}

func (e *typeEncoder) ArrayEpilog(t dto.AnyType) error {
	if t.Code() == dto.UnboundedArrayCode {
		e.buf = append(e.buf, tokUnboundedEnd)
	} else {
		e.buf = append(e.buf, tokArrayEnd)
	}
	return nil
}

// typeFrame is a composite type under construction.
type typeFrame struct {
	code       dto.TypeCode
	name       string
	size       int
	want       int
	members    []dto.Member
	memberName string
	elem       *dto.AnyType
}

func (f *typeFrame) complete() bool {
	if f.code == dto.StructCode {
		return len(f.members) == f.want
	}
	return f.elem != nil
}

func (f *typeFrame) endToken() byte {
	switch f.code {
	case dto.StructCode:
		return tokStructEnd
	case dto.ArrayCode:
		return tokArrayEnd
	}
	return tokUnboundedEnd
}

func (f *typeFrame) build() (dto.AnyType, error) {
	switch f.code {
	case dto.StructCode:
		return dto.NewStructType(f.name, f.members...)
	case dto.ArrayCode:
		return dto.NewArrayType(f.name, *f.elem, f.size)
	}
	return dto.NewUnboundedArrayType(f.name, *f.elem)
}

func (f *typeFrame) add(t dto.AnyType) {
	if f.code == dto.StructCode {
		f.members = append(f.members, dto.Member{Name: f.memberName, Type: t})
		return
	}
	f.elem = &t
}

// decodeType reads one type from r using an explicit stack of composite
// frames.
func decodeType(r *reader) (dto.AnyType, error) {
	var stack []*typeFrame
	for {
		var (
			done dto.AnyType
			have bool
		)
		if n := len(stack); n > 0 {
			top := stack[n-1]
			if top.complete() {
				tok, err := r.byte()
				if err != nil {
					return dto.AnyType{}, err
				}
				if tok != top.endToken() {
					return dto.AnyType{}, dto.NewError(dto.KindParse, r.op, "token mismatch at offset %d: got 0x%02x, want 0x%02x", r.off-1, tok, top.endToken())
				}
				t, err := top.build()
				if err != nil {
					return dto.AnyType{}, dto.NewError(dto.KindParse, r.op, "invalid type: %v", err)
				}
				stack = stack[:n-1]
				done, have = t, true
			} else if top.code == dto.StructCode {
				name, err := r.string()
				if err != nil {
					return dto.AnyType{}, err
				}
				top.memberName = name
			}
		}

		if !have {
			tok, err := r.byte()
			if err != nil {
				return dto.AnyType{}, err
			}
			switch {
			case tok <= byte(dto.StringCode):
				done, err = dto.ScalarType(dto.TypeCode(tok))
				if err != nil {
					return dto.AnyType{}, err
				}
			case tok == tokStructStart:
				f := &typeFrame{code: dto.StructCode}
				if f.name, err = r.string(); err != nil {
					return dto.AnyType{}, err
				}
				if f.want, err = r.count(); err != nil {
					return dto.AnyType{}, err
				}
				// Each member needs at least a name prefix and a token.
				if f.want > r.remaining()/2 {
					return dto.AnyType{}, dto.NewError(dto.KindParse, r.op, "struct %q claims %d members in %d bytes", f.name, f.want, r.remaining())
				}
				stack = append(stack, f)
				continue
			case tok == tokArrayStart:
				f := &typeFrame{code: dto.ArrayCode}
				if f.name, err = r.string(); err != nil {
					return dto.AnyType{}, err
				}
				if f.size, err = r.count(); err != nil {
					return dto.AnyType{}, err
				}
				stack = append(stack, f)
				continue
			case tok == tokUnboundedStart:
				f := &typeFrame{code: dto.UnboundedArrayCode}
				if f.name, err = r.string(); err != nil {
					return dto.AnyType{}, err
				}
				stack = append(stack, f)
				continue
			default:
				return dto.AnyType{}, dto.NewError(dto.KindParse, r.op, "unknown type token 0x%02x at offset %d", tok, r.off-1)
			}
		}

		if len(stack) == 0 {
			return done, nil
		}
		stack[len(stack)-1].add(done)
	}
}
