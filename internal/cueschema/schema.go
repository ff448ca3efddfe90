// Package cueschema derives AnyType schemas from CUE definitions.
//
// CUE kinds map onto types as follows:
//
//	bool           bool
//	int            int64
//	float, number  float64
//	string         string
//	{...}          struct, members in declaration order
//	[...T]         unbounded array of T
//
// A @dto attribute on a field or definition refines the mapping:
//
//	@dto(int16)          leaf type of a scalar (must fit the CUE kind)
//	@dto(size=4)         fixed array of 4 elements instead of unbounded
//	@dto(elem=float32)   leaf type of a list's scalar elements
//	@dto(name=point)     type name of a struct or array
//
// Structs and lists take the name of the definition they reference, so
// position: #Point yields a struct named "Point".
package cueschema

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/supdto/internal/dto"
)

// attrName is the CUE attribute read by this package.
const attrName = "dto"

// SchemaError is a CUE schema that has no AnyType equivalent. It matches
// dto.ErrParse.
type SchemaError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *SchemaError) Unwrap() error { return dto.ErrParse }

func schemaErr(v cue.Value, format string, args ...any) error {
	return &SchemaError{Path: pathOf(v), Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
}

func pathOf(v cue.Value) string {
	if p := v.Path().String(); p != "" {
		return p
	}
	return "<root>"
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{Path: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &SchemaError{Path: "cue", Message: first.Error()}
}

// directives are the parsed arguments of a @dto attribute.
type directives struct {
	leaf    string
	elem    string
	name    string
	hasName bool
	size    int
	hasSize bool
}

func readDirectives(v cue.Value) (directives, error) {
	var d directives
	a := v.Attribute(attrName)
	if a.Err() != nil {
		return d, nil
	}
	for i := 0; i < a.NumArgs(); i++ {
		key, val := a.Arg(i)
		key = strings.TrimSpace(key)
		switch {
		case key == "size":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil || n < 0 {
				return d, schemaErr(v, "@%s(size=%s): want a non-negative integer", attrName, val)
			}
			d.size, d.hasSize = n, true
		case key == "name":
			d.name, d.hasName = strings.TrimSpace(val), true
		case key == "elem":
			d.elem = strings.TrimSpace(val)
		case val == "":
			d.leaf = key
		default:
			return d, schemaErr(v, "@%s: unknown directive %q", attrName, key)
		}
	}
	return d, nil
}

// leafKinds lists the leaf types each CUE kind may be narrowed to.
var leafKinds = map[cue.Kind][]dto.TypeCode{
	cue.BoolKind:   {dto.BoolCode},
	cue.IntKind:    {dto.Int64Code, dto.Char8Code, dto.Int8Code, dto.UInt8Code, dto.Int16Code, dto.UInt16Code, dto.Int32Code, dto.UInt32Code, dto.UInt64Code},
	cue.FloatKind:  {dto.Float64Code, dto.Float32Code},
	cue.NumberKind: {dto.Float64Code, dto.Float32Code},
	cue.StringKind: {dto.StringCode},
}

func leafType(v cue.Value, kind cue.Kind, override string) (dto.AnyType, error) {
	allowed := leafKinds[kind]
	if override == "" {
		return dto.ScalarType(allowed[0])
	}
	code, ok := dto.LeafCode(override)
	if !ok || code == dto.EmptyCode {
		return dto.EmptyType(), schemaErr(v, "unknown leaf type %q", override)
	}
	for _, c := range allowed {
		if c == code {
			return dto.ScalarType(code)
		}
	}
	return dto.EmptyType(), schemaErr(v, "leaf type %s does not fit CUE kind %v", override, kind)
}

// TypeFromCUE converts a CUE value to an AnyType.
func TypeFromCUE(v cue.Value) (dto.AnyType, error) {
	return typeFromValue(v, "", "")
}

// typeFromValue converts v. defName names structs and arrays when v is a
// definition; elemLeaf narrows scalar list elements.
func typeFromValue(v cue.Value, defName, elemLeaf string) (dto.AnyType, error) {
	if err := v.Err(); err != nil {
		return dto.EmptyType(), formatCUEError(err)
	}
	d, err := readDirectives(v)
	if err != nil {
		return dto.EmptyType(), err
	}
	if d.leaf == "" {
		d.leaf = elemLeaf
	}

	name := defName
	if name == "" {
		name = referencedDefinition(v)
	}
	if d.hasName {
		name = d.name
	}

	kind := v.IncompleteKind()
	switch kind {
	case cue.BoolKind, cue.IntKind, cue.FloatKind, cue.NumberKind, cue.StringKind:
		if d.hasSize || d.elem != "" {
			return dto.EmptyType(), schemaErr(v, "size and elem apply to lists only")
		}
		return leafType(v, kind, d.leaf)

	case cue.StructKind:
		return structType(v, name)

	case cue.ListKind:
		elemVal := v.LookupPath(cue.MakePath(cue.AnyIndex))
		if !v.Allows(cue.AnyIndex) || !elemVal.Exists() {
			return dto.EmptyType(), schemaErr(v, "list must be open ([...T]) to define an element type")
		}
		elem, err := typeFromValue(elemVal, "", d.elem)
		if err != nil {
			return dto.EmptyType(), err
		}
		var t dto.AnyType
		if d.hasSize {
			t, err = dto.NewArrayType(name, elem, d.size)
		} else {
			t, err = dto.NewUnboundedArrayType(name, elem)
		}
		if err != nil {
			return dto.EmptyType(), schemaErr(v, "%v", err)
		}
		return t, nil
	}
	return dto.EmptyType(), schemaErr(v, "unsupported CUE kind: %v", kind)
}

func structType(v cue.Value, name string) (dto.AnyType, error) {
	iter, err := v.Fields()
	if err != nil {
		return dto.EmptyType(), formatCUEError(err)
	}
	t, err := dto.NewStructType(name)
	if err != nil {
		return dto.EmptyType(), schemaErr(v, "%v", err)
	}
	for iter.Next() {
		member, err := typeFromValue(iter.Value(), "", "")
		if err != nil {
			return dto.EmptyType(), err
		}
		if err := t.AddMember(iter.Label(), member); err != nil {
			return dto.EmptyType(), schemaErr(iter.Value(), "%v", err)
		}
	}
	return t, nil
}

// referencedDefinition returns the definition name v refers to, or "".
func referencedDefinition(v cue.Value) string {
	_, path := v.ReferencePath()
	sels := path.Selectors()
	if len(sels) == 0 {
		return ""
	}
	last := sels[len(sels)-1]
	if !last.IsDefinition() {
		return ""
	}
	return strings.TrimPrefix(last.String(), "#")
}
