package dto

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Member is one named entry of a struct type.
type Member struct {
	Name string
	Type AnyType
}

// AnyType describes the shape of a value: empty, a scalar kind, a struct
// layout, or a fixed/unbounded array of an element type.
//
// The zero AnyType is the Empty type. AnyType has value semantics: copies
// never observe each other's mutations because AddMember is copy-on-write
// and element types are never mutated in place.
type AnyType struct {
	code    TypeCode
	name    string
	members []Member
	elem    *AnyType
	size    int
}

// Predeclared scalar types.
var (
	BoolType    = AnyType{code: BoolCode}
	Char8Type   = AnyType{code: Char8Code}
	Int8Type    = AnyType{code: Int8Code}
	UInt8Type   = AnyType{code: UInt8Code}
	Int16Type   = AnyType{code: Int16Code}
	UInt16Type  = AnyType{code: UInt16Code}
	Int32Type   = AnyType{code: Int32Code}
	UInt32Type  = AnyType{code: UInt32Code}
	Int64Type   = AnyType{code: Int64Code}
	UInt64Type  = AnyType{code: UInt64Code}
	Float32Type = AnyType{code: Float32Code}
	Float64Type = AnyType{code: Float64Code}
	StringType  = AnyType{code: StringCode}
)

// EmptyType returns the Empty type.
func EmptyType() AnyType {
	return AnyType{}
}

// ScalarType returns the type for a leaf code. EmptyCode yields the Empty
// type; composite codes fail.
func ScalarType(code TypeCode) (AnyType, error) {
	if code != EmptyCode && !code.IsScalar() {
		return AnyType{}, invalidOp("ScalarType", nil, "%s is not a leaf type code", code)
	}
	return AnyType{code: code}, nil
}

// NewStructType creates a struct type with the given members in order.
func NewStructType(name string, members ...Member) (AnyType, error) {
	t := AnyType{code: StructCode, name: name}
	for _, m := range members {
		if err := t.AddMember(m.Name, m.Type); err != nil {
			return AnyType{}, err
		}
	}
	return t, nil
}

// NewArrayType creates a fixed-size array type.
func NewArrayType(name string, elem AnyType, size int) (AnyType, error) {
	if elem.IsEmpty() {
		return AnyType{}, invalidOp("NewArrayType", ErrEmptyPayload, "element type of %q is empty", name)
	}
	if size < 0 {
		return AnyType{}, invalidOp("NewArrayType", nil, "negative size %d", size)
	}
	e := elem
	return AnyType{code: ArrayCode, name: name, elem: &e, size: size}, nil
}

// NewUnboundedArrayType creates an array type whose length is not part of
// the type.
func NewUnboundedArrayType(name string, elem AnyType) (AnyType, error) {
	if elem.IsEmpty() {
		return AnyType{}, invalidOp("NewUnboundedArrayType", ErrEmptyPayload, "element type of %q is empty", name)
	}
	e := elem
	return AnyType{code: UnboundedArrayCode, name: name, elem: &e}, nil
}

// MustType panics if err is non-nil. Use only in tests or for types built
// from constants.
func MustType(t AnyType, err error) AnyType {
	if err != nil {
		panic(err)
	}
	return t
}

// Code returns the variant discriminant.
func (t AnyType) Code() TypeCode { return t.code }

// Name returns the type name: the declared name for structs and arrays, the
// leaf name for scalars and Empty.
func (t AnyType) Name() string {
	switch t.code {
	case StructCode, ArrayCode, UnboundedArrayCode:
		return t.name
	}
	return t.code.String()
}

// IsEmpty reports whether t is the Empty type.
func (t AnyType) IsEmpty() bool { return t.code == EmptyCode }

// IsScalar reports whether t is one of the leaf types other than Empty.
func (t AnyType) IsScalar() bool { return t.code.IsScalar() }

// IsStruct reports whether t is a struct.
func (t AnyType) IsStruct() bool { return t.code == StructCode }

// IsArray reports whether t is a fixed or unbounded array.
func (t AnyType) IsArray() bool { return t.code.IsArray() }

// ElementType returns the element type of an array, or Empty.
func (t AnyType) ElementType() AnyType {
	if t.elem == nil {
		return AnyType{}
	}
	return *t.elem
}

// NumberOfElements returns the fixed size of an array type; 0 otherwise.
func (t AnyType) NumberOfElements() int {
	if t.code == ArrayCode {
		return t.size
	}
	return 0
}

// NumberOfMembers returns the member count of a struct type.
func (t AnyType) NumberOfMembers() int {
	return len(t.members)
}

// MemberNames returns the struct member names in declaration order.
func (t AnyType) MemberNames() []string {
	names := make([]string, len(t.members))
	for i, m := range t.members {
		names[i] = m.Name
	}
	return names
}

// Members returns a copy of the struct member list.
func (t AnyType) Members() []Member {
	return slices.Clone(t.members)
}

// MemberIndex returns the position of the named member, or -1.
func (t AnyType) MemberIndex(name string) int {
	for i, m := range t.members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// HasMember reports whether a struct type has the named member.
func (t AnyType) HasMember(name string) bool {
	return t.MemberIndex(name) >= 0
}

// AddMember appends a member to a struct type.
func (t *AnyType) AddMember(name string, memberType AnyType) error {
	if t.code != StructCode {
		return invalidOp("AddMember", ErrNotStructCapable, "type %q is %s", t.Name(), t.code)
	}
	if err := ValidateMemberName(name); err != nil {
		return err
	}
	if memberType.IsEmpty() {
		return invalidOp("AddMember", ErrEmptyPayload, "member %q has empty type", name)
	}
	if t.HasMember(name) {
		return invalidOp("AddMember", ErrDuplicateKey, "member %q already exists in %q", name, t.name)
	}
	// Clip forces a fresh backing array so copies of t never see the append.
	t.members = append(slices.Clip(t.members), Member{Name: name, Type: memberType})
	return nil
}

// ValidateMemberName checks that name is usable as a struct member and as a
// field path component.
func ValidateMemberName(name string) error {
	if name == "" {
		return invalidOp("AddMember", ErrInvalidName, "member name is empty")
	}
	if strings.ContainsAny(name, " [].") {
		return invalidOp("AddMember", ErrInvalidName, "member name %q contains a reserved character", name)
	}
	return nil
}

// NumberOfChildren returns the number of direct children: members for a
// struct, one element type for an array, zero otherwise.
func (t AnyType) NumberOfChildren() int {
	switch t.code {
	case StructCode:
		return len(t.members)
	case ArrayCode, UnboundedArrayCode:
		return 1
	}
	return 0
}

// ChildName returns the member name of child i of a struct, or "" for
// array element types.
func (t AnyType) ChildName(i int) string {
	if t.code == StructCode && i >= 0 && i < len(t.members) {
		return t.members[i].Name
	}
	return ""
}

// Child returns the i-th child type (see NumberOfChildren). Out-of-range
// indices yield the Empty type.
func (t AnyType) Child(i int) AnyType {
	switch t.code {
	case StructCode:
		if i >= 0 && i < len(t.members) {
			return t.members[i].Type
		}
	case ArrayCode, UnboundedArrayCode:
		if i == 0 {
			return *t.elem
		}
	}
	return AnyType{}
}

// Field resolves a type field path such as "a.b[].c".
func (t AnyType) Field(path string) (AnyType, error) {
	tokens, err := ParseTypePath(path)
	if err != nil {
		return AnyType{}, err
	}
	cur := t
	for _, tok := range tokens {
		if tok == "[]" {
			if !cur.IsArray() {
				return AnyType{}, invalidOp("Field", ErrUnsupportedAccess, "%q: type %q is not an array", path, cur.Name())
			}
			cur = *cur.elem
			continue
		}
		if cur.code != StructCode {
			return AnyType{}, invalidOp("Field", ErrUnsupportedAccess, "%q: type %q has no members", path, cur.Name())
		}
		idx := cur.MemberIndex(tok)
		if idx < 0 {
			return AnyType{}, invalidOp("Field", ErrUnknownKey, "%q: no member %q in %q", path, tok, cur.Name())
		}
		cur = cur.members[idx].Type
	}
	return cur, nil
}

// HasField reports whether path resolves against t.
func (t AnyType) HasField(path string) bool {
	_, err := t.Field(path)
	return err == nil
}

// Equal reports deep structural equality, names included.
func (t AnyType) Equal(other AnyType) bool {
	if t.code != other.code {
		return false
	}
	switch t.code {
	case StructCode:
		if t.name != other.name || len(t.members) != len(other.members) {
			return false
		}
		for i := range t.members {
			if t.members[i].Name != other.members[i].Name || !t.members[i].Type.Equal(other.members[i].Type) {
				return false
			}
		}
		return true
	case ArrayCode:
		return t.name == other.name && t.size == other.size && t.elem.Equal(*other.elem)
	case UnboundedArrayCode:
		return t.name == other.name && t.elem.Equal(*other.elem)
	}
	return true
}

// String renders a compact human-readable description, e.g.
// "point{x:float64,y:float64}" or "samples[4]int32".
func (t AnyType) String() string {
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t AnyType) writeTo(b *strings.Builder) {
	switch t.code {
	case StructCode:
		b.WriteString(t.name)
		b.WriteByte('{')
		for i, m := range t.members {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(m.Name)
			b.WriteByte(':')
			m.Type.writeTo(b)
		}
		b.WriteByte('}')
	case ArrayCode:
		b.WriteString(t.name)
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(t.size))
		b.WriteByte(']')
		t.elem.writeTo(b)
	case UnboundedArrayCode:
		b.WriteString(t.name)
		b.WriteString("[]")
		t.elem.writeTo(b)
	default:
		b.WriteString(t.code.String())
	}
}

// GoString implements fmt.GoStringer for readable test failure output.
func (t AnyType) GoString() string {
	return fmt.Sprintf("dto.AnyType(%s)", t.String())
}
