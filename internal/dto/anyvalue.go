package dto

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Char8 is the Go representation of the char8 scalar kind.
type Char8 byte

type valueMember struct {
	name  string
	value *AnyValue
}

// AnyValue is a value bound to an AnyType.
//
// AnyValue trees are strictly owned: AddMember and Append store deep copies
// of their arguments, so a subtree never has two parents. At and Child
// return references into the tree; mutating through them mutates the tree.
// Use Clone for an independent copy.
//
// The zero AnyValue is the Empty value.
type AnyValue struct {
	code TypeCode
	name string

	// Scalar payload. Numeric kinds and bool live in bits: signed integers
	// sign-extended, floats as IEEE-754 bits. Strings live in str.
	bits uint64
	str  string

	members  []valueMember
	elements []*AnyValue
	elemType AnyType
}

// NewEmptyValue returns a new Empty value.
func NewEmptyValue() *AnyValue { return &AnyValue{} }

// NewBool returns a new Bool value.
func NewBool(b bool) *AnyValue {
	v := &AnyValue{code: BoolCode}
	if b {
		v.bits = 1
	}
	return v
}

// NewChar8 returns a new Char8 value.
func NewChar8(c Char8) *AnyValue {
	return &AnyValue{code: Char8Code, bits: uint64(c)}
}

// NewInt8 returns a new Int8 value.
func NewInt8(x int8) *AnyValue {
	return &AnyValue{code: Int8Code, bits: uint64(int64(x))}
}

// NewUInt8 returns a new UInt8 value.
func NewUInt8(x uint8) *AnyValue {
	return &AnyValue{code: UInt8Code, bits: uint64(x)}
}

// NewInt16 returns a new Int16 value.
func NewInt16(x int16) *AnyValue {
	return &AnyValue{code: Int16Code, bits: uint64(int64(x))}
}

// NewUInt16 returns a new UInt16 value.
func NewUInt16(x uint16) *AnyValue {
	return &AnyValue{code: UInt16Code, bits: uint64(x)}
}

// NewInt32 returns a new Int32 value.
func NewInt32(x int32) *AnyValue {
	return &AnyValue{code: Int32Code, bits: uint64(int64(x))}
}

// NewUInt32 returns a new UInt32 value.
func NewUInt32(x uint32) *AnyValue {
	return &AnyValue{code: UInt32Code, bits: uint64(x)}
}

// NewInt64 returns a new Int64 value.
func NewInt64(x int64) *AnyValue {
	return &AnyValue{code: Int64Code, bits: uint64(x)}
}

// NewUInt64 returns a new UInt64 value.
func NewUInt64(x uint64) *AnyValue {
	return &AnyValue{code: UInt64Code, bits: x}
}

// NewFloat32 returns a new Float32 value. The bit pattern is kept, so -0
// and NaN payloads survive.
func NewFloat32(x float32) *AnyValue {
	return &AnyValue{code: Float32Code, bits: uint64(math.Float32bits(x))}
}

// NewFloat64 returns a new Float64 value, keeping its bit pattern.
func NewFloat64(x float64) *AnyValue {
	return &AnyValue{code: Float64Code, bits: math.Float64bits(x)}
}

// NewString returns a new String value.
func NewString(s string) *AnyValue {
	return &AnyValue{code: StringCode, str: s}
}

// NewStructValue creates a struct value with no members; populate it with
// AddMember.
func NewStructValue(name string) *AnyValue {
	return &AnyValue{code: StructCode, name: name}
}

// NewArrayValue creates a fixed-size array from at least one element. The
// element type is the type of the first element; the others must match it
// exactly.
func NewArrayValue(name string, elements ...*AnyValue) (*AnyValue, error) {
	if len(elements) == 0 {
		return nil, invalidOp("NewArrayValue", nil, "cannot infer element type of %q from zero elements", name)
	}
	for i, e := range elements {
		if e == nil {
			return nil, invalidOp("NewArrayValue", ErrEmptyPayload, "element %d of %q is nil", i, name)
		}
	}
	elemType := elements[0].Type()
	if elemType.IsEmpty() {
		return nil, invalidOp("NewArrayValue", ErrEmptyPayload, "element type of %q is empty", name)
	}
	v := &AnyValue{code: ArrayCode, name: name, elemType: elemType}
	v.elements = make([]*AnyValue, len(elements))
	for i, e := range elements {
		if i > 0 && !e.Type().Equal(elemType) {
			return nil, invalidOp("NewArrayValue", nil, "element %d of %q has type %s, want %s", i, name, e.Type(), elemType)
		}
		v.elements[i] = e.Clone()
	}
	return v, nil
}

// NewUnboundedArrayValue creates an unbounded array of elemType holding
// copies of elements, each converted to elemType.
func NewUnboundedArrayValue(name string, elemType AnyType, elements ...*AnyValue) (*AnyValue, error) {
	if elemType.IsEmpty() {
		return nil, invalidOp("NewUnboundedArrayValue", ErrEmptyPayload, "element type of %q is empty", name)
	}
	v := &AnyValue{code: UnboundedArrayCode, name: name, elemType: elemType}
	for _, e := range elements {
		if err := v.Append(e); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// NewValue creates a default-initialised value of type t: zero scalars,
// empty strings, fixed arrays filled with default elements, empty unbounded
// arrays.
func NewValue(t AnyType) *AnyValue {
	v := &AnyValue{code: t.code}
	switch t.code {
	case StructCode:
		v.name = t.name
		v.members = make([]valueMember, len(t.members))
		for i, m := range t.members {
			v.members[i] = valueMember{name: m.Name, value: NewValue(m.Type)}
		}
	case ArrayCode:
		v.name = t.name
		v.elemType = *t.elem
		v.elements = make([]*AnyValue, t.size)
		for i := range v.elements {
			v.elements[i] = NewValue(*t.elem)
		}
	case UnboundedArrayCode:
		v.name = t.name
		v.elemType = *t.elem
	}
	return v
}

// MustValue panics if err is non-nil. Use only in tests.
func MustValue(v *AnyValue, err error) *AnyValue {
	if err != nil {
		panic(err)
	}
	return v
}

// Code returns the variant discriminant.
func (v *AnyValue) Code() TypeCode { return v.code }

// TypeName returns the struct/array type name or the leaf name.
func (v *AnyValue) TypeName() string {
	switch v.code {
	case StructCode, ArrayCode, UnboundedArrayCode:
		return v.name
	}
	return v.code.String()
}

// IsEmpty reports whether v is an Empty value.
func (v *AnyValue) IsEmpty() bool { return v.code == EmptyCode }

// IsScalar reports whether v holds a leaf value other than Empty.
func (v *AnyValue) IsScalar() bool { return v.code.IsScalar() }

// IsStruct reports whether v is a struct.
func (v *AnyValue) IsStruct() bool { return v.code == StructCode }

// IsArray reports whether v is a fixed or unbounded array.
func (v *AnyValue) IsArray() bool { return v.code.IsArray() }

// Type derives the AnyType this value conforms to.
func (v *AnyValue) Type() AnyType {
	switch v.code {
	case StructCode:
		t := AnyType{code: StructCode, name: v.name}
		if len(v.members) > 0 {
			t.members = make([]Member, len(v.members))
			for i, m := range v.members {
				t.members[i] = Member{Name: m.name, Type: m.value.Type()}
			}
		}
		return t
	case ArrayCode:
		e := v.elemType
		return AnyType{code: ArrayCode, name: v.name, elem: &e, size: len(v.elements)}
	case UnboundedArrayCode:
		e := v.elemType
		return AnyType{code: UnboundedArrayCode, name: v.name, elem: &e}
	}
	return AnyType{code: v.code}
}

// ElementType returns the element type of an array value, or Empty.
func (v *AnyValue) ElementType() AnyType {
	return v.elemType
}

// NumberOfElements returns the element count of an array value.
func (v *AnyValue) NumberOfElements() int {
	return len(v.elements)
}

// NumberOfMembers returns the member count of a struct value.
func (v *AnyValue) NumberOfMembers() int {
	return len(v.members)
}

// MemberNames returns the struct member names in order.
func (v *AnyValue) MemberNames() []string {
	names := make([]string, len(v.members))
	for i, m := range v.members {
		names[i] = m.name
	}
	return names
}

// MemberIndex returns the position of the named member, or -1.
func (v *AnyValue) MemberIndex(name string) int {
	for i, m := range v.members {
		if m.name == name {
			return i
		}
	}
	return -1
}

// HasMember reports whether a struct value has the named member.
func (v *AnyValue) HasMember(name string) bool {
	return v.MemberIndex(name) >= 0
}

// AddMember appends a deep copy of member to a struct value.
func (v *AnyValue) AddMember(name string, member *AnyValue) error {
	if v.code != StructCode {
		return invalidOp("AddMember", ErrNotStructCapable, "value of type %q is %s", v.TypeName(), v.code)
	}
	if err := ValidateMemberName(name); err != nil {
		return err
	}
	if member == nil || member.IsEmpty() {
		return invalidOp("AddMember", ErrEmptyPayload, "member %q is empty", name)
	}
	if v.HasMember(name) {
		return invalidOp("AddMember", ErrDuplicateKey, "member %q already exists in %q", name, v.name)
	}
	v.members = append(v.members, valueMember{name: name, value: member.Clone()})
	return nil
}

// Append adds an element to an unbounded array. The element is converted to
// the array's element type.
func (v *AnyValue) Append(elem *AnyValue) error {
	if v.code != UnboundedArrayCode {
		return invalidOp("Append", ErrUnsupportedAccess, "value of type %q is %s", v.TypeName(), v.code)
	}
	if elem == nil {
		return invalidOp("Append", ErrEmptyPayload, "nil element")
	}
	e := NewValue(v.elemType)
	if err := e.ConvertFrom(elem); err != nil {
		return err
	}
	v.elements = append(v.elements, e)
	return nil
}

// SetNumberOfElements resizes an unbounded array, appending default
// elements or dropping trailing ones.
func (v *AnyValue) SetNumberOfElements(n int) error {
	if v.code != UnboundedArrayCode {
		return invalidOp("SetNumberOfElements", ErrUnsupportedAccess, "value of type %q is %s", v.TypeName(), v.code)
	}
	if n < 0 {
		return invalidOp("SetNumberOfElements", ErrOutOfBounds, "negative size %d", n)
	}
	if n <= len(v.elements) {
		clear(v.elements[n:])
		v.elements = v.elements[:n]
		return nil
	}
	for len(v.elements) < n {
		v.elements = append(v.elements, NewValue(v.elemType))
	}
	return nil
}

// NumberOfChildren returns the number of members (struct), elements
// (arrays) or zero.
func (v *AnyValue) NumberOfChildren() int {
	switch v.code {
	case StructCode:
		return len(v.members)
	case ArrayCode, UnboundedArrayCode:
		return len(v.elements)
	}
	return 0
}

// ChildName returns the member name of child i of a struct, or "".
func (v *AnyValue) ChildName(i int) string {
	if v.code == StructCode && i >= 0 && i < len(v.members) {
		return v.members[i].name
	}
	return ""
}

// Child returns a reference to child i in member or index order, or nil.
func (v *AnyValue) Child(i int) *AnyValue {
	switch v.code {
	case StructCode:
		if i >= 0 && i < len(v.members) {
			return v.members[i].value
		}
	case ArrayCode, UnboundedArrayCode:
		if i >= 0 && i < len(v.elements) {
			return v.elements[i]
		}
	}
	return nil
}

// At resolves a value field path such as "a.b[2].c" and returns a reference
// into the tree. The empty path returns v itself.
func (v *AnyValue) At(path string) (*AnyValue, error) {
	tokens, err := ParseValuePath(path)
	if err != nil {
		return nil, err
	}
	cur := v
	for _, tok := range tokens {
		if strings.HasPrefix(tok, "[") {
			if !cur.IsArray() {
				return nil, invalidOp("At", ErrUnsupportedAccess, "%q: value of type %q is not an array", path, cur.TypeName())
			}
			idx, err := strconv.Atoi(tok[1 : len(tok)-1])
			if err != nil || idx >= len(cur.elements) {
				return nil, invalidOp("At", ErrOutOfBounds, "%q: index %d, length %d", path, idx, len(cur.elements))
			}
			cur = cur.elements[idx]
			continue
		}
		if cur.code != StructCode {
			return nil, invalidOp("At", ErrUnsupportedAccess, "%q: value of type %q has no members", path, cur.TypeName())
		}
		idx := cur.MemberIndex(tok)
		if idx < 0 {
			return nil, invalidOp("At", ErrUnknownKey, "%q: no member %q in %q", path, tok, cur.TypeName())
		}
		cur = cur.members[idx].value
	}
	return cur, nil
}

// Has reports whether path resolves against v.
func (v *AnyValue) Has(path string) bool {
	_, err := v.At(path)
	return err == nil
}

// Clone returns a deep copy.
func (v *AnyValue) Clone() *AnyValue {
	c := *v
	if v.members != nil {
		c.members = make([]valueMember, len(v.members))
		for i, m := range v.members {
			c.members[i] = valueMember{name: m.name, value: m.value.Clone()}
		}
	}
	if v.elements != nil {
		c.elements = make([]*AnyValue, len(v.elements))
		for i, e := range v.elements {
			c.elements[i] = e.Clone()
		}
	}
	return &c
}

// Equal reports deep equality of variant, type names and payload. Floats
// compare by bit pattern.
func (v *AnyValue) Equal(other *AnyValue) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.code != other.code {
		return false
	}
	switch v.code {
	case EmptyCode:
		return true
	case StringCode:
		return v.str == other.str
	case StructCode:
		if v.name != other.name || len(v.members) != len(other.members) {
			return false
		}
		for i := range v.members {
			if v.members[i].name != other.members[i].name || !v.members[i].value.Equal(other.members[i].value) {
				return false
			}
		}
		return true
	case ArrayCode, UnboundedArrayCode:
		if v.name != other.name || len(v.elements) != len(other.elements) || !v.elemType.Equal(other.elemType) {
			return false
		}
		for i := range v.elements {
			if !v.elements[i].Equal(other.elements[i]) {
				return false
			}
		}
		return true
	}
	return v.bits == other.bits
}

// Assign is copy-assignment. An Empty receiver becomes a deep copy of
// other. Otherwise scalars convert (ScalarConversion) and composites require
// an exact type match.
func (v *AnyValue) Assign(other *AnyValue) error {
	if other == nil {
		return invalidConversion("Assign", "nil source")
	}
	if v.code == EmptyCode {
		*v = *other.Clone()
		return nil
	}
	if v.IsScalar() {
		return v.ConvertFrom(other)
	}
	if !v.Type().Equal(other.Type()) {
		return invalidConversion("Assign", "cannot assign %s to %s", other.Type(), v.Type())
	}
	c := other.Clone()
	v.members, v.elements = c.members, c.elements
	return nil
}

// ConvertFrom rewrites v's payload from other without changing v's type.
//
// Scalars convert via ScalarConversion. Structs require the same member-name
// set in any order. Fixed arrays require equal length; unbounded arrays take
// other's elements converted to their element type.
//
// On failure v may be left partially updated, but it always remains a valid
// value of its original type.
func (v *AnyValue) ConvertFrom(other *AnyValue) error {
	if other == nil {
		return invalidConversion("ConvertFrom", "nil source")
	}
	switch v.code {
	case EmptyCode:
		if other.code != EmptyCode {
			return invalidConversion("ConvertFrom", "cannot convert %s to empty", other.TypeName())
		}
		return nil
	case StructCode:
		return v.convertStruct(other)
	case ArrayCode:
		if !other.IsArray() || len(other.elements) != len(v.elements) {
			return invalidConversion("ConvertFrom", "cannot convert %s to %s", other.Type(), v.Type())
		}
		for i, e := range v.elements {
			if err := e.ConvertFrom(other.elements[i]); err != nil {
				return err
			}
		}
		return nil
	case UnboundedArrayCode:
		if !other.IsArray() {
			return invalidConversion("ConvertFrom", "cannot convert %s to %s", other.Type(), v.Type())
		}
		elements := make([]*AnyValue, len(other.elements))
		for i, src := range other.elements {
			e := NewValue(v.elemType)
			if err := e.ConvertFrom(src); err != nil {
				return err
			}
			elements[i] = e
		}
		v.elements = elements
		return nil
	}
	if !other.IsScalar() {
		return invalidConversion("ConvertFrom", "cannot convert %s to %s", other.TypeName(), v.code)
	}
	bits, str, err := convertPayload(v.code, other.code, other.bits, other.str)
	if err != nil {
		return err
	}
	v.bits, v.str = bits, str
	return nil
}

func (v *AnyValue) convertStruct(other *AnyValue) error {
	if other.code != StructCode || len(other.members) != len(v.members) {
		return invalidConversion("ConvertFrom", "cannot convert %s to %s", other.Type(), v.Type())
	}
	for _, m := range v.members {
		if !other.HasMember(m.name) {
			return invalidConversion("ConvertFrom", "member %q missing from source %q", m.name, other.name)
		}
	}
	for _, m := range v.members {
		if err := m.value.ConvertFrom(other.members[other.MemberIndex(m.name)].value); err != nil {
			return err
		}
	}
	return nil
}

// SafeConvertFrom is ConvertFrom reporting success instead of an error.
func (v *AnyValue) SafeConvertFrom(other *AnyValue) bool {
	return v.ConvertFrom(other) == nil
}

// String renders a compact human-readable form, e.g. {id:"a",n:[1,2]}.
func (v *AnyValue) String() string {
	var b strings.Builder
	v.writeTo(&b)
	return b.String()
}

func (v *AnyValue) writeTo(b *strings.Builder) {
	switch v.code {
	case EmptyCode:
		b.WriteString("empty")
	case StructCode:
		b.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(m.name)
			b.WriteByte(':')
			m.value.writeTo(b)
		}
		b.WriteByte('}')
	case ArrayCode, UnboundedArrayCode:
		b.WriteByte('[')
		for i, e := range v.elements {
			if i > 0 {
				b.WriteByte(',')
			}
			e.writeTo(b)
		}
		b.WriteByte(']')
	case StringCode:
		b.WriteString(strconv.Quote(v.str))
	case BoolCode:
		b.WriteString(strconv.FormatBool(v.bits != 0))
	case Float32Code:
		b.WriteString(strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'g', -1, 32))
	case Float64Code:
		b.WriteString(strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64))
	case Char8Code, UInt8Code, UInt16Code, UInt32Code, UInt64Code:
		b.WriteString(strconv.FormatUint(v.bits, 10))
	default:
		b.WriteString(strconv.FormatInt(int64(v.bits), 10))
	}
}

// GoString implements fmt.GoStringer.
func (v *AnyValue) GoString() string {
	return fmt.Sprintf("dto.AnyValue(%s: %s)", v.Type(), v.String())
}

// ScalarBits exposes the raw scalar payload for codecs: the value bits of a
// fixed-width scalar and the string of a string scalar.
func (v *AnyValue) ScalarBits() (uint64, string) {
	return v.bits, v.str
}

// SetScalarBits overwrites the raw payload of a scalar without conversion.
// Codecs use it after reading exactly FixedSize bytes for v's code; bits
// beyond that width must already be normalised (sign-extended for signed
// kinds).
func (v *AnyValue) SetScalarBits(bits uint64, str string) error {
	if !v.IsScalar() {
		return invalidOp("SetScalarBits", ErrUnsupportedAccess, "value of type %q is not a scalar", v.TypeName())
	}
	if v.code == StringCode {
		v.str = str
		return nil
	}
	v.bits = bits
	return nil
}
