package dto

// TypeCode discriminates the AnyType/AnyValue variants and the scalar kinds.
type TypeCode uint8

const (
	EmptyCode TypeCode = iota
	BoolCode
	Char8Code
	Int8Code
	UInt8Code
	Int16Code
	UInt16Code
	Int32Code
	UInt32Code
	Int64Code
	UInt64Code
	Float32Code
	Float64Code
	StringCode
	StructCode
	ArrayCode
	UnboundedArrayCode
)

// Leaf type names as they appear on the wire.
const (
	EmptyTypeName   = "empty"
	BoolTypeName    = "bool"
	Char8TypeName   = "char8"
	Int8TypeName    = "int8"
	UInt8TypeName   = "uint8"
	Int16TypeName   = "int16"
	UInt16TypeName  = "uint16"
	Int32TypeName   = "int32"
	UInt32TypeName  = "uint32"
	Int64TypeName   = "int64"
	UInt64TypeName  = "uint64"
	Float32TypeName = "float32"
	Float64TypeName = "float64"
	StringTypeName  = "string"
)

// leafNames is indexed by TypeCode for the 14 leaf codes.
var leafNames = [...]string{
	EmptyCode:   EmptyTypeName,
	BoolCode:    BoolTypeName,
	Char8Code:   Char8TypeName,
	Int8Code:    Int8TypeName,
	UInt8Code:   UInt8TypeName,
	Int16Code:   Int16TypeName,
	UInt16Code:  UInt16TypeName,
	Int32Code:   Int32TypeName,
	UInt32Code:  UInt32TypeName,
	Int64Code:   Int64TypeName,
	UInt64Code:  UInt64TypeName,
	Float32Code: Float32TypeName,
	Float64Code: Float64TypeName,
	StringCode:  StringTypeName,
}

var leafCodes = func() map[string]TypeCode {
	m := make(map[string]TypeCode, len(leafNames))
	for code, name := range leafNames {
		m[name] = TypeCode(code)
	}
	return m
}()

// scalarSizes holds the fixed byte width of each numeric scalar. Strings and
// composite codes have no fixed width and map to 0.
var scalarSizes = [...]int{
	BoolCode:    1,
	Char8Code:   1,
	Int8Code:    1,
	UInt8Code:   1,
	Int16Code:   2,
	UInt16Code:  2,
	Int32Code:   4,
	UInt32Code:  4,
	Int64Code:   8,
	UInt64Code:  8,
	Float32Code: 4,
	Float64Code: 8,
	StringCode:  0,
}

// String returns the leaf name for leaf codes and a descriptive name for the
// composite codes.
func (c TypeCode) String() string {
	switch c {
	case StructCode:
		return "struct"
	case ArrayCode:
		return "array"
	case UnboundedArrayCode:
		return "unbounded_array"
	}
	if int(c) < len(leafNames) {
		return leafNames[c]
	}
	return "unknown"
}

// IsScalar reports whether c is one of the 13 scalar leaf codes.
func (c TypeCode) IsScalar() bool {
	return c >= BoolCode && c <= StringCode
}

// IsArray reports whether c is a fixed or unbounded array code.
func (c TypeCode) IsArray() bool {
	return c == ArrayCode || c == UnboundedArrayCode
}

// IsNumeric reports whether c is a fixed-width scalar (everything except
// string).
func (c TypeCode) IsNumeric() bool {
	return c >= BoolCode && c < StringCode
}

// FixedSize returns the wire width in bytes of a fixed-width scalar, or 0.
func (c TypeCode) FixedSize() int {
	if int(c) < len(scalarSizes) {
		return scalarSizes[c]
	}
	return 0
}

// LeafCode maps a leaf type name ("int32", "empty", ...) to its code.
func LeafCode(name string) (TypeCode, bool) {
	code, ok := leafCodes[name]
	return code, ok
}

// LeafNames returns the 14 leaf type names in code order.
func LeafNames() []string {
	names := make([]string, len(leafNames))
	copy(names, leafNames[:])
	return names
}
