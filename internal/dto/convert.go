package dto

import (
	"math"
)

// Scalar is the set of Go types that map one-to-one onto the scalar kinds.
type Scalar interface {
	bool | Char8 | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64 | string
}

type intRange struct {
	min int64
	max int64
}

var signedRanges = map[TypeCode]intRange{
	Int8Code:  {math.MinInt8, math.MaxInt8},
	Int16Code: {math.MinInt16, math.MaxInt16},
	Int32Code: {math.MinInt32, math.MaxInt32},
	Int64Code: {math.MinInt64, math.MaxInt64},
}

// char8 converts as an unsigned 8-bit integer.
var unsignedMax = map[TypeCode]uint64{
	Char8Code:  math.MaxUint8,
	UInt8Code:  math.MaxUint8,
	UInt16Code: math.MaxUint16,
	UInt32Code: math.MaxUint32,
	UInt64Code: math.MaxUint64,
}

// number is a scalar source normalised to one of four families.
type number struct {
	family byte // 'b', 'i', 'u', 'f'
	i      int64
	u      uint64
	f      float64
}

func decodeNumber(code TypeCode, bits uint64) number {
	switch code {
	case BoolCode:
		return number{family: 'b', u: bits}
	case Float32Code:
		return number{family: 'f', f: float64(math.Float32frombits(uint32(bits)))}
	case Float64Code:
		return number{family: 'f', f: math.Float64frombits(bits)}
	}
	if _, ok := signedRanges[code]; ok {
		return number{family: 'i', i: int64(bits)}
	}
	return number{family: 'u', u: bits}
}

// convertPayload converts a scalar payload from src to dst. It is pure: on
// failure nothing has been written anywhere.
func convertPayload(dst, src TypeCode, bits uint64, str string) (uint64, string, error) {
	if !dst.IsScalar() || !src.IsScalar() {
		return 0, "", invalidConversion("Convert", "%s to %s is not a scalar conversion", src, dst)
	}
	if dst == StringCode || src == StringCode {
		if dst != src {
			return 0, "", invalidConversion("Convert", "%s to %s", src, dst)
		}
		return 0, str, nil
	}
	n := decodeNumber(src, bits)

	switch dst {
	case BoolCode:
		return toBool(n, src)
	case Float32Code:
		f := n.float()
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return 0, "", invalidConversion("Convert", "%g out of float32 range", f)
		}
		return uint64(math.Float32bits(float32(f))), "", nil
	case Float64Code:
		return math.Float64bits(n.float()), "", nil
	}
	if r, ok := signedRanges[dst]; ok {
		return toSigned(n, r, src, dst)
	}
	return toUnsigned(n, unsignedMax[dst], src, dst)
}

func (n number) float() float64 {
	switch n.family {
	case 'i':
		return float64(n.i)
	case 'f':
		return n.f
	}
	return float64(n.u)
}

func toBool(n number, src TypeCode) (uint64, string, error) {
	switch n.family {
	case 'b', 'u':
		return boolBits(n.u != 0), "", nil
	case 'i':
		return boolBits(n.i != 0), "", nil
	}
	t := math.Trunc(n.f)
	if t != 0 && t != 1 {
		return 0, "", invalidConversion("Convert", "%s %g out of bool range", src, n.f)
	}
	return boolBits(t == 1), "", nil
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func toSigned(n number, r intRange, src, dst TypeCode) (uint64, string, error) {
	switch n.family {
	case 'b':
		return n.u, "", nil
	case 'i':
		if n.i < r.min || n.i > r.max {
			return 0, "", invalidConversion("Convert", "%s %d out of %s range", src, n.i, dst)
		}
		return uint64(n.i), "", nil
	case 'u':
		if n.u > uint64(r.max) {
			return 0, "", invalidConversion("Convert", "%s %d out of %s range", src, n.u, dst)
		}
		return n.u, "", nil
	}
	t := math.Trunc(n.f)
	// float64(max)+1 is exact for every width up to int64, where it rounds to 2^63.
	if math.IsNaN(t) || t < float64(r.min) || t >= float64(r.max)+1 {
		return 0, "", invalidConversion("Convert", "%s %g out of %s range", src, n.f, dst)
	}
	return uint64(int64(t)), "", nil
}

func toUnsigned(n number, max uint64, src, dst TypeCode) (uint64, string, error) {
	switch n.family {
	case 'b':
		return n.u, "", nil
	case 'i':
		if n.i < 0 || uint64(n.i) > max {
			return 0, "", invalidConversion("Convert", "%s %d out of %s range", src, n.i, dst)
		}
		return uint64(n.i), "", nil
	case 'u':
		if n.u > max {
			return 0, "", invalidConversion("Convert", "%s %d out of %s range", src, n.u, dst)
		}
		return n.u, "", nil
	}
	t := math.Trunc(n.f)
	if math.IsNaN(t) || t < 0 || t >= float64(max)+1 {
		return 0, "", invalidConversion("Convert", "%s %g out of %s range", src, n.f, dst)
	}
	return uint64(t), "", nil
}

// CodeOf returns the scalar code matching the Go type T.
func CodeOf[T Scalar]() TypeCode {
	var zero T
	switch any(zero).(type) {
	case bool:
		return BoolCode
	case Char8:
		return Char8Code
	case int8:
		return Int8Code
	case uint8:
		return UInt8Code
	case int16:
		return Int16Code
	case uint16:
		return UInt16Code
	case int32:
		return Int32Code
	case uint32:
		return UInt32Code
	case int64:
		return Int64Code
	case uint64:
		return UInt64Code
	case float32:
		return Float32Code
	case float64:
		return Float64Code
	}
	return StringCode
}

func toPayload[T Scalar](x T) (TypeCode, uint64, string) {
	switch v := any(x).(type) {
	case bool:
		return BoolCode, boolBits(v), ""
	case Char8:
		return Char8Code, uint64(v), ""
	case int8:
		return Int8Code, uint64(int64(v)), ""
	case uint8:
		return UInt8Code, uint64(v), ""
	case int16:
		return Int16Code, uint64(int64(v)), ""
	case uint16:
		return UInt16Code, uint64(v), ""
	case int32:
		return Int32Code, uint64(int64(v)), ""
	case uint32:
		return UInt32Code, uint64(v), ""
	case int64:
		return Int64Code, uint64(v), ""
	case uint64:
		return UInt64Code, v, ""
	case float32:
		return Float32Code, uint64(math.Float32bits(v)), ""
	case float64:
		return Float64Code, math.Float64bits(v), ""
	case string:
		return StringCode, 0, v
	}
	panic("unreachable")
}

func fromPayload[T Scalar](bits uint64, str string) T {
	var out T
	switch p := any(&out).(type) {
	case *bool:
		*p = bits != 0
	case *Char8:
		*p = Char8(bits)
	case *int8:
		*p = int8(bits)
	case *uint8:
		*p = uint8(bits)
	case *int16:
		*p = int16(bits)
	case *uint16:
		*p = uint16(bits)
	case *int32:
		*p = int32(bits)
	case *uint32:
		*p = uint32(bits)
	case *int64:
		*p = int64(bits)
	case *uint64:
		*p = bits
	case *float32:
		*p = math.Float32frombits(uint32(bits))
	case *float64:
		*p = math.Float64frombits(bits)
	case *string:
		*p = str
	}
	return out
}

// NewScalar creates a scalar value from a Go value.
func NewScalar[T Scalar](x T) *AnyValue {
	code, bits, str := toPayload(x)
	return &AnyValue{code: code, bits: bits, str: str}
}

// As reads a scalar value as T, converting with range checks. Strings only
// read as string and only from string.
func As[T Scalar](v *AnyValue) (T, error) {
	var zero T
	if v == nil || !v.IsScalar() {
		kind := "nil"
		if v != nil {
			kind = v.code.String()
		}
		return zero, invalidConversion("As", "%s value is not a scalar", kind)
	}
	bits, str, err := convertPayload(CodeOf[T](), v.code, v.bits, v.str)
	if err != nil {
		return zero, err
	}
	return fromPayload[T](bits, str), nil
}

// TryAs is As reporting success instead of an error.
func TryAs[T Scalar](v *AnyValue) (T, bool) {
	x, err := As[T](v)
	return x, err == nil
}

// SetAs converts x into the scalar v, keeping v's type.
func SetAs[T Scalar](v *AnyValue, x T) error {
	return v.ConvertFrom(NewScalar(x))
}

// Convert casts x to To with the same rules as ConvertFrom.
func Convert[To, From Scalar](x From) (To, error) {
	var zero To
	code, bits, str := toPayload(x)
	out, outStr, err := convertPayload(CodeOf[To](), code, bits, str)
	if err != nil {
		return zero, err
	}
	return fromPayload[To](out, outStr), nil
}
