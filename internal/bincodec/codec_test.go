package bincodec

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/supdto/internal/dto"
)

func allScalars(t *testing.T) *dto.AnyValue {
	t.Helper()
	v := dto.NewStructValue("scalars")
	for _, m := range []struct {
		name  string
		value *dto.AnyValue
	}{
		{"b", dto.NewBool(true)},
		{"c", dto.NewChar8('z')},
		{"i8", dto.NewInt8(math.MinInt8)},
		{"u8", dto.NewUInt8(math.MaxUint8)},
		{"i16", dto.NewInt16(-12345)},
		{"u16", dto.NewUInt16(54321)},
		{"i32", dto.NewInt32(math.MinInt32)},
		{"u32", dto.NewUInt32(300)},
		{"i64", dto.NewInt64(math.MinInt64)},
		{"u64", dto.NewUInt64(math.MaxUint64)},
		{"f32", dto.NewFloat32(-1.25)},
		{"f64", dto.NewFloat64(math.Pi)},
		{"s", dto.NewString("hello")},
	} {
		require.NoError(t, v.AddMember(m.name, m.value))
	}
	return v
}

func nestedValue(t *testing.T) *dto.AnyValue {
	t.Helper()
	point := dto.NewStructValue("point")
	require.NoError(t, point.AddMember("x", dto.NewFloat64(1)))
	require.NoError(t, point.AddMember("label", dto.NewString("p")))

	path := dto.MustValue(dto.NewUnboundedArrayValue("path", point.Type(), point, point, point))
	grid := dto.MustValue(dto.NewArrayValue("row",
		dto.MustValue(dto.NewArrayValue("", dto.NewInt16(1), dto.NewInt16(2))),
		dto.MustValue(dto.NewArrayValue("", dto.NewInt16(3), dto.NewInt16(4))),
	))

	v := dto.NewStructValue("nested")
	require.NoError(t, v.AddMember("scalars", allScalars(t)))
	require.NoError(t, v.AddMember("path", path))
	require.NoError(t, v.AddMember("grid", grid))
	require.NoError(t, v.AddMember("none", dto.MustValue(dto.NewUnboundedArrayValue("", dto.StringType))))
	return v
}

func TestMarshalUInt32(t *testing.T) {
	data, err := Marshal(dto.NewUInt32(300))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2C, 0x01, 0x00, 0x00}, data)

	v, err := Unmarshal(dto.UInt32Type, data)
	require.NoError(t, err)
	x, err := dto.As[uint32](v)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), x)
}

func TestSizePrefix(t *testing.T) {
	tests := []struct {
		name     string
		n        uint64
		expected []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"max short", 253, []byte{0xFD}},
		{"reserved marker value", 254, []byte{0xFF, 0xFE, 0, 0, 0, 0, 0, 0, 0}},
		{"wide", 300, []byte{0xFF, 0x2C, 0x01, 0, 0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendSize(nil, tt.n)
			assert.Equal(t, tt.expected, got)

			r := &reader{op: "test", data: got}
			n, err := r.size()
			require.NoError(t, err)
			assert.Equal(t, tt.n, n)
			assert.NoError(t, r.done())
		})
	}
}

func TestMarshalString(t *testing.T) {
	data, err := Marshal(dto.NewString("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 'a', 'b', 'c'}, data)

	long := string(bytes.Repeat([]byte{'x'}, 300))
	data, err = Marshal(dto.NewString(long))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x2C, 0x01, 0, 0, 0, 0, 0, 0}, data[:9])
	assert.Len(t, data, 9+300)

	v, err := Unmarshal(dto.StringType, data)
	require.NoError(t, err)
	assert.True(t, v.Equal(dto.NewString(long)))
}

func TestPlainRoundTrip(t *testing.T) {
	for _, v := range []*dto.AnyValue{
		dto.NewEmptyValue(),
		dto.NewInt8(-1),
		allScalars(t),
		nestedValue(t),
		dto.NewValue(dto.MustType(dto.NewArrayType("zero", dto.Int32Type, 0))),
	} {
		t.Run(v.Type().String(), func(t *testing.T) {
			data, err := Marshal(v)
			require.NoError(t, err)

			got, err := Unmarshal(v.Type(), data)
			require.NoError(t, err)
			assert.True(t, got.Equal(v), "got %s want %s", got, v)
		})
	}
}

func TestPlainLayoutHasNoFraming(t *testing.T) {
	v := dto.NewStructValue("s")
	require.NoError(t, v.AddMember("a", dto.NewInt16(-2)))
	require.NoError(t, v.AddMember("list", dto.MustValue(dto.NewUnboundedArrayValue("", dto.UInt8Type, dto.NewUInt8(7), dto.NewUInt8(8)))))

	data, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0xFF, 0x02, 0x07, 0x08}, data)
}

func TestSelfDescribingLayout(t *testing.T) {
	data, err := MarshalSelfDescribing(dto.NewUInt32(300))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x08, 0x2C, 0x01, 0x00, 0x00}, data)

	v := dto.NewStructValue("sample")
	require.NoError(t, v.AddMember("id", dto.NewString("a")))
	require.NoError(t, v.AddMember("n", dto.NewInt8(-1)))
	data, err = MarshalSelfDescribing(v)
	require.NoError(t, err)

	expected := []byte{
		0x10, 6, 's', 'a', 'm', 'p', 'l', 'e', 2,
		2, 'i', 'd', 0x0D,
		1, 'n', 0x03,
		0x11,
		0x0D, 1, 'a', 0x00,
		0x03, 0xFF,
	}
	assert.Equal(t, expected, data)
}

func TestSelfDescribingRoundTrip(t *testing.T) {
	for _, v := range []*dto.AnyValue{
		dto.NewEmptyValue(),
		dto.NewString(""),
		allScalars(t),
		nestedValue(t),
	} {
		t.Run(v.Type().String(), func(t *testing.T) {
			data, err := MarshalSelfDescribing(v)
			require.NoError(t, err)

			got, err := UnmarshalSelfDescribing(data)
			require.NoError(t, err)
			assert.True(t, got.Equal(v))
			assert.True(t, got.Type().Equal(v.Type()))
		})
	}
}

func TestTypeRoundTrip(t *testing.T) {
	for _, typ := range []dto.AnyType{
		dto.EmptyType(),
		dto.Float32Type,
		dto.MustType(dto.NewStructType("none")),
		nestedValue(t).Type(),
		dto.MustType(dto.NewArrayType("big", dto.BoolType, 1000)),
	} {
		t.Run(typ.String(), func(t *testing.T) {
			data, err := MarshalType(typ)
			require.NoError(t, err)
			got, err := UnmarshalType(data)
			require.NoError(t, err)
			assert.True(t, got.Equal(typ))
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	good, err := MarshalSelfDescribing(dto.NewString("ab"))
	require.NoError(t, err)
	// type 0x0D, token 0x0D, size 2, 'a', 'b', NUL
	require.Equal(t, []byte{0x0D, 0x0D, 2, 'a', 'b', 0}, good)

	unbounded := dto.MustType(dto.NewUnboundedArrayType("", dto.Int32Type))

	tests := []struct {
		name   string
		decode func() error
	}{
		{"exhausted scalar", func() error { _, err := Unmarshal(dto.Int32Type, []byte{1, 2, 3}); return err }},
		{"exhausted string", func() error { _, err := Unmarshal(dto.StringType, []byte{5, 'a'}); return err }},
		{"trailing bytes", func() error { _, err := Unmarshal(dto.Int8Type, []byte{1, 2}); return err }},
		{"reserved size marker", func() error { _, err := Unmarshal(dto.StringType, []byte{0xFE}); return err }},
		{"count beyond input", func() error { _, err := Unmarshal(unbounded, []byte{16, 0, 0, 0, 0}); return err }},
		{"huge count", func() error {
			_, err := Unmarshal(unbounded, []byte{0xFF, 0, 0, 0, 0, 0, 1, 0, 0})
			return err
		}},
		{"unknown type token", func() error { _, err := UnmarshalType([]byte{0x30}); return err }},
		{"missing struct end", func() error { _, err := UnmarshalType([]byte{0x10, 0, 0, 0x13}); return err }},
		{"empty member type", func() error { _, err := UnmarshalType([]byte{0x10, 0, 1, 1, 'a', 0x00, 0x11}); return err }},
		{"value token mismatch", func() error {
			bad := bytes.Clone(good)
			bad[1] = byte(dto.Int8Code)
			_, err := UnmarshalSelfDescribing(bad)
			return err
		}},
		{"missing terminator", func() error {
			bad := bytes.Clone(good)
			bad[5] = 'c'
			_, err := UnmarshalSelfDescribing(bad)
			return err
		}},
		{"wrong string length", func() error {
			bad := bytes.Clone(good)
			bad[2] = 1
			_, err := UnmarshalSelfDescribing(bad)
			return err
		}},
		{"truncated", func() error { _, err := UnmarshalSelfDescribing(good[:4]); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode()
			require.Error(t, err)
			assert.True(t, dto.IsParseError(err), "got %v", err)
		})
	}
}

func TestUnmarshalIntoIsAllOrNothing(t *testing.T) {
	v := dto.NewStructValue("pair")
	require.NoError(t, v.AddMember("a", dto.NewInt8(1)))
	require.NoError(t, v.AddMember("b", dto.NewInt8(2)))
	before := v.Clone()

	err := UnmarshalInto(v, []byte{9})
	require.Error(t, err)
	assert.True(t, v.Equal(before))

	require.NoError(t, UnmarshalInto(v, []byte{9, 10}))
	b, err := v.At("b")
	require.NoError(t, err)
	assert.True(t, b.Equal(dto.NewInt8(10)))
}

func TestMinWireSize(t *testing.T) {
	inner := dto.MustType(dto.NewStructType("", dto.Member{Name: "a", Type: dto.Int32Type}, dto.Member{Name: "s", Type: dto.StringType}))
	arr := dto.MustType(dto.NewArrayType("", inner, 3))
	list := dto.MustType(dto.NewUnboundedArrayType("", inner))

	assert.Equal(t, uint64(5), MinWireSize(inner, false))
	assert.Equal(t, uint64(8), MinWireSize(inner, true))
	assert.Equal(t, uint64(15), MinWireSize(arr, false))
	assert.Equal(t, uint64(1), MinWireSize(list, false))

	huge := dto.MustType(dto.NewArrayType("", dto.MustType(dto.NewArrayType("", dto.UInt64Type, math.MaxInt32)), math.MaxInt32))
	assert.Equal(t, uint64(math.MaxUint64), MinWireSize(huge, false))
}

func TestDigest(t *testing.T) {
	a, err := Digest(nestedValue(t))
	require.NoError(t, err)
	b, err := Digest(nestedValue(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	i32, err := Digest(dto.NewInt32(1))
	require.NoError(t, err)
	i64, err := Digest(dto.NewInt64(1))
	require.NoError(t, err)
	assert.NotEqual(t, i32, i64)

	assert.NotEqual(t, HashWithDomain("a", []byte("bc")), HashWithDomain("ab", []byte("c")))
}

func TestEmptyStructArraysAreBounded(t *testing.T) {
	empty := dto.MustType(dto.NewStructType(""))

	huge := dto.MustType(dto.NewArrayType("", empty, 1<<24))
	section, err := MarshalType(huge)
	require.NoError(t, err)
	require.Less(t, len(section), 32)

	_, err = UnmarshalSelfDescribing(section)
	require.Error(t, err)
	assert.True(t, dto.IsParseError(err), "got %v", err)

	_, err = Unmarshal(huge, nil)
	assert.True(t, dto.IsParseError(err), "got %v", err)

	unbounded := dto.MustType(dto.NewUnboundedArrayType("", empty))
	_, err = Unmarshal(unbounded, appendSize(nil, 1<<30))
	require.Error(t, err)
	assert.True(t, dto.IsParseError(err), "got %v", err)

	small := dto.NewValue(dto.MustType(dto.NewArrayType("", empty, 3)))
	data, err := MarshalSelfDescribing(small)
	require.NoError(t, err)
	back, err := UnmarshalSelfDescribing(data)
	require.NoError(t, err)
	assert.True(t, back.Equal(small))

	few := dto.NewValue(unbounded)
	require.NoError(t, few.SetNumberOfElements(100))
	data, err = Marshal(few)
	require.NoError(t, err)
	back, err = Unmarshal(unbounded, data)
	require.NoError(t, err)
	assert.Equal(t, 100, back.NumberOfElements())
}
