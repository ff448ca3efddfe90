package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStruct(t *testing.T) *AnyValue {
	t.Helper()
	v := NewStructValue("sample")
	require.NoError(t, v.AddMember("id", NewString("my_id")))
	require.NoError(t, v.AddMember("number", NewInt32(1729)))
	return v
}

func TestValueTypeDerivationIdempotent(t *testing.T) {
	inner := MustType(NewStructType("inner", Member{"c", Char8Type}, Member{"f", Float32Type}))
	types := []AnyType{
		EmptyType(),
		BoolType,
		StringType,
		inner,
		MustType(NewArrayType("arr", inner, 3)),
		MustType(NewArrayType("zero", Int8Type, 0)),
		MustType(NewUnboundedArrayType("list", UInt64Type)),
		MustType(NewStructType("", Member{"nested", MustType(NewArrayType("", StringType, 2))})),
	}
	for _, typ := range types {
		t.Run(typ.String(), func(t *testing.T) {
			assert.True(t, NewValue(typ).Type().Equal(typ))
		})
	}
}

func TestStructValueMembers(t *testing.T) {
	v := sampleStruct(t)
	assert.Equal(t, []string{"id", "number"}, v.MemberNames())

	err := v.AddMember("id", NewInt8(1))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	err = v.AddMember("nothing", NewEmptyValue())
	assert.ErrorIs(t, err, ErrEmptyPayload)

	err = NewInt8(1).AddMember("x", NewInt8(2))
	assert.ErrorIs(t, err, ErrNotStructCapable)
}

func TestAddMemberStoresCopy(t *testing.T) {
	member := NewInt32(1)
	v := NewStructValue("s")
	require.NoError(t, v.AddMember("a", member))
	require.NoError(t, SetAs(member, int32(2)))

	got, err := v.At("a")
	require.NoError(t, err)
	x, err := As[int32](got)
	require.NoError(t, err)
	assert.Equal(t, int32(1), x)
}

func TestArrayValueBounds(t *testing.T) {
	arr := NewValue(MustType(NewArrayType("five", Int16Type, 5)))
	assert.Equal(t, 5, arr.NumberOfElements())

	_, err := arr.At("[4]")
	require.NoError(t, err)
	_, err = arr.At("[5]")
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.True(t, IsInvalidOperation(err))

	empty := NewValue(MustType(NewArrayType("none", Int16Type, 0)))
	assert.Equal(t, 0, empty.NumberOfElements())
}

func TestNewArrayValue(t *testing.T) {
	arr, err := NewArrayValue("ints", NewInt8(1), NewInt8(2))
	require.NoError(t, err)
	assert.Equal(t, ArrayCode, arr.Code())
	assert.True(t, arr.ElementType().Equal(Int8Type))

	_, err = NewArrayValue("mixed", NewInt8(1), NewInt16(2))
	assert.True(t, IsInvalidOperation(err))

	_, err = NewArrayValue("none")
	assert.True(t, IsInvalidOperation(err))

	_, err = NewArrayValue("empties", NewEmptyValue())
	assert.ErrorIs(t, err, ErrEmptyPayload)

	for _, elems := range [][]*AnyValue{{nil}, {NewInt8(1), nil}} {
		_, err = NewArrayValue("holes", elems...)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	}

	_, err = NewUnboundedArrayValue("holes", Int8Type, NewInt8(1), nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestUnboundedArrayAppend(t *testing.T) {
	list := MustValue(NewUnboundedArrayValue("list", Int32Type, NewInt8(1), NewUInt16(2)))
	assert.Equal(t, 2, list.NumberOfElements())
	assert.True(t, list.Child(1).Type().Equal(Int32Type))

	err := list.Append(NewString("x"))
	assert.True(t, IsInvalidConversion(err))
	assert.Equal(t, 2, list.NumberOfElements())

	require.NoError(t, list.SetNumberOfElements(4))
	assert.Equal(t, 4, list.NumberOfElements())
	require.NoError(t, list.SetNumberOfElements(1))
	assert.Equal(t, 1, list.NumberOfElements())

	fixed := NewValue(MustType(NewArrayType("f", Int8Type, 1)))
	assert.Error(t, fixed.Append(NewInt8(1)))
	assert.Error(t, fixed.SetNumberOfElements(2))
}

func TestValueAt(t *testing.T) {
	inner := MustType(NewStructType("inner", Member{"value", UInt16Type}))
	outer := MustType(NewStructType("outer", Member{"list", MustType(NewArrayType("", inner, 3))}))
	v := NewValue(outer)

	ref, err := v.At("list[2].value")
	require.NoError(t, err)
	require.NoError(t, SetAs(ref, uint16(7)))

	again, err := v.At("list[2].value")
	require.NoError(t, err)
	x, err := As[uint16](again)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), x)

	_, err = v.At("nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = v.At("list.value")
	assert.ErrorIs(t, err, ErrUnsupportedAccess)
	_, err = v.At("list[oops]")
	assert.True(t, IsParseError(err))
	assert.True(t, v.Has("list[0]"))
	assert.False(t, v.Has("list[3]"))

	for _, path := range []string{"list[3]", "list[99999999999999999999].value", "list[18446744073709551616]"} {
		_, err = v.At(path)
		assert.ErrorIs(t, err, ErrOutOfBounds, path)
	}
}

func TestValueCloneIsDeep(t *testing.T) {
	v := sampleStruct(t)
	c := v.Clone()
	require.True(t, c.Equal(v))

	ref, err := c.At("number")
	require.NoError(t, err)
	require.NoError(t, SetAs(ref, int32(1)))
	assert.False(t, c.Equal(v))
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NewEmptyValue().Equal(NewEmptyValue()))
	assert.False(t, NewInt32(1).Equal(NewInt64(1)))
	assert.False(t, NewString("a").Equal(NewString("b")))
	assert.True(t, sampleStruct(t).Equal(sampleStruct(t)))

	renamed := NewStructValue("other")
	require.NoError(t, renamed.AddMember("id", NewString("my_id")))
	require.NoError(t, renamed.AddMember("number", NewInt32(1729)))
	assert.False(t, renamed.Equal(sampleStruct(t)))
}

func TestAssign(t *testing.T) {
	empty := NewEmptyValue()
	src := sampleStruct(t)
	require.NoError(t, empty.Assign(src))
	assert.True(t, empty.Equal(src))

	scalar := NewInt8(0)
	require.NoError(t, scalar.Assign(NewUInt64(100)))
	x, err := As[int8](scalar)
	require.NoError(t, err)
	assert.Equal(t, int8(100), x)

	// Cross-shape assignment fails.
	arr3 := NewValue(MustType(NewArrayType("a", Int8Type, 3)))
	arr4 := NewValue(MustType(NewArrayType("a", Int8Type, 4)))
	assert.True(t, IsInvalidConversion(arr3.Assign(arr4)))

	other := NewStructValue("sample")
	require.NoError(t, other.AddMember("id", NewString("x")))
	assert.True(t, IsInvalidConversion(src.Assign(other)))
}

func TestConvertFromStructIgnoresMemberOrder(t *testing.T) {
	dst := sampleStruct(t)
	src := NewStructValue("different")
	require.NoError(t, src.AddMember("number", NewInt64(42)))
	require.NoError(t, src.AddMember("id", NewString("other")))

	require.NoError(t, dst.ConvertFrom(src))
	assert.Equal(t, "sample", dst.TypeName())
	n, err := dst.At("number")
	require.NoError(t, err)
	assert.True(t, n.Equal(NewInt32(42)))
}

func TestConvertFromMismatch(t *testing.T) {
	dst := sampleStruct(t)
	src := NewStructValue("s")
	require.NoError(t, src.AddMember("id", NewString("x")))
	require.NoError(t, src.AddMember("count", NewInt32(1)))
	assert.True(t, IsInvalidConversion(dst.ConvertFrom(src)))
	assert.False(t, dst.SafeConvertFrom(NewInt8(1)))

	assert.True(t, IsInvalidConversion(NewEmptyValue().ConvertFrom(NewInt8(1))))
	assert.NoError(t, NewEmptyValue().ConvertFrom(NewEmptyValue()))
}

func TestConvertFromPartialFailureKeepsType(t *testing.T) {
	dst := NewValue(MustType(NewArrayType("a", Int8Type, 2)))
	src := MustValue(NewArrayValue("b", NewInt32(5), NewInt32(1000)))

	err := dst.ConvertFrom(src)
	require.True(t, IsInvalidConversion(err))
	assert.True(t, dst.Type().Equal(MustType(NewArrayType("a", Int8Type, 2))))
	first, err := As[int8](dst.Child(0))
	require.NoError(t, err)
	assert.Equal(t, int8(5), first)
}

func TestConvertFromUnboundedReplacesElements(t *testing.T) {
	dst := MustValue(NewUnboundedArrayValue("l", Float64Type, NewInt8(9)))
	src := MustValue(NewArrayValue("src", NewInt16(1), NewInt16(2), NewInt16(3)))
	require.NoError(t, dst.ConvertFrom(src))
	assert.Equal(t, 3, dst.NumberOfElements())
	assert.True(t, dst.Child(2).Equal(NewFloat64(3)))
}

func TestValueString(t *testing.T) {
	v := sampleStruct(t)
	require.NoError(t, v.AddMember("list", MustValue(NewArrayValue("", NewBool(true), NewBool(false)))))
	assert.Equal(t, `{id:"my_id",number:1729,list:[true,false]}`, v.String())
	assert.Equal(t, "-3", NewInt8(-3).String())
	assert.Equal(t, "1.5", NewFloat32(1.5).String())
}
