package ctype

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/testutil"
)

// sensorFrame mirrors testutil.SensorFrameType in packed C layout.
type sensorFrame struct {
	FrameID uint32
	X, Y    float64
	Samples [4]int16
	Label   [64]byte
	Corners [2]float32
	Active  bool
	Code    uint8
}

func TestSize(t *testing.T) {
	size, err := Size(testutil.SensorFrameType())
	require.NoError(t, err)
	assert.Equal(t, 102, size)
	assert.Equal(t, binary.Size(sensorFrame{}), size)

	size, err = Size(testutil.SensorFrameType(), WithStringSize(16))
	require.NoError(t, err)
	assert.Equal(t, 54, size)

	size, err = Size(dto.EmptyType())
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	_, err = Size(testutil.TrackType())
	assert.True(t, dto.IsSerializeError(err))
}

func TestToBytesLayout(t *testing.T) {
	v := dto.NewStructValue("s")
	require.NoError(t, v.AddMember("a", dto.NewUInt16(0x0102)))
	require.NoError(t, v.AddMember("s", dto.NewString("hi")))
	require.NoError(t, v.AddMember("b", dto.NewInt8(-1)))

	image, err := ToBytes(v, WithStringSize(4))
	require.NoError(t, err)
	require.Len(t, image, 7)

	assert.Equal(t, uint16(0x0102), binary.NativeEndian.Uint16(image[:2]))
	assert.Equal(t, []byte{'h', 'i', 0, 0}, image[2:6])
	assert.Equal(t, byte(0xFF), image[6])
}

func TestRoundTrip(t *testing.T) {
	src := testutil.SensorFrameValue()
	image, err := ToBytes(src)
	require.NoError(t, err)

	dst := dto.NewValue(testutil.SensorFrameType())
	require.NoError(t, AssignFromCType(dst, image))
	assert.True(t, dst.Equal(src))
}

func TestOversizedStringFails(t *testing.T) {
	v := dto.NewStructValue("s")
	require.NoError(t, v.AddMember("name", dto.NewString(strings.Repeat("x", DefaultStringSize))))

	_, err := ToBytes(v)
	require.Error(t, err)
	assert.True(t, dto.IsSerializeError(err))

	dst := bytes.Repeat([]byte{0xAA}, DefaultStringSize)
	err = AssignToCType(v, dst)
	assert.True(t, dto.IsSerializeError(err))
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, DefaultStringSize), dst, "destination must be untouched")

	fits := dto.NewStructValue("s")
	require.NoError(t, fits.AddMember("name", dto.NewString(strings.Repeat("x", DefaultStringSize-1))))
	_, err = ToBytes(fits)
	assert.NoError(t, err)
}

func TestEmbeddedNULFails(t *testing.T) {
	_, err := ToBytes(dto.NewString("ab\x00cd"), WithStringSize(8))
	require.Error(t, err)
	assert.True(t, dto.IsSerializeError(err), "got %v", err)

	dst := bytes.Repeat([]byte{0xAA}, 8)
	assert.True(t, dto.IsSerializeError(AssignToCType(dto.NewString("\x00"), dst, WithStringSize(8))))
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, 8), dst, "destination must be untouched")

	image, err := ToBytes(dto.NewString("abcd"), WithStringSize(8))
	require.NoError(t, err)
	back := dto.NewString("")
	require.NoError(t, AssignFromCType(back, image, WithStringSize(8)))
	assert.True(t, back.Equal(dto.NewString("abcd")))
}

func TestUnterminatedSlotFails(t *testing.T) {
	v := dto.NewValue(dto.MustType(dto.NewStructType("s",
		dto.Member{Name: "n", Type: dto.Int32Type},
		dto.Member{Name: "name", Type: dto.StringType},
	)))
	require.NoError(t, dto.SetAs(v.Child(0), int32(7)))
	before := v.Clone()

	src := append([]byte{1, 0, 0, 0}, []byte("abcd")...)
	err := AssignFromCType(v, src, WithStringSize(4))
	require.Error(t, err)
	assert.True(t, dto.IsParseError(err))
	assert.True(t, v.Equal(before), "failed decode must not modify the value")
	assert.False(t, SafeAssignFromCType(v, src, WithStringSize(4)))

	src[7] = 0
	require.True(t, SafeAssignFromCType(v, src, WithStringSize(4)))
	name, err := dto.As[string](v.Child(1))
	require.NoError(t, err)
	assert.Equal(t, "abc", name)
}

func TestSizeMismatchFails(t *testing.T) {
	v := testutil.SensorFrameValue()

	err := AssignToCType(v, make([]byte, 101))
	assert.True(t, dto.IsSerializeError(err))

	before := v.Clone()
	err = AssignFromCType(v, make([]byte, 103))
	assert.True(t, dto.IsParseError(err))
	assert.True(t, v.Equal(before))
}

func TestUnboundedArrayValueFails(t *testing.T) {
	_, err := ToBytes(testutil.TrackValue())
	assert.True(t, dto.IsSerializeError(err))
}

func TestGoStructBridge(t *testing.T) {
	var frame sensorFrame
	require.NoError(t, ToStruct(testutil.SensorFrameValue(), &frame))

	assert.Equal(t, uint32(300), frame.FrameID)
	assert.Equal(t, -2.25, frame.Y)
	assert.Equal(t, [4]int16{-1, 2, -300, 32767}, frame.Samples)
	assert.Equal(t, "north-east", string(bytes.TrimRight(frame.Label[:], "\x00")))
	assert.Equal(t, [2]float32{0.5, -0.5}, frame.Corners)
	assert.True(t, frame.Active)
	assert.Equal(t, uint8('N'), frame.Code)

	frame.FrameID = 301
	v := dto.NewValue(testutil.SensorFrameType())
	require.NoError(t, FromStruct(v, &frame))
	id, err := v.At("frameId")
	require.NoError(t, err)
	assert.True(t, id.Equal(dto.NewUInt32(301)))

	var wrong struct{ A uint8 }
	err = ToStruct(testutil.SensorFrameValue(), &wrong)
	assert.True(t, dto.IsSerializeError(err))
}

func TestHeader(t *testing.T) {
	header, err := Header(testutil.SensorFrameType(), "sensor_frame_t")
	require.NoError(t, err)
	testutil.AssertGolden(t, "sensor_frame_header", []byte(header))
}

func TestHeaderRejects(t *testing.T) {
	_, err := Header(dto.Int32Type, "x_t")
	assert.True(t, dto.IsSerializeError(err))

	_, err = Header(testutil.TrackType(), "")
	assert.True(t, dto.IsSerializeError(err))

	clash := dto.MustType(dto.NewStructType("outer",
		dto.Member{Name: "a", Type: dto.MustType(dto.NewStructType("p", dto.Member{Name: "x", Type: dto.Int8Type}))},
		dto.Member{Name: "b", Type: dto.MustType(dto.NewStructType("p", dto.Member{Name: "y", Type: dto.Int8Type}))},
	))
	_, err = Header(clash, "")
	assert.True(t, dto.IsSerializeError(err))

	tests := []struct {
		name    string
		members []dto.Member
		typedef string
	}{
		{"snake case collision", []dto.Member{
			{Name: "fooBar", Type: dto.Int32Type},
			{Name: "foo_bar", Type: dto.Int32Type},
		}, ""},
		{"leading digit", []dto.Member{{Name: "1st", Type: dto.Int8Type}}, ""},
		{"keyword", []dto.Member{{Name: "int", Type: dto.Int8Type}}, ""},
		{"non ascii", []dto.Member{{Name: "température", Type: dto.Int8Type}}, ""},
		{"bad typedef", []dto.Member{{Name: "a", Type: dto.Int8Type}}, "my-type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := dto.MustType(dto.NewStructType("rec", tt.members...))
			header, err := Header(typ, tt.typedef)
			require.Error(t, err, "header:\n%s", header)
			assert.True(t, dto.IsSerializeError(err), "got %v", err)
		})
	}
}

func TestHeaderReusesNamedTypes(t *testing.T) {
	typ := dto.MustType(dto.NewStructType("segment",
		dto.Member{Name: "from", Type: testutil.PointType()},
		dto.Member{Name: "to", Type: testutil.PointType()},
	))
	header, err := Header(typ, "")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(header, "} point_t;"))
	assert.Contains(t, header, "    point_t from;\n    point_t to;\n} segment_t;")
}

func TestTypedefName(t *testing.T) {
	assert.Equal(t, "sensor_frame_t", TypedefName("sensorFrame"))
	assert.Equal(t, "point_t", TypedefName("point"))
	assert.Equal(t, "value_t", TypedefName(""))

	header, err := Header(testutil.IDNumberType(), "")
	require.NoError(t, err)
	assert.Contains(t, header, "} value_t;")
}
