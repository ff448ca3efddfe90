package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/testutil"
)

func TestComposeIDNumber(t *testing.T) {
	c := New()
	require.NoError(t, c.StartStruct(""))
	require.NoError(t, c.StartField("id"))
	require.NoError(t, c.AddString("my_id"))
	require.NoError(t, c.EndField())
	require.NoError(t, c.AddMember("number", dto.NewInt32(1729)))
	require.NoError(t, c.EndStruct())

	v, err := c.Result()
	require.NoError(t, err)
	assert.True(t, v.Equal(testutil.IDNumberValue()))
	assert.Equal(t, 0, c.Depth())
}

func TestComposeSensorFrame(t *testing.T) {
	c := New()
	require.NoError(t, c.StartStruct("sensorFrame"))
	require.NoError(t, c.AddMember("frameId", dto.NewUInt32(300)))

	require.NoError(t, c.StartField("position"))
	require.NoError(t, c.StartStruct("point"))
	require.NoError(t, c.AddMember("x", dto.NewFloat64(1.5)))
	require.NoError(t, c.AddMember("y", dto.NewFloat64(-2.25)))
	require.NoError(t, c.EndStruct())
	require.NoError(t, c.EndField())

	require.NoError(t, c.StartField("samples"))
	require.NoError(t, c.StartArray(""))
	for _, s := range []int16{-1, 2, -300, 32767} {
		require.NoError(t, c.StartArrayElement())
		require.NoError(t, c.AddInt16(s))
		require.NoError(t, c.EndArrayElement())
	}
	require.NoError(t, c.EndArray())
	require.NoError(t, c.EndField())

	require.NoError(t, c.StartField("label"))
	require.NoError(t, c.AddString("north-east"))
	require.NoError(t, c.EndField())

	require.NoError(t, c.StartField("corners"))
	require.NoError(t, c.StartArray(""))
	for _, dx := range []float32{0.5, -0.5} {
		require.NoError(t, c.StartArrayElement())
		require.NoError(t, c.StartStruct(""))
		require.NoError(t, c.StartField("dx"))
		require.NoError(t, c.AddFloat32(dx))
		require.NoError(t, c.EndField())
		require.NoError(t, c.EndStruct())
		require.NoError(t, c.EndArrayElement())
	}
	require.NoError(t, c.EndArray())
	require.NoError(t, c.EndField())

	require.NoError(t, c.StartField("active"))
	require.NoError(t, c.AddBool(true))
	require.NoError(t, c.EndField())
	require.NoError(t, c.StartField("code"))
	require.NoError(t, c.AddChar8('N'))
	require.NoError(t, c.EndField())
	require.NoError(t, c.EndStruct())

	v, err := c.Result()
	require.NoError(t, err)
	assert.True(t, v.Equal(testutil.SensorFrameValue()))
	assert.True(t, v.Type().Equal(testutil.SensorFrameType()))
}

func TestComposeScalarsAtRoot(t *testing.T) {
	adders := map[string]func(*Composer) error{
		"bool":    func(c *Composer) error { return c.AddBool(true) },
		"char8":   func(c *Composer) error { return c.AddChar8('x') },
		"int8":    func(c *Composer) error { return c.AddInt8(-8) },
		"uint8":   func(c *Composer) error { return c.AddUInt8(8) },
		"int16":   func(c *Composer) error { return c.AddInt16(-16) },
		"uint16":  func(c *Composer) error { return c.AddUInt16(16) },
		"int32":   func(c *Composer) error { return c.AddInt32(-32) },
		"uint32":  func(c *Composer) error { return c.AddUInt32(32) },
		"int64":   func(c *Composer) error { return c.AddInt64(-64) },
		"uint64":  func(c *Composer) error { return c.AddUInt64(64) },
		"float32": func(c *Composer) error { return c.AddFloat32(3.5) },
		"float64": func(c *Composer) error { return c.AddFloat64(6.5) },
		"string":  func(c *Composer) error { return c.AddString("s") },
	}
	for name, add := range adders {
		t.Run(name, func(t *testing.T) {
			c := New()
			require.NoError(t, add(c))
			v, err := c.Result()
			require.NoError(t, err)
			assert.Equal(t, name, v.TypeName())
		})
	}
}

func TestAddValueCopies(t *testing.T) {
	src := testutil.IDNumberValue()
	c := New()
	require.NoError(t, c.AddValue(src))
	v, err := c.Result()
	require.NoError(t, err)

	require.NoError(t, dto.SetAs(src.Child(1), int32(1)))
	n, err := dto.As[int32](v.Child(1))
	require.NoError(t, err)
	assert.Equal(t, int32(1729), n)
}

func TestEndArrayWithoutElementsFails(t *testing.T) {
	c := New()
	require.NoError(t, c.StartArray("nothing"))
	err := c.EndArray()
	require.Error(t, err)
	assert.True(t, dto.IsInvalidOperation(err))
	assert.Equal(t, 1, c.Depth(), "failed call leaves the array open")
}

func TestMixedElementTypesFail(t *testing.T) {
	c := New()
	require.NoError(t, c.StartArray(""))
	require.NoError(t, c.StartArrayElement())
	require.NoError(t, c.AddInt8(1))
	require.NoError(t, c.EndArrayElement())
	require.NoError(t, c.StartArrayElement())
	require.NoError(t, c.AddInt16(2))

	err := c.EndArrayElement()
	assert.True(t, dto.IsInvalidOperation(err))

	c.Reset()
	assert.Equal(t, 0, c.Depth())
	_, err = c.Result()
	assert.True(t, dto.IsInvalidOperation(err))
}

func TestIllegalSequencing(t *testing.T) {
	tests := []struct {
		name  string
		steps func(c *Composer) error
	}{
		{"EndStruct at root", func(c *Composer) error { return c.EndStruct() }},
		{"StartField at root", func(c *Composer) error { return c.StartField("a") }},
		{"EndField at root", func(c *Composer) error { return c.EndField() }},
		{"StartArrayElement at root", func(c *Composer) error { return c.StartArrayElement() }},
		{"EndArrayElement at root", func(c *Composer) error { return c.EndArrayElement() }},
		{"EndArray at root", func(c *Composer) error { return c.EndArray() }},
		{"second root value", func(c *Composer) error {
			if err := c.AddInt8(1); err != nil {
				return err
			}
			return c.AddInt8(2)
		}},
		{"value directly in struct", func(c *Composer) error {
			if err := c.StartStruct("s"); err != nil {
				return err
			}
			return c.AddInt8(1)
		}},
		{"value directly in array", func(c *Composer) error {
			if err := c.StartArray("a"); err != nil {
				return err
			}
			return c.AddInt8(1)
		}},
		{"two values in a field", func(c *Composer) error {
			if err := c.StartStruct("s"); err != nil {
				return err
			}
			if err := c.StartField("a"); err != nil {
				return err
			}
			if err := c.AddInt8(1); err != nil {
				return err
			}
			return c.AddInt8(2)
		}},
		{"EndField without value", func(c *Composer) error {
			if err := c.StartStruct("s"); err != nil {
				return err
			}
			if err := c.StartField("a"); err != nil {
				return err
			}
			return c.EndField()
		}},
		{"EndStruct with open field", func(c *Composer) error {
			if err := c.StartStruct("s"); err != nil {
				return err
			}
			if err := c.StartField("a"); err != nil {
				return err
			}
			return c.EndStruct()
		}},
		{"EndArrayElement without value", func(c *Composer) error {
			if err := c.StartArray("a"); err != nil {
				return err
			}
			if err := c.StartArrayElement(); err != nil {
				return err
			}
			return c.EndArrayElement()
		}},
		{"duplicate field", func(c *Composer) error {
			if err := c.StartStruct("s"); err != nil {
				return err
			}
			if err := c.AddMember("a", dto.NewInt8(1)); err != nil {
				return err
			}
			return c.StartField("a")
		}},
		{"invalid field name", func(c *Composer) error {
			if err := c.StartStruct("s"); err != nil {
				return err
			}
			return c.StartField("a.b")
		}},
		{"empty member", func(c *Composer) error {
			if err := c.StartStruct("s"); err != nil {
				return err
			}
			return c.AddMember("a", dto.NewEmptyValue())
		}},
		{"nil value", func(c *Composer) error { return c.AddValue(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.steps(New())
			require.Error(t, err)
			assert.True(t, dto.IsInvalidOperation(err), "got %v", err)
		})
	}
}

func TestFailedAddMemberKeepsState(t *testing.T) {
	c := New()
	require.NoError(t, c.StartStruct("s"))
	require.Error(t, c.AddMember("a", dto.NewEmptyValue()))
	assert.Equal(t, 1, c.Depth())

	require.NoError(t, c.AddMember("a", dto.NewInt8(1)))
	require.NoError(t, c.EndStruct())
	v, err := c.Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v.MemberNames())
}

func TestResultUnfinished(t *testing.T) {
	c := New()
	_, err := c.Result()
	assert.True(t, dto.IsInvalidOperation(err))

	require.NoError(t, c.StartStruct("s"))
	_, err = c.Result()
	assert.True(t, dto.IsInvalidOperation(err))
}
