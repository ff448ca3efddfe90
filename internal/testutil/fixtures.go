// Package testutil provides fixtures and helpers shared by package tests.
package testutil

import (
	"github.com/roach88/supdto/internal/dto"
)

// PointType is struct point {x: float64, y: float64}.
func PointType() dto.AnyType {
	return dto.MustType(dto.NewStructType("point",
		dto.Member{Name: "x", Type: dto.Float64Type},
		dto.Member{Name: "y", Type: dto.Float64Type},
	))
}

// SensorFrameType is a struct covering nested structs, fixed arrays of
// scalars and of anonymous structs, strings, bool and char8. It has a fixed
// C layout.
func SensorFrameType() dto.AnyType {
	corner := dto.MustType(dto.NewStructType("", dto.Member{Name: "dx", Type: dto.Float32Type}))
	return dto.MustType(dto.NewStructType("sensorFrame",
		dto.Member{Name: "frameId", Type: dto.UInt32Type},
		dto.Member{Name: "position", Type: PointType()},
		dto.Member{Name: "samples", Type: dto.MustType(dto.NewArrayType("", dto.Int16Type, 4))},
		dto.Member{Name: "label", Type: dto.StringType},
		dto.Member{Name: "corners", Type: dto.MustType(dto.NewArrayType("", corner, 2))},
		dto.Member{Name: "active", Type: dto.BoolType},
		dto.Member{Name: "code", Type: dto.Char8Type},
	))
}

// SensorFrameValue is a populated SensorFrameType value.
func SensorFrameValue() *dto.AnyValue {
	v := dto.NewValue(SensorFrameType())
	set := func(path string, x *dto.AnyValue) {
		ref, err := v.At(path)
		if err != nil {
			panic(err)
		}
		if err := ref.ConvertFrom(x); err != nil {
			panic(err)
		}
	}
	set("frameId", dto.NewUInt32(300))
	set("position.x", dto.NewFloat64(1.5))
	set("position.y", dto.NewFloat64(-2.25))
	set("samples[0]", dto.NewInt16(-1))
	set("samples[1]", dto.NewInt16(2))
	set("samples[2]", dto.NewInt16(-300))
	set("samples[3]", dto.NewInt16(32767))
	set("label", dto.NewString("north-east"))
	set("corners[0].dx", dto.NewFloat32(0.5))
	set("corners[1].dx", dto.NewFloat32(-0.5))
	set("active", dto.NewBool(true))
	set("code", dto.NewChar8('N'))
	return v
}

// IDNumberType is struct {id: string, number: int32}.
func IDNumberType() dto.AnyType {
	return dto.MustType(dto.NewStructType("",
		dto.Member{Name: "id", Type: dto.StringType},
		dto.Member{Name: "number", Type: dto.Int32Type},
	))
}

// IDNumberValue is {id: "my_id", number: 1729}.
func IDNumberValue() *dto.AnyValue {
	v := dto.NewStructValue("")
	if err := v.AddMember("id", dto.NewString("my_id")); err != nil {
		panic(err)
	}
	if err := v.AddMember("number", dto.NewInt32(1729)); err != nil {
		panic(err)
	}
	return v
}

// TrackType is a struct with an unbounded array of points, which has no C
// layout.
func TrackType() dto.AnyType {
	return dto.MustType(dto.NewStructType("track",
		dto.Member{Name: "name", Type: dto.StringType},
		dto.Member{Name: "points", Type: dto.MustType(dto.NewUnboundedArrayType("points", PointType()))},
	))
}

// TrackValue is a TrackType value with two points.
func TrackValue() *dto.AnyValue {
	v := dto.NewValue(TrackType())
	name, _ := v.At("name")
	if err := dto.SetAs(name, "loop"); err != nil {
		panic(err)
	}
	points, _ := v.At("points")
	for _, xy := range [][2]float64{{0, 0}, {3, 4}} {
		p := dto.NewValue(PointType())
		if err := dto.SetAs(p.Child(0), xy[0]); err != nil {
			panic(err)
		}
		if err := dto.SetAs(p.Child(1), xy[1]); err != nil {
			panic(err)
		}
		if err := points.Append(p); err != nil {
			panic(err)
		}
	}
	return v
}
