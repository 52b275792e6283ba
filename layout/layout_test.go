// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/ir"
)

type types struct {
	f32, vec2, vec3, vec4, mat4 *ir.Type
	lib                         *ir.Library
}

func newTypes(t *testing.T) types {
	t.Helper()
	lib, err := ir.NewLibrary("Layout")
	require.NoError(t, err)
	f32 := lib.FloatType(32)
	return types{
		lib:  lib,
		f32:  f32,
		vec2: lib.VectorType(f32, 2),
		vec3: lib.VectorType(f32, 3),
		vec4: lib.VectorType(f32, 4),
		mat4: lib.MatrixType(lib.VectorType(f32, 4), 4),
	}
}

func TestVec2ThenScalar(t *testing.T) {
	ty := newTypes(t)
	b := Compute([]Field{{Name: "A", Type: ty.vec2}, {Name: "B", Type: ty.f32}})

	require.Len(t, b.Members, 2)
	assert.Equal(t, uint32(0), b.Members[0].Offset)
	assert.Equal(t, uint32(8), b.Members[1].Offset)
	assert.Equal(t, uint32(8), b.Align)
	assert.Equal(t, uint32(16), b.Size, "12 bytes rounded up to the 8-byte block alignment")
}

func TestMixedWidthsAreAlignedAndMonotonic(t *testing.T) {
	ty := newTypes(t)
	fields := []Field{
		{Name: "a", Type: ty.f32},
		{Name: "b", Type: ty.vec3},
		{Name: "c", Type: ty.f32},
		{Name: "d", Type: ty.vec2},
		{Name: "e", Type: ty.vec4},
		{Name: "f", Type: ty.f32},
		{Name: "g", Type: ty.mat4},
		{Name: "h", Type: ty.lib.FixedArrayType(ty.f32, 3)},
	}
	b := Compute(fields)

	prev := uint32(0)
	for _, m := range b.Members {
		assert.GreaterOrEqual(t, m.Offset, prev, m.Name)
		assert.Zero(t, m.Offset%m.Align, "%s at %d is not %d-aligned", m.Name, m.Offset, m.Align)
		prev = m.Offset
	}
	last := b.Members[len(b.Members)-1]
	assert.GreaterOrEqual(t, b.Size, last.Offset+last.Size)

	// vec3 packs a following scalar into its fourth slot.
	assert.Equal(t, uint32(16), b.Members[1].Offset)
	assert.Equal(t, uint32(28), b.Members[2].Offset)
	assert.Equal(t, uint32(16), b.Members[7].ArrayStride)
	assert.Equal(t, uint32(MatrixStride), b.Members[6].MatrixStride)
}

func TestArrayStrideRoundsTo16(t *testing.T) {
	ty := newTypes(t)
	assert.Equal(t, uint32(16), ArrayStride(ty.f32))
	assert.Equal(t, uint32(16), ArrayStride(ty.vec3))
	assert.Equal(t, uint32(64), ArrayStride(ty.mat4))
	assert.Equal(t, uint32(16), RuntimeArrayStride(ty.vec3))
	assert.Equal(t, uint32(8), RuntimeArrayStride(ty.vec2))
}

func TestDecorateRecurses(t *testing.T) {
	ty := newTypes(t)
	light := ty.lib.DeclareStruct("Light")
	light.AddMember("Color", ty.vec3)
	light.AddMember("Intensity", ty.f32)

	block := ty.lib.DeclareStruct("Lights")
	block.AddMember("Transform", ty.mat4)
	block.AddMember("Items", ty.lib.FixedArrayType(light, 4))

	d := ir.NewDecorationSet()
	b := Decorate(d, block)

	assert.Equal(t, uint32(64), b.Members[1].Offset)
	assert.Equal(t, uint32(64+4*16), b.Size)

	_, ok := d.Find(block, 0, ir.DecorationColMajor)
	assert.True(t, ok)
	stride, ok := d.Find(ty.lib.FixedArrayType(light, 4), ir.NoMember, ir.DecorationArrayStride)
	require.True(t, ok)
	assert.Equal(t, []uint32{16}, stride.Params)
	intensity, ok := d.Find(light, 1, ir.DecorationOffset)
	require.True(t, ok)
	assert.Equal(t, []uint32{12}, intensity.Params)
}
