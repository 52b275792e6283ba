// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package iface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

const shadersDoc = `
name: Shaders
types:
  - name: Mesh
    attributes: [Vertex]
    fields:
      - name: Position
        type: Real3
        attributes: [StageInput]
      - name: Weight
        type: Real
        attributes: [StageInput]
      - name: Tint
        type: Real4
        attributes: [StageOutput]
      - name: LogicTime
        type: Real
        attributes: [AppBuiltInInput]
      - name: Scale
        type: Real
        attributes: [PropertyInput]
      - name: Clip
        type: Real4
        attributes: ["HardwareBuiltInOutput(Position)"]
    functions:
      - name: Main
        attributes: [Main]
        body: []
  - name: Shade
    attributes: [Pixel]
    fields:
      - name: Id
        type: Integer
        attributes: [StageInput]
      - name: Visible
        type: Boolean
        attributes: [StageInput]
      - name: Color
        type: Real4
        attributes: [StageInput, StageOutput]
      - name: Gloss
        type: Real
        attributes: [PropertyInput]
    functions:
      - name: Main
        attributes: [Main]
        body: []
  - name: Bad
    file: Bad.frag
    attributes: [Pixel, Compute]
    fields:
      - name: Ghost
        type: Real
        line: 3
        attributes: [HardwareBuiltInInput]
      - name: Speed
        type: Real
        line: 4
        attributes: [AppBuiltInInput]
      - name: Color
        type: Real4
        line: 5
        attributes: [StageInput]
    functions:
      - name: Main
        attributes: [Main]
        body: []
`

func collect(t *testing.T, doc, typeName string, stage ir.Stage, list *diag.List) (*Collection, error) {
	t.Helper()
	src, err := syntax.Parse("shaders.yaml", []byte(doc))
	require.NoError(t, err)
	unit, err := translate.Translate(src, nil, translate.Options{})
	require.NoError(t, err)
	info := unit.LookupType(typeName)
	require.NotNil(t, info)
	return Collect(unit, info, stage, Options{Diag: list})
}

func TestVertexInputsAreFlatAndLocated(t *testing.T) {
	c, err := collect(t, shadersDoc, "Mesh", ir.StageVertex, nil)
	require.NoError(t, err)

	in := c.Inputs
	assert.False(t, in.Block)
	require.Len(t, in.Fields, 2)
	pos := in.Field(FieldKey{Name: "Position", Type: "Real3"})
	require.NotNil(t, pos)
	assert.True(t, pos.HasLocation)
	assert.Equal(t, uint32(0), pos.Location)
	weight := in.Field(FieldKey{Name: "Weight", Type: "Real"})
	require.NotNil(t, weight)
	assert.Equal(t, uint32(7), weight.Location, "unknown attributes follow the configured ones")

	out := c.Outputs
	assert.True(t, out.Block)
	require.Len(t, out.Fields, 1)
	assert.Equal(t, "Tint", out.Fields[0].Key.Name)
	assert.Contains(t, out.Pending, PendingDecoration{Member: ir.NoMember, Decoration: ir.DecorationLocation, Params: []uint32{0}})
}

func TestUniformAndMaterialGroups(t *testing.T) {
	c, err := collect(t, shadersDoc, "Mesh", ir.StageVertex, nil)
	require.NoError(t, err)

	require.Len(t, c.Uniforms, 1)
	u := c.Uniforms[0]
	assert.Equal(t, "PerFrameData", u.Name)
	assert.Equal(t, uint32(0), u.Binding)
	require.Len(t, u.Fields, 2, "uniform groups mirror the whole buffer description")
	assert.Len(t, u.Fields[0].Linked, 1)
	assert.Empty(t, u.Fields[1].Linked)

	require.Len(t, c.Material.Fields, 1)
	assert.Equal(t, "Scale", c.Material.Fields[0].Key.Name)
	assert.Equal(t, uint32(3), c.Material.Binding)

	require.Len(t, c.BuiltInOutputs.Fields, 1)
	clip := c.BuiltInOutputs.Fields[0]
	assert.Equal(t, "Position", clip.Key.Name, "the attribute renames the field")
	require.NotNil(t, clip.BuiltIn)
	assert.Equal(t, ir.BuiltInPosition, clip.BuiltIn.BuiltIn)
}

func TestMaterialBindingDependsOnStage(t *testing.T) {
	c, err := collect(t, shadersDoc, "Shade", ir.StagePixel, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), c.Material.Binding)
	require.Len(t, c.Material.Fields, 1)
}

func TestPixelIntegralInputsAreFlat(t *testing.T) {
	c, err := collect(t, shadersDoc, "Shade", ir.StagePixel, nil)
	require.NoError(t, err)

	in := c.Inputs
	assert.True(t, in.Block)
	id := in.Field(FieldKey{Name: "Id", Type: "Integer"})
	visible := in.Field(FieldKey{Name: "Visible", Type: "Boolean"})
	color := in.Field(FieldKey{Name: "Color", Type: "Real4"})
	require.NotNil(t, id)
	require.NotNil(t, visible)
	require.NotNil(t, color)
	assert.True(t, id.Flat)
	assert.True(t, visible.Flat)
	assert.False(t, color.Flat)

	assert.True(t, visible.Converted(), "booleans are carried as integers")
	assert.Equal(t, ir.KindInt, visible.Type.Kind)
	assert.False(t, color.Converted())

	assert.Contains(t, in.Pending, PendingDecoration{Member: 0, Decoration: ir.DecorationFlat})
	assert.NotContains(t, in.Pending, PendingDecoration{Member: 2, Decoration: ir.DecorationFlat})
}

func TestInputAndOutputShareKeys(t *testing.T) {
	c, err := collect(t, shadersDoc, "Shade", ir.StagePixel, nil)
	require.NoError(t, err)
	in := c.Inputs.Field(FieldKey{Name: "Color", Type: "Real4"})
	out := c.Outputs.Field(FieldKey{Name: "Color", Type: "Real4"})
	require.NotNil(t, in)
	require.NotNil(t, out)
	assert.Same(t, in.Linked[0].Slot, out.Linked[0].Slot)
}

func TestInterfaceErrors(t *testing.T) {
	var events []*diag.Error
	list := diag.NewList(func(e *diag.Error) { events = append(events, e) })

	_, err := collect(t, shadersDoc, "Bad", ir.StagePixel, list)
	require.Error(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, diag.KindInterface, events[0].Kind)
	assert.Contains(t, events[0].Message, "built-in Ghost (Real) is not available as an input in the Pixel stage")
	assert.Equal(t, 3, events[0].Location.Line)
	assert.Contains(t, events[1].Message, "Speed")
}

func TestComputeHasNoStageInterface(t *testing.T) {
	var events []*diag.Error
	list := diag.NewList(func(e *diag.Error) { events = append(events, e) })

	c, err := collect(t, shadersDoc, "Bad", ir.StageCompute, list)
	require.Error(t, err)
	assert.Nil(t, c.Inputs)
	var found bool
	for _, e := range events {
		if e.Location.Line == 5 {
			found = true
			assert.Contains(t, e.Message, "stage inputs are not supported in the Compute stage")
		}
	}
	assert.True(t, found)
}

const geometryDoc = `
name: Geo
types:
  - name: GsIn
    fields:
      - name: Position
        type: Real4
        attributes: [StageInput]
      - name: Color
        type: Real4
        attributes: [StageInput]
  - name: GsOut
    fields:
      - name: Position
        type: Real4
        attributes: [StageOutput]
  - name: Expand
    attributes: ["Geometry(maxVertices: 6)"]
    fields:
      - name: Primitive
        type: Integer
        attributes: [HardwareBuiltInInput(PrimitiveId)]
    functions:
      - name: Main
        attributes: [Main]
        params:
          - {name: input, type: "TriangleInput[GsIn]"}
          - {name: output, type: "TriangleOutput[GsOut]"}
        body:
          - kind: local
            name: v
            type: GsOut
          - kind: expr
            x:
              kind: call
              type: Void
              name: Append
              receiver: {kind: name, type: "TriangleOutput[GsOut]", name: output}
              args:
                - {kind: name, type: GsOut, name: v}
                - {kind: literal, type: Integer, literal: "0"}
`

func TestGeometryPassThrough(t *testing.T) {
	c, err := collect(t, geometryDoc, "Expand", ir.StageGeometry, nil)
	require.NoError(t, err)
	require.NotNil(t, c.Geometry)

	assert.Equal(t, uint32(6), c.Geometry.MaxVertices)
	assert.Equal(t, uint32(3), c.Inputs.ArraySize)
	assert.Equal(t, "GsIn", c.Geometry.InputVertex.Decl.Name)
	assert.Equal(t, "GsOut", c.Geometry.OutputVertex.Decl.Name)

	require.Len(t, c.Outputs.Fields, 2)
	pos := c.Outputs.Field(FieldKey{Name: "Position", Type: "Real4"})
	color := c.Outputs.Field(FieldKey{Name: "Color", Type: "Real4"})
	require.NotNil(t, pos)
	require.NotNil(t, color)
	assert.False(t, pos.PassThrough)
	assert.True(t, color.PassThrough)
	assert.Empty(t, color.Linked)

	require.Len(t, c.BuiltInInputs.Fields, 1)
	assert.Equal(t, ir.BuiltInPrimitiveID, c.BuiltInInputs.Fields[0].BuiltIn.BuiltIn)
}

func TestGroupsSkipsEmpty(t *testing.T) {
	c, err := collect(t, shadersDoc, "Shade", ir.StagePixel, nil)
	require.NoError(t, err)
	for _, g := range c.Groups() {
		assert.False(t, g.Empty(), g.Name)
	}
	assert.Len(t, c.Groups(), 3)
	assert.Equal(t, "StageInput", GroupStageInput.String())
}
