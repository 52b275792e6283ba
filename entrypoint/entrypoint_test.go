// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package entrypoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/iface"
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
      - name: CameraPosition
        type: Real3
        attributes: [AppBuiltInInput]
    functions:
      - name: Main
        attributes: [Main]
        body: []
  - name: Shade
    attributes: [Pixel]
    fields:
      - name: Visible
        type: Boolean
        attributes: [StageInput]
      - name: Color
        type: Real4
        attributes: [StageInput, StageOutput]
      - name: Albedo
        type: Image2d
      - name: Linear
        type: Sampler
      - name: Shadow
        type: SampledImage2d
      - name: Unused
        type: Image2d
    functions:
      - name: Main
        attributes: [Main]
        body:
          - kind: expr
            x:
              kind: call
              type: Real4
              name: Sample
              receiver: {kind: member, type: Image2d, member: Albedo, x: {kind: this, type: Shade}}
              args:
                - {kind: member, type: Sampler, member: Linear, x: {kind: this, type: Shade}}
                - kind: construct
                  type: Real2
                  args: [{kind: literal, type: Real, literal: "0.5"}, {kind: literal, type: Real, literal: "0.5"}]
          - kind: expr
            x:
              kind: call
              type: Real4
              name: Sample
              receiver: {kind: member, type: SampledImage2d, member: Shadow, x: {kind: this, type: Shade}}
              args:
                - kind: construct
                  type: Real2
                  args: [{kind: literal, type: Real, literal: "0"}, {kind: literal, type: Real, literal: "1"}]
  - name: Blur
    attributes: ["Compute(8, y: 4)"]
    fields:
      - name: Particles
        type: "RuntimeArray[Real4]"
    functions:
      - name: Main
        attributes: [Main]
        body:
          - kind: expr
            x:
              kind: index
              type: Real4
              x: {kind: member, type: "RuntimeArray[Real4]", member: Particles, x: {kind: this, type: Blur}}
              index: {kind: literal, type: Integer, literal: "0"}
  - name: Needy
    attributes: [Pixel]
    constructors:
      - name: ""
        params: [{name: seed, type: Integer}]
        body: []
    functions:
      - name: Main
        attributes: [Main]
        body: []
  - name: Idle
    attributes: [Pixel]
`

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
                - {kind: literal, type: Integer, literal: "2"}
`

func translateDoc(t *testing.T, doc string) *translate.Unit {
	t.Helper()
	src, err := syntax.Parse("shaders.yaml", []byte(doc))
	require.NoError(t, err)
	unit, err := translate.Translate(src, nil, translate.Options{})
	require.NoError(t, err)
	return unit
}

func generate(t *testing.T, doc, typeName string, stage ir.Stage) *Info {
	t.Helper()
	info, err := Generate(translateDoc(t, doc), typeName, stage, Options{})
	require.NoError(t, err)
	return info
}

func countOps(fns []*ir.Function, opcode ir.Opcode) int {
	n := 0
	for _, f := range fns {
		for _, b := range f.Blocks {
			for _, op := range b.Ops {
				if op.Opcode == opcode {
					n++
				}
			}
		}
	}
	return n
}

func TestVertexInterfaceVariables(t *testing.T) {
	info := generate(t, shadersDoc, "Mesh", ir.StageVertex)
	lib := info.Library
	deco := info.EntryPoint.Decorations

	pos := lib.FindGlobal("Mesh_In_Position")
	weight := lib.FindGlobal("Mesh_In_Weight")
	require.NotNil(t, pos)
	require.NotNil(t, weight)
	loc, ok := deco.Find(pos, ir.NoMember, ir.DecorationLocation)
	require.True(t, ok)
	assert.Equal(t, []uint32{0}, loc.Params)
	loc, ok = deco.Find(weight, ir.NoMember, ir.DecorationLocation)
	require.True(t, ok)
	assert.Equal(t, []uint32{7}, loc.Params)

	out := info.Variable(info.Collection.Outputs)
	require.NotNil(t, out.Global)
	assert.Len(t, out.Struct.Members, 1)
	assert.True(t, deco.Has(out.Struct, ir.DecorationBlock))
	loc, ok = deco.Find(out.Global, ir.NoMember, ir.DecorationLocation)
	require.True(t, ok)
	assert.Equal(t, []uint32{0}, loc.Params)

	assert.ElementsMatch(t, []*ir.GlobalVariable{pos, weight, out.Global}, info.EntryPoint.Interface)
	assert.Equal(t, EntryPointName, info.EntryPoint.Name)
	assert.Equal(t, []ir.Capability{ir.CapabilityShader}, info.EntryPoint.Capabilities)

	errs, err := ir.Validate(lib)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestWrapperCallSequence(t *testing.T) {
	info := generate(t, shadersDoc, "Mesh", ir.StageVertex)
	main := info.EntryPoint.Function
	var callees []string
	for _, b := range main.Blocks {
		for _, op := range b.Ops {
			if op.Opcode == ir.OpFunctionCall {
				callees = append(callees, op.Operands[0].(*ir.Function).Key.Name)
			}
		}
	}
	assert.Equal(t, []string{translate.PreConstructorName, "CopyInputs", "Main", "CopyOutputs"}, callees)
}

func TestUniformLayoutReflection(t *testing.T) {
	info := generate(t, shadersDoc, "Mesh", ir.StageVertex)
	u, ok := info.Reflection.Uniform("PerCameraData")
	require.True(t, ok)
	assert.Equal(t, uint32(1), u.Binding)
	assert.Equal(t, uint32(32), u.Size)

	offsets := map[string]uint32{}
	for _, m := range u.Members {
		offsets[m.Name] = m.Offset
	}
	assert.Equal(t, map[string]uint32{"NearPlane": 0, "FarPlane": 4, "ViewportSize": 8, "CameraPosition": 16}, offsets)

	gv := info.Variable(info.Collection.Uniforms[0])
	d, ok := info.EntryPoint.Decorations.Find(gv.Struct, 3, ir.DecorationOffset)
	require.True(t, ok)
	assert.Equal(t, []uint32{16}, d.Params)

	in, ok := info.Reflection.Input("Weight")
	require.True(t, ok)
	assert.Equal(t, uint32(7), in.Location)
}

func TestBooleanInputsRoundTrip(t *testing.T) {
	info := generate(t, shadersDoc, "Shade", ir.StagePixel)
	assert.Equal(t, 1, countOps(info.Library.Functions, ir.OpINotEqual), "integer carrier converted back to bool")

	in := info.Variable(info.Collection.Inputs)
	flat, ok := info.EntryPoint.Decorations.Find(in.Struct, 0, ir.DecorationFlat)
	require.True(t, ok)
	assert.Empty(t, flat.Params)
	_, ok = info.EntryPoint.Decorations.Find(in.Struct, 1, ir.DecorationFlat)
	assert.False(t, ok)

	assert.Equal(t, []ir.ExecutionModeInfo{{Mode: ir.ExecutionModeOriginUpperLeft}}, info.EntryPoint.ExecutionModes)
}

func TestResourceBindings(t *testing.T) {
	info := generate(t, shadersDoc, "Shade", ir.StagePixel)
	r := info.Reflection

	require.Len(t, r.Images, 1, "unreferenced images are not bound")
	assert.Equal(t, "Shade_Albedo", r.Images[0].Name)
	assert.Equal(t, uint32(0), r.Images[0].Binding)
	require.Len(t, r.Samplers, 1)
	assert.Equal(t, uint32(0), r.Samplers[0].Binding)
	require.Len(t, r.SampledImages, 1)
	assert.Equal(t, uint32(1), r.SampledImages[0].Binding, "combined samplers need a slot free in both spaces")

	for _, gv := range info.Resources {
		set, ok := info.EntryPoint.Decorations.Find(gv, ir.NoMember, ir.DecorationDescriptorSet)
		require.True(t, ok)
		assert.Equal(t, []uint32{0}, set.Params)
	}
}

func TestComputeStorageBuffer(t *testing.T) {
	info := generate(t, shadersDoc, "Blur", ir.StageCompute)
	r := info.Reflection

	assert.Equal(t, []uint32{8, 4, 1}, r.LocalSize)
	require.Len(t, r.StorageBuffers, 1)
	sb := r.StorageBuffers[0]
	assert.Equal(t, uint32(0), sb.Binding)
	assert.Equal(t, uint32(16), sb.Stride)

	gv := info.Resources[0]
	assert.True(t, info.EntryPoint.Decorations.Has(gv.ValueType(), ir.DecorationBlock))
	assert.Empty(t, info.EntryPoint.Interface)
}

func TestGeometryAppend(t *testing.T) {
	info := generate(t, geometryDoc, "Expand", ir.StageGeometry)
	ep := info.EntryPoint
	geo := info.Collection.Geometry
	require.NotNil(t, geo)

	impl := ep.Bindings[geo.Output.Stream.Append]
	require.NotNil(t, impl, "the output stream's append is bound")
	assert.Equal(t, "Append_GsOut", impl.Key.Name)
	assert.Equal(t, 1, countOps([]*ir.Function{impl}, ir.OpEmitVertex))

	in := info.Variable(info.Collection.Inputs)
	var passThrough bool
	for _, op := range impl.Blocks[0].Ops {
		if op.Opcode == ir.OpAccessChain && op.Operands[0] == in.Global && op.Operands[1] == impl.Params[1] {
			passThrough = true
		}
	}
	assert.True(t, passThrough, "pass-through outputs read the provoking input vertex")

	assert.Contains(t, ep.Capabilities, ir.CapabilityGeometry)
	assert.Contains(t, ep.ExecutionModes, ir.ExecutionModeInfo{Mode: ir.ExecutionModeTriangles})
	assert.Contains(t, ep.ExecutionModes, ir.ExecutionModeInfo{Mode: ir.ExecutionModeOutputTriangleStrip})
	assert.Contains(t, ep.ExecutionModes, ir.ExecutionModeInfo{Mode: ir.ExecutionModeOutputVertices, Params: []uint32{6}})
	assert.Equal(t, ir.KindFixedArray, in.Global.ValueType().Kind)

	errs, err := ir.Validate(info.Library)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestPerspectiveDivideCallback(t *testing.T) {
	unit := translateDoc(t, geometryDoc)
	info, err := Generate(unit, "Expand", ir.StageGeometry, Options{
		AppendCallbacks: []AppendCallback{PerspectiveDivide("Position")},
	})
	require.NoError(t, err)
	impl := info.EntryPoint.Bindings[info.Collection.Geometry.Output.Stream.Append]
	assert.Equal(t, 1, countOps([]*ir.Function{impl}, ir.OpFDiv))
	assert.Equal(t, 1, countOps([]*ir.Function{impl}, ir.OpVectorTimesScalar))
}

func TestStructuralErrors(t *testing.T) {
	unit := translateDoc(t, shadersDoc)

	_, err := Generate(unit, "Needy", ir.StagePixel, Options{})
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindStructural))
	assert.Contains(t, err.Error(), "default constructor")

	_, err = Generate(unit, "Idle", ir.StagePixel, Options{})
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindStructural))

	_, err = Generate(unit, "Missing", ir.StagePixel, Options{})
	assert.True(t, diag.IsKind(err, diag.KindStructural))
}

func TestGenerateAllSkipsHelpers(t *testing.T) {
	unit := translateDoc(t, geometryDoc)
	infos, err := GenerateAll(unit, Options{})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Expand_Geometry", infos[0].Library.Name)
}

const streamsDoc = `
name: Streams
types:
  - name: GsIn
    fields:
      - name: Position
        type: Real4
        attributes: [StageInput]
      - name: Prim
        type: Integer
        attributes: ["HardwareBuiltInInput(name: PrimitiveId)"]
  - name: GsOut
    fields:
      - name: Position
        type: Real4
        attributes: [StageOutput]
  - name: Alt
    fields:
      - name: Position
        type: Real4
        attributes: [StageOutput]
  - name: Stray
    fields:
      - name: Glow
        type: Real
        attributes: [StageOutput]
  - name: Expand
    attributes: ["Geometry(maxVertices: 6)"]
    functions:
      - name: Main
        attributes: [Main]
        params:
          - {name: input, type: "TriangleInput[GsIn]"}
          - {name: output, type: "TriangleOutput[GsOut]"}
        body:
          - kind: local
            name: alt
            type: "TriangleOutput[Alt]"
          - kind: expr
            x:
              kind: call
              type: Void
              name: Emit
              args:
                - {kind: name, type: "TriangleOutput[Alt]", name: alt}
      - name: Emit
        params:
          - {name: stream, type: "TriangleOutput[Alt]"}
        body:
          - kind: local
            name: v
            type: Alt
          - kind: expr
            x:
              kind: call
              type: Void
              name: Append
              receiver: {kind: name, type: "TriangleOutput[Alt]", name: stream}
              args:
                - {kind: name, type: Alt, name: v}
  - name: Leaky
    attributes: [Geometry]
    functions:
      - name: Main
        attributes: [Main]
        params:
          - {name: input, type: "PointInput[GsIn]"}
          - {name: output, type: "PointOutput[GsOut]"}
        body:
          - kind: local
            name: v
            type: Stray
          - kind: local
            name: side
            type: "PointOutput[Stray]"
          - kind: expr
            x:
              kind: call
              type: Void
              name: Append
              receiver: {kind: name, type: "PointOutput[Stray]", name: side}
              args:
                - {kind: name, type: Stray, name: v}
`

func TestGeometryBuiltInInputsPerVertex(t *testing.T) {
	info := generate(t, streamsDoc, "Expand", ir.StageGeometry)
	group := info.Collection.BuiltInInputs
	index := group.Index(iface.FieldKey{Name: "PrimitiveId", Type: "Integer"})
	require.GreaterOrEqual(t, index, 0)
	prim := info.Variable(group).Fields[index]
	require.NotNil(t, prim)

	loads := 0
	for _, b := range info.EntryPoint.Function.Blocks {
		for _, op := range b.Ops {
			if op.Opcode == ir.OpLoad && op.Operands[0] == ir.Value(prim) {
				loads++
			}
		}
	}
	assert.Equal(t, 3, loads, "every input vertex reads the built-in")
}

func TestAppendBoundForEveryOutputStream(t *testing.T) {
	unit := translateDoc(t, streamsDoc)
	info, err := Generate(unit, "Expand", ir.StageGeometry, Options{})
	require.NoError(t, err)
	ep := info.EntryPoint

	main := ep.Bindings[info.Collection.Geometry.Output.Stream.Append]
	require.NotNil(t, main)
	assert.Equal(t, "Append_GsOut", main.Key.Name)

	alt := unit.Registry.Lookup("TriangleOutput[Alt]")
	require.NotNil(t, alt)
	require.NotNil(t, alt.Stream)
	impl := ep.Bindings[alt.Stream.Append]
	require.NotNil(t, impl, "a stream passed to a helper function is bound too")
	assert.Equal(t, "Append_Alt", impl.Key.Name)
	assert.Equal(t, 1, countOps([]*ir.Function{impl}, ir.OpEmitVertex))
	assert.True(t, info.Collection.Outputs.Fields[0].LinkedTo(unit.LookupType("Alt")))

	errs, err := ir.Validate(info.Library)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestAppendWithoutOutputSlot(t *testing.T) {
	list := diag.NewList(nil)
	_, err := Generate(translateDoc(t, streamsDoc), "Leaky", ir.StageGeometry, Options{Diag: list})
	require.Error(t, err)
	require.Len(t, list.Errors(), 1)
	assert.Equal(t, diag.KindInterface, list.Errors()[0].Kind)
	assert.Contains(t, list.Errors()[0].Message, "Stray.Glow has no slot")
}
