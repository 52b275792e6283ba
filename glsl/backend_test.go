// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

const meshDoc = `
name: Mesh
types:
  - name: Mesh
    attributes: [Vertex]
    fields:
      - name: Local
        type: Real3
        attributes: ["StageInput(name: Position)"]
      - name: Uv
        type: Real2
        attributes: [StageInput, StageOutput]
      - name: Clip
        type: Real4
        attributes: ["HardwareBuiltInOutput(name: Position)"]
      - name: Time
        type: Real
        attributes: ["AppBuiltInInput(name: LogicTime)"]
    functions:
      - name: Main
        attributes: [Main]
        body:
          - kind: assign
            target: {kind: member, type: Real4, member: Clip, x: {kind: this, type: Mesh}}
            value:
              kind: construct
              type: Real4
              args:
                - {kind: member, type: Real3, member: Local, x: {kind: this, type: Mesh}}
                - {kind: literal, type: Real, literal: "1"}
`

const litDoc = `
name: Lit
types:
  - name: Lit
    attributes: [Pixel]
    fields:
      - name: Uv
        type: Real2
        attributes: [StageInput]
      - name: Color
        type: Real4
        attributes: ["StageOutput(name: Target0)"]
      - name: Albedo
        type: SampledImage2d
      - name: Tint
        type: Real
        attributes: [PropertyInput]
    functions:
      - name: Main
        attributes: [Main]
        body:
          - kind: assign
            target: {kind: member, type: Real4, member: Color, x: {kind: this, type: Lit}}
            value:
              kind: call
              type: Real4
              name: Sample
              receiver: {kind: member, type: SampledImage2d, member: Albedo, x: {kind: this, type: Lit}}
              args: [{kind: member, type: Real2, member: Uv, x: {kind: this, type: Lit}}]
          - kind: assign
            target: {kind: member, type: Real, member: a, x: {kind: member, type: Real4, member: Color, x: {kind: this, type: Lit}}}
            value:
              kind: call
              type: Real
              owner: Math
              name: Round
              args: [{kind: member, type: Real, member: Tint, x: {kind: this, type: Lit}}]
`

func translateDoc(t *testing.T, doc string) *translate.Unit {
	t.Helper()
	src, err := syntax.Parse("test.yaml", []byte(doc))
	require.NoError(t, err)
	unit, err := translate.Translate(src, nil, translate.Options{})
	require.NoError(t, err)
	return unit
}

func compileDoc(t *testing.T, doc, typeName string, stage ir.Stage, v Version) string {
	t.Helper()
	s, err := Compile(translateDoc(t, doc), typeName, stage, Options{Version: v})
	require.NoError(t, err)
	assert.Equal(t, v, s.Version)
	return s.Source
}

func TestVertexModern(t *testing.T) {
	src := compileDoc(t, meshDoc, "Mesh", ir.StageVertex, Version450)

	assert.True(t, strings.HasPrefix(src, "#version 450 core\n"))
	assert.Contains(t, src, "struct Mesh {")
	assert.Contains(t, src, "layout(location = 0) in vec3 a_Position;")
	assert.Contains(t, src, "layout(location = 4) in vec2 a_Uv;")
	assert.Contains(t, src, "out StageData {")
	assert.Contains(t, src, "} vs_out;")
	assert.Contains(t, src, "layout(std140, binding = 0) uniform PerFrameData {")
	assert.Contains(t, src, "float FrameTime;", "uniform blocks declare every described field")
	assert.Contains(t, src, "} perFrameData;")

	assert.Contains(t, src, "self.Local = a_Position;")
	assert.Contains(t, src, "self.Time = perFrameData.LogicTime;")
	assert.Contains(t, src, "vs_out.Uv = self.Uv;")
	assert.Contains(t, src, "gl_Position = self.Clip;")
	assert.Contains(t, src, "self.Clip = vec4(self.Local, 1.0);")
	assert.Contains(t, src, "Mesh self = Mesh_Construct();")
	assert.Contains(t, src, "void main() {")
}

func TestVertexLegacy(t *testing.T) {
	src := compileDoc(t, meshDoc, "Mesh", ir.StageVertex, Version120)

	assert.True(t, strings.HasPrefix(src, "#version 120\n"))
	assert.Contains(t, src, "attribute vec3 a_Position;")
	assert.Contains(t, src, "varying vec2 v_Uv;")
	assert.Contains(t, src, "uniform float uPerFrameData_LogicTime;")
	assert.Contains(t, src, "self.Time = uPerFrameData_LogicTime;")
	assert.Contains(t, src, "v_Uv = self.Uv;")
	assert.NotContains(t, src, "layout(")
	assert.NotContains(t, src, "StageData")
}

func TestLayoutQualifiersFollowVersion(t *testing.T) {
	src := compileDoc(t, meshDoc, "Mesh", ir.StageVertex, Version150)
	assert.Contains(t, src, "in vec3 a_Position;")
	assert.NotContains(t, src, "layout(location")
	assert.Contains(t, src, "layout(std140) uniform PerFrameData {")

	src = compileDoc(t, meshDoc, "Mesh", ir.StageVertex, Version330)
	assert.Contains(t, src, "layout(location = 0) in vec3 a_Position;")
	assert.Contains(t, src, "layout(std140) uniform PerFrameData {")

	src = compileDoc(t, meshDoc, "Mesh", ir.StageVertex, Version420)
	assert.Contains(t, src, "layout(std140, binding = 0) uniform PerFrameData {")
}

func TestPixelModern(t *testing.T) {
	src := compileDoc(t, litDoc, "Lit", ir.StagePixel, Version450)

	assert.Contains(t, src, "in StageData {")
	assert.Contains(t, src, "} ps_in;")
	assert.Contains(t, src, "layout(location = 0) out vec4 o_Target0;")
	assert.Contains(t, src, "layout(binding = 0) uniform sampler2D Lit_Albedo;")
	assert.Contains(t, src, "layout(std140, binding = 5) uniform Material_Pixel {")
	assert.Contains(t, src, "} materialPixel;")

	assert.Contains(t, src, "self.Uv = ps_in.Uv;")
	assert.Contains(t, src, "self.Tint = materialPixel.Tint;")
	assert.Contains(t, src, "self.Color = texture(Lit_Albedo, self.Uv);")
	assert.Contains(t, src, "self.Color.w = round(self.Tint);")
	assert.Contains(t, src, "o_Target0 = self.Color;")
}

func TestPixelLegacy(t *testing.T) {
	src := compileDoc(t, litDoc, "Lit", ir.StagePixel, Version120)

	assert.Contains(t, src, "varying vec2 v_Uv;")
	assert.Contains(t, src, "uniform sampler2D Lit_Albedo;")
	assert.Contains(t, src, "uniform float uMaterialPixel_Tint;")
	assert.Contains(t, src, "self.Color = texture2D(Lit_Albedo, self.Uv);")
	assert.Contains(t, src, "self.Color.w = floor(self.Tint + 0.5);")
	assert.Contains(t, src, "gl_FragData[0] = self.Color;")
	assert.NotContains(t, src, "o_Target0")
}

func TestSeparateImageIsRejected(t *testing.T) {
	const doc = `
name: Split
types:
  - name: Split
    attributes: [Pixel]
    fields:
      - name: Color
        type: Real4
        attributes: [StageOutput]
      - name: Albedo
        type: Image2d
      - name: Linear
        type: Sampler
    functions:
      - name: Main
        attributes: [Main]
        body:
          - kind: assign
            target: {kind: member, type: Real4, member: Color, x: {kind: this, type: Split}}
            value:
              kind: call
              type: Real4
              name: Sample
              receiver: {kind: member, type: Image2d, member: Albedo, x: {kind: this, type: Split}}
              args:
                - {kind: member, type: Sampler, member: Linear, x: {kind: this, type: Split}}
                - {kind: construct, type: Real2}
`
	list := diag.NewList(nil)
	_, err := Compile(translateDoc(t, doc), "Split", ir.StagePixel, Options{Diag: list})
	require.Error(t, err)
	require.True(t, list.HasErrors())
	assert.Contains(t, list.FormatAll(), "GLSL cannot express")
}

const gridDoc = `
name: Grid
types:
  - name: Grid
    attributes: ["Compute(8, 4)"]
    fields:
      - name: Id
        type: Integer3
        attributes: ["HardwareBuiltInInput(name: GlobalInvocationId)"]
    functions:
      - name: Main
        attributes: [Main]
`

func TestComputeLocalSize(t *testing.T) {
	src := compileDoc(t, gridDoc, "Grid", ir.StageCompute, Version450)
	assert.Contains(t, src, "layout(local_size_x = 8, local_size_y = 4, local_size_z = 1) in;")
	assert.Contains(t, src, "self.Id = ivec3(gl_GlobalInvocationID);")
}

func TestComputeNeedsVersion430(t *testing.T) {
	unit := translateDoc(t, gridDoc)
	_, err := Compile(unit, "Grid", ir.StageCompute, Options{Version: Version330})
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindStructural))

	shaders, err := CompileAll(unit, Options{Version: Version330})
	require.NoError(t, err)
	assert.Empty(t, shaders)
}

func TestCompileAllUsesConfiguredVersions(t *testing.T) {
	shaders, err := CompileAll(translateDoc(t, meshDoc), Options{})
	require.NoError(t, err)
	require.Len(t, shaders, 2)
	assert.Equal(t, Version150, shaders[0].Version)
	assert.Equal(t, Version450, shaders[1].Version)
	assert.Equal(t, "Mesh_Vertex.glsl450.vert", shaders[1].FileName())
}

const geoDoc = `
name: Geo
types:
  - name: V
    fields:
      - name: Position
        type: Real4
        attributes: [StageInput, StageOutput]
      - name: Shade
        type: Real
        attributes: [StageInput]
  - name: Pass
    attributes: [Geometry]
    functions:
      - name: Main
        attributes: [Main]
        params:
          - {name: input, type: "PointInput[V]"}
          - {name: output, type: "PointOutput[V]"}
        body:
          - kind: expr
            x:
              kind: call
              type: Void
              name: Append
              receiver: {kind: name, type: "PointOutput[V]", name: output}
              args:
                - kind: index
                  type: V
                  x: {kind: name, type: "PointInput[V]", name: input}
                  index: {kind: literal, type: Integer, literal: "0"}
          - kind: expr
            x: {kind: call, type: Void, name: Restart, receiver: {kind: name, type: "PointOutput[V]", name: output}}
`

func TestGeometryHelpers(t *testing.T) {
	src := compileDoc(t, geoDoc, "Pass", ir.StageGeometry, Version450)

	assert.Contains(t, src, "layout(points) in;")
	assert.Contains(t, src, "layout(points, max_vertices = 1) out;")
	assert.Contains(t, src, "} gs_in[];")
	assert.Contains(t, src, "} gs_out;")
	assert.Contains(t, src, "struct Pass {\n    int _placeholder;\n};")

	assert.Contains(t, src, "void Pass_Main(inout Pass self, V _input[1], int _output)")
	assert.Contains(t, src, "Append_V(_input[0], 0);")
	assert.Contains(t, src, "EndPrimitive();")

	assert.Contains(t, src, "V CloneVertex_V(int index)")
	assert.Contains(t, src, "v.Position = gs_in[index].Position;")
	assert.Contains(t, src, "void WriteVertex_V(V v)")
	assert.Contains(t, src, "gs_out.Position = v.Position;")
	assert.Contains(t, src, "gs_out.Shade = gs_in[provoking].Shade;", "inputs missing from the output vertex pass through")
	assert.Contains(t, src, "EmitVertex();")
	assert.Contains(t, src, "vertices[0] = CloneVertex_V(0);")
	assert.Contains(t, src, "Pass_Main(self, vertices, 0);")
	assert.NotContains(t, src, "CopyOutputs")
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
`

func TestGeometryStreamPerVertexType(t *testing.T) {
	src := compileDoc(t, streamsDoc, "Expand", ir.StageGeometry, Version450)

	assert.Contains(t, src, "v.Prim = gl_PrimitiveIDIn;", "built-in inputs are cloned per vertex")
	assert.Contains(t, src, "void WriteVertex_Alt(Alt v)")
	assert.Contains(t, src, "void Append_Alt(Alt v, int provoking)")
	assert.Contains(t, src, "Append_Alt(v, 0);")
	assert.Equal(t, 1, strings.Count(src, "void Append_Alt("))
}

func TestLegacyRejectsGeometry(t *testing.T) {
	_, err := Compile(translateDoc(t, geoDoc), "Pass", ir.StageGeometry, Options{Version: Version120})
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindStructural))
}

func TestUnknownType(t *testing.T) {
	_, err := Compile(translateDoc(t, meshDoc), "Missing", ir.StageVertex, Options{})
	require.Error(t, err)
}
