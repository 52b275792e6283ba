// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package fragc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/pass"
	"github.com/gogpu/fragc/spirv"
	"github.com/gogpu/fragc/syntax"
)

const meshDoc = `
name: Scene
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

const flatDoc = `
name: Flat
types:
  - name: Flat
    attributes: [Pixel]
    fields:
      - name: Uv
        type: Real2
        attributes: [StageInput]
      - name: Color
        type: Real4
        attributes: ["StageOutput(name: Target0)"]
      - name: Tint
        type: Real
        attributes: [PropertyInput]
    functions:
      - name: Main
        attributes: [Main]
        body:
          - kind: assign
            target: {kind: member, type: Real, member: a, x: {kind: member, type: Real4, member: Color, x: {kind: this, type: Flat}}}
            value: {kind: member, type: Real, member: Tint, x: {kind: this, type: Flat}}
`

func writeDocs(t *testing.T, docs ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(docs))
	for i, doc := range docs {
		paths[i] = filepath.Join(dir, strings.Fields(doc)[1]+".yaml")
		require.NoError(t, os.WriteFile(paths[i], []byte(doc), 0o644))
	}
	return paths
}

func TestLoadMergesDocuments(t *testing.T) {
	src, err := Load(writeDocs(t, meshDoc, flatDoc)...)
	require.NoError(t, err)
	assert.Equal(t, "Scene", src.Name)
	assert.NotNil(t, src.Type("Mesh"))
	assert.NotNil(t, src.Type("Flat"))

	_, err = Load()
	assert.Error(t, err)
}

func TestCompileEveryStage(t *testing.T) {
	src, err := Load(writeDocs(t, meshDoc, flatDoc)...)
	require.NoError(t, err)

	out, err := Compile(src, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out.Stages, 2)

	mesh := out.Stage("Mesh_Vertex")
	require.NotNil(t, mesh)
	assert.Equal(t, ir.StageVertex, mesh.Info.Stage)
	assert.Equal(t, "Mesh_Vertex", mesh.Reflection.Name)

	flat := out.Stage("Flat_Pixel")
	require.NotNil(t, flat)
	h, insts, err := spirv.Decode(flat.Binary)
	require.NoError(t, err)
	assert.Equal(t, spirv.Version1_3, h.Version)
	assert.NotEmpty(t, insts)
	assert.Empty(t, pass.Validate(flat.Binary))

	assert.Len(t, out.Reflections(), 2)
	assert.Nil(t, out.Stage("Flat_Vertex"))

	// Both stages at GLSL 1.50 and 4.50.
	require.Len(t, out.GLSL, 4)
	names := make([]string, len(out.GLSL))
	for i, s := range out.GLSL {
		names[i] = s.FileName()
	}
	assert.Contains(t, names, "Flat_Pixel.glsl450.frag")
	assert.Contains(t, names, "Mesh_Vertex.glsl150.vert")
}

func TestCompileRunsPasses(t *testing.T) {
	src, err := syntax.Parse("flat.yaml", []byte(flatDoc))
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.GLSL = false
	opts.Passes = []pass.Pass{&pass.Optimizer{}, &pass.Validator{}}
	out, err := Compile(src, nil, opts)
	require.NoError(t, err)
	require.Len(t, out.Stages, 1)
	assert.Empty(t, out.GLSL)

	stage := out.Stages[0]
	_, insts, err := spirv.Decode(stage.Binary)
	require.NoError(t, err)
	for _, inst := range insts {
		assert.NotEqual(t, ir.OpName, inst.Opcode)
	}
	assert.NotEmpty(t, stage.Log)

	text, err := Disassemble(stage.Binary)
	require.NoError(t, err)
	assert.Contains(t, text, "OpEntryPoint Fragment")
}

func TestCompileStopsAtFailingPass(t *testing.T) {
	src, err := syntax.Parse("flat.yaml", []byte(flatDoc))
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Passes = []pass.Pass{&pass.Tool{Command: "fragc-missing-tool"}}
	_, err = Compile(src, nil, opts)
	assert.ErrorIs(t, err, pass.ErrToolNotFound)
	assert.True(t, diag.IsKind(err, diag.KindPipeline))
}

func TestCompileReportsDiagnostics(t *testing.T) {
	src, err := syntax.Parse("bad.yaml", []byte(`
name: Bad
types:
  - name: Bad
    attributes: [Pixel]
    functions:
      - name: Main
        attributes: [Main]
        body:
          - kind: expr
            x: {kind: call, type: Real, owner: Math, name: Frobnicate, args: []}
`))
	require.NoError(t, err)

	var reported []*diag.Error
	opts := DefaultOptions()
	opts.Diag = diag.NewList(func(e *diag.Error) { reported = append(reported, e) })
	_, err = Compile(src, nil, opts)
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindResolution))
	assert.NotEmpty(t, reported)
	assert.Equal(t, "bad.yaml", reported[0].Location.File)
}

const sharedDoc = `
name: Shared
types:
  - name: Split
    attributes: [Vertex]
    fields:
      - name: A
        type: Real2
        attributes: ["StageOutput(name: Shared)"]
      - name: B
        type: Real2
        attributes: ["StageOutput(name: Shared)"]
    functions:
      - name: Main
        attributes: [Main]
        body: []
`

func TestLinkedOutputsAgreeAcrossBackends(t *testing.T) {
	src, err := syntax.Parse("shared.yaml", []byte(sharedDoc))
	require.NoError(t, err)
	out, err := Compile(src, nil, DefaultOptions())
	require.NoError(t, err)

	stage := out.Stage("Split_Vertex")
	require.NotNil(t, stage)
	var copyOutputs *ir.Function
	for _, f := range stage.Info.Library.Functions {
		if f.Key.Name == "CopyOutputs" {
			copyOutputs = f
		}
	}
	require.NotNil(t, copyOutputs)

	var members []uint32
	stores := 0
	for _, op := range copyOutputs.Blocks[0].Ops {
		switch {
		case op.Opcode == ir.OpStore:
			stores++
		case op.Opcode == ir.OpAccessChain && op.Operands[0] == copyOutputs.Params[0]:
			members = append(members, op.Operands[1].(*ir.Constant).Uint())
		}
	}
	var a *uint32
	for _, slot := range out.Unit.LookupType("Split").OrderedFields() {
		if slot.Field.Name == "A" {
			m := uint32(slot.Member)
			a = &m
		}
	}
	require.NotNil(t, a)
	assert.Equal(t, 1, stores, "one store per output slot")
	assert.Equal(t, []uint32{*a}, members, "the first linked field is written")

	require.NotEmpty(t, out.GLSL)
	for _, s := range out.GLSL {
		assert.Contains(t, s.Source, "self.A;", s.FileName())
		assert.NotContains(t, s.Source, "self.B;", s.FileName())
	}
}
