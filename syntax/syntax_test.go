// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Real", "Real"},
		{"FixedArray[Real, 4]", "FixedArray[Real, 4]"},
		{"FixedArray[Real,4]", "FixedArray[Real, 4]"},
		{"TriangleOutput[FixedArray[Real2, 2]]", "TriangleOutput[FixedArray[Real2, 2]]"},
	}
	for _, tt := range tests {
		ref, err := ParseTypeRef(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, ref.String(), tt.in)
	}

	ref, err := ParseTypeRef("FixedArray[Real, 4]")
	require.NoError(t, err)
	require.Len(t, ref.Args, 2)
	assert.Equal(t, "Real", ref.Args[0].Type.Name)
	assert.True(t, ref.Args[1].IsValue)
	assert.Equal(t, 4, ref.Args[1].Value)

	for _, bad := range []string{"", "FixedArray[Real", "Real]"} {
		_, err := ParseTypeRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAttribute(t *testing.T) {
	a, err := ParseAttribute("StageInput(name: Uv0)")
	require.NoError(t, err)
	assert.Equal(t, "StageInput", a.Name)
	name, ok := a.NameOverride()
	assert.True(t, ok)
	assert.Equal(t, "Uv0", name)

	c, err := ParseAttribute("Compute(8, 4, 1)")
	require.NoError(t, err)
	require.Len(t, c.Params, 3)
	assert.Equal(t, "4", c.Params[1].Value)

	_, err = ParseAttribute("Broken(")
	assert.Error(t, err)
}

const shaderDoc = `
name: Shaders
dependencies: [Common]
types:
  - name: Tint
    file: Tint.frag
    line: 1
    attributes: [Pixel]
    fields:
      - name: Color
        type: Real4
        line: 3
        attributes: [StageInput, StageOutput]
      - name: Strength
        type: Real
        attributes: ["PropertyInput"]
        init: {kind: literal, type: Real, literal: "0.5"}
    functions:
      - name: Main
        attributes: [Main]
        line: 6
        body:
          - kind: assign
            line: 7
            target: {kind: member, type: Real4, member: Color, x: {kind: this, type: Tint}}
            op: "*"
            value:
              kind: member
              type: Real
              member: Strength
              x: {kind: this, type: Tint}
          - kind: if
            cond: {kind: binary, op: ">", type: Boolean, x: {kind: literal, type: Integer, literal: "2"}, y: {kind: literal, type: Integer, literal: "1"}}
            then:
              - kind: return
`

func TestParseDocument(t *testing.T) {
	lib, err := Parse("shaders.yaml", []byte(shaderDoc))
	require.NoError(t, err)

	assert.Equal(t, "Shaders", lib.Name)
	assert.Equal(t, []string{"Common"}, lib.Dependencies)

	tint := lib.Type("Tint")
	require.NotNil(t, tint)
	assert.True(t, tint.Attributes.Has("Pixel"))
	assert.Equal(t, "Tint.frag", tint.Location.File)

	color := tint.Field("Color")
	require.NotNil(t, color)
	assert.Equal(t, 3, color.Location.Line)
	assert.True(t, color.Attributes.Has("StageOutput"))

	strength := tint.Field("Strength")
	require.NotNil(t, strength.Initializer)
	assert.Equal(t, "Real", strength.Initializer.Type().Name)

	main := tint.FunctionWith("Main")
	require.NotNil(t, main)
	require.Len(t, main.Body, 2)

	assign, ok := main.Body[0].(*AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "*", assign.Op)
	assert.Equal(t, 7, assign.Loc().Line)
	member, ok := assign.Target.(*MemberExpr)
	require.True(t, ok)
	assert.IsType(t, &ThisExpr{}, member.X)

	cond := main.Body[1].(*IfStmt).Cond.(*BinaryExpr)
	n, ok := LiteralInt(cond.X)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestParseRejectsUnknownKinds(t *testing.T) {
	doc := `
name: Bad
types:
  - name: T
    functions:
      - name: F
        body:
          - kind: goto
`
	_, err := Parse("bad.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown statement kind "goto"`)
}

func TestMergeUnionsDependencies(t *testing.T) {
	a := &Library{Name: "P", Dependencies: []string{"Core"}, Types: []*TypeDecl{{Name: "A"}}}
	b := &Library{Dependencies: []string{"Core", "Lighting"}, Types: []*TypeDecl{{Name: "B"}}}
	a.Merge(b)
	assert.Equal(t, []string{"Core", "Lighting"}, a.Dependencies)
	assert.Len(t, a.Types, 2)
}

func TestLiteralInt(t *testing.T) {
	tests := []struct {
		typ, value string
		want       int
		ok         bool
	}{
		{"Integer", "12", 12, true},
		{"Integer", "0x9", 9, true},
		{"Integer", "-3", -3, true},
		{"Integer", "1_000", 1000, true},
		{"Integer", "0x100000000", 0, false},
		{"Integer", "1.5", 0, false},
		{"Real", "2", 0, false},
	}
	for _, tt := range tests {
		n, ok := LiteralInt(&LiteralExpr{Typed: Typed{Result: Named(tt.typ)}, Value: tt.value})
		assert.Equal(t, tt.ok, ok, tt.value)
		if tt.ok {
			assert.Equal(t, tt.want, n, tt.value)
		}
	}
}
