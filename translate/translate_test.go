// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package translate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/syntax"
)

const fadeDoc = `
name: Effects
types:
  - name: Fade
    file: Fade.frag
    line: 1
    attributes: [Pixel]
    fields:
      - name: Color
        type: Real4
        attributes: [StageInput, StageOutput]
      - name: Amount
        type: Real
        attributes: [PropertyInput]
        init: {kind: literal, type: Real, literal: "0.5"}
      - name: Steps
        type: Integer
        init: {kind: literal, type: Integer, literal: "3"}
      - name: Weights
        type: "FixedArray[Real, 4]"
    functions:
      - name: Main
        attributes: [Main]
        line: 10
        body:
          - kind: local
            name: i
            type: Integer
            init: {kind: literal, type: Integer, literal: "0"}
          - kind: while
            cond:
              kind: binary
              op: "<"
              type: Boolean
              x: {kind: name, type: Integer, name: i}
              y: {kind: member, type: Integer, member: Steps, x: {kind: this, type: Fade}}
            body:
              - kind: assign
                op: "*"
                target: {kind: member, type: Real4, member: Color, x: {kind: this, type: Fade}}
                value: {kind: call, type: Real, name: Weight, args: [{kind: name, type: Integer, name: i}]}
              - kind: assign
                op: "+"
                target: {kind: name, type: Integer, name: i}
                value: {kind: literal, type: Integer, literal: "1"}
          - kind: if
            cond:
              kind: binary
              op: ">"
              type: Boolean
              x: {kind: member, type: Real, member: x, x: {kind: member, type: Real4, member: Color, x: {kind: this, type: Fade}}}
              y: {kind: literal, type: Real, literal: "1.0"}
            then:
              - kind: return
            else:
              - kind: assign
                target: {kind: member, type: Real, member: w, x: {kind: member, type: Real4, member: Color, x: {kind: this, type: Fade}}}
                value: {kind: call, type: Real, owner: Math, name: Saturate, args: [{kind: member, type: Real, member: Amount, x: {kind: this, type: Fade}}]}
      - name: Weight
        params: [{name: index, type: Integer}]
        return: Real
        body:
          - kind: return
            value:
              kind: index
              type: Real
              x: {kind: member, type: "FixedArray[Real, 4]", member: Weights, x: {kind: this, type: Fade}}
              index: {kind: name, type: Integer, name: index}
`

func mustParse(t *testing.T, doc string) *syntax.Library {
	t.Helper()
	lib, err := syntax.Parse("test.yaml", []byte(doc))
	require.NoError(t, err)
	return lib
}

func TestTranslateProducesValidLibrary(t *testing.T) {
	unit, err := Translate(mustParse(t, fadeDoc), nil, Options{})
	require.NoError(t, err)

	info := unit.LookupType("Fade")
	require.NotNil(t, info)
	require.NotNil(t, info.Main)
	assert.True(t, info.DefaultConstructible)
	assert.Len(t, info.Type.Members, 4)
	assert.Equal(t, 1, info.Fields["Amount"].Member)

	errs, err := ir.Validate(unit.Library)
	require.NoError(t, err)
	assert.Empty(t, errs)

	for _, f := range unit.Library.Functions {
		for _, b := range f.Blocks {
			assert.True(t, b.Terminated(), "%s/%s", f.Name, b.Name)
		}
	}
}

func TestPreConstructorStoresInitializers(t *testing.T) {
	unit, err := Translate(mustParse(t, fadeDoc), nil, Options{})
	require.NoError(t, err)
	pre := unit.LookupType("Fade").PreConstructor
	require.NotNil(t, pre)

	stores := 0
	for _, op := range pre.Blocks[0].Ops {
		if op.Opcode == ir.OpStore {
			stores++
		}
	}
	assert.Equal(t, 2, stores)
}

func TestWhileLoopIsStructured(t *testing.T) {
	unit, err := Translate(mustParse(t, fadeDoc), nil, Options{})
	require.NoError(t, err)
	main := unit.LookupType("Fade").Main

	var merges, selections int
	for _, b := range main.Blocks {
		for _, op := range b.Ops {
			switch op.Opcode {
			case ir.OpLoopMerge:
				merges++
			case ir.OpSelectionMerge:
				selections++
			}
		}
	}
	assert.Equal(t, 1, merges)
	assert.Equal(t, 1, selections)
}

const brokenDoc = `
name: Broken
types:
  - name: Broken
    file: Broken.frag
    attributes: [Vertex]
    fields:
      - name: Value
        type: Real
    functions:
      - name: First
        line: 4
        body:
          - kind: expr
            line: 5
            x: {kind: call, type: Real, owner: Math, name: Frobnicate, args: [{kind: literal, type: Real, literal: "1"}]}
      - name: Second
        line: 8
        body:
          - kind: assign
            line: 9
            target: {kind: member, type: Real, member: Missing, x: {kind: this, type: Broken}}
            value: {kind: literal, type: Real, literal: "2"}
      - name: Third
        return: Real
        body:
          - kind: return
            value: {kind: member, type: Real, member: Value, x: {kind: this, type: Broken}}
`

func TestResolutionErrorsAccumulate(t *testing.T) {
	var events []*diag.Error
	list := diag.NewList(func(e *diag.Error) { events = append(events, e) })

	_, err := Translate(mustParse(t, brokenDoc), nil, Options{Diag: list})
	require.Error(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, diag.KindResolution, e.Kind)
		assert.Equal(t, "Broken.frag", e.Location.File)
	}
	assert.Equal(t, 5, events[0].Location.Line)
	assert.Contains(t, events[0].Message, "Frobnicate")
	assert.Equal(t, 9, events[1].Location.Line)
	assert.Contains(t, events[1].Message, "Missing")
}

const ctorDoc = `
name: Ctors
types:
  - name: Needy
    constructors:
      - name: Needy
        params: [{name: seed, type: Real}]
  - name: Easy
    constructors:
      - name: Easy
  - name: User
    fields:
      - name: Helper
        type: Easy
    functions:
      - name: Make
        return: Easy
        body:
          - kind: return
            value: {kind: construct, type: Easy}
`

func TestDefaultConstructibility(t *testing.T) {
	unit, err := Translate(mustParse(t, ctorDoc), nil, Options{})
	require.NoError(t, err)

	assert.False(t, unit.LookupType("Needy").DefaultConstructible)
	assert.True(t, unit.LookupType("Easy").DefaultConstructible)
	assert.True(t, unit.LookupType("User").DefaultConstructible)
	assert.True(t, unit.Registry.HasDefaultConstructor("Easy"))
	assert.False(t, unit.Registry.HasDefaultConstructor("Needy"))
}

func TestDependentUnitsShareTypes(t *testing.T) {
	base, err := Translate(mustParse(t, ctorDoc), nil, Options{})
	require.NoError(t, err)

	doc := `
name: Derived
types:
  - name: Holder
    fields:
      - name: Inner
        type: Easy
`
	derived, err := Translate(mustParse(t, doc), []*Unit{base}, Options{})
	require.NoError(t, err)
	holder := derived.LookupType("Holder")
	require.NotNil(t, holder)
	assert.Same(t, base.LookupType("Easy").Type, holder.Fields["Inner"].Type)
	assert.Same(t, base.LookupType("Easy"), derived.LookupType("Easy"))
}

func TestNilDependencyIsStructural(t *testing.T) {
	_, err := Translate(mustParse(t, ctorDoc), []*Unit{nil}, Options{})
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindStructural))
}

func TestDuplicateTypeIsStructural(t *testing.T) {
	doc := `
name: Dup
types:
  - name: Real
`
	_, err := Translate(mustParse(t, doc), nil, Options{})
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindStructural))
}

const weightsDoc = `
name: Weights
types:
  - name: Blend
    file: Blend.frag
    fields:
      - name: Weights
        type: "FixedArray[Real, 4]"
      - name: Total
        type: Real
    functions:
      - name: Pick
        line: 8
        body:
          - kind: assign
            target: {kind: member, type: Real, member: Total, x: {kind: this, type: Blend}}
            value:
              kind: index
              type: Real
              x: {kind: member, type: "FixedArray[Real, 4]", member: Weights, x: {kind: this, type: Blend}}
              index: {kind: literal, type: Integer, literal: "%s"}
`

func TestLiteralIndexBounds(t *testing.T) {
	tests := []struct {
		literal string
		inRange bool
	}{
		{"3", true},
		{"0x3", true},
		{"0b11", true},
		{"4", false},
		{"0x9", false},
		{"0o17", false},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			list := diag.NewList(nil)
			doc := fmt.Sprintf(weightsDoc, tt.literal)
			_, err := Translate(mustParse(t, doc), nil, Options{Diag: list})
			if tt.inRange {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, 1, list.Len())
			assert.Equal(t, diag.KindInterface, list.Errors()[0].Kind)
			assert.Contains(t, list.Errors()[0].Message, "out of range")
		})
	}
}
