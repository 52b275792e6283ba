// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T, name string, deps ...*Library) *Library {
	t.Helper()
	lib, err := NewLibrary(name, deps...)
	require.NoError(t, err)
	return lib
}

func TestNewLibraryRejectsNilDependency(t *testing.T) {
	_, err := NewLibrary("Shaders", nil)
	require.ErrorIs(t, err, ErrNilDependency)
}

func TestNewLibraryRejectsCycle(t *testing.T) {
	core := newTestLibrary(t, "Core")
	mid := newTestLibrary(t, "Mid", core)

	_, err := NewLibrary("Core", mid)
	require.ErrorIs(t, err, ErrDependencyCycle)
}

func TestStructuralTypesAreInterned(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	f32 := lib.FloatType(32)

	assert.Same(t, f32, lib.FloatType(32))
	assert.Same(t, lib.VectorType(f32, 4), lib.VectorType(lib.FloatType(32), 4))
	assert.NotSame(t, lib.VectorType(f32, 3), lib.VectorType(f32, 4))
	assert.Same(t, lib.FixedArrayType(f32, 4), lib.FixedArrayType(f32, 4))
	assert.NotSame(t, lib.IntType(32, true), lib.IntType(32, false))
}

func TestTypesAreSharedWithDependencies(t *testing.T) {
	core := newTestLibrary(t, "Core")
	vec := core.VectorType(core.FloatType(32), 2)
	core.RegisterTypeName("Real2", vec)

	lib := newTestLibrary(t, "Shaders", core)
	assert.Same(t, vec, lib.VectorType(lib.FloatType(32), 2))
	assert.Same(t, vec, lib.FindType("Real2"))
	assert.Empty(t, lib.Types, "nothing should be redeclared locally")
}

func TestStructsAreNominal(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	a := lib.DeclareStruct("A")
	b := lib.DeclareStruct("A")
	assert.NotSame(t, a, b)
}

func TestFindOrCreateInterfaceTypeIsIdempotent(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	st := lib.DeclareStruct("VertexOut")
	st.AddMember("Color", lib.VectorType(lib.FloatType(32), 4))

	out1 := lib.FindOrCreateInterfaceType(st, InterfaceBlock, StorageClassOutput)
	out2 := lib.FindOrCreateInterfaceType(st, InterfaceBlock, StorageClassOutput)
	in := lib.FindOrCreateInterfaceType(st, InterfaceBlock, StorageClassInput)

	assert.Same(t, out1, out2)
	assert.NotSame(t, out1, in)
	assert.Same(t, st, out1.Pointee())
	assert.Equal(t, StorageClassOutput, out1.StorageClass)
}

func TestBlockInterfaceSealsStruct(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	st := lib.DeclareStruct("PixelIn")
	st.AddMember("Uv", lib.VectorType(lib.FloatType(32), 2))

	lib.FindOrCreateInterfaceType(st, InterfaceFlat, StorageClassPrivate)
	assert.False(t, st.Sealed())

	lib.FindOrCreateInterfaceType(st, InterfaceBlock, StorageClassInput)
	assert.True(t, st.Sealed())
	assert.Panics(t, func() { st.AddMember("Late", lib.FloatType(32)) })
}

func TestPointerFromDependencyIsReused(t *testing.T) {
	core := newTestLibrary(t, "Core")
	f32 := core.FloatType(32)
	ptr := core.PointerType(f32, StorageClassFunction)

	lib := newTestLibrary(t, "Shaders", core)
	assert.Same(t, ptr, lib.PointerType(f32, StorageClassFunction))
}

func TestConstantsAreInterned(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	assert.Same(t, lib.ConstantInt(3), lib.ConstantInt(3))
	assert.NotSame(t, lib.ConstantInt(3), lib.ConstantUint(3))
	assert.Same(t, lib.ConstantBool(true), lib.ConstantBool(true))
	assert.InDelta(t, 1.5, lib.ConstantFloat(1.5).Float(), 0)

	vec := lib.VectorType(lib.FloatType(32), 2)
	one := lib.ConstantFloat(1)
	assert.Same(t, lib.ConstantComposite(vec, one, one), lib.ConstantComposite(vec, one, one))
}

func TestFindOrCreateFunction(t *testing.T) {
	core := newTestLibrary(t, "Core")
	key := FunctionKey{Owner: "Math", Name: "Saturate", Signature: "Real"}
	f, created := core.FindOrCreateFunction(key, core.FloatType(32))
	require.True(t, created)

	lib := newTestLibrary(t, "Shaders", core)
	g, created := lib.FindOrCreateFunction(key, lib.FloatType(32))
	assert.False(t, created)
	assert.Same(t, f, g)
	assert.Equal(t, "Math_Saturate", f.Name)
}

func TestBuildOpChecksOperandCount(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	f, _ := lib.FindOrCreateFunction(FunctionKey{Name: "f"}, lib.VoidType())
	block := f.AddBlock("entry")

	assert.Panics(t, func() { BuildOp(block, OpStore, nil, lib.ConstantInt(1)) })

	local := f.AddLocal("x", lib.IntType(32, true))
	op := BuildOp(block, OpStore, nil, local, lib.ConstantInt(1))
	assert.Same(t, op, block.Ops[0])
	assert.Same(t, block, op.Block)
}

func TestFinalizeBlocks(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	f32 := lib.FloatType(32)

	void, _ := lib.FindOrCreateFunction(FunctionKey{Name: "v"}, lib.VoidType())
	void.AddBlock("entry")

	scalar, _ := lib.FindOrCreateFunction(FunctionKey{Name: "r"}, f32)
	b := NewBuilder(scalar)
	b.Local("tmp", f32)

	done, _ := lib.FindOrCreateFunction(FunctionKey{Name: "d"}, f32)
	NewBuilder(done).ReturnValue(lib.ConstantFloat(2))

	shell, _ := lib.FindOrCreateFunction(FunctionKey{Name: "Append"}, lib.VoidType())
	shell.LateBound = true

	lib.FinalizeBlocks()

	assert.Equal(t, OpReturn, void.Blocks[0].Terminator().Opcode)

	term := scalar.Blocks[0].Terminator()
	require.NotNil(t, term)
	assert.Equal(t, OpReturnValue, term.Opcode)
	assert.Equal(t, ConstantKindNull, term.Operands[0].(*Constant).Kind)

	assert.Len(t, done.Blocks[0].Ops, 1, "terminated blocks are left alone")
	assert.Empty(t, shell.Blocks)

	errs, err := Validate(lib)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestBuilderOpensBlockAfterTerminator(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	f, _ := lib.FindOrCreateFunction(FunctionKey{Name: "f"}, lib.VoidType())
	b := NewBuilder(f)
	b.Return()
	b.Undef(lib.FloatType(32))

	require.Len(t, f.Blocks, 2)
	assert.True(t, f.Blocks[0].Terminated())
	assert.Len(t, f.Blocks[0].Ops, 1)
}

func TestValidateReportsMissingTerminator(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	f, _ := lib.FindOrCreateFunction(FunctionKey{Name: "f"}, lib.VoidType())
	NewBuilder(f).Undef(lib.FloatType(32))

	errs, err := Validate(lib)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "instead of a terminator")
	assert.Contains(t, errs[0].Error(), "in function f")
}

func TestValidateReportsUnboundLateFunction(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	shell, _ := lib.FindOrCreateFunction(FunctionKey{Name: "Append"}, lib.VoidType())
	shell.LateBound = true

	main, _ := lib.FindOrCreateFunction(FunctionKey{Name: "main"}, lib.VoidType())
	b := NewBuilder(main)
	b.Call(shell)
	b.Return()

	ep := &EntryPoint{Name: "Shader", Stage: StageGeometry, Function: main}
	lib.AddEntryPoint(ep)

	errs, _ := Validate(lib)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "no implementation")

	impl, _ := lib.FindOrCreateFunction(FunctionKey{Name: "Append", Signature: "impl"}, lib.VoidType())
	NewBuilder(impl).Return()
	ep.Bind(shell, impl)

	errs, _ = Validate(lib)
	assert.Empty(t, errs)
	assert.Same(t, impl, ep.Resolve(shell))
	assert.Len(t, ep.Reachable(), 3)
}

func TestDecorationSetDeduplicates(t *testing.T) {
	lib := newTestLibrary(t, "Shaders")
	st := lib.DeclareStruct("Material")
	st.AddMember("Tint", lib.VectorType(lib.FloatType(32), 4))
	g := lib.AddGlobal("material", st, StorageClassUniform, InterfaceBlock)

	d := NewDecorationSet()
	assert.True(t, d.Decorate(g, DecorationBinding, 2))
	assert.False(t, d.Decorate(g, DecorationBinding, 2))
	assert.True(t, d.DecorateMember(st, 0, DecorationOffset, 0))
	assert.Equal(t, 2, d.Len())
	assert.True(t, d.Has(g, DecorationBinding))

	entry, ok := d.Find(st, 0, DecorationOffset)
	require.True(t, ok)
	assert.Equal(t, []uint32{0}, entry.Params)

	assert.True(t, d.Decorate(st, DecorationBlock))
	assert.Equal(t, "Block", DecorationBlock.String())
}

func TestStageParsing(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"vertex", StageVertex},
		{"Pixel", StagePixel},
		{"fragment", StagePixel},
		{"GEOMETRY", StageGeometry},
		{"compute", StageCompute},
	}
	for _, tt := range tests {
		got, err := ParseStage(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseStage("hull")
	assert.Error(t, err)
	assert.Equal(t, ExecutionModelFragment, StagePixel.ExecutionModel())
}

func TestOpcodeNames(t *testing.T) {
	assert.Equal(t, "OpFOrdLessThan", OpFOrdLessThan.String())
	assert.Equal(t, "OpSelect", OpSelect.String())
	assert.True(t, OpKill.IsTerminator())
	assert.False(t, OpStore.HasResult())
	assert.True(t, OpLoad.HasResult())
}
