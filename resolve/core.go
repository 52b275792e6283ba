// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package resolve

import (
	"fmt"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
)

// CoreLibraryName is the name of the built-in library.
const CoreLibraryName = "Core"

// Scalar family names.
const (
	Boolean = "Boolean"
	Integer = "Integer"
	Real    = "Real"
)

// VectorName returns the host name of an n-component vector of family
// ("Real", 3 -> "Real3"); n == 1 names the scalar.
func VectorName(family string, n uint32) string {
	if n == 1 {
		return family
	}
	return fmt.Sprintf("%s%d", family, n)
}

// MatrixName returns the host name of an n by n Real matrix.
func MatrixName(n uint32) string {
	return fmt.Sprintf("Real%dx%d", n, n)
}

// NewCore builds the built-in library: scalar, vector, matrix, image and
// sampler types, operators, conversions, constructors, swizzles, Math
// functions, texture sampling, and the array and geometry stream templates.
func NewCore() (*Registry, error) {
	lib, err := ir.NewLibrary(CoreLibraryName)
	if err != nil {
		return nil, err
	}
	r := New(lib)
	lib.ExtInstImport(ir.GLSLStd450)

	r.Declare("Void", lib.VoidType())
	scalars := map[string]*ir.Type{
		Boolean: lib.BoolType(),
		Integer: lib.IntType(32, true),
		Real:    lib.FloatType(32),
	}
	for _, family := range []string{Boolean, Integer, Real} {
		for n := uint32(1); n <= 4; n++ {
			t := scalars[family]
			if n > 1 {
				t = lib.VectorType(scalars[family], n)
			}
			tr := r.Declare(VectorName(family, n), t)
			addValueConstructors(tr, n)
			if n > 1 {
				tr.BackupField = swizzle
			}
		}
	}
	for n := uint32(2); n <= 4; n++ {
		column := lib.VectorType(scalars[Real], n)
		tr := r.Declare(MatrixName(n), lib.MatrixType(column, n))
		addMatrixConstructors(tr, n)
	}

	registerOperators(r)
	registerCasts(r)
	registerImages(r)
	registerMath(r)
	RegisterTemplates(r)
	return r, nil
}

func addValueConstructors(tr *TypeResolvers, n uint32) {
	tr.DefaultConstructor = func(ctx *Context, _ []ir.Value) ir.Value {
		return ctx.Library().ConstantNull(tr.Type)
	}
	tr.BackupConstructor = func(ctx *Context, args []ir.Value) ir.Value {
		return construct(ctx, tr.Type, n, args)
	}
}

// construct builds a scalar or vector from arguments whose component counts
// add up to n. A single scalar argument is splatted.
func construct(ctx *Context, t *ir.Type, n uint32, args []ir.Value) ir.Value {
	if len(args) == 1 {
		at := ir.TypeOf(args[0])
		if n == 1 {
			return Convert(ctx.Builder, args[0], t)
		}
		if at.IsScalar() {
			v := Convert(ctx.Builder, args[0], t.Elem)
			return Splat(ctx.Builder, v, t)
		}
	}
	var parts []ir.Value
	total := uint32(0)
	for _, a := range args {
		at := ir.TypeOf(a)
		switch at.Kind {
		case ir.KindVector:
			total += at.Count
		default:
			total++
		}
		parts = append(parts, a)
	}
	if total != n || n == 1 {
		ctx.Errorf(diag.KindInterface, "constructor for %s takes %d components, got %d", t, n, total)
		return ctx.Placeholder(t)
	}
	return ctx.Builder.CompositeConstruct(t, parts...)
}

func addMatrixConstructors(tr *TypeResolvers, n uint32) {
	tr.DefaultConstructor = func(ctx *Context, _ []ir.Value) ir.Value {
		return ctx.Library().ConstantNull(tr.Type)
	}
	tr.BackupConstructor = func(ctx *Context, args []ir.Value) ir.Value {
		if uint32(len(args)) != n {
			ctx.Errorf(diag.KindInterface, "constructor for %s takes %d columns, got %d", tr.Name, n, len(args))
			return ctx.Placeholder(tr.Type)
		}
		return ctx.Builder.CompositeConstruct(tr.Type, args...)
	}
}

// Splat replicates scalar v into every component of vector t.
func Splat(b *ir.Builder, v ir.Value, t *ir.Type) ir.Value {
	if t.Kind != ir.KindVector {
		return v
	}
	if c, ok := v.(*ir.Constant); ok {
		parts := make([]*ir.Constant, t.Count)
		for i := range parts {
			parts[i] = c
		}
		return b.Library.ConstantComposite(t, parts...)
	}
	parts := make([]ir.Value, t.Count)
	for i := range parts {
		parts[i] = v
	}
	return b.CompositeConstruct(t, parts...)
}

// swizzle resolves vector component access: x, y, z, w (or r, g, b, a, in
// either case). A single component of an addressable vector stays
// addressable.
func swizzle(ctx *Context, base ir.Value, name string) (ir.Value, bool) {
	if len(name) == 0 || len(name) > 4 {
		return nil, false
	}
	indices := make([]uint32, len(name))
	for i, c := range name {
		switch c {
		case 'x', 'X', 'r', 'R':
			indices[i] = 0
		case 'y', 'Y', 'g', 'G':
			indices[i] = 1
		case 'z', 'Z', 'b', 'B':
			indices[i] = 2
		case 'w', 'W', 'a', 'A':
			indices[i] = 3
		default:
			return nil, false
		}
	}
	t := ir.TypeOf(base)
	vec := t
	if t.Kind == ir.KindPointer {
		vec = t.Pointee()
	}
	for _, i := range indices {
		if i >= vec.Count {
			ctx.Errorf(diag.KindInterface, "swizzle %s is out of range for %s", name, vec)
			return ctx.Placeholder(vec.Elem), true
		}
	}
	lib := ctx.Library()
	if len(indices) == 1 {
		if t.Kind == ir.KindPointer {
			return ctx.Builder.AccessChain(base, vec.Elem, lib.ConstantInt(int32(indices[0]))), true
		}
		return ctx.Builder.CompositeExtract(base, vec.Elem, indices[0]), true
	}
	v := ctx.Value(base)
	result := lib.VectorType(vec.Elem, uint32(len(indices)))
	operands := []ir.Value{v, v}
	for _, i := range indices {
		operands = append(operands, ir.Literal(i))
	}
	return ctx.Builder.Emit(ir.OpVectorShuffle, result, operands...), true
}
