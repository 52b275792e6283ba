// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package resolve

import (
	"math"

	"github.com/gogpu/fragc/ir"
)

type arith struct {
	op          string
	integer, fp ir.Opcode
}

var arithmetic = []arith{
	{"+", ir.OpIAdd, ir.OpFAdd},
	{"-", ir.OpISub, ir.OpFSub},
	{"*", ir.OpIMul, ir.OpFMul},
	{"/", ir.OpSDiv, ir.OpFDiv},
	{"%", ir.OpSMod, ir.OpFMod},
}

var comparisons = []arith{
	{"==", ir.OpIEqual, ir.OpFOrdEqual},
	{"!=", ir.OpINotEqual, ir.OpFOrdNotEqual},
	{"<", ir.OpSLessThan, ir.OpFOrdLessThan},
	{"<=", ir.OpSLessThanEqual, ir.OpFOrdLessThanEqual},
	{">", ir.OpSGreaterThan, ir.OpFOrdGreaterThan},
	{">=", ir.OpSGreaterThanEqual, ir.OpFOrdGreaterThanEqual},
}

func binary(opcode ir.Opcode, result func(ctx *Context, x ir.Value) *ir.Type) OperatorResolver {
	return func(ctx *Context, x, y ir.Value) ir.Value {
		return ctx.Builder.Emit(opcode, result(ctx, x), x, y)
	}
}

func sameAs(_ *Context, x ir.Value) *ir.Type {
	return ir.TypeOf(x)
}

func boolOf(ctx *Context, x ir.Value) *ir.Type {
	t := ir.TypeOf(x)
	if t.Kind == ir.KindVector {
		return ctx.Library().VectorType(ctx.Library().BoolType(), t.Count)
	}
	return ctx.Library().BoolType()
}

func registerOperators(r *Registry) {
	for _, family := range []string{Integer, Real} {
		for n := uint32(1); n <= 4; n++ {
			name := VectorName(family, n)
			scalar := VectorName(family, 1)
			for _, a := range arithmetic {
				opcode := a.integer
				if family == Real {
					opcode = a.fp
				}
				r.RegisterOperator(a.op, name, name, binary(opcode, sameAs))
				if n == 1 {
					continue
				}
				if a.op == "*" && family == Real {
					r.RegisterOperator("*", name, scalar, binary(ir.OpVectorTimesScalar, sameAs))
					r.RegisterOperator("*", scalar, name, func(ctx *Context, x, y ir.Value) ir.Value {
						return ctx.Builder.Emit(ir.OpVectorTimesScalar, ir.TypeOf(y), y, x)
					})
					continue
				}
				r.RegisterOperator(a.op, name, scalar, func(ctx *Context, x, y ir.Value) ir.Value {
					t := ir.TypeOf(x)
					return ctx.Builder.Emit(opcode, t, x, Splat(ctx.Builder, y, t))
				})
				r.RegisterOperator(a.op, scalar, name, func(ctx *Context, x, y ir.Value) ir.Value {
					t := ir.TypeOf(y)
					return ctx.Builder.Emit(opcode, t, Splat(ctx.Builder, x, t), y)
				})
			}
			for _, c := range comparisons {
				opcode := c.integer
				if family == Real {
					opcode = c.fp
				}
				if n == 1 {
					r.RegisterOperator(c.op, name, name, binary(opcode, boolOf))
					continue
				}
				if c.op != "==" && c.op != "!=" {
					continue
				}
				reduce := ir.OpAll
				if c.op == "!=" {
					reduce = ir.OpAny
				}
				r.RegisterOperator(c.op, name, name, func(ctx *Context, x, y ir.Value) ir.Value {
					components := ctx.Builder.Emit(opcode, boolOf(ctx, x), x, y)
					return ctx.Builder.Emit(reduce, ctx.Library().BoolType(), components)
				})
			}
			negate := ir.OpSNegate
			if family == Real {
				negate = ir.OpFNegate
			}
			r.RegisterUnary("-", name, func(ctx *Context, x ir.Value) ir.Value {
				return ctx.Builder.Emit(negate, ir.TypeOf(x), x)
			})
			r.RegisterUnary("+", name, func(_ *Context, x ir.Value) ir.Value { return x })
		}
	}

	for n := uint32(1); n <= 4; n++ {
		name := VectorName(Boolean, n)
		r.RegisterUnary("!", name, func(ctx *Context, x ir.Value) ir.Value {
			return ctx.Builder.Emit(ir.OpLogicalNot, ir.TypeOf(x), x)
		})
		r.RegisterOperator("==", name, name, binary(ir.OpLogicalEqual, sameAs))
		r.RegisterOperator("!=", name, name, binary(ir.OpLogicalNotEqual, sameAs))
	}
	r.RegisterOperator("&&", Boolean, Boolean, binary(ir.OpLogicalAnd, sameAs))
	r.RegisterOperator("||", Boolean, Boolean, binary(ir.OpLogicalOr, sameAs))

	for n := uint32(2); n <= 4; n++ {
		mat := MatrixName(n)
		vec := VectorName(Real, n)
		r.RegisterOperator("*", mat, vec, func(ctx *Context, x, y ir.Value) ir.Value {
			return ctx.Builder.Emit(ir.OpMatrixTimesVector, ir.TypeOf(y), x, y)
		})
		r.RegisterOperator("*", vec, mat, binary(ir.OpVectorTimesMatrix, sameAs))
		r.RegisterOperator("*", mat, mat, binary(ir.OpMatrixTimesMatrix, sameAs))
		r.RegisterOperator("*", mat, Real, binary(ir.OpMatrixTimesScalar, sameAs))
		r.RegisterOperator("*", Real, mat, func(ctx *Context, x, y ir.Value) ir.Value {
			return ctx.Builder.Emit(ir.OpMatrixTimesScalar, ir.TypeOf(y), y, x)
		})
	}
}

func registerCasts(r *Registry) {
	families := []string{Boolean, Integer, Real}
	for n := uint32(1); n <= 4; n++ {
		for _, from := range families {
			for _, to := range families {
				if from == to {
					continue
				}
				r.RegisterCast(VectorName(from, n), VectorName(to, n), func(ctx *Context, x ir.Value, t *ir.Type) ir.Value {
					return Convert(ctx.Builder, x, t)
				})
			}
		}
	}
}

// One returns the constant 1 of scalar or vector type t (true for booleans).
func One(lib *ir.Library, t *ir.Type) *ir.Constant {
	s := t.Scalar()
	var c *ir.Constant
	switch s.Kind {
	case ir.KindBool:
		c = lib.ConstantBool(true)
	case ir.KindFloat:
		c = lib.ConstantScalar(s, math.Float32bits(1))
	default:
		c = lib.ConstantScalar(s, 1)
	}
	return splatConstant(lib, c, t)
}

func splatConstant(lib *ir.Library, c *ir.Constant, t *ir.Type) *ir.Constant {
	if t.Kind != ir.KindVector {
		return c
	}
	parts := make([]*ir.Constant, t.Count)
	for i := range parts {
		parts[i] = c
	}
	return lib.ConstantComposite(t, parts...)
}

// Convert converts v to type to component-wise. Booleans become 0 or 1 and
// numbers become booleans by comparing against zero.
func Convert(b *ir.Builder, v ir.Value, to *ir.Type) ir.Value {
	from := ir.TypeOf(v)
	if from == to {
		return v
	}
	lib := b.Library
	fs, ts := from.Scalar(), to.Scalar()
	switch {
	case fs.Kind == ir.KindBool:
		return b.Emit(ir.OpSelect, to, v, One(lib, to), lib.ConstantNull(to))
	case ts.Kind == ir.KindBool:
		if fs.Kind == ir.KindFloat {
			return b.Emit(ir.OpFOrdNotEqual, to, v, lib.ConstantNull(from))
		}
		return b.Emit(ir.OpINotEqual, to, v, lib.ConstantNull(from))
	case fs.Kind == ir.KindInt && ts.Kind == ir.KindFloat:
		if fs.Signed {
			return b.Emit(ir.OpConvertSToF, to, v)
		}
		return b.Emit(ir.OpConvertUToF, to, v)
	case fs.Kind == ir.KindFloat && ts.Kind == ir.KindInt:
		if ts.Signed {
			return b.Emit(ir.OpConvertFToS, to, v)
		}
		return b.Emit(ir.OpConvertFToU, to, v)
	}
	return b.Emit(ir.OpBitcast, to, v)
}
