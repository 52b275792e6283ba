// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package resolve

import (
	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
)

// Image and sampler host type names.
const (
	Image2d             = "Image2d"
	DepthImage2d        = "DepthImage2d"
	StorageImage2d      = "StorageImage2d"
	Sampler             = "Sampler"
	SampledImage2d      = "SampledImage2d"
	SampledDepthImage2d = "SampledDepthImage2d"
	MathLibrary         = "Math"
)

// imageOperandsLod is the Lod bit of SPIR-V image operands.
const imageOperandsLod = 0x2

// formatRgba32f is the storage image format used for StorageImage2d.
const formatRgba32f = 1

func registerImages(r *Registry) {
	lib := r.Library
	f32 := lib.FloatType(32)
	real4 := lib.VectorType(f32, 4)

	image := lib.ImageType(f32, ir.ImageInfo{Dim: ir.Dim2D})
	depth := lib.ImageType(f32, ir.ImageInfo{Dim: ir.Dim2D, Depth: true})
	storage := lib.ImageType(f32, ir.ImageInfo{Dim: ir.Dim2D, Storage: true, Format: formatRgba32f})

	r.Declare(Sampler, lib.SamplerType())
	for _, img := range []struct {
		name, sampled string
		t             *ir.Type
	}{
		{Image2d, SampledImage2d, image},
		{DepthImage2d, SampledDepthImage2d, depth},
	} {
		t := img.t
		combined := lib.SampledImageType(t)
		tr := r.Declare(img.name, t)
		tr.AddFunction("Sample", Signature(Sampler, VectorName(Real, 2)), func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
			si := ctx.Builder.Emit(ir.OpSampledImage, combined, ctx.Value(self), args[0])
			return ctx.Builder.Emit(ir.OpImageSampleImplicitLod, real4, si, args[1])
		})
		tr.AddFunction("SampleLod", Signature(Sampler, VectorName(Real, 2), Real), func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
			si := ctx.Builder.Emit(ir.OpSampledImage, combined, ctx.Value(self), args[0])
			return ctx.Builder.Emit(ir.OpImageSampleExplicitLod, real4, si, args[1], ir.Literal(imageOperandsLod), args[2])
		})

		str := r.Declare(img.sampled, combined)
		str.AddFunction("Sample", Signature(VectorName(Real, 2)), func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
			return ctx.Builder.Emit(ir.OpImageSampleImplicitLod, real4, ctx.Value(self), args[0])
		})
		str.AddFunction("SampleLod", Signature(VectorName(Real, 2), Real), func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
			return ctx.Builder.Emit(ir.OpImageSampleExplicitLod, real4, ctx.Value(self), args[0], ir.Literal(imageOperandsLod), args[1])
		})
	}

	tr := r.Declare(StorageImage2d, storage)
	tr.AddFunction("Load", Signature(VectorName(Integer, 2)), func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
		return ctx.Builder.Emit(ir.OpImageRead, real4, ctx.Value(self), args[0])
	})
	tr.AddFunction("Store", Signature(VectorName(Integer, 2), VectorName(Real, 4)), func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
		return ctx.Builder.Emit(ir.OpImageWrite, nil, ctx.Value(self), args[0], args[1])
	})
}

// mathFunc maps a Math function to a GLSL.std.450 instruction. Zero means
// the function has no variant for that component kind.
type mathFunc struct {
	float, signed uint32
	args          int
	scalar        bool
}

var mathFuncs = map[string]mathFunc{
	"Abs":        {float: 4, signed: 5, args: 1},
	"Round":      {float: 1, args: 1},
	"Floor":      {float: 8, args: 1},
	"Ceil":       {float: 9, args: 1},
	"Fract":      {float: 10, args: 1},
	"Sin":        {float: 13, args: 1},
	"Cos":        {float: 14, args: 1},
	"Tan":        {float: 15, args: 1},
	"Atan2":      {float: 25, args: 2},
	"Pow":        {float: 26, args: 2},
	"Exp":        {float: 27, args: 1},
	"Log":        {float: 28, args: 1},
	"Sqrt":       {float: 31, args: 1},
	"Min":        {float: 37, signed: 39, args: 2},
	"Max":        {float: 40, signed: 42, args: 2},
	"Clamp":      {float: 43, signed: 45, args: 3},
	"Lerp":       {float: 46, args: 3},
	"Step":       {float: 48, args: 2},
	"SmoothStep": {float: 49, args: 3},
	"Length":     {float: 66, args: 1, scalar: true},
	"Distance":   {float: 67, args: 2, scalar: true},
	"Cross":      {float: 68, args: 2},
	"Normalize":  {float: 69, args: 1},
	"Reflect":    {float: 71, args: 2},
}

var derivatives = map[string]ir.Opcode{
	"Ddx":    ir.OpDPdx,
	"Ddy":    ir.OpDPdy,
	"Fwidth": ir.OpFwidth,
}

func registerMath(r *Registry) {
	set := r.Library.ExtInstImport(ir.GLSLStd450)
	tr := r.Declare(MathLibrary, nil)
	tr.BackupFunction = func(ctx *Context, _ ir.Value, name string, args []ir.Value) (ir.Value, bool) {
		b := ctx.Builder
		if op, ok := derivatives[name]; ok {
			if !arity(ctx, name, args, 1) {
				return ctx.Placeholder(nil), true
			}
			return b.Emit(op, ir.TypeOf(args[0]), args[0]), true
		}
		switch name {
		case "Dot":
			if !arity(ctx, name, args, 2) {
				return ctx.Placeholder(nil), true
			}
			t := ir.TypeOf(args[0])
			return b.Emit(ir.OpDot, t.Scalar(), args[0], args[1]), true
		case "Saturate":
			if !arity(ctx, name, args, 1) {
				return ctx.Placeholder(nil), true
			}
			t := ir.TypeOf(args[0])
			lib := ctx.Library()
			return b.Emit(ir.OpExtInst, t, set, ir.Literal(mathFuncs["Clamp"].float), args[0],
				lib.ConstantNull(t), One(lib, t)), true
		}
		fn, ok := mathFuncs[name]
		if !ok {
			return nil, false
		}
		if !arity(ctx, name, args, fn.args) {
			return ctx.Placeholder(nil), true
		}
		t := ir.TypeOf(args[0])
		inst := fn.float
		if t.Scalar().Kind == ir.KindInt {
			inst = fn.signed
		}
		if inst == 0 {
			ctx.Errorf(diag.KindResolution, "Math.%s is not defined for %s", name, t)
			return ctx.Placeholder(t), true
		}
		result := t
		if fn.scalar {
			result = t.Scalar()
		}
		operands := []ir.Value{set, ir.Literal(inst)}
		operands = append(operands, args...)
		return b.Emit(ir.OpExtInst, result, operands...), true
	}
}

func arity(ctx *Context, name string, args []ir.Value, n int) bool {
	if len(args) == n {
		return true
	}
	ctx.Errorf(diag.KindResolution, "Math.%s takes %d arguments, got %d", name, n, len(args))
	return false
}
