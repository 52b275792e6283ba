// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package resolve

import (
	"fmt"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/syntax"
)

// Template names.
const (
	TemplateFixedArray     = "FixedArray"
	TemplateRuntimeArray   = "RuntimeArray"
	TemplatePointInput     = "PointInput"
	TemplateLineInput      = "LineInput"
	TemplateTriangleInput  = "TriangleInput"
	TemplatePointOutput    = "PointOutput"
	TemplateLineOutput     = "LineOutput"
	TemplateTriangleOutput = "TriangleOutput"
)

// RegisterTemplates registers the array and geometry stream templates.
func RegisterTemplates(r *Registry) {
	r.RegisterTemplate(TemplateFixedArray, instantiateFixedArray)
	r.RegisterTemplate(TemplateRuntimeArray, instantiateRuntimeArray)
	r.RegisterTemplate(TemplatePointInput, inputStream(PrimitivePoint))
	r.RegisterTemplate(TemplateLineInput, inputStream(PrimitiveLine))
	r.RegisterTemplate(TemplateTriangleInput, inputStream(PrimitiveTriangle))
	r.RegisterTemplate(TemplatePointOutput, outputStream(PrimitivePoint))
	r.RegisterTemplate(TemplateLineOutput, outputStream(PrimitiveLine))
	r.RegisterTemplate(TemplateTriangleOutput, outputStream(PrimitiveTriangle))
}

func typeArgs(args []TemplateArg, values int) error {
	if len(args) != 1+values {
		return fmt.Errorf("expects %d template arguments, got %d", 1+values, len(args))
	}
	if args[0].IsValue {
		return fmt.Errorf("first template argument must be a type")
	}
	for _, a := range args[1:] {
		if !a.IsValue {
			return fmt.Errorf("template argument %s must be an integer", a.Ref)
		}
	}
	return nil
}

func instantiateFixedArray(r *Registry, ref syntax.TypeRef, args []TemplateArg) (*TypeResolvers, error) {
	if err := typeArgs(args, 1); err != nil {
		return nil, err
	}
	if args[1].Value <= 0 {
		return nil, fmt.Errorf("array length must be positive, got %d", args[1].Value)
	}
	n := uint32(args[1].Value)
	tr := r.Declare(ref.String(), r.Library.FixedArrayType(args[0].Type, n))
	tr.Element = args[0].Type
	tr.Length = n
	addArrayResolvers(tr, ref.String(), args[0].Ref.String())

	tr.DefaultConstructor = func(ctx *Context, _ []ir.Value) ir.Value {
		return ctx.Library().ConstantNull(tr.Type)
	}
	tr.BackupConstructor = func(ctx *Context, args []ir.Value) ir.Value {
		if uint32(len(args)) != n {
			ctx.Errorf(diag.KindInterface, "initializer list for %s has %d values, expected %d", tr.Name, len(args), n)
			return ctx.Placeholder(tr.Type)
		}
		return ctx.Builder.CompositeConstruct(tr.Type, args...)
	}
	return tr, nil
}

// addArrayResolvers installs Count, Get, Set and the indexer for a fixed
// length array type.
func addArrayResolvers(tr *TypeResolvers, name, element string) {
	count := func(ctx *Context, _ ir.Value) ir.Value {
		return ctx.Library().ConstantInt(int32(tr.Length))
	}
	tr.Fields["Count"] = count
	tr.AddFunction("Count", "", func(ctx *Context, self ir.Value, _ []ir.Value) ir.Value {
		return count(ctx, self)
	})
	tr.Indexer = func(ctx *Context, base ir.Value, index Index) ir.Value {
		return fixedIndex(ctx, tr, base, index)
	}
	tr.AddFunction("Get", "Integer", func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
		return ctx.Value(fixedIndex(ctx, tr, self, Index{Value: args[0]}))
	})
	tr.AddFunction("Set", Signature("Integer", element), func(ctx *Context, self ir.Value, args []ir.Value) ir.Value {
		ptr := fixedIndex(ctx, tr, self, Index{Value: args[0]})
		if t := ir.TypeOf(ptr); t == nil || t.Kind != ir.KindPointer {
			ctx.Errorf(diag.KindInterface, "%s.Set needs an assignable array", name)
			return nil
		}
		ctx.Builder.Store(ptr, args[1])
		return nil
	})
}

// fixedIndex indexes a fixed length array. Literal indices are checked
// against the length; an out of range literal is reported and replaced by
// a placeholder.
func fixedIndex(ctx *Context, tr *TypeResolvers, base ir.Value, index Index) ir.Value {
	if index.IsLiteral && (index.Literal < 0 || uint32(index.Literal) >= tr.Length) {
		ctx.Errorf(diag.KindInterface, "index %d is out of range for %s (valid range is 0 to %d)", index.Literal, tr.Name, tr.Length-1)
		return ctx.Placeholder(tr.Element)
	}
	t := ir.TypeOf(base)
	if t != nil && t.Kind == ir.KindPointer {
		return ctx.Builder.AccessChain(base, tr.Element, index.Value)
	}
	if index.IsLiteral {
		return ctx.Builder.CompositeExtract(base, tr.Element, uint32(index.Literal))
	}
	return ctx.Builder.Load(ctx.Builder.AccessChain(ctx.Addressable(base), tr.Element, index.Value))
}

func instantiateRuntimeArray(r *Registry, ref syntax.TypeRef, args []TemplateArg) (*TypeResolvers, error) {
	if err := typeArgs(args, 0); err != nil {
		return nil, err
	}
	tr := r.Declare(ref.String(), r.Library.RuntimeArrayType(args[0].Type))
	tr.Element = args[0].Type
	tr.Indexer = func(ctx *Context, base ir.Value, index Index) ir.Value {
		if t := ir.TypeOf(base); t == nil || t.Kind != ir.KindPointer {
			ctx.Errorf(diag.KindInterface, "%s can only be indexed through a buffer", tr.Name)
			return ctx.Placeholder(tr.Element)
		}
		return ctx.Builder.AccessChain(base, tr.Element, index.Value)
	}
	tr.Fields["Count"] = func(ctx *Context, base ir.Value) ir.Value {
		chain, ok := base.(*ir.Op)
		if !ok || chain.Opcode != ir.OpAccessChain || len(chain.Operands) != 2 {
			ctx.Errorf(diag.KindInterface, "%s.Count needs a buffer member", tr.Name)
			return ctx.Placeholder(ctx.Library().IntType(32, false))
		}
		member := chain.Operands[1].(*ir.Constant).Uint()
		return ctx.Builder.Emit(ir.OpArrayLength, ctx.Library().IntType(32, false), chain.Operands[0], ir.Literal(member))
	}
	return tr, nil
}

func inputStream(p Primitive) Instantiator {
	return func(r *Registry, ref syntax.TypeRef, args []TemplateArg) (*TypeResolvers, error) {
		if err := typeArgs(args, 0); err != nil {
			return nil, err
		}
		n := p.Vertices()
		tr := r.Declare(ref.String(), r.Library.FixedArrayType(args[0].Type, n))
		tr.Element = args[0].Type
		tr.Length = n
		tr.Stream = &Stream{Kind: StreamInput, Primitive: p, Vertex: args[0].Ref, VertexType: args[0].Type}
		addArrayResolvers(tr, ref.String(), args[0].Ref.String())
		return tr, nil
	}
}

func outputStream(p Primitive) Instantiator {
	return func(r *Registry, ref syntax.TypeRef, args []TemplateArg) (*TypeResolvers, error) {
		if err := typeArgs(args, 0); err != nil {
			return nil, err
		}
		lib := r.Library
		name := ref.String()
		stream := lib.DeclareStruct(name)
		tr := r.Declare(name, stream)
		tr.Element = args[0].Type

		key := ir.FunctionKey{Owner: name, Name: "Append", Signature: Signature(args[0].Ref.String(), "Integer")}
		shell, _ := lib.FindOrCreateFunction(key, lib.VoidType())
		shell.LateBound = true
		if len(shell.Params) == 0 {
			shell.AddParam("vertex", args[0].Type)
			shell.AddParam("provoking", lib.IntType(32, true))
		}
		tr.Stream = &Stream{Kind: StreamOutput, Primitive: p, Vertex: args[0].Ref, VertexType: args[0].Type, Append: shell}

		tr.DefaultConstructor = func(ctx *Context, _ []ir.Value) ir.Value {
			return ctx.Library().ConstantNull(stream)
		}
		tr.AddFunction("Append", Signature(args[0].Ref.String(), "Integer"), func(ctx *Context, _ ir.Value, args []ir.Value) ir.Value {
			return ctx.Builder.Call(shell, args[0], args[1])
		})
		tr.AddFunction("Append", args[0].Ref.String(), func(ctx *Context, _ ir.Value, args []ir.Value) ir.Value {
			return ctx.Builder.Call(shell, args[0], ctx.Library().ConstantInt(0))
		})
		tr.AddFunction("Restart", "", func(ctx *Context, _ ir.Value, _ []ir.Value) ir.Value {
			ctx.Builder.Emit(ir.OpEndPrimitive, nil)
			return nil
		})
		return tr, nil
	}
}
