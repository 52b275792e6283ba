// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package resolve maps host-language constructs to translation callbacks.
//
// Each Registry belongs to one ir.Library. Lookups search the registry
// itself and then each dependency registry in registration order, depth
// first. Within a registry the exact resolver wins over the type-level
// backup resolver.
package resolve

import (
	"fmt"
	"strings"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/syntax"
)

// FieldResolver produces the value of a field of base. base is a pointer
// when the owner is addressable; the result should then be a pointer too.
type FieldResolver func(ctx *Context, base ir.Value) ir.Value

// BackupFieldResolver handles fields with no exact resolver, such as
// swizzles. ok is false when name is not handled.
type BackupFieldResolver func(ctx *Context, base ir.Value, name string) (v ir.Value, ok bool)

// FunctionResolver translates a call. self is the receiver (nil for static
// calls) and args are already loaded values.
type FunctionResolver func(ctx *Context, self ir.Value, args []ir.Value) ir.Value

// BackupFunctionResolver handles calls with no exact resolver.
type BackupFunctionResolver func(ctx *Context, self ir.Value, name string, args []ir.Value) (v ir.Value, ok bool)

// ConstructorResolver translates a construction with the given arguments.
type ConstructorResolver func(ctx *Context, args []ir.Value) ir.Value

// IndexResolver translates base[index].
type IndexResolver func(ctx *Context, base ir.Value, index Index) ir.Value

// OperatorResolver translates a binary operator.
type OperatorResolver func(ctx *Context, x, y ir.Value) ir.Value

// UnaryResolver translates a unary operator.
type UnaryResolver func(ctx *Context, x ir.Value) ir.Value

// CastResolver converts x to the type to.
type CastResolver func(ctx *Context, x ir.Value, to *ir.Type) ir.Value

// Index is an index operand. Literal is set when the index is an integer
// literal in source.
type Index struct {
	Value     ir.Value
	Literal   int
	IsLiteral bool
}

// StreamKind distinguishes geometry input and output streams.
type StreamKind uint8

const (
	StreamInput StreamKind = iota + 1
	StreamOutput
)

// Primitive is a geometry primitive kind.
type Primitive uint8

const (
	PrimitivePoint Primitive = iota + 1
	PrimitiveLine
	PrimitiveTriangle
)

// Vertices returns the number of vertices of the primitive.
func (p Primitive) Vertices() uint32 {
	switch p {
	case PrimitiveLine:
		return 2
	case PrimitiveTriangle:
		return 3
	default:
		return 1
	}
}

// Stream describes a geometry stream template instance.
type Stream struct {
	Kind      StreamKind
	Primitive Primitive
	Vertex    syntax.TypeRef
	// VertexType is the IR type of one vertex.
	VertexType *ir.Type
	// Append is the late-bound append declaration of output streams.
	Append *ir.Function
}

// TypeResolvers is the callback table of one host type.
type TypeResolvers struct {
	Name string
	Type *ir.Type

	Constructors       map[string]ConstructorResolver
	DefaultConstructor ConstructorResolver
	BackupConstructor  ConstructorResolver

	Fields      map[string]FieldResolver
	BackupField BackupFieldResolver

	Functions      map[string]FunctionResolver
	BackupFunction BackupFunctionResolver

	Indexer IndexResolver

	// Template is set for template instances.
	Template *TemplateKey
	// Element is the element type of arrays and streams.
	Element *ir.Type
	// Length is the fixed length of arrays and input streams.
	Length uint32
	// Stream is set for geometry stream instances.
	Stream *Stream
}

func newTypeResolvers(name string, t *ir.Type) *TypeResolvers {
	return &TypeResolvers{
		Name:         name,
		Type:         t,
		Constructors: make(map[string]ConstructorResolver),
		Fields:       make(map[string]FieldResolver),
		Functions:    make(map[string]FunctionResolver),
	}
}

// FunctionKey returns the table key of a function: "Name(Sig)".
func FunctionKey(name, signature string) string {
	return name + "(" + signature + ")"
}

// Signature joins argument type names.
func Signature(types ...string) string {
	return strings.Join(types, ",")
}

// AddFunction registers an exact function resolver.
func (tr *TypeResolvers) AddFunction(name, signature string, fn FunctionResolver) {
	tr.Functions[FunctionKey(name, signature)] = fn
}

// OperatorKey identifies a binary operator overload.
type OperatorKey struct {
	Op          string
	Left, Right string
}

// UnaryKey identifies a unary operator overload.
type UnaryKey struct {
	Op      string
	Operand string
}

// CastKey identifies a conversion.
type CastKey struct {
	From, To string
}

// TemplateKey identifies a template instance: the template name and its
// canonical argument list.
type TemplateKey struct {
	Name string
	Args string
}

// TemplateArg is a resolved template argument.
type TemplateArg struct {
	Ref     syntax.TypeRef
	Type    *ir.Type
	Value   int
	IsValue bool
}

// Instantiator declares one template instance in r.
type Instantiator func(r *Registry, ref syntax.TypeRef, args []TemplateArg) (*TypeResolvers, error)

// Registry holds the resolver tables of one library.
type Registry struct {
	Library *ir.Library

	deps      []*Registry
	types     map[string]*TypeResolvers
	operators map[OperatorKey]OperatorResolver
	unary     map[UnaryKey]UnaryResolver
	casts     map[CastKey]CastResolver
	templates map[string]Instantiator
	instances map[TemplateKey]*TypeResolvers
}

// New creates a registry for lib over dependency registries.
func New(lib *ir.Library, deps ...*Registry) *Registry {
	return &Registry{
		Library:   lib,
		deps:      deps,
		types:     make(map[string]*TypeResolvers),
		operators: make(map[OperatorKey]OperatorResolver),
		unary:     make(map[UnaryKey]UnaryResolver),
		casts:     make(map[CastKey]CastResolver),
		templates: make(map[string]Instantiator),
		instances: make(map[TemplateKey]*TypeResolvers),
	}
}

// Dependencies returns the dependency registries in registration order.
func (r *Registry) Dependencies() []*Registry {
	return r.deps
}

func (r *Registry) visit(fn func(*Registry) bool) bool {
	if fn(r) {
		return true
	}
	for _, dep := range r.deps {
		if dep.visit(fn) {
			return true
		}
	}
	return false
}

// Declare registers a host type backed by t and returns its empty table.
// A nil t declares a static-only type such as Math.
func (r *Registry) Declare(name string, t *ir.Type) *TypeResolvers {
	tr := newTypeResolvers(name, t)
	r.types[name] = tr
	if t != nil {
		r.Library.RegisterTypeName(name, t)
	}
	return tr
}

// Extend returns this registry's table for an existing host type, creating
// it when the type was declared in a dependency. Extension tables are
// searched before the dependency's own table.
func (r *Registry) Extend(name string) *TypeResolvers {
	if tr := r.types[name]; tr != nil {
		return tr
	}
	var t *ir.Type
	if base := r.Lookup(name); base != nil {
		t = base.Type
	}
	tr := newTypeResolvers(name, t)
	r.types[name] = tr
	return tr
}

// Lookup returns the first table registered for name.
func (r *Registry) Lookup(name string) *TypeResolvers {
	var found *TypeResolvers
	r.visit(func(reg *Registry) bool {
		found = reg.types[name]
		return found != nil
	})
	return found
}

// RegisterTemplate registers a template instantiator.
func (r *Registry) RegisterTemplate(name string, fn Instantiator) {
	r.templates[name] = fn
}

// Resolvers returns the table of ref, instantiating templates on first use.
// Instances are memoized per TemplateKey; an instance already declared by a
// dependency is reused.
func (r *Registry) Resolvers(ref syntax.TypeRef) (*TypeResolvers, error) {
	if !ref.IsTemplate() {
		if tr := r.Lookup(ref.Name); tr != nil {
			return tr, nil
		}
		return nil, fmt.Errorf("unknown type %s", ref.Name)
	}

	args := make([]string, len(ref.Args))
	for i, a := range ref.Args {
		args[i] = a.String()
	}
	key := TemplateKey{Name: ref.Name, Args: strings.Join(args, ",")}

	var found *TypeResolvers
	r.visit(func(reg *Registry) bool {
		found = reg.instances[key]
		return found != nil
	})
	if found != nil {
		return found, nil
	}

	var inst Instantiator
	r.visit(func(reg *Registry) bool {
		inst = reg.templates[ref.Name]
		return inst != nil
	})
	if inst == nil {
		return nil, fmt.Errorf("unknown template %s", ref.Name)
	}

	resolved := make([]TemplateArg, len(ref.Args))
	for i, a := range ref.Args {
		if a.IsValue {
			resolved[i] = TemplateArg{Value: a.Value, IsValue: true}
			continue
		}
		t, err := r.ResolveType(*a.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		resolved[i] = TemplateArg{Ref: *a.Type, Type: t}
	}

	tr, err := inst(r, ref, resolved)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	tr.Template = &key
	r.instances[key] = tr
	return tr, nil
}

// ResolveType returns the IR type of ref.
func (r *Registry) ResolveType(ref syntax.TypeRef) (*ir.Type, error) {
	if ref.IsVoid() {
		return r.Library.VoidType(), nil
	}
	tr, err := r.Resolvers(ref)
	if err != nil {
		return nil, err
	}
	if tr.Type == nil {
		return nil, fmt.Errorf("%s is not a value type", ref)
	}
	return tr.Type, nil
}

// Field translates base.name for a value of host type typeName.
func (r *Registry) Field(ctx *Context, typeName, name string, base ir.Value) (ir.Value, bool) {
	var result ir.Value
	handled := r.visit(func(reg *Registry) bool {
		tr := reg.types[typeName]
		if tr == nil {
			return false
		}
		if fn, ok := tr.Fields[name]; ok {
			result = fn(ctx, base)
			return true
		}
		if tr.BackupField != nil {
			if v, ok := tr.BackupField(ctx, base, name); ok {
				result = v
				return true
			}
		}
		return false
	})
	return result, handled
}

// Call translates a call of name with the given argument signature on host
// type typeName.
func (r *Registry) Call(ctx *Context, typeName, name, signature string, self ir.Value, args []ir.Value) (ir.Value, bool) {
	key := FunctionKey(name, signature)
	var result ir.Value
	handled := r.visit(func(reg *Registry) bool {
		tr := reg.types[typeName]
		if tr == nil {
			return false
		}
		if fn, ok := tr.Functions[key]; ok {
			result = fn(ctx, self, args)
			return true
		}
		if tr.BackupFunction != nil {
			if v, ok := tr.BackupFunction(ctx, self, name, args); ok {
				result = v
				return true
			}
		}
		return false
	})
	return result, handled
}

// Construct translates construction of typeName. An empty signature
// selects the default constructor.
func (r *Registry) Construct(ctx *Context, typeName, signature string, args []ir.Value) (ir.Value, bool) {
	var result ir.Value
	handled := r.visit(func(reg *Registry) bool {
		tr := reg.types[typeName]
		if tr == nil {
			return false
		}
		if signature == "" && tr.DefaultConstructor != nil {
			result = tr.DefaultConstructor(ctx, nil)
			return true
		}
		if fn, ok := tr.Constructors[signature]; ok {
			result = fn(ctx, args)
			return true
		}
		if signature != "" && tr.BackupConstructor != nil {
			result = tr.BackupConstructor(ctx, args)
			return true
		}
		return false
	})
	return result, handled
}

// HasDefaultConstructor reports whether typeName can be default-constructed.
func (r *Registry) HasDefaultConstructor(typeName string) bool {
	return r.visit(func(reg *Registry) bool {
		tr := reg.types[typeName]
		return tr != nil && tr.DefaultConstructor != nil
	})
}

// Index translates base[index] for a value of host type typeName.
func (r *Registry) Index(ctx *Context, typeName string, base ir.Value, index Index) (ir.Value, bool) {
	var result ir.Value
	handled := r.visit(func(reg *Registry) bool {
		tr := reg.types[typeName]
		if tr == nil || tr.Indexer == nil {
			return false
		}
		result = tr.Indexer(ctx, base, index)
		return true
	})
	return result, handled
}

// RegisterOperator registers a binary operator overload.
func (r *Registry) RegisterOperator(op, left, right string, fn OperatorResolver) {
	r.operators[OperatorKey{Op: op, Left: left, Right: right}] = fn
}

// Operator returns the binary operator overload for the operand types.
func (r *Registry) Operator(op, left, right string) OperatorResolver {
	key := OperatorKey{Op: op, Left: left, Right: right}
	var found OperatorResolver
	r.visit(func(reg *Registry) bool {
		found = reg.operators[key]
		return found != nil
	})
	return found
}

// RegisterUnary registers a unary operator overload.
func (r *Registry) RegisterUnary(op, operand string, fn UnaryResolver) {
	r.unary[UnaryKey{Op: op, Operand: operand}] = fn
}

// Unary returns the unary operator overload for the operand type.
func (r *Registry) Unary(op, operand string) UnaryResolver {
	key := UnaryKey{Op: op, Operand: operand}
	var found UnaryResolver
	r.visit(func(reg *Registry) bool {
		found = reg.unary[key]
		return found != nil
	})
	return found
}

// RegisterCast registers a conversion.
func (r *Registry) RegisterCast(from, to string, fn CastResolver) {
	r.casts[CastKey{From: from, To: to}] = fn
}

// Cast returns the conversion between two host types.
func (r *Registry) Cast(from, to string) CastResolver {
	key := CastKey{From: from, To: to}
	var found CastResolver
	r.visit(func(reg *Registry) bool {
		found = reg.casts[key]
		return found != nil
	})
	return found
}

// Context is the state handed to every resolver callback.
type Context struct {
	Registry *Registry
	Builder  *ir.Builder
	Diag     *diag.List
	Location diag.Location
}

// Library returns the library being built.
func (c *Context) Library() *ir.Library {
	return c.Registry.Library
}

// Errorf reports a diagnostic at the current location.
func (c *Context) Errorf(kind diag.Kind, format string, args ...any) {
	c.Diag.Addf(kind, c.Location, format, args...)
}

// Placeholder returns a dummy value of t substituted for a failed node.
func (c *Context) Placeholder(t *ir.Type) ir.Value {
	if t == nil {
		t = c.Library().FloatType(32)
	}
	return c.Builder.Undef(t)
}

// Value loads v when it is a reference and returns it unchanged otherwise.
func (c *Context) Value(v ir.Value) ir.Value {
	if t := ir.TypeOf(v); t != nil && t.Kind == ir.KindPointer {
		return c.Builder.Load(v)
	}
	return v
}

// Addressable returns a pointer to v, spilling plain values into a
// function-scope temporary.
func (c *Context) Addressable(v ir.Value) ir.Value {
	t := ir.TypeOf(v)
	if t != nil && t.Kind == ir.KindPointer {
		return v
	}
	tmp := c.Builder.Local("tmp", t)
	c.Builder.Store(tmp, v)
	return tmp
}
