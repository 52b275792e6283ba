// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package translate lowers a checked syntax library into an IR library.
//
// Translation runs in phases: struct declaration, member layout, function
// declaration, pre-constructors, constructors and finally bodies. Bodies
// resolve every construct through the resolve registry; a construct with no
// resolver is reported and replaced by a placeholder so that the rest of the
// library keeps translating.
package translate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/resolve"
	"github.com/gogpu/fragc/settings"
	"github.com/gogpu/fragc/syntax"
)

// PreConstructorName is the function name of per-type field initializers.
const PreConstructorName = "PreConstructor"

// ConstructorName is the function name of user constructors.
const ConstructorName = "Constructor"

// Options configures a translation.
type Options struct {
	Settings *settings.Settings
	// Diag receives node-local errors. A fresh list is used when nil.
	Diag   *diag.List
	Logger *slog.Logger
}

// Unit is a translated library together with its resolver registry.
type Unit struct {
	Syntax   *syntax.Library
	Library  *ir.Library
	Registry *resolve.Registry
	Deps     []*Unit
	Types    map[string]*TypeInfo

	order []*TypeInfo
}

// FieldSlot locates a fragment field: a struct member or, for opaque
// fields, a resource global.
type FieldSlot struct {
	Field  *syntax.Field
	Type   *ir.Type
	Member int
	Global *ir.GlobalVariable
}

// IsResource reports whether the field lives outside the struct.
func (s *FieldSlot) IsResource() bool {
	return s.Global != nil
}

// TypeInfo is a translated fragment type.
type TypeInfo struct {
	Decl *syntax.TypeDecl
	Type *ir.Type

	Fields         map[string]*FieldSlot
	PreConstructor *ir.Function
	Constructors   map[string]*ir.Function
	Functions      map[string]*ir.Function
	Main           *ir.Function
	// MainDecl is the syntax of Main.
	MainDecl *syntax.Function
	// DefaultConstructible is false when the type declares constructors
	// and none of them takes zero arguments.
	DefaultConstructible bool

	fields []*FieldSlot
}

// OrderedFields returns the field slots in declaration order.
func (t *TypeInfo) OrderedFields() []*FieldSlot {
	return t.fields
}

// Stages returns the stages the type is an entry point for.
func (t *TypeInfo) Stages(names settings.AttributeNames) []ir.Stage {
	var stages []ir.Stage
	for _, s := range []ir.Stage{ir.StageVertex, ir.StageGeometry, ir.StagePixel, ir.StageCompute} {
		if t.Decl.Attributes.Has(names.Stage(s)) {
			stages = append(stages, s)
		}
	}
	return stages
}

// TypeList returns the unit's fragment types in declaration order.
func (u *Unit) TypeList() []*TypeInfo {
	return u.order
}

// LookupType finds a fragment type in the unit or its dependencies.
func (u *Unit) LookupType(name string) *TypeInfo {
	if t := u.Types[name]; t != nil {
		return t
	}
	for _, dep := range u.Deps {
		if t := dep.LookupType(name); t != nil {
			return t
		}
	}
	return nil
}

// NewCoreUnit wraps the built-in library in a unit.
func NewCoreUnit() (*Unit, error) {
	core, err := resolve.NewCore()
	if err != nil {
		return nil, err
	}
	return &Unit{
		Syntax:   &syntax.Library{Name: resolve.CoreLibraryName},
		Library:  core.Library,
		Registry: core,
		Types:    make(map[string]*TypeInfo),
	}, nil
}

// ErrNilDependency is returned for a nil dependency unit.
var ErrNilDependency = errors.New("nil dependency unit")

// Translate lowers src into a new unit over deps. When deps is empty the
// unit depends on a fresh core unit. Structural problems are returned
// directly as *diag.Error; node-local errors are accumulated and returned
// together once every body has been translated.
func Translate(src *syntax.Library, deps []*Unit, opts Options) (*Unit, error) {
	if opts.Settings == nil {
		opts.Settings = settings.Default()
	}
	if opts.Diag == nil {
		opts.Diag = diag.NewList(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(deps) == 0 {
		core, err := NewCoreUnit()
		if err != nil {
			return nil, err
		}
		deps = []*Unit{core}
	}

	libs := make([]*ir.Library, len(deps))
	regs := make([]*resolve.Registry, len(deps))
	for i, d := range deps {
		if d == nil {
			return nil, diag.Newf(diag.KindStructural, diag.Location{}, "library %s: %v", src.Name, ErrNilDependency)
		}
		libs[i] = d.Library
		regs[i] = d.Registry
	}
	lib, err := ir.NewLibrary(src.Name, libs...)
	if err != nil {
		return nil, diag.New(diag.KindStructural, diag.Location{}, err.Error())
	}

	u := &Unit{
		Syntax:   src,
		Library:  lib,
		Registry: resolve.New(lib, regs...),
		Deps:     deps,
		Types:    make(map[string]*TypeInfo),
	}
	t := &translator{unit: u, opts: opts, log: opts.Logger.With("library", src.Name)}
	if err := t.run(); err != nil {
		return nil, err
	}
	return u, nil
}

type translator struct {
	unit *Unit
	opts Options
	log  *slog.Logger
}

func (t *translator) errorf(kind diag.Kind, loc diag.Location, format string, args ...any) {
	t.opts.Diag.Addf(kind, loc, format, args...)
}

func (t *translator) run() error {
	u := t.unit
	before := t.opts.Diag.Len()

	for _, decl := range u.Syntax.Types {
		if u.Registry.Lookup(decl.Name) != nil {
			return diag.Newf(diag.KindStructural, decl.Location, "type %s is declared twice", decl.Name)
		}
		info := &TypeInfo{
			Decl:         decl,
			Type:         u.Library.DeclareStruct(decl.Name),
			Fields:       make(map[string]*FieldSlot),
			Constructors: make(map[string]*ir.Function),
			Functions:    make(map[string]*ir.Function),
		}
		u.Types[decl.Name] = info
		u.order = append(u.order, info)
		u.Registry.Declare(decl.Name, info.Type)
	}

	for _, info := range u.order {
		t.declareFields(info)
	}
	for _, info := range u.order {
		t.declareFunctions(info)
	}
	for _, info := range u.order {
		t.declareConstructors(info)
	}
	for _, info := range u.order {
		t.defineBodies(info)
	}

	u.Library.FinalizeBlocks()
	t.log.Debug("translated library",
		"types", len(u.order),
		"functions", len(u.Library.Functions),
		"errors", t.opts.Diag.Len()-before)

	if t.opts.Diag.Len() > before {
		list := diag.NewList(nil)
		for _, e := range t.opts.Diag.Errors()[before:] {
			list.Add(e)
		}
		return list.Err()
	}
	return nil
}

// resolveType resolves ref, reporting a resolution error and returning a
// Real placeholder type when it fails.
func (t *translator) resolveType(ref syntax.TypeRef, loc diag.Location) *ir.Type {
	typ, err := t.unit.Registry.ResolveType(ref)
	if err != nil {
		t.errorf(diag.KindResolution, loc, "%v", err)
		return t.unit.Library.FloatType(32)
	}
	return typ
}

func (t *translator) declareFields(info *TypeInfo) {
	lib := t.unit.Library
	tr := t.unit.Registry.Lookup(info.Decl.Name)
	for _, f := range info.Decl.Fields {
		typ := t.resolveType(f.Type, f.Location)
		slot := &FieldSlot{Field: f, Type: typ, Member: -1}
		switch typ.Kind {
		case ir.KindImage, ir.KindSampler, ir.KindSampledImage:
			slot.Global = lib.AddGlobal(info.Decl.Name+"_"+f.Name, typ, ir.StorageClassUniformConstant, ir.InterfaceNone)
		case ir.KindRuntimeArray:
			buffer := lib.DeclareStruct(info.Decl.Name + "_" + f.Name + "_Buffer")
			buffer.AddMember(f.Name, typ)
			slot.Global = lib.AddGlobal(info.Decl.Name+"_"+f.Name, buffer, ir.StorageClassStorageBuffer, ir.InterfaceBlock)
		default:
			slot.Member = info.Type.AddMember(f.Name, typ)
		}
		info.Fields[f.Name] = slot
		info.fields = append(info.fields, slot)
		tr.Fields[f.Name] = fieldResolver(slot)
	}
}

func fieldResolver(slot *FieldSlot) resolve.FieldResolver {
	return func(ctx *resolve.Context, base ir.Value) ir.Value {
		lib := ctx.Library()
		if slot.Global != nil {
			if slot.Type.Kind == ir.KindRuntimeArray {
				return ctx.Builder.AccessChain(slot.Global, slot.Type, lib.ConstantInt(0))
			}
			return slot.Global
		}
		if t := ir.TypeOf(base); t != nil && t.Kind == ir.KindPointer {
			return ctx.Builder.AccessChain(base, slot.Type, lib.ConstantInt(int32(slot.Member)))
		}
		return ctx.Builder.CompositeExtract(base, slot.Type, uint32(slot.Member))
	}
}

func (t *translator) declareFunction(info *TypeInfo, fn *syntax.Function, name string) *ir.Function {
	lib := t.unit.Library
	ret := lib.VoidType()
	if fn.Return != nil {
		ret = t.resolveType(*fn.Return, fn.Location)
	}
	key := ir.FunctionKey{Owner: info.Decl.Name, Name: name, Signature: fn.Signature()}
	f, created := lib.FindOrCreateFunction(key, ret)
	if !created {
		t.errorf(diag.KindResolution, fn.Location, "function %s is declared twice", key)
		return f
	}
	if !fn.Static {
		f.AddParam("self", lib.PointerType(info.Type, ir.StorageClassFunction))
	}
	for _, p := range fn.Params {
		f.AddParam(p.Name, t.resolveType(p.Type, fn.Location))
	}
	return f
}

func (t *translator) declareFunctions(info *TypeInfo) {
	tr := t.unit.Registry.Lookup(info.Decl.Name)
	for _, fn := range info.Decl.Functions {
		f := t.declareFunction(info, fn, fn.Name)
		info.Functions[resolve.FunctionKey(fn.Name, fn.Signature())] = f
		tr.AddFunction(fn.Name, fn.Signature(), callResolver(f, fn.Static))
		if info.Main == nil && fn.Attributes.Has(t.opts.Settings.Attributes.Main) {
			info.Main = f
			info.MainDecl = fn
		}
	}
}

func callResolver(f *ir.Function, static bool) resolve.FunctionResolver {
	return func(ctx *resolve.Context, self ir.Value, args []ir.Value) ir.Value {
		operands := args
		if !static {
			if self == nil {
				ctx.Errorf(diag.KindResolution, "%s needs a receiver", f.Key)
				return ctx.Placeholder(f.ReturnType)
			}
			operands = append([]ir.Value{ctx.Addressable(self)}, args...)
		}
		call := ctx.Builder.Call(f, operands...)
		if f.ReturnType.Kind == ir.KindVoid {
			return nil
		}
		return call
	}
}

// declareConstructors creates the pre-constructor shell and registers the
// constructor resolvers. A type is default constructible when it declares
// no constructors or one without parameters.
func (t *translator) declareConstructors(info *TypeInfo) {
	lib := t.unit.Library
	name := info.Decl.Name
	tr := t.unit.Registry.Lookup(name)

	pre, _ := lib.FindOrCreateFunction(ir.FunctionKey{Owner: name, Name: PreConstructorName}, lib.VoidType())
	pre.AddParam("self", lib.PointerType(info.Type, ir.StorageClassFunction))
	info.PreConstructor = pre

	for _, c := range info.Decl.Constructors {
		ctor := t.declareFunction(info, c, ConstructorName)
		sig := c.Signature()
		info.Constructors[sig] = ctor
		tr.Constructors[sig] = constructResolver(info, ctor)
	}

	info.DefaultConstructible = len(info.Decl.Constructors) == 0
	if ctor, ok := info.Constructors[""]; ok {
		info.DefaultConstructible = true
		tr.DefaultConstructor = constructResolver(info, ctor)
	} else if info.DefaultConstructible {
		tr.DefaultConstructor = constructResolver(info, nil)
	}
}

func constructResolver(info *TypeInfo, ctor *ir.Function) resolve.ConstructorResolver {
	return func(ctx *resolve.Context, args []ir.Value) ir.Value {
		b := ctx.Builder
		tmp := b.Local(info.Decl.Name, info.Type)
		b.Store(tmp, ctx.Library().ConstantNull(info.Type))
		b.Call(info.PreConstructor, tmp)
		if ctor != nil {
			b.Call(ctor, append([]ir.Value{tmp}, args...)...)
		}
		return b.Load(tmp)
	}
}

func (t *translator) defineBodies(info *TypeInfo) {
	t.definePreConstructor(info)
	for _, c := range info.Decl.Constructors {
		t.defineBody(info, info.Constructors[c.Signature()], c)
	}
	for _, fn := range info.Decl.Functions {
		t.defineBody(info, info.Functions[resolve.FunctionKey(fn.Name, fn.Signature())], fn)
	}
}

// definePreConstructor stores every field initializer into the receiver.
// Fragment-typed fields without an initializer run their own
// pre-constructor.
func (t *translator) definePreConstructor(info *TypeInfo) {
	pre := info.PreConstructor
	s := t.newState(info, pre, false)
	self := pre.Params[0]
	for _, slot := range info.fields {
		if slot.IsResource() {
			continue
		}
		member := s.b.AccessChain(self, slot.Type, t.unit.Library.ConstantInt(int32(slot.Member)))
		if slot.Field.Initializer != nil {
			s.ctx.Location = slot.Field.Location
			v := s.rvalue(slot.Field.Initializer)
			if v != nil {
				s.b.Store(member, v)
			}
			continue
		}
		if nested := t.unit.LookupType(slot.Field.Type.Name); nested != nil && nested.PreConstructor != nil {
			s.b.Call(nested.PreConstructor, member)
		}
	}
	s.b.Return()
}

func (t *translator) defineBody(info *TypeInfo, f *ir.Function, fn *syntax.Function) {
	if f == nil || f.Defined() {
		return
	}
	s := t.newState(info, f, fn.Static)
	params := f.Params
	if !fn.Static {
		params = params[1:]
	}
	for _, p := range params {
		local := s.b.Local(p.Name, p.Type)
		s.b.Store(local, p)
		s.declare(p.Name, local)
	}
	s.ctx.Location = fn.Location
	s.block(fn.Body)
}

func (t *translator) newState(info *TypeInfo, f *ir.Function, static bool) *funcState {
	b := ir.NewBuilder(f)
	s := &funcState{
		t:    t,
		info: info,
		fn:   f,
		b:    b,
		ctx: &resolve.Context{
			Registry: t.unit.Registry,
			Builder:  b,
			Diag:     t.opts.Diag,
		},
		scopes: []map[string]ir.Value{{}},
	}
	if !static && len(f.Params) > 0 {
		s.self = f.Params[0]
	}
	return s
}

// String describes the unit for logs.
func (u *Unit) String() string {
	return fmt.Sprintf("%s (%d types)", u.Library.Name, len(u.order))
}
