// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package entrypoint synthesizes per-stage entry points for fragment types.
//
// For every (type, stage) pair Generate creates a library depending on the
// translated unit. It holds the interface variables, a CopyInputs and a
// CopyOutputs helper, the wrapper main and, for geometry shaders, one
// provoking-vertex append helper per output vertex type, bound to the
// Append declaration of every output stream the entry point reaches.
// Decorations live in the entry point's own decoration set,
// so resources declared once per fragment get per-entry-point bindings.
package entrypoint

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/iface"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/layout"
	"github.com/gogpu/fragc/reflection"
	"github.com/gogpu/fragc/resolve"
	"github.com/gogpu/fragc/settings"
	"github.com/gogpu/fragc/translate"
)

// EntryPointName is the name every generated entry point is exported as.
const EntryPointName = "main"

// Options configures generation.
type Options struct {
	Settings *settings.Settings
	Diag     *diag.List
	Logger   *slog.Logger
	// AppendCallbacks run in geometry append helpers before the vertex is
	// emitted.
	AppendCallbacks []AppendCallback
}

// GroupVariable is the IR form of an interface group.
type GroupVariable struct {
	Group *iface.InterfaceInfoGroup
	// Struct and Global are set for block groups.
	Struct *ir.Type
	Global *ir.GlobalVariable
	// Fields holds one global per field of flat groups.
	Fields []*ir.GlobalVariable
	// Layout is set for uniform and material groups.
	Layout layout.Block
}

// Info is a generated entry point.
type Info struct {
	TypeName   string
	Stage      ir.Stage
	Library    *ir.Library
	EntryPoint *ir.EntryPoint
	Collection *iface.Collection
	Reflection *reflection.ShaderStageInterfaceReflection
	Groups     map[*iface.InterfaceInfoGroup]*GroupVariable
	// Resources are the image, sampler and storage buffer globals
	// reachable from the entry point, in binding order.
	Resources []*ir.GlobalVariable
}

// Variable returns the IR form of g.
func (i *Info) Variable(g *iface.InterfaceInfoGroup) *GroupVariable {
	return i.Groups[g]
}

type generator struct {
	unit  *translate.Unit
	info  *translate.TypeInfo
	stage ir.Stage
	opts  Options
	log   *slog.Logger

	col  *iface.Collection
	lib  *ir.Library
	ep   *ir.EntryPoint
	deco *ir.DecorationSet
	out  *Info
}

// Generate builds the entry point of typeName for stage. A type that is
// not default constructible, or has no main function, is a structural
// error. Interface errors are reported to opts.Diag and returned together.
func Generate(unit *translate.Unit, typeName string, stage ir.Stage, opts Options) (*Info, error) {
	if opts.Settings == nil {
		opts.Settings = settings.Default()
	}
	if opts.Diag == nil {
		opts.Diag = diag.NewList(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	info := unit.LookupType(typeName)
	if info == nil {
		return nil, diag.Newf(diag.KindStructural, diag.Location{}, "unknown entry point type %s", typeName)
	}
	loc := info.Decl.Location
	if !info.DefaultConstructible {
		return nil, diag.Newf(diag.KindStructural, loc, "entry point type %s has no default constructor", typeName)
	}
	if info.Main == nil {
		return nil, diag.Newf(diag.KindStructural, loc, "entry point type %s has no function marked %s", typeName, opts.Settings.Attributes.Main)
	}

	col, err := iface.Collect(unit, info, stage, iface.Options{Settings: opts.Settings, Diag: opts.Diag})
	if err != nil {
		return nil, err
	}

	name := reflection.ReflectedName(typeName, stage)
	lib, err := ir.NewLibrary(name, unit.Library)
	if err != nil {
		return nil, diag.New(diag.KindStructural, loc, err.Error())
	}
	g := &generator{
		unit:  unit,
		info:  info,
		stage: stage,
		opts:  opts,
		log:   opts.Logger.With("type", typeName, "stage", stage.String()),
		col:   col,
		lib:   lib,
		deco:  ir.NewDecorationSet(),
	}
	g.ep = &ir.EntryPoint{Name: EntryPointName, Stage: stage, Decorations: g.deco}
	g.out = &Info{
		TypeName:   typeName,
		Stage:      stage,
		Library:    lib,
		EntryPoint: g.ep,
		Collection: col,
		Groups:     make(map[*iface.InterfaceInfoGroup]*GroupVariable),
	}

	before := opts.Diag.Len()
	for _, group := range col.Groups() {
		g.declareGroup(group)
	}
	g.ep.Function = g.buildMain()
	g.bindAppends()
	g.executionModes()
	g.bindResources()
	g.checkBindings()
	lib.AddEntryPoint(g.ep)
	lib.FinalizeBlocks()
	g.out.Reflection = g.reflect()

	if opts.Diag.Len() > before {
		return nil, fmt.Errorf("%s: %d interface errors", name, opts.Diag.Len()-before)
	}
	g.log.Debug("generated entry point",
		"globals", len(lib.Globals),
		"resources", len(g.out.Resources))
	return g.out, nil
}

// GenerateAll generates every stage of every entry-point type of unit.
func GenerateAll(unit *translate.Unit, opts Options) ([]*Info, error) {
	if opts.Settings == nil {
		opts.Settings = settings.Default()
	}
	var infos []*Info
	for _, t := range unit.TypeList() {
		for _, stage := range t.Stages(opts.Settings.Attributes) {
			info, err := Generate(unit, t.Decl.Name, stage, opts)
			if err != nil {
				return infos, err
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (g *generator) errorf(format string, args ...any) {
	g.opts.Diag.Addf(diag.KindInterface, g.info.Decl.Location, format, args...)
}

func (g *generator) declareGroup(group *iface.InterfaceInfoGroup) {
	gv := &GroupVariable{Group: group}
	g.out.Groups[group] = gv
	lib := g.lib
	interfaceVar := group.StorageClass == ir.StorageClassInput || group.StorageClass == ir.StorageClassOutput

	if !group.Block {
		for i, fi := range group.Fields {
			v := lib.AddGlobal(group.Name+"_"+fi.Key.Name, fi.Type, group.StorageClass, ir.InterfaceFlat)
			if fi.HasLocation {
				g.deco.Decorate(v, ir.DecorationLocation, fi.Location)
			}
			if fi.Flat {
				g.deco.Decorate(v, ir.DecorationFlat)
			}
			for _, p := range group.Pending {
				if p.Member == i {
					g.deco.Decorate(v, p.Decoration, p.Params...)
				}
			}
			gv.Fields = append(gv.Fields, v)
			if interfaceVar {
				g.ep.Interface = append(g.ep.Interface, v)
			}
		}
		return
	}

	st := lib.DeclareStruct(group.Name)
	for _, fi := range group.Fields {
		st.AddMember(fi.Key.Name, fi.Type)
	}
	g.deco.Decorate(st, ir.DecorationBlock)
	if group.Kind == iface.GroupUniform || group.Kind == iface.GroupMaterial {
		gv.Layout = layout.Decorate(g.deco, st)
	}
	t := st
	if group.ArraySize > 0 {
		st.Seal()
		t = lib.FixedArrayType(st, group.ArraySize)
	}
	gv.Struct = st
	gv.Global = lib.AddGlobal(group.Name, t, group.StorageClass, ir.InterfaceBlock)
	for _, p := range group.Pending {
		if p.Member == ir.NoMember {
			g.deco.Decorate(gv.Global, p.Decoration, p.Params...)
		} else {
			g.deco.DecorateMember(st, p.Member, p.Decoration, p.Params...)
		}
	}
	if interfaceVar {
		g.ep.Interface = append(g.ep.Interface, gv.Global)
	}
}

// pointer returns a pointer to field i of group. vertex selects the array
// element of per-vertex groups.
func (g *generator) pointer(b *ir.Builder, group *iface.InterfaceInfoGroup, i int, vertex ir.Value) ir.Value {
	gv := g.out.Groups[group]
	if gv == nil {
		return nil
	}
	if !group.Block {
		return gv.Fields[i]
	}
	fi := group.Fields[i]
	if group.ArraySize > 0 {
		return b.AccessChain(gv.Global, fi.Type, vertex, g.lib.ConstantInt(int32(i)))
	}
	return b.AccessChain(gv.Global, fi.Type, g.lib.ConstantInt(int32(i)))
}

func (g *generator) member(b *ir.Builder, base ir.Value, slot *translate.FieldSlot) ir.Value {
	return b.AccessChain(base, slot.Type, g.lib.ConstantInt(int32(slot.Member)))
}

func convertTo(b *ir.Builder, v ir.Value, t *ir.Type) ir.Value {
	if ir.TypeOf(v) == t {
		return v
	}
	return resolve.Convert(b, v, t)
}

// copyIn copies every field of group linked to owner from the interface
// into base.
func (g *generator) copyIn(b *ir.Builder, group *iface.InterfaceInfoGroup, owner *translate.TypeInfo, base, vertex ir.Value) {
	if group.Empty() {
		return
	}
	for i, fi := range group.Fields {
		for _, link := range fi.Linked {
			if link.Owner != owner {
				continue
			}
			src := g.pointer(b, group, i, vertex)
			v := convertTo(b, b.Load(src), link.Slot.Type)
			b.Store(g.member(b, base, link.Slot), v)
		}
	}
}

// copyOut copies every field of group linked to owner from base into the
// interface. When several owner fields share a slot the first one in
// declaration order wins.
func (g *generator) copyOut(b *ir.Builder, group *iface.InterfaceInfoGroup, owner *translate.TypeInfo, base ir.Value) {
	if group.Empty() {
		return
	}
	for i, fi := range group.Fields {
		for _, link := range fi.Linked {
			if link.Owner != owner {
				continue
			}
			v := convertTo(b, b.Load(g.member(b, base, link.Slot)), fi.Type)
			b.Store(g.pointer(b, group, i, nil), v)
			break
		}
	}
}

func (g *generator) helper(name string, params ...*ir.Type) *ir.Function {
	key := ir.FunctionKey{Owner: g.info.Decl.Name, Name: name, Signature: g.stage.String()}
	f, _ := g.lib.FindOrCreateFunction(key, g.lib.VoidType())
	for i, p := range params {
		f.AddParam("p"+strconv.Itoa(i), p)
	}
	return f
}

func (g *generator) buildMain() *ir.Function {
	c := g.col
	info := g.info
	selfType := g.lib.PointerType(info.Type, ir.StorageClassFunction)

	copyInputs := g.helper("CopyInputs", selfType)
	b := ir.NewBuilder(copyInputs)
	self := copyInputs.Params[0]
	if g.stage != ir.StageGeometry {
		g.copyIn(b, c.Inputs, info, self, nil)
	}
	g.copyIn(b, c.BuiltInInputs, info, self, nil)
	for _, u := range c.Uniforms {
		g.copyIn(b, u, info, self, nil)
	}
	g.copyIn(b, c.Material, info, self, nil)
	b.Return()

	copyOutputs := g.helper("CopyOutputs", selfType)
	b = ir.NewBuilder(copyOutputs)
	self = copyOutputs.Params[0]
	if g.stage != ir.StageGeometry {
		g.copyOut(b, c.Outputs, info, self)
		g.copyOut(b, c.BuiltInOutputs, info, self)
	}
	b.Return()

	main := g.helper(EntryPointName)
	b = ir.NewBuilder(main)
	local := b.Local("self", info.Type)
	b.Store(local, g.lib.ConstantNull(info.Type))
	b.Call(info.PreConstructor, local)
	if ctor := info.Constructors[""]; ctor != nil {
		b.Call(ctor, local)
	}
	b.Call(copyInputs, local)
	if g.stage == ir.StageGeometry && c.Geometry != nil {
		input := g.buildInputArray(b)
		output := g.lib.ConstantNull(c.Geometry.Output.Type)
		b.Call(info.Main, local, b.Load(input), output)
	} else {
		b.Call(info.Main, local)
	}
	b.Call(copyOutputs, local)
	b.Return()
	return main
}

// buildInputArray composes the geometry input stream value from the
// per-vertex interface array.
func (g *generator) buildInputArray(b *ir.Builder) ir.Value {
	geo := g.col.Geometry
	vin := geo.InputVertex
	arr := b.Local("input", geo.Input.Type)
	b.Store(arr, g.lib.ConstantNull(geo.Input.Type))
	for v := uint32(0); v < geo.Input.Length; v++ {
		index := g.lib.ConstantInt(int32(v))
		elem := b.AccessChain(arr, vin.Type, index)
		b.Call(vin.PreConstructor, elem)
		g.copyIn(b, g.col.Inputs, vin, elem, index)
		g.copyIn(b, g.col.BuiltInInputs, vin, elem, nil)
	}
	return arr
}

// bindAppends binds the late-bound Append of every output stream reached
// from the entry point to a provoking-vertex append helper, one per vertex
// type. The main output stream is always bound.
func (g *generator) bindAppends() {
	geo := g.col.Geometry
	if geo == nil {
		return
	}
	helpers := make(map[*translate.TypeInfo]*ir.Function)
	g.ep.Bind(geo.Output.Stream.Append, g.appendHelper(geo.OutputVertex, helpers))
	for _, f := range g.ep.Reachable() {
		if !f.LateBound || g.ep.Bindings[f] != nil {
			continue
		}
		tr := g.unit.Registry.Lookup(f.Key.Owner)
		if tr == nil || tr.Stream == nil || tr.Stream.Kind != resolve.StreamOutput || tr.Stream.Append != f {
			continue
		}
		vertex := g.unit.LookupType(tr.Stream.Vertex.Name)
		if vertex == nil {
			continue
		}
		for _, field := range g.col.LinkStreamVertex(vertex, g.opts.Settings.Attributes) {
			g.errorf("%s.%s has no slot in the geometry outputs of %s", vertex.Decl.Name, field.Name, g.info.Decl.Name)
		}
		g.ep.Bind(f, g.appendHelper(vertex, helpers))
	}
}

// appendHelper synthesizes the append helper of vertex: outputs vertex
// does not write are copied from input[provoking] when an input has the
// same key, then the vertex is written, the append callbacks run and the
// vertex is emitted.
func (g *generator) appendHelper(vertex *translate.TypeInfo, helpers map[*translate.TypeInfo]*ir.Function) *ir.Function {
	if fn := helpers[vertex]; fn != nil {
		return fn
	}
	fn := g.helper("Append_"+vertex.Decl.Name, vertex.Type, g.lib.IntType(32, true))
	helpers[vertex] = fn
	b := ir.NewBuilder(fn)
	local := b.Local("vertex", vertex.Type)
	b.Store(local, fn.Params[0])
	provoking := fn.Params[1]

	outputs := g.col.Outputs
	for i, fi := range outputs.Fields {
		if fi.LinkedTo(vertex) {
			continue
		}
		j := g.col.Inputs.Index(fi.Key)
		if j < 0 {
			continue
		}
		src := g.pointer(b, g.col.Inputs, j, provoking)
		b.Store(g.pointer(b, outputs, i, nil), b.Load(src))
	}
	g.copyOut(b, outputs, vertex, local)
	g.copyOut(b, g.col.BuiltInOutputs, vertex, local)

	ctx := &AppendContext{Builder: b, gen: g}
	for _, cb := range g.opts.AppendCallbacks {
		cb(ctx)
	}
	b.Emit(ir.OpEmitVertex, nil)
	b.Return()
	return fn
}

// checkBindings reports late-bound functions reachable from the entry
// point that have no implementation, such as appends outside the
// geometry stage.
func (g *generator) checkBindings() {
	for _, f := range g.ep.Reachable() {
		if f.LateBound && g.ep.Bindings[f] == nil {
			g.errorf("%s is not available in the %s stage of %s", f.Key, g.stage, g.info.Decl.Name)
		}
	}
}

var (
	inputPrimitiveModes = map[resolve.Primitive]ir.ExecutionMode{
		resolve.PrimitivePoint:    ir.ExecutionModeInputPoints,
		resolve.PrimitiveLine:     ir.ExecutionModeInputLines,
		resolve.PrimitiveTriangle: ir.ExecutionModeTriangles,
	}
	outputPrimitiveModes = map[resolve.Primitive]ir.ExecutionMode{
		resolve.PrimitivePoint:    ir.ExecutionModeOutputPoints,
		resolve.PrimitiveLine:     ir.ExecutionModeOutputLineStrip,
		resolve.PrimitiveTriangle: ir.ExecutionModeOutputTriangleStrip,
	}
)

func (g *generator) executionModes() {
	ep := g.ep
	ep.AddCapability(ir.CapabilityShader)
	switch g.stage {
	case ir.StagePixel:
		ep.AddExecutionMode(ir.ExecutionModeOriginUpperLeft)
	case ir.StageGeometry:
		ep.AddCapability(ir.CapabilityGeometry)
		if geo := g.col.Geometry; geo != nil {
			ep.AddExecutionMode(inputPrimitiveModes[geo.Input.Stream.Primitive])
			ep.AddExecutionMode(outputPrimitiveModes[geo.Output.Stream.Primitive])
			ep.AddExecutionMode(ir.ExecutionModeOutputVertices, geo.MaxVertices)
			ep.AddExecutionMode(ir.ExecutionModeInvocations, 1)
		}
	case ir.StageCompute:
		size := g.col.LocalSize
		ep.AddExecutionMode(ir.ExecutionModeLocalSize, size[0], size[1], size[2])
	}
}
