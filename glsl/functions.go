// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/resolve"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

// placeholderMember fills structs whose fields all live outside the
// struct; GLSL has no empty structs.
const placeholderMember = "_placeholder"

func structName(info *translate.TypeInfo) string {
	return escapeKeyword(info.Decl.Name)
}

func preConstructorName(info *translate.TypeInfo) string {
	return structName(info) + "_" + translate.PreConstructorName
}

func factoryName(info *translate.TypeInfo) string {
	return structName(info) + "_Construct"
}

// useStruct declares info as a struct, after the structs its fields use,
// together with its pre-constructor.
func (g *generator) useStruct(info *translate.TypeInfo) {
	if g.structSet[info] {
		return
	}
	g.structSet[info] = true
	decl := &structDecl{info: info}
	for _, slot := range info.OrderedFields() {
		if slot.IsResource() {
			continue
		}
		base, suffix := g.declType(slot.Field.Type, slot.Field.Location)
		decl.members = append(decl.members, fmt.Sprintf("%s %s%s", base, escapeKeyword(slot.Field.Name), suffix))
	}
	if len(decl.members) == 0 {
		decl.members = []string{"int " + placeholderMember}
	}
	g.structs = append(g.structs, decl)
	g.preConstructor(info)
}

// addFunction registers fn under key. It reports false when key was
// already registered.
func (g *generator) addFunction(key string, fn *function) bool {
	if _, ok := g.funcIndex[key]; ok {
		return false
	}
	g.funcIndex[key] = fn
	g.functions = append(g.functions, fn)
	return true
}

// preConstructor renders the field initializers of info.
func (g *generator) preConstructor(info *translate.TypeInfo) {
	fn := &function{name: preConstructorName(info)}
	if !g.addFunction("pre:"+info.Decl.Name, fn) {
		return
	}
	f := g.newFuncWriter(info, false)
	fn.proto = fmt.Sprintf("void %s(inout %s self)", fn.name, structName(info))
	f.w.pushIndent()
	members := 0
	for _, slot := range info.OrderedFields() {
		if slot.IsResource() {
			continue
		}
		members++
		f.loc = slot.Field.Location
		value := ""
		if slot.Field.Initializer != nil {
			value = f.expr(slot.Field.Initializer)
		} else {
			value = g.zero(slot.Field.Type, slot.Field.Location)
		}
		f.w.writeLine("self.%s = %s;", escapeKeyword(slot.Field.Name), value)
	}
	if members == 0 {
		f.w.writeLine("self.%s = 0;", placeholderMember)
	}
	fn.body = f.w.String()
}

// findFunction returns the declaration of name matching the argument
// signature, falling back to a unique match by arity. An empty name
// matches any declaration, as constructors are unnamed.
func findFunction(decls []*syntax.Function, name, sig string, arity int) *syntax.Function {
	var byArity []*syntax.Function
	for _, d := range decls {
		if name != "" && d.Name != name {
			continue
		}
		if d.Signature() == sig {
			return d
		}
		if len(d.Params) == arity {
			byArity = append(byArity, d)
		}
	}
	if len(byArity) == 1 {
		return byArity[0]
	}
	return nil
}

// method returns the rendered member function name of info, or nil when
// no declaration matches.
func (g *generator) method(info *translate.TypeInfo, name, sig string, arity int) *function {
	decl := findFunction(info.Decl.Functions, name, sig, arity)
	if decl == nil {
		return nil
	}
	return g.userFunction(info, decl, decl.Name)
}

// userFunction renders decl once and returns it.
func (g *generator) userFunction(info *translate.TypeInfo, decl *syntax.Function, name string) *function {
	key := info.Decl.Name + "." + name + "(" + decl.Signature() + ")"
	if fn, ok := g.funcIndex[key]; ok {
		return fn
	}
	fn := &function{name: structName(info) + "_" + name, static: decl.Static}
	g.addFunction(key, fn)

	f := g.newFuncWriter(info, decl.Static)
	f.loc = decl.Location
	var params []string
	if !decl.Static {
		g.useStruct(info)
		params = append(params, "inout "+structName(info)+" self")
	}
	for _, p := range decl.Params {
		base, suffix := g.declType(p.Type, decl.Location)
		params = append(params, base+" "+f.declare(p.Name)+suffix)
	}
	ret := "void"
	if decl.Return != nil {
		ret = g.typeName(*decl.Return, decl.Location)
	}
	fn.proto = fmt.Sprintf("%s %s(%s)", ret, fn.name, strings.Join(params, ", "))

	f.w.pushIndent()
	f.stmts(decl.Body)
	if decl.Return != nil && !endsInReturn(decl.Body) {
		f.w.writeLine("return %s;", g.zero(*decl.Return, decl.Location))
	}
	fn.body = f.w.String()
	return fn
}

func endsInReturn(body []syntax.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*syntax.ReturnStmt)
	return ok
}

// factory returns the name of the function constructing info from
// arguments of the given types. No types selects the default
// constructor.
func (g *generator) factory(info *translate.TypeInfo, argTypes []string, loc diag.Location) string {
	sig := resolve.Signature(argTypes...)
	name := factoryName(info)
	key := "new:" + info.Decl.Name + "(" + sig + ")"
	if _, ok := g.funcIndex[key]; ok {
		return name
	}
	var ctor *syntax.Function
	if len(info.Decl.Constructors) > 0 || len(argTypes) > 0 {
		ctor = findFunction(info.Decl.Constructors, "", sig, len(argTypes))
		if ctor == nil {
			g.errorf(diag.KindResolution, loc, "no constructor %s(%s)", info.Decl.Name, sig)
			return name
		}
	}
	g.useStruct(info)
	fn := &function{name: name, static: true}
	g.addFunction(key, fn)

	var params, args []string
	f := g.newFuncWriter(info, true)
	if ctor != nil {
		for _, p := range ctor.Params {
			base, suffix := g.declType(p.Type, ctor.Location)
			pn := f.declare(p.Name)
			params = append(params, base+" "+pn+suffix)
			args = append(args, pn)
		}
	}
	fn.proto = fmt.Sprintf("%s %s(%s)", structName(info), name, strings.Join(params, ", "))
	f.w.pushIndent()
	f.w.writeLine("%s self;", structName(info))
	f.w.writeLine("%s(self);", preConstructorName(info))
	if ctor != nil {
		c := g.userFunction(info, ctor, translate.ConstructorName)
		f.w.writeLine("%s(%s);", c.name, strings.Join(append([]string{"self"}, args...), ", "))
	}
	f.w.writeLine("return self;")
	fn.body = f.w.String()
	return name
}

// resource returns the global holding a resource field, declaring it on
// first use.
func (g *generator) resource(slot *translate.FieldSlot) string {
	if r, ok := g.slots[slot]; ok {
		return r.name
	}
	f := slot.Field
	r := &resource{name: escapeKeyword(slot.Global.Name)}
	g.slots[slot] = r
	typ := f.Type

	switch {
	case isSeparateImage(typ.Name):
		g.errorf(diag.KindResolution, f.Location,
			"field %s is a separate %s, which GLSL cannot express; use a sampled image type", f.Name, typ.Name)
		return r.name

	case typ.Name == resolve.TemplateRuntimeArray:
		if !g.policy.storage() {
			g.errorf(diag.KindResolution, f.Location, "field %s: storage buffers need GLSL 4.30", f.Name)
			return r.name
		}
		elem, _ := elementRef(typ)
		base, suffix := g.declType(elem, f.Location)
		layout := "std430"
		if g.policy.bindings() {
			layout += fmt.Sprintf(", binding = %d", g.bufferBinding())
		}
		r.lines = []string{
			fmt.Sprintf("layout(%s) buffer %s_Buffer {", layout, r.name),
			fmt.Sprintf("    %s %s[]%s;", base, r.name, suffix),
			"};",
		}

	case typ.Name == resolve.StorageImage2d:
		if !g.policy.storage() {
			g.errorf(diag.KindResolution, f.Location, "field %s: storage images need GLSL 4.30", f.Name)
			return r.name
		}
		layout := "rgba32f"
		if g.policy.bindings() {
			layout += fmt.Sprintf(", binding = %d", g.nextImage)
		}
		g.nextImage++
		r.lines = []string{fmt.Sprintf("layout(%s) uniform image2D %s;", layout, r.name)}

	default:
		glsl, ok := opaqueTypes[typ.Name]
		if !ok {
			g.errorf(diag.KindResolution, f.Location, "field %s: type %s has no GLSL equivalent", f.Name, typ)
			return r.name
		}
		line := fmt.Sprintf("uniform %s %s;", glsl, r.name)
		if g.policy.bindings() {
			line = fmt.Sprintf("layout(binding = %d) %s", g.nextTexture, line)
		}
		g.nextTexture++
		r.lines = []string{line}
	}
	g.resources = append(g.resources, r)
	return r.name
}

// bufferBinding returns the lowest binding not taken by a uniform block or
// an earlier storage buffer.
func (g *generator) bufferBinding() uint32 {
	n := uint32(0)
	for g.usedBuffers[n] {
		n++
	}
	g.usedBuffers[n] = true
	return n
}

// appendCall renders Append on an output stream. Every vertex type
// appended to gets its own helper writing the shared geometry outputs.
func (g *generator) appendCall(vertex syntax.TypeRef, args []string, loc diag.Location) string {
	info := g.unit.LookupType(vertex.Name)
	if g.col.Geometry == nil || info == nil {
		g.errorf(diag.KindInterface, loc, "Append on a %s stream is only available in the geometry stage", vertex)
		return ""
	}
	if !slices.Contains(g.appendVertices, info) {
		for _, field := range g.col.LinkStreamVertex(info, g.opts.Settings.Attributes) {
			g.errorf(diag.KindInterface, loc, "%s.%s has no slot in the geometry outputs of %s", info.Decl.Name, field.Name, g.info.Decl.Name)
		}
		g.appendVertices = append(g.appendVertices, info)
	}
	if len(args) == 1 {
		args = append(args, "0")
	}
	return appendName(info) + "(" + strings.Join(args, ", ") + ")"
}
