// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/iface"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/translate"
)

// stageBlock is the block name shared by every user stage interface, so
// outputs of one stage match inputs of the next by member name.
const stageBlock = "StageData"

func appendName(info *translate.TypeInfo) string      { return "Append_" + structName(info) }
func writeVertexName(info *translate.TypeInfo) string { return "WriteVertex_" + structName(info) }
func cloneVertexName(info *translate.TypeInfo) string { return "CloneVertex_" + structName(info) }

// stageInstance returns the block instance name of the user inputs or
// outputs of the stage.
func (g *generator) stageInstance(output bool) string {
	switch g.stage {
	case ir.StageVertex:
		return "vs_out"
	case ir.StageGeometry:
		if output {
			return "gs_out"
		}
		return "gs_in"
	}
	return "ps_in"
}

// varName returns the expression reading or writing an interface field.
// vertex selects the geometry input vertex and is ignored elsewhere.
func (g *generator) varName(group *iface.InterfaceInfoGroup, fi *iface.FieldInfo, vertex string) string {
	member := escapeKeyword(fi.Key.Name)
	switch group.Kind {
	case iface.GroupBuiltInInput, iface.GroupBuiltInOutput:
		return fi.BuiltIn.GLSLName

	case iface.GroupStageInput, iface.GroupStageOutput:
		output := group.Kind == iface.GroupStageOutput
		if g.stage == ir.StageVertex && !output {
			return "a_" + member
		}
		if g.stage == ir.StagePixel && output {
			index := g.pixelOutputIndex(group, fi)
			if target := g.policy.renderTarget(index); target != "" {
				return target
			}
			return "o_" + member
		}
		if !g.policy.interfaceBlocks() {
			return "v_" + member
		}
		instance := g.stageInstance(output)
		if g.stage == ir.StageGeometry && !output {
			instance += "[" + vertex + "]"
		}
		return instance + "." + member

	case iface.GroupUniform, iface.GroupMaterial:
		block := g.uniformBlockName(group)
		if !g.policy.uniformBlocks() {
			return "u" + strcase.ToCamel(block) + "_" + member
		}
		return strcase.ToLowerCamel(block) + "." + member
	}
	return member
}

// pixelOutputIndex returns the render target slot of a pixel output: the
// configured target index of its name, else its position.
func (g *generator) pixelOutputIndex(group *iface.InterfaceInfoGroup, fi *iface.FieldInfo) int {
	if i, ok := g.opts.Settings.RenderTargetIndex(fi.Key.Name); ok {
		return i
	}
	return group.Index(fi.Key)
}

// uniformBlockName returns the GLSL block name of a uniform group. The
// material block differs per stage, so it carries the stage name.
func (g *generator) uniformBlockName(group *iface.InterfaceInfoGroup) string {
	if group.Kind == iface.GroupMaterial {
		return group.Name + "_" + g.stage.String()
	}
	return group.Name
}

// interfaceDecls renders the layout qualifiers and interface variables.
func (g *generator) interfaceDecls() string {
	var w writer
	c := g.col
	switch g.stage {
	case ir.StageGeometry:
		if geo := c.Geometry; geo != nil {
			in := primitiveLayouts[geo.Input.Stream.Primitive]
			out := primitiveLayouts[geo.Output.Stream.Primitive]
			w.writeLine("layout(%s) in;", in[0])
			w.writeLine("layout(%s, max_vertices = %d) out;", out[1], geo.MaxVertices)
		}
	case ir.StageCompute:
		w.writeLine("layout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;",
			c.LocalSize[0], c.LocalSize[1], c.LocalSize[2])
	}

	if c.Inputs != nil && !c.Inputs.Empty() {
		if g.stage == ir.StageVertex {
			g.vertexInputs(&w, c.Inputs)
		} else {
			g.stageVaryings(&w, c.Inputs, false)
		}
	}
	if c.Outputs != nil && !c.Outputs.Empty() {
		if g.stage == ir.StagePixel {
			g.pixelOutputs(&w, c.Outputs)
		} else {
			g.stageVaryings(&w, c.Outputs, true)
		}
	}
	for _, group := range c.Uniforms {
		g.uniformBlock(&w, group)
	}
	if !c.Material.Empty() {
		g.uniformBlock(&w, c.Material)
	}
	return w.String()
}

func (g *generator) declError(fi *iface.FieldInfo, format string, args ...any) {
	loc := diag.Location{}
	if len(fi.Linked) > 0 {
		loc = fi.Linked[0].Slot.Field.Location
	}
	g.errorf(diag.KindInterface, loc, format, args...)
}

func (g *generator) vertexInputs(w *writer, group *iface.InterfaceInfoGroup) {
	q := g.policy.inputQualifier(ir.StageVertex)
	for _, fi := range group.Fields {
		if !g.policy.integerVaryings() && isIntegral(fi.Type) {
			g.declError(fi, "vertex input %s (%s) needs integer attributes, which GLSL %s lacks", fi.Key.Name, fi.Key.Type, g.opts.Version)
			continue
		}
		base, suffix := irDecl(fi.Type)
		line := fmt.Sprintf("%s %s %s%s;", q, base, g.varName(group, fi, ""), suffix)
		if g.policy.locations() && fi.HasLocation {
			line = fmt.Sprintf("layout(location = %d) %s", fi.Location, line)
		}
		w.writeLine(line)
	}
}

// stageVaryings declares user inputs or outputs passed between stages.
func (g *generator) stageVaryings(w *writer, group *iface.InterfaceInfoGroup, output bool) {
	q := g.policy.inputQualifier(g.stage)
	if output {
		q = g.policy.outputQualifier(g.stage)
	}
	if !g.policy.interfaceBlocks() {
		for _, fi := range group.Fields {
			if isIntegral(fi.Type) {
				g.declError(fi, "%s cannot cross a stage interface in GLSL %s", fi.Key, g.opts.Version)
				continue
			}
			base, suffix := irDecl(fi.Type)
			w.writeLine("%s %s %s%s;", q, base, g.varName(group, fi, ""), suffix)
		}
		return
	}
	instance := g.stageInstance(output)
	if g.stage == ir.StageGeometry && !output {
		instance += "[]"
	}
	w.braced(q+" "+stageBlock, " "+instance+";", func() {
		for _, fi := range group.Fields {
			base, suffix := irDecl(fi.Type)
			flat := ""
			if isIntegral(fi.Type) {
				flat = "flat "
			}
			w.writeLine("%s%s %s%s;", flat, base, escapeKeyword(fi.Key.Name), suffix)
		}
	})
}

func (g *generator) pixelOutputs(w *writer, group *iface.InterfaceInfoGroup) {
	for _, fi := range group.Fields {
		index := g.pixelOutputIndex(group, fi)
		if g.policy.renderTarget(index) != "" {
			if irTypeName(fi.Type) != "vec4" {
				g.declError(fi, "pixel output %s must be Real4 in GLSL %s", fi.Key.Name, g.opts.Version)
			}
			continue
		}
		base, suffix := irDecl(fi.Type)
		line := fmt.Sprintf("%s %s %s%s;", g.policy.outputQualifier(ir.StagePixel), base, g.varName(group, fi, ""), suffix)
		if g.policy.locations() {
			line = fmt.Sprintf("layout(location = %d) %s", index, line)
		}
		w.writeLine(line)
	}
}

func (g *generator) uniformBlock(w *writer, group *iface.InterfaceInfoGroup) {
	if group.Empty() {
		return
	}
	name := g.uniformBlockName(group)
	if !g.policy.uniformBlocks() {
		for _, fi := range group.Fields {
			base, suffix := irDecl(fi.Type)
			w.writeLine("uniform %s %s%s;", base, g.varName(group, fi, ""), suffix)
		}
		return
	}
	layout := "std140"
	if g.policy.bindings() {
		layout += fmt.Sprintf(", binding = %d", group.Binding)
	}
	w.braced(fmt.Sprintf("layout(%s) uniform %s", layout, name), " "+strcase.ToLowerCamel(name)+";", func() {
		for _, fi := range group.Fields {
			base, suffix := irDecl(fi.Type)
			w.writeLine("%s %s%s;", base, escapeKeyword(fi.Key.Name), suffix)
		}
	})
}

// readValue converts an interface value to the owner field type.
func readValue(fi *iface.FieldInfo, value string) string {
	if !fi.Converted() {
		if fi.BuiltIn != nil && fi.ValueType.Kind == ir.KindVector {
			// Built-ins may be unsigned where the field is signed.
			return irTypeName(fi.ValueType) + "(" + value + ")"
		}
		return value
	}
	if fi.ValueType.Kind == ir.KindVector {
		return fmt.Sprintf("notEqual(%s, ivec%d(0))", value, fi.ValueType.Count)
	}
	return "(" + value + " != 0)"
}

// writeValue converts an owner field value to the interface type.
func writeValue(fi *iface.FieldInfo, value string) string {
	if !fi.Converted() {
		return value
	}
	return irTypeName(fi.Type) + "(" + value + ")"
}

// copyIn writes the assignments from group into the fields of owner
// reached through target.
func (g *generator) copyIn(w *writer, group *iface.InterfaceInfoGroup, owner *translate.TypeInfo, target, vertex string) {
	for _, fi := range group.Fields {
		for _, link := range fi.Linked {
			if link.Owner != owner {
				continue
			}
			w.writeLine("%s.%s = %s;", target, escapeKeyword(link.Slot.Field.Name), readValue(fi, g.varName(group, fi, vertex)))
		}
	}
}

// copyOut writes the assignments from the fields of owner to group. When
// several owner fields share a slot the first one in declaration order
// wins.
func (g *generator) copyOut(w *writer, group *iface.InterfaceInfoGroup, owner *translate.TypeInfo, source string) {
	for _, fi := range group.Fields {
		for _, link := range fi.Linked {
			if link.Owner != owner {
				continue
			}
			if g.stage == ir.StagePixel && group.Kind == iface.GroupStageOutput &&
				g.policy.renderTarget(g.pixelOutputIndex(group, fi)) != "" && irTypeName(fi.Type) != "vec4" {
				break
			}
			w.writeLine("%s = %s;", g.varName(group, fi, ""), writeValue(fi, source+"."+escapeKeyword(link.Slot.Field.Name)))
			break
		}
	}
}

func nonEmpty(group *iface.InterfaceInfoGroup) bool {
	return group != nil && !group.Empty()
}

// entryPoint renders the user main function with everything it reaches,
// then returns the copy functions and main().
func (g *generator) entryPoint() []*function {
	decl := g.info.MainDecl
	userMain := g.userFunction(g.info, decl, decl.Name)
	name := structName(g.info)
	c := g.col

	copyInputs := &function{name: "CopyInputs", proto: fmt.Sprintf("void CopyInputs(inout %s self)", name)}
	in := &writer{indent: 1}
	if g.stage != ir.StageGeometry && nonEmpty(c.Inputs) {
		g.copyIn(in, c.Inputs, g.info, "self", "")
	}
	if nonEmpty(c.BuiltInInputs) {
		g.copyIn(in, c.BuiltInInputs, g.info, "self", "")
	}
	for _, group := range c.Uniforms {
		g.copyIn(in, group, g.info, "self", "")
	}
	if nonEmpty(c.Material) {
		g.copyIn(in, c.Material, g.info, "self", "")
	}
	copyInputs.body = in.String()
	entry := []*function{copyInputs}

	main := &function{name: "main", proto: "void main()"}
	body := &writer{indent: 1}
	body.writeLine("%s self = %s();", name, g.factory(g.info, nil, decl.Location))
	body.writeLine("CopyInputs(self);")

	if g.stage == ir.StageGeometry && c.Geometry != nil {
		geo := c.Geometry
		g.geometryHelpers()
		n := geo.Input.Stream.Primitive.Vertices()
		vin := structName(geo.InputVertex)
		body.writeLine("%s vertices[%d];", vin, n)
		for i := uint32(0); i < n; i++ {
			body.writeLine("vertices[%d] = %s(%d);", i, cloneVertexName(geo.InputVertex), i)
		}
		body.writeLine("%s(self, vertices, 0);", userMain.name)
	} else {
		copyOutputs := &function{name: "CopyOutputs", proto: fmt.Sprintf("void CopyOutputs(inout %s self)", name)}
		out := &writer{indent: 1}
		if nonEmpty(c.Outputs) {
			g.copyOut(out, c.Outputs, g.info, "self")
		}
		if nonEmpty(c.BuiltInOutputs) {
			g.copyOut(out, c.BuiltInOutputs, g.info, "self")
		}
		copyOutputs.body = out.String()
		entry = append(entry, copyOutputs)

		body.writeLine("%s(self);", userMain.name)
		body.writeLine("CopyOutputs(self);")
	}
	main.body = body.String()
	return append(entry, main)
}

// geometryHelpers adds the function reading one input vertex and, per
// vertex type appended to, the functions writing and appending a vertex.
func (g *generator) geometryHelpers() {
	vin := g.col.Geometry.InputVertex
	c := g.col

	clone := &function{name: cloneVertexName(vin), static: true}
	if g.addFunction("clone:"+vin.Decl.Name, clone) {
		g.useStruct(vin)
		clone.proto = fmt.Sprintf("%s %s(int index)", structName(vin), clone.name)
		w := &writer{indent: 1}
		w.writeLine("%s v = %s();", structName(vin), g.factory(vin, nil, vin.Decl.Location))
		g.copyIn(w, c.Inputs, vin, "v", "index")
		if nonEmpty(c.BuiltInInputs) {
			g.copyIn(w, c.BuiltInInputs, vin, "v", "index")
		}
		w.writeLine("return v;")
		clone.body = w.String()
	}

	for _, vout := range g.appendVertices {
		g.appendHelpers(vout)
	}
}

// appendHelpers adds WriteVertex and Append for vout. Outputs vout does
// not write are copied from the provoking input vertex when an input has
// the same key.
func (g *generator) appendHelpers(vout *translate.TypeInfo) {
	c := g.col
	write := &function{name: writeVertexName(vout), static: true}
	if g.addFunction("write:"+vout.Decl.Name, write) {
		g.useStruct(vout)
		write.proto = fmt.Sprintf("void %s(%s v)", write.name, structName(vout))
		w := &writer{indent: 1}
		g.copyOut(w, c.Outputs, vout, "v")
		if nonEmpty(c.BuiltInOutputs) {
			g.copyOut(w, c.BuiltInOutputs, vout, "v")
		}
		write.body = w.String()
	}

	appendFn := &function{name: appendName(vout), static: true}
	if g.addFunction("append:"+vout.Decl.Name, appendFn) {
		appendFn.proto = fmt.Sprintf("void %s(%s v, int provoking)", appendFn.name, structName(vout))
		w := &writer{indent: 1}
		w.writeLine("%s(v);", write.name)
		for _, fi := range c.Outputs.Fields {
			if fi.LinkedTo(vout) {
				continue
			}
			if in := c.Inputs.Field(fi.Key); in != nil {
				w.writeLine("%s = %s;", g.varName(c.Outputs, fi, ""), g.varName(c.Inputs, in, "provoking"))
			}
		}
		w.writeLine("EmitVertex();")
		appendFn.body = w.String()
	}
}
