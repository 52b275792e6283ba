// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package iface classifies the fields of an entry-point type into interface
// groups for one stage: stage inputs and outputs, hardware built-ins,
// uniform buffers and the default material buffer.
//
// Groups only describe the interface. Struct types, globals and decorations
// are created by package entrypoint (binary) and package glsl (text) from
// the same Collection.
package iface

import (
	"fmt"
	"strconv"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/resolve"
	"github.com/gogpu/fragc/settings"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

// FieldKey identifies an interface field: the field name after any
// attribute name override, and the host type name.
type FieldKey struct {
	Name string
	Type string
}

func (k FieldKey) String() string {
	return k.Name + ":" + k.Type
}

// OwnerField is a fragment field copied to or from an interface field.
type OwnerField struct {
	Owner *translate.TypeInfo
	Slot  *translate.FieldSlot
}

// GroupKind is the role of an interface group.
type GroupKind uint8

const (
	GroupStageInput GroupKind = iota
	GroupStageOutput
	GroupBuiltInInput
	GroupBuiltInOutput
	GroupUniform
	GroupMaterial
)

var groupKindNames = [...]string{"StageInput", "StageOutput", "BuiltInInput", "BuiltInOutput", "Uniform", "Material"}

func (k GroupKind) String() string {
	if int(k) < len(groupKindNames) {
		return groupKindNames[k]
	}
	return "GroupKind(" + strconv.Itoa(int(k)) + ")"
}

// FieldInfo is one logical interface field.
type FieldInfo struct {
	Key FieldKey
	// Type is the type carried across the interface. Booleans of user
	// fields are carried as integers.
	Type *ir.Type
	// ValueType is the type of the linked owner fields.
	ValueType *ir.Type
	Linked    []OwnerField

	BuiltIn *settings.BuiltIn
	// Location is set for flat located fields.
	Location    uint32
	HasLocation bool
	Flat        bool
	// PassThrough marks geometry outputs filled from the provoking input
	// vertex.
	PassThrough bool
}

// Converted reports whether the interface type differs from the owner
// field type.
func (f *FieldInfo) Converted() bool {
	return f.Type != f.ValueType
}

// PendingDecoration is a decoration recorded before the group's struct
// type exists. Member is ir.NoMember for decorations of the variable.
type PendingDecoration struct {
	Member     int
	Decoration ir.Decoration
	Params     []uint32
}

// InterfaceInfoGroup is a bag of fields destined for one storage class.
type InterfaceInfoGroup struct {
	Name         string
	Kind         GroupKind
	StorageClass ir.StorageClass
	// Block groups become one struct variable; other groups become one
	// global per field.
	Block bool
	// ArraySize wraps the block in an array (geometry inputs).
	ArraySize uint32

	Binding       uint32
	DescriptorSet uint32

	Fields  []*FieldInfo
	Pending []PendingDecoration

	byKey map[FieldKey]*FieldInfo
}

func newGroup(name string, kind GroupKind, sc ir.StorageClass, block bool) *InterfaceInfoGroup {
	return &InterfaceInfoGroup{
		Name:         name,
		Kind:         kind,
		StorageClass: sc,
		Block:        block,
		byKey:        make(map[FieldKey]*FieldInfo),
	}
}

// Field returns the field with key, or nil.
func (g *InterfaceInfoGroup) Field(key FieldKey) *FieldInfo {
	return g.byKey[key]
}

// Index returns the position of the field with key, or -1.
func (g *InterfaceInfoGroup) Index(key FieldKey) int {
	for i, f := range g.Fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// Empty reports whether the group has no fields.
func (g *InterfaceInfoGroup) Empty() bool {
	return g == nil || len(g.Fields) == 0
}

// Decorate records a decoration to apply once the struct type exists.
func (g *InterfaceInfoGroup) Decorate(member int, dec ir.Decoration, params ...uint32) {
	g.Pending = append(g.Pending, PendingDecoration{Member: member, Decoration: dec, Params: params})
}

// add returns the field for key, creating it on first use. owner is linked
// when not nil.
func (g *InterfaceInfoGroup) add(key FieldKey, t, value *ir.Type, owner *OwnerField) *FieldInfo {
	fi := g.byKey[key]
	if fi == nil {
		fi = &FieldInfo{Key: key, Type: t, ValueType: value}
		g.byKey[key] = fi
		g.Fields = append(g.Fields, fi)
	}
	if owner != nil {
		fi.Linked = append(fi.Linked, *owner)
	}
	return fi
}

// GeometryInfo describes the streams of a geometry entry point.
type GeometryInfo struct {
	Input, Output             *resolve.TypeResolvers
	InputVertex, OutputVertex *translate.TypeInfo
	MaxVertices               uint32
}

// Collection is the classified interface of one type for one stage.
type Collection struct {
	Stage ir.Stage
	Type  *translate.TypeInfo

	Inputs         *InterfaceInfoGroup
	Outputs        *InterfaceInfoGroup
	BuiltInInputs  *InterfaceInfoGroup
	BuiltInOutputs *InterfaceInfoGroup
	Uniforms       []*InterfaceInfoGroup
	Material       *InterfaceInfoGroup

	Geometry *GeometryInfo

	// LocalSize is the compute workgroup size.
	LocalSize [3]uint32

	// streamVertices are the output vertex types linked to Outputs.
	streamVertices map[*translate.TypeInfo]bool
}

// Groups returns every non-empty group.
func (c *Collection) Groups() []*InterfaceInfoGroup {
	var groups []*InterfaceInfoGroup
	for _, g := range []*InterfaceInfoGroup{c.Inputs, c.Outputs, c.BuiltInInputs, c.BuiltInOutputs} {
		if !g.Empty() {
			groups = append(groups, g)
		}
	}
	for _, g := range c.Uniforms {
		if !g.Empty() {
			groups = append(groups, g)
		}
	}
	if !c.Material.Empty() {
		groups = append(groups, c.Material)
	}
	return groups
}

// LinkStreamVertex links the output fields of vertex, the vertex type of
// another output stream appended to by a geometry shader, to the output
// slots with the same key. Fields whose key has no slot are returned; the
// interface itself never grows. Linking a vertex type twice is a no-op.
func (c *Collection) LinkStreamVertex(vertex *translate.TypeInfo, names settings.AttributeNames) []*syntax.Field {
	if c.Geometry == nil || c.streamVertices[vertex] {
		return nil
	}
	c.streamVertices[vertex] = true
	var missing []*syntax.Field
	for _, slot := range vertex.OrderedFields() {
		if slot.IsResource() {
			continue
		}
		f := slot.Field
		for _, attr := range f.Attributes {
			var group *InterfaceInfoGroup
			switch attr.Name {
			case names.StageOutput:
				group = c.Outputs
			case names.HardwareBuiltInOutput:
				group = c.BuiltInOutputs
			default:
				continue
			}
			fi := group.Field(key(f, attr))
			if fi == nil {
				missing = append(missing, f)
				continue
			}
			fi.Linked = append(fi.Linked, OwnerField{Owner: vertex, Slot: slot})
		}
	}
	return missing
}

// LinkedTo reports whether an owner field of owner is linked to fi.
func (f *FieldInfo) LinkedTo(owner *translate.TypeInfo) bool {
	for _, link := range f.Linked {
		if link.Owner == owner {
			return true
		}
	}
	return false
}

// Options configures collection.
type Options struct {
	Settings *settings.Settings
	Diag     *diag.List
}

type collector struct {
	unit  *translate.Unit
	stage ir.Stage
	set   *settings.Settings
	diag  *diag.List
	c     *Collection

	uniforms   map[string]*InterfaceInfoGroup
	nextVertex uint32
}

// Collect classifies the fields of info for stage. Interface errors are
// added to opts.Diag; the returned error is non-nil when any was reported.
func Collect(unit *translate.Unit, info *translate.TypeInfo, stage ir.Stage, opts Options) (*Collection, error) {
	if opts.Settings == nil {
		opts.Settings = settings.Default()
	}
	if opts.Diag == nil {
		opts.Diag = diag.NewList(nil)
	}
	before := opts.Diag.Len()
	set := opts.Settings
	name := info.Decl.Name

	col := &collector{
		unit:       unit,
		stage:      stage,
		set:        set,
		diag:       opts.Diag,
		uniforms:   make(map[string]*InterfaceInfoGroup),
		nextVertex: uint32(set.MaxVertexLocation() + 1),
		c: &Collection{
			Stage:          stage,
			Type:           info,
			BuiltInInputs:  newGroup(name+"_BuiltIns_In", GroupBuiltInInput, ir.StorageClassInput, false),
			BuiltInOutputs: newGroup(name+"_BuiltIns_Out", GroupBuiltInOutput, ir.StorageClassOutput, false),
			Material:       newGroup(set.MaterialBuffer.Name, GroupMaterial, ir.StorageClassUniform, true),
		},
	}
	c := col.c
	c.Material.Binding = set.MaterialBuffer.BindingFor(stage)
	c.Material.DescriptorSet = set.MaterialBuffer.DescriptorSet

	switch stage {
	case ir.StageVertex:
		c.Inputs = newGroup(name+"_In", GroupStageInput, ir.StorageClassInput, false)
		c.Outputs = newGroup(name+"_Out", GroupStageOutput, ir.StorageClassOutput, true)
	case ir.StagePixel, ir.StageGeometry:
		c.Inputs = newGroup(name+"_In", GroupStageInput, ir.StorageClassInput, true)
		c.Outputs = newGroup(name+"_Out", GroupStageOutput, ir.StorageClassOutput, true)
	}

	switch stage {
	case ir.StageGeometry:
		col.collectGeometry(info)
	case ir.StageCompute:
		c.LocalSize = col.localSize(info)
		col.collectType(info, true, true)
	default:
		col.collectType(info, true, true)
	}
	col.finish()

	if opts.Diag.Len() > before {
		return c, fmt.Errorf("%s: %d interface errors in %s stage", name, opts.Diag.Len()-before, stage)
	}
	return c, nil
}

// localSize returns the compute workgroup size: the x, y and z parameters
// of the compute attribute (named or positional), defaulting to the
// configured size.
func (col *collector) localSize(info *translate.TypeInfo) [3]uint32 {
	size := col.set.DefaultLocalSize
	attr, ok := info.Decl.Attributes.Find(col.set.Attributes.Compute)
	if !ok {
		return size
	}
	positional := 0
	for _, p := range attr.Params {
		axis := -1
		switch p.Name {
		case "x", "X":
			axis = 0
		case "y", "Y":
			axis = 1
		case "z", "Z":
			axis = 2
		case "":
			axis = positional
			positional++
		}
		if axis < 0 || axis > 2 {
			continue
		}
		n, err := strconv.ParseUint(p.Value, 10, 32)
		if err != nil || n == 0 {
			col.errorf(info.Decl.Location, "invalid local size %s=%q", p.Name, p.Value)
			continue
		}
		size[axis] = uint32(n)
	}
	return size
}

func (col *collector) errorf(loc diag.Location, format string, args ...any) {
	col.diag.Addf(diag.KindInterface, loc, format, args...)
}

// key returns the field key of f under attribute attr.
func key(f *syntax.Field, attr syntax.Attribute) FieldKey {
	name := f.Name
	if override, ok := attr.NameOverride(); ok && override != "" {
		name = override
	}
	return FieldKey{Name: name, Type: f.Type.String()}
}

// carried returns the type used to carry t across a user interface:
// booleans become 32-bit integers.
func carried(lib *ir.Library, t *ir.Type) *ir.Type {
	switch {
	case t.Kind == ir.KindBool:
		return lib.IntType(32, true)
	case t.Kind == ir.KindVector && t.Elem.Kind == ir.KindBool:
		return lib.VectorType(lib.IntType(32, true), t.Count)
	}
	return t
}

func isIntegral(t *ir.Type) bool {
	s := t.Scalar()
	return s.Kind == ir.KindInt || s.Kind == ir.KindBool
}

// collectType classifies the fields of info. inputs and outputs select
// which stage interface attributes are honored.
func (col *collector) collectType(info *translate.TypeInfo, inputs, outputs bool) {
	names := col.set.Attributes
	lib := col.unit.Library
	for _, slot := range info.OrderedFields() {
		f := slot.Field
		if slot.IsResource() {
			continue
		}
		owner := &OwnerField{Owner: info, Slot: slot}
		for _, attr := range f.Attributes {
			k := key(f, attr)
			switch attr.Name {
			case names.StageInput:
				if !inputs {
					continue
				}
				if col.c.Inputs == nil {
					col.errorf(f.Location, "stage inputs are not supported in the %s stage (field %s)", col.stage, f.Name)
					continue
				}
				col.c.Inputs.add(k, carried(lib, slot.Type), slot.Type, owner)

			case names.StageOutput:
				if !outputs {
					continue
				}
				if col.c.Outputs == nil {
					col.errorf(f.Location, "stage outputs are not supported in the %s stage (field %s)", col.stage, f.Name)
					continue
				}
				col.c.Outputs.add(k, carried(lib, slot.Type), slot.Type, owner)

			case names.HardwareBuiltInInput, names.HardwareBuiltInOutput:
				output := attr.Name == names.HardwareBuiltInOutput
				if output && !outputs || !output && !inputs {
					continue
				}
				b, ok := col.set.BuiltIns.Find(col.stage, k.Name, k.Type, output)
				if !ok {
					col.errorf(f.Location, "built-in %s (%s) is not available as %s in the %s stage",
						k.Name, k.Type, direction(output), col.stage)
					continue
				}
				group := col.c.BuiltInInputs
				if output {
					group = col.c.BuiltInOutputs
				}
				fi := group.add(k, slot.Type, slot.Type, owner)
				fi.BuiltIn = &b

			case names.AppBuiltInInput, names.PropertyInput:
				if !inputs {
					continue
				}
				if col.uniform(k, slot, owner) {
					continue
				}
				if attr.Name == names.AppBuiltInInput {
					col.errorf(f.Location, "no uniform buffer available to the %s stage provides %s (%s)",
						col.stage, k.Name, k.Type)
					continue
				}
				col.c.Material.add(k, carried(lib, slot.Type), slot.Type, owner)
			}
		}
	}
}

func direction(output bool) string {
	if output {
		return "an output"
	}
	return "an input"
}

// uniform links the field to the first allowed uniform buffer describing
// key. Uniform groups hold every described field in description order.
func (col *collector) uniform(k FieldKey, slot *translate.FieldSlot, owner *OwnerField) bool {
	for _, ub := range col.set.UniformBuffers {
		if !ub.AllowedIn(col.stage) || ub.FieldIndex(k.Name, k.Type) < 0 {
			continue
		}
		group := col.uniforms[ub.Name]
		if group == nil {
			group = newGroup(ub.Name, GroupUniform, ir.StorageClassUniform, true)
			group.Binding = ub.Binding
			group.DescriptorSet = ub.DescriptorSet
			for _, uf := range ub.Fields {
				t, err := col.unit.Registry.ResolveType(mustTypeRef(uf.Type))
				if err != nil {
					col.errorf(diag.Location{}, "uniform buffer %s: field %s: %v", ub.Name, uf.Name, err)
					t = col.unit.Library.FloatType(32)
				}
				group.add(FieldKey{Name: uf.Name, Type: uf.Type}, carried(col.unit.Library, t), t, nil)
			}
			col.uniforms[ub.Name] = group
			col.c.Uniforms = append(col.c.Uniforms, group)
		}
		group.add(k, nil, nil, owner)
		return true
	}
	return false
}

func mustTypeRef(s string) syntax.TypeRef {
	ref, err := syntax.ParseTypeRef(s)
	if err != nil {
		return syntax.Named(s)
	}
	return ref
}

// collectGeometry classifies the composite's own fields (uniforms and
// built-in inputs), the input vertex type's stage inputs and the output
// vertex type's stage outputs and built-in outputs.
func (col *collector) collectGeometry(info *translate.TypeInfo) {
	loc := info.Decl.Location
	main := info.MainDecl
	if main == nil || len(main.Params) != 2 {
		col.errorf(loc, "geometry main of %s must take an input stream and an output stream", info.Decl.Name)
		return
	}
	reg := col.unit.Registry
	in, errIn := reg.Resolvers(main.Params[0].Type)
	out, errOut := reg.Resolvers(main.Params[1].Type)
	if errIn != nil || errOut != nil || in.Stream == nil || out.Stream == nil ||
		in.Stream.Kind != resolve.StreamInput || out.Stream.Kind != resolve.StreamOutput {
		col.errorf(main.Location, "geometry main of %s must take an input stream and an output stream", info.Decl.Name)
		return
	}
	g := &GeometryInfo{
		Input:        in,
		Output:       out,
		InputVertex:  col.unit.LookupType(in.Stream.Vertex.Name),
		OutputVertex: col.unit.LookupType(out.Stream.Vertex.Name),
		MaxVertices:  out.Stream.Primitive.Vertices(),
	}
	if g.InputVertex == nil || g.OutputVertex == nil {
		col.errorf(main.Location, "geometry stream vertices of %s must be fragment types", info.Decl.Name)
		return
	}
	if a, ok := info.Decl.Attributes.Find(col.set.Attributes.Geometry); ok {
		if v, ok := a.Param("maxVertices"); ok {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
				g.MaxVertices = uint32(n)
			} else {
				col.errorf(loc, "invalid maxVertices %q", v)
			}
		}
	}
	col.c.Geometry = g
	col.c.streamVertices = map[*translate.TypeInfo]bool{g.OutputVertex: true}
	col.c.Inputs.ArraySize = in.Stream.Primitive.Vertices()

	col.collectType(info, true, false)
	col.collectType(g.InputVertex, true, false)
	col.collectType(g.OutputVertex, false, true)

	for _, fi := range col.c.Inputs.Fields {
		if col.c.Outputs.Field(fi.Key) != nil {
			continue
		}
		out := col.c.Outputs.add(fi.Key, fi.Type, fi.ValueType, nil)
		out.PassThrough = true
	}
}

// finish assigns locations and records the pending decorations.
func (col *collector) finish() {
	c := col.c
	if c.Inputs != nil {
		switch col.stage {
		case ir.StageVertex:
			for _, fi := range c.Inputs.Fields {
				if loc, ok := col.set.VertexLocation(fi.Key.Name, fi.Key.Type); ok {
					fi.Location = loc
				} else {
					fi.Location = col.nextVertex
					col.nextVertex++
				}
				fi.HasLocation = true
			}
		default:
			c.Inputs.Decorate(ir.NoMember, ir.DecorationLocation, 0)
			if col.stage == ir.StagePixel {
				for i, fi := range c.Inputs.Fields {
					if isIntegral(fi.ValueType) {
						fi.Flat = true
						c.Inputs.Decorate(i, ir.DecorationFlat)
					}
				}
			}
		}
	}
	if c.Outputs != nil {
		c.Outputs.Decorate(ir.NoMember, ir.DecorationLocation, 0)
	}
	for _, g := range append(append([]*InterfaceInfoGroup(nil), c.Uniforms...), c.Material) {
		g.Decorate(ir.NoMember, ir.DecorationBinding, g.Binding)
		g.Decorate(ir.NoMember, ir.DecorationDescriptorSet, g.DescriptorSet)
	}
	for _, g := range []*InterfaceInfoGroup{c.BuiltInInputs, c.BuiltInOutputs} {
		for i, fi := range g.Fields {
			g.Decorate(i, ir.DecorationBuiltIn, uint32(fi.BuiltIn.BuiltIn))
		}
	}
}
