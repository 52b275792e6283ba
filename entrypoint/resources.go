// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package entrypoint

import (
	"github.com/gogpu/fragc/iface"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/layout"
	"github.com/gogpu/fragc/reflection"
)

type resourceClass uint8

const (
	classImage resourceClass = iota
	classSampler
	classSampledImage
	classBuffer
)

func classify(gv *ir.GlobalVariable) (resourceClass, bool) {
	switch gv.StorageClass {
	case ir.StorageClassStorageBuffer:
		return classBuffer, true
	case ir.StorageClassUniformConstant:
		switch gv.ValueType().Kind {
		case ir.KindImage:
			return classImage, true
		case ir.KindSampler:
			return classSampler, true
		case ir.KindSampledImage:
			return classSampledImage, true
		}
	}
	return 0, false
}

// bindingSpace tracks used binding numbers.
type bindingSpace map[uint32]bool

// first returns the lowest binding free in every space.
func first(spaces ...bindingSpace) uint32 {
	for n := uint32(0); ; n++ {
		free := true
		for _, s := range spaces {
			if s[n] {
				free = false
				break
			}
		}
		if free {
			return n
		}
	}
}

// reachableResources returns the opaque and storage buffer globals used by
// functions reachable from the entry point, in first-use order.
func (g *generator) reachableResources() []*ir.GlobalVariable {
	var out []*ir.GlobalVariable
	seen := make(map[*ir.GlobalVariable]bool)
	for _, f := range g.ep.Reachable() {
		for _, b := range f.Blocks {
			for _, op := range b.Ops {
				for _, operand := range op.Operands {
					gv, ok := operand.(*ir.GlobalVariable)
					if !ok || seen[gv] {
						continue
					}
					if _, ok := classify(gv); ok {
						seen[gv] = true
						out = append(out, gv)
					}
				}
			}
		}
	}
	return out
}

// bindResources assigns first-fit bindings in descriptor set 0. Images and
// samplers each have their own space; combined image samplers must be free
// in both. Storage buffers share the space of uniform buffers.
func (g *generator) bindResources() {
	images, samplers, buffers := bindingSpace{}, bindingSpace{}, bindingSpace{}
	for _, group := range g.col.Groups() {
		if group.Kind == iface.GroupUniform || group.Kind == iface.GroupMaterial {
			buffers[group.Binding] = true
		}
	}
	for _, gv := range g.reachableResources() {
		class, _ := classify(gv)
		var n uint32
		switch class {
		case classImage:
			n = first(images)
			images[n] = true
		case classSampler:
			n = first(samplers)
			samplers[n] = true
		case classSampledImage:
			n = first(images, samplers)
			images[n] = true
			samplers[n] = true
		case classBuffer:
			n = first(buffers)
			buffers[n] = true
			st := gv.ValueType()
			g.deco.Decorate(st, ir.DecorationBlock)
			layout.Decorate(g.deco, st)
		}
		g.deco.Decorate(gv, ir.DecorationBinding, n)
		g.deco.Decorate(gv, ir.DecorationDescriptorSet, 0)
		g.out.Resources = append(g.out.Resources, gv)
	}
}

func (g *generator) binding(gv *ir.GlobalVariable) uint32 {
	if d, ok := g.deco.Find(gv, ir.NoMember, ir.DecorationBinding); ok && len(d.Params) > 0 {
		return d.Params[0]
	}
	return 0
}

func (g *generator) reflect() *reflection.ShaderStageInterfaceReflection {
	r := &reflection.ShaderStageInterfaceReflection{
		Name:       reflection.ReflectedName(g.info.Decl.Name, g.stage),
		TypeName:   g.info.Decl.Name,
		Stage:      g.stage,
		EntryPoint: EntryPointName,
	}
	c := g.col
	r.Inputs = append(stageVariables(c.Inputs), stageVariables(c.BuiltInInputs)...)
	r.Outputs = append(stageVariables(c.Outputs), stageVariables(c.BuiltInOutputs)...)

	for _, group := range c.Groups() {
		if group.Kind != iface.GroupUniform && group.Kind != iface.GroupMaterial {
			continue
		}
		gv := g.out.Groups[group]
		u := reflection.UniformBuffer{
			Name:          group.Name,
			Binding:       group.Binding,
			DescriptorSet: group.DescriptorSet,
			Size:          gv.Layout.Size,
		}
		for i, m := range gv.Layout.Members {
			u.Members = append(u.Members, reflection.Member{
				Name:   m.Name,
				Type:   group.Fields[i].Key.Type,
				Offset: m.Offset,
				Size:   m.Size,
			})
		}
		r.Uniforms = append(r.Uniforms, u)
	}

	for _, gv := range g.out.Resources {
		class, _ := classify(gv)
		res := reflection.Resource{Name: gv.Name, Type: gv.ValueType().String(), Binding: g.binding(gv)}
		switch class {
		case classImage:
			r.Images = append(r.Images, res)
		case classSampler:
			r.Samplers = append(r.Samplers, res)
		case classSampledImage:
			r.SampledImages = append(r.SampledImages, res)
		case classBuffer:
			elem := gv.ValueType().Members[0].Type.Elem
			r.StorageBuffers = append(r.StorageBuffers, reflection.StorageBuffer{
				Name:    gv.Name,
				Type:    elem.String(),
				Binding: res.Binding,
				Stride:  layout.RuntimeArrayStride(elem),
			})
		}
	}

	if g.stage == ir.StageCompute {
		for _, m := range g.ep.ExecutionModes {
			if m.Mode == ir.ExecutionModeLocalSize {
				r.LocalSize = append([]uint32(nil), m.Params...)
			}
		}
	}
	return r
}

// stageVariables reflects group. Block members are located by index from
// the block's location 0.
func stageVariables(group *iface.InterfaceInfoGroup) []reflection.StageVariable {
	if group.Empty() {
		return nil
	}
	var vars []reflection.StageVariable
	for i, fi := range group.Fields {
		v := reflection.StageVariable{Name: fi.Key.Name, Type: fi.Key.Type, Flat: fi.Flat}
		switch {
		case fi.BuiltIn != nil:
			v.BuiltIn = fi.BuiltIn.BuiltIn.String()
		case group.Block:
			v.Location = uint32(i)
		default:
			v.Location = fi.Location
		}
		vars = append(vars, v)
	}
	return vars
}
