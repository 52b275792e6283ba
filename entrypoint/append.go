// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package entrypoint

import (
	"github.com/gogpu/fragc/iface"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/resolve"
)

// AppendCallback adds code to a geometry append helper after the vertex
// has been written to the outputs and before it is emitted.
type AppendCallback func(ctx *AppendContext)

// AppendContext gives append callbacks access to the helper being built.
type AppendContext struct {
	Builder *ir.Builder
	gen     *generator
}

// Library returns the entry point library.
func (c *AppendContext) Library() *ir.Library {
	return c.gen.lib
}

// Output returns a pointer to the stage or built-in output named name and
// the type stored there.
func (c *AppendContext) Output(name string) (ir.Value, *ir.Type, bool) {
	for _, group := range []*iface.InterfaceInfoGroup{c.gen.col.Outputs, c.gen.col.BuiltInOutputs} {
		if group.Empty() {
			continue
		}
		for i, fi := range group.Fields {
			if fi.Key.Name == name {
				return c.gen.pointer(c.Builder, group, i, nil), fi.Type, true
			}
		}
	}
	return nil, nil, false
}

// PerspectiveDivide divides the four-component float output named field by
// its w component.
func PerspectiveDivide(field string) AppendCallback {
	return func(ctx *AppendContext) {
		ptr, t, ok := ctx.Output(field)
		if !ok || t.Kind != ir.KindVector || t.Count != 4 || t.Elem.Kind != ir.KindFloat {
			return
		}
		b := ctx.Builder
		lib := ctx.Library()
		v := b.Load(ptr)
		w := b.CompositeExtract(v, t.Elem, 3)
		inv := b.Emit(ir.OpFDiv, t.Elem, resolve.One(lib, t.Elem), w)
		b.Store(ptr, b.Emit(ir.OpVectorTimesScalar, t, v, inv))
	}
}
