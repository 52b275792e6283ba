// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/resolve"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

// valueType is a scalar, vector or square matrix host type.
type valueType struct {
	glsl   string
	family string
	n      uint32
	matrix bool
}

func (v valueType) zero() string {
	z := zeroScalar(v.family)
	if v.n == 1 && !v.matrix {
		return z
	}
	return v.glsl + "(" + z + ")"
}

func zeroScalar(family string) string {
	switch family {
	case resolve.Integer:
		return "0"
	case resolve.Boolean:
		return "false"
	default:
		return "0.0"
	}
}

var vectorPrefixes = map[string][2]string{
	resolve.Real:    {"float", "vec"},
	resolve.Integer: {"int", "ivec"},
	resolve.Boolean: {"bool", "bvec"},
}

var valueTypes = func() map[string]valueType {
	types := make(map[string]valueType)
	for family, names := range vectorPrefixes {
		types[family] = valueType{glsl: names[0], family: family, n: 1}
		for n := uint32(2); n <= 4; n++ {
			types[resolve.VectorName(family, n)] = valueType{glsl: fmt.Sprintf("%s%d", names[1], n), family: family, n: n}
		}
	}
	for n := uint32(2); n <= 4; n++ {
		types[resolve.MatrixName(n)] = valueType{glsl: fmt.Sprintf("mat%d", n), family: resolve.Real, n: n, matrix: true}
	}
	return types
}()

// streamInputs maps input stream templates to their primitive.
var streamInputs = map[string]resolve.Primitive{
	resolve.TemplatePointInput:    resolve.PrimitivePoint,
	resolve.TemplateLineInput:     resolve.PrimitiveLine,
	resolve.TemplateTriangleInput: resolve.PrimitiveTriangle,
}

// streamOutputs maps output stream templates to their primitive.
var streamOutputs = map[string]resolve.Primitive{
	resolve.TemplatePointOutput:    resolve.PrimitivePoint,
	resolve.TemplateLineOutput:     resolve.PrimitiveLine,
	resolve.TemplateTriangleOutput: resolve.PrimitiveTriangle,
}

// primitiveLayouts holds the input and output layout qualifiers of a
// geometry primitive.
var primitiveLayouts = map[resolve.Primitive][2]string{
	resolve.PrimitivePoint:    {"points", "points"},
	resolve.PrimitiveLine:     {"lines", "line_strip"},
	resolve.PrimitiveTriangle: {"triangles", "triangle_strip"},
}

// opaqueTypes maps combinable image types to GLSL. Separate images and
// samplers have no GLSL spelling and are missing here.
var opaqueTypes = map[string]string{
	resolve.SampledImage2d:      "sampler2D",
	resolve.SampledDepthImage2d: "sampler2D",
	resolve.StorageImage2d:      "image2D",
}

func isSeparateImage(name string) bool {
	return name == resolve.Image2d || name == resolve.DepthImage2d || name == resolve.Sampler
}

// elementRef returns the first type argument of a template reference.
func elementRef(ref syntax.TypeRef) (syntax.TypeRef, bool) {
	if len(ref.Args) == 0 || ref.Args[0].IsValue {
		return syntax.TypeRef{}, false
	}
	return *ref.Args[0].Type, true
}

// arrayLength returns the element count of a fixed array or input stream
// reference.
func arrayLength(ref syntax.TypeRef) (uint32, bool) {
	if p, ok := streamInputs[ref.Name]; ok {
		return p.Vertices(), true
	}
	if ref.Name == resolve.TemplateFixedArray && len(ref.Args) == 2 && ref.Args[1].IsValue {
		return uint32(ref.Args[1].Value), true
	}
	return 0, false
}

// fragment returns the fragment type named by ref, if any.
func (g *generator) fragment(ref syntax.TypeRef) *translate.TypeInfo {
	if ref.IsTemplate() {
		return nil
	}
	return g.unit.LookupType(ref.Name)
}

// declType returns the base type and array suffix used to declare a value
// of ref. Fragment types are recorded as used structs.
func (g *generator) declType(ref syntax.TypeRef, loc diag.Location) (string, string) {
	if ref.IsVoid() {
		return "void", ""
	}
	if vt, ok := valueTypes[ref.Name]; ok && !ref.IsTemplate() {
		return vt.glsl, ""
	}
	if n, ok := arrayLength(ref); ok {
		elem, _ := elementRef(ref)
		base, suffix := g.declType(elem, loc)
		return base, fmt.Sprintf("[%d]", n) + suffix
	}
	if _, ok := streamOutputs[ref.Name]; ok {
		// Output streams carry no data; Append writes the stage outputs.
		return "int", ""
	}
	if glsl, ok := opaqueTypes[ref.Name]; ok {
		return glsl, ""
	}
	if info := g.fragment(ref); info != nil {
		g.useStruct(info)
		return structName(info), ""
	}
	g.errorf(diag.KindResolution, loc, "type %s has no GLSL equivalent", ref)
	return "float", ""
}

// typeName returns the full type spelling of ref, e.g. "float[4]".
func (g *generator) typeName(ref syntax.TypeRef, loc diag.Location) string {
	base, suffix := g.declType(ref, loc)
	return base + suffix
}

// zero returns the default value of ref.
func (g *generator) zero(ref syntax.TypeRef, loc diag.Location) string {
	if vt, ok := valueTypes[ref.Name]; ok && !ref.IsTemplate() {
		return vt.zero()
	}
	if n, ok := arrayLength(ref); ok {
		elem, _ := elementRef(ref)
		z := g.zero(elem, loc)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = z
		}
		return g.typeName(ref, loc) + "(" + strings.Join(parts, ", ") + ")"
	}
	if _, ok := streamOutputs[ref.Name]; ok {
		return "0"
	}
	if info := g.fragment(ref); info != nil {
		return g.factory(info, nil, loc) + "()"
	}
	g.errorf(diag.KindResolution, loc, "type %s has no default value in GLSL", ref)
	return "0.0"
}

// irDecl returns the base type and array suffix of an interface type.
func irDecl(t *ir.Type) (string, string) {
	switch t.Kind {
	case ir.KindBool:
		return "bool", ""
	case ir.KindInt:
		if t.Signed {
			return "int", ""
		}
		return "uint", ""
	case ir.KindFloat:
		if t.Width == 64 {
			return "double", ""
		}
		return "float", ""
	case ir.KindVector:
		scalar, _ := irDecl(t.Elem)
		prefix := map[string]string{"bool": "bvec", "int": "ivec", "uint": "uvec", "double": "dvec"}[scalar]
		if prefix == "" {
			prefix = "vec"
		}
		return fmt.Sprintf("%s%d", prefix, t.Count), ""
	case ir.KindMatrix:
		if t.Elem.Count == t.Count {
			return fmt.Sprintf("mat%d", t.Count), ""
		}
		return fmt.Sprintf("mat%dx%d", t.Count, t.Elem.Count), ""
	case ir.KindFixedArray:
		base, suffix := irDecl(t.Elem)
		return base, fmt.Sprintf("[%d]", t.Count) + suffix
	case ir.KindStruct:
		return escapeKeyword(t.Name), ""
	}
	return "float", ""
}

// irTypeName returns the full spelling of an interface type.
func irTypeName(t *ir.Type) string {
	base, suffix := irDecl(t)
	return base + suffix
}

// isIntegral reports whether values of t need flat interpolation.
func isIntegral(t *ir.Type) bool {
	for t.Kind == ir.KindFixedArray || t.Kind == ir.KindVector || t.Kind == ir.KindMatrix {
		t = t.Elem
	}
	return t.Kind == ir.KindInt || t.Kind == ir.KindBool
}

// realLiteral makes sure a Real literal is spelled as a float.
func realLiteral(s string) string {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "f"), "F")
	if strings.ContainsAny(s, ".eE") || strings.HasPrefix(s, "0x") {
		return s
	}
	return s + ".0"
}
