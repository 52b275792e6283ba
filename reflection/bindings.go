// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dave/jennifer/jen"
	"github.com/iancoleman/strcase"
)

var vectorName = regexp.MustCompile(`^(Real|Integer|Boolean)([2-4])?(?:x([2-4]))?$`)

// goType maps a host type name to a Go type with the same std140 size.
// ok is false for types without a direct mapping.
func goType(name string) (jen.Code, bool) {
	m := vectorName.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	scalar := jen.Float32()
	if m[1] != "Real" {
		scalar = jen.Int32()
	}
	switch {
	case m[3] != "":
		cols, _ := strconv.Atoi(m[3])
		return jen.Index(jen.Lit(cols)).Index(jen.Lit(4)).Add(scalar), true
	case m[2] != "":
		n, _ := strconv.Atoi(m[2])
		return jen.Index(jen.Lit(n)).Add(scalar), true
	}
	return scalar, true
}

// GenerateBindings renders a Go file declaring one struct per uniform
// buffer, with explicit padding so field offsets match the reflected
// layout, and binding constants for every resource.
func GenerateBindings(pkg string, records ...*ShaderStageInterfaceReflection) ([]byte, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by fragc. DO NOT EDIT.")

	seen := make(map[string]bool)
	for _, r := range records {
		for _, u := range r.Uniforms {
			name := strcase.ToCamel(u.Name)
			if seen[name] {
				continue
			}
			seen[name] = true
			f.Comment(fmt.Sprintf("%s mirrors uniform buffer %s (%d bytes).", name, u.Name, u.Size))
			f.Type().Id(name).Struct(uniformFields(u)...)
			f.Line()
		}

		var consts []jen.Code
		prefix := strcase.ToCamel(r.Name)
		for _, u := range r.Uniforms {
			consts = append(consts, jen.Id(prefix+strcase.ToCamel(u.Name)+"Binding").Op("=").Lit(int(u.Binding)))
		}
		for _, group := range [][]Resource{r.Images, r.Samplers, r.SampledImages} {
			for _, res := range group {
				consts = append(consts, jen.Id(prefix+strcase.ToCamel(res.Name)+"Binding").Op("=").Lit(int(res.Binding)))
			}
		}
		for _, sb := range r.StorageBuffers {
			consts = append(consts, jen.Id(prefix+strcase.ToCamel(sb.Name)+"Binding").Op("=").Lit(int(sb.Binding)))
		}
		for _, in := range r.Inputs {
			if in.BuiltIn == "" {
				consts = append(consts, jen.Id(prefix+strcase.ToCamel(in.Name)+"Location").Op("=").Lit(int(in.Location)))
			}
		}
		if len(consts) > 0 {
			f.Comment(fmt.Sprintf("Bindings of %s.", r.Name))
			f.Const().Defs(consts...)
			f.Line()
		}
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("render bindings: %w", err)
	}
	return buf.Bytes(), nil
}

func uniformFields(u UniformBuffer) []jen.Code {
	var fields []jen.Code
	offset := uint32(0)
	for _, m := range u.Members {
		if m.Offset > offset {
			fields = append(fields, jen.Id("_").Index(jen.Lit(int(m.Offset-offset))).Byte())
		}
		typ, ok := goType(m.Type)
		if !ok {
			typ = jen.Index(jen.Lit(int(m.Size))).Byte()
		}
		fields = append(fields, jen.Id(strcase.ToCamel(m.Name)).Add(typ).Comment(fmt.Sprintf("offset %d", m.Offset)))
		offset = m.Offset + m.Size
	}
	if u.Size > offset {
		fields = append(fields, jen.Id("_").Index(jen.Lit(int(u.Size-offset))).Byte())
	}
	return fields
}
