// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/iface"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/reflection"
	"github.com/gogpu/fragc/settings"
	"github.com/gogpu/fragc/translate"
)

// Options configures GLSL generation.
type Options struct {
	// Version is the target GLSL version. Defaults to Version450.
	Version Version

	Settings *settings.Settings
	// Diag receives node-local errors. A fresh list is used when nil.
	Diag   *diag.List
	Logger *slog.Logger
}

// Shader is the generated source of one entry-point type and stage.
type Shader struct {
	TypeName string
	Stage    ir.Stage
	Version  Version
	Source   string
}

// Name returns the reflected name shared with the binary backend.
func (s *Shader) Name() string {
	return reflection.ReflectedName(s.TypeName, s.Stage)
}

// FileName returns the output file name, e.g. "Mesh_Vertex.glsl450.vert".
func (s *Shader) FileName() string {
	return fmt.Sprintf("%s.glsl%d.%s", s.Name(), s.Version.Number(), Extension(s.Stage))
}

// function is one generated GLSL function.
type function struct {
	name   string
	static bool
	proto  string
	body   string
}

// structDecl is a fragment type declared as a GLSL struct.
type structDecl struct {
	info    *translate.TypeInfo
	members []string
}

// resource is a declared image, sampler or storage buffer global.
type resource struct {
	name  string
	lines []string
}

type generator struct {
	unit   *translate.Unit
	info   *translate.TypeInfo
	stage  ir.Stage
	opts   Options
	policy policy
	reg    *registry
	log    *slog.Logger
	col    *iface.Collection

	structs   []*structDecl
	structSet map[*translate.TypeInfo]bool

	functions []*function
	funcIndex map[string]*function

	resources []*resource
	slots     map[*translate.FieldSlot]*resource

	nextTexture uint32
	nextImage   uint32
	usedBuffers map[uint32]bool

	// appendVertices are the output vertex types appended to, in first
	// use order.
	appendVertices []*translate.TypeInfo
}

// Compile generates the GLSL source of typeName for stage. A type that is
// not default constructible, has no main function or uses a stage the
// version cannot express is a structural error. Node-local errors are
// reported to opts.Diag and returned together.
func Compile(unit *translate.Unit, typeName string, stage ir.Stage, opts Options) (*Shader, error) {
	if opts.Version.IsZero() {
		opts.Version = Version450
	}
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
	if info.MainDecl == nil {
		return nil, diag.Newf(diag.KindStructural, loc, "entry point type %s has no function marked %s", typeName, opts.Settings.Attributes.Main)
	}
	p, err := policyFor(opts.Version)
	if err != nil {
		return nil, diag.New(diag.KindStructural, loc, err.Error())
	}
	if !p.supports(stage) {
		return nil, diag.Newf(diag.KindStructural, loc, "GLSL %s cannot express the %s stage of %s", opts.Version, stage, typeName)
	}

	col, err := iface.Collect(unit, info, stage, iface.Options{Settings: opts.Settings, Diag: opts.Diag})
	if err != nil {
		return nil, err
	}

	g := &generator{
		unit:        unit,
		info:        info,
		stage:       stage,
		opts:        opts,
		policy:      p,
		reg:         newRegistry(p),
		log:         opts.Logger.With("type", typeName, "stage", stage.String(), "glsl", opts.Version.String()),
		col:         col,
		structSet:   make(map[*translate.TypeInfo]bool),
		funcIndex:   make(map[string]*function),
		slots:       make(map[*translate.FieldSlot]*resource),
		usedBuffers: make(map[uint32]bool),
	}
	for _, group := range col.Groups() {
		if group.Kind == iface.GroupUniform || group.Kind == iface.GroupMaterial {
			g.usedBuffers[group.Binding] = true
		}
	}

	before := opts.Diag.Len()
	source := g.generate()
	if opts.Diag.Len() > before {
		return nil, fmt.Errorf("%s: %d errors generating GLSL %s", reflection.ReflectedName(typeName, stage), opts.Diag.Len()-before, opts.Version)
	}
	g.log.Debug("generated glsl",
		"structs", len(g.structs),
		"functions", len(g.functions),
		"resources", len(g.resources))
	return &Shader{TypeName: typeName, Stage: stage, Version: opts.Version, Source: source}, nil
}

// CompileAll generates every stage of every entry-point type of unit for
// opts.Version, or for every configured version when it is zero. Stages a
// version cannot express are skipped.
func CompileAll(unit *translate.Unit, opts Options) ([]*Shader, error) {
	if opts.Settings == nil {
		opts.Settings = settings.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	versions := []Version{opts.Version}
	if opts.Version.IsZero() {
		var err error
		if versions, err = Versions(opts.Settings); err != nil {
			return nil, err
		}
	}
	var shaders []*Shader
	for _, v := range versions {
		p, err := policyFor(v)
		if err != nil {
			return nil, err
		}
		for _, t := range unit.TypeList() {
			for _, stage := range t.Stages(opts.Settings.Attributes) {
				if !p.supports(stage) {
					opts.Logger.Debug("skipping stage", "type", t.Decl.Name, "stage", stage.String(), "glsl", v.String())
					continue
				}
				o := opts
				o.Version = v
				s, err := Compile(unit, t.Decl.Name, stage, o)
				if err != nil {
					return shaders, err
				}
				shaders = append(shaders, s)
			}
		}
	}
	return shaders, nil
}

func (g *generator) errorf(kind diag.Kind, loc diag.Location, format string, args ...any) {
	g.opts.Diag.Addf(kind, loc, format, args...)
}

// generate renders the whole source. Functions are rendered first because
// rendering discovers the structs and resources they use.
func (g *generator) generate() string {
	g.useStruct(g.info)
	entry := g.entryPoint()

	var w writer
	w.writeLine(g.opts.Version.Directive())
	w.writeLine("// %s, %s stage", g.info.Decl.Name, g.stage)
	w.blank()

	if len(g.structs) > 0 {
		w.section("structs")
		for _, s := range g.structs {
			w.braced("struct "+structName(s.info), ";", func() {
				for _, m := range s.members {
					w.writeLine("%s;", m)
				}
			})
			w.blank()
		}
	}

	if decls := g.interfaceDecls(); decls != "" {
		w.section("interface")
		w.out.WriteString(decls)
		w.blank()
	}

	if len(g.resources) > 0 {
		w.section("resources")
		for _, r := range g.resources {
			for _, line := range r.lines {
				w.writeLine(line)
			}
		}
		w.blank()
	}

	if len(g.functions) > 0 {
		w.section("prototypes")
		for _, fn := range g.functions {
			w.writeLine("%s;", fn.proto)
		}
		w.blank()

		w.section("functions")
		for _, fn := range g.functions {
			writeFunction(&w, fn)
		}
	}

	w.section("entry point")
	for _, fn := range entry {
		writeFunction(&w, fn)
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

func writeFunction(w *writer, fn *function) {
	w.writeLine("%s {", fn.proto)
	w.out.WriteString(fn.body)
	w.writeLine("}")
	w.blank()
}
