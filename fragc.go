// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package fragc compiles fragment shader libraries to SPIR-V and GLSL.
//
// A library is a checked syntax tree of fragment types, loaded from YAML
// documents produced by a front-end. Types marked with a stage attribute
// (Vertex, Pixel, Geometry or Compute) become entry points: their stage
// inputs, outputs and uniform properties are stitched to the neighbouring
// stages and to the buffers described by [settings.Settings].
//
// Example usage:
//
//	src, err := fragc.Load("shaders/lit.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := fragc.Compile(src, nil, fragc.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, stage := range out.Stages {
//	    os.WriteFile(stage.Name()+".spv", stage.Binary, 0o644)
//	}
//
// The individual steps are available in the translate, entrypoint, spirv,
// glsl and pass packages.
package fragc

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/entrypoint"
	"github.com/gogpu/fragc/glsl"
	"github.com/gogpu/fragc/pass"
	"github.com/gogpu/fragc/reflection"
	"github.com/gogpu/fragc/settings"
	"github.com/gogpu/fragc/spirv"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

// Version is the compiler version.
const Version = "0.4.0"

// CompileOptions configures compilation.
type CompileOptions struct {
	// Settings describes built-ins, uniform buffers and targets. The
	// defaults are used when nil.
	Settings *settings.Settings

	// SPIRV configures the binary backend.
	SPIRV spirv.Options

	// GLSL enables the textual backend for every configured version.
	GLSL bool

	// Passes run over every binary stage in order.
	Passes []pass.Pass

	AppendCallbacks []entrypoint.AppendCallback

	// Diag receives node-local errors as they are reported.
	Diag   *diag.List
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		SPIRV: spirv.DefaultOptions(),
		GLSL:  true,
	}
}

// Stage is one compiled entry-point stage.
type Stage struct {
	Info       *entrypoint.Info
	Binary     []byte
	Reflection *reflection.ShaderStageInterfaceReflection
	// Log holds the messages of the passes that ran.
	Log []string
}

// Name returns the reflected type name, "<Type>_<Stage>".
func (s *Stage) Name() string {
	return reflection.ReflectedName(s.Info.TypeName, s.Info.Stage)
}

// Output is the result of compiling one library.
type Output struct {
	Unit   *translate.Unit
	Stages []*Stage
	GLSL   []*glsl.Shader
}

// Stage returns the compiled stage with the given reflected name.
func (o *Output) Stage(name string) *Stage {
	for _, s := range o.Stages {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// Reflections returns the reflection record of every stage.
func (o *Output) Reflections() []*reflection.ShaderStageInterfaceReflection {
	records := make([]*reflection.ShaderStageInterfaceReflection, len(o.Stages))
	for i, s := range o.Stages {
		records[i] = s.Reflection
	}
	return records
}

// Load reads and merges syntax documents into one library. The library is
// named after the first document.
func Load(paths ...string) (*syntax.Library, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no syntax documents")
	}
	var lib *syntax.Library
	for _, path := range paths {
		doc, err := syntax.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if lib == nil {
			lib = doc
			continue
		}
		lib.Merge(doc)
	}
	return lib, nil
}

// Translate builds the IR of src on top of deps. Without dependencies the
// core library is used.
func Translate(src *syntax.Library, deps []*translate.Unit, opts CompileOptions) (*translate.Unit, error) {
	opts = opts.withDefaults()
	return translate.Translate(src, deps, translate.Options{
		Settings: opts.Settings,
		Diag:     opts.Diag,
		Logger:   opts.Logger,
	})
}

// Compile translates src and compiles every entry point it declares.
func Compile(src *syntax.Library, deps []*translate.Unit, opts CompileOptions) (*Output, error) {
	opts = opts.withDefaults()
	unit, err := Translate(src, deps, opts)
	if err != nil {
		return nil, fmt.Errorf("translate %s: %w", src.Name, err)
	}
	return CompileUnit(unit, opts)
}

// CompileUnit compiles every entry point of an already translated unit.
//
// The compilation pipeline is:
//  1. Generate an entry point per type and stage
//  2. Emit the SPIR-V binary
//  3. Run the passes over each binary
//  4. Emit GLSL for each configured version (if enabled)
func CompileUnit(unit *translate.Unit, opts CompileOptions) (*Output, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With("library", unit.Syntax.Name)

	infos, err := entrypoint.GenerateAll(unit, entrypoint.Options{
		Settings:        opts.Settings,
		Diag:            opts.Diag,
		Logger:          opts.Logger,
		AppendCallbacks: opts.AppendCallbacks,
	})
	if err != nil {
		return nil, fmt.Errorf("entry points: %w", err)
	}

	out := &Output{Unit: unit}
	pipeline := &pass.Pipeline{Passes: opts.Passes, Logger: opts.Logger}
	for _, info := range infos {
		data, err := spirv.Compile(info.Library, info.EntryPoint, opts.SPIRV)
		if err != nil {
			return nil, fmt.Errorf("%s: SPIR-V generation error: %w", reflection.ReflectedName(info.TypeName, info.Stage), err)
		}
		result, err := pipeline.Run(&pass.TranslationPassResult{Data: data, Reflection: info.Reflection})
		if err != nil {
			return nil, err
		}
		stage := &Stage{Info: info, Binary: result.Data, Reflection: info.Reflection, Log: result.Log}
		log.Debug("compiled stage", "stage", stage.Name(), "bytes", len(stage.Binary))
		out.Stages = append(out.Stages, stage)
	}

	if opts.GLSL {
		shaders, err := glsl.CompileAll(unit, glsl.Options{
			Settings: opts.Settings,
			Diag:     opts.Diag,
			Logger:   opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("GLSL generation error: %w", err)
		}
		out.GLSL = shaders
	}
	return out, nil
}

// Disassemble renders a SPIR-V binary as text.
func Disassemble(data []byte) (string, error) {
	return spirv.Disassemble(data)
}

func (o CompileOptions) withDefaults() CompileOptions {
	if o.Settings == nil {
		o.Settings = settings.Default()
	}
	if o.Diag == nil {
		o.Diag = diag.NewList(nil)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.SPIRV.Version == (spirv.Version{}) {
		o.SPIRV.Version = spirv.Version1_3
	}
	if o.SPIRV.Logger == nil {
		o.SPIRV.Logger = o.Logger
	}
	return o
}
