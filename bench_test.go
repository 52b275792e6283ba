// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package fragc

import (
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/gogpu/fragc/glsl"
	"github.com/gogpu/fragc/pass"
	"github.com/gogpu/fragc/spirv"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func mustTranslate(b *testing.B, doc string) *translate.Unit {
	b.Helper()
	src, err := syntax.Parse("bench.yaml", []byte(doc))
	if err != nil {
		b.Fatalf("parse failed: %v", err)
	}
	unit, err := Translate(src, nil, CompileOptions{Logger: quiet})
	if err != nil {
		b.Fatalf("translate failed: %v", err)
	}
	return unit
}

// BenchmarkCompile benchmarks translation plus every backend per document.
func BenchmarkCompile(b *testing.B) {
	docs := []struct {
		name string
		doc  string
	}{
		{"Vertex", meshDoc},
		{"Pixel", flatDoc},
	}
	for _, d := range docs {
		b.Run(d.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(d.doc)))
			b.ResetTimer()

			var out *Output
			for i := 0; i < b.N; i++ {
				src, err := syntax.Parse("bench.yaml", []byte(d.doc))
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
				opts := DefaultOptions()
				opts.Logger = quiet
				out, err = Compile(src, nil, opts)
				if err != nil {
					b.Fatalf("compile failed: %v", err)
				}
			}
			runtime.KeepAlive(out)
		})
	}
}

// BenchmarkBackends benchmarks only the emit phase of each backend over a
// translated unit.
func BenchmarkBackends(b *testing.B) {
	unit := mustTranslate(b, flatDoc)

	b.Run("SPIRV", func(b *testing.B) {
		b.ReportAllocs()
		opts := DefaultOptions()
		opts.GLSL = false
		opts.Logger = quiet
		var out *Output
		for i := 0; i < b.N; i++ {
			var err error
			out, err = CompileUnit(unit, opts)
			if err != nil {
				b.Fatalf("compile failed: %v", err)
			}
		}
		runtime.KeepAlive(out)
	})

	b.Run("GLSL", func(b *testing.B) {
		b.ReportAllocs()
		var shaders []*glsl.Shader
		for i := 0; i < b.N; i++ {
			var err error
			shaders, err = glsl.CompileAll(unit, glsl.Options{Logger: quiet})
			if err != nil {
				b.Fatalf("compile failed: %v", err)
			}
		}
		runtime.KeepAlive(shaders)
	})
}

// BenchmarkPasses benchmarks the built-in passes over one binary.
func BenchmarkPasses(b *testing.B) {
	unit := mustTranslate(b, flatDoc)
	opts := DefaultOptions()
	opts.GLSL = false
	opts.Logger = quiet
	opts.SPIRV = spirv.DefaultOptions()
	out, err := CompileUnit(unit, opts)
	if err != nil {
		b.Fatalf("compile failed: %v", err)
	}
	in := &pass.TranslationPassResult{Data: out.Stages[0].Binary, Reflection: out.Stages[0].Reflection}
	p := pass.NewPipeline(&pass.Optimizer{}, &pass.Validator{})
	p.Logger = quiet

	b.ReportAllocs()
	b.SetBytes(int64(len(in.Data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(in); err != nil {
			b.Fatalf("pipeline failed: %v", err)
		}
	}
}
