// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/fragc"
	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/pass"
	"github.com/gogpu/fragc/reflection"
	"github.com/gogpu/fragc/translate"
)

// Builder compiles projects and writes their outputs.
type Builder struct {
	Logger *slog.Logger

	// Listener receives every node-local diagnostic as it is reported.
	// Calls are serialized, also across the roots of CompileAll.
	Listener diag.Listener

	// DryRun compiles without writing any file.
	DryRun bool

	mu sync.Mutex
}

// Result is the outcome of building one project.
type Result struct {
	Project *Project
	Output  *fragc.Output
	// Files are the paths written, in write order.
	Files []string
}

func (b *Builder) report(e *diag.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Listener(e)
}

func (b *Builder) listener() diag.Listener {
	if b.Listener == nil {
		return nil
	}
	return b.report
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// Build compiles every project of g, dependencies first. Each call owns
// its library instances; ctx is checked between projects.
func (b *Builder) Build(ctx context.Context, g *Graph) ([]*Result, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	core, err := translate.NewCoreUnit()
	if err != nil {
		return nil, err
	}

	units := make(map[string]*translate.Unit, len(order))
	results := make([]*Result, 0, len(order))
	for _, p := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		deps := []*translate.Unit{core}
		if len(p.Dependencies) > 0 {
			deps = deps[:0]
			for _, dir := range p.Dependencies {
				deps = append(deps, units[dir])
			}
		}
		r, err := b.buildOne(p, deps)
		if err != nil {
			return results, fmt.Errorf("project %s: %w", p.Name, err)
		}
		units[p.Dir] = r.Output.Unit
		results = append(results, r)
	}
	return results, nil
}

func (b *Builder) buildOne(p *Project, deps []*translate.Unit) (*Result, error) {
	log := b.logger().With("project", p.Name)
	files, err := p.SourceFiles()
	if err != nil {
		return nil, err
	}
	src, err := fragc.Load(files...)
	if err != nil {
		return nil, err
	}
	if src.Name == "" {
		src.Name = p.Name
	}
	log.Info("building", "sources", len(files), "target", p.Target)

	r := &Result{Project: p}
	opts := fragc.DefaultOptions()
	opts.Settings = p.Settings
	opts.GLSL = p.Wants(OutputGLSL)
	opts.Diag = diag.NewList(b.listener())
	opts.Logger = log
	opts.Passes = b.passes(p)

	r.Output, err = fragc.Compile(src, deps, opts)
	if err != nil {
		return nil, err
	}
	if b.DryRun {
		return r, nil
	}

	if w := writer(opts.Passes); w != nil {
		for _, stage := range r.Output.Stages {
			r.Files = append(r.Files, w.Path(stage.Name()))
			if w.Reflection {
				r.Files = append(r.Files, w.ReflectionPath(stage.Name()))
			}
		}
	}
	if p.Wants(OutputGLSL) {
		for _, s := range r.Output.GLSL {
			path, err := b.write(p, s.FileName(), []byte(s.Source))
			if err != nil {
				return nil, err
			}
			r.Files = append(r.Files, path)
		}
	}
	if p.Wants(OutputReflection) && !p.Wants(OutputSPIRV) {
		for _, stage := range r.Output.Stages {
			path := filepath.Join(p.Target, stage.Name()+".yaml")
			if err := os.MkdirAll(p.Target, 0o755); err != nil {
				return nil, err
			}
			if err := reflection.WriteFile(path, stage.Reflection); err != nil {
				return nil, err
			}
			r.Files = append(r.Files, path)
		}
	}
	if p.Wants(OutputBindings) && len(r.Output.Stages) > 0 {
		data, err := reflection.GenerateBindings(p.BindingsPackage, r.Output.Reflections()...)
		if err != nil {
			return nil, err
		}
		path, err := b.write(p, p.Name+"_bindings.go", data)
		if err != nil {
			return nil, err
		}
		r.Files = append(r.Files, path)
	}
	log.Info("built", "stages", len(r.Output.Stages), "glsl", len(r.Output.GLSL), "files", len(r.Files))
	return r, nil
}

// passes returns the pipeline run over every binary stage of p.
func (b *Builder) passes(p *Project) []pass.Pass {
	var passes []pass.Pass
	if p.Validate {
		passes = append(passes, &pass.Validator{})
	}
	if p.Optimize {
		passes = append(passes, &pass.Optimizer{})
	}
	for _, t := range p.Tools {
		passes = append(passes, t)
	}
	if p.Optimize && p.Validate {
		passes = append(passes, &pass.Validator{})
	}
	if p.Wants(OutputSPIRV) && !b.DryRun {
		passes = append(passes, &pass.FileWriter{Dir: p.Target, Reflection: p.Wants(OutputReflection)})
	}
	return passes
}

func writer(passes []pass.Pass) *pass.FileWriter {
	for _, ps := range passes {
		if w, ok := ps.(*pass.FileWriter); ok {
			return w
		}
	}
	return nil
}

func (b *Builder) write(p *Project, name string, data []byte) (string, error) {
	if err := os.MkdirAll(p.Target, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(p.Target, name)
	return path, os.WriteFile(path, data, 0o644)
}

// CompileAll builds independent root projects concurrently. Every root
// builds its own copy of shared dependencies. Cancelling ctx stops roots
// that have not started a project yet.
func CompileAll(ctx context.Context, b *Builder, dirs ...string) ([]*Result, error) {
	results := make([][]*Result, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			graph, err := LoadGraph(dir)
			if err != nil {
				return err
			}
			results[i], err = b.Build(ctx, graph)
			return err
		})
	}
	err := g.Wait()

	var all []*Result
	for _, rs := range results {
		all = append(all, rs...)
	}
	return all, err
}
