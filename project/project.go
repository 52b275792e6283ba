// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package project loads fragc.toml manifests, orders projects by their
// dependencies and builds them.
//
// A manifest looks like:
//
//	[project]
//	name = "lighting"
//	fragc-version = ">= 0.4"
//	settings = "settings.toml"
//	target = "~/assets/shaders"
//	sources = ["shaders/**.yaml"]
//	dependencies = ["../common"]
//	outputs = ["spirv", "glsl", "reflection"]
//	optimize = true
//	validate = true
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/fragc"
	"github.com/gogpu/fragc/pass"
	"github.com/gogpu/fragc/settings"
)

// ManifestName is the file name of a project manifest.
const ManifestName = "fragc.toml"

// Output is a kind of build artifact.
type Output string

const (
	OutputSPIRV      Output = "spirv"
	OutputGLSL       Output = "glsl"
	OutputReflection Output = "reflection"
	OutputBindings   Output = "bindings"
)

var knownOutputs = []Output{OutputSPIRV, OutputGLSL, OutputReflection, OutputBindings}

// ErrNoSources is returned for a project whose globs match nothing.
var ErrNoSources = errors.New("no source documents")

// tomlManifest is the manifest as encoded in TOML.
type tomlManifest struct {
	Project *tomlProject `toml:"project"`
}

type tomlProject struct {
	Name            string      `toml:"name"`
	Version         string      `toml:"fragc-version,omitempty"`
	Settings        string      `toml:"settings,omitempty"`
	Target          string      `toml:"target"`
	Sources         []string    `toml:"sources"`
	Dependencies    []string    `toml:"dependencies,omitempty"`
	Outputs         []string    `toml:"outputs,omitempty"`
	Optimize        bool        `toml:"optimize"`
	Validate        bool        `toml:"validate"`
	BindingsPackage string      `toml:"bindings-package,omitempty"`
	Tools           []*tomlTool `toml:"tools,omitempty"`
}

// tomlTool is an external pass run over every binary.
type tomlTool struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout string   `toml:"timeout,omitempty"`
}

// Project is a loaded and validated manifest.
type Project struct {
	Name string
	// Dir is the absolute directory enclosing the manifest.
	Dir string

	Settings     *settings.Settings
	SettingsPath string

	// Target is the absolute output directory.
	Target string

	// Sources are slash separated globs relative to Dir. A ** spans
	// directories, a * does not.
	Sources []string
	globs   []glob.Glob

	// Dependencies are absolute project directories.
	Dependencies []string

	Outputs         []Output
	Optimize        bool
	Validate        bool
	BindingsPackage string
	Tools           []*pass.Tool
}

// Load reads the manifest in dir.
func Load(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(abs, ManifestName))
	if err != nil {
		return nil, err
	}
	return Parse(abs, data)
}

// Parse decodes a manifest belonging to the project directory dir.
func Parse(dir string, data []byte) (*Project, error) {
	var m tomlManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, ManifestName), err)
	}
	if m.Project == nil {
		return nil, fmt.Errorf("%s: missing [project] table", filepath.Join(dir, ManifestName))
	}
	p, err := convert(dir, m.Project)
	if err != nil {
		return nil, fmt.Errorf("project at %s: %w", dir, err)
	}
	return p, nil
}

func convert(dir string, tp *tomlProject) (*Project, error) {
	if tp.Name == "" {
		return nil, errors.New("missing project name")
	}
	if tp.Version != "" {
		c, err := semver.NewConstraint(tp.Version)
		if err != nil {
			return nil, fmt.Errorf("fragc-version: %w", err)
		}
		if !c.Check(semver.MustParse(fragc.Version)) {
			return nil, fmt.Errorf("project %s needs fragc %s, this is %s", tp.Name, tp.Version, fragc.Version)
		}
	}

	p := &Project{
		Name:            tp.Name,
		Dir:             dir,
		Sources:         tp.Sources,
		Optimize:        tp.Optimize,
		Validate:        tp.Validate,
		BindingsPackage: tp.BindingsPackage,
	}
	if len(p.Sources) == 0 {
		p.Sources = []string{"**.yaml"}
	}
	for _, pattern := range p.Sources {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", pattern, err)
		}
		p.globs = append(p.globs, g)
	}

	target := tp.Target
	if target == "" {
		target = "build"
	}
	target, err := p.path(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	p.Target = target

	p.Settings = settings.Default()
	if tp.Settings != "" {
		if p.SettingsPath, err = p.path(tp.Settings); err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		if p.Settings, err = settings.Load(p.SettingsPath); err != nil {
			return nil, err
		}
	}

	for _, dep := range tp.Dependencies {
		abs, err := p.path(dep)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", dep, err)
		}
		if abs == dir {
			return nil, fmt.Errorf("project %s depends on itself", tp.Name)
		}
		p.Dependencies = append(p.Dependencies, abs)
	}

	p.Outputs = []Output{OutputSPIRV}
	if tp.Outputs != nil {
		p.Outputs = nil
		for _, o := range tp.Outputs {
			if !slices.Contains(knownOutputs, Output(o)) {
				return nil, fmt.Errorf("unknown output %q", o)
			}
			p.Outputs = append(p.Outputs, Output(o))
		}
	}
	if p.Wants(OutputBindings) && p.BindingsPackage == "" {
		p.BindingsPackage = "shaders"
	}

	for _, tt := range tp.Tools {
		tool := &pass.Tool{Command: tt.Command, Args: tt.Args}
		if tt.Command == "" {
			return nil, errors.New("tool without a command")
		}
		if tt.Timeout != "" {
			d, err := time.ParseDuration(tt.Timeout)
			if err != nil {
				return nil, fmt.Errorf("tool %s timeout: %w", tt.Command, err)
			}
			tool.Timeout = d
		}
		p.Tools = append(p.Tools, tool)
	}
	return p, nil
}

// path expands a leading ~ and resolves path against the project directory.
func (p *Project) path(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(p.Dir, expanded)
	}
	return filepath.Clean(expanded), nil
}

// Wants reports whether the project requests output o.
func (p *Project) Wants(o Output) bool {
	return slices.Contains(p.Outputs, o)
}

// Matches reports whether the file at path is a source of the project.
func (p *Project) Matches(path string) bool {
	rel, err := filepath.Rel(p.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range p.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// SourceFiles returns the source documents of the project in lexical
// order. The target directory is never searched.
func (p *Project) SourceFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == p.Target || path != p.Dir && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if p.Matches(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("project %s: %w matching %v", p.Name, ErrNoSources, p.Sources)
	}
	return files, nil
}
