// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package project

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is returned when projects depend on each other.
var ErrCycle = errors.New("dependency cycle")

// ErrMissingDependency is returned when a dependency is not part of the
// set being ordered.
var ErrMissingDependency = errors.New("missing dependency")

// Graph is a root project and everything it depends on, keyed by
// directory.
type Graph struct {
	Root     *Project
	Projects map[string]*Project
}

// LoadGraph loads the project in dir and, transitively, its dependencies.
func LoadGraph(dir string) (*Graph, error) {
	root, err := Load(dir)
	if err != nil {
		return nil, err
	}
	g := &Graph{Root: root, Projects: map[string]*Project{root.Dir: root}}
	queue := []*Project{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, dep := range p.Dependencies {
			if _, ok := g.Projects[dep]; ok {
				continue
			}
			d, err := Load(dep)
			if err != nil {
				return nil, fmt.Errorf("dependency of %s: %w", p.Name, err)
			}
			g.Projects[d.Dir] = d
			queue = append(queue, d)
		}
	}
	return g, nil
}

// Order returns the projects of g with every dependency before its
// dependents.
func (g *Graph) Order() ([]*Project, error) {
	projects := make([]*Project, 0, len(g.Projects))
	for _, p := range g.Projects {
		projects = append(projects, p)
	}
	return BuildOrder(projects...)
}

// BuildOrder sorts projects so that dependencies come first. Independent
// projects are ordered by directory.
func BuildOrder(projects ...*Project) ([]*Project, error) {
	byDir := make(map[string]*Project, len(projects))
	for _, p := range projects {
		if p == nil {
			return nil, fmt.Errorf("%w: nil project", ErrMissingDependency)
		}
		byDir[p.Dir] = p
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(projects))
	order := make([]*Project, 0, len(projects))
	var stack []string

	var visit func(p *Project) error
	visit = func(p *Project) error {
		switch state[p.Dir] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, dir := range stack {
				if dir == p.Dir {
					start = i
				}
			}
			names := make([]string, 0, len(stack)-start+1)
			for _, dir := range stack[start:] {
				names = append(names, byDir[dir].Name)
			}
			names = append(names, p.Name)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
		}
		state[p.Dir] = visiting
		stack = append(stack, p.Dir)
		for _, dir := range p.Dependencies {
			dep, ok := byDir[dir]
			if !ok {
				return fmt.Errorf("%w: %s needs %s", ErrMissingDependency, p.Name, dir)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[p.Dir] = done
		order = append(order, p)
		return nil
	}

	sorted := slices.Clone(projects)
	slices.SortFunc(sorted, func(a, b *Project) int { return strings.Compare(a.Dir, b.Dir) })
	for _, p := range sorted {
		if err := visit(p); err != nil {
			return nil, err
		}
	}
	return order, nil
}
