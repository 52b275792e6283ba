// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"
)

const indentUnit = "    "

// writer accumulates indented GLSL source.
type writer struct {
	out    strings.Builder
	indent int
}

func (w *writer) String() string { return w.out.String() }

// writeLine writes one indented line. format is used verbatim without args.
//
//nolint:goprintffuncname
func (w *writer) writeLine(format string, args ...any) {
	w.out.WriteString(strings.Repeat(indentUnit, w.indent))
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	w.out.WriteString(format)
	w.out.WriteByte('\n')
}

func (w *writer) blank() { w.out.WriteByte('\n') }

func (w *writer) pushIndent() { w.indent++ }

func (w *writer) popIndent() { w.indent = max(w.indent-1, 0) }

// braced writes "head {", the indented body and "}" followed by tail, as
// in struct declarations ("};") and interface blocks ("} name;").
func (w *writer) braced(head, tail string, body func()) {
	w.writeLine(head + " {")
	w.pushIndent()
	body()
	w.popIndent()
	w.writeLine("}" + tail)
}

// section marks a group of declarations in the generated file.
func (w *writer) section(name string) {
	w.writeLine("// ---- " + name + " ----")
}

// namer hands out identifiers unique within one shader.
type namer struct {
	used map[string]int
}

func newNamer(reserved ...string) *namer {
	n := &namer{used: make(map[string]int, len(reserved))}
	for _, r := range reserved {
		n.used[r] = 0
	}
	return n
}

// call returns base with keywords escaped, suffixed with _N when taken.
func (n *namer) call(base string) string {
	name := escapeKeyword(base)
	if _, taken := n.used[name]; !taken {
		n.used[name] = 0
		return name
	}
	for {
		n.used[name]++
		candidate := fmt.Sprintf("%s_%d", name, n.used[name])
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = 0
			return candidate
		}
	}
}
