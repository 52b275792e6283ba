// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

// funcWriter renders the body of one function.
type funcWriter struct {
	g      *generator
	owner  *translate.TypeInfo
	static bool
	w      *writer
	names  *namer
	scopes []map[string]string
	loc    diag.Location
}

func (g *generator) newFuncWriter(owner *translate.TypeInfo, static bool) *funcWriter {
	return &funcWriter{
		g:      g,
		owner:  owner,
		static: static,
		w:      &writer{},
		names:  newNamer("self"),
		scopes: []map[string]string{{}},
	}
}

// errorf reports an error at the statement or expression being rendered.
func (f *funcWriter) errorf(kind diag.Kind, format string, args ...any) {
	f.g.errorf(kind, f.loc, format, args...)
}

// declare introduces a source name in the innermost scope and returns its
// GLSL spelling.
func (f *funcWriter) declare(name string) string {
	glsl := f.names.call(name)
	f.scopes[len(f.scopes)-1][name] = glsl
	return glsl
}

func (f *funcWriter) lookup(name string) (string, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if glsl, ok := f.scopes[i][name]; ok {
			return glsl, true
		}
	}
	return "", false
}

func (f *funcWriter) push() { f.scopes = append(f.scopes, map[string]string{}) }
func (f *funcWriter) pop()  { f.scopes = f.scopes[:len(f.scopes)-1] }

// block renders stmts as a nested scope.
func (f *funcWriter) block(stmts []syntax.Stmt) {
	f.push()
	f.w.pushIndent()
	f.stmts(stmts)
	f.w.popIndent()
	f.pop()
}

func (f *funcWriter) stmts(stmts []syntax.Stmt) {
	for _, s := range stmts {
		f.stmt(s)
	}
}

func (f *funcWriter) stmt(s syntax.Stmt) {
	if loc := s.Loc(); loc.Line != 0 {
		f.loc = loc
	}
	switch s := s.(type) {
	case *syntax.LocalStmt:
		// The initializer may read a shadowed outer name.
		value := ""
		if s.Init != nil {
			value = f.expr(s.Init)
		} else {
			value = f.g.zero(s.Type, f.loc)
		}
		base, suffix := f.g.declType(s.Type, f.loc)
		f.w.writeLine("%s %s%s = %s;", base, f.declare(s.Name), suffix, value)

	case *syntax.AssignStmt:
		target := f.expr(s.Target)
		if !assignable(s.Target) {
			f.errorf(diag.KindResolution, "cannot assign to %s", target)
			return
		}
		switch s.Op {
		case "":
			f.w.writeLine("%s = %s;", target, f.expr(s.Value))
		case "+", "-", "*", "/":
			f.w.writeLine("%s %s= %s;", target, s.Op, f.expr(s.Value))
		default:
			f.w.writeLine("%s = %s;", target, f.binary(s.Op, s.Target.Type(), target, f.expr(s.Value)))
		}

	case *syntax.ExprStmt:
		if text := f.expr(s.X); text != "" {
			f.w.writeLine("%s;", text)
		}

	case *syntax.ReturnStmt:
		if s.Value == nil {
			f.w.writeLine("return;")
			return
		}
		f.w.writeLine("return %s;", f.expr(s.Value))

	case *syntax.IfStmt:
		f.w.writeLine("if (%s) {", trimParens(f.expr(s.Cond)))
		f.block(s.Then)
		if len(s.Else) > 0 {
			f.w.writeLine("} else {")
			f.block(s.Else)
		}
		f.w.writeLine("}")

	case *syntax.WhileStmt:
		f.w.writeLine("while (%s) {", trimParens(f.expr(s.Cond)))
		f.block(s.Body)
		f.w.writeLine("}")

	case *syntax.BreakStmt:
		f.w.writeLine("break;")

	case *syntax.ContinueStmt:
		f.w.writeLine("continue;")

	default:
		f.errorf(diag.KindResolution, "unsupported statement %s", fmt.Sprintf("%T", s))
	}
}

// assignable reports whether e names storage: a local, the receiver, or a
// field, component or element of one.
func assignable(e syntax.Expr) bool {
	switch e := e.(type) {
	case *syntax.NameExpr, *syntax.ThisExpr:
		return true
	case *syntax.MemberExpr:
		return assignable(e.X)
	case *syntax.IndexExpr:
		return assignable(e.X)
	}
	return false
}

// trimParens drops one pair of parentheses enclosing the whole of s.
func trimParens(s string) string {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return s
	}
	depth := 0
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			return s
		}
	}
	return s[1 : len(s)-1]
}
