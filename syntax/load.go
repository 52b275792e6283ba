// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package syntax

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/fragc/diag"
)

// document is the YAML encoding the front-end emits.
type document struct {
	Name         string     `yaml:"name"`
	Dependencies []string   `yaml:"dependencies"`
	Types        []typeNode `yaml:"types"`
}

type typeNode struct {
	Name         string      `yaml:"name"`
	File         string      `yaml:"file"`
	Line         int         `yaml:"line"`
	Attributes   []string    `yaml:"attributes"`
	Fields       []fieldNode `yaml:"fields"`
	Functions    []funcNode  `yaml:"functions"`
	Constructors []funcNode  `yaml:"constructors"`
}

type fieldNode struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Line       int      `yaml:"line"`
	Attributes []string `yaml:"attributes"`
	Init       *node    `yaml:"init"`
}

type paramNode struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type funcNode struct {
	Name       string      `yaml:"name"`
	Line       int         `yaml:"line"`
	Params     []paramNode `yaml:"params"`
	Return     string      `yaml:"return"`
	Static     bool        `yaml:"static"`
	Attributes []string    `yaml:"attributes"`
	Body       []*node     `yaml:"body"`
}

// node encodes both statements and expressions, discriminated by Kind.
type node struct {
	Kind   string `yaml:"kind"`
	Line   int    `yaml:"line"`
	Column int    `yaml:"column"`

	Type     string  `yaml:"type"`
	Name     string  `yaml:"name"`
	Value    *node   `yaml:"value"`
	Literal  string  `yaml:"literal"`
	Op       string  `yaml:"op"`
	X        *node   `yaml:"x"`
	Y        *node   `yaml:"y"`
	Member   string  `yaml:"member"`
	Receiver *node   `yaml:"receiver"`
	Owner    string  `yaml:"owner"`
	Args     []*node `yaml:"args"`
	Index    *node   `yaml:"index"`
	Init     *node   `yaml:"init"`
	Target   *node   `yaml:"target"`
	Cond     *node   `yaml:"cond"`
	Then     []*node `yaml:"then"`
	Else     []*node `yaml:"else"`
	Body     []*node `yaml:"body"`
}

// LoadFile reads a YAML syntax document.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse decodes a YAML syntax document. file is recorded in every location
// unless a type names its own source file.
func Parse(file string, data []byte) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	lib := &Library{Name: doc.Name, Dependencies: doc.Dependencies}
	for _, tn := range doc.Types {
		d := decoder{file: file}
		if tn.File != "" {
			d.file = tn.File
		}
		decl, err := d.typeDecl(tn)
		if err != nil {
			return nil, fmt.Errorf("%s: type %s: %w", file, tn.Name, err)
		}
		lib.Types = append(lib.Types, decl)
	}
	return lib, nil
}

// Merge appends the types of other into l. Dependencies are unioned.
func (l *Library) Merge(other *Library) {
	l.Types = append(l.Types, other.Types...)
	for _, dep := range other.Dependencies {
		found := false
		for _, existing := range l.Dependencies {
			if existing == dep {
				found = true
				break
			}
		}
		if !found {
			l.Dependencies = append(l.Dependencies, dep)
		}
	}
}

type decoder struct {
	file string
}

func (d *decoder) loc(line, column int) diag.Location {
	return diag.Location{File: d.file, Line: line, Column: column}
}

func (d *decoder) typeDecl(tn typeNode) (*TypeDecl, error) {
	attrs, err := ParseAttributes(tn.Attributes)
	if err != nil {
		return nil, err
	}
	decl := &TypeDecl{Name: tn.Name, Attributes: attrs, Location: d.loc(tn.Line, 0)}
	for _, fn := range tn.Fields {
		f, err := d.field(fn)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fn.Name, err)
		}
		decl.Fields = append(decl.Fields, f)
	}
	for _, fn := range tn.Functions {
		f, err := d.function(fn)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		decl.Functions = append(decl.Functions, f)
	}
	for _, fn := range tn.Constructors {
		f, err := d.function(fn)
		if err != nil {
			return nil, fmt.Errorf("constructor: %w", err)
		}
		decl.Constructors = append(decl.Constructors, f)
	}
	return decl, nil
}

func (d *decoder) field(fn fieldNode) (*Field, error) {
	ref, err := ParseTypeRef(fn.Type)
	if err != nil {
		return nil, err
	}
	attrs, err := ParseAttributes(fn.Attributes)
	if err != nil {
		return nil, err
	}
	f := &Field{Name: fn.Name, Type: ref, Attributes: attrs, Location: d.loc(fn.Line, 0)}
	if fn.Init != nil {
		if f.Initializer, err = d.expr(fn.Init); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (d *decoder) function(fn funcNode) (*Function, error) {
	attrs, err := ParseAttributes(fn.Attributes)
	if err != nil {
		return nil, err
	}
	f := &Function{Name: fn.Name, Attributes: attrs, Static: fn.Static, Location: d.loc(fn.Line, 0)}
	for _, p := range fn.Params {
		ref, err := ParseTypeRef(p.Type)
		if err != nil {
			return nil, err
		}
		f.Params = append(f.Params, &Param{Name: p.Name, Type: ref})
	}
	if fn.Return != "" && fn.Return != "Void" {
		ref, err := ParseTypeRef(fn.Return)
		if err != nil {
			return nil, err
		}
		f.Return = &ref
	}
	if f.Body, err = d.stmts(fn.Body); err != nil {
		return nil, err
	}
	return f, nil
}

func (d *decoder) stmts(nodes []*node) ([]Stmt, error) {
	var out []Stmt
	for _, n := range nodes {
		s, err := d.stmt(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) stmt(n *node) (Stmt, error) {
	base := Node{Location: d.loc(n.Line, n.Column)}
	switch n.Kind {
	case "local":
		ref, err := ParseTypeRef(n.Type)
		if err != nil {
			return nil, err
		}
		s := &LocalStmt{Node: base, Name: n.Name, Type: ref}
		if n.Init != nil {
			if s.Init, err = d.expr(n.Init); err != nil {
				return nil, err
			}
		}
		return s, nil
	case "assign":
		target, err := d.expr(n.Target)
		if err != nil {
			return nil, err
		}
		value, err := d.expr(n.Value)
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Node: base, Target: target, Op: n.Op, Value: value}, nil
	case "expr":
		x, err := d.expr(n.X)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Node: base, X: x}, nil
	case "return":
		s := &ReturnStmt{Node: base}
		if n.Value != nil {
			v, err := d.expr(n.Value)
			if err != nil {
				return nil, err
			}
			s.Value = v
		}
		return s, nil
	case "if":
		cond, err := d.expr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := d.stmts(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := d.stmts(n.Else)
		if err != nil {
			return nil, err
		}
		return &IfStmt{Node: base, Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := d.expr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(n.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Node: base, Cond: cond, Body: body}, nil
	case "break":
		return &BreakStmt{Node: base}, nil
	case "continue":
		return &ContinueStmt{Node: base}, nil
	}
	return nil, fmt.Errorf("line %d: unknown statement kind %q", n.Line, n.Kind)
}

func (d *decoder) exprs(nodes []*node) ([]Expr, error) {
	out := make([]Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := d.expr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) expr(n *node) (Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}
	result := TypeRef{}
	if n.Type != "" {
		ref, err := ParseTypeRef(n.Type)
		if err != nil {
			return nil, err
		}
		result = ref
	}
	typed := Typed{Node: Node{Location: d.loc(n.Line, n.Column)}, Result: result}

	switch n.Kind {
	case "literal":
		return &LiteralExpr{Typed: typed, Value: n.Literal}, nil
	case "name":
		return &NameExpr{Typed: typed, Name: n.Name}, nil
	case "this":
		return &ThisExpr{Typed: typed}, nil
	case "member":
		x, err := d.expr(n.X)
		if err != nil {
			return nil, err
		}
		return &MemberExpr{Typed: typed, X: x, Member: n.Member}, nil
	case "call":
		args, err := d.exprs(n.Args)
		if err != nil {
			return nil, err
		}
		call := &CallExpr{Typed: typed, Owner: n.Owner, Name: n.Name, Args: args}
		if n.Receiver != nil {
			if call.Receiver, err = d.expr(n.Receiver); err != nil {
				return nil, err
			}
		}
		return call, nil
	case "construct":
		args, err := d.exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &ConstructExpr{Typed: typed, Args: args}, nil
	case "binary":
		x, err := d.expr(n.X)
		if err != nil {
			return nil, err
		}
		y, err := d.expr(n.Y)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Typed: typed, Op: n.Op, X: x, Y: y}, nil
	case "unary":
		x, err := d.expr(n.X)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Typed: typed, Op: n.Op, X: x}, nil
	case "cast":
		x, err := d.expr(n.X)
		if err != nil {
			return nil, err
		}
		return &CastExpr{Typed: typed, X: x}, nil
	case "index":
		x, err := d.expr(n.X)
		if err != nil {
			return nil, err
		}
		idx, err := d.expr(n.Index)
		if err != nil {
			return nil, err
		}
		return &IndexExpr{Typed: typed, X: x, Index: idx}, nil
	}
	return nil, fmt.Errorf("line %d: unknown expression kind %q", n.Line, n.Kind)
}

// ParseAttributes parses attribute spellings such as "Vertex",
// "StageInput(name: Uv)" or "Compute(8, 8, 1)".
func ParseAttributes(specs []string) (Attributes, error) {
	var out Attributes
	for _, spec := range specs {
		a, err := ParseAttribute(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseAttribute parses a single attribute spelling.
func ParseAttribute(spec string) (Attribute, error) {
	spec = strings.TrimSpace(spec)
	open := strings.IndexByte(spec, '(')
	if open < 0 {
		if spec == "" {
			return Attribute{}, fmt.Errorf("empty attribute")
		}
		return Attribute{Name: spec}, nil
	}
	if !strings.HasSuffix(spec, ")") {
		return Attribute{}, fmt.Errorf("attribute %q: missing closing parenthesis", spec)
	}
	a := Attribute{Name: strings.TrimSpace(spec[:open])}
	inner := strings.TrimSpace(spec[open+1 : len(spec)-1])
	if inner == "" {
		return a, nil
	}
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if name, value, ok := strings.Cut(part, ":"); ok {
			a.Params = append(a.Params, AttributeParam{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
		} else {
			a.Params = append(a.Params, AttributeParam{Value: part})
		}
	}
	return a, nil
}
