// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeArg is a template argument: either a type or an integer value.
type TypeArg struct {
	Type    *TypeRef
	Value   int
	IsValue bool
}

// String formats the argument.
func (a TypeArg) String() string {
	if a.IsValue {
		return strconv.Itoa(a.Value)
	}
	return a.Type.String()
}

// TypeRef names a type, possibly a template instance such as
// FixedArray[Real, 4].
type TypeRef struct {
	Name string
	Args []TypeArg
}

// Named returns a non-template type reference.
func Named(name string) TypeRef {
	return TypeRef{Name: name}
}

// Template returns a template instance reference.
func Template(name string, args ...TypeArg) TypeRef {
	return TypeRef{Name: name, Args: args}
}

// TypeArgOf wraps a type reference as a template argument.
func TypeArgOf(ref TypeRef) TypeArg {
	return TypeArg{Type: &ref}
}

// ValueArg wraps an integer as a template argument.
func ValueArg(v int) TypeArg {
	return TypeArg{Value: v, IsValue: true}
}

// IsTemplate reports whether the reference has template arguments.
func (r TypeRef) IsTemplate() bool {
	return len(r.Args) > 0
}

// IsVoid reports whether the reference names no type or Void.
func (r TypeRef) IsVoid() bool {
	return r.Name == "" || r.Name == "Void"
}

// String returns the canonical spelling, e.g. "FixedArray[Real, 4]".
func (r TypeRef) String() string {
	if len(r.Args) == 0 {
		return r.Name
	}
	args := make([]string, len(r.Args))
	for i, a := range r.Args {
		args[i] = a.String()
	}
	return r.Name + "[" + strings.Join(args, ", ") + "]"
}

// ParseTypeRef parses the canonical spelling of a type reference.
func ParseTypeRef(s string) (TypeRef, error) {
	p := typeParser{src: s}
	ref, err := p.parse()
	if err != nil {
		return TypeRef{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeRef{}, fmt.Errorf("type %q: unexpected %q at offset %d", s, p.src[p.pos:], p.pos)
	}
	return ref, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '[' || c == ']' || c == ',' || c == ' ' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parse() (TypeRef, error) {
	name := p.ident()
	if name == "" {
		return TypeRef{}, fmt.Errorf("type %q: expected a name at offset %d", p.src, p.pos)
	}
	ref := TypeRef{Name: name}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '[' {
		return ref, nil
	}
	p.pos++
	for {
		p.skipSpace()
		start := p.pos
		if n, err := strconv.Atoi(p.peekIdent()); err == nil {
			p.ident()
			ref.Args = append(ref.Args, ValueArg(n))
		} else {
			p.pos = start
			arg, err := p.parse()
			if err != nil {
				return TypeRef{}, err
			}
			ref.Args = append(ref.Args, TypeArgOf(arg))
		}
		p.skipSpace()
		if p.pos >= len(p.src) {
			return TypeRef{}, fmt.Errorf("type %q: unterminated template arguments", p.src)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return ref, nil
		default:
			return TypeRef{}, fmt.Errorf("type %q: unexpected %q at offset %d", p.src, p.src[p.pos], p.pos)
		}
	}
}

func (p *typeParser) peekIdent() string {
	save := p.pos
	id := p.ident()
	p.pos = save
	return id
}
