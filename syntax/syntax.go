// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package syntax is the checked syntax representation handed to the
// compiler by the front-end. Every expression already carries its resolved
// result type; nothing here is re-checked.
package syntax

import (
	"strings"

	"github.com/gogpu/fragc/diag"
)

// Library is one unit of fragment source.
type Library struct {
	Name         string
	Dependencies []string
	Types        []*TypeDecl
}

// Type returns the declaration with the given name, or nil.
func (l *Library) Type(name string) *TypeDecl {
	for _, t := range l.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// AttributeParam is one attribute argument. Name is empty for positional
// arguments.
type AttributeParam struct {
	Name  string
	Value string
}

// Attribute is an attribute applied to a declaration.
type Attribute struct {
	Name   string
	Params []AttributeParam
}

// Param returns the named argument.
func (a Attribute) Param(name string) (string, bool) {
	for _, p := range a.Params {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}
	return "", false
}

// NameOverride returns the interface name the attribute assigns to a field:
// the "name" argument or the first positional argument.
func (a Attribute) NameOverride() (string, bool) {
	if v, ok := a.Param("name"); ok {
		return v, true
	}
	for _, p := range a.Params {
		if p.Name == "" {
			return p.Value, true
		}
	}
	return "", false
}

// Attributes is an attribute list.
type Attributes []Attribute

// Find returns the first attribute with the given name.
func (as Attributes) Find(name string) (Attribute, bool) {
	for _, a := range as {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Has reports whether an attribute with the given name is present.
func (as Attributes) Has(name string) bool {
	_, ok := as.Find(name)
	return ok
}

// TypeDecl is a fragment type: a struct with fields, functions and
// constructors.
type TypeDecl struct {
	Name         string
	Attributes   Attributes
	Fields       []*Field
	Functions    []*Function
	Constructors []*Function
	Location     diag.Location
}

// Field returns the field with the given name, or nil.
func (t *TypeDecl) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Function returns the first function with the given name, or nil.
func (t *TypeDecl) Function(name string) *Function {
	for _, f := range t.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FunctionWith returns the first function carrying the attribute, or nil.
func (t *TypeDecl) FunctionWith(attribute string) *Function {
	for _, f := range t.Functions {
		if f.Attributes.Has(attribute) {
			return f
		}
	}
	return nil
}

// Field is a member variable of a fragment type.
type Field struct {
	Name        string
	Type        TypeRef
	Attributes  Attributes
	Initializer Expr
	Location    diag.Location
}

// Param is a function parameter.
type Param struct {
	Name string
	Type TypeRef
}

// Function is a member function or constructor. Return is nil for void.
type Function struct {
	Name       string
	Params     []*Param
	Return     *TypeRef
	Body       []Stmt
	Attributes Attributes
	Static     bool
	Location   diag.Location
}

// Signature returns the comma separated parameter type names.
func (f *Function) Signature() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Type.String()
	}
	return strings.Join(names, ",")
}
