// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"math"
	"strings"
)

// ConstantKind distinguishes constant encodings.
type ConstantKind uint8

const (
	ConstantKindScalar ConstantKind = iota
	ConstantKindTrue
	ConstantKindFalse
	ConstantKindComposite
	ConstantKindNull
)

// Constant is an interned compile-time value.
type Constant struct {
	Kind ConstantKind
	Type *Type

	// Words holds the literal bit pattern of scalar constants.
	Words []uint32

	// Constituents holds the members of composite constants.
	Constituents []*Constant

	Library *Library
	key     string
}

func (*Constant) value() {}

// Uint returns the first literal word of a scalar constant.
func (c *Constant) Uint() uint32 {
	if len(c.Words) == 0 {
		return 0
	}
	return c.Words[0]
}

// Float returns the value of a 32-bit float constant.
func (c *Constant) Float() float32 {
	return math.Float32frombits(c.Uint())
}

func (l *Library) internConstant(key string, build func() *Constant) *Constant {
	var found *Constant
	l.visit(func(lib *Library) bool {
		found = lib.constByKey[key]
		return found != nil
	})
	if found != nil {
		return found
	}
	c := build()
	c.Library = l
	c.key = key
	l.constByKey[key] = c
	l.Constants = append(l.Constants, c)
	return c
}

// ConstantScalar returns the scalar constant of type t with the given bit
// pattern.
func (l *Library) ConstantScalar(t *Type, words ...uint32) *Constant {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%08x", w)
	}
	key := "scalar:" + typeRef(t) + ":" + strings.Join(parts, ",")
	return l.internConstant(key, func() *Constant {
		return &Constant{Kind: ConstantKindScalar, Type: t, Words: append([]uint32(nil), words...)}
	})
}

// ConstantUint returns a 32-bit unsigned integer constant.
func (l *Library) ConstantUint(v uint32) *Constant {
	return l.ConstantScalar(l.IntType(32, false), v)
}

// ConstantInt returns a 32-bit signed integer constant.
func (l *Library) ConstantInt(v int32) *Constant {
	return l.ConstantScalar(l.IntType(32, true), uint32(v))
}

// ConstantFloat returns a 32-bit float constant.
func (l *Library) ConstantFloat(v float32) *Constant {
	return l.ConstantScalar(l.FloatType(32), math.Float32bits(v))
}

// ConstantBool returns the boolean constant v.
func (l *Library) ConstantBool(v bool) *Constant {
	if v {
		return l.internConstant("true", func() *Constant {
			return &Constant{Kind: ConstantKindTrue, Type: l.BoolType()}
		})
	}
	return l.internConstant("false", func() *Constant {
		return &Constant{Kind: ConstantKindFalse, Type: l.BoolType()}
	})
}

// ConstantComposite returns a composite constant of type t.
func (l *Library) ConstantComposite(t *Type, constituents ...*Constant) *Constant {
	parts := make([]string, len(constituents))
	for i, c := range constituents {
		parts[i] = c.key
	}
	key := "composite:" + typeRef(t) + "(" + strings.Join(parts, ",") + ")"
	return l.internConstant(key, func() *Constant {
		return &Constant{Kind: ConstantKindComposite, Type: t, Constituents: append([]*Constant(nil), constituents...)}
	})
}

// ConstantNull returns the zero value of t.
func (l *Library) ConstantNull(t *Type) *Constant {
	return l.internConstant("null:"+typeRef(t), func() *Constant {
		return &Constant{Kind: ConstantKindNull, Type: t}
	})
}

// GlobalVariable is a module-scope variable. Its Type is always a pointer.
type GlobalVariable struct {
	Name         string
	Type         *Type
	StorageClass StorageClass
	Initializer  *Constant
	Library      *Library
}

func (*GlobalVariable) value() {}

// ValueType returns the type the variable stores.
func (g *GlobalVariable) ValueType() *Type {
	return g.Type.Pointee()
}

// AddGlobal declares a module-scope variable of value type t.
func (l *Library) AddGlobal(name string, t *Type, sc StorageClass, kind InterfaceKind) *GlobalVariable {
	g := &GlobalVariable{
		Name:         name,
		Type:         l.FindOrCreateInterfaceType(t, kind, sc),
		StorageClass: sc,
		Library:      l,
	}
	l.Globals = append(l.Globals, g)
	return g
}

// FindGlobal returns the named global from this library or a dependency.
func (l *Library) FindGlobal(name string) *GlobalVariable {
	var found *GlobalVariable
	l.visit(func(lib *Library) bool {
		for _, g := range lib.Globals {
			if g.Name == name {
				found = g
				return true
			}
		}
		return false
	})
	return found
}
