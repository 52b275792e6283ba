// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"strings"
)

// Value is anything that can appear as an op operand.
type Value interface {
	value()
}

// Literal is an immediate operand word.
type Literal uint32

func (Literal) value() {}

// FunctionKey identifies a function inside a library: the owning host type,
// the host function name and a signature string distinguishing overloads and
// template specializations.
type FunctionKey struct {
	Owner     string
	Name      string
	Signature string
}

// String returns "Owner.Name(Signature)".
func (k FunctionKey) String() string {
	if k.Owner == "" {
		return k.Name + "(" + k.Signature + ")"
	}
	return k.Owner + "." + k.Name + "(" + k.Signature + ")"
}

// Parameter is a function parameter.
type Parameter struct {
	Name     string
	Type     *Type
	Function *Function
}

func (*Parameter) value() {}

// Function is an IR function made of basic blocks.
type Function struct {
	Key        FunctionKey
	Name       string
	ReturnType *Type
	Params     []*Parameter
	Locals     []*Op
	Blocks     []*Block
	Library    *Library

	// LateBound marks a declaration whose body is supplied per entry point
	// (see EntryPoint.Bindings). Late-bound functions have no blocks.
	LateBound bool
}

func (*Function) value() {}

// Type returns the function's signature type.
func (f *Function) Type() *Type {
	params := make([]*Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return f.Library.FunctionType(f.ReturnType, params...)
}

// Defined reports whether the function has a body.
func (f *Function) Defined() bool {
	return len(f.Blocks) > 0
}

// AddParam appends a parameter.
func (f *Function) AddParam(name string, t *Type) *Parameter {
	p := &Parameter{Name: name, Type: t, Function: f}
	f.Params = append(f.Params, p)
	return p
}

// AddBlock appends a new empty basic block.
func (f *Function) AddBlock(name string) *Block {
	b := &Block{Name: name, Function: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// AddLocal declares a function-scope variable of value type t.
func (f *Function) AddLocal(name string, t *Type) *Op {
	op := &Op{
		Opcode:     OpVariable,
		ResultType: f.Library.PointerType(t, StorageClassFunction),
		Operands:   []Value{Literal(StorageClassFunction)},
		Name:       name,
	}
	f.Locals = append(f.Locals, op)
	return op
}

// FindOrCreateFunction returns the function registered under key, creating
// an empty shell on first request. created reports whether it was new.
// Dependencies are searched first so a function is never declared twice.
func (l *Library) FindOrCreateFunction(key FunctionKey, ret *Type) (f *Function, created bool) {
	if f := l.FindFunction(key); f != nil {
		return f, false
	}
	f = &Function{Key: key, Name: functionName(key), ReturnType: ret, Library: l}
	l.funcByKey[key] = f
	l.Functions = append(l.Functions, f)
	return f, true
}

// FindFunction looks a function up locally, then in every dependency.
func (l *Library) FindFunction(key FunctionKey) *Function {
	var found *Function
	l.visit(func(lib *Library) bool {
		found = lib.funcByKey[key]
		return found != nil
	})
	return found
}

func functionName(key FunctionKey) string {
	name := key.Name
	if key.Owner != "" {
		name = key.Owner + "_" + key.Name
	}
	return strings.NewReplacer("[", "_", "]", "", ",", "_", " ", "").Replace(name)
}

// Block is a basic block.
type Block struct {
	Name     string
	Ops      []*Op
	Function *Function
}

func (*Block) value() {}

// Terminator returns the block's last op when it transfers control.
func (b *Block) Terminator() *Op {
	if len(b.Ops) == 0 {
		return nil
	}
	last := b.Ops[len(b.Ops)-1]
	if !last.Opcode.IsTerminator() {
		return nil
	}
	return last
}

// Terminated reports whether the block ends in a terminator.
func (b *Block) Terminated() bool {
	return b.Terminator() != nil
}

// Op is a single operation. It produces at most one typed result.
type Op struct {
	Opcode     Opcode
	ResultType *Type
	Operands   []Value
	Name       string
	Block      *Block
}

func (*Op) value() {}

// String renders the op for diagnostics.
func (op *Op) String() string {
	var sb strings.Builder
	if op.ResultType != nil {
		fmt.Fprintf(&sb, "%s = ", op.ResultType)
	}
	sb.WriteString(op.Opcode.String())
	for _, operand := range op.Operands {
		switch v := operand.(type) {
		case Literal:
			fmt.Fprintf(&sb, " %d", uint32(v))
		case *Constant:
			fmt.Fprintf(&sb, " const(%s)", v.Type)
		case *Function:
			fmt.Fprintf(&sb, " %%%s", v.Name)
		case *GlobalVariable:
			fmt.Fprintf(&sb, " %%%s", v.Name)
		case *Parameter:
			fmt.Fprintf(&sb, " %%%s", v.Name)
		case *Block:
			fmt.Fprintf(&sb, " %%%s", v.Name)
		default:
			sb.WriteString(" %_")
		}
	}
	return sb.String()
}

// BuildOp appends an op to block and returns it. It checks only that enough
// operands were supplied; anything else is left to the validator.
func BuildOp(block *Block, opcode Opcode, resultType *Type, operands ...Value) *Op {
	if len(operands) < opcode.MinOperands() {
		panic(fmt.Sprintf("ir: %s needs at least %d operands, got %d", opcode, opcode.MinOperands(), len(operands)))
	}
	op := &Op{Opcode: opcode, ResultType: resultType, Operands: operands, Block: block}
	block.Ops = append(block.Ops, op)
	return op
}

// TypeOf returns the type of a value operand, or nil for values without one.
func TypeOf(v Value) *Type {
	switch v := v.(type) {
	case *Op:
		return v.ResultType
	case *Constant:
		return v.Type
	case *GlobalVariable:
		return v.Type
	case *Parameter:
		return v.Type
	case *Function:
		return v.Type()
	}
	return nil
}

// FinalizeBlocks terminates every block that lacks a terminator: void
// functions get OpReturn, others return the null value of their result type.
// Late-bound declarations are skipped.
func (l *Library) FinalizeBlocks() {
	for _, f := range l.Functions {
		if f.LateBound {
			continue
		}
		if len(f.Blocks) == 0 {
			f.AddBlock("entry")
		}
		for _, b := range f.Blocks {
			if b.Terminated() {
				continue
			}
			if f.ReturnType == nil || f.ReturnType.Kind == KindVoid {
				BuildOp(b, OpReturn, nil)
			} else {
				BuildOp(b, OpReturnValue, nil, l.ConstantNull(f.ReturnType))
			}
		}
	}
}
