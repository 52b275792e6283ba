// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function string
	Block    string
	Op       int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Block != "" {
			return fmt.Sprintf("in function %s, block %s, op %d: %s", e.Function, e.Block, e.Op, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator checks structural invariants of a library.
type Validator struct {
	library *Library
	errors  []ValidationError

	function *Function
	block    *Block
	op       int
}

// Validate checks the library for correctness.
// Returns validation errors if any, or nil if the library is valid.
func Validate(library *Library) ([]ValidationError, error) {
	if library == nil {
		return nil, fmt.Errorf("library is nil")
	}

	v := &Validator{library: library}
	v.ValidateLibrary()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateLibrary validates the complete library.
func (v *Validator) ValidateLibrary() {
	v.validateTypes()
	v.validateConstants()
	v.validateGlobalVariables()
	v.validateFunctions()
	v.validateEntryPoints()
}

func (v *Validator) validateTypes() {
	for _, t := range v.library.Types {
		switch t.Kind {
		case KindVector:
			if t.Count < 2 || t.Count > 4 {
				v.addError(fmt.Sprintf("type %s: vector size must be 2, 3, or 4, got %d", t, t.Count))
			}
			if t.Elem == nil || !t.Elem.IsScalar() {
				v.addError(fmt.Sprintf("type %s: vector component must be a scalar", t))
			}
		case KindMatrix:
			if t.Count < 2 || t.Count > 4 {
				v.addError(fmt.Sprintf("type %s: matrix columns must be 2, 3, or 4, got %d", t, t.Count))
			}
			if t.Elem == nil || t.Elem.Kind != KindVector || t.Elem.Elem.Kind != KindFloat {
				v.addError(fmt.Sprintf("type %s: matrix column must be a float vector", t))
			}
		case KindFixedArray:
			if t.Count == 0 {
				v.addError(fmt.Sprintf("type %s: fixed array length must be positive", t))
			}
		case KindPointer:
			if t.Elem == nil {
				v.addError(fmt.Sprintf("type %s: pointer has no pointee", t))
			}
		case KindStruct:
			for i, m := range t.Members {
				if m.Type == nil {
					v.addError(fmt.Sprintf("type %s: member %d has no type", t, i))
				} else if m.Type.Kind == KindImage || m.Type.Kind == KindSampler || m.Type.Kind == KindSampledImage {
					v.addError(fmt.Sprintf("type %s: member %s has opaque type %s", t, m.Name, m.Type))
				}
			}
		}
	}
}

func (v *Validator) validateConstants() {
	for _, c := range v.library.Constants {
		if c.Kind != ConstantKindComposite {
			continue
		}
		want := -1
		switch c.Type.Kind {
		case KindVector, KindMatrix, KindFixedArray:
			want = int(c.Type.Count)
		case KindStruct:
			want = len(c.Type.Members)
		}
		if want >= 0 && want != len(c.Constituents) {
			v.addError(fmt.Sprintf("composite constant of type %s has %d constituents, want %d", c.Type, len(c.Constituents), want))
		}
	}
}

func (v *Validator) validateGlobalVariables() {
	for _, g := range v.library.Globals {
		if g.Type == nil || g.Type.Kind != KindPointer {
			v.addError(fmt.Sprintf("global %s: type must be a pointer", g.Name))
			continue
		}
		if g.Type.StorageClass != g.StorageClass {
			v.addError(fmt.Sprintf("global %s: storage class %s does not match pointer class %s", g.Name, g.StorageClass, g.Type.StorageClass))
		}
		if g.StorageClass == StorageClassFunction {
			v.addError(fmt.Sprintf("global %s: function storage class is not allowed at module scope", g.Name))
		}
	}
}

func (v *Validator) validateFunctions() {
	for _, f := range v.library.Functions {
		v.function = f
		v.validateFunction(f)
	}
	v.function = nil
	v.block = nil
}

func (v *Validator) validateFunction(f *Function) {
	if f.LateBound {
		if len(f.Blocks) > 0 {
			v.addErrorInFunction("late-bound declaration has a body")
		}
		return
	}
	if len(f.Blocks) == 0 {
		v.addErrorInFunction("function has no blocks")
		return
	}
	for _, b := range f.Blocks {
		v.block = b
		v.validateBlock(b)
	}
	v.block = nil
}

func (v *Validator) validateBlock(b *Block) {
	if len(b.Ops) == 0 {
		v.op = 0
		v.addErrorInBlock("block is empty")
		return
	}
	for i, op := range b.Ops {
		v.op = i
		last := i == len(b.Ops)-1
		if op.Opcode.IsTerminator() && !last {
			v.addErrorInBlock(fmt.Sprintf("terminator %s is not the last op", op.Opcode))
		}
		if last && !op.Opcode.IsTerminator() {
			v.addErrorInBlock(fmt.Sprintf("block ends with %s instead of a terminator", op.Opcode))
		}
		v.validateOp(op)
	}
}

func (v *Validator) validateOp(op *Op) {
	if n := op.Opcode.MinOperands(); len(op.Operands) < n {
		v.addErrorInBlock(fmt.Sprintf("%s needs %d operands, has %d", op.Opcode, n, len(op.Operands)))
		return
	}
	for _, operand := range op.Operands {
		if operand == nil {
			v.addErrorInBlock(fmt.Sprintf("%s has a nil operand", op.Opcode))
			return
		}
	}
	switch op.Opcode {
	case OpLoad, OpStore, OpAccessChain:
		if t := TypeOf(op.Operands[0]); t == nil || t.Kind != KindPointer {
			v.addErrorInBlock(fmt.Sprintf("%s operand is not a pointer", op.Opcode))
		}
	case OpReturnValue:
		if rt := v.function.ReturnType; rt == nil || rt.Kind == KindVoid {
			v.addErrorInBlock("OpReturnValue in a void function")
		}
	case OpReturn:
		if rt := v.function.ReturnType; rt != nil && rt.Kind != KindVoid {
			v.addErrorInBlock("OpReturn in a function returning " + rt.String())
		}
	case OpFunctionCall:
		if _, ok := op.Operands[0].(*Function); !ok {
			v.addErrorInBlock("OpFunctionCall callee is not a function")
		}
	}
}

func (v *Validator) validateEntryPoints() {
	for _, ep := range v.library.EntryPoints {
		if ep.Function == nil {
			v.addError(fmt.Sprintf("entry point %s has no function", ep.Name))
			continue
		}
		for _, g := range ep.Interface {
			if g.StorageClass != StorageClassInput && g.StorageClass != StorageClassOutput {
				v.addError(fmt.Sprintf("entry point %s: interface variable %s has storage class %s", ep.Name, g.Name, g.StorageClass))
			}
		}
		for _, f := range ep.Reachable() {
			if f.LateBound && ep.Bindings[f] == nil {
				v.addError(fmt.Sprintf("entry point %s: late-bound function %s has no implementation", ep.Name, f.Name))
			}
		}
	}
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{Message: msg})
}

func (v *Validator) addErrorInFunction(msg string) {
	v.errors = append(v.errors, ValidationError{Message: msg, Function: v.function.Name})
}

func (v *Validator) addErrorInBlock(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.function.Name,
		Block:    v.block.Name,
		Op:       v.op,
	})
}
