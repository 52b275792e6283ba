// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import "strconv"

// Builder appends ops to the current block of a function.
// Emitting after a terminator opens a fresh, unreachable block so the
// terminated block keeps exactly one terminator.
type Builder struct {
	Library  *Library
	Function *Function
	Block    *Block

	blocks int
}

// NewBuilder positions a builder at the end of f, creating an entry block
// when f has none.
func NewBuilder(f *Function) *Builder {
	b := &Builder{Library: f.Library, Function: f}
	if len(f.Blocks) == 0 {
		b.Block = f.AddBlock("entry")
	} else {
		b.Block = f.Blocks[len(f.Blocks)-1]
	}
	b.blocks = len(f.Blocks)
	return b
}

// NewBlock creates a block without moving the insertion point.
func (b *Builder) NewBlock(prefix string) *Block {
	b.blocks++
	return b.Function.AddBlock(prefix + strconv.Itoa(b.blocks))
}

// SetBlock moves the insertion point to the end of blk.
func (b *Builder) SetBlock(blk *Block) {
	b.Block = blk
}

// Emit appends an op at the insertion point.
func (b *Builder) Emit(opcode Opcode, resultType *Type, operands ...Value) *Op {
	if b.Block.Terminated() {
		b.Block = b.NewBlock("dead")
	}
	return BuildOp(b.Block, opcode, resultType, operands...)
}

// Local declares a function-scope variable.
func (b *Builder) Local(name string, t *Type) *Op {
	return b.Function.AddLocal(name, t)
}

// Load reads through a pointer.
func (b *Builder) Load(ptr Value) *Op {
	return b.Emit(OpLoad, TypeOf(ptr).Pointee(), ptr)
}

// Store writes v through ptr.
func (b *Builder) Store(ptr, v Value) *Op {
	return b.Emit(OpStore, nil, ptr, v)
}

// AccessChain returns a pointer to an element of base's pointee. The result
// keeps base's storage class.
func (b *Builder) AccessChain(base Value, elem *Type, indices ...Value) *Op {
	sc := TypeOf(base).StorageClass
	operands := append([]Value{base}, indices...)
	return b.Emit(OpAccessChain, b.Library.PointerType(elem, sc), operands...)
}

// Member returns a pointer to member index of the struct base points to.
func (b *Builder) Member(base Value, index int) *Op {
	st := TypeOf(base).Pointee()
	return b.AccessChain(base, st.Members[index].Type, b.Library.ConstantInt(int32(index)))
}

// Call calls f with args.
func (b *Builder) Call(f *Function, args ...Value) *Op {
	return b.Emit(OpFunctionCall, f.ReturnType, append([]Value{f}, args...)...)
}

// CompositeExtract extracts a member of a composite value.
func (b *Builder) CompositeExtract(v Value, resultType *Type, indices ...uint32) *Op {
	operands := []Value{v}
	for _, i := range indices {
		operands = append(operands, Literal(i))
	}
	return b.Emit(OpCompositeExtract, resultType, operands...)
}

// CompositeConstruct builds a composite from its constituents.
func (b *Builder) CompositeConstruct(resultType *Type, parts ...Value) *Op {
	return b.Emit(OpCompositeConstruct, resultType, parts...)
}

// Undef produces a placeholder value of type t.
func (b *Builder) Undef(t *Type) *Op {
	return b.Emit(OpUndef, t)
}

// Branch jumps to target.
func (b *Builder) Branch(target *Block) *Op {
	return b.Emit(OpBranch, nil, target)
}

// BranchConditional jumps to onTrue or onFalse.
func (b *Builder) BranchConditional(cond Value, onTrue, onFalse *Block) *Op {
	return b.Emit(OpBranchConditional, nil, cond, onTrue, onFalse)
}

// SelectionMerge declares the merge block of a selection.
func (b *Builder) SelectionMerge(merge *Block) *Op {
	return b.Emit(OpSelectionMerge, nil, merge, Literal(0))
}

// LoopMerge declares the merge and continue blocks of a loop.
func (b *Builder) LoopMerge(merge, cont *Block) *Op {
	return b.Emit(OpLoopMerge, nil, merge, cont, Literal(0))
}

// Return returns from a void function.
func (b *Builder) Return() *Op {
	return b.Emit(OpReturn, nil)
}

// ReturnValue returns v.
func (b *Builder) ReturnValue(v Value) *Op {
	return b.Emit(OpReturnValue, nil, v)
}
