// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package layout computes buffer memory layout: member offsets, sizes,
// alignments and strides, and records them as decorations.
//
// Rules:
//
//   - scalars align to their size (4 bytes for 32-bit types)
//   - two-component vectors align to twice the scalar size, three and
//     four-component vectors to four times
//   - matrices are column-major with a 16-byte column stride
//   - fixed arrays use an element stride rounded up to 16 bytes
//   - nested structs align to a multiple of 16; a top-level block aligns
//     to its largest member
package layout

import (
	"github.com/gogpu/fragc/ir"
)

// MatrixStride is the byte stride between matrix columns.
const MatrixStride = 16

// Member is the computed layout of one block member.
type Member struct {
	Name   string
	Type   *ir.Type
	Offset uint32
	Size   uint32
	Align  uint32

	// MatrixStride is set for matrices and arrays of matrices.
	MatrixStride uint32

	// ArrayStride is set for arrays.
	ArrayStride uint32
}

// Block is the computed layout of a buffer block.
type Block struct {
	Members []Member
	Size    uint32
	Align   uint32
}

// Field names one member to lay out.
type Field struct {
	Name string
	Type *ir.Type
}

// RoundUp rounds n up to a multiple of align.
func RoundUp(n, align uint32) uint32 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}

func scalarSize(t *ir.Type) uint32 {
	if t.Kind == ir.KindBool {
		return 4
	}
	return max(t.Width/8, 4)
}

// Alignment returns the required alignment of t inside a buffer.
func Alignment(t *ir.Type) uint32 {
	switch t.Kind {
	case ir.KindBool, ir.KindInt, ir.KindFloat:
		return scalarSize(t)
	case ir.KindVector:
		s := scalarSize(t.Elem)
		if t.Count == 2 {
			return 2 * s
		}
		return 4 * s
	case ir.KindMatrix:
		return MatrixStride
	case ir.KindFixedArray, ir.KindRuntimeArray:
		return RoundUp(Alignment(t.Elem), 16)
	case ir.KindStruct:
		a := uint32(1)
		for _, m := range t.Members {
			a = max(a, Alignment(m.Type))
		}
		return RoundUp(a, 16)
	}
	return 4
}

// Size returns the byte size of t inside a buffer.
func Size(t *ir.Type) uint32 {
	switch t.Kind {
	case ir.KindBool, ir.KindInt, ir.KindFloat:
		return scalarSize(t)
	case ir.KindVector:
		return scalarSize(t.Elem) * t.Count
	case ir.KindMatrix:
		return MatrixStride * t.Count
	case ir.KindFixedArray:
		return ArrayStride(t.Elem) * t.Count
	case ir.KindStruct:
		return compute(structFields(t), Alignment(t)).Size
	}
	return 0
}

// ArrayStride returns the element stride of a fixed array of elem.
func ArrayStride(elem *ir.Type) uint32 {
	return RoundUp(Size(elem), 16)
}

// RuntimeArrayStride returns the element stride of a runtime array of elem:
// the element size rounded to its own alignment.
func RuntimeArrayStride(elem *ir.Type) uint32 {
	return RoundUp(Size(elem), Alignment(elem))
}

func structFields(t *ir.Type) []Field {
	fields := make([]Field, len(t.Members))
	for i, m := range t.Members {
		fields[i] = Field{Name: m.Name, Type: m.Type}
	}
	return fields
}

// Compute lays out fields in declaration order. The block size is rounded
// up to the block alignment, which is the largest member alignment.
func Compute(fields []Field) Block {
	align := uint32(4)
	for _, f := range fields {
		align = max(align, Alignment(f.Type))
	}
	return compute(fields, align)
}

func compute(fields []Field, align uint32) Block {
	var b Block
	b.Align = align
	offset := uint32(0)
	for _, f := range fields {
		a := Alignment(f.Type)
		offset = RoundUp(offset, a)
		m := Member{Name: f.Name, Type: f.Type, Offset: offset, Size: Size(f.Type), Align: a}
		switch f.Type.Kind {
		case ir.KindMatrix:
			m.MatrixStride = MatrixStride
		case ir.KindFixedArray:
			m.ArrayStride = ArrayStride(f.Type.Elem)
		case ir.KindRuntimeArray:
			m.ArrayStride = RuntimeArrayStride(f.Type.Elem)
		}
		if f.Type.Kind == ir.KindFixedArray || f.Type.Kind == ir.KindRuntimeArray {
			if inner := f.Type.Elem; inner.Kind == ir.KindMatrix {
				m.MatrixStride = MatrixStride
			}
		}
		b.Members = append(b.Members, m)
		offset += m.Size
	}
	b.Size = RoundUp(offset, align)
	return b
}

// Decorate computes the layout of struct st and records Offset,
// MatrixStride, ColMajor and ArrayStride decorations into d, recursing into
// nested structs and array element types.
func Decorate(d *ir.DecorationSet, st *ir.Type) Block {
	b := Compute(structFields(st))
	for i, m := range b.Members {
		d.DecorateMember(st, i, ir.DecorationOffset, m.Offset)
		if m.MatrixStride != 0 {
			d.DecorateMember(st, i, ir.DecorationColMajor)
			d.DecorateMember(st, i, ir.DecorationMatrixStride, m.MatrixStride)
		}
		decorateNested(d, m.Type)
	}
	return b
}

func decorateNested(d *ir.DecorationSet, t *ir.Type) {
	switch t.Kind {
	case ir.KindFixedArray:
		d.Decorate(t, ir.DecorationArrayStride, ArrayStride(t.Elem))
		decorateNested(d, t.Elem)
	case ir.KindRuntimeArray:
		d.Decorate(t, ir.DecorationArrayStride, RuntimeArrayStride(t.Elem))
		decorateNested(d, t.Elem)
	case ir.KindStruct:
		Decorate(d, t)
	}
}
