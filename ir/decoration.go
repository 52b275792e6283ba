// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import "fmt"

// Decoration is a decoration word.
type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationRowMajor      Decoration = 4
	DecorationColMajor      Decoration = 5
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationNoPerspective Decoration = 13
	DecorationFlat          Decoration = 14
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

var decorationNames = map[Decoration]string{
	DecorationBlock:         "Block",
	DecorationRowMajor:      "RowMajor",
	DecorationColMajor:      "ColMajor",
	DecorationArrayStride:   "ArrayStride",
	DecorationMatrixStride:  "MatrixStride",
	DecorationBuiltIn:       "BuiltIn",
	DecorationNoPerspective: "NoPerspective",
	DecorationFlat:          "Flat",
	DecorationLocation:      "Location",
	DecorationBinding:       "Binding",
	DecorationDescriptorSet: "DescriptorSet",
	DecorationOffset:        "Offset",
}

// String returns the decoration name.
func (d Decoration) String() string {
	if name, ok := decorationNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Decoration(%d)", uint32(d))
}

// NoMember marks a decoration on the target itself rather than a member.
const NoMember = -1

// DecorationEntry is one decoration applied to a target or struct member.
type DecorationEntry struct {
	Target     Value
	Member     int
	Decoration Decoration
	Params     []uint32
}

type decorationKey struct {
	target     Value
	member     int
	decoration Decoration
}

// DecorationSet collects decorations in insertion order. Each
// (target, member, decoration) triple is recorded once.
type DecorationSet struct {
	entries []DecorationEntry
	index   map[decorationKey]int
}

// NewDecorationSet creates an empty decoration set.
func NewDecorationSet() *DecorationSet {
	return &DecorationSet{index: make(map[decorationKey]int)}
}

// Decorate decorates target. It returns false when the decoration was
// already present.
func (d *DecorationSet) Decorate(target Value, dec Decoration, params ...uint32) bool {
	return d.add(target, NoMember, dec, params)
}

// DecorateMember decorates member of struct type st.
func (d *DecorationSet) DecorateMember(st *Type, member int, dec Decoration, params ...uint32) bool {
	return d.add(st, member, dec, params)
}

func (d *DecorationSet) add(target Value, member int, dec Decoration, params []uint32) bool {
	key := decorationKey{target: target, member: member, decoration: dec}
	if _, ok := d.index[key]; ok {
		return false
	}
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, DecorationEntry{
		Target:     target,
		Member:     member,
		Decoration: dec,
		Params:     append([]uint32(nil), params...),
	})
	return true
}

// Find returns the decoration recorded for (target, member, dec).
func (d *DecorationSet) Find(target Value, member int, dec Decoration) (DecorationEntry, bool) {
	i, ok := d.index[decorationKey{target: target, member: member, decoration: dec}]
	if !ok {
		return DecorationEntry{}, false
	}
	return d.entries[i], true
}

// Has reports whether target carries dec.
func (d *DecorationSet) Has(target Value, dec Decoration) bool {
	_, ok := d.Find(target, NoMember, dec)
	return ok
}

// All returns every decoration in insertion order.
func (d *DecorationSet) All() []DecorationEntry {
	return d.entries
}

// Len returns the number of decorations.
func (d *DecorationSet) Len() int {
	return len(d.entries)
}
