// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the base kind of a type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindVector
	KindMatrix
	KindStruct
	KindFixedArray
	KindRuntimeArray
	KindImage
	KindSampler
	KindSampledImage
	KindPointer
	KindFunction
)

var kindNames = [...]string{
	KindVoid:         "void",
	KindBool:         "bool",
	KindInt:          "int",
	KindFloat:        "float",
	KindVector:       "vector",
	KindMatrix:       "matrix",
	KindStruct:       "struct",
	KindFixedArray:   "array",
	KindRuntimeArray: "runtime_array",
	KindImage:        "image",
	KindSampler:      "sampler",
	KindSampledImage: "sampled_image",
	KindPointer:      "pointer",
	KindFunction:     "function",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// InterfaceKind describes how a pointer type is used at a stage boundary.
type InterfaceKind uint8

const (
	// InterfaceNone is an ordinary pointer (locals, parameters).
	InterfaceNone InterfaceKind = iota

	// InterfaceFlat is a pointer to an individually decorated global.
	InterfaceFlat

	// InterfaceBlock is a pointer to a block-decorated struct. Requesting it
	// seals the struct's member list.
	InterfaceBlock
)

// ImageDim represents image dimensionality.
type ImageDim uint32

const (
	Dim1D   ImageDim = 0
	Dim2D   ImageDim = 1
	Dim3D   ImageDim = 2
	DimCube ImageDim = 3
)

// ImageInfo describes an image type.
type ImageInfo struct {
	Dim          ImageDim
	Depth        bool
	Arrayed      bool
	Multisampled bool
	Storage      bool   // storage image (sampled operand 2) instead of sampled (1)
	Format       uint32 // image format word, 0 = Unknown
}

// Member is one member of a struct type.
type Member struct {
	Name string
	Type *Type
}

// Type is an IR type.
//
// Structural types (scalars, vectors, matrices, arrays, pointers, function
// types, images) are interned per library and compared by identity. Struct
// types are nominal: every DeclareStruct call creates a distinct type.
type Type struct {
	Name string
	Kind Kind

	// Width is the bit width of scalar types.
	Width uint32

	// Signed is set for signed integer types.
	Signed bool

	// Elem is the component type of vectors, the column type of matrices,
	// the element type of arrays, the image of sampled images, and the
	// dereferenced value type of pointers.
	Elem *Type

	// Count is the vector size, matrix column count or fixed array length.
	Count uint32

	// Members are the members of a struct type.
	Members []Member

	// StorageClass is set for pointer types.
	StorageClass StorageClass

	// Image is set for image types.
	Image ImageInfo

	// Result and Params describe function types.
	Result *Type
	Params []*Type

	// Library is the library that created the type.
	Library *Library

	sealed bool
	key    string
}

func (*Type) value() {}

// String returns a readable description of the type.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	switch t.Kind {
	case KindInt:
		if t.Signed {
			return "i" + strconv.FormatUint(uint64(t.Width), 10)
		}
		return "u" + strconv.FormatUint(uint64(t.Width), 10)
	case KindFloat:
		return "f" + strconv.FormatUint(uint64(t.Width), 10)
	case KindVector:
		return fmt.Sprintf("vec%d<%s>", t.Count, t.Elem)
	case KindMatrix:
		return fmt.Sprintf("mat%dx%d<%s>", t.Count, t.Elem.Count, t.Elem.Elem)
	case KindFixedArray:
		return fmt.Sprintf("array<%s, %d>", t.Elem, t.Count)
	case KindRuntimeArray:
		return fmt.Sprintf("array<%s>", t.Elem)
	case KindPointer:
		return fmt.Sprintf("ptr<%s, %s>", t.StorageClass, t.Elem)
	case KindFunction:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = p.String()
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(params, ", "), t.Result)
	default:
		return t.Kind.String()
	}
}

// IsScalar reports whether t is a bool, int or float type.
func (t *Type) IsScalar() bool {
	return t.Kind == KindBool || t.Kind == KindInt || t.Kind == KindFloat
}

// IsOpaque reports whether values of t cannot live inside a struct or an
// ordinary interface block.
func (t *Type) IsOpaque() bool {
	switch t.Kind {
	case KindImage, KindSampler, KindSampledImage, KindRuntimeArray:
		return true
	}
	return false
}

// Scalar returns the scalar component type of t (itself for scalars).
func (t *Type) Scalar() *Type {
	switch t.Kind {
	case KindVector:
		return t.Elem
	case KindMatrix:
		return t.Elem.Elem
	case KindFixedArray, KindRuntimeArray:
		return t.Elem.Scalar()
	}
	return t
}

// Pointee returns the value type a pointer refers to.
func (t *Type) Pointee() *Type {
	if t.Kind != KindPointer {
		return nil
	}
	return t.Elem
}

// Sealed reports whether the struct's member list is frozen.
func (t *Type) Sealed() bool {
	return t.sealed
}

// Seal freezes the member list of a struct type.
func (t *Type) Seal() {
	t.sealed = true
}

// AddMember appends a member to a struct type and returns its index.
// Adding members to a sealed struct is a programming error and panics.
func (t *Type) AddMember(name string, typ *Type) int {
	if t.Kind != KindStruct {
		panic(fmt.Sprintf("ir: AddMember on non-struct type %s", t))
	}
	if t.sealed {
		panic(fmt.Sprintf("ir: struct %s is sealed; members cannot be added after its interface block was declared", t.Name))
	}
	t.Members = append(t.Members, Member{Name: name, Type: typ})
	return len(t.Members) - 1
}

// MemberIndex returns the index of the named member, or -1.
func (t *Type) MemberIndex(name string) int {
	for i, m := range t.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// findType searches this library and its dependencies for an interned key.
func (l *Library) findType(key string) *Type {
	var found *Type
	l.visit(func(lib *Library) bool {
		found = lib.typeByKey[key]
		return found != nil
	})
	return found
}

// intern returns the existing type with key or registers t under key.
func (l *Library) intern(key string, build func() *Type) *Type {
	if t := l.findType(key); t != nil {
		return t
	}
	t := build()
	t.Library = l
	t.key = key
	l.typeByKey[key] = t
	l.Types = append(l.Types, t)
	return t
}

// typeRef returns a stable identity fragment for t used inside keys.
func typeRef(t *Type) string {
	if t.key != "" {
		return t.key
	}
	return fmt.Sprintf("%p", t)
}

// VoidType returns the void type.
func (l *Library) VoidType() *Type {
	return l.intern("void", func() *Type { return &Type{Kind: KindVoid} })
}

// BoolType returns the boolean type.
func (l *Library) BoolType() *Type {
	return l.intern("bool", func() *Type { return &Type{Kind: KindBool} })
}

// IntType returns an integer type of the given bit width.
func (l *Library) IntType(width uint32, signed bool) *Type {
	key := "int:" + strconv.FormatUint(uint64(width), 10) + ":" + strconv.FormatBool(signed)
	return l.intern(key, func() *Type { return &Type{Kind: KindInt, Width: width, Signed: signed} })
}

// FloatType returns a float type of the given bit width.
func (l *Library) FloatType(width uint32) *Type {
	key := "float:" + strconv.FormatUint(uint64(width), 10)
	return l.intern(key, func() *Type { return &Type{Kind: KindFloat, Width: width} })
}

// VectorType returns a vector of count components.
func (l *Library) VectorType(elem *Type, count uint32) *Type {
	key := "vec:" + strconv.FormatUint(uint64(count), 10) + ":" + typeRef(elem)
	return l.intern(key, func() *Type { return &Type{Kind: KindVector, Elem: elem, Count: count} })
}

// MatrixType returns a matrix with the given column vector type.
func (l *Library) MatrixType(column *Type, columns uint32) *Type {
	key := "mat:" + strconv.FormatUint(uint64(columns), 10) + ":" + typeRef(column)
	return l.intern(key, func() *Type { return &Type{Kind: KindMatrix, Elem: column, Count: columns} })
}

// FixedArrayType returns an array of length elements.
func (l *Library) FixedArrayType(elem *Type, length uint32) *Type {
	key := "array:" + typeRef(elem) + ":" + strconv.FormatUint(uint64(length), 10)
	return l.intern(key, func() *Type { return &Type{Kind: KindFixedArray, Elem: elem, Count: length} })
}

// RuntimeArrayType returns an unbounded array of elem.
func (l *Library) RuntimeArrayType(elem *Type) *Type {
	key := "rtarray:" + typeRef(elem)
	return l.intern(key, func() *Type { return &Type{Kind: KindRuntimeArray, Elem: elem} })
}

// ImageType returns an image type with sampled component type sampled.
func (l *Library) ImageType(sampled *Type, info ImageInfo) *Type {
	key := fmt.Sprintf("image:%s:%d:%v:%v:%v:%v:%d", typeRef(sampled), info.Dim, info.Depth, info.Arrayed, info.Multisampled, info.Storage, info.Format)
	return l.intern(key, func() *Type { return &Type{Kind: KindImage, Elem: sampled, Image: info} })
}

// SamplerType returns the sampler type.
func (l *Library) SamplerType() *Type {
	return l.intern("sampler", func() *Type { return &Type{Kind: KindSampler} })
}

// SampledImageType returns the combined image-sampler type for image.
func (l *Library) SampledImageType(image *Type) *Type {
	key := "sampled:" + typeRef(image)
	return l.intern(key, func() *Type { return &Type{Kind: KindSampledImage, Elem: image} })
}

// FunctionType returns the function type with the given signature.
func (l *Library) FunctionType(result *Type, params ...*Type) *Type {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = typeRef(p)
	}
	key := "fn:" + typeRef(result) + "(" + strings.Join(parts, ",") + ")"
	return l.intern(key, func() *Type {
		return &Type{Kind: KindFunction, Result: result, Params: append([]*Type(nil), params...)}
	})
}

// DeclareStruct creates a new, empty, nominal struct type.
func (l *Library) DeclareStruct(name string) *Type {
	t := &Type{Name: name, Kind: KindStruct, Library: l}
	l.Types = append(l.Types, t)
	return t
}

// RegisterTypeName binds a host-language type name to an IR type.
func (l *Library) RegisterTypeName(name string, t *Type) {
	l.typeByName[name] = t
}

// FindType looks up a host-language type name locally, then in every
// dependency in registration order.
func (l *Library) FindType(name string) *Type {
	var found *Type
	l.visit(func(lib *Library) bool {
		found = lib.typeByName[name]
		return found != nil
	})
	return found
}

// FindOrCreateInterfaceType returns the pointer type for (t, sc), creating it
// and its dereference link on first use. The same (t, sc) pair always yields
// the same type. Requesting a block interface seals a struct's member list.
func (l *Library) FindOrCreateInterfaceType(t *Type, kind InterfaceKind, sc StorageClass) *Type {
	if kind == InterfaceBlock && t.Kind == KindStruct {
		t.Seal()
	}
	key := pointerKey{pointee: t, class: sc}
	var found *Type
	l.visit(func(lib *Library) bool {
		found = lib.pointerTypes[key]
		return found != nil
	})
	if found != nil {
		return found
	}
	ptr := &Type{Kind: KindPointer, Elem: t, StorageClass: sc, Library: l}
	ptr.key = "ptr:" + strconv.FormatUint(uint64(sc), 10) + ":" + typeRef(t)
	l.pointerTypes[key] = ptr
	l.Types = append(l.Types, ptr)
	return ptr
}

// PointerType returns the ordinary pointer type for (t, sc).
func (l *Library) PointerType(t *Type, sc StorageClass) *Type {
	return l.FindOrCreateInterfaceType(t, InterfaceNone, sc)
}
