// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/fragc/ir"
)

// ErrInvalidModule is returned for data that is not a SPIR-V module.
var ErrInvalidModule = errors.New("spirv: invalid module")

// Header is the decoded module header.
type Header struct {
	Version   Version
	Generator uint32
	Bound     uint32
}

// Decode splits a binary module into its header and instructions.
func Decode(data []byte) (Header, []Instruction, error) {
	if len(data) < 20 || len(data)%4 != 0 {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrInvalidModule, len(data))
	}
	word := func(i int) uint32 { return binary.LittleEndian.Uint32(data[i*4:]) }
	if magic := word(0); magic != MagicNumber {
		return Header{}, nil, fmt.Errorf("%w: magic 0x%08X", ErrInvalidModule, magic)
	}
	v := word(1)
	h := Header{
		Version:   Version{Major: uint8(v >> 16), Minor: uint8(v >> 8)},
		Generator: word(2),
		Bound:     word(3),
	}

	var insts []Instruction
	n := len(data) / 4
	for i := 5; i < n; {
		w := word(i)
		count := int(w >> 16)
		if count == 0 || i+count > n {
			return h, insts, fmt.Errorf("%w: bad word count %d at word %d", ErrInvalidModule, count, i)
		}
		words := make([]uint32, count-1)
		for j := range words {
			words[j] = word(i + 1 + j)
		}
		insts = append(insts, Instruction{Opcode: ir.Opcode(w & 0xFFFF), Words: words})
		i += count
	}
	return h, insts, nil
}

// Encode assembles a header and instructions into a binary module. It is
// the inverse of Decode.
func Encode(h Header, insts []Instruction) []byte {
	words := []uint32{
		MagicNumber,
		versionToWord(h.Version),
		h.Generator,
		h.Bound,
		0,
	}
	for _, inst := range insts {
		words = append(words, inst.Encode()...)
	}
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	return data
}

var capabilityNames = map[uint32]string{
	0: "Matrix", 1: "Shader", 2: "Geometry", 10: "Float64",
}

var executionModeNames = map[uint32]string{
	0: "Invocations", 7: "OriginUpperLeft", 17: "LocalSize",
	19: "InputPoints", 20: "InputLines", 22: "Triangles",
	26: "OutputVertices", 27: "OutputPoints", 28: "OutputLineStrip", 29: "OutputTriangleStrip",
}

var executionModelNames = map[uint32]string{
	0: "Vertex", 3: "Geometry", 4: "Fragment", 5: "GLCompute",
}

func lookup(m map[uint32]string, v uint32) string {
	if s, ok := m[v]; ok {
		return s
	}
	return fmt.Sprintf("%d", v)
}

func id(n uint32) string {
	return fmt.Sprintf("%%%d", n)
}

func decodeString(words []uint32) (string, int) {
	var sb strings.Builder
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
		}
	}
	return sb.String(), len(words)
}

// resultOnly lists opcodes whose first word is the result ID.
var resultOnly = map[ir.Opcode]bool{
	ir.OpExtInstImport: true, ir.OpLabel: true,
	ir.OpTypeVoid: true, ir.OpTypeBool: true, ir.OpTypeInt: true, ir.OpTypeFloat: true,
	ir.OpTypeVector: true, ir.OpTypeMatrix: true, ir.OpTypeImage: true, ir.OpTypeSampler: true,
	ir.OpTypeSampledImage: true, ir.OpTypeArray: true, ir.OpTypeRuntimeArray: true,
	ir.OpTypeStruct: true, ir.OpTypePointer: true, ir.OpTypeFunction: true,
}

// noResult lists module-level opcodes without result words.
var noResult = map[ir.Opcode]bool{
	ir.OpName: true, ir.OpMemberName: true, ir.OpMemoryModel: true, ir.OpEntryPoint: true,
	ir.OpExecutionMode: true, ir.OpCapability: true, ir.OpDecorate: true,
	ir.OpMemberDecorate: true, ir.OpFunctionEnd: true,
}

// ResultID returns the id an instruction defines, if any.
func (i Instruction) ResultID() (uint32, bool) {
	switch {
	case resultOnly[i.Opcode]:
		if len(i.Words) > 0 {
			return i.Words[0], true
		}
	case noResult[i.Opcode] || !i.Opcode.HasResult():
	default:
		if len(i.Words) > 1 {
			return i.Words[1], true
		}
	}
	return 0, false
}

// literal reports whether operand i of op, counted after any result
// words, is a literal rather than an ID.
func literal(op ir.Opcode, i int) bool {
	switch op {
	case ir.OpTypeInt, ir.OpTypeFloat, ir.OpConstant:
		return true
	case ir.OpTypeVector, ir.OpTypeMatrix, ir.OpTypeImage, ir.OpCompositeExtract:
		return i >= 1
	case ir.OpVectorShuffle:
		return i >= 2
	case ir.OpExtInst, ir.OpSelectionMerge, ir.OpArrayLength:
		return i == 1
	case ir.OpLoopMerge, ir.OpImageSampleExplicitLod:
		return i == 2
	case ir.OpFunction:
		return i == 0
	}
	return false
}

// Disassemble renders a binary module as text, one instruction per line.
func Disassemble(data []byte) (string, error) {
	h, insts, err := Decode(data)
	var sb strings.Builder
	fmt.Fprintf(&sb, "; SPIR-V\n; Version: %d.%d\n; Generator: 0x%08X\n; Bound: %d\n", h.Version.Major, h.Version.Minor, h.Generator, h.Bound)
	for _, inst := range insts {
		sb.WriteString(formatInstruction(inst))
		sb.WriteByte('\n')
	}
	return sb.String(), err
}

func formatInstruction(inst Instruction) string {
	op, w := inst.Opcode, inst.Words
	name := op.String()
	switch op {
	case ir.OpCapability:
		return name + " " + lookup(capabilityNames, w[0])
	case ir.OpExtInstImport:
		s, _ := decodeString(w[1:])
		return fmt.Sprintf("%s = %s %q", id(w[0]), name, s)
	case ir.OpName:
		s, _ := decodeString(w[1:])
		return fmt.Sprintf("%s %s %q", name, id(w[0]), s)
	case ir.OpMemberName:
		s, _ := decodeString(w[2:])
		return fmt.Sprintf("%s %s %d %q", name, id(w[0]), w[1], s)
	case ir.OpEntryPoint:
		s, n := decodeString(w[2:])
		line := fmt.Sprintf("%s %s %s %q", name, lookup(executionModelNames, w[0]), id(w[1]), s)
		for _, iface := range w[2+n:] {
			line += " " + id(iface)
		}
		return line
	case ir.OpMemoryModel:
		return fmt.Sprintf("%s %s %s", name, lookup(map[uint32]string{0: "Logical"}, w[0]), lookup(map[uint32]string{1: "GLSL450"}, w[1]))
	case ir.OpExecutionMode:
		return fmt.Sprintf("%s %s %s%s", name, id(w[0]), lookup(executionModeNames, w[1]), literals(w[2:]))
	case ir.OpDecorate:
		return fmt.Sprintf("%s %s %s%s", name, id(w[0]), ir.Decoration(w[1]), literals(w[2:]))
	case ir.OpMemberDecorate:
		return fmt.Sprintf("%s %s %d %s%s", name, id(w[0]), w[1], ir.Decoration(w[2]), literals(w[3:]))
	case ir.OpTypePointer:
		return fmt.Sprintf("%s = %s %s %s", id(w[0]), name, ir.StorageClass(w[1]), id(w[2]))
	case ir.OpVariable:
		return fmt.Sprintf("%s = %s %s %s%s", id(w[1]), name, id(w[0]), ir.StorageClass(w[2]), ids(w[3:]))
	}

	var prefix string
	switch {
	case resultOnly[op]:
		prefix, w = id(w[0])+" = ", w[1:]
	case noResult[op] || !op.HasResult():
	default:
		prefix, w = id(w[1])+" = ", append([]uint32{w[0]}, w[2:]...)
	}
	line := prefix + name
	if !resultOnly[op] && !noResult[op] && op.HasResult() {
		// Skip the result type, which is always an ID.
		line += " " + id(w[0])
		w = w[1:]
	}
	for i, word := range w {
		if literal(op, i) {
			line += fmt.Sprintf(" %d", word)
		} else {
			line += " " + id(word)
		}
	}
	return line
}

func literals(words []uint32) string {
	var sb strings.Builder
	for _, w := range words {
		fmt.Fprintf(&sb, " %d", w)
	}
	return sb.String()
}

func ids(words []uint32) string {
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(" " + id(w))
	}
	return sb.String()
}
