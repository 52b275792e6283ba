// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"encoding/binary"

	"github.com/gogpu/fragc/ir"
)

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Opcode ir.Opcode
	Words  []uint32 // result type ID, result ID, operands
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) {
	b.words = append(b.words, word)
}

// AddWords adds several words.
func (b *InstructionBuilder) AddWords(words ...uint32) {
	b.words = append(b.words, words...)
}

// AddString adds a null-terminated UTF-8 string padded to a word boundary.
func (b *InstructionBuilder) AddString(s string) {
	b.words = append(b.words, stringWords(s)...)
}

func stringWords(s string) []uint32 {
	bytes := append([]byte(s), 0)
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}
	words := make([]uint32, 0, len(bytes)/4)
	for i := 0; i < len(bytes); i += 4 {
		words = append(words, binary.LittleEndian.Uint32(bytes[i:]))
	}
	return words
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode ir.Opcode) Instruction {
	return Instruction{
		Opcode: opcode,
		Words:  b.words,
	}
}

// Encode encodes the instruction to binary.
func (i Instruction) Encode() []uint32 {
	wordCount := uint32(len(i.Words) + 1) // +1 for opcode word
	result := make([]uint32, 0, wordCount)
	result = append(result, (wordCount<<16)|uint32(i.Opcode))
	result = append(result, i.Words...)
	return result
}

// ModuleBuilder builds complete SPIR-V modules. Instructions are collected
// per logical layout section and concatenated by Build.
type ModuleBuilder struct {
	version   Version
	generator uint32

	capabilities   []Instruction
	extInstImports []Instruction
	memoryModel    *Instruction
	entryPoints    []Instruction
	executionModes []Instruction
	debugNames     []Instruction // OpName, OpMemberName
	annotations    []Instruction // OpDecorate, OpMemberDecorate
	types          []Instruction // OpType*, OpConstant*, global OpVariable
	functions      []Instruction // OpFunction...OpFunctionEnd

	nextID uint32
}

// NewModuleBuilder creates a new SPIR-V module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:   version,
		generator: GeneratorID,
		nextID:    1,
	}
}

// AllocID allocates a new SPIR-V ID.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound returns the current ID bound.
func (b *ModuleBuilder) Bound() uint32 {
	return b.nextID
}

// AddCapability adds a capability.
func (b *ModuleBuilder) AddCapability(capability ir.Capability) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(capability))
	b.capabilities = append(b.capabilities, builder.Build(ir.OpCapability))
}

// AddExtInstImport imports an extended instruction set.
func (b *ModuleBuilder) AddExtInstImport(name string) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(name)
	b.extInstImports = append(b.extInstImports, builder.Build(ir.OpExtInstImport))
	return id
}

// SetMemoryModel sets the addressing and memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	builder := NewInstructionBuilder()
	builder.AddWords(uint32(addressing), uint32(memory))
	inst := builder.Build(ir.OpMemoryModel)
	b.memoryModel = &inst
}

// AddEntryPoint declares an entry point.
func (b *ModuleBuilder) AddEntryPoint(model ir.ExecutionModel, funcID uint32, name string, interfaces []uint32) {
	builder := NewInstructionBuilder()
	builder.AddWords(uint32(model), funcID)
	builder.AddString(name)
	builder.AddWords(interfaces...)
	b.entryPoints = append(b.entryPoints, builder.Build(ir.OpEntryPoint))
}

// AddExecutionMode adds an execution mode to an entry point.
func (b *ModuleBuilder) AddExecutionMode(entryPoint uint32, mode ir.ExecutionMode, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWords(entryPoint, uint32(mode))
	builder.AddWords(params...)
	b.executionModes = append(b.executionModes, builder.Build(ir.OpExecutionMode))
}

// AddName attaches a debug name to an ID.
func (b *ModuleBuilder) AddName(id uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(ir.OpName))
}

// AddMemberName attaches a debug name to a struct member.
func (b *ModuleBuilder) AddMemberName(structID, member uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWords(structID, member)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(ir.OpMemberName))
}

// AddDecorate decorates an ID.
func (b *ModuleBuilder) AddDecorate(id uint32, decoration ir.Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWords(id, uint32(decoration))
	builder.AddWords(params...)
	b.annotations = append(b.annotations, builder.Build(ir.OpDecorate))
}

// AddMemberDecorate decorates a struct member.
func (b *ModuleBuilder) AddMemberDecorate(structID, member uint32, decoration ir.Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWords(structID, member, uint32(decoration))
	builder.AddWords(params...)
	b.annotations = append(b.annotations, builder.Build(ir.OpMemberDecorate))
}

// AddType appends a type, constant or global variable declaration. The
// caller allocates the result ID and places it in words.
func (b *ModuleBuilder) AddType(opcode ir.Opcode, words ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWords(words...)
	b.types = append(b.types, builder.Build(opcode))
}

// AddFunctionInstruction appends an instruction to the function section.
func (b *ModuleBuilder) AddFunctionInstruction(opcode ir.Opcode, words ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWords(words...)
	b.functions = append(b.functions, builder.Build(opcode))
}

// Build generates the final SPIR-V binary.
func (b *ModuleBuilder) Build() []byte {
	sections := [][]Instruction{
		b.capabilities,
		b.extInstImports,
	}
	if b.memoryModel != nil {
		sections = append(sections, []Instruction{*b.memoryModel})
	}
	sections = append(sections,
		b.entryPoints,
		b.executionModes,
		b.debugNames,
		b.annotations,
		b.types,
		b.functions,
	)

	totalWords := 5 // header
	for _, s := range sections {
		totalWords += countWords(s)
	}
	buffer := make([]byte, totalWords*4)

	header := []uint32{MagicNumber, versionToWord(b.version), b.generator, b.nextID, 0}
	offset := 0
	for _, w := range header {
		binary.LittleEndian.PutUint32(buffer[offset:], w)
		offset += 4
	}
	for _, s := range sections {
		offset = writeInstructions(buffer, offset, s)
	}
	return buffer
}

// countWords counts total words in instructions.
func countWords(instructions []Instruction) int {
	count := 0
	for _, inst := range instructions {
		count += len(inst.Words) + 1
	}
	return count
}

// writeInstructions writes instructions to buffer.
func writeInstructions(buffer []byte, offset int, instructions []Instruction) int {
	for _, inst := range instructions {
		for _, word := range inst.Encode() {
			binary.LittleEndian.PutUint32(buffer[offset:], word)
			offset += 4
		}
	}
	return offset
}

// versionToWord converts Version to SPIR-V word format.
func versionToWord(v Version) uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}
