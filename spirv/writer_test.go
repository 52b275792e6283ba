// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/fragc/ir"
)

func TestModuleBuilder_MinimalModule(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)
	builder.AddCapability(ir.CapabilityShader)
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	data := builder.Build()

	// Header (5 words) + OpCapability (2 words) + OpMemoryModel (3 words)
	if len(data) != 40 {
		t.Fatalf("module size: got %d bytes, want 40", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicNumber {
		t.Errorf("invalid magic number: got 0x%08X, want 0x%08X", magic, MagicNumber)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != 1<<16|3<<8 {
		t.Errorf("invalid version: got 0x%08X", version)
	}
	if bound := binary.LittleEndian.Uint32(data[12:16]); bound != 1 {
		t.Errorf("bound: got %d, want 1", bound)
	}
	if schema := binary.LittleEndian.Uint32(data[16:20]); schema != 0 {
		t.Errorf("schema should be 0, got %d", schema)
	}
}

func TestModuleBuilder_SectionOrder(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	// Added out of order on purpose.
	fn := builder.AllocID()
	builder.AddFunctionInstruction(ir.OpReturn)
	void := builder.AllocID()
	builder.AddType(ir.OpTypeVoid, void)
	builder.AddName(void, "void")
	builder.AddEntryPoint(ir.ExecutionModelFragment, fn, "main", nil)
	builder.AddCapability(ir.CapabilityShader)
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	_, insts, err := Decode(builder.Build())
	if err != nil {
		t.Fatal(err)
	}
	want := []ir.Opcode{ir.OpCapability, ir.OpMemoryModel, ir.OpEntryPoint, ir.OpName, ir.OpTypeVoid, ir.OpReturn}
	if len(insts) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(insts), len(want))
	}
	for i, op := range want {
		if insts[i].Opcode != op {
			t.Errorf("instruction %d: got %s, want %s", i, insts[i].Opcode, op)
		}
	}
}

func TestInstructionBuilder_String(t *testing.T) {
	tests := []struct {
		input string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"main", 2},
		{"GLSL.std.450", 4},
	}
	for _, tt := range tests {
		b := NewInstructionBuilder()
		b.AddString(tt.input)
		inst := b.Build(ir.OpName)
		if len(inst.Words) != tt.words {
			t.Errorf("AddString(%q): got %d words, want %d", tt.input, len(inst.Words), tt.words)
		}
		got, n := decodeString(inst.Words)
		if got != tt.input || n != tt.words {
			t.Errorf("decodeString: got %q (%d words), want %q (%d words)", got, n, tt.input, tt.words)
		}
	}
}

func TestInstruction_Encode(t *testing.T) {
	inst := Instruction{Opcode: ir.OpTypeInt, Words: []uint32{1, 32, 1}}
	words := inst.Encode()
	if len(words) != 4 {
		t.Fatalf("got %d words, want 4", len(words))
	}
	if words[0] != 4<<16|uint32(ir.OpTypeInt) {
		t.Errorf("opcode word: got 0x%08X", words[0])
	}
}
