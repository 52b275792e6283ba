// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import "fmt"

// Opcode identifies an IR operation. Values follow SPIR-V numbering so the
// binary backend encodes them directly.
type Opcode uint16

const (
	OpNop              Opcode = 0
	OpUndef            Opcode = 1
	OpName             Opcode = 5
	OpMemberName       Opcode = 6
	OpExtInstImport    Opcode = 11
	OpExtInst          Opcode = 12
	OpMemoryModel      Opcode = 14
	OpEntryPoint       Opcode = 15
	OpExecutionMode    Opcode = 16
	OpCapability       Opcode = 17
	OpTypeVoid         Opcode = 19
	OpTypeBool         Opcode = 20
	OpTypeInt          Opcode = 21
	OpTypeFloat        Opcode = 22
	OpTypeVector       Opcode = 23
	OpTypeMatrix       Opcode = 24
	OpTypeImage        Opcode = 25
	OpTypeSampler      Opcode = 26
	OpTypeSampledImage Opcode = 27
	OpTypeArray        Opcode = 28
	OpTypeRuntimeArray Opcode = 29
	OpTypeStruct       Opcode = 30
	OpTypePointer      Opcode = 32
	OpTypeFunction     Opcode = 33

	OpConstantTrue      Opcode = 41
	OpConstantFalse     Opcode = 42
	OpConstant          Opcode = 43
	OpConstantComposite Opcode = 44
	OpConstantNull      Opcode = 46

	OpFunction          Opcode = 54
	OpFunctionParameter Opcode = 55
	OpFunctionEnd       Opcode = 56
	OpFunctionCall      Opcode = 57
	OpVariable          Opcode = 59
	OpLoad              Opcode = 61
	OpStore             Opcode = 62
	OpAccessChain       Opcode = 65
	OpArrayLength       Opcode = 68
	OpDecorate          Opcode = 71
	OpMemberDecorate    Opcode = 72

	OpVectorShuffle          Opcode = 79
	OpCompositeConstruct     Opcode = 80
	OpCompositeExtract       Opcode = 81
	OpCompositeInsert        Opcode = 82
	OpSampledImage           Opcode = 86
	OpImageSampleImplicitLod Opcode = 87
	OpImageSampleExplicitLod Opcode = 88
	OpImageFetch             Opcode = 95
	OpImageRead              Opcode = 98
	OpImageWrite             Opcode = 99

	OpConvertFToU Opcode = 109
	OpConvertFToS Opcode = 110
	OpConvertSToF Opcode = 111
	OpConvertUToF Opcode = 112
	OpBitcast     Opcode = 124

	OpSNegate           Opcode = 126
	OpFNegate           Opcode = 127
	OpIAdd              Opcode = 128
	OpFAdd              Opcode = 129
	OpISub              Opcode = 130
	OpFSub              Opcode = 131
	OpIMul              Opcode = 132
	OpFMul              Opcode = 133
	OpUDiv              Opcode = 134
	OpSDiv              Opcode = 135
	OpFDiv              Opcode = 136
	OpUMod              Opcode = 137
	OpSRem              Opcode = 138
	OpSMod              Opcode = 139
	OpFRem              Opcode = 140
	OpFMod              Opcode = 141
	OpVectorTimesScalar Opcode = 142
	OpMatrixTimesScalar Opcode = 143
	OpVectorTimesMatrix Opcode = 144
	OpMatrixTimesVector Opcode = 145
	OpMatrixTimesMatrix Opcode = 146
	OpDot               Opcode = 148

	OpAny                  Opcode = 154
	OpAll                  Opcode = 155
	OpLogicalEqual         Opcode = 164
	OpLogicalNotEqual      Opcode = 165
	OpLogicalOr            Opcode = 166
	OpLogicalAnd           Opcode = 167
	OpLogicalNot           Opcode = 168
	OpSelect               Opcode = 169
	OpIEqual               Opcode = 170
	OpINotEqual            Opcode = 171
	OpUGreaterThan         Opcode = 172
	OpSGreaterThan         Opcode = 173
	OpUGreaterThanEqual    Opcode = 174
	OpSGreaterThanEqual    Opcode = 175
	OpULessThan            Opcode = 176
	OpSLessThan            Opcode = 177
	OpULessThanEqual       Opcode = 178
	OpSLessThanEqual       Opcode = 179
	OpFOrdEqual            Opcode = 180
	OpFOrdNotEqual         Opcode = 182
	OpFOrdLessThan         Opcode = 184
	OpFOrdGreaterThan      Opcode = 186
	OpFOrdLessThanEqual    Opcode = 188
	OpFOrdGreaterThanEqual Opcode = 190

	OpDPdx   Opcode = 207
	OpDPdy   Opcode = 208
	OpFwidth Opcode = 209

	OpEmitVertex   Opcode = 218
	OpEndPrimitive Opcode = 219

	OpLoopMerge         Opcode = 246
	OpSelectionMerge    Opcode = 247
	OpLabel             Opcode = 248
	OpBranch            Opcode = 249
	OpBranchConditional Opcode = 250
	OpSwitch            Opcode = 251
	OpKill              Opcode = 252
	OpReturn            Opcode = 253
	OpReturnValue       Opcode = 254
	OpUnreachable       Opcode = 255
)

var opcodeNames = map[Opcode]string{
	OpNop: "OpNop", OpUndef: "OpUndef", OpName: "OpName", OpMemberName: "OpMemberName",
	OpExtInstImport: "OpExtInstImport", OpExtInst: "OpExtInst", OpMemoryModel: "OpMemoryModel",
	OpEntryPoint: "OpEntryPoint", OpExecutionMode: "OpExecutionMode", OpCapability: "OpCapability",
	OpTypeVoid: "OpTypeVoid", OpTypeBool: "OpTypeBool", OpTypeInt: "OpTypeInt", OpTypeFloat: "OpTypeFloat",
	OpTypeVector: "OpTypeVector", OpTypeMatrix: "OpTypeMatrix", OpTypeImage: "OpTypeImage",
	OpTypeSampler: "OpTypeSampler", OpTypeSampledImage: "OpTypeSampledImage", OpTypeArray: "OpTypeArray",
	OpTypeRuntimeArray: "OpTypeRuntimeArray", OpTypeStruct: "OpTypeStruct", OpTypePointer: "OpTypePointer",
	OpTypeFunction: "OpTypeFunction",
	OpConstantTrue: "OpConstantTrue", OpConstantFalse: "OpConstantFalse", OpConstant: "OpConstant",
	OpConstantComposite: "OpConstantComposite", OpConstantNull: "OpConstantNull",
	OpFunction: "OpFunction", OpFunctionParameter: "OpFunctionParameter", OpFunctionEnd: "OpFunctionEnd",
	OpFunctionCall: "OpFunctionCall", OpVariable: "OpVariable", OpLoad: "OpLoad", OpStore: "OpStore",
	OpAccessChain: "OpAccessChain", OpArrayLength: "OpArrayLength", OpDecorate: "OpDecorate", OpMemberDecorate: "OpMemberDecorate",
	OpVectorShuffle: "OpVectorShuffle", OpCompositeConstruct: "OpCompositeConstruct",
	OpCompositeExtract: "OpCompositeExtract", OpCompositeInsert: "OpCompositeInsert",
	OpSampledImage: "OpSampledImage", OpImageSampleImplicitLod: "OpImageSampleImplicitLod",
	OpImageSampleExplicitLod: "OpImageSampleExplicitLod", OpImageFetch: "OpImageFetch", OpImageRead: "OpImageRead", OpImageWrite: "OpImageWrite",
	OpConvertFToU: "OpConvertFToU", OpConvertFToS: "OpConvertFToS", OpConvertSToF: "OpConvertSToF",
	OpConvertUToF: "OpConvertUToF", OpBitcast: "OpBitcast",
	OpSNegate: "OpSNegate", OpFNegate: "OpFNegate", OpIAdd: "OpIAdd", OpFAdd: "OpFAdd", OpISub: "OpISub",
	OpFSub: "OpFSub", OpIMul: "OpIMul", OpFMul: "OpFMul", OpUDiv: "OpUDiv", OpSDiv: "OpSDiv", OpFDiv: "OpFDiv",
	OpUMod: "OpUMod", OpSRem: "OpSRem", OpSMod: "OpSMod", OpFRem: "OpFRem", OpFMod: "OpFMod",
	OpVectorTimesScalar: "OpVectorTimesScalar", OpMatrixTimesScalar: "OpMatrixTimesScalar",
	OpVectorTimesMatrix: "OpVectorTimesMatrix", OpMatrixTimesVector: "OpMatrixTimesVector",
	OpMatrixTimesMatrix: "OpMatrixTimesMatrix", OpDot: "OpDot",
	OpAny: "OpAny", OpAll: "OpAll", OpLogicalEqual: "OpLogicalEqual", OpLogicalNotEqual: "OpLogicalNotEqual",
	OpLogicalOr: "OpLogicalOr", OpLogicalAnd: "OpLogicalAnd", OpLogicalNot: "OpLogicalNot", OpSelect: "OpSelect",
	OpIEqual: "OpIEqual", OpINotEqual: "OpINotEqual", OpUGreaterThan: "OpUGreaterThan",
	OpSGreaterThan: "OpSGreaterThan", OpUGreaterThanEqual: "OpUGreaterThanEqual",
	OpSGreaterThanEqual: "OpSGreaterThanEqual", OpULessThan: "OpULessThan", OpSLessThan: "OpSLessThan",
	OpULessThanEqual: "OpULessThanEqual", OpSLessThanEqual: "OpSLessThanEqual", OpFOrdEqual: "OpFOrdEqual",
	OpFOrdNotEqual: "OpFOrdNotEqual", OpFOrdLessThan: "OpFOrdLessThan", OpFOrdGreaterThan: "OpFOrdGreaterThan",
	OpFOrdLessThanEqual: "OpFOrdLessThanEqual", OpFOrdGreaterThanEqual: "OpFOrdGreaterThanEqual",
	OpDPdx: "OpDPdx", OpDPdy: "OpDPdy", OpFwidth: "OpFwidth",
	OpEmitVertex: "OpEmitVertex", OpEndPrimitive: "OpEndPrimitive",
	OpLoopMerge: "OpLoopMerge", OpSelectionMerge: "OpSelectionMerge", OpLabel: "OpLabel", OpBranch: "OpBranch",
	OpBranchConditional: "OpBranchConditional", OpSwitch: "OpSwitch", OpKill: "OpKill", OpReturn: "OpReturn",
	OpReturnValue: "OpReturnValue", OpUnreachable: "OpUnreachable",
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint16(op))
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBranch, OpBranchConditional, OpSwitch, OpKill, OpReturn, OpReturnValue, OpUnreachable:
		return true
	}
	return false
}

// HasResult reports whether ops with this opcode produce a result id.
func (op Opcode) HasResult() bool {
	switch op {
	case OpStore, OpImageWrite, OpEmitVertex, OpEndPrimitive, OpLoopMerge, OpSelectionMerge, OpNop:
		return false
	}
	return !op.IsTerminator()
}

// minOperands is the smallest operand count each opcode accepts.
var minOperands = map[Opcode]int{
	OpLoad:                   1,
	OpStore:                  2,
	OpAccessChain:            1,
	OpArrayLength:            2,
	OpFunctionCall:           1,
	OpCompositeExtract:       2,
	OpCompositeInsert:        3,
	OpVectorShuffle:          2,
	OpExtInst:                2,
	OpSampledImage:           2,
	OpImageSampleImplicitLod: 2,
	OpImageSampleExplicitLod: 4,
	OpImageFetch:             2,
	OpImageRead:              2,
	OpImageWrite:             3,
	OpBranch:                 1,
	OpBranchConditional:      3,
	OpSelectionMerge:         2,
	OpLoopMerge:              3,
	OpReturnValue:            1,
	OpSelect:                 3,
	OpDot:                    2,
}

// MinOperands returns the smallest operand count op accepts.
func (op Opcode) MinOperands() int {
	return minOperands[op]
}
