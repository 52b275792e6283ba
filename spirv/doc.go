// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spirv emits SPIR-V binary modules from fragc IR.
//
// Each generated entry point becomes one standalone module. The backend
// walks the closure reachable from the entry point's wrapper function and
// declares types, constants, globals and functions on first reference, so
// libraries shared by many entry points are emitted only in the parts
// each one uses:
//
//	data, err := spirv.Compile(info.Library, info.EntryPoint, spirv.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Decorations come from the entry point's decoration block, so a
// fragment's resources carry the bindings chosen for that entry point.
// Calls to late-bound declarations, such as geometry stream appends,
// resolve to the implementation bound on the entry point.
//
// # Binary Writer
//
// ModuleBuilder collects instructions per logical layout section and
// concatenates them in the order SPIR-V requires:
//
//	builder := spirv.NewModuleBuilder(spirv.Version1_3)
//	builder.AddCapability(ir.CapabilityShader)
//	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//	binary := builder.Build()
//
// Decode and Disassemble turn a module back into instructions or text.
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
