// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package ir defines the binary intermediate representation of fragc.
//
// The IR mirrors the shape of GPU bytecode: a Library owns types, constants,
// global variables and functions; functions own basic blocks; blocks own
// operations. Opcodes, storage classes, decorations and built-ins use SPIR-V
// numbering so the binary backend is a direct encoding.
//
// # Structure
//
//   - Types: interned structural types plus named struct types. Every value
//     type may have one pointer variant per storage class.
//   - Constants: interned by (kind, type, value).
//   - GlobalVariables: module-scope variables (inputs, outputs, uniforms,
//     resources).
//   - Functions: interned by FunctionKey; a function created as a shell may
//     receive its body later (late binding).
//   - EntryPoints: stage wrappers with interface lists, execution modes and
//     their own decoration blocks.
//
// # Construction
//
// Blocks are built incrementally and may be left open while control flow is
// still being decided. FinalizeBlocks closes every open block with a return,
// after which Validate checks the structural rules.
//
// # Dependencies
//
// A Library may reference already-translated dependency libraries. Lookups
// search the local library first, then each dependency in registration
// order. Dependencies are never mutated: pointer variants and interned types
// requested through a library are created in that library.
package ir
