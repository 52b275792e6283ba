// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl emits readable GLSL source for one entry-point type and
// stage.
//
// The textual backend works from the same checked syntax and interface
// Collection as the binary backend, but writes text instead of IR: a
// CopyInputs and a CopyOutputs function, a main that calls them around the
// user Main, and global declarations for every interface field.
//
// # Versions
//
// Differences between GLSL versions are held by small policy objects chosen
// once per compile:
//
//   - 1.20 (legacy): attribute/varying, gl_FragData, plain uniforms, no
//     geometry stage.
//   - 1.50 and later (modern): in/out interface blocks, std140 uniform
//     blocks and geometry shaders. Explicit locations from 3.30, explicit
//     bindings from 4.20, compute and storage resources from 4.30.
//
// # Geometry
//
// The binary backend binds the output stream's Append to a generated
// function after translation. Text has no late binding, so the geometry
// stage gets per-vertex CloneVertex_<T>, WriteVertex_<T> and Append_<T>
// helpers instead.
//
// # Reserved Words
//
// Identifiers that collide with GLSL reserved words or the gl_ prefix are
// escaped with a leading underscore.
package glsl
