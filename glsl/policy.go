// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/fragc/ir"
)

// policy answers every version dependent question the generator asks.
// It is chosen once per compile and registers its version specific text
// resolvers up front.
type policy interface {
	// supports reports whether the version can express stage.
	supports(stage ir.Stage) bool

	// inputQualifier and outputQualifier return the storage qualifier of
	// user stage inputs and outputs in stage.
	inputQualifier(stage ir.Stage) string
	outputQualifier(stage ir.Stage) string

	// interfaceBlocks reports whether stage inputs and outputs are
	// grouped into in/out blocks rather than declared as varyings.
	interfaceBlocks() bool
	// uniformBlocks reports whether uniform buffers are std140 blocks
	// rather than loose uniforms.
	uniformBlocks() bool
	// locations reports whether vertex inputs and pixel outputs carry
	// layout(location) qualifiers.
	locations() bool
	// bindings reports whether blocks and samplers carry
	// layout(binding) qualifiers.
	bindings() bool
	// integerVaryings reports whether integer values may cross a stage
	// interface.
	integerVaryings() bool
	// storage reports whether storage buffers and images are available.
	storage() bool

	// renderTarget returns the variable written for pixel output slot
	// index, or "" when outputs are declared variables.
	renderTarget(index int) string

	// register installs the version specific text resolvers.
	register(r *registry)
}

// policyFor returns the policy of v.
func policyFor(v Version) (policy, error) {
	switch {
	case v.Number() < 120:
		return nil, fmt.Errorf("glsl: version %s is not supported (minimum 1.20)", v)
	case v.Number() < 150:
		return legacyPolicy{}, nil
	default:
		return modernPolicy{version: v}, nil
	}
}

// legacyPolicy targets GLSL 1.20.
type legacyPolicy struct{}

func (legacyPolicy) supports(stage ir.Stage) bool {
	return stage == ir.StageVertex || stage == ir.StagePixel
}

func (legacyPolicy) inputQualifier(stage ir.Stage) string {
	if stage == ir.StageVertex {
		return "attribute"
	}
	return "varying"
}

func (legacyPolicy) outputQualifier(ir.Stage) string { return "varying" }
func (legacyPolicy) interfaceBlocks() bool           { return false }
func (legacyPolicy) uniformBlocks() bool             { return false }
func (legacyPolicy) locations() bool                 { return false }
func (legacyPolicy) bindings() bool                  { return false }
func (legacyPolicy) integerVaryings() bool           { return false }
func (legacyPolicy) storage() bool                   { return false }

func (legacyPolicy) renderTarget(index int) string {
	return fmt.Sprintf("gl_FragData[%d]", index)
}

func (legacyPolicy) register(r *registry) {
	r.sampling("texture2D", "texture2DLod")
	r.addStatic(mathOwner, "Round", func(_ *funcWriter, _ string, args []string) string {
		return "floor(" + args[0] + " + 0.5)"
	})
}

// modernPolicy targets GLSL 1.50 and later.
type modernPolicy struct {
	version Version
}

func (p modernPolicy) supports(stage ir.Stage) bool {
	if stage == ir.StageCompute {
		return p.version.atLeast(430)
	}
	return true
}

func (modernPolicy) inputQualifier(ir.Stage) string  { return "in" }
func (modernPolicy) outputQualifier(ir.Stage) string { return "out" }
func (modernPolicy) interfaceBlocks() bool           { return true }
func (modernPolicy) uniformBlocks() bool             { return true }
func (p modernPolicy) locations() bool               { return p.version.atLeast(330) }
func (p modernPolicy) bindings() bool                { return p.version.atLeast(420) }
func (modernPolicy) integerVaryings() bool           { return true }
func (p modernPolicy) storage() bool                 { return p.version.atLeast(430) }
func (modernPolicy) renderTarget(int) string         { return "" }

func (modernPolicy) register(r *registry) {
	r.sampling("texture", "textureLod")
	r.addStatic(mathOwner, "Round", direct("round"))
}
