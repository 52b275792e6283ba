// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/settings"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"450", Version450},
		{"4.50", Version450},
		{"4.5", Version450},
		{"1.20", Version120},
		{"3.3", Version330},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVersion(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	_, err := ParseVersion("core")
	assert.Error(t, err)
}

func TestVersionText(t *testing.T) {
	assert.Equal(t, "4.50", Version450.String())
	assert.Equal(t, 450, Version450.Number())
	assert.Equal(t, "#version 450 core", Version450.Directive())
	assert.Equal(t, "#version 120", Version120.Directive())
	assert.True(t, Version{}.IsZero())
}

func TestConfiguredVersions(t *testing.T) {
	set := settings.Default()
	set.GLSLVersions = []string{"4.50", "1.20", "3.30"}
	versions, err := Versions(set)
	require.NoError(t, err)
	assert.Equal(t, []Version{Version120, Version330, Version450}, versions)
}

func TestPolicyFor(t *testing.T) {
	_, err := policyFor(Version{Major: 1, Minor: 10})
	assert.Error(t, err)

	legacy, err := policyFor(Version120)
	require.NoError(t, err)
	assert.False(t, legacy.supports(ir.StageGeometry))
	assert.Equal(t, "attribute", legacy.inputQualifier(ir.StageVertex))
	assert.Equal(t, "varying", legacy.inputQualifier(ir.StagePixel))
	assert.Equal(t, "gl_FragData[2]", legacy.renderTarget(2))

	modern, err := policyFor(Version330)
	require.NoError(t, err)
	assert.True(t, modern.supports(ir.StageGeometry))
	assert.False(t, modern.supports(ir.StageCompute))
	assert.True(t, modern.locations())
	assert.False(t, modern.bindings())

	latest, err := policyFor(Version450)
	require.NoError(t, err)
	assert.True(t, latest.supports(ir.StageCompute))
	assert.True(t, latest.storage())
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "vert", Extension(ir.StageVertex))
	assert.Equal(t, "frag", Extension(ir.StagePixel))
	assert.Equal(t, "geom", Extension(ir.StageGeometry))
	assert.Equal(t, "comp", Extension(ir.StageCompute))
}

func TestEscapeKeyword(t *testing.T) {
	assert.Equal(t, "_input", escapeKeyword("input"))
	assert.Equal(t, "_texture", escapeKeyword("texture"))
	assert.Equal(t, "_gl_Custom", escapeKeyword("gl_Custom"))
	assert.Equal(t, "_unnamed", escapeKeyword(""))
	assert.Equal(t, "Position", escapeKeyword("Position"))
	assert.Equal(t, "_sampler2D", escapeKeyword("sampler2D"), "reserved words come from the GLSL keyword table")
	assert.Equal(t, "_precision", escapeKeyword("precision"))
}

func TestNamerSuffixesDuplicates(t *testing.T) {
	n := newNamer("self")
	assert.Equal(t, "self_1", n.call("self"))
	assert.Equal(t, "x", n.call("x"))
	assert.Equal(t, "x_1", n.call("x"), "suffixes count per base name")
	assert.Equal(t, "x_2", n.call("x"))
	assert.Equal(t, "x_1_1", n.call("x_1"))
	assert.Equal(t, "_float", n.call("float"))
	assert.Equal(t, "_float_1", n.call("float"))
}
