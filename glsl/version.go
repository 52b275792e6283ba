// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"

	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/settings"
)

// Version is a desktop GLSL language version.
type Version struct {
	Major uint8
	Minor uint8
}

// Supported versions.
var (
	Version120 = Version{Major: 1, Minor: 20} // OpenGL 2.1
	Version150 = Version{Major: 1, Minor: 50} // OpenGL 3.2 Core
	Version330 = Version{Major: 3, Minor: 30} // OpenGL 3.3 Core
	Version420 = Version{Major: 4, Minor: 20} // OpenGL 4.2
	Version430 = Version{Major: 4, Minor: 30} // OpenGL 4.3 (compute shaders)
	Version450 = Version{Major: 4, Minor: 50} // OpenGL 4.5
)

// Number returns the numeric version used by #version, e.g. 450.
func (v Version) Number() int {
	return int(v.Major)*100 + int(v.Minor)
}

// String returns the dotted version, e.g. "4.50".
func (v Version) String() string {
	return fmt.Sprintf("%d.%02d", v.Major, v.Minor)
}

// Directive returns the #version line.
func (v Version) Directive() string {
	if v.Number() >= 150 {
		return fmt.Sprintf("#version %d core", v.Number())
	}
	return fmt.Sprintf("#version %d", v.Number())
}

// IsZero reports whether v is unset.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// atLeast reports whether v is number or later.
func (v Version) atLeast(number int) bool {
	return v.Number() >= number
}

// ParseVersion parses "1.20", "4.5" or "450".
func ParseVersion(s string) (Version, error) {
	if n, err := strconv.Atoi(s); err == nil && n >= 100 {
		return Version{Major: uint8(n / 100), Minor: uint8(n % 100)}, nil
	}
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("glsl: invalid version %q: %w", s, err)
	}
	return FromSemver(sv), nil
}

// FromSemver converts a parsed settings version. A single digit minor
// version is read as tens, so 4.5 is 4.50.
func FromSemver(sv *semver.Version) Version {
	minor := sv.Minor()
	if minor < 10 {
		minor *= 10
	}
	return Version{Major: uint8(sv.Major()), Minor: uint8(minor)}
}

// Versions returns the textual targets configured in set, ascending.
func Versions(set *settings.Settings) ([]Version, error) {
	raw, err := set.Versions()
	if err != nil {
		return nil, err
	}
	out := make([]Version, len(raw))
	for i, sv := range raw {
		out[i] = FromSemver(sv)
	}
	return out, nil
}

// Extension returns the conventional file extension of a stage's source.
func Extension(stage ir.Stage) string {
	switch stage {
	case ir.StagePixel:
		return "frag"
	case ir.StageGeometry:
		return "geom"
	case ir.StageCompute:
		return "comp"
	default:
		return "vert"
	}
}
