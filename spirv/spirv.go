// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
)

// Version is a SPIR-V version. Only 1.x exists.
type Version struct {
	Major uint8
	Minor uint8
}

var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// ParseVersion parses "1.3" style versions between 1.0 and 1.6.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("spirv: invalid version %q: %w", s, err)
	}
	v := Version{Major: uint8(sv.Major()), Minor: uint8(sv.Minor())}
	if sv.Major() != 1 || sv.Minor() > 6 || sv.Patch() != 0 {
		return Version{}, fmt.Errorf("spirv: unsupported version %s", v)
	}
	return v, nil
}

// Options configures SPIR-V generation.
type Options struct {
	// Version is the target version. Storage buffers need 1.3.
	Version Version

	// Debug emits OpName and OpMemberName for named values.
	Debug bool

	// Validation runs the IR validator before emission.
	Validation bool

	Logger *slog.Logger
}

// DefaultOptions targets SPIR-V 1.3 with debug names and validation.
func DefaultOptions() Options {
	return Options{Version: Version1_3, Debug: true, Validation: true}
}

const (
	// MagicNumber starts every module, in host byte order.
	MagicNumber = 0x07230203
	// GeneratorID is the unregistered tool id.
	GeneratorID = 0
)

type (
	AddressingModel uint32
	MemoryModel     uint32
)

// Every module is Logical addressing over the GLSL450 memory model.
const (
	AddressingModelLogical AddressingModel = 0
	MemoryModelGLSL450     MemoryModel     = 1
)

// Sampled operand of OpTypeImage.
const (
	imageSampled = 1
	imageStorage = 2
)
