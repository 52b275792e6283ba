// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Stage represents a shader stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StagePixel
	StageGeometry
	StageCompute
)

// Stages lists every stage in declaration order.
var Stages = []Stage{StageVertex, StagePixel, StageGeometry, StageCompute}

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StagePixel:
		return "Pixel"
	case StageGeometry:
		return "Geometry"
	case StageCompute:
		return "Compute"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// ParseStage parses a stage name case-insensitively.
// "fragment" is accepted as an alias for the pixel stage.
func ParseStage(name string) (Stage, error) {
	switch strings.ToLower(name) {
	case "vertex":
		return StageVertex, nil
	case "pixel", "fragment":
		return StagePixel, nil
	case "geometry":
		return StageGeometry, nil
	case "compute":
		return StageCompute, nil
	}
	return 0, fmt.Errorf("unknown shader stage %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	stage, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = stage
	return nil
}

// ExecutionModel returns the execution model word for the stage.
func (s Stage) ExecutionModel() ExecutionModel {
	switch s {
	case StagePixel:
		return ExecutionModelFragment
	case StageGeometry:
		return ExecutionModelGeometry
	case StageCompute:
		return ExecutionModelGLCompute
	default:
		return ExecutionModelVertex
	}
}

// ExecutionModel represents an entry point execution model.
type ExecutionModel uint32

const (
	ExecutionModelVertex    ExecutionModel = 0
	ExecutionModelGeometry  ExecutionModel = 3
	ExecutionModelFragment  ExecutionModel = 4
	ExecutionModelGLCompute ExecutionModel = 5
)

// StorageClass represents where a pointer's storage lives.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

// String returns the storage class name.
func (sc StorageClass) String() string {
	switch sc {
	case StorageClassUniformConstant:
		return "UniformConstant"
	case StorageClassInput:
		return "Input"
	case StorageClassUniform:
		return "Uniform"
	case StorageClassOutput:
		return "Output"
	case StorageClassWorkgroup:
		return "Workgroup"
	case StorageClassPrivate:
		return "Private"
	case StorageClassFunction:
		return "Function"
	case StorageClassPushConstant:
		return "PushConstant"
	case StorageClassStorageBuffer:
		return "StorageBuffer"
	default:
		return fmt.Sprintf("StorageClass(%d)", uint32(sc))
	}
}

// BuiltIn identifies a hardware-defined interface value.
type BuiltIn uint32

const (
	BuiltInPosition             BuiltIn = 0
	BuiltInPointSize            BuiltIn = 1
	BuiltInVertexID             BuiltIn = 5
	BuiltInInstanceID           BuiltIn = 6
	BuiltInPrimitiveID          BuiltIn = 7
	BuiltInInvocationID         BuiltIn = 8
	BuiltInLayer                BuiltIn = 9
	BuiltInFragCoord            BuiltIn = 15
	BuiltInPointCoord           BuiltIn = 16
	BuiltInFrontFacing          BuiltIn = 17
	BuiltInSampleID             BuiltIn = 18
	BuiltInFragDepth            BuiltIn = 22
	BuiltInNumWorkgroups        BuiltIn = 24
	BuiltInWorkgroupID          BuiltIn = 26
	BuiltInLocalInvocationID    BuiltIn = 27
	BuiltInGlobalInvocationID   BuiltIn = 28
	BuiltInLocalInvocationIndex BuiltIn = 29
	BuiltInVertexIndex          BuiltIn = 42
	BuiltInInstanceIndex        BuiltIn = 43
)

var builtInNames = map[BuiltIn]string{
	BuiltInPosition:             "Position",
	BuiltInPointSize:            "PointSize",
	BuiltInVertexID:             "VertexId",
	BuiltInInstanceID:           "InstanceId",
	BuiltInPrimitiveID:          "PrimitiveId",
	BuiltInInvocationID:         "InvocationId",
	BuiltInLayer:                "Layer",
	BuiltInFragCoord:            "FragCoord",
	BuiltInPointCoord:           "PointCoord",
	BuiltInFrontFacing:          "FrontFacing",
	BuiltInSampleID:             "SampleId",
	BuiltInFragDepth:            "FragDepth",
	BuiltInNumWorkgroups:        "NumWorkgroups",
	BuiltInWorkgroupID:          "WorkgroupId",
	BuiltInLocalInvocationID:    "LocalInvocationId",
	BuiltInGlobalInvocationID:   "GlobalInvocationId",
	BuiltInLocalInvocationIndex: "LocalInvocationIndex",
	BuiltInVertexIndex:          "VertexIndex",
	BuiltInInstanceIndex:        "InstanceIndex",
}

// String returns the built-in name.
func (b BuiltIn) String() string {
	if name, ok := builtInNames[b]; ok {
		return name
	}
	return fmt.Sprintf("BuiltIn(%d)", uint32(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b BuiltIn) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BuiltIn) UnmarshalText(text []byte) error {
	for value, name := range builtInNames {
		if strings.EqualFold(name, string(text)) {
			*b = value
			return nil
		}
	}
	return fmt.Errorf("unknown built-in %q", text)
}

// Capability represents a capability the consumer must support.
type Capability uint32

const (
	CapabilityMatrix   Capability = 0
	CapabilityShader   Capability = 1
	CapabilityGeometry Capability = 2
	CapabilityFloat64  Capability = 10
)

// ExecutionMode represents an entry point execution mode.
type ExecutionMode uint32

const (
	ExecutionModeInvocations         ExecutionMode = 0
	ExecutionModeOriginUpperLeft     ExecutionMode = 7
	ExecutionModeLocalSize           ExecutionMode = 17
	ExecutionModeInputPoints         ExecutionMode = 19
	ExecutionModeInputLines          ExecutionMode = 20
	ExecutionModeTriangles           ExecutionMode = 22
	ExecutionModeOutputVertices      ExecutionMode = 26
	ExecutionModeOutputPoints        ExecutionMode = 27
	ExecutionModeOutputLineStrip     ExecutionMode = 28
	ExecutionModeOutputTriangleStrip ExecutionMode = 29
)

// ExecutionModeInfo is an execution mode with its literal parameters.
type ExecutionModeInfo struct {
	Mode   ExecutionMode
	Params []uint32
}

// EntryPoint is a stage wrapper function with everything the binary backend
// needs to emit it as a standalone module.
type EntryPoint struct {
	Name           string
	Stage          Stage
	Function       *Function
	Interface      []*GlobalVariable
	Capabilities   []Capability
	ExecutionModes []ExecutionModeInfo
	Decorations    *DecorationSet

	// Bindings supplies bodies for late-bound function declarations
	// reachable from this entry point.
	Bindings map[*Function]*Function
}

// Bind supplies the implementation of a late-bound declaration.
func (ep *EntryPoint) Bind(decl, impl *Function) {
	if ep.Bindings == nil {
		ep.Bindings = make(map[*Function]*Function)
	}
	ep.Bindings[decl] = impl
}

// Resolve returns the function that calls to f execute at this entry point.
func (ep *EntryPoint) Resolve(f *Function) *Function {
	if impl, ok := ep.Bindings[f]; ok {
		return impl
	}
	return f
}

// AddCapability records a capability once.
func (ep *EntryPoint) AddCapability(c Capability) {
	for _, existing := range ep.Capabilities {
		if existing == c {
			return
		}
	}
	ep.Capabilities = append(ep.Capabilities, c)
}

// AddExecutionMode records an execution mode.
func (ep *EntryPoint) AddExecutionMode(mode ExecutionMode, params ...uint32) {
	ep.ExecutionModes = append(ep.ExecutionModes, ExecutionModeInfo{Mode: mode, Params: params})
}

// ExtInstSet is an imported extended instruction set.
type ExtInstSet struct {
	Name string
}

func (*ExtInstSet) value() {}

// GLSLStd450 is the name of the standard math instruction set.
const GLSLStd450 = "GLSL.std.450"

// ErrDependencyCycle is returned when a library would depend on itself.
var ErrDependencyCycle = errors.New("library depends on itself")

// ErrNilDependency is returned when a nil dependency library is supplied.
var ErrNilDependency = errors.New("nil dependency library")

// Library owns every IR entity created while translating one unit of
// shader source. Dependency libraries are referenced, never owned.
type Library struct {
	Name string

	Types       []*Type
	Constants   []*Constant
	Globals     []*GlobalVariable
	Functions   []*Function
	EntryPoints []*EntryPoint

	deps []*Library

	typeByKey    map[string]*Type
	typeByName   map[string]*Type
	pointerTypes map[pointerKey]*Type
	constByKey   map[string]*Constant
	funcByKey    map[FunctionKey]*Function
	extInstSets  map[string]*ExtInstSet
}

type pointerKey struct {
	pointee *Type
	class   StorageClass
}

// NewLibrary creates an empty library over already-built dependencies.
// It fails when a dependency is nil or when the dependency graph reaches a
// library with the same name.
func NewLibrary(name string, deps ...*Library) (*Library, error) {
	for _, dep := range deps {
		if dep == nil {
			return nil, fmt.Errorf("library %s: %w", name, ErrNilDependency)
		}
	}
	visited := make(map[*Library]bool)
	var walk func(l *Library) error
	walk = func(l *Library) error {
		if visited[l] {
			return nil
		}
		visited[l] = true
		if l.Name == name {
			return fmt.Errorf("library %s: %w", name, ErrDependencyCycle)
		}
		for _, d := range l.deps {
			if err := walk(d); err != nil {
				return err
			}
		}
		return nil
	}
	for _, dep := range deps {
		if err := walk(dep); err != nil {
			return nil, err
		}
	}

	return &Library{
		Name:         name,
		deps:         deps,
		typeByKey:    make(map[string]*Type),
		typeByName:   make(map[string]*Type),
		pointerTypes: make(map[pointerKey]*Type),
		constByKey:   make(map[string]*Constant),
		funcByKey:    make(map[FunctionKey]*Function),
		extInstSets:  make(map[string]*ExtInstSet),
	}, nil
}

// Dependencies returns the dependency libraries in registration order.
func (l *Library) Dependencies() []*Library {
	return l.deps
}

// visit calls fn for this library and then every dependency depth first,
// stopping when fn returns true.
func (l *Library) visit(fn func(*Library) bool) bool {
	if fn(l) {
		return true
	}
	for _, dep := range l.deps {
		if dep.visit(fn) {
			return true
		}
	}
	return false
}

// ExtInstImport returns the extended instruction set with the given name.
func (l *Library) ExtInstImport(name string) *ExtInstSet {
	var found *ExtInstSet
	l.visit(func(lib *Library) bool {
		found = lib.extInstSets[name]
		return found != nil
	})
	if found != nil {
		return found
	}
	set := &ExtInstSet{Name: name}
	l.extInstSets[name] = set
	return set
}

// AddEntryPoint registers an entry point.
func (l *Library) AddEntryPoint(ep *EntryPoint) {
	if ep.Decorations == nil {
		ep.Decorations = NewDecorationSet()
	}
	l.EntryPoints = append(l.EntryPoints, ep)
}

// EntryPoint returns the entry point with the given name and stage.
func (l *Library) EntryPoint(name string, stage Stage) *EntryPoint {
	for _, ep := range l.EntryPoints {
		if ep.Name == name && ep.Stage == stage {
			return ep
		}
	}
	return nil
}

// Reachable returns every function called, directly or transitively, from
// the entry point's wrapper, including the wrapper. Late-bound declarations
// appear once; the bodies bound to them are followed.
func (ep *EntryPoint) Reachable() []*Function {
	var order []*Function
	seen := make(map[*Function]bool)
	var walk func(f *Function)
	walk = func(f *Function) {
		if f == nil || seen[f] {
			return
		}
		seen[f] = true
		order = append(order, f)
		if impl := ep.Bindings[f]; impl != nil {
			walk(impl)
		}
		for _, b := range f.Blocks {
			for _, op := range b.Ops {
				if op.Opcode != OpFunctionCall {
					continue
				}
				if callee, ok := op.Operands[0].(*Function); ok {
					walk(callee)
				}
			}
		}
	}
	walk(ep.Function)
	return order
}
