// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package settings holds the compiler configuration: attribute names,
// per-stage built-in tables, uniform buffer descriptions, vertex definitions
// and render targets. Defaults are returned by Default; Load overlays a TOML
// file on top of them.
package settings

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/fragc/ir"
)

// AttributeNames lists the attribute names the compiler recognizes.
type AttributeNames struct {
	Vertex   string `toml:"vertex"`
	Pixel    string `toml:"pixel"`
	Geometry string `toml:"geometry"`
	Compute  string `toml:"compute"`

	StageInput            string `toml:"stage-input"`
	StageOutput           string `toml:"stage-output"`
	HardwareBuiltInInput  string `toml:"hardware-builtin-input"`
	HardwareBuiltInOutput string `toml:"hardware-builtin-output"`
	AppBuiltInInput       string `toml:"app-builtin-input"`
	PropertyInput         string `toml:"property-input"`

	Main string `toml:"main"`
}

// Stage returns the attribute name marking a type as an entry point of stage.
func (a AttributeNames) Stage(stage ir.Stage) string {
	switch stage {
	case ir.StagePixel:
		return a.Pixel
	case ir.StageGeometry:
		return a.Geometry
	case ir.StageCompute:
		return a.Compute
	default:
		return a.Vertex
	}
}

// BuiltIn describes one hardware built-in available to a stage.
type BuiltIn struct {
	// Name and Type form the field key user fields must match.
	Name string `toml:"name"`
	Type string `toml:"type"`

	// BuiltIn is the binary built-in decoration value.
	BuiltIn ir.BuiltIn `toml:"builtin"`

	// GLSLName is the textual backend's variable, e.g. gl_Position.
	GLSLName string `toml:"glsl"`

	// Output marks built-ins written by the stage.
	Output bool `toml:"output,omitempty"`
}

// BuiltInTables holds the built-in descriptions for each stage.
type BuiltInTables struct {
	Vertex   []BuiltIn `toml:"vertex"`
	Pixel    []BuiltIn `toml:"pixel"`
	Geometry []BuiltIn `toml:"geometry"`
	Compute  []BuiltIn `toml:"compute"`
}

// For returns the table of stage.
func (t BuiltInTables) For(stage ir.Stage) []BuiltIn {
	switch stage {
	case ir.StagePixel:
		return t.Pixel
	case ir.StageGeometry:
		return t.Geometry
	case ir.StageCompute:
		return t.Compute
	default:
		return t.Vertex
	}
}

func (t *BuiltInTables) ref(stage ir.Stage) *[]BuiltIn {
	switch stage {
	case ir.StagePixel:
		return &t.Pixel
	case ir.StageGeometry:
		return &t.Geometry
	case ir.StageCompute:
		return &t.Compute
	default:
		return &t.Vertex
	}
}

// Find looks up a built-in by field key and direction for stage.
func (t BuiltInTables) Find(stage ir.Stage, name, typ string, output bool) (BuiltIn, bool) {
	for _, b := range t.For(stage) {
		if b.Name == name && b.Type == typ && b.Output == output {
			return b, true
		}
	}
	return BuiltIn{}, false
}

// UniformField is one member of a uniform buffer description.
type UniformField struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// UniformBuffer describes an application-provided uniform buffer.
type UniformBuffer struct {
	Name          string         `toml:"name"`
	Binding       uint32         `toml:"binding"`
	DescriptorSet uint32         `toml:"descriptor-set"`
	Fields        []UniformField `toml:"fields"`

	// Stages restricts the buffer to the listed stages. Empty means all.
	Stages []ir.Stage `toml:"stages,omitempty"`
}

// AllowedIn reports whether the buffer may be used by stage.
func (u UniformBuffer) AllowedIn(stage ir.Stage) bool {
	return len(u.Stages) == 0 || slices.Contains(u.Stages, stage)
}

// FieldIndex returns the index of the field with the given key, or -1.
func (u UniformBuffer) FieldIndex(name, typ string) int {
	for i, f := range u.Fields {
		if f.Name == name && f.Type == typ {
			return i
		}
	}
	return -1
}

// MaterialBuffer describes the fallback buffer holding property inputs that
// match no uniform buffer description.
type MaterialBuffer struct {
	Name          string `toml:"name"`
	Binding       uint32 `toml:"binding"`
	DescriptorSet uint32 `toml:"descriptor-set"`

	// Offsets shifts the binding per stage so stages sharing one binding
	// space do not collide. Keys are stage names.
	Offsets map[string]uint32 `toml:"offsets"`
}

// BindingFor returns the material buffer binding for stage.
func (m MaterialBuffer) BindingFor(stage ir.Stage) uint32 {
	return m.Binding + m.Offsets[stage.String()]
}

// VertexDefinition assigns a fixed location to a vertex attribute.
type VertexDefinition struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"`
	Location uint32 `toml:"location"`
}

// Settings is the full compiler configuration.
type Settings struct {
	Attributes        AttributeNames     `toml:"attributes"`
	BuiltIns          BuiltInTables      `toml:"builtins"`
	UniformBuffers    []UniformBuffer    `toml:"uniform-buffers"`
	MaterialBuffer    MaterialBuffer     `toml:"material-buffer"`
	VertexDefinitions []VertexDefinition `toml:"vertex-definitions"`
	RenderTargets     []string           `toml:"render-targets"`

	// GLSLVersions lists the textual targets, e.g. "1.20" or "4.50".
	GLSLVersions []string `toml:"glsl-versions"`

	// DefaultLocalSize is the compute workgroup size used when the compute
	// attribute omits it.
	DefaultLocalSize [3]uint32 `toml:"default-local-size"`
}

// Default returns the built-in configuration.
func Default() *Settings {
	return &Settings{
		Attributes: AttributeNames{
			Vertex:                "Vertex",
			Pixel:                 "Pixel",
			Geometry:              "Geometry",
			Compute:               "Compute",
			StageInput:            "StageInput",
			StageOutput:           "StageOutput",
			HardwareBuiltInInput:  "HardwareBuiltInInput",
			HardwareBuiltInOutput: "HardwareBuiltInOutput",
			AppBuiltInInput:       "AppBuiltInInput",
			PropertyInput:         "PropertyInput",
			Main:                  "Main",
		},
		BuiltIns: BuiltInTables{
			Vertex: []BuiltIn{
				{Name: "VertexId", Type: "Integer", BuiltIn: ir.BuiltInVertexIndex, GLSLName: "gl_VertexID"},
				{Name: "InstanceId", Type: "Integer", BuiltIn: ir.BuiltInInstanceIndex, GLSLName: "gl_InstanceID"},
				{Name: "Position", Type: "Real4", BuiltIn: ir.BuiltInPosition, GLSLName: "gl_Position", Output: true},
				{Name: "PointSize", Type: "Real", BuiltIn: ir.BuiltInPointSize, GLSLName: "gl_PointSize", Output: true},
			},
			Pixel: []BuiltIn{
				{Name: "PixelPosition", Type: "Real4", BuiltIn: ir.BuiltInFragCoord, GLSLName: "gl_FragCoord"},
				{Name: "IsFrontFacing", Type: "Boolean", BuiltIn: ir.BuiltInFrontFacing, GLSLName: "gl_FrontFacing"},
				{Name: "PrimitiveId", Type: "Integer", BuiltIn: ir.BuiltInPrimitiveID, GLSLName: "gl_PrimitiveID"},
				{Name: "PixelDepth", Type: "Real", BuiltIn: ir.BuiltInFragDepth, GLSLName: "gl_FragDepth", Output: true},
			},
			Geometry: []BuiltIn{
				{Name: "PrimitiveId", Type: "Integer", BuiltIn: ir.BuiltInPrimitiveID, GLSLName: "gl_PrimitiveIDIn"},
				{Name: "InvocationId", Type: "Integer", BuiltIn: ir.BuiltInInvocationID, GLSLName: "gl_InvocationID"},
				{Name: "Position", Type: "Real4", BuiltIn: ir.BuiltInPosition, GLSLName: "gl_Position", Output: true},
				{Name: "PrimitiveId", Type: "Integer", BuiltIn: ir.BuiltInPrimitiveID, GLSLName: "gl_PrimitiveID", Output: true},
			},
			Compute: []BuiltIn{
				{Name: "GlobalInvocationId", Type: "Integer3", BuiltIn: ir.BuiltInGlobalInvocationID, GLSLName: "gl_GlobalInvocationID"},
				{Name: "LocalInvocationId", Type: "Integer3", BuiltIn: ir.BuiltInLocalInvocationID, GLSLName: "gl_LocalInvocationID"},
				{Name: "WorkgroupId", Type: "Integer3", BuiltIn: ir.BuiltInWorkgroupID, GLSLName: "gl_WorkGroupID"},
				{Name: "NumWorkgroups", Type: "Integer3", BuiltIn: ir.BuiltInNumWorkgroups, GLSLName: "gl_NumWorkGroups"},
				{Name: "LocalInvocationIndex", Type: "Integer", BuiltIn: ir.BuiltInLocalInvocationIndex, GLSLName: "gl_LocalInvocationIndex"},
			},
		},
		UniformBuffers: []UniformBuffer{
			{
				Name:    "PerFrameData",
				Binding: 0,
				Fields: []UniformField{
					{Name: "LogicTime", Type: "Real"},
					{Name: "FrameTime", Type: "Real"},
				},
			},
			{
				Name:    "PerCameraData",
				Binding: 1,
				Fields: []UniformField{
					{Name: "NearPlane", Type: "Real"},
					{Name: "FarPlane", Type: "Real"},
					{Name: "ViewportSize", Type: "Real2"},
					{Name: "CameraPosition", Type: "Real3"},
				},
			},
			{
				Name:    "TransformData",
				Binding: 2,
				Fields: []UniformField{
					{Name: "LocalToWorld", Type: "Real4x4"},
					{Name: "WorldToView", Type: "Real4x4"},
					{Name: "ViewToPerspective", Type: "Real4x4"},
				},
			},
		},
		MaterialBuffer: MaterialBuffer{
			Name:    "Material",
			Binding: 3,
			Offsets: map[string]uint32{
				ir.StageVertex.String():   0,
				ir.StageGeometry.String(): 1,
				ir.StagePixel.String():    2,
				ir.StageCompute.String():  0,
			},
		},
		VertexDefinitions: []VertexDefinition{
			{Name: "Position", Type: "Real3", Location: 0},
			{Name: "Normal", Type: "Real3", Location: 1},
			{Name: "Tangent", Type: "Real3", Location: 2},
			{Name: "Bitangent", Type: "Real3", Location: 3},
			{Name: "Uv", Type: "Real2", Location: 4},
			{Name: "UvAux", Type: "Real2", Location: 5},
			{Name: "Color", Type: "Real4", Location: 6},
		},
		RenderTargets:    []string{"Target0", "Target1", "Target2", "Target3", "Target4", "Target5", "Target6", "Target7"},
		GLSLVersions:     []string{"1.50", "4.50"},
		DefaultLocalSize: [3]uint32{1, 1, 1},
	}
}

// Load reads a TOML settings file over the defaults. Tables present in the
// file replace the corresponding defaults; attribute names are overridden
// key by key.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("settings: %s: %w", path, err)
	}
	return s, nil
}

// file mirrors Settings with nil-able tables so absent keys keep defaults.
type file struct {
	Attributes        AttributeNames     `toml:"attributes"`
	BuiltIns          BuiltInTables      `toml:"builtins"`
	UniformBuffers    []UniformBuffer    `toml:"uniform-buffers"`
	MaterialBuffer    *MaterialBuffer    `toml:"material-buffer"`
	VertexDefinitions []VertexDefinition `toml:"vertex-definitions"`
	RenderTargets     []string           `toml:"render-targets"`
	GLSLVersions      []string           `toml:"glsl-versions"`
	DefaultLocalSize  *[3]uint32         `toml:"default-local-size"`
}

// Parse decodes TOML settings over the defaults and validates the result.
func Parse(data []byte) (*Settings, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	s := Default()
	s.overlay(&f)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) overlay(f *file) {
	dst := reflect.ValueOf(&s.Attributes).Elem()
	src := reflect.ValueOf(f.Attributes)
	for i := 0; i < src.NumField(); i++ {
		if v := src.Field(i).String(); v != "" {
			dst.Field(i).SetString(v)
		}
	}

	for _, stage := range ir.Stages {
		if table := f.BuiltIns.For(stage); table != nil {
			*s.BuiltIns.ref(stage) = table
		}
	}
	if f.UniformBuffers != nil {
		s.UniformBuffers = f.UniformBuffers
	}
	if f.MaterialBuffer != nil {
		offsets := s.MaterialBuffer.Offsets
		s.MaterialBuffer = *f.MaterialBuffer
		if s.MaterialBuffer.Offsets == nil {
			s.MaterialBuffer.Offsets = offsets
		}
	}
	if f.VertexDefinitions != nil {
		s.VertexDefinitions = f.VertexDefinitions
	}
	if f.RenderTargets != nil {
		s.RenderTargets = f.RenderTargets
	}
	if f.GLSLVersions != nil {
		s.GLSLVersions = f.GLSLVersions
	}
	if f.DefaultLocalSize != nil {
		s.DefaultLocalSize = *f.DefaultLocalSize
	}
}

// Encode returns the settings as TOML.
func (s *Settings) Encode() ([]byte, error) {
	return toml.Marshal(s)
}

// VertexLocation returns the configured location of a vertex attribute.
func (s *Settings) VertexLocation(name, typ string) (uint32, bool) {
	for _, v := range s.VertexDefinitions {
		if v.Name == name && v.Type == typ {
			return v.Location, true
		}
	}
	return 0, false
}

// MaxVertexLocation returns the highest configured vertex location, or -1.
func (s *Settings) MaxVertexLocation() int {
	highest := -1
	for _, v := range s.VertexDefinitions {
		highest = max(highest, int(v.Location))
	}
	return highest
}

// RenderTargetIndex returns the output slot of a render-target name.
func (s *Settings) RenderTargetIndex(name string) (int, bool) {
	i := slices.Index(s.RenderTargets, name)
	return i, i >= 0
}

// Versions returns the configured GLSL versions, sorted ascending.
func (s *Settings) Versions() ([]*semver.Version, error) {
	versions := make([]*semver.Version, 0, len(s.GLSLVersions))
	for _, raw := range s.GLSLVersions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("glsl version %q: %w", raw, err)
		}
		versions = append(versions, v)
	}
	sort.Sort(semver.Collection(versions))
	return versions, nil
}

// Validate reports every inconsistency in the settings.
func (s *Settings) Validate() error {
	var result *multierror.Error

	bindings := make(map[[2]uint32]string)
	for _, u := range s.UniformBuffers {
		if u.Name == "" {
			result = multierror.Append(result, fmt.Errorf("uniform buffer at binding %d has no name", u.Binding))
		}
		key := [2]uint32{u.DescriptorSet, u.Binding}
		if other, ok := bindings[key]; ok {
			result = multierror.Append(result, fmt.Errorf("uniform buffers %s and %s share binding %d in set %d", other, u.Name, u.Binding, u.DescriptorSet))
		}
		bindings[key] = u.Name
	}

	locations := make(map[uint32]string)
	for _, v := range s.VertexDefinitions {
		if other, ok := locations[v.Location]; ok {
			result = multierror.Append(result, fmt.Errorf("vertex definitions %s and %s share location %d", other, v.Name, v.Location))
		}
		locations[v.Location] = v.Name
	}

	if _, err := s.Versions(); err != nil {
		result = multierror.Append(result, err)
	}
	for i, n := range s.DefaultLocalSize {
		if n == 0 {
			result = multierror.Append(result, fmt.Errorf("default local size dimension %d is zero", i))
		}
	}

	return result.ErrorOrNil()
}
