// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package reflection describes the resource interface of a compiled stage:
// uniform buffers with member offsets, located inputs and outputs, images,
// samplers and storage buffers. Records are exported as YAML and can be
// turned into Go binding structs.
package reflection

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/fragc/ir"
)

// Member is one member of a uniform buffer.
type Member struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Offset uint32 `yaml:"offset"`
	Size   uint32 `yaml:"size"`
}

// UniformBuffer is a uniform block bound by the application.
type UniformBuffer struct {
	Name          string   `yaml:"name"`
	Binding       uint32   `yaml:"binding"`
	DescriptorSet uint32   `yaml:"descriptor-set"`
	Size          uint32   `yaml:"size"`
	Members       []Member `yaml:"members"`
}

// Member returns the named member.
func (u UniformBuffer) Member(name string) (Member, bool) {
	for _, m := range u.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// StageVariable is a stage input or output.
type StageVariable struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Location uint32 `yaml:"location"`
	Flat     bool   `yaml:"flat,omitempty"`
	// BuiltIn is set for hardware built-ins, which carry no location.
	BuiltIn string `yaml:"builtin,omitempty"`
}

// Resource is an image, sampler or combined image sampler.
type Resource struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Binding       uint32 `yaml:"binding"`
	DescriptorSet uint32 `yaml:"descriptor-set"`
}

// StorageBuffer is a runtime array wrapped in a buffer block.
type StorageBuffer struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Binding       uint32 `yaml:"binding"`
	DescriptorSet uint32 `yaml:"descriptor-set"`
	Stride        uint32 `yaml:"stride"`
}

// ShaderStageInterfaceReflection is the reflection record of one stage of
// one entry-point type.
type ShaderStageInterfaceReflection struct {
	// Name is the reflected type name, "<Type>_<Stage>".
	Name       string   `yaml:"name"`
	TypeName   string   `yaml:"type"`
	Stage      ir.Stage `yaml:"stage"`
	EntryPoint string   `yaml:"entry-point"`

	Uniforms       []UniformBuffer `yaml:"uniforms,omitempty"`
	Inputs         []StageVariable `yaml:"inputs,omitempty"`
	Outputs        []StageVariable `yaml:"outputs,omitempty"`
	Images         []Resource      `yaml:"images,omitempty"`
	Samplers       []Resource      `yaml:"samplers,omitempty"`
	SampledImages  []Resource      `yaml:"sampled-images,omitempty"`
	StorageBuffers []StorageBuffer `yaml:"storage-buffers,omitempty"`

	LocalSize []uint32 `yaml:"local-size,omitempty"`
}

// ReflectedName returns the reflected type name of a type at a stage.
func ReflectedName(typeName string, stage ir.Stage) string {
	return fmt.Sprintf("%s_%s", typeName, stage)
}

// Uniform returns the named uniform buffer.
func (r *ShaderStageInterfaceReflection) Uniform(name string) (UniformBuffer, bool) {
	for _, u := range r.Uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return UniformBuffer{}, false
}

// Input returns the named stage input.
func (r *ShaderStageInterfaceReflection) Input(name string) (StageVariable, bool) {
	return findVariable(r.Inputs, name)
}

// Output returns the named stage output.
func (r *ShaderStageInterfaceReflection) Output(name string) (StageVariable, bool) {
	return findVariable(r.Outputs, name)
}

func findVariable(vars []StageVariable, name string) (StageVariable, bool) {
	for _, v := range vars {
		if v.Name == name {
			return v, true
		}
	}
	return StageVariable{}, false
}

// Encode marshals records as a YAML stream, one document per record.
func Encode(records ...*ShaderStageInterfaceReflection) ([]byte, error) {
	var out []byte
	for i, r := range records {
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("reflection %s: %w", r.Name, err)
		}
		if i > 0 {
			out = append(out, "---\n"...)
		}
		out = append(out, data...)
	}
	return out, nil
}

// Decode unmarshals a single YAML record.
func Decode(data []byte) (*ShaderStageInterfaceReflection, error) {
	var r ShaderStageInterfaceReflection
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WriteFile encodes records into path.
func WriteFile(path string, records ...*ShaderStageInterfaceReflection) error {
	data, err := Encode(records...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
