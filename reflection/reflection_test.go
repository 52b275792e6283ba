// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/ir"
)

func cameraRecord() *ShaderStageInterfaceReflection {
	return &ShaderStageInterfaceReflection{
		Name:       ReflectedName("Mesh", ir.StageVertex),
		TypeName:   "Mesh",
		Stage:      ir.StageVertex,
		EntryPoint: "main",
		Uniforms: []UniformBuffer{{
			Name:    "PerCameraData",
			Binding: 1,
			Size:    32,
			Members: []Member{
				{Name: "NearPlane", Type: "Real", Offset: 0, Size: 4},
				{Name: "FarPlane", Type: "Real", Offset: 4, Size: 4},
				{Name: "ViewportSize", Type: "Real2", Offset: 8, Size: 8},
				{Name: "CameraPosition", Type: "Real3", Offset: 16, Size: 12},
			},
		}},
		Inputs: []StageVariable{
			{Name: "Position", Type: "Real3", Location: 0},
			{Name: "VertexId", Type: "Integer", BuiltIn: "VertexIndex"},
		},
		Outputs: []StageVariable{{Name: "Tint", Type: "Real4", Location: 0}},
		Images:  []Resource{{Name: "Mesh_Albedo", Type: "image", Binding: 0}},
	}
}

func TestReflectedName(t *testing.T) {
	assert.Equal(t, "Mesh_Vertex", ReflectedName("Mesh", ir.StageVertex))
	assert.Equal(t, "Blur_Compute", ReflectedName("Blur", ir.StageCompute))
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(cameraRecord())
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "stage: Vertex")
	assert.Contains(t, text, "descriptor-set: 0")
	assert.NotContains(t, text, "storage-buffers")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, cameraRecord(), got)

	u, ok := got.Uniform("PerCameraData")
	require.True(t, ok)
	m, ok := u.Member("CameraPosition")
	require.True(t, ok)
	assert.Equal(t, uint32(16), m.Offset)

	in, ok := got.Input("VertexId")
	require.True(t, ok)
	assert.Equal(t, "VertexIndex", in.BuiltIn)
	_, ok = got.Output("Missing")
	assert.False(t, ok)
}

func TestEncodeStream(t *testing.T) {
	pixel := cameraRecord()
	pixel.Name = ReflectedName("Mesh", ir.StagePixel)
	pixel.Stage = ir.StagePixel

	data, err := Encode(cameraRecord(), pixel)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "---\n"))
	assert.Contains(t, string(data), "name: Mesh_Pixel")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.reflect.yaml")
	require.NoError(t, WriteFile(path, cameraRecord()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "Mesh_Vertex", got.Name)
}

func TestGenerateBindings(t *testing.T) {
	src, err := GenerateBindings("shaders", cameraRecord())
	require.NoError(t, err)
	text := string(src)

	assert.Contains(t, text, "// Code generated by fragc. DO NOT EDIT.")
	assert.Contains(t, text, "package shaders")
	assert.Contains(t, text, "type PerCameraData struct")
	assert.Regexp(t, regexp.MustCompile(`ViewportSize\s+\[2\]float32`), text)
	assert.Regexp(t, regexp.MustCompile(`CameraPosition\s+\[3\]float32`), text)
	assert.Regexp(t, regexp.MustCompile(`_\s+\[4\]byte`), text, "trailing padding up to the block size")
	assert.Regexp(t, regexp.MustCompile(`MeshVertexPerCameraDataBinding\s+= 1`), text)
	assert.Regexp(t, regexp.MustCompile(`MeshVertexMeshAlbedoBinding\s+= 0`), text)
	assert.Regexp(t, regexp.MustCompile(`MeshVertexPositionLocation\s+= 0`), text)
	assert.NotContains(t, text, "VertexIdLocation")
}

func TestGenerateBindingsDeduplicatesStructs(t *testing.T) {
	pixel := cameraRecord()
	pixel.Name = ReflectedName("Mesh", ir.StagePixel)
	src, err := GenerateBindings("shaders", cameraRecord(), pixel)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(src), "type PerCameraData struct"))
	assert.Contains(t, string(src), "MeshPixelPerCameraDataBinding")
}

func TestGoTypeMatrices(t *testing.T) {
	_, ok := goType("Real4x4")
	assert.True(t, ok)
	_, ok = goType("Sampler")
	assert.False(t, ok)
}
