// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/fragc/project"
	"github.com/gogpu/fragc/settings"
)

const flatDoc = `
name: Flat
types:
  - name: Flat
    attributes: [Pixel]
    fields:
      - name: Uv
        type: Real2
        attributes: [StageInput]
      - name: Color
        type: Real4
        attributes: ["StageOutput(name: Target0)"]
    functions:
      - name: Main
        attributes: [Main]
        body: []
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fragc version ")
}

func TestSettingsRoundTrip(t *testing.T) {
	out, err := run(t, "settings")
	require.NoError(t, err)
	s, err := settings.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, settings.Default().GLSLVersions, s.GLSLVersions)
}

func TestCompileAndDisassemble(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "flat.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(flatDoc), 0o644))
	out := filepath.Join(dir, "out")

	_, err := run(t, "compile", "-o", out, "--glsl-version", "4.50", "-O", doc)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "Flat_Pixel.spv"))
	assert.FileExists(t, filepath.Join(out, "Flat_Pixel.yaml"))
	assert.FileExists(t, filepath.Join(out, "Flat_Pixel.glsl450.frag"))
	assert.NoFileExists(t, filepath.Join(out, "Flat_Pixel.glsl150.frag"))

	text, err := run(t, "dis", "--validate", filepath.Join(out, "Flat_Pixel.spv"))
	require.NoError(t, err)
	assert.Contains(t, text, "OpEntryPoint Fragment")
	assert.NotContains(t, text, "OpName")

	_, err = run(t, "compile", "--glsl-version", "core", doc)
	assert.Error(t, err)
	_, err = run(t, "compile", "--spirv-version", "2.0", doc)
	assert.Error(t, err)
}

func TestBuildProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "flat.yaml"), []byte(flatDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, project.ManifestName), []byte(`
[project]
name = "demo"
target = "out"
sources = ["src/*.yaml"]
outputs = ["spirv", "glsl"]
`), 0o644))

	_, err := run(t, "build", "--dry-run", dir)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "out"))

	_, err = run(t, "build", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "Flat_Pixel.spv"))
	assert.FileExists(t, filepath.Join(dir, "out", "Flat_Pixel.glsl150.frag"))

	g, err := project.LoadGraph(dir)
	require.NoError(t, err)
	assert.True(t, relevant(g, fsnotify.Event{Name: filepath.Join(dir, "src", "flat.yaml"), Op: fsnotify.Write}))
	assert.True(t, relevant(g, fsnotify.Event{Name: filepath.Join(dir, project.ManifestName), Op: fsnotify.Write}))
	assert.False(t, relevant(g, fsnotify.Event{Name: filepath.Join(dir, "out", "Flat_Pixel.spv"), Op: fsnotify.Create}))
	assert.False(t, relevant(g, fsnotify.Event{Name: filepath.Join(dir, "src", "flat.yaml"), Op: fsnotify.Chmod}))
}

func TestBuildMissingManifest(t *testing.T) {
	_, err := run(t, "build", t.TempDir())
	assert.Error(t, err)
}
