// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := New(KindInterface, Location{File: "Water.frag", Line: 12}, "built-in PixelDepth is not available in the Vertex stage")
	assert.Equal(t, "Water.frag:12: Interface error: built-in PixelDepth is not available in the Vertex stage", err.Error())

	bare := Newf(KindStructural, Location{}, "type %s has no default constructor", "Sky")
	assert.Equal(t, "Structural error: type Sky has no default constructor", bare.Error())
}

func TestListAccumulatesAndNotifies(t *testing.T) {
	var seen []string
	list := NewList(func(e *Error) { seen = append(seen, e.Message) })

	assert.NoError(t, list.Err())

	list.Addf(KindResolution, Location{File: "a.frag", Line: 1}, "no resolver for %s", "Foo")
	list.Addf(KindInterface, Location{File: "a.frag", Line: 2}, "index %d out of range", 7)

	assert.Equal(t, []string{"no resolver for Foo", "index 7 out of range"}, seen)
	assert.Equal(t, 2, list.Len())

	err := list.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no resolver for Foo")
	assert.Contains(t, err.Error(), "and 1 more errors")
	assert.True(t, IsKind(err, KindInterface))
	assert.False(t, IsKind(err, KindPipeline))
}

func TestZeroListIsUsable(t *testing.T) {
	var list List
	list.Add(New(KindResolution, Location{}, "x"))
	assert.True(t, list.HasErrors())
}

func TestIsKindUnwraps(t *testing.T) {
	err := fmt.Errorf("compile: %w", New(KindStructural, Location{}, "nil dependency"))
	assert.True(t, IsKind(err, KindStructural))
	assert.False(t, IsKind(errors.New("plain"), KindStructural))
}

func TestFormatWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("class Shader\n  var Arr = a[9]\n"), 0o600))

	err := New(KindInterface, Location{File: path, Line: 2, Column: 15}, "index 9 out of range")
	out := err.FormatWithContext()
	assert.Contains(t, out, "error: index 9 out of range")
	assert.Contains(t, out, "  2|   var Arr = a[9]")
	assert.Contains(t, out, "   |               ^")
}
