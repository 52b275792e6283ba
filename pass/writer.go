// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package pass

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/fragc/reflection"
)

// ErrNoReflection is returned when a result cannot be named.
var ErrNoReflection = errors.New("result has no reflection record")

// FileWriter writes each result to {Dir}/{reflected type name}.{Extension}.
type FileWriter struct {
	Dir string

	// Extension defaults to "spv".
	Extension string

	// Reflection also writes the reflection record next to the data as
	// {name}.yaml.
	Reflection bool
}

// Name implements Pass.
func (w *FileWriter) Name() string { return "write" }

// Path returns the file a result named name is written to.
func (w *FileWriter) Path(name string) string {
	ext := w.Extension
	if ext == "" {
		ext = "spv"
	}
	return filepath.Join(w.Dir, name+"."+ext)
}

// ReflectionPath returns the file the reflection record of a result named
// name is written to.
func (w *FileWriter) ReflectionPath(name string) string {
	return filepath.Join(w.Dir, name+".yaml")
}

// Run implements Pass.
func (w *FileWriter) Run(in *TranslationPassResult) (*TranslationPassResult, error) {
	name := in.Name()
	if name == "" {
		return nil, &PassError{Pass: w.Name(), Err: ErrNoReflection}
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, &PassError{Pass: w.Name(), Err: err}
	}
	path := w.Path(name)
	if err := os.WriteFile(path, in.Data, 0o644); err != nil {
		return nil, &PassError{Pass: w.Name(), Err: err}
	}
	log := []string{fmt.Sprintf("write: %s (%d bytes)", path, len(in.Data))}
	if w.Reflection {
		yamlPath := w.ReflectionPath(name)
		if err := reflection.WriteFile(yamlPath, in.Reflection); err != nil {
			return nil, &PassError{Pass: w.Name(), Log: log, Err: err}
		}
		log = append(log, "write: "+yamlPath)
	}
	return in.with(in.Data, log...), nil
}
