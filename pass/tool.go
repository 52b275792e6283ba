// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Placeholders substituted in Tool arguments.
const (
	InputPlaceholder  = "{in}"
	OutputPlaceholder = "{out}"
)

// ErrToolNotFound is returned when the tool's command is not on PATH.
var ErrToolNotFound = errors.New("tool not found")

// Tool runs an external program over the data, such as spirv-opt or
// spirv-val. The data is written to a temporary file substituted for {in};
// when any argument mentions {out}, the file the program writes there
// replaces the data.
type Tool struct {
	// Label names the pass. It defaults to the command's base name.
	Label   string
	Command string
	Args    []string

	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

// SpirvOpt returns a Tool running spirv-opt with performance passes.
func SpirvOpt() *Tool {
	return &Tool{Command: "spirv-opt", Args: []string{"-O", InputPlaceholder, "-o", OutputPlaceholder}}
}

// SpirvVal returns a Tool running spirv-val.
func SpirvVal() *Tool {
	return &Tool{Command: "spirv-val", Args: []string{InputPlaceholder}}
}

// Name implements Pass.
func (t *Tool) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return filepath.Base(t.Command)
}

// Available reports whether the command can be found.
func (t *Tool) Available() bool {
	_, err := exec.LookPath(t.Command)
	return err == nil
}

// Run implements Pass.
func (t *Tool) Run(in *TranslationPassResult) (*TranslationPassResult, error) {
	if !t.Available() {
		return nil, &PassError{Pass: t.Name(), Err: fmt.Errorf("%w: %s", ErrToolNotFound, t.Command)}
	}
	dir, err := os.MkdirTemp("", "fragc-"+t.Name()+"-")
	if err != nil {
		return nil, &PassError{Pass: t.Name(), Err: err}
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "in.bin")
	outPath := filepath.Join(dir, "out.bin")
	if err := os.WriteFile(inPath, in.Data, 0o644); err != nil {
		return nil, &PassError{Pass: t.Name(), Err: err}
	}
	args := make([]string, len(t.Args))
	replaces := false
	for i, a := range t.Args {
		if strings.Contains(a, OutputPlaceholder) {
			replaces = true
		}
		a = strings.ReplaceAll(a, InputPlaceholder, inPath)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, outPath)
	}

	ctx := context.Background()
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, t.Command, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	log := outputLines(t.Name(), out)
	if err != nil {
		return nil, &PassError{Pass: t.Name(), Log: log, Err: err}
	}

	data := in.Data
	if replaces {
		data, err = os.ReadFile(outPath)
		if err != nil {
			return nil, &PassError{Pass: t.Name(), Log: log, Err: err}
		}
	}
	return in.with(data, log...), nil
}

func outputLines(name string, out []byte) []string {
	var lines []string
	for _, line := range bytes.Split(bytes.TrimSpace(out), []byte("\n")) {
		if len(line) > 0 {
			lines = append(lines, name+": "+string(line))
		}
	}
	return lines
}
