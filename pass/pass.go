// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package pass runs post-processing steps over compiled stage binaries.
//
// A [Pipeline] chains [Pass] values in order. Each pass receives the result
// of the previous one and returns a new [TranslationPassResult]; inputs are
// never mutated, so a caller can keep the unoptimized module while writing
// the optimized one.
package pass

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/reflection"
)

// TranslationPassResult is the data flowing between passes.
type TranslationPassResult struct {
	// Data is the stage binary or text.
	Data []byte

	// Reflection describes the stage interface. Passes that only
	// transform Data carry it through unchanged.
	Reflection *reflection.ShaderStageInterfaceReflection

	// Log accumulates messages from every pass that ran.
	Log []string
}

// Name returns the reflected type name of the result, or "" without
// reflection.
func (r *TranslationPassResult) Name() string {
	if r == nil || r.Reflection == nil {
		return ""
	}
	return r.Reflection.Name
}

// with returns a copy of r holding data and extra log lines.
func (r *TranslationPassResult) with(data []byte, log ...string) *TranslationPassResult {
	out := &TranslationPassResult{
		Data:       data,
		Reflection: r.Reflection,
		Log:        make([]string, 0, len(r.Log)+len(log)),
	}
	out.Log = append(out.Log, r.Log...)
	out.Log = append(out.Log, log...)
	return out
}

// Pass is one step of a pipeline.
type Pass interface {
	Name() string
	Run(in *TranslationPassResult) (*TranslationPassResult, error)
}

// PassError reports a failed pass. Log holds the pass's own messages.
type PassError struct {
	Pass string
	Log  []string
	Err  error
}

func (e *PassError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pass %s failed", e.Pass)
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	for _, line := range e.Log {
		sb.WriteString("\n  " + line)
	}
	return sb.String()
}

// Unwrap exposes the cause and a pipeline diagnostic, so both errors.Is on
// the cause and diag.IsKind(err, diag.KindPipeline) hold.
func (e *PassError) Unwrap() []error {
	errs := []error{diag.Newf(diag.KindPipeline, diag.Location{}, "pass %s failed", e.Pass)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Pipeline runs passes in order.
type Pipeline struct {
	Passes []Pass
	Logger *slog.Logger
}

// NewPipeline returns a pipeline over passes.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{Passes: passes}
}

// Run feeds in through every pass and returns the last result. It halts at
// the first failing pass and returns the result before it with the error.
func (p *Pipeline) Run(in *TranslationPassResult) (*TranslationPassResult, error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	if in == nil {
		in = &TranslationPassResult{}
	}
	current := in
	for _, ps := range p.Passes {
		log.Debug("running pass", "pass", ps.Name(), "stage", current.Name(), "bytes", len(current.Data))
		out, err := ps.Run(current)
		if err != nil {
			log.Error("pass failed", "pass", ps.Name(), "stage", current.Name(), "err", err)
			var perr *PassError
			if !errors.As(err, &perr) {
				err = &PassError{Pass: ps.Name(), Err: err}
			}
			return current, err
		}
		current = out
	}
	return current, nil
}
