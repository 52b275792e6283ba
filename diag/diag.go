// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package diag defines the error taxonomy shared by every stage of fragc.
//
// Errors fall into four kinds:
//
//   - Resolution: no translation callback exists for a construct. The node is
//     replaced by a placeholder and translation of its siblings continues.
//   - Interface: a stage interface rule was broken (built-in requested in the
//     wrong stage, literal index out of range, initializer arity mismatch).
//   - Structural: the library cannot be compiled at all (missing default
//     constructor on an entry-point type, nil dependency). Fatal.
//   - Pipeline: a post-processing pass failed.
//
// Node-local errors are accumulated in a List so a host can report many
// diagnostics from one compile. Structural and pipeline errors are returned
// directly.
package diag

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Kind categorizes compilation errors.
type Kind uint8

const (
	// KindResolution indicates that no resolver was found for a syntax node.
	KindResolution Kind = iota

	// KindInterface indicates a violated stage interface rule.
	KindInterface

	// KindStructural indicates an unrecoverable library-level problem.
	KindStructural

	// KindPipeline indicates a failing post-processing pass.
	KindPipeline
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "Resolution"
	case KindInterface:
		return "Interface"
	case KindStructural:
		return "Structural"
	case KindPipeline:
		return "Pipeline"
	default:
		return "Unknown"
	}
}

// Location identifies a position in a source file.
type Location struct {
	File   string `yaml:"file,omitempty"`
	Line   int    `yaml:"line,omitempty"`
	Column int    `yaml:"column,omitempty"`
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

// String formats the location as file:line:column.
func (l Location) String() string {
	switch {
	case l.IsZero():
		return ""
	case l.Line == 0:
		return l.File
	case l.Column == 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
}

// Error is a single compilation diagnostic.
type Error struct {
	Kind     Kind
	Message  string
	Location Location
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Location, e.Kind, e.Message)
}

// FormatWithContext returns the message followed by the offending source
// line and a caret, when the file can be read.
func (e *Error) FormatWithContext() string {
	if e.Location.File == "" || e.Location.Line == 0 {
		return e.Error()
	}
	data, err := os.ReadFile(e.Location.File)
	if err != nil {
		return e.Error()
	}
	lines := strings.Split(string(data), "\n")
	if e.Location.Line > len(lines) {
		return e.Error()
	}
	line := lines[e.Location.Line-1]
	col := max(e.Location.Column, 1)
	col = min(col, len(line)+1)

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Message)
	fmt.Fprintf(&sb, "  --> %s\n", e.Location)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", e.Location.Line, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))
	return sb.String()
}

// New creates a diagnostic.
func New(kind Kind, loc Location, message string) *Error {
	return &Error{Kind: kind, Message: message, Location: loc}
}

// Newf creates a diagnostic with a formatted message.
func Newf(kind Kind, loc Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Location: loc}
}

// IsKind reports whether err is (or wraps) a diagnostic of the given kind.
func IsKind(err error, kind Kind) bool {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			if IsKind(e, kind) {
				return true
			}
		}
		return false
	}
	var d *Error
	return errors.As(err, &d) && d.Kind == kind
}

// Listener receives diagnostics as they are reported. A List calls it
// from the goroutine that reports, so a listener shared by lists that
// are used concurrently must be safe for concurrent use.
type Listener func(*Error)

// List accumulates node-local diagnostics.
// The zero value is ready to use.
type List struct {
	errs     []*Error
	listener Listener
}

// NewList creates a list that forwards every reported error to listener.
func NewList(listener Listener) *List {
	return &List{listener: listener}
}

// Add records a diagnostic.
func (l *List) Add(err *Error) {
	l.errs = append(l.errs, err)
	if l.listener != nil {
		l.listener(err)
	}
}

// Addf records a diagnostic with a formatted message.
func (l *List) Addf(kind Kind, loc Location, format string, args ...any) {
	l.Add(Newf(kind, loc, format, args...))
}

// Len returns the number of recorded diagnostics.
func (l *List) Len() int {
	return len(l.errs)
}

// HasErrors reports whether any diagnostic was recorded.
func (l *List) HasErrors() bool {
	return len(l.errs) > 0
}

// Errors returns the recorded diagnostics in report order.
func (l *List) Errors() []*Error {
	return l.errs
}

// Err returns nil when the list is empty, otherwise a *multierror.Error
// holding every diagnostic.
func (l *List) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, e := range l.errs {
		merr = multierror.Append(merr, e)
	}
	merr.ErrorFormat = formatErrors
	return merr
}

// FormatAll returns all diagnostics formatted with context.
func (l *List) FormatAll() string {
	var sb strings.Builder
	for i, e := range l.errs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.FormatWithContext())
	}
	return sb.String()
}

func formatErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", errs[0].Error(), len(errs)-1)
}
