// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package pass

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/spirv"
)

// ErrValidation is the cause of a PassError from the Validator.
var ErrValidation = errors.New("module failed validation")

// Severity ranks validation messages.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Message is one validation finding. Index is the position of the
// offending instruction in the decoded stream, or -1 for the module.
type Message struct {
	Severity Severity
	Index    int
	Text     string
}

func (m Message) String() string {
	if m.Index < 0 {
		return fmt.Sprintf("%s: %s", m.Severity, m.Text)
	}
	return fmt.Sprintf("%s: [%d] %s", m.Severity, m.Index, m.Text)
}

// Validator checks the structure of a binary module. It never changes the
// data it is given.
type Validator struct {
	// WarningsAsErrors fails the pass on warnings too.
	WarningsAsErrors bool
}

// Name implements Pass.
func (v *Validator) Name() string { return "validate" }

// Run implements Pass.
func (v *Validator) Run(in *TranslationPassResult) (*TranslationPassResult, error) {
	msgs := Validate(in.Data)
	log := make([]string, 0, len(msgs))
	failed := false
	for _, m := range msgs {
		log = append(log, m.String())
		if m.Severity == SeverityError || v.WarningsAsErrors {
			failed = true
		}
	}
	if failed {
		return nil, &PassError{Pass: v.Name(), Log: log, Err: ErrValidation}
	}
	return in.with(in.Data, log...), nil
}

// Validate decodes data and returns every finding in stream order.
func Validate(data []byte) []Message {
	h, insts, err := spirv.Decode(data)
	if err != nil {
		return []Message{{Severity: SeverityError, Index: -1, Text: err.Error()}}
	}
	c := &checker{bound: h.Bound, defined: make(map[uint32]int)}
	for i, inst := range insts {
		c.instruction(i, inst)
	}
	c.finish(len(insts))
	return c.msgs
}

type checker struct {
	bound   uint32
	msgs    []Message
	defined map[uint32]int

	memoryModels int
	entryPoints  []uint32
	functions    map[uint32]bool

	inFunction bool
	inBlock    bool
	sawLabel   bool

	decorations [][]uint32
}

func (c *checker) errorf(i int, format string, args ...any) {
	c.msgs = append(c.msgs, Message{Severity: SeverityError, Index: i, Text: fmt.Sprintf(format, args...)})
}

func (c *checker) warnf(i int, format string, args ...any) {
	c.msgs = append(c.msgs, Message{Severity: SeverityWarning, Index: i, Text: fmt.Sprintf(format, args...)})
}

func (c *checker) instruction(i int, inst spirv.Instruction) {
	if id, ok := inst.ResultID(); ok {
		switch {
		case id == 0 || id >= c.bound:
			c.errorf(i, "%s result id %d is outside the bound %d", inst.Opcode, id, c.bound)
		case c.defined[id] != 0:
			c.errorf(i, "%s redefines id %d from instruction %d", inst.Opcode, id, c.defined[id]-1)
		default:
			c.defined[id] = i + 1
		}
	}

	switch inst.Opcode {
	case ir.OpMemoryModel:
		c.memoryModels++
	case ir.OpEntryPoint:
		if len(inst.Words) > 1 {
			c.entryPoints = append(c.entryPoints, inst.Words[1])
		}
	case ir.OpDecorate, ir.OpMemberDecorate:
		if len(inst.Words) < 2 {
			c.errorf(i, "%s has %d operands", inst.Opcode, len(inst.Words))
			break
		}
		if slices.ContainsFunc(c.decorations, func(w []uint32) bool {
			return w[0] == uint32(inst.Opcode) && slices.Equal(w[1:], inst.Words)
		}) {
			c.warnf(i, "duplicate %s of id %d", inst.Opcode, inst.Words[0])
		}
		c.decorations = append(c.decorations, append([]uint32{uint32(inst.Opcode)}, inst.Words...))
	case ir.OpFunction:
		if c.inFunction {
			c.errorf(i, "OpFunction inside a function")
		}
		c.inFunction, c.inBlock, c.sawLabel = true, false, false
		if id, ok := inst.ResultID(); ok {
			if c.functions == nil {
				c.functions = make(map[uint32]bool)
			}
			c.functions[id] = true
		}
		return
	case ir.OpFunctionEnd:
		switch {
		case !c.inFunction:
			c.errorf(i, "OpFunctionEnd outside a function")
		case c.inBlock:
			c.errorf(i, "block is not terminated before OpFunctionEnd")
		}
		c.inFunction, c.inBlock = false, false
		return
	}

	if !c.inFunction {
		if inst.Opcode == ir.OpLabel || inst.Opcode.IsTerminator() {
			c.errorf(i, "%s outside a function", inst.Opcode)
		}
		return
	}
	switch {
	case inst.Opcode == ir.OpLabel:
		if c.inBlock {
			c.errorf(i, "block is not terminated before the next label")
		}
		c.inBlock, c.sawLabel = true, true
	case inst.Opcode == ir.OpFunctionParameter:
		if c.sawLabel {
			c.errorf(i, "OpFunctionParameter after the first block")
		}
	case !c.inBlock:
		c.errorf(i, "%s outside a block", inst.Opcode)
	case inst.Opcode.IsTerminator():
		c.inBlock = false
	}
}

func (c *checker) finish(n int) {
	if c.inFunction {
		c.errorf(n-1, "function is missing OpFunctionEnd")
	}
	if c.memoryModels != 1 {
		c.errorf(-1, "module has %d memory model instructions, expected 1", c.memoryModels)
	}
	if len(c.entryPoints) == 0 {
		c.errorf(-1, "module has no entry point")
	}
	for _, fn := range c.entryPoints {
		if !c.functions[fn] {
			c.errorf(-1, "entry point %%%d is not a function", fn)
		}
	}
}
