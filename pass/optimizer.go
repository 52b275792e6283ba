// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package pass

import (
	"fmt"
	"slices"

	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/spirv"
)

// Optimizer shrinks a binary module. It removes debug names and drops
// decorations that repeat an earlier one word for word.
type Optimizer struct {
	// KeepNames preserves OpName and OpMemberName.
	KeepNames bool
}

// Name implements Pass.
func (o *Optimizer) Name() string { return "optimize" }

// Run implements Pass.
func (o *Optimizer) Run(in *TranslationPassResult) (*TranslationPassResult, error) {
	h, insts, err := spirv.Decode(in.Data)
	if err != nil {
		return nil, &PassError{
			Pass: o.Name(),
			Log:  []string{fmt.Sprintf("cannot decode %d bytes", len(in.Data))},
			Err:  err,
		}
	}

	var names, duplicates int
	kept := make([]spirv.Instruction, 0, len(insts))
	seen := make(map[ir.Opcode][][]uint32)
	for _, inst := range insts {
		switch inst.Opcode {
		case ir.OpName, ir.OpMemberName:
			if !o.KeepNames {
				names++
				continue
			}
		case ir.OpDecorate, ir.OpMemberDecorate:
			if containsWords(seen[inst.Opcode], inst.Words) {
				duplicates++
				continue
			}
			seen[inst.Opcode] = append(seen[inst.Opcode], inst.Words)
		}
		kept = append(kept, inst)
	}

	out := spirv.Encode(h, kept)
	return in.with(out, fmt.Sprintf("optimize: removed %d debug names and %d duplicate decorations (%d -> %d bytes)",
		names, duplicates, len(in.Data), len(out))), nil
}

func containsWords(list [][]uint32, words []uint32) bool {
	for _, w := range list {
		if slices.Equal(w, words) {
			return true
		}
	}
	return false
}
