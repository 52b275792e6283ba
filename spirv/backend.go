// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/gogpu/fragc/ir"
)

// ErrNoEntryPoint is returned when the entry point has no function.
var ErrNoEntryPoint = errors.New("spirv: entry point has no function")

// Backend translates one entry point of an IR library to a standalone
// SPIR-V module. Only the closure reachable from the entry point is
// emitted: every type, constant, global and function is given an ID the
// first time an instruction refers to it.
type Backend struct {
	options Options
	log     *slog.Logger

	builder *ModuleBuilder
	ep      *ir.EntryPoint

	ids         map[ir.Value]uint32
	typeKeys    map[string]uint32
	decorations map[ir.Value][]ir.DecorationEntry
	queue       []*ir.Function
	needFloat64 bool
	err         error
}

// NewBackend creates a new SPIR-V backend.
func NewBackend(options Options) *Backend {
	if options.Version == (Version{}) {
		options.Version = Version1_3
	}
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{options: options, log: log}
}

// Compile emits the entry point ep of lib.
func (b *Backend) Compile(lib *ir.Library, ep *ir.EntryPoint) ([]byte, error) {
	if ep == nil || ep.Function == nil {
		return nil, ErrNoEntryPoint
	}
	if b.options.Validation {
		if err := validate(lib); err != nil {
			return nil, err
		}
	}

	b.builder = NewModuleBuilder(b.options.Version)
	b.ep = ep
	b.ids = make(map[ir.Value]uint32)
	b.typeKeys = make(map[string]uint32)
	b.decorations = make(map[ir.Value][]ir.DecorationEntry)
	b.queue = nil
	b.needFloat64 = false
	b.err = nil
	if ep.Decorations != nil {
		for _, d := range ep.Decorations.All() {
			b.decorations[d.Target] = append(b.decorations[d.Target], d)
		}
	}

	b.builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	mainID := b.id(ep.Function)
	for len(b.queue) > 0 {
		f := b.queue[0]
		b.queue = b.queue[1:]
		b.emitFunction(f)
	}

	interfaces := make([]uint32, len(ep.Interface))
	for i, g := range ep.Interface {
		interfaces[i] = b.id(g)
	}
	b.builder.AddEntryPoint(ep.Stage.ExecutionModel(), mainID, ep.Name, interfaces)
	for _, m := range ep.ExecutionModes {
		b.builder.AddExecutionMode(mainID, m.Mode, m.Params...)
	}

	caps := ep.Capabilities
	if len(caps) == 0 {
		caps = []ir.Capability{ir.CapabilityShader}
	}
	for _, c := range caps {
		b.builder.AddCapability(c)
	}
	if b.needFloat64 {
		b.builder.AddCapability(ir.CapabilityFloat64)
	}

	if b.err != nil {
		return nil, b.err
	}
	b.log.Debug("emitted spir-v", "entry", ep.Name, "stage", ep.Stage.String(), "bound", b.builder.Bound())
	return b.builder.Build(), nil
}

// Compile emits the entry point ep of lib with options.
func Compile(lib *ir.Library, ep *ir.EntryPoint, options Options) ([]byte, error) {
	return NewBackend(options).Compile(lib, ep)
}

func validate(lib *ir.Library) error {
	errs, err := ir.Validate(lib)
	if err != nil {
		return err
	}
	var merr *multierror.Error
	for _, e := range errs {
		merr = multierror.Append(merr, e)
	}
	if merr != nil {
		return fmt.Errorf("spirv: invalid library %s: %w", lib.Name, merr)
	}
	return nil
}

func (b *Backend) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("spirv: "+format, args...)
	}
}

// id returns the ID of v, declaring it on first use. Ops, parameters and
// blocks may be referenced before they are emitted and get a forward ID.
func (b *Backend) id(v ir.Value) uint32 {
	if id, ok := b.ids[v]; ok {
		return id
	}
	switch v := v.(type) {
	case *ir.Type:
		return b.typeID(v)
	case *ir.Constant:
		return b.constantID(v)
	case *ir.GlobalVariable:
		return b.globalID(v)
	case *ir.Function:
		return b.functionID(v)
	case *ir.ExtInstSet:
		id := b.builder.AddExtInstImport(v.Name)
		b.ids[v] = id
		return id
	}
	id := b.builder.AllocID()
	b.ids[v] = id
	return id
}

func (b *Backend) operand(v ir.Value) uint32 {
	if lit, ok := v.(ir.Literal); ok {
		return uint32(lit)
	}
	return b.id(v)
}

func (b *Backend) decorate(target ir.Value, id uint32) {
	for _, d := range b.decorations[target] {
		if d.Member == ir.NoMember {
			b.builder.AddDecorate(id, d.Decoration, d.Params...)
		} else {
			b.builder.AddMemberDecorate(id, uint32(d.Member), d.Decoration, d.Params...)
		}
	}
}

// keyed declares a non-aggregate type or constant once per distinct
// encoding. SPIR-V forbids duplicate declarations of such types.
func (b *Backend) keyed(op ir.Opcode, resultType uint32, operands ...uint32) uint32 {
	key := fmt.Sprint(op, resultType, operands)
	if id, ok := b.typeKeys[key]; ok {
		return id
	}
	id := b.builder.AllocID()
	b.typeKeys[key] = id
	words := []uint32{id}
	if resultType != 0 {
		words = []uint32{resultType, id}
	}
	b.builder.AddType(op, append(words, operands...)...)
	return id
}

func boolWord(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

func (b *Backend) uintConstant(n uint32) uint32 {
	u32 := b.keyed(ir.OpTypeInt, 0, 32, 0)
	return b.keyed(ir.OpConstant, u32, n)
}

func (b *Backend) typeID(t *ir.Type) uint32 {
	if id, ok := b.ids[t]; ok {
		return id
	}
	if t.Kind == ir.KindStruct {
		members := make([]uint32, len(t.Members))
		for i, m := range t.Members {
			members[i] = b.typeID(m.Type)
		}
		id := b.builder.AllocID()
		b.ids[t] = id
		b.builder.AddType(ir.OpTypeStruct, append([]uint32{id}, members...)...)
		if b.options.Debug {
			b.builder.AddName(id, t.Name)
			for i, m := range t.Members {
				b.builder.AddMemberName(id, uint32(i), m.Name)
			}
		}
		b.decorate(t, id)
		return id
	}

	var op ir.Opcode
	var operands []uint32
	switch t.Kind {
	case ir.KindVoid:
		op = ir.OpTypeVoid
	case ir.KindBool:
		op = ir.OpTypeBool
	case ir.KindInt:
		op, operands = ir.OpTypeInt, []uint32{t.Width, boolWord(t.Signed)}
	case ir.KindFloat:
		op, operands = ir.OpTypeFloat, []uint32{t.Width}
		if t.Width == 64 {
			b.needFloat64 = true
		}
	case ir.KindVector:
		op, operands = ir.OpTypeVector, []uint32{b.typeID(t.Elem), t.Count}
	case ir.KindMatrix:
		op, operands = ir.OpTypeMatrix, []uint32{b.typeID(t.Elem), t.Count}
	case ir.KindFixedArray:
		op, operands = ir.OpTypeArray, []uint32{b.typeID(t.Elem), b.uintConstant(t.Count)}
	case ir.KindRuntimeArray:
		op, operands = ir.OpTypeRuntimeArray, []uint32{b.typeID(t.Elem)}
	case ir.KindImage:
		sampled := uint32(imageSampled)
		if t.Image.Storage {
			sampled = imageStorage
		}
		op, operands = ir.OpTypeImage, []uint32{
			b.typeID(t.Elem), uint32(t.Image.Dim), boolWord(t.Image.Depth),
			boolWord(t.Image.Arrayed), boolWord(t.Image.Multisampled), sampled, t.Image.Format,
		}
	case ir.KindSampler:
		op = ir.OpTypeSampler
	case ir.KindSampledImage:
		op, operands = ir.OpTypeSampledImage, []uint32{b.typeID(t.Elem)}
	case ir.KindPointer:
		op, operands = ir.OpTypePointer, []uint32{uint32(t.StorageClass), b.typeID(t.Elem)}
	case ir.KindFunction:
		operands = []uint32{b.typeID(t.Result)}
		for _, p := range t.Params {
			operands = append(operands, b.typeID(p))
		}
		op = ir.OpTypeFunction
	default:
		b.fail("unsupported type %s", t)
		return 0
	}
	id := b.keyed(op, 0, operands...)
	b.ids[t] = id
	b.decorate(t, id)
	return id
}

func (b *Backend) constantID(c *ir.Constant) uint32 {
	typeID := b.typeID(c.Type)
	var id uint32
	switch c.Kind {
	case ir.ConstantKindTrue:
		id = b.keyed(ir.OpConstantTrue, typeID)
	case ir.ConstantKindFalse:
		id = b.keyed(ir.OpConstantFalse, typeID)
	case ir.ConstantKindScalar:
		id = b.keyed(ir.OpConstant, typeID, c.Words...)
	case ir.ConstantKindComposite:
		parts := make([]uint32, len(c.Constituents))
		for i, part := range c.Constituents {
			parts[i] = b.constantID(part)
		}
		id = b.keyed(ir.OpConstantComposite, typeID, parts...)
	case ir.ConstantKindNull:
		id = b.keyed(ir.OpConstantNull, typeID)
	}
	b.ids[c] = id
	return id
}

func (b *Backend) globalID(g *ir.GlobalVariable) uint32 {
	ptr := b.typeID(g.Type)
	words := []uint32{ptr, 0, uint32(g.StorageClass)}
	if g.Initializer != nil {
		words = append(words, b.constantID(g.Initializer))
	}
	id := b.builder.AllocID()
	words[1] = id
	b.ids[g] = id
	b.builder.AddType(ir.OpVariable, words...)
	if b.options.Debug {
		b.builder.AddName(id, g.Name)
	}
	b.decorate(g, id)
	return id
}

// functionID returns the ID of f as called from the entry point: calls to
// late-bound declarations resolve to the bound implementation.
func (b *Backend) functionID(f *ir.Function) uint32 {
	if impl := b.ep.Resolve(f); impl != f {
		id := b.functionID(impl)
		b.ids[f] = id
		return id
	}
	if id, ok := b.ids[f]; ok {
		return id
	}
	id := b.builder.AllocID()
	b.ids[f] = id
	b.queue = append(b.queue, f)
	return id
}

func (b *Backend) emitFunction(f *ir.Function) {
	if !f.Defined() {
		b.fail("function %s has no body", f.Name)
		return
	}
	ret := b.typeID(f.ReturnType)
	params := make([]uint32, len(f.Params))
	for i, p := range f.Params {
		params[i] = b.typeID(p.Type)
	}
	fnType := b.keyed(ir.OpTypeFunction, 0, append([]uint32{ret}, params...)...)
	id := b.ids[f]
	if b.options.Debug {
		b.builder.AddName(id, f.Name)
	}

	b.builder.AddFunctionInstruction(ir.OpFunction, ret, id, 0, fnType)
	for i, p := range f.Params {
		pid := b.id(p)
		b.builder.AddFunctionInstruction(ir.OpFunctionParameter, params[i], pid)
		if b.options.Debug && p.Name != "" {
			b.builder.AddName(pid, p.Name)
		}
	}
	for i, blk := range f.Blocks {
		b.builder.AddFunctionInstruction(ir.OpLabel, b.id(blk))
		if i == 0 {
			for _, local := range f.Locals {
				b.emitOp(local)
				if b.options.Debug && local.Name != "" {
					b.builder.AddName(b.id(local), local.Name)
				}
			}
		}
		for _, op := range blk.Ops {
			b.emitOp(op)
		}
	}
	b.builder.AddFunctionInstruction(ir.OpFunctionEnd)
}

func (b *Backend) emitOp(op *ir.Op) {
	var words []uint32
	if op.Opcode.HasResult() {
		if op.ResultType == nil {
			b.fail("%s in %s has no result type", op.Opcode, op.Block.Function.Name)
			return
		}
		words = append(words, b.typeID(op.ResultType), b.id(op))
	}
	for _, operand := range op.Operands {
		words = append(words, b.operand(operand))
	}
	b.builder.AddFunctionInstruction(op.Opcode, words...)
}
